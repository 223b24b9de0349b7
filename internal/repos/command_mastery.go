package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/shellmastery-backend/internal/logger"
	"github.com/yungbote/shellmastery-backend/internal/types"
)

type CommandMasteryRepo interface {
	GetOrCreate(ctx context.Context, tx *gorm.DB, userID uuid.UUID, canonical string, category string) (*types.CommandMastery, error)
	Get(ctx context.Context, tx *gorm.DB, userID uuid.UUID, canonical string) (*types.CommandMastery, error)
	GetByCommands(ctx context.Context, tx *gorm.DB, userID uuid.UUID, canonicals []string) ([]*types.CommandMastery, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.CommandMastery, error)
	ListPracticed(ctx context.Context, tx *gorm.DB, batchSize int, offset int) ([]*types.CommandMastery, error)
	UpdateWithVersion(ctx context.Context, tx *gorm.DB, rec *types.CommandMastery) (bool, error)
	ApplyDecay(ctx context.Context, tx *gorm.DB, id uuid.UUID, version int, score float64, at time.Time) (bool, error)
}

type commandMasteryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCommandMasteryRepo(db *gorm.DB, baseLog *logger.Logger) CommandMasteryRepo {
	return &commandMasteryRepo{db: db, log: baseLog.With("repo", "CommandMasteryRepo")}
}

func (r *commandMasteryRepo) GetOrCreate(ctx context.Context, tx *gorm.DB, userID uuid.UUID, canonical string, category string) (*types.CommandMastery, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	existing, err := r.Get(ctx, transaction, userID, canonical)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	row := &types.CommandMastery{
		ID:               uuid.New(),
		UserID:           userID,
		CanonicalCommand: canonical,
		CommandCategory:  category,
	}
	if err := transaction.WithContext(ctx).Create(row).Error; err != nil {
		// Lost a create race: the other writer's row is the record now.
		if existing, getErr := r.Get(ctx, transaction, userID, canonical); getErr == nil && existing != nil {
			return existing, nil
		}
		return nil, err
	}
	return row, nil
}

func (r *commandMasteryRepo) Get(ctx context.Context, tx *gorm.DB, userID uuid.UUID, canonical string) (*types.CommandMastery, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil || canonical == "" {
		return nil, nil
	}
	var row types.CommandMastery
	err := transaction.WithContext(ctx).
		Where("user_id = ? AND canonical_command = ?", userID, canonical).
		Limit(1).
		Find(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *commandMasteryRepo) GetByCommands(ctx context.Context, tx *gorm.DB, userID uuid.UUID, canonicals []string) ([]*types.CommandMastery, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.CommandMastery
	if len(canonicals) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND canonical_command IN ?", userID, canonicals).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *commandMasteryRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.CommandMastery, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.CommandMastery
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("canonical_command ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// ListPracticed pages through records that have at least one attempt, for the
// decay batch job.
func (r *commandMasteryRepo) ListPracticed(ctx context.Context, tx *gorm.DB, batchSize int, offset int) ([]*types.CommandMastery, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.CommandMastery
	if err := transaction.WithContext(ctx).
		Where("last_practiced_at IS NOT NULL").
		Order("id ASC").
		Limit(batchSize).
		Offset(offset).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// UpdateWithVersion persists the record only if its version column has not
// moved since it was read. Returns false on a stale write, leaving the caller
// to re-read and retry.
func (r *commandMasteryRepo) UpdateWithVersion(ctx context.Context, tx *gorm.DB, rec *types.CommandMastery) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	prev := rec.Version
	rec.Version = prev + 1
	res := transaction.WithContext(ctx).
		Model(&types.CommandMastery{}).
		Where("id = ? AND version = ?", rec.ID, prev).
		Select("*").
		Omit("id", "created_at", "deleted_at").
		Updates(rec)
	if res.Error != nil {
		rec.Version = prev
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		rec.Version = prev
		return false, nil
	}
	return true, nil
}

// ApplyDecay stamps a recomputed score without bumping the version: the decay
// job writes a derived value and must not invalidate concurrent attempts. The
// write is guarded on the version the record was read at; an attempt that
// committed in between wins and the decay write reports false.
func (r *commandMasteryRepo) ApplyDecay(ctx context.Context, tx *gorm.DB, id uuid.UUID, version int, score float64, at time.Time) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).
		Model(&types.CommandMastery{}).
		Where("id = ? AND version = ?", id, version).
		Updates(map[string]interface{}{
			"proficiency_score": score,
			"decay_applied_at":  at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
