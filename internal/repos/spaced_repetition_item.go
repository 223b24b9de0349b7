package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/shellmastery-backend/internal/logger"
	"github.com/yungbote/shellmastery-backend/internal/types"
)

type SpacedRepetitionItemRepo interface {
	Get(ctx context.Context, tx *gorm.DB, userID uuid.UUID, canonical string) (*types.SpacedRepetitionItem, error)
	Upsert(ctx context.Context, tx *gorm.DB, item *types.SpacedRepetitionItem) error
	ListDue(ctx context.Context, tx *gorm.DB, userID uuid.UUID, asOf time.Time, limit int) ([]*types.SpacedRepetitionItem, error)
}

type spacedRepetitionItemRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSpacedRepetitionItemRepo(db *gorm.DB, baseLog *logger.Logger) SpacedRepetitionItemRepo {
	return &spacedRepetitionItemRepo{db: db, log: baseLog.With("repo", "SpacedRepetitionItemRepo")}
}

func (r *spacedRepetitionItemRepo) Get(ctx context.Context, tx *gorm.DB, userID uuid.UUID, canonical string) (*types.SpacedRepetitionItem, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil || canonical == "" {
		return nil, nil
	}
	var row types.SpacedRepetitionItem
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

// Upsert writes the scheduling state, keyed by (user, command). On conflict
// the scheduling columns are overwritten; creation metadata stays.
func (r *spacedRepetitionItemRepo) Upsert(ctx context.Context, tx *gorm.DB, item *types.SpacedRepetitionItem) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	item.UpdatedAt = time.Now().UTC()
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "canonical_command"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"difficulty", "stability", "interval_days", "review_count",
				"lapse_count", "last_grade", "due_at", "last_review_at", "updated_at",
			}),
		}).
		Create(item).Error
}

func (r *spacedRepetitionItemRepo) ListDue(ctx context.Context, tx *gorm.DB, userID uuid.UUID, asOf time.Time, limit int) ([]*types.SpacedRepetitionItem, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.SpacedRepetitionItem
	q := transaction.WithContext(ctx).
		Where("user_id = ? AND due_at IS NOT NULL AND due_at <= ?", userID, asOf).
		Order("due_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
