package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/yungbote/shellmastery-backend/internal/logger"
	"github.com/yungbote/shellmastery-backend/internal/types"
)

type StealthReviewRepo interface {
	CreateIfAbsent(ctx context.Context, tx *gorm.DB, ticket *types.StealthReview) (bool, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.StealthReview, error)
	GetActive(ctx context.Context, tx *gorm.DB, userID uuid.UUID, canonical string) (*types.StealthReview, error)
	ListPending(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.StealthReview, error)
	Update(ctx context.Context, tx *gorm.DB, ticket *types.StealthReview) error
}

type stealthReviewRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStealthReviewRepo(db *gorm.DB, baseLog *logger.Logger) StealthReviewRepo {
	return &stealthReviewRepo{db: db, log: baseLog.With("repo", "StealthReviewRepo")}
}

// CreateIfAbsent inserts the ticket unless an active one already occupies the
// (user, command) slot. The partial unique index makes the check atomic:
// losing a race surfaces as a unique violation, reported as (false, nil) so
// callers treat it exactly like the pre-existing-ticket case.
func (r *stealthReviewRepo) CreateIfAbsent(ctx context.Context, tx *gorm.DB, ticket *types.StealthReview) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if ticket.ID == uuid.Nil {
		ticket.ID = uuid.New()
	}
	if err := transaction.WithContext(ctx).Create(ticket).Error; err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *stealthReviewRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.StealthReview, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var row types.StealthReview
	err := transaction.WithContext(ctx).
		Where("id = ?", id).
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

func (r *stealthReviewRepo) GetActive(ctx context.Context, tx *gorm.DB, userID uuid.UUID, canonical string) (*types.StealthReview, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var row types.StealthReview
	err := transaction.WithContext(ctx).
		Where("user_id = ? AND canonical_command = ? AND status IN ?", userID, canonical, activeStatuses()).
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

// ListPending returns active tickets most-urgent-first: priority descending,
// then oldest request first.
func (r *stealthReviewRepo) ListPending(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.StealthReview, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.StealthReview
	q := transaction.WithContext(ctx).
		Where("user_id = ? AND status IN ?", userID, activeStatuses()).
		Order("priority DESC, requested_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *stealthReviewRepo) Update(ctx context.Context, tx *gorm.DB, ticket *types.StealthReview) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	ticket.UpdatedAt = time.Now().UTC()
	return transaction.WithContext(ctx).Save(ticket).Error
}

func activeStatuses() []string {
	return []string{types.StealthStatusQueued, types.StealthStatusScheduled, types.StealthStatusInProgress}
}

// isUniqueViolation recognizes duplicate-key failures from either driver:
// postgres reports SQLSTATE 23505 through pgconn, sqlite surfaces through
// gorm's translated error.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
