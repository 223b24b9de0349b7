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

type GatePassageRepo interface {
	Get(ctx context.Context, tx *gorm.DB, userID uuid.UUID, lessonID uuid.UUID) (*types.GatePassage, error)
	Record(ctx context.Context, tx *gorm.DB, userID uuid.UUID, lessonID uuid.UUID, weakAtStart int, at time.Time) error
}

type gatePassageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewGatePassageRepo(db *gorm.DB, baseLog *logger.Logger) GatePassageRepo {
	return &gatePassageRepo{db: db, log: baseLog.With("repo", "GatePassageRepo")}
}

func (r *gatePassageRepo) Get(ctx context.Context, tx *gorm.DB, userID uuid.UUID, lessonID uuid.UUID) (*types.GatePassage, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil || lessonID == uuid.Nil {
		return nil, nil
	}
	var row types.GatePassage
	err := transaction.WithContext(ctx).
		Where("user_id = ? AND lesson_id = ?", userID, lessonID).
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

// Record is idempotent: the first passage wins, replays leave the original
// row untouched.
func (r *gatePassageRepo) Record(ctx context.Context, tx *gorm.DB, userID uuid.UUID, lessonID uuid.UUID, weakAtStart int, at time.Time) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	row := &types.GatePassage{
		ID:                  uuid.New(),
		UserID:              userID,
		LessonID:            lessonID,
		PassedAt:            at,
		WeakCommandsAtStart: weakAtStart,
	}
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "lesson_id"}},
			DoNothing: true,
		}).
		Create(row).Error
}
