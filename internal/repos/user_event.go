package repos

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/shellmastery-backend/internal/logger"
	"github.com/yungbote/shellmastery-backend/internal/types"
)

// Analytics event types emitted by the engine.
const (
	EventAttemptRecorded = "attempt_recorded"
	EventShieldAwarded   = "shield_awarded"
	EventStealthQueued   = "stealth_review_queued"
	EventGatePassed      = "gate_passed"
	EventDecayApplied    = "decay_applied"
)

type UserEventRepo interface {
	Append(ctx context.Context, tx *gorm.DB, userID uuid.UUID, lessonID *uuid.UUID, eventType string, data map[string]interface{}) error
	ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.UserEvent, error)
}

type userEventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserEventRepo(db *gorm.DB, baseLog *logger.Logger) UserEventRepo {
	return &userEventRepo{db: db, log: baseLog.With("repo", "UserEventRepo")}
}

// Append writes one analytics event. Events are advisory: a failed write is
// logged and swallowed rather than failing the operation that emitted it.
func (r *userEventRepo) Append(ctx context.Context, tx *gorm.DB, userID uuid.UUID, lessonID *uuid.UUID, eventType string, data map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var payload datatypes.JSON
	if len(data) > 0 {
		raw, err := json.Marshal(data)
		if err != nil {
			r.log.Warn("Failed to encode event payload", "type", eventType, "error", err)
		} else {
			payload = datatypes.JSON(raw)
		}
	}

	row := &types.UserEvent{
		ID:       uuid.New(),
		UserID:   userID,
		LessonID: lessonID,
		Type:     eventType,
		Data:     payload,
	}
	if err := transaction.WithContext(ctx).Create(row).Error; err != nil {
		r.log.Warn("Failed to append user event", "type", eventType, "error", err)
		return err
	}
	return nil
}

func (r *userEventRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.UserEvent, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.UserEvent
	q := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
