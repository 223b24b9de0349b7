package handlers

import (
  "errors"
  "net/http"

  "github.com/gin-gonic/gin"
  "github.com/google/uuid"

  "github.com/yungbote/shellmastery-backend/internal/apierr"
  "github.com/yungbote/shellmastery-backend/internal/logger"
  "github.com/yungbote/shellmastery-backend/internal/requestdata"
  "github.com/yungbote/shellmastery-backend/internal/services"
)

type GateHandler struct {
  log *logger.Logger
  svc services.GateService
}

func NewGateHandler(log *logger.Logger, svc services.GateService) *GateHandler {
  return &GateHandler{log: log.With("Handler", "GateHandler"), svc: svc}
}

// GET /api/lessons/:id/gate
//
// Deliberate verdicts (unknown lesson, bad id) keep their status; a storage
// failure degrades to an unconstrained gate so the learner is never blocked
// by a backend hiccup.
func (h *GateHandler) GetProgressionStatus(c *gin.Context) {
  lessonID, err := uuid.Parse(c.Param("id"))
  if err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_lesson_id", err)
    return
  }

  userID := requestdata.UserID(c.Request.Context())
  status, err := h.svc.ProgressionStatus(c.Request.Context(), userID, lessonID)
  if err != nil {
    var apiErr *apierr.Error
    if errors.As(err, &apiErr) {
      RespondAPIError(c, err)
      return
    }
    h.log.Warn("Failed to evaluate gate", "lesson_id", lessonID, "error", err)
    RespondOK(c, services.ProgressionStatus{
      LessonID:          lessonID,
      CanProgress:       true,
      RequiredCommands:  []string{},
      WeakCommands:      []services.WeakCommand{},
      CompletionPercent: 100,
      Message:           "Gate status is unavailable. Progression is not blocked.",
    })
    return
  }
  RespondOK(c, status)
}

// POST /api/lessons/:id/gate/pass
func (h *GateHandler) MarkGatePassed(c *gin.Context) {
  lessonID, err := uuid.Parse(c.Param("id"))
  if err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_lesson_id", err)
    return
  }

  userID := requestdata.UserID(c.Request.Context())
  status, err := h.svc.MarkGatePassed(c.Request.Context(), userID, lessonID)
  if err != nil {
    RespondAPIError(c, err)
    return
  }
  RespondOK(c, status)
}
