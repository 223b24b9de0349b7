package handlers

import (
  "net/http"
  "strconv"

  "github.com/gin-gonic/gin"
  "github.com/google/uuid"

  "github.com/yungbote/shellmastery-backend/internal/logger"
  "github.com/yungbote/shellmastery-backend/internal/requestdata"
  "github.com/yungbote/shellmastery-backend/internal/services"
  "github.com/yungbote/shellmastery-backend/internal/types"
)

type StealthHandler struct {
  log *logger.Logger
  svc services.StealthReviewService
}

func NewStealthHandler(log *logger.Logger, svc services.StealthReviewService) *StealthHandler {
  return &StealthHandler{log: log.With("Handler", "StealthHandler"), svc: svc}
}

// POST /api/reviews/stealth
func (h *StealthHandler) Queue(c *gin.Context) {
  var body struct {
    CanonicalCommand string `json:"canonical_command"`
    Priority         int    `json:"priority"`
    Strategy         string `json:"strategy"`
  }
  if err := c.ShouldBindJSON(&body); err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_body", err)
    return
  }

  userID := requestdata.UserID(c.Request.Context())
  created, err := h.svc.Queue(c.Request.Context(), userID, body.CanonicalCommand, body.Priority, body.Strategy)
  if err != nil {
    RespondAPIError(c, err)
    return
  }
  RespondOK(c, gin.H{"queued": created})
}

// GET /api/reviews/stealth
//
// Degrades to an empty list on failure.
func (h *StealthHandler) ListQueued(c *gin.Context) {
  limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

  userID := requestdata.UserID(c.Request.Context())
  tickets, err := h.svc.ListQueued(c.Request.Context(), userID, limit)
  if err != nil {
    h.log.Warn("Failed to list queued reviews", "error", err)
    tickets = []*types.StealthReview{}
  }
  RespondOK(c, gin.H{"reviews": tickets})
}

// GET /api/lessons/:id/reviews
//
// Degrades to an empty list on failure: lesson rendering must not block on
// the review queue.
func (h *StealthHandler) PendingForLesson(c *gin.Context) {
  lessonID, err := uuid.Parse(c.Param("id"))
  if err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_lesson_id", err)
    return
  }

  userID := requestdata.UserID(c.Request.Context())
  pending, err := h.svc.PendingForLesson(c.Request.Context(), userID, lessonID)
  if err != nil {
    h.log.Warn("Failed to list pending reviews", "lesson_id", lessonID, "error", err)
    pending = []*types.StealthReview{}
  }
  RespondOK(c, gin.H{"reviews": pending})
}

// POST /api/reviews/stealth/:id/shown
func (h *StealthHandler) MarkShown(c *gin.Context) {
  ticketID, err := uuid.Parse(c.Param("id"))
  if err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_ticket_id", err)
    return
  }

  var body struct {
    LessonID *uuid.UUID `json:"lesson_id"`
  }
  _ = c.ShouldBindJSON(&body)

  userID := requestdata.UserID(c.Request.Context())
  ticket, err := h.svc.MarkShown(c.Request.Context(), userID, ticketID, body.LessonID)
  if err != nil {
    RespondAPIError(c, err)
    return
  }
  RespondOK(c, ticket)
}

// POST /api/reviews/complete
func (h *StealthHandler) Complete(c *gin.Context) {
  var body struct {
    CanonicalCommand string `json:"canonical_command"`
    Success          bool   `json:"success"`
    ResponseTimeMS   int    `json:"response_time_ms"`
  }
  if err := c.ShouldBindJSON(&body); err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_body", err)
    return
  }

  userID := requestdata.UserID(c.Request.Context())
  done, err := h.svc.Complete(c.Request.Context(), userID, body.CanonicalCommand, body.Success, body.ResponseTimeMS)
  if err != nil {
    RespondAPIError(c, err)
    return
  }
  RespondOK(c, done)
}
