package handlers

import (
  "net/http"
  "strconv"

  "github.com/gin-gonic/gin"

  "github.com/yungbote/shellmastery-backend/internal/fsrs"
  "github.com/yungbote/shellmastery-backend/internal/logger"
  "github.com/yungbote/shellmastery-backend/internal/requestdata"
  "github.com/yungbote/shellmastery-backend/internal/services"
)

type ReviewHandler struct {
  log *logger.Logger
  svc services.SpacedRepetitionService
}

func NewReviewHandler(log *logger.Logger, svc services.SpacedRepetitionService) *ReviewHandler {
  return &ReviewHandler{log: log.With("Handler", "ReviewHandler"), svc: svc}
}

// POST /api/reviews/schedule
func (h *ReviewHandler) ScheduleReview(c *gin.Context) {
  var body struct {
    Command string `json:"command"`
    Grade   string `json:"grade"`
  }
  if err := c.ShouldBindJSON(&body); err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_body", err)
    return
  }
  grade, err := fsrs.ParseGrade(body.Grade)
  if err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_grade", err)
    return
  }

  userID := requestdata.UserID(c.Request.Context())
  sched, err := h.svc.ScheduleReview(c.Request.Context(), userID, body.Command, grade)
  if err != nil {
    RespondAPIError(c, err)
    return
  }
  RespondOK(c, sched)
}

// GET /api/reviews/queue
//
// Degrades to an empty list on failure.
func (h *ReviewHandler) GetQueue(c *gin.Context) {
  limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

  userID := requestdata.UserID(c.Request.Context())
  queue, err := h.svc.ReviewQueue(c.Request.Context(), userID, limit)
  if err != nil {
    h.log.Warn("Failed to build review queue", "error", err)
    queue = []services.QueuedReview{}
  }
  RespondOK(c, gin.H{"queue": queue})
}

// POST /api/reviews/reset-stale
func (h *ReviewHandler) ResetStale(c *gin.Context) {
  userID := requestdata.UserID(c.Request.Context())
  reset, err := h.svc.ResetStale(c.Request.Context(), userID)
  if err != nil {
    RespondAPIError(c, err)
    return
  }
  RespondOK(c, gin.H{"reset": reset})
}
