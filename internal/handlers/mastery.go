package handlers

import (
  "net/http"

  "github.com/gin-gonic/gin"

  "github.com/yungbote/shellmastery-backend/internal/requestdata"
  "github.com/yungbote/shellmastery-backend/internal/services"
)

type MasteryHandler struct {
  svc services.MasteryTrackingService
}

func NewMasteryHandler(svc services.MasteryTrackingService) *MasteryHandler {
  return &MasteryHandler{svc: svc}
}

// POST /api/mastery/attempts
func (h *MasteryHandler) RecordAttempt(c *gin.Context) {
  var body services.AttemptInput
  if err := c.ShouldBindJSON(&body); err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_body", err)
    return
  }

  userID := requestdata.UserID(c.Request.Context())
  res, err := h.svc.RecordAttempt(c.Request.Context(), userID, body)
  if err != nil {
    RespondAPIError(c, err)
    return
  }
  RespondOK(c, res)
}

// GET /api/mastery/commands/:command
func (h *MasteryHandler) GetCommandStatus(c *gin.Context) {
  userID := requestdata.UserID(c.Request.Context())
  status, err := h.svc.CommandStatus(c.Request.Context(), userID, c.Param("command"))
  if err != nil {
    RespondAPIError(c, err)
    return
  }
  RespondOK(c, status)
}

// GET /api/mastery/commands
func (h *MasteryHandler) ListCommandStatuses(c *gin.Context) {
  userID := requestdata.UserID(c.Request.Context())
  statuses, err := h.svc.ListStatuses(c.Request.Context(), userID)
  if err != nil {
    RespondAPIError(c, err)
    return
  }
  RespondOK(c, gin.H{"commands": statuses})
}

// GET /api/mastery/stats
func (h *MasteryHandler) GetStats(c *gin.Context) {
  userID := requestdata.UserID(c.Request.Context())
  stats, err := h.svc.Stats(c.Request.Context(), userID)
  if err != nil {
    RespondAPIError(c, err)
    return
  }
  RespondOK(c, stats)
}
