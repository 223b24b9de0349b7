package handlers

import (
  "strconv"

  "github.com/gin-gonic/gin"

  "github.com/yungbote/shellmastery-backend/internal/cache"
  "github.com/yungbote/shellmastery-backend/internal/logger"
  "github.com/yungbote/shellmastery-backend/internal/requestdata"
  "github.com/yungbote/shellmastery-backend/internal/services"
)

type DecayHandler struct {
  log *logger.Logger
  svc services.DecayService
}

func NewDecayHandler(log *logger.Logger, svc services.DecayService) *DecayHandler {
  return &DecayHandler{log: log.With("Handler", "DecayHandler"), svc: svc}
}

// GET /api/mastery/commands/:command/decay
func (h *DecayHandler) GetDecayCurve(c *gin.Context) {
  userID := requestdata.UserID(c.Request.Context())
  horizon, _ := strconv.Atoi(c.DefaultQuery("days", "30"))

  proj, err := h.svc.DecayCurve(c.Request.Context(), userID, c.Param("command"), horizon)
  if err != nil {
    RespondAPIError(c, err)
    return
  }
  RespondOK(c, proj)
}

// GET /api/mastery/at-risk
//
// Degrades to an empty list on backend failure: this feeds a dashboard
// widget and an outage there must not break the lesson flow.
func (h *DecayHandler) GetAtRisk(c *gin.Context) {
  userID := requestdata.UserID(c.Request.Context())
  entries, err := h.svc.CommandsAtRisk(c.Request.Context(), userID)
  if err != nil {
    h.log.Warn("Failed to compute at-risk commands", "error", err)
    entries = []cache.AtRiskEntry{}
  }
  RespondOK(c, gin.H{"at_risk": entries})
}

// POST /api/mastery/decay/apply
func (h *DecayHandler) ApplyDecay(c *gin.Context) {
  report, err := h.svc.ApplyDecayBatch(c.Request.Context())
  if err != nil {
    RespondAPIError(c, err)
    return
  }
  RespondOK(c, report)
}
