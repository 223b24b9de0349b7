package handlers

import (
  "net/http"

  "github.com/gin-gonic/gin"

  "github.com/yungbote/shellmastery-backend/internal/requestdata"
  "github.com/yungbote/shellmastery-backend/internal/services"
)

type DrillHandler struct {
  svc services.DrillService
}

func NewDrillHandler(svc services.DrillService) *DrillHandler {
  return &DrillHandler{svc: svc}
}

// POST /api/drills
//
// kind selects the generator: quick (default), targeted (+level),
// focused (+command), remediation (+commands).
func (h *DrillHandler) Generate(c *gin.Context) {
  var body struct {
    Kind     string   `json:"kind"`
    Level    string   `json:"level"`
    Command  string   `json:"command"`
    Commands []string `json:"commands"`
  }
  if err := c.ShouldBindJSON(&body); err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_body", err)
    return
  }

  ctx := c.Request.Context()
  userID := requestdata.UserID(ctx)

  var (
    session *services.DrillSession
    err     error
  )
  switch body.Kind {
  case "targeted":
    session, err = h.svc.TargetedSession(ctx, userID, body.Level)
  case "focused":
    session, err = h.svc.FocusedSession(ctx, userID, body.Command)
  case "remediation":
    session, err = h.svc.RemediationSession(ctx, userID, body.Commands)
  default:
    session, err = h.svc.QuickSession(ctx, userID)
  }
  if err != nil {
    RespondAPIError(c, err)
    return
  }
  RespondOK(c, session)
}
