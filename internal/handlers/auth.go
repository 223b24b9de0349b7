package handlers

import (
  "net/http"

  "github.com/gin-gonic/gin"

  "github.com/yungbote/shellmastery-backend/internal/services"
)

type AuthHandler struct {
  tokens services.TokenService
}

func NewAuthHandler(tokens services.TokenService) *AuthHandler {
  return &AuthHandler{tokens: tokens}
}

// POST /api/auth/token
func (h *AuthHandler) IssueToken(c *gin.Context) {
  var body struct {
    Email       string `json:"email"`
    DisplayName string `json:"display_name"`
  }
  if err := c.ShouldBindJSON(&body); err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_body", err)
    return
  }

  issued, err := h.tokens.IssueForEmail(c.Request.Context(), body.Email, body.DisplayName)
  if err != nil {
    RespondAPIError(c, err)
    return
  }
  RespondOK(c, issued)
}
