package handlers

import (
  "context"
  "encoding/json"
  "errors"
  "net/http"
  "net/http/httptest"
  "testing"

  "github.com/gin-gonic/gin"
  "github.com/google/uuid"

  "github.com/yungbote/shellmastery-backend/internal/apierr"
  "github.com/yungbote/shellmastery-backend/internal/logger"
  "github.com/yungbote/shellmastery-backend/internal/services"
)

type stubGateService struct {
  status *services.ProgressionStatus
  err    error
}

func (s *stubGateService) ProgressionStatus(ctx context.Context, userID uuid.UUID, lessonID uuid.UUID) (*services.ProgressionStatus, error) {
  return s.status, s.err
}

func (s *stubGateService) MarkGatePassed(ctx context.Context, userID uuid.UUID, lessonID uuid.UUID) (*services.ProgressionStatus, error) {
  return s.status, s.err
}

func gateGet(t *testing.T, svc services.GateService, lessonID string) *httptest.ResponseRecorder {
  t.Helper()
  gin.SetMode(gin.TestMode)

  log, err := logger.New("prod")
  if err != nil {
    t.Fatalf("logger: %v", err)
  }
  router := gin.New()
  router.GET("/api/lessons/:id/gate", NewGateHandler(log, svc).GetProgressionStatus)

  rec := httptest.NewRecorder()
  req := httptest.NewRequest(http.MethodGet, "/api/lessons/"+lessonID+"/gate", nil)
  router.ServeHTTP(rec, req)
  return rec
}

func TestGateStatusDegradesOnBackendFailure(t *testing.T) {
  lessonID := uuid.New()
  rec := gateGet(t, &stubGateService{err: errors.New("connection refused")}, lessonID.String())

  if rec.Code != http.StatusOK {
    t.Fatalf("status = %d, want 200", rec.Code)
  }
  var status services.ProgressionStatus
  if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
    t.Fatalf("decode: %v", err)
  }
  if !status.CanProgress {
    t.Fatal("a backend failure must not block progression")
  }
  if status.LessonID != lessonID {
    t.Fatalf("lesson id = %s, want %s", status.LessonID, lessonID)
  }
}

func TestGateStatusKeepsDeliberateVerdicts(t *testing.T) {
  rec := gateGet(t, &stubGateService{err: apierr.NotFound("lesson_not_found", "no such lesson")}, uuid.NewString())
  if rec.Code != http.StatusNotFound {
    t.Fatalf("status = %d, want 404", rec.Code)
  }

  rec = gateGet(t, &stubGateService{}, "not-a-uuid")
  if rec.Code != http.StatusBadRequest {
    t.Fatalf("status = %d, want 400", rec.Code)
  }
}
