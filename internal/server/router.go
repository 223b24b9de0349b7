package server

import (
  "github.com/gin-gonic/gin"
  "github.com/gin-contrib/cors"
  "go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
  "github.com/yungbote/shellmastery-backend/internal/handlers"
  "github.com/yungbote/shellmastery-backend/internal/middleware"
)

type RouterConfig struct {
  ServiceName     string
  AuthHandler     *handlers.AuthHandler
  AuthMiddleware  *middleware.AuthMiddleware
  MasteryHandler  *handlers.MasteryHandler
  DecayHandler    *handlers.DecayHandler
  StealthHandler  *handlers.StealthHandler
  GateHandler     *handlers.GateHandler
  DrillHandler    *handlers.DrillHandler
  ReviewHandler   *handlers.ReviewHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
  router := gin.Default()
  router.Use(otelgin.Middleware(cfg.ServiceName))

  // Cors
  router.Use(cors.New(cors.Config{
    AllowOrigins: []string{
      "http://localhost:80",
      "http://localhost:3000",
      "http://localhost:5174",
    },
    AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
    AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
    AllowCredentials: true,
  }))

// ===============
// || Public    ||
// ===============
  router.GET("/healthcheck", handlers.HealthCheck)
  router.POST("/api/auth/token", cfg.AuthHandler.IssueToken)

// ===============
// || Protected ||
// ===============
  api := router.Group("/api")
  api.Use(cfg.AuthMiddleware.RequireAuth())
  // Mastery
  api.POST("/mastery/attempts", cfg.MasteryHandler.RecordAttempt)
  api.GET("/mastery/commands", cfg.MasteryHandler.ListCommandStatuses)
  api.GET("/mastery/commands/:command", cfg.MasteryHandler.GetCommandStatus)
  api.GET("/mastery/commands/:command/decay", cfg.DecayHandler.GetDecayCurve)
  api.GET("/mastery/stats", cfg.MasteryHandler.GetStats)
  api.GET("/mastery/at-risk", cfg.DecayHandler.GetAtRisk)
  api.POST("/mastery/decay/apply", cfg.DecayHandler.ApplyDecay)
  // Stealth reviews
  api.POST("/reviews/stealth", cfg.StealthHandler.Queue)
  api.GET("/reviews/stealth", cfg.StealthHandler.ListQueued)
  api.POST("/reviews/stealth/:id/shown", cfg.StealthHandler.MarkShown)
  api.POST("/reviews/complete", cfg.StealthHandler.Complete)
  // Spaced repetition
  api.POST("/reviews/schedule", cfg.ReviewHandler.ScheduleReview)
  api.GET("/reviews/queue", cfg.ReviewHandler.GetQueue)
  api.POST("/reviews/reset-stale", cfg.ReviewHandler.ResetStale)
  // Lesson gate + woven reviews
  api.GET("/lessons/:id/reviews", cfg.StealthHandler.PendingForLesson)
  api.GET("/lessons/:id/gate", cfg.GateHandler.GetProgressionStatus)
  api.POST("/lessons/:id/gate/pass", cfg.GateHandler.MarkGatePassed)
  // Drills
  api.POST("/drills", cfg.DrillHandler.Generate)

  return router
}
