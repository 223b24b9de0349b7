package main

import (
  "context"
  "fmt"
  "os"
  "time"
  "github.com/yungbote/shellmastery-backend/internal/cache"
  "github.com/yungbote/shellmastery-backend/internal/command"
  "github.com/yungbote/shellmastery-backend/internal/db"
  "github.com/yungbote/shellmastery-backend/internal/fsrs"
  "github.com/yungbote/shellmastery-backend/internal/handlers"
  "github.com/yungbote/shellmastery-backend/internal/jobs"
  "github.com/yungbote/shellmastery-backend/internal/logger"
  "github.com/yungbote/shellmastery-backend/internal/mastery"
  "github.com/yungbote/shellmastery-backend/internal/middleware"
  "github.com/yungbote/shellmastery-backend/internal/observability"
  "github.com/yungbote/shellmastery-backend/internal/repos"
  "github.com/yungbote/shellmastery-backend/internal/server"
  "github.com/yungbote/shellmastery-backend/internal/services"
  "github.com/yungbote/shellmastery-backend/internal/utils"
)

func main() {
  // Logger
  logMode := os.Getenv("LOG_MODE")
  if logMode == "" {
    logMode = "development"
  }
  log, err := logger.New(logMode)
  if err != nil {
    fmt.Printf("Failed to init logger: %v\n", err)
    os.Exit(1)
  }
  defer log.Sync()

  // Env
  log.Info("Loading environment variables from main...")
  serviceName := utils.GetEnv("SERVICE_NAME", "shellmastery", log)
  jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
  accessTokenTTL := utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 86400, log)
  decayIntervalHours := utils.GetEnvAsInt("DECAY_INTERVAL_HOURS", 24, log)
  masteryConfigPath := utils.GetEnv("MASTERY_CONFIG_PATH", "", log)
  port := utils.GetEnv("PORT", "8080", log)

  // Tracing
  shutdownOtel := observability.InitOTel(context.Background(), log, observability.OtelConfig{
    ServiceName: serviceName,
    Environment: utils.GetEnv("DEPLOY_ENV", "development", log),
    Version:     utils.GetEnv("SERVICE_VERSION", "dev", log),
  })

  // Database
  dbService, err := db.NewService(log)
  if err != nil {
    log.Error("Database init failed", "error", err)
    os.Exit(1)
  }
  if err = dbService.AutoMigrateAll(); err != nil {
    log.Warn("Auto migration failed", "error", err)
  }
  theDB := dbService.DB()

  // Engine policy
  masteryCfg, err := mastery.LoadConfig(masteryConfigPath)
  if err != nil {
    log.Warn("Failed to load mastery config, using defaults", "path", masteryConfigPath, "error", err)
    masteryCfg = mastery.DefaultConfig()
  }
  engine := mastery.NewEngine(masteryCfg)
  calculator := mastery.NewCalculator(masteryCfg)
  canonicalizer := command.NewCanonicalizer()
  scheduler := fsrs.NewScheduler(fsrs.DefaultParams())

  // Repos
  log.Info("Setting up Repos from main...")
  userRepo := repos.NewUserRepo(theDB, log)
  masteryRepo := repos.NewCommandMasteryRepo(theDB, log)
  stealthRepo := repos.NewStealthReviewRepo(theDB, log)
  srItemRepo := repos.NewSpacedRepetitionItemRepo(theDB, log)
  lessonRepo := repos.NewLessonRepo(theDB, log)
  passageRepo := repos.NewGatePassageRepo(theDB, log)
  eventRepo := repos.NewUserEventRepo(theDB, log)

  // Cache (optional, nil-safe when REDIS_ADDR is unset)
  atRiskCache, err := cache.NewAtRiskCache(log)
  if err != nil {
    log.Warn("Redis cache unavailable, serving at-risk queries from the database", "error", err)
  }

  // Services
  log.Info("Setting up Services from main...")
  tokenService := services.NewTokenService(theDB, log, userRepo, jwtSecretKey, time.Duration(accessTokenTTL)*time.Second)
  stealthService := services.NewStealthReviewService(theDB, log, engine, calculator, scheduler, masteryRepo, stealthRepo, srItemRepo, eventRepo)
  masteryService := services.NewMasteryTrackingService(theDB, log, canonicalizer, calculator, engine, masteryRepo, eventRepo, stealthService, atRiskCache)
  decayService := services.NewDecayService(theDB, log, canonicalizer, engine, masteryRepo, eventRepo, atRiskCache)
  drillService := services.NewDrillService(theDB, log, canonicalizer, engine, masteryRepo)
  gateService := services.NewGateService(theDB, log, engine, masteryRepo, lessonRepo, passageRepo, eventRepo, drillService)
  spacedService := services.NewSpacedRepetitionService(theDB, log, canonicalizer, engine, scheduler, masteryRepo, srItemRepo)

  // Jobs
  decayWorker := jobs.NewDecayWorker(log, decayService, time.Duration(decayIntervalHours)*time.Hour)
  decayWorker.Start(context.Background())

  // Handlers
  log.Info("Setting up Handlers from main...")
  authHandler := handlers.NewAuthHandler(tokenService)
  masteryHandler := handlers.NewMasteryHandler(masteryService)
  decayHandler := handlers.NewDecayHandler(log, decayService)
  stealthHandler := handlers.NewStealthHandler(log, stealthService)
  gateHandler := handlers.NewGateHandler(log, gateService)
  drillHandler := handlers.NewDrillHandler(drillService)
  reviewHandler := handlers.NewReviewHandler(log, spacedService)
  authMiddleware := middleware.NewAuthMiddleware(log, tokenService)

  // Router
  router := server.NewRouter(server.RouterConfig{
    ServiceName:    serviceName,
    AuthHandler:    authHandler,
    AuthMiddleware: authMiddleware,
    MasteryHandler: masteryHandler,
    DecayHandler:   decayHandler,
    StealthHandler: stealthHandler,
    GateHandler:    gateHandler,
    DrillHandler:   drillHandler,
    ReviewHandler:  reviewHandler,
  })

  log.Info("Starting server", "port", port)
  if err := router.Run(":" + port); err != nil {
    log.Error("Server exited", "error", err)
  }

  if shutdownOtel != nil {
    shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
    defer cancel()
    _ = shutdownOtel(shutdownCtx)
  }
  if atRiskCache != nil {
    _ = atRiskCache.Close()
  }
}
