package db

import (
  "fmt"
  "gorm.io/driver/postgres"
  "gorm.io/driver/sqlite"
  "gorm.io/gorm"
  "github.com/yungbote/shellmastery-backend/internal/types"
  "github.com/yungbote/shellmastery-backend/internal/utils"
  "github.com/yungbote/shellmastery-backend/internal/logger"
)

type Service struct {
  db *gorm.DB
  log *logger.Logger
}

// NewService connects to the configured database. DB_DRIVER=sqlite selects an
// embedded sqlite database (local development and tests); anything else
// connects to Postgres.
func NewService(log *logger.Logger) (*Service, error) {
  serviceLog := log.With("service", "DBService")

  driver := utils.GetEnv("DB_DRIVER", "postgres", log)
  if driver == "sqlite" {
    path := utils.GetEnv("SQLITE_PATH", "file::memory:?cache=shared", log)
    log.Info("Connecting to sqlite...", "path", path)
    gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{TranslateError: true})
    if err != nil {
      log.Error("Failed to connect to sqlite", "error", err)
      return nil, fmt.Errorf("Failed to connect to sqlite: %w", err)
    }
    return &Service{db: gdb, log: serviceLog}, nil
  }

  log.Info("Loading environment variables...")
  postgresHost := utils.GetEnv("POSTGRES_HOST", "localhost", log)
  postgresPort := utils.GetEnv("POSTGRES_PORT", "5432", log)
  postgresUser := utils.GetEnv("POSTGRES_USER", "postgres", log)
  postgresPassword := utils.GetEnv("POSTGRES_PASSWORD", "", log)
  postgresName := utils.GetEnv("POSTGRES_NAME", "shellmastery", log)
  log.Debug("Environment variables loaded")

  dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", postgresUser, postgresPassword, postgresHost, postgresPort, postgresName)

  log.Info("Connecting to Postgres...")
  gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
    DisableForeignKeyConstraintWhenMigrating: true,
    TranslateError: true,
  })
  if err != nil {
    log.Error("Failed to connect to Postgres", "error", err)
    return nil, fmt.Errorf("Failed to connect to Postgres: %w", err)
  }

  if err := gdb.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
    log.Error("Failed to enable uuid-ossp extension", "error", err)
    return nil, fmt.Errorf("Failed to enable uuid-ossp extension: %w", err)
  }
  log.Info("uuid-ossp extension enabled")

  return &Service{db: gdb, log: serviceLog}, nil
}

func (s *Service) AutoMigrateAll() error {
  s.log.Info("Auto migrating tables...")
  err := s.db.AutoMigrate(
    &types.User{},
    &types.CommandMastery{},
    &types.StealthReview{},
    &types.SpacedRepetitionItem{},
    &types.Lesson{},
    &types.GatePassage{},
    &types.UserEvent{},
  )
  if err != nil {
    s.log.Error("Auto migration failed", "error", err)
    return err
  }

  // At most one active stealth ticket per (user, command). Enforced in the
  // database so concurrent enqueues cannot race past the application check.
  s.log.Info("Creating partial unique index for active stealth reviews...")
  if err := s.db.Exec(`
    CREATE UNIQUE INDEX IF NOT EXISTS idx_stealth_active
    ON stealth_review (user_id, canonical_command)
    WHERE status IN ('queued', 'scheduled', 'in_progress')
      AND deleted_at IS NULL
  `).Error; err != nil {
    return fmt.Errorf("Failed to create idx_stealth_active: %w", err)
  }
  return nil
}

func (s *Service) DB() *gorm.DB {
  return s.db
}
