package db

import (
  "fmt"
  "time"

  "gorm.io/driver/postgres"
  "gorm.io/gorm"

  "github.com/Duel-Learn-Devs/duel-learn/internal/logger"
  "github.com/Duel-Learn-Devs/duel-learn/internal/types"
  "github.com/Duel-Learn-Devs/duel-learn/internal/utils"
)

type PostgresService struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewPostgresService(log *logger.Logger) (*PostgresService, error) {
  serviceLog := log.With("service", "PostgresService")

  postgresHost := utils.GetEnv("POSTGRES_HOST", "localhost", log)
  postgresPort := utils.GetEnv("POSTGRES_PORT", "5432", log)
  postgresUser := utils.GetEnv("POSTGRES_USER", "postgres", log)
  postgresPassword := utils.GetEnv("POSTGRES_PASSWORD", "", log)
  postgresName := utils.GetEnv("POSTGRES_NAME", "duel_learn", log)
  connectTimeout := utils.GetEnvAsInt("POSTGRES_CONNECT_TIMEOUT", 10, log)
  maxOpenConns := utils.GetEnvAsInt("POSTGRES_MAX_OPEN_CONNS", 10, log)

  // connect_timeout bounds connection acquisition so a saturated pool fails
  // the calling operation instead of hanging.
  dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable&connect_timeout=%d",
    postgresUser, postgresPassword, postgresHost, postgresPort, postgresName, connectTimeout)

  serviceLog.Info("Connecting to Postgres...")
  gormDB, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
  if err != nil {
    serviceLog.Error("Failed to connect to Postgres", "error", err)
    return nil, fmt.Errorf("connect to postgres: %w", err)
  }

  sqlDB, err := gormDB.DB()
  if err != nil {
    return nil, fmt.Errorf("unwrap sql.DB: %w", err)
  }
  sqlDB.SetMaxOpenConns(maxOpenConns)
  sqlDB.SetMaxIdleConns(maxOpenConns / 2)
  sqlDB.SetConnMaxLifetime(30 * time.Minute)

  return &PostgresService{db: gormDB, log: serviceLog}, nil
}

func (s *PostgresService) AutoMigrateAll() error {
  s.log.Info("Auto migrating postgres tables...")
  err := s.db.AutoMigrate(
    &types.StudyMaterial{},
    &types.StudyItem{},
    &types.FriendRequest{},
  )
  if err != nil {
    s.log.Error("Auto migration failed for postgres tables", "error", err)
    return err
  }
  return nil
}

func (s *PostgresService) DB() *gorm.DB {
  return s.db
}
