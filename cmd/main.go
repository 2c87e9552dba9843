package main

import (
  "fmt"
  "os"
  "strings"

  "github.com/Duel-Learn-Devs/duel-learn/internal/db"
  "github.com/Duel-Learn-Devs/duel-learn/internal/handlers"
  "github.com/Duel-Learn-Devs/duel-learn/internal/logger"
  "github.com/Duel-Learn-Devs/duel-learn/internal/relay"
  "github.com/Duel-Learn-Devs/duel-learn/internal/repos"
  "github.com/Duel-Learn-Devs/duel-learn/internal/server"
  "github.com/Duel-Learn-Devs/duel-learn/internal/services"
  "github.com/Duel-Learn-Devs/duel-learn/internal/utils"
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
  port := utils.GetEnv("PORT", "5000", log)
  corsOrigins := utils.GetEnv("CORS_ALLOW_ORIGINS", "http://localhost:3000,http://localhost:5173", log)

  // Postgres
  postgresService, err := db.NewPostgresService(log)
  if err != nil {
    log.Fatal("Postgres init failed", "error", err)
  }
  if err = postgresService.AutoMigrateAll(); err != nil {
    log.Fatal("Postgres auto migration failed", "error", err)
  }
  thePG := postgresService.DB()

  // Repos
  log.Info("Setting up Repos from main...")
  materialRepo := repos.NewStudyMaterialRepo(thePG, log)
  itemRepo := repos.NewStudyItemRepo(thePG, log)
  friendRepo := repos.NewFriendRequestRepo(thePG, log)

  // AI oracle (optional: without a key, saves skip summaries and the
  // generate-questions endpoint answers 502)
  var oracle services.OracleClient
  if oracleClient, err := services.NewOracleClient(log); err != nil {
    log.Warn("Oracle client unavailable", "error", err)
  } else {
    oracle = oracleClient
  }
  questionService := services.NewQuestionService(log, oracle)

  var summaries services.SummaryGenerator
  if oracle != nil {
    summaries = questionService
  }

  // Services
  log.Info("Setting up Services from main...")
  materialService := services.NewStudyMaterialService(thePG, log, materialRepo, itemRepo, friendRepo, summaries)

  // Relay
  log.Info("Setting up presence relay now...")
  registry := relay.NewRegistry(log)
  materialRelay := relay.NewRelay(log, registry, materialService)

  // Handlers
  log.Info("Setting up Handlers from main...")
  materialHandler := handlers.NewStudyMaterialHandler(log, materialService)
  aiHandler := handlers.NewAIHandler(log, questionService)
  relayHandler := handlers.NewRelayHandler(log, materialRelay)

  // Router
  router := server.NewRouter(server.RouterConfig{
    AllowOrigins:         strings.Split(corsOrigins, ","),
    StudyMaterialHandler: materialHandler,
    AIHandler:            aiHandler,
    RelayHandler:         relayHandler,
  })

  log.Info("Starting server", "port", port)
  if err := router.Run(":" + port); err != nil {
    log.Fatal("Server exited", "error", err)
  }
}
