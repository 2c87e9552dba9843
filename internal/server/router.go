package server

import (
  "github.com/gin-contrib/cors"
  "github.com/gin-gonic/gin"

  "github.com/Duel-Learn-Devs/duel-learn/internal/handlers"
)

type RouterConfig struct {
  AllowOrigins         []string
  StudyMaterialHandler *handlers.StudyMaterialHandler
  AIHandler            *handlers.AIHandler
  RelayHandler         *handlers.RelayHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
  handlers.RegisterValidations()

  router := gin.Default()

  // Cors
  router.Use(cors.New(cors.Config{
    AllowOrigins:     cfg.AllowOrigins,
    AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
    AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
    AllowCredentials: true,
  }))

  router.GET("/healthcheck", handlers.HealthCheck)
  router.GET("/ws", cfg.RelayHandler.Serve)

  material := router.Group("/study-material")
  {
    material.POST("/save", cfg.StudyMaterialHandler.Save)
    material.PUT("/update/:studyMaterialId", cfg.StudyMaterialHandler.Update)
    material.GET("/get-by-study-material-id/:studyMaterialId", cfg.StudyMaterialHandler.GetByID)
    material.GET("/get-by-user/:createdBy", cfg.StudyMaterialHandler.GetByUser)
    material.GET("/get-recommended-for-you/:username", cfg.StudyMaterialHandler.RecommendedForYou)
    material.GET("/get-top-picks", cfg.StudyMaterialHandler.TopPicks)
    material.GET("/get-made-by-friends/:userId", cfg.StudyMaterialHandler.MadeByFriends)
    material.GET("/discover/:username", cfg.StudyMaterialHandler.Discover)
    material.PUT("/archive/:studyMaterialId", cfg.StudyMaterialHandler.Archive)
    material.POST("/increment-views/:studyMaterialId", cfg.StudyMaterialHandler.IncrementViews)
  }

  ai := router.Group("/ai")
  {
    ai.POST("/generate-questions", cfg.AIHandler.GenerateQuestions)
  }

  return router
}
