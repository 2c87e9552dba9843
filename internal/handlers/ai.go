package handlers

import (
  "github.com/gin-gonic/gin"

  "github.com/Duel-Learn-Devs/duel-learn/internal/apierr"
  "github.com/Duel-Learn-Devs/duel-learn/internal/logger"
  "github.com/Duel-Learn-Devs/duel-learn/internal/services"
)

type AIHandler struct {
  log             *logger.Logger
  questionService services.QuestionService
}

func NewAIHandler(log *logger.Logger, qsvc services.QuestionService) *AIHandler {
  return &AIHandler{
    log:             log.With("handler", "AIHandler"),
    questionService: qsvc,
  }
}

// POST /ai/generate-questions
func (h *AIHandler) GenerateQuestions(c *gin.Context) {
  var req services.GenerateQuestionsRequest
  if err := c.ShouldBindJSON(&req); err != nil {
    RespondError(c, apierr.Validation(err))
    return
  }
  questions, err := h.questionService.GenerateQuestions(c.Request.Context(), req)
  if err != nil {
    RespondError(c, err)
    return
  }
  RespondOK(c, questions)
}
