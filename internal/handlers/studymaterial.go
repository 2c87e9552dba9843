package handlers

import (
  "net/url"

  "github.com/gin-gonic/gin"
  "github.com/google/uuid"

  "github.com/Duel-Learn-Devs/duel-learn/internal/apierr"
  "github.com/Duel-Learn-Devs/duel-learn/internal/logger"
  "github.com/Duel-Learn-Devs/duel-learn/internal/services"
)

type StudyMaterialHandler struct {
  log             *logger.Logger
  materialService services.StudyMaterialService
}

func NewStudyMaterialHandler(log *logger.Logger, msvc services.StudyMaterialService) *StudyMaterialHandler {
  return &StudyMaterialHandler{
    log:             log.With("handler", "StudyMaterialHandler"),
    materialService: msvc,
  }
}

type savePayload struct {
  Title       string               `json:"title" binding:"required"`
  Tags        []string             `json:"tags"`
  Summary     string               `json:"summary"`
  Visibility  string               `json:"visibility" binding:"omitempty,visibility"`
  CreatedBy   string               `json:"created_by" binding:"required"`
  CreatedByID string               `json:"created_by_id"`
  Items       []services.ItemDraft `json:"items"`
}

type replacePayload struct {
  Items []services.ItemDraft `json:"items" binding:"required,min=1"`
}

// POST /study-material/save
// Persist a new material with its items in one transaction.
func (h *StudyMaterialHandler) Save(c *gin.Context) {
  var payload savePayload
  if err := c.ShouldBindJSON(&payload); err != nil {
    RespondError(c, apierr.Validation(err))
    return
  }
  view, err := h.materialService.Save(c.Request.Context(), services.MaterialDraft{
    Title:       payload.Title,
    Tags:        payload.Tags,
    Summary:     payload.Summary,
    Visibility:  payload.Visibility,
    CreatedBy:   payload.CreatedBy,
    CreatedByID: payload.CreatedByID,
    Items:       payload.Items,
  })
  if err != nil {
    RespondError(c, err)
    return
  }
  RespondCreated(c, gin.H{
    "studyMaterialId": view.StudyMaterialID,
    "summary":         view.Summary,
  })
}

// PUT /study-material/update/:studyMaterialId
// Replace the material's item set; the header row stays put.
func (h *StudyMaterialHandler) Update(c *gin.Context) {
  materialID, err := uuid.Parse(c.Param("studyMaterialId"))
  if err != nil {
    RespondError(c, apierr.Validationf("invalid study material id"))
    return
  }
  var payload replacePayload
  if err := c.ShouldBindJSON(&payload); err != nil {
    RespondError(c, apierr.Validation(err))
    return
  }
  items, err := h.materialService.ReplaceItems(c.Request.Context(), materialID, payload.Items)
  if err != nil {
    RespondError(c, err)
    return
  }
  RespondOK(c, gin.H{
    "studyMaterialId": materialID.String(),
    "items":           items,
  })
}

// GET /study-material/get-by-study-material-id/:studyMaterialId
func (h *StudyMaterialHandler) GetByID(c *gin.Context) {
  materialID, err := uuid.Parse(c.Param("studyMaterialId"))
  if err != nil {
    RespondError(c, apierr.Validationf("invalid study material id"))
    return
  }
  view, err := h.materialService.GetByID(c.Request.Context(), materialID)
  if err != nil {
    RespondError(c, err)
    return
  }
  RespondOK(c, view)
}

// GET /study-material/get-by-user/:createdBy
func (h *StudyMaterialHandler) GetByUser(c *gin.Context) {
  views, err := h.materialService.ListByOwner(c.Request.Context(), c.Param("createdBy"))
  if err != nil {
    RespondError(c, err)
    return
  }
  RespondOK(c, views)
}

// GET /study-material/get-recommended-for-you/:username
func (h *StudyMaterialHandler) RecommendedForYou(c *gin.Context) {
  username := decodedParam(c, "username")
  views, err := h.materialService.RecommendationsFor(c.Request.Context(), username)
  if err != nil {
    RespondError(c, err)
    return
  }
  RespondOK(c, views)
}

// GET /study-material/discover/:username
func (h *StudyMaterialHandler) Discover(c *gin.Context) {
  username := decodedParam(c, "username")
  views, err := h.materialService.Discover(c.Request.Context(), username)
  if err != nil {
    RespondError(c, err)
    return
  }
  RespondOK(c, views)
}

// GET /study-material/get-top-picks
func (h *StudyMaterialHandler) TopPicks(c *gin.Context) {
  views, err := h.materialService.TopPicks(c.Request.Context())
  if err != nil {
    RespondError(c, err)
    return
  }
  RespondOK(c, views)
}

// GET /study-material/get-made-by-friends/:userId
func (h *StudyMaterialHandler) MadeByFriends(c *gin.Context) {
  views, err := h.materialService.ByFriends(c.Request.Context(), c.Param("userId"))
  if err != nil {
    RespondError(c, err)
    return
  }
  RespondOK(c, views)
}

// POST /study-material/increment-views/:studyMaterialId
func (h *StudyMaterialHandler) IncrementViews(c *gin.Context) {
  materialID, err := uuid.Parse(c.Param("studyMaterialId"))
  if err != nil {
    RespondError(c, apierr.Validationf("invalid study material id"))
    return
  }
  if err := h.materialService.IncrementViews(c.Request.Context(), materialID); err != nil {
    RespondError(c, err)
    return
  }
  RespondOK(c, gin.H{"success": true})
}

// PUT /study-material/archive/:studyMaterialId
func (h *StudyMaterialHandler) Archive(c *gin.Context) {
  materialID, err := uuid.Parse(c.Param("studyMaterialId"))
  if err != nil {
    RespondError(c, apierr.Validationf("invalid study material id"))
    return
  }
  if err := h.materialService.Archive(c.Request.Context(), materialID); err != nil {
    RespondError(c, err)
    return
  }
  RespondOK(c, gin.H{"success": true})
}

// Usernames arrive percent-encoded from the client router.
func decodedParam(c *gin.Context, name string) string {
  raw := c.Param(name)
  if decoded, err := url.PathUnescape(raw); err == nil {
    return decoded
  }
  return raw
}
