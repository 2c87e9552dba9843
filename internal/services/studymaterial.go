package services

import (
  "context"
  "encoding/base64"
  "encoding/json"
  "fmt"
  "regexp"
  "sort"
  "strings"
  "time"

  "github.com/google/uuid"
  "gorm.io/datatypes"
  "gorm.io/gorm"

  "github.com/Duel-Learn-Devs/duel-learn/internal/apierr"
  "github.com/Duel-Learn-Devs/duel-learn/internal/logger"
  "github.com/Duel-Learn-Devs/duel-learn/internal/repos"
  "github.com/Duel-Learn-Devs/duel-learn/internal/types"
)

const discoverLimit = 10

type StudyMaterialService interface {
  Save(ctx context.Context, draft MaterialDraft) (*MaterialView, error)
  ReplaceItems(ctx context.Context, materialID uuid.UUID, items []ItemDraft) ([]ItemView, error)
  GetByID(ctx context.Context, materialID uuid.UUID) (*MaterialView, error)
  ListByOwner(ctx context.Context, createdBy string) ([]*MaterialView, error)
  RecommendationsFor(ctx context.Context, username string) ([]*MaterialView, error)
  Discover(ctx context.Context, username string) ([]*MaterialView, error)
  TopPicks(ctx context.Context) ([]*MaterialView, error)
  ByFriends(ctx context.Context, userID string) ([]*MaterialView, error)
  IncrementViews(ctx context.Context, materialID uuid.UUID) error
  Archive(ctx context.Context, materialID uuid.UUID) error
}

type ItemDraft struct {
  Term               string            `json:"term"`
  Definition         string            `json:"definition"`
  Image              string            `json:"image,omitempty"`
  Type               string            `json:"type,omitempty"`
  Question           string            `json:"question,omitempty"`
  Answer             string            `json:"answer,omitempty"`
  Options            map[string]string `json:"options,omitempty"`
  OriginalTerm       string            `json:"original_term,omitempty"`
  OriginalDefinition string            `json:"original_definition,omitempty"`
}

type MaterialDraft struct {
  ID          uuid.UUID   `json:"-"`
  Title       string      `json:"title"`
  Tags        []string    `json:"tags"`
  Summary     string      `json:"summary,omitempty"`
  Visibility  string      `json:"visibility,omitempty"`
  CreatedBy   string      `json:"created_by"`
  CreatedByID string      `json:"created_by_id"`
  Items       []ItemDraft `json:"items"`
}

type OriginalPair struct {
  Term       string `json:"term"`
  Definition string `json:"definition"`
}

type ItemView struct {
  ItemNumber int               `json:"item_number"`
  Term       string            `json:"term"`
  Definition string            `json:"definition"`
  Image      *string           `json:"image,omitempty"`
  Type       string            `json:"type,omitempty"`
  Question   string            `json:"question,omitempty"`
  Answer     string            `json:"answer,omitempty"`
  Options    map[string]string `json:"options,omitempty"`
  Original   *OriginalPair     `json:"original,omitempty"`
}

type MaterialView struct {
  StudyMaterialID string     `json:"study_material_id"`
  Title           string     `json:"title"`
  Tags            []string   `json:"tags"`
  Summary         string     `json:"summary"`
  Visibility      string     `json:"visibility"`
  CreatedBy       string     `json:"created_by"`
  CreatedByID     string     `json:"created_by_id"`
  TotalItems      int        `json:"total_items"`
  TotalViews      int        `json:"total_views"`
  CreatedAt       time.Time  `json:"created_at"`
  UpdatedAt       time.Time  `json:"updated_at"`
  UniquenessScore int        `json:"uniqueness_score,omitempty"`
  Items           []ItemView `json:"items"`
}

// SummaryGenerator is satisfied by QuestionService; Save uses it when the
// caller did not supply a summary.
type SummaryGenerator interface {
  GenerateSummary(ctx context.Context, items []ItemDraft) (string, error)
}

type studyMaterialService struct {
  db           *gorm.DB
  log          *logger.Logger
  materialRepo repos.StudyMaterialRepo
  itemRepo     repos.StudyItemRepo
  friendRepo   repos.FriendRequestRepo
  summaries    SummaryGenerator
}

func NewStudyMaterialService(
  db *gorm.DB,
  baseLog *logger.Logger,
  materialRepo repos.StudyMaterialRepo,
  itemRepo repos.StudyItemRepo,
  friendRepo repos.FriendRequestRepo,
  summaries SummaryGenerator,
) StudyMaterialService {
  serviceLog := baseLog.With("service", "StudyMaterialService")
  return &studyMaterialService{
    db:           db,
    log:          serviceLog,
    materialRepo: materialRepo,
    itemRepo:     itemRepo,
    friendRepo:   friendRepo,
    summaries:    summaries,
  }
}

// =====================================
// Writes
// =====================================

func (s *studyMaterialService) Save(ctx context.Context, draft MaterialDraft) (*MaterialView, error) {
  if strings.TrimSpace(draft.Title) == "" {
    return nil, apierr.Validationf("title is required")
  }
  if strings.TrimSpace(draft.CreatedBy) == "" {
    return nil, apierr.Validationf("created_by is required")
  }
  if draft.CreatedByID == "" {
    draft.CreatedByID = draft.CreatedBy
  }

  materialID := draft.ID
  if materialID == uuid.Nil {
    materialID = uuid.New()
  }

  summary := draft.Summary
  if summary == "" && s.summaries != nil && len(draft.Items) > 0 {
    generated, err := s.summaries.GenerateSummary(ctx, draft.Items)
    if err != nil {
      // The summary is decoration; a flaky oracle must never block a save.
      s.log.Warn("Summary generation failed, saving without one", "error", err)
    } else {
      summary = generated
    }
  }

  visibility := draft.Visibility
  if visibility == "" {
    visibility = types.VisibilityPublic
  }
  switch visibility {
  case types.VisibilityDraft, types.VisibilityPublic, types.VisibilityArchived:
  default:
    return nil, apierr.Validationf("unknown visibility %q", visibility)
  }

  tagsJSON, err := json.Marshal(normalizeTags(draft.Tags))
  if err != nil {
    return nil, apierr.Validation(fmt.Errorf("encode tags: %w", err))
  }

  now := time.Now()
  material := &types.StudyMaterial{
    ID:          materialID,
    Title:       draft.Title,
    Tags:        datatypes.JSON(tagsJSON),
    Summary:     summary,
    Visibility:  visibility,
    CreatedBy:   draft.CreatedBy,
    CreatedByID: draft.CreatedByID,
    TotalViews:  0,
    CreatedAt:   now,
    UpdatedAt:   now,
  }

  transaction := s.db.WithContext(ctx).Begin()
  if transaction.Error != nil {
    return nil, apierr.Persistence(fmt.Errorf("begin transaction: %w", transaction.Error))
  }
  var txErr error
  defer func() {
    if txErr != nil {
      transaction.Rollback()
    }
  }()

  if txErr = s.materialRepo.Create(ctx, transaction, material); txErr != nil {
    return nil, apierr.Persistence(fmt.Errorf("insert study material: %w", txErr))
  }

  var rows []*types.StudyItem
  rows, txErr = buildItemRows(materialID, draft.Items)
  if txErr != nil {
    return nil, txErr
  }
  if _, txErr = s.itemRepo.CreateBatch(ctx, transaction, rows); txErr != nil {
    return nil, apierr.Persistence(fmt.Errorf("insert study items: %w", txErr))
  }

  if txErr = transaction.Commit().Error; txErr != nil {
    return nil, apierr.Persistence(fmt.Errorf("commit save: %w", txErr))
  }

  s.log.Info("Study material saved", "study_material_id", materialID, "items", len(rows))
  return s.buildView(material, rows, false), nil
}

func (s *studyMaterialService) ReplaceItems(ctx context.Context, materialID uuid.UUID, items []ItemDraft) ([]ItemView, error) {
  transaction := s.db.WithContext(ctx).Begin()
  if transaction.Error != nil {
    return nil, apierr.Persistence(fmt.Errorf("begin transaction: %w", transaction.Error))
  }
  var txErr error
  defer func() {
    if txErr != nil {
      transaction.Rollback()
    }
  }()

  var existing int64
  existing, txErr = s.itemRepo.CountByMaterial(ctx, transaction, materialID)
  if txErr != nil {
    return nil, apierr.Persistence(fmt.Errorf("count existing items: %w", txErr))
  }
  if existing == 0 {
    txErr = fmt.Errorf("study material content not found")
    return nil, apierr.NotFound(txErr)
  }

  if txErr = s.itemRepo.DeleteByMaterial(ctx, transaction, materialID); txErr != nil {
    return nil, apierr.Persistence(fmt.Errorf("delete existing items: %w", txErr))
  }

  var rows []*types.StudyItem
  rows, txErr = buildItemRows(materialID, items)
  if txErr != nil {
    return nil, txErr
  }
  if _, txErr = s.itemRepo.CreateBatch(ctx, transaction, rows); txErr != nil {
    return nil, apierr.Persistence(fmt.Errorf("insert replacement items: %w", txErr))
  }

  if txErr = s.materialRepo.Touch(ctx, transaction, materialID); txErr != nil {
    return nil, apierr.Persistence(fmt.Errorf("touch material: %w", txErr))
  }

  if txErr = transaction.Commit().Error; txErr != nil {
    return nil, apierr.Persistence(fmt.Errorf("commit replace: %w", txErr))
  }

  s.log.Info("Study material items replaced", "study_material_id", materialID, "items", len(rows))
  return s.itemViews(rows, true), nil
}

func (s *studyMaterialService) IncrementViews(ctx context.Context, materialID uuid.UUID) error {
  if err := s.materialRepo.IncrementViews(ctx, nil, materialID); err != nil {
    if err == repos.ErrRowNotFound {
      return apierr.NotFoundf("study material %s not found", materialID)
    }
    return apierr.Persistence(fmt.Errorf("increment views: %w", err))
  }
  return nil
}

func (s *studyMaterialService) Archive(ctx context.Context, materialID uuid.UUID) error {
  if err := s.materialRepo.SetVisibility(ctx, nil, materialID, types.VisibilityArchived); err != nil {
    if err == repos.ErrRowNotFound {
      return apierr.NotFoundf("study material %s not found", materialID)
    }
    return apierr.Persistence(fmt.Errorf("archive material: %w", err))
  }
  s.log.Info("Study material archived", "study_material_id", materialID)
  return nil
}

// =====================================
// Reads
// =====================================

func (s *studyMaterialService) GetByID(ctx context.Context, materialID uuid.UUID) (*MaterialView, error) {
  material, err := s.materialRepo.GetByID(ctx, nil, materialID)
  if err != nil {
    if err == repos.ErrRowNotFound {
      return nil, apierr.NotFoundf("study material %s not found", materialID)
    }
    return nil, apierr.Persistence(fmt.Errorf("fetch material: %w", err))
  }
  items, err := s.itemRepo.ListByMaterial(ctx, nil, materialID)
  if err != nil {
    return nil, apierr.Persistence(fmt.Errorf("fetch items: %w", err))
  }
  return s.buildView(material, items, true), nil
}

func (s *studyMaterialService) ListByOwner(ctx context.Context, createdBy string) ([]*MaterialView, error) {
  materials, err := s.materialRepo.ListByCreatorName(ctx, nil, createdBy)
  if err != nil {
    return nil, apierr.Persistence(fmt.Errorf("fetch materials by owner: %w", err))
  }
  return s.attachItems(ctx, materials, true)
}

func (s *studyMaterialService) RecommendationsFor(ctx context.Context, username string) ([]*MaterialView, error) {
  vocabulary, err := s.tagVocabulary(ctx, username)
  if err != nil {
    return nil, err
  }
  candidates, err := s.materialRepo.ListNotBy(ctx, nil, username)
  if err != nil {
    return nil, apierr.Persistence(fmt.Errorf("fetch candidate materials: %w", err))
  }
  var matched []*types.StudyMaterial
  for _, candidate := range candidates {
    if tagOverlap(s.decodeTags(candidate), vocabulary) > 0 {
      matched = append(matched, candidate)
    }
  }
  return s.attachItems(ctx, matched, false)
}

func (s *studyMaterialService) Discover(ctx context.Context, username string) ([]*MaterialView, error) {
  vocabulary, err := s.tagVocabulary(ctx, username)
  if err != nil {
    return nil, err
  }
  candidates, err := s.materialRepo.ListVisibleNotBy(ctx, nil, username)
  if err != nil {
    return nil, apierr.Persistence(fmt.Errorf("fetch public materials: %w", err))
  }
  views, err := s.attachItems(ctx, candidates, false)
  if err != nil {
    return nil, err
  }
  for i := range views {
    views[i].UniquenessScore = uniquenessScore(s.decodeTags(candidates[i]), vocabulary)
  }
  // Stable sort keeps database return order as the tie-break.
  sort.SliceStable(views, func(i, j int) bool {
    return views[i].UniquenessScore > views[j].UniquenessScore
  })
  if len(views) > discoverLimit {
    views = views[:discoverLimit]
  }
  return views, nil
}

func (s *studyMaterialService) TopPicks(ctx context.Context) ([]*MaterialView, error) {
  materials, err := s.materialRepo.ListByViews(ctx, nil)
  if err != nil {
    return nil, apierr.Persistence(fmt.Errorf("fetch top picks: %w", err))
  }
  return s.attachItems(ctx, materials, false)
}

func (s *studyMaterialService) ByFriends(ctx context.Context, userID string) ([]*MaterialView, error) {
  friendIDs, err := s.friendRepo.AcceptedFriendIDs(ctx, nil, userID)
  if err != nil {
    return nil, apierr.Persistence(fmt.Errorf("resolve friends: %w", err))
  }
  if len(friendIDs) == 0 {
    return []*MaterialView{}, nil
  }
  materials, err := s.materialRepo.ListByCreatorIDs(ctx, nil, friendIDs)
  if err != nil {
    return nil, apierr.Persistence(fmt.Errorf("fetch friend materials: %w", err))
  }
  return s.attachItems(ctx, materials, false)
}

// =====================================
// Helpers
// =====================================

var imageDataPrefix = regexp.MustCompile(`^data:image/\w+;base64,`)

func decodeImage(encoded string) ([]byte, error) {
  if encoded == "" {
    return nil, nil
  }
  trimmed := imageDataPrefix.ReplaceAllString(encoded, "")
  raw, err := base64.StdEncoding.DecodeString(trimmed)
  if err != nil {
    return nil, fmt.Errorf("decode image: %w", err)
  }
  return raw, nil
}

func encodeImage(raw []byte) *string {
  if len(raw) == 0 {
    return nil
  }
  encoded := base64.StdEncoding.EncodeToString(raw)
  return &encoded
}

func buildItemRows(materialID uuid.UUID, drafts []ItemDraft) ([]*types.StudyItem, error) {
  rows := make([]*types.StudyItem, len(drafts))
  for i, draft := range drafts {
    image, err := decodeImage(draft.Image)
    if err != nil {
      return nil, apierr.Validation(fmt.Errorf("item %d: %w", i+1, err))
    }

    itemType := draft.Type
    if itemType == "" {
      itemType = types.QuestionTypeMultipleChoice
    }
    question := draft.Question
    if question == "" {
      question = draft.Definition
    }
    answer := draft.Answer
    if answer == "" {
      answer = draft.Term
    }
    originalTerm := draft.OriginalTerm
    if originalTerm == "" {
      originalTerm = draft.Term
    }
    originalDefinition := draft.OriginalDefinition
    if originalDefinition == "" {
      originalDefinition = draft.Definition
    }

    var options datatypes.JSON
    if len(draft.Options) > 0 {
      encoded, err := json.Marshal(draft.Options)
      if err != nil {
        return nil, apierr.Validation(fmt.Errorf("item %d: encode options: %w", i+1, err))
      }
      options = datatypes.JSON(encoded)
    }

    rows[i] = &types.StudyItem{
      ID:                 uuid.New(),
      StudyMaterialID:    materialID,
      ItemNumber:         i + 1,
      Term:               draft.Term,
      Definition:         draft.Definition,
      OriginalTerm:       originalTerm,
      OriginalDefinition: originalDefinition,
      Image:              image,
      Type:               itemType,
      Question:           question,
      Answer:             answer,
      Options:            options,
    }
  }
  return rows, nil
}

func (s *studyMaterialService) itemViews(items []*types.StudyItem, full bool) []ItemView {
  views := make([]ItemView, len(items))
  for i, item := range items {
    view := ItemView{
      ItemNumber: item.ItemNumber,
      Term:       item.Term,
      Definition: item.Definition,
      Image:      encodeImage(item.Image),
    }
    if full {
      view.Type = item.Type
      view.Question = item.Question
      view.Answer = item.Answer
      view.Original = &OriginalPair{
        Term:       item.OriginalTerm,
        Definition: item.OriginalDefinition,
      }
      if len(item.Options) > 0 {
        var options map[string]string
        if err := json.Unmarshal(item.Options, &options); err != nil {
          // One corrupt options blob degrades that item, never the read.
          s.log.Warn("Failed to parse item options", "item_number", item.ItemNumber, "error", err)
        } else {
          view.Options = options
        }
      }
    }
    views[i] = view
  }
  return views
}

func (s *studyMaterialService) buildView(material *types.StudyMaterial, items []*types.StudyItem, full bool) *MaterialView {
  return &MaterialView{
    StudyMaterialID: material.ID.String(),
    Title:           material.Title,
    Tags:            s.decodeTags(material),
    Summary:         material.Summary,
    Visibility:      material.Visibility,
    CreatedBy:       material.CreatedBy,
    CreatedByID:     material.CreatedByID,
    TotalItems:      len(items),
    TotalViews:      material.TotalViews,
    CreatedAt:       material.CreatedAt,
    UpdatedAt:       material.UpdatedAt,
    Items:           s.itemViews(items, full),
  }
}

func (s *studyMaterialService) attachItems(ctx context.Context, materials []*types.StudyMaterial, full bool) ([]*MaterialView, error) {
  views := make([]*MaterialView, 0, len(materials))
  for _, material := range materials {
    var (
      items []*types.StudyItem
      err   error
    )
    if full {
      items, err = s.itemRepo.ListByMaterial(ctx, nil, material.ID)
    } else {
      items, err = s.itemRepo.PreviewsByMaterial(ctx, nil, material.ID)
    }
    if err != nil {
      return nil, apierr.Persistence(fmt.Errorf("fetch items for %s: %w", material.ID, err))
    }
    views = append(views, s.buildView(material, items, full))
  }
  return views, nil
}

func (s *studyMaterialService) decodeTags(material *types.StudyMaterial) []string {
  if len(material.Tags) == 0 {
    return []string{}
  }
  var tags []string
  if err := json.Unmarshal(material.Tags, &tags); err != nil {
    s.log.Warn("Failed to parse material tags", "study_material_id", material.ID, "error", err)
    return []string{}
  }
  return tags
}

// tagVocabulary is the lower-cased, deduplicated set of every tag the user
// has authored.
func (s *studyMaterialService) tagVocabulary(ctx context.Context, username string) (map[string]bool, error) {
  rows, err := s.materialRepo.TagsByCreator(ctx, nil, username)
  if err != nil {
    return nil, apierr.Persistence(fmt.Errorf("fetch user tags: %w", err))
  }
  vocabulary := make(map[string]bool)
  for i := range rows {
    for _, tag := range s.decodeTags(&rows[i]) {
      vocabulary[strings.ToLower(tag)] = true
    }
  }
  return vocabulary, nil
}

func normalizeTags(tags []string) []string {
  if tags == nil {
    return []string{}
  }
  return tags
}

func tagOverlap(tags []string, vocabulary map[string]bool) int {
  count := 0
  for _, tag := range tags {
    if vocabulary[strings.ToLower(tag)] {
      count++
    }
  }
  return count
}

func uniquenessScore(tags []string, vocabulary map[string]bool) int {
  score := 0
  for _, tag := range tags {
    if !vocabulary[strings.ToLower(tag)] {
      score++
    }
  }
  return score
}
