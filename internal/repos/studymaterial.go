package repos

import (
  "context"
  "errors"
  "time"

  "github.com/google/uuid"
  "gorm.io/gorm"

  "github.com/Duel-Learn-Devs/duel-learn/internal/logger"
  "github.com/Duel-Learn-Devs/duel-learn/internal/types"
)

// ErrRowNotFound is the repo-level sentinel; services translate it into the
// API error taxonomy.
var ErrRowNotFound = errors.New("row not found")

type StudyMaterialRepo interface {
  Create(ctx context.Context, tx *gorm.DB, material *types.StudyMaterial) error
  GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.StudyMaterial, error)
  ListByCreatorName(ctx context.Context, tx *gorm.DB, createdBy string) ([]*types.StudyMaterial, error)
  ListByCreatorIDs(ctx context.Context, tx *gorm.DB, creatorIDs []string) ([]*types.StudyMaterial, error)
  ListByViews(ctx context.Context, tx *gorm.DB) ([]*types.StudyMaterial, error)
  ListVisibleNotBy(ctx context.Context, tx *gorm.DB, createdBy string) ([]*types.StudyMaterial, error)
  ListNotBy(ctx context.Context, tx *gorm.DB, createdBy string) ([]*types.StudyMaterial, error)
  TagsByCreator(ctx context.Context, tx *gorm.DB, createdBy string) ([]types.StudyMaterial, error)
  IncrementViews(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
  SetVisibility(ctx context.Context, tx *gorm.DB, id uuid.UUID, visibility string) error
  Touch(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type studyMaterialRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewStudyMaterialRepo(db *gorm.DB, baseLog *logger.Logger) StudyMaterialRepo {
  repoLog := baseLog.With("repo", "StudyMaterialRepo")
  return &studyMaterialRepo{db: db, log: repoLog}
}

func (r *studyMaterialRepo) Create(ctx context.Context, tx *gorm.DB, material *types.StudyMaterial) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  return transaction.WithContext(ctx).Create(material).Error
}

func (r *studyMaterialRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.StudyMaterial, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  var material types.StudyMaterial
  err := transaction.WithContext(ctx).
    Where("study_material_id = ?", id).
    First(&material).Error
  if err != nil {
    if errors.Is(err, gorm.ErrRecordNotFound) {
      return nil, ErrRowNotFound
    }
    return nil, err
  }
  return &material, nil
}

func (r *studyMaterialRepo) ListByCreatorName(ctx context.Context, tx *gorm.DB, createdBy string) ([]*types.StudyMaterial, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  var results []*types.StudyMaterial
  if err := transaction.WithContext(ctx).
    Where("created_by = ?", createdBy).
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (r *studyMaterialRepo) ListByCreatorIDs(ctx context.Context, tx *gorm.DB, creatorIDs []string) ([]*types.StudyMaterial, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  var results []*types.StudyMaterial
  if len(creatorIDs) == 0 {
    return results, nil
  }
  if err := transaction.WithContext(ctx).
    Where("created_by_id IN ?", creatorIDs).
    Order("created_at DESC").
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (r *studyMaterialRepo) ListByViews(ctx context.Context, tx *gorm.DB) ([]*types.StudyMaterial, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  var results []*types.StudyMaterial
  if err := transaction.WithContext(ctx).
    Order("total_views DESC").
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (r *studyMaterialRepo) ListVisibleNotBy(ctx context.Context, tx *gorm.DB, createdBy string) ([]*types.StudyMaterial, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  var results []*types.StudyMaterial
  if err := transaction.WithContext(ctx).
    Where("created_by != ? AND visibility = ?", createdBy, types.VisibilityPublic).
    Order("created_at DESC").
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (r *studyMaterialRepo) ListNotBy(ctx context.Context, tx *gorm.DB, createdBy string) ([]*types.StudyMaterial, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  var results []*types.StudyMaterial
  if err := transaction.WithContext(ctx).
    Where("created_by != ?", createdBy).
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (r *studyMaterialRepo) TagsByCreator(ctx context.Context, tx *gorm.DB, createdBy string) ([]types.StudyMaterial, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  var results []types.StudyMaterial
  if err := transaction.WithContext(ctx).
    Select("tags").
    Where("created_by = ?", createdBy).
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (r *studyMaterialRepo) IncrementViews(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  // Single UPDATE so concurrent callers never lose an increment.
  result := transaction.WithContext(ctx).
    Model(&types.StudyMaterial{}).
    Where("study_material_id = ?", id).
    UpdateColumn("total_views", gorm.Expr("total_views + ?", 1))
  if result.Error != nil {
    return result.Error
  }
  if result.RowsAffected == 0 {
    return ErrRowNotFound
  }
  return nil
}

func (r *studyMaterialRepo) SetVisibility(ctx context.Context, tx *gorm.DB, id uuid.UUID, visibility string) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  result := transaction.WithContext(ctx).
    Model(&types.StudyMaterial{}).
    Where("study_material_id = ?", id).
    Updates(map[string]interface{}{
      "visibility": visibility,
      "updated_at": time.Now(),
    })
  if result.Error != nil {
    return result.Error
  }
  if result.RowsAffected == 0 {
    return ErrRowNotFound
  }
  return nil
}

func (r *studyMaterialRepo) Touch(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  return transaction.WithContext(ctx).
    Model(&types.StudyMaterial{}).
    Where("study_material_id = ?", id).
    UpdateColumn("updated_at", time.Now()).Error
}
