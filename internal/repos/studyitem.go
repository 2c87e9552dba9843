package repos

import (
  "context"

  "github.com/google/uuid"
  "gorm.io/gorm"

  "github.com/Duel-Learn-Devs/duel-learn/internal/logger"
  "github.com/Duel-Learn-Devs/duel-learn/internal/types"
)

type StudyItemRepo interface {
  CreateBatch(ctx context.Context, tx *gorm.DB, items []*types.StudyItem) ([]*types.StudyItem, error)
  ListByMaterial(ctx context.Context, tx *gorm.DB, materialID uuid.UUID) ([]*types.StudyItem, error)
  PreviewsByMaterial(ctx context.Context, tx *gorm.DB, materialID uuid.UUID) ([]*types.StudyItem, error)
  CountByMaterial(ctx context.Context, tx *gorm.DB, materialID uuid.UUID) (int64, error)
  DeleteByMaterial(ctx context.Context, tx *gorm.DB, materialID uuid.UUID) error
}

type studyItemRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewStudyItemRepo(db *gorm.DB, baseLog *logger.Logger) StudyItemRepo {
  repoLog := baseLog.With("repo", "StudyItemRepo")
  return &studyItemRepo{db: db, log: repoLog}
}

func (r *studyItemRepo) CreateBatch(ctx context.Context, tx *gorm.DB, items []*types.StudyItem) ([]*types.StudyItem, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if len(items) == 0 {
    return []*types.StudyItem{}, nil
  }
  if err := transaction.WithContext(ctx).Create(&items).Error; err != nil {
    return nil, err
  }
  return items, nil
}

func (r *studyItemRepo) ListByMaterial(ctx context.Context, tx *gorm.DB, materialID uuid.UUID) ([]*types.StudyItem, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  var results []*types.StudyItem
  if err := transaction.WithContext(ctx).
    Where("study_material_id = ?", materialID).
    Order("item_number ASC").
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (r *studyItemRepo) PreviewsByMaterial(ctx context.Context, tx *gorm.DB, materialID uuid.UUID) ([]*types.StudyItem, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  var results []*types.StudyItem
  if err := transaction.WithContext(ctx).
    Select("item_number", "term", "definition", "image").
    Where("study_material_id = ?", materialID).
    Order("item_number ASC").
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (r *studyItemRepo) CountByMaterial(ctx context.Context, tx *gorm.DB, materialID uuid.UUID) (int64, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  var count int64
  if err := transaction.WithContext(ctx).
    Model(&types.StudyItem{}).
    Where("study_material_id = ?", materialID).
    Count(&count).Error; err != nil {
    return 0, err
  }
  return count, nil
}

func (r *studyItemRepo) DeleteByMaterial(ctx context.Context, tx *gorm.DB, materialID uuid.UUID) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  return transaction.WithContext(ctx).
    Where("study_material_id = ?", materialID).
    Delete(&types.StudyItem{}).Error
}
