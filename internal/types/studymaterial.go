package types

import (
  "time"

  "github.com/google/uuid"
  "gorm.io/datatypes"
)

// Visibility is a single string enum. The legacy integer flag and the
// parallel status column collapsed into this one representation.
const (
  VisibilityDraft    = "draft"
  VisibilityPublic   = "public"
  VisibilityArchived = "archived"
)

// Item question types.
const (
  QuestionTypeMultipleChoice = "multiple-choice"
  QuestionTypeTrueFalse      = "true-false"
  QuestionTypeIdentification = "identification"
)

type StudyMaterial struct {
  ID          uuid.UUID      `gorm:"type:uuid;primaryKey;column:study_material_id" json:"study_material_id"`
  Title       string         `gorm:"column:title;not null" json:"title"`
  Tags        datatypes.JSON `gorm:"column:tags" json:"tags"`
  Summary     string         `gorm:"column:summary" json:"summary"`
  Visibility  string         `gorm:"column:visibility;not null;default:'public';index" json:"visibility"`
  CreatedBy   string         `gorm:"column:created_by;not null;index" json:"created_by"`
  CreatedByID string         `gorm:"column:created_by_id;not null;index" json:"created_by_id"`
  TotalViews  int            `gorm:"column:total_views;not null;default:0" json:"total_views"`
  CreatedAt   time.Time      `gorm:"column:created_at;not null" json:"created_at"`
  UpdatedAt   time.Time      `gorm:"column:updated_at;not null" json:"updated_at"`

  Items []StudyItem `gorm:"foreignKey:StudyMaterialID;references:ID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
}

func (StudyMaterial) TableName() string {
  return "study_material_info"
}

type StudyItem struct {
  ID              uuid.UUID `gorm:"type:uuid;primaryKey;column:item_id" json:"item_id"`
  StudyMaterialID uuid.UUID `gorm:"type:uuid;not null;index:idx_material_item,unique,priority:1;column:study_material_id" json:"study_material_id"`
  ItemNumber      int       `gorm:"column:item_number;not null;index:idx_material_item,unique,priority:2" json:"item_number"`

  Term       string `gorm:"column:term;not null" json:"term"`
  Definition string `gorm:"column:definition;not null" json:"definition"`

  // Snapshot of the authored pair, preserved across question generation so
  // the answer key survives.
  OriginalTerm       string `gorm:"column:original_term" json:"original_term"`
  OriginalDefinition string `gorm:"column:original_definition" json:"original_definition"`

  // Raw bytes in storage; base64 on the wire, always.
  Image []byte `gorm:"column:image" json:"-"`

  Type     string         `gorm:"column:type;not null;default:'multiple-choice'" json:"type"`
  Question string         `gorm:"column:question" json:"question"`
  Answer   string         `gorm:"column:answer" json:"answer"`
  Options  datatypes.JSON `gorm:"column:options" json:"options,omitempty"`
}

func (StudyItem) TableName() string {
  return "study_material_content"
}
