package types

import (
  "time"

  "github.com/google/uuid"
)

const (
  FriendStatusPending  = "pending"
  FriendStatusAccepted = "accepted"
  FriendStatusRejected = "rejected"
)

// FriendRequest rows are written by the friend service over HTTP. This side
// only reads them to resolve the made-by-friends feed; the relay never
// persists them.
type FriendRequest struct {
  ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
  SenderID   string    `gorm:"column:sender_id;not null;index" json:"sender_id"`
  ReceiverID string    `gorm:"column:receiver_id;not null;index" json:"receiver_id"`
  Status     string    `gorm:"column:status;not null;default:'pending';index" json:"status"`
  CreatedAt  time.Time `gorm:"column:created_at;not null" json:"created_at"`
  UpdatedAt  time.Time `gorm:"column:updated_at;not null" json:"updated_at"`
}

func (FriendRequest) TableName() string {
  return "friend_requests"
}
