package repos

import (
  "context"

  "gorm.io/gorm"

  "github.com/Duel-Learn-Devs/duel-learn/internal/logger"
  "github.com/Duel-Learn-Devs/duel-learn/internal/types"
)

type FriendRequestRepo interface {
  AcceptedFriendIDs(ctx context.Context, tx *gorm.DB, userID string) ([]string, error)
}

type friendRequestRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewFriendRequestRepo(db *gorm.DB, baseLog *logger.Logger) FriendRequestRepo {
  repoLog := baseLog.With("repo", "FriendRequestRepo")
  return &friendRequestRepo{db: db, log: repoLog}
}

func (r *friendRequestRepo) AcceptedFriendIDs(ctx context.Context, tx *gorm.DB, userID string) ([]string, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  var requests []types.FriendRequest
  if err := transaction.WithContext(ctx).
    Where("(sender_id = ? OR receiver_id = ?) AND status = ?", userID, userID, types.FriendStatusAccepted).
    Find(&requests).Error; err != nil {
    return nil, err
  }
  friendIDs := make([]string, 0, len(requests))
  for _, req := range requests {
    if req.SenderID == userID {
      friendIDs = append(friendIDs, req.ReceiverID)
    } else {
      friendIDs = append(friendIDs, req.SenderID)
    }
  }
  return friendIDs, nil
}
