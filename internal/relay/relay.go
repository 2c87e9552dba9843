package relay

import (
  "context"
  "encoding/json"

  "github.com/google/uuid"

  "github.com/Duel-Learn-Devs/duel-learn/internal/logger"
  "github.com/Duel-Learn-Devs/duel-learn/internal/services"
)

// Inbound event names.
const (
  EventSetup                  = "setup"
  EventSendFriendRequest      = "sendFriendRequest"
  EventAcceptFriendRequest    = "acceptFriendRequest"
  EventRejectFriendRequest    = "rejectFriendRequest"
  EventRemoveFriend           = "removeFriend"
  EventBroadcastStudyMaterial = "broadcast_study_material"
)

// Outbound event names.
const (
  EventNewFriendRequest      = "newFriendRequest"
  EventFriendRequestSent     = "friendRequestSent"
  EventFriendRequestAccepted = "friendRequestAccepted"
  EventFriendRequestRejected = "friendRequestRejected"
  EventFriendRemoved         = "friendRemoved"
  EventReceiveStudyMaterial  = "receive_study_material"
  EventBroadcastError        = "broadcast_error"
  EventError                 = "error"
)

// MaterialSource rehydrates broadcast payloads. Satisfied by
// services.StudyMaterialService; faked in tests.
type MaterialSource interface {
  GetByID(ctx context.Context, materialID uuid.UUID) (*services.MaterialView, error)
}

// Relay fans social and study events out to live peers. It holds no durable
// state; a malformed frame answers the sender with a typed error event and
// never disturbs another connection.
type Relay struct {
  log       *logger.Logger
  registry  *Registry
  materials MaterialSource
}

func NewRelay(baseLog *logger.Logger, registry *Registry, materials MaterialSource) *Relay {
  return &Relay{
    log:       baseLog.With("component", "Relay"),
    registry:  registry,
    materials: materials,
  }
}

func (r *Relay) Connect(c *Client) {
  r.registry.Add(c)
}

func (r *Relay) Disconnect(c *Client) {
  r.registry.Remove(c)
}

func (r *Relay) Dispatch(ctx context.Context, c *Client, evt InboundEvent) {
  switch evt.Event {
  case EventSetup:
    r.handleSetup(c, evt.Data)
  case EventSendFriendRequest:
    r.handleSendFriendRequest(c, evt.Data)
  case EventAcceptFriendRequest:
    r.handleAcceptFriendRequest(c, evt.Data)
  case EventRejectFriendRequest:
    r.handleRejectFriendRequest(c, evt.Data)
  case EventRemoveFriend:
    r.handleRemoveFriend(c, evt.Data)
  case EventBroadcastStudyMaterial:
    r.handleBroadcastStudyMaterial(ctx, c, evt.Data)
  default:
    r.emitError(c, evt.Event, "unknown event")
  }
}

// =====================================
// Handlers
// =====================================

func (r *Relay) handleSetup(c *Client, data json.RawMessage) {
  // The client sends its identity as a bare JSON string.
  var userID string
  if err := json.Unmarshal(data, &userID); err != nil || userID == "" {
    r.emitError(c, EventSetup, "missing user id")
    return
  }
  c.userID = userID
  r.registry.Bind(userID, c)
}

type friendRequestPayload struct {
  SenderID       string `json:"sender_id"`
  ReceiverID     string `json:"receiver_id"`
  SenderUsername string `json:"senderUsername"`
}

func (r *Relay) handleSendFriendRequest(c *Client, data json.RawMessage) {
  var payload friendRequestPayload
  if err := json.Unmarshal(data, &payload); err != nil {
    r.emitError(c, "friendRequest", "malformed friend request payload")
    return
  }
  if payload.SenderID == "" || payload.ReceiverID == "" || payload.SenderUsername == "" {
    r.emitError(c, "friendRequest", "missing required friend request data")
    return
  }

  r.log.Info("Friend request relayed", "sender_id", payload.SenderID, "receiver_id", payload.ReceiverID)

  // Best-effort: an offline receiver is a no-op, not an error.
  if receiver, ok := r.registry.Lookup(payload.ReceiverID); ok {
    r.emit(receiver, OutboundEvent{Event: EventNewFriendRequest, Data: map[string]any{
      "sender_id":      payload.SenderID,
      "senderUsername": payload.SenderUsername,
    }})
  }

  r.emit(c, OutboundEvent{Event: EventFriendRequestSent, Data: map[string]any{
    "success":     true,
    "receiver_id": payload.ReceiverID,
  }})
}

type friendAcceptPayload struct {
  SenderID     string          `json:"sender_id"`
  ReceiverID   string          `json:"receiver_id"`
  SenderInfo   json.RawMessage `json:"senderInfo"`
  ReceiverInfo json.RawMessage `json:"receiverInfo"`
}

func (r *Relay) handleAcceptFriendRequest(c *Client, data json.RawMessage) {
  var payload friendAcceptPayload
  if err := json.Unmarshal(data, &payload); err != nil {
    r.emitError(c, "friendAcceptance", "malformed friend acceptance payload")
    return
  }
  if payload.SenderID == "" || payload.ReceiverID == "" ||
    len(payload.SenderInfo) == 0 || len(payload.ReceiverInfo) == 0 {
    r.emitError(c, "friendAcceptance", "missing required friend acceptance data")
    return
  }

  r.log.Info("Friend request accepted", "sender_id", payload.SenderID, "receiver_id", payload.ReceiverID)

  // Both sides may need to append the new friend locally.
  if sender, ok := r.registry.Lookup(payload.SenderID); ok {
    r.emit(sender, OutboundEvent{Event: EventFriendRequestAccepted, Data: map[string]any{
      "newFriend": payload.ReceiverInfo,
    }})
  }
  if receiver, ok := r.registry.Lookup(payload.ReceiverID); ok {
    r.emit(receiver, OutboundEvent{Event: EventFriendRequestAccepted, Data: map[string]any{
      "newFriend": payload.SenderInfo,
    }})
  }
}

type friendPairPayload struct {
  SenderID   string `json:"sender_id"`
  ReceiverID string `json:"receiver_id"`
}

func (r *Relay) handleRejectFriendRequest(c *Client, data json.RawMessage) {
  var payload friendPairPayload
  if err := json.Unmarshal(data, &payload); err != nil {
    r.emitError(c, "friendRejection", "malformed friend rejection payload")
    return
  }
  if payload.SenderID == "" || payload.ReceiverID == "" {
    r.emitError(c, "friendRejection", "missing required friend rejection data")
    return
  }

  rejection := map[string]any{
    "sender_id":   payload.SenderID,
    "receiver_id": payload.ReceiverID,
  }
  for _, userID := range []string{payload.SenderID, payload.ReceiverID} {
    if peer, ok := r.registry.Lookup(userID); ok {
      r.emit(peer, OutboundEvent{Event: EventFriendRequestRejected, Data: rejection})
    }
  }
}

func (r *Relay) handleRemoveFriend(c *Client, data json.RawMessage) {
  var payload friendPairPayload
  if err := json.Unmarshal(data, &payload); err != nil {
    r.emitError(c, "friendRemoval", "malformed friend removal payload")
    return
  }
  if payload.SenderID == "" || payload.ReceiverID == "" {
    r.emitError(c, "friendRemoval", "missing required friend removal data")
    return
  }

  // Each side learns the other's id as the removed one.
  if sender, ok := r.registry.Lookup(payload.SenderID); ok {
    r.emit(sender, OutboundEvent{Event: EventFriendRemoved, Data: map[string]any{
      "removedFriendId": payload.ReceiverID,
    }})
  }
  if receiver, ok := r.registry.Lookup(payload.ReceiverID); ok {
    r.emit(receiver, OutboundEvent{Event: EventFriendRemoved, Data: map[string]any{
      "removedFriendId": payload.SenderID,
    }})
  }
}

type broadcastPayload struct {
  StudyMaterialID string `json:"study_material_id"`
}

func (r *Relay) handleBroadcastStudyMaterial(ctx context.Context, c *Client, data json.RawMessage) {
  var payload broadcastPayload
  if err := json.Unmarshal(data, &payload); err != nil || payload.StudyMaterialID == "" {
    r.emit(c, OutboundEvent{Event: EventBroadcastError, Data: map[string]any{
      "error": "missing study material ID",
    }})
    return
  }

  materialID, err := uuid.Parse(payload.StudyMaterialID)
  if err != nil {
    r.emit(c, OutboundEvent{Event: EventBroadcastError, Data: map[string]any{
      "error": "invalid study material ID",
    }})
    return
  }

  // Always rehydrate from the store; the client's copy is not trusted.
  material, err := r.materials.GetByID(ctx, materialID)
  if err != nil {
    r.log.Warn("Broadcast rehydration failed", "study_material_id", materialID, "error", err)
    r.emit(c, OutboundEvent{Event: EventBroadcastError, Data: map[string]any{
      "error": err.Error(),
    }})
    return
  }

  peers := r.registry.Peers(c)
  for _, peer := range peers {
    r.emit(peer, OutboundEvent{Event: EventReceiveStudyMaterial, Data: material})
  }
  r.log.Info("Study material broadcast", "study_material_id", materialID, "peers", len(peers))
}

// =====================================
// Emission
// =====================================

func (r *Relay) emit(c *Client, evt OutboundEvent) {
  select {
  case c.Send <- evt:
  default:
    r.log.Warn("Dropping event; client send buffer full", "event", evt.Event)
  }
}

func (r *Relay) emitError(c *Client, errType, message string) {
  r.log.Warn("Relay payload rejected", "type", errType, "message", message)
  r.emit(c, OutboundEvent{Event: EventError, Data: map[string]any{
    "type":    errType,
    "message": message,
  }})
}
