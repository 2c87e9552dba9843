package relay

import (
  "sort"
  "sync"

  "github.com/Duel-Learn-Devs/duel-learn/internal/logger"
)

// Registry is the process-local map of live connections and the identities
// bound to them. It is constructor-injected into the relay so tests can run
// isolated relay instances; nothing in it survives a restart, which is fine
// because it is a notification cache, not a source of truth.
type Registry struct {
  mu    sync.RWMutex
  log   *logger.Logger
  conns map[*Client]bool
  users map[string]*Client
}

func NewRegistry(baseLog *logger.Logger) *Registry {
  return &Registry{
    log:   baseLog.With("component", "Registry"),
    conns: make(map[*Client]bool),
    users: make(map[string]*Client),
  }
}

func (reg *Registry) Add(c *Client) {
  reg.mu.Lock()
  defer reg.mu.Unlock()
  reg.conns[c] = true
  reg.log.Debug("Client connected", "total_clients", len(reg.conns))
}

// Remove drops the connection and releases its identity binding, but only
// if this connection still owns it: a stale disconnect must not clobber a
// newer setup from the same user.
func (reg *Registry) Remove(c *Client) {
  reg.mu.Lock()
  defer reg.mu.Unlock()
  delete(reg.conns, c)
  if c.userID != "" && reg.users[c.userID] == c {
    delete(reg.users, c.userID)
    reg.log.Debug("User left", "user_id", c.userID)
  }
}

// Bind registers userID -> c; the last setup wins.
func (reg *Registry) Bind(userID string, c *Client) {
  reg.mu.Lock()
  defer reg.mu.Unlock()
  reg.users[userID] = c
  reg.log.Debug("User joined", "user_id", userID)
}

func (reg *Registry) Lookup(userID string) (*Client, bool) {
  reg.mu.RLock()
  defer reg.mu.RUnlock()
  c, ok := reg.users[userID]
  return c, ok
}

// Peers returns every live connection except the given one, in connection
// order so fan-out is deterministic.
func (reg *Registry) Peers(except *Client) []*Client {
  reg.mu.RLock()
  defer reg.mu.RUnlock()
  peers := make([]*Client, 0, len(reg.conns))
  for c := range reg.conns {
    if c != except {
      peers = append(peers, c)
    }
  }
  sort.Slice(peers, func(i, j int) bool {
    return peers[i].id < peers[j].id
  })
  return peers
}

func (reg *Registry) Count() int {
  reg.mu.RLock()
  defer reg.mu.RUnlock()
  return len(reg.conns)
}
