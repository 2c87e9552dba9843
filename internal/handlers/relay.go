package handlers

import (
  "net/http"

  "github.com/gin-gonic/gin"
  "github.com/gorilla/websocket"

  "github.com/Duel-Learn-Devs/duel-learn/internal/logger"
  "github.com/Duel-Learn-Devs/duel-learn/internal/relay"
)

type RelayHandler struct {
  log      *logger.Logger
  relay    *relay.Relay
  upgrader websocket.Upgrader
}

func NewRelayHandler(log *logger.Logger, r *relay.Relay) *RelayHandler {
  return &RelayHandler{
    log:   log.With("handler", "RelayHandler"),
    relay: r,
    upgrader: websocket.Upgrader{
      ReadBufferSize:  1024,
      WriteBufferSize: 1024,
      // CORS is enforced at the router; the upgrade itself accepts any origin.
      CheckOrigin: func(*http.Request) bool { return true },
    },
  }
}

// GET /ws
func (h *RelayHandler) Serve(c *gin.Context) {
  conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
  if err != nil {
    h.log.Warn("Websocket upgrade failed", "error", err)
    return
  }
  client := relay.NewClient(conn)
  h.relay.Connect(client)
  client.Start(h.relay)
}
