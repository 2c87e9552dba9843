package relay

import (
  "context"
  "encoding/json"
  "sync/atomic"
  "time"

  "github.com/gorilla/websocket"
)

const (
  writeWait      = 10 * time.Second
  pongWait       = 60 * time.Second
  pingPeriod     = (pongWait * 9) / 10
  maxMessageSize = 512 * 1024 // 512 KB; items can carry base64 images
)

var clientIDCounter atomic.Uint64

// InboundEvent is one frame received from a connection. Data stays raw
// until the matching handler decodes it.
type InboundEvent struct {
  Event string          `json:"event"`
  Data  json.RawMessage `json:"data"`
}

type OutboundEvent struct {
  Event string `json:"event"`
  Data  any    `json:"data,omitempty"`
}

// Client sits between one websocket connection and the relay. conn may be
// nil for clients driven directly in tests; only the pumps touch it.
type Client struct {
  id     uint64
  userID string
  conn   *websocket.Conn
  Send   chan OutboundEvent
  done   chan struct{}
}

func NewClient(conn *websocket.Conn) *Client {
  return &Client{
    id:   clientIDCounter.Add(1),
    conn: conn,
    Send: make(chan OutboundEvent, 64),
    done: make(chan struct{}),
  }
}

func (c *Client) UserID() string {
  return c.userID
}

func (c *Client) readPump(r *Relay) {
  defer func() {
    r.Disconnect(c)
    close(c.done)
    _ = c.conn.Close()
  }()

  c.conn.SetReadLimit(maxMessageSize)
  if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
    r.log.Error("Failed to set read deadline", "error", err)
    return
  }
  c.conn.SetPongHandler(func(string) error {
    return c.conn.SetReadDeadline(time.Now().Add(pongWait))
  })

  for {
    var evt InboundEvent
    if err := c.conn.ReadJSON(&evt); err != nil {
      if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
        r.log.Warn("Unexpected websocket close", "error", err)
      }
      return
    }
    r.Dispatch(context.Background(), c, evt)
  }
}

func (c *Client) writePump(r *Relay) {
  ticker := time.NewTicker(pingPeriod)
  defer func() {
    ticker.Stop()
    _ = c.conn.Close()
  }()

  for {
    select {
    case evt, ok := <-c.Send:
      if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
        r.log.Error("Failed to set write deadline", "error", err)
        return
      }
      if !ok {
        _ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
        return
      }
      if err := c.conn.WriteJSON(evt); err != nil {
        r.log.Warn("Failed to write event", "event", evt.Event, "error", err)
        return
      }
    case <-c.done:
      return
    case <-ticker.C:
      if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
        return
      }
      if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
        return
      }
    }
  }
}

// Start begins the read/write pumps for a real websocket connection.
func (c *Client) Start(r *Relay) {
  go c.writePump(r)
  go c.readPump(r)
}
