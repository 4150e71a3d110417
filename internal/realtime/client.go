package realtime

import (
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/safarides/safar-backend/pkg/eventbus"
	"github.com/safarides/safar-backend/pkg/logger"
	"github.com/safarides/safar-backend/pkg/metrics"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings with this period (must be less than pongWait).
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 4 * 1024
)

// inboundMessage is what clients may send: currently only room join requests.
type inboundMessage struct {
	Type string `json:"type"`
}

// Client is one websocket connection bound to an eventbus subscriber. The
// connection starts in the owning user's room; admins may join the admin
// room by sending {"type": "join:admin"}.
type Client struct {
	userID  uuid.UUID
	isAdmin bool
	conn    *websocket.Conn
	bus     *eventbus.Bus
	sub     *eventbus.Subscriber
}

// NewClient wires a websocket connection into the event bus.
func NewClient(userID uuid.UUID, isAdmin bool, conn *websocket.Conn, bus *eventbus.Bus) *Client {
	return &Client{
		userID:  userID,
		isAdmin: isAdmin,
		conn:    conn,
		bus:     bus,
		sub:     bus.Subscribe(userID.String()),
	}
}

// ReadPump consumes client messages until the connection drops, handling
// join requests. Runs as a goroutine per connection.
func (c *Client) ReadPump() {
	defer func() {
		c.bus.Unsubscribe(c.sub)
		c.conn.Close()
		metrics.WebsocketClients.Dec()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg inboundMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Debug("websocket read error", zap.Error(err))
			}
			return
		}

		switch msg.Type {
		case "join:admin":
			if !c.isAdmin {
				logger.Warn("non-admin attempted to join admin room",
					zap.String("user_id", c.userID.String()))
				continue
			}
			c.bus.Join(c.sub, eventbus.AdminRoom)
		default:
			logger.Debug("unknown websocket message type", zap.String("type", msg.Type))
		}
	}
}

// WritePump forwards bus events to the connection and keeps it alive with
// pings. Runs as a goroutine per connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.sub.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(event); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
