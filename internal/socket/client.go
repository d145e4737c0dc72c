// internal/socket/client.go
package socket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/Marga-Ghale/ora-discuss/internal/models"
)

// WebSocket connection constants
const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize int64 = 16 * 1024

	sendBuffer = 256

	actionTimeout = 10 * time.Second
)

// JoinPolicy decides whether a user may subscribe to a project's room.
type JoinPolicy interface {
	CanJoin(ctx context.Context, userID, projectID string) error
}

// MessageSender posts a discussion message on behalf of a connected user.
type MessageSender interface {
	SendAs(ctx context.Context, who models.Identity, projectID, body string) error
}

// ClientMessage is an inbound frame from a connected client.
type ClientMessage struct {
	Action    string `json:"action"`
	ProjectID string `json:"projectId,omitempty"`
	Body      string `json:"body,omitempty"`
}

// Client is one websocket connection. It implements Conn.
type Client struct {
	id       string
	identity models.Identity
	conn     *websocket.Conn
	hub      *Hub
	policy   JoinPolicy
	sender   MessageSender
	send     chan []byte
	log      zerolog.Logger

	mu     sync.Mutex
	closed bool
}

func (c *Client) ID() string                { return c.id }
func (c *Client) UserID() string            { return c.identity.ID }
func (c *Client) Identity() models.Identity { return c.identity }

// Deliver queues data without blocking. It reports false when the client is
// closed or its buffer is full.
func (c *Client) Deliver(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// ReadPump pumps frames from the websocket connection to the hub.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn().Err(err).Msg("websocket read error")
			}
			break
		}
		c.handleMessage(message)
	}
}

// WritePump pumps frames from the hub to the websocket connection.
// Each frame is written as its own text message.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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

func (c *Client) handleMessage(message []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		c.log.Debug().Err(err).Msg("unparseable client frame")
		c.reply(ErrorPayload{Message: "malformed frame"})
		return
	}

	c.log.Debug().Str("action", msg.Action).Str("project", msg.ProjectID).Msg("client action")

	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()

	switch msg.Action {
	case "join":
		if msg.ProjectID == "" {
			c.reply(ErrorPayload{Action: msg.Action, Message: "projectId is required"})
			return
		}
		if c.policy != nil {
			if err := c.policy.CanJoin(ctx, c.identity.ID, msg.ProjectID); err != nil {
				c.reply(ErrorPayload{Action: msg.Action, ProjectID: msg.ProjectID, Message: err.Error()})
				return
			}
		}
		c.hub.Join(ProjectRoom(msg.ProjectID), c)
		c.reply(AckPayload{Action: "joined", ProjectID: msg.ProjectID})

	case "leave":
		if msg.ProjectID == "" {
			c.reply(ErrorPayload{Action: msg.Action, Message: "projectId is required"})
			return
		}
		c.hub.Leave(ProjectRoom(msg.ProjectID), c)
		c.reply(AckPayload{Action: "left", ProjectID: msg.ProjectID})

	case "send":
		if c.sender == nil {
			c.reply(ErrorPayload{Action: msg.Action, Message: "sending is disabled"})
			return
		}
		if err := c.sender.SendAs(ctx, c.identity, msg.ProjectID, msg.Body); err != nil {
			c.reply(ErrorPayload{Action: msg.Action, ProjectID: msg.ProjectID, Message: err.Error()})
		}

	case "ping":
		c.reply(PongPayload{Time: time.Now().Unix()})

	case "pong":
		// keepalive reply to the hub's ping frame

	default:
		c.reply(ErrorPayload{Action: msg.Action, Message: "unknown action"})
	}
}

func (c *Client) reply(p Payload) {
	if !c.hub.SendTo(c, NewEnvelope(p)) {
		c.log.Debug().Str("type", string(p.EventType())).Msg("reply dropped")
	}
}
