// internal/socket/hub.go
package socket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Marga-Ghale/ora-discuss/internal/logger"
)

const defaultPingInterval = 30 * time.Second

// ProjectRoom is the channel carrying a project's discussion and file events.
func ProjectRoom(projectID string) string { return "project:" + projectID }

// UserRoom is the personal channel every connection joins for its own user.
func UserRoom(userID string) string { return "user:" + userID }

// Relay moves an already encoded frame to every hub instance, this one included.
// Without a relay the hub delivers locally.
type Relay interface {
	Publish(ctx context.Context, room string, data []byte) error
}

// Hub owns the channel registry and fans frames out to subscribed connections.
type Hub struct {
	registry *Registry

	// Connected clients by connection ID
	clients map[string]Conn
	mu      sync.RWMutex

	unregister chan Conn
	done       chan struct{}
	closeOnce  sync.Once

	relay        Relay
	pingInterval time.Duration
	log          zerolog.Logger
}

func NewHub() *Hub {
	return &Hub{
		registry:     NewRegistry(),
		clients:      make(map[string]Conn),
		unregister:   make(chan Conn, 64),
		done:         make(chan struct{}),
		pingInterval: defaultPingInterval,
		log:          logger.Component("hub"),
	}
}

// SetRelay routes Publish through r. Must be called before Run.
func (h *Hub) SetRelay(r Relay) { h.relay = r }

func (h *Hub) Registry() *Registry { return h.registry }

// Run handles deferred disconnects and keepalive pings until ctx ends.
func (h *Hub) Run(ctx context.Context) {
	h.log.Info().Msg("websocket hub started")

	pingTicker := time.NewTicker(h.pingInterval)
	defer pingTicker.Stop()

	for {
		select {
		case c := <-h.unregister:
			h.Disconnect(c)

		case <-pingTicker.C:
			h.pingClients()

		case <-ctx.Done():
			h.shutdown()
			return
		}
	}
}

func (h *Hub) shutdown() {
	h.closeOnce.Do(func() { close(h.done) })

	h.mu.RLock()
	conns := make([]Conn, 0, len(h.clients))
	for _, c := range h.clients {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		h.Disconnect(c)
	}
	h.log.Info().Int("clients", len(conns)).Msg("websocket hub stopped")
}

// Attach registers a live connection and subscribes it to its user room.
func (h *Hub) Attach(c Conn) {
	h.mu.Lock()
	h.clients[c.ID()] = c
	h.registry.Join(UserRoom(c.UserID()), c)
	total := len(h.clients)
	h.mu.Unlock()

	h.log.Info().
		Str("user", c.UserID()).
		Str("conn", c.ID()).
		Int("total_clients", total).
		Msg("client registered")
}

// Unregister queues a disconnect for the Run loop. It never blocks once the
// hub has stopped.
func (h *Hub) Unregister(c Conn) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Disconnect removes every membership held by c and closes it if it is a
// websocket client. Calling it twice is harmless.
func (h *Hub) Disconnect(c Conn) {
	h.mu.Lock()
	_, known := h.clients[c.ID()]
	delete(h.clients, c.ID())
	left := h.registry.LeaveAll(c.ID())
	total := len(h.clients)
	h.mu.Unlock()

	if client, ok := c.(*Client); ok {
		client.close()
	}
	if known {
		h.log.Info().
			Str("user", c.UserID()).
			Str("conn", c.ID()).
			Strs("left", left).
			Int("total_clients", total).
			Msg("client disconnected")
	}
}

// Join subscribes c to room. Idempotent. Connections that were never attached,
// or have already been disconnected, are refused.
func (h *Hub) Join(room string, c Conn) bool {
	h.mu.RLock()
	_, live := h.clients[c.ID()]
	added := live && h.registry.Join(room, c)
	h.mu.RUnlock()

	if !live {
		h.log.Debug().Str("conn", c.ID()).Str("room", room).Msg("join from detached connection ignored")
		return false
	}
	if added {
		h.log.Debug().Str("user", c.UserID()).Str("room", room).Msg("joined room")
	}
	return added
}

// Leave unsubscribes c from room. Leaving a room never joined is a no-op.
func (h *Hub) Leave(room string, c Conn) bool {
	removed := h.registry.Leave(room, c.ID())
	if removed {
		h.log.Debug().Str("user", c.UserID()).Str("room", room).Msg("left room")
	}
	return removed
}

// Publish encodes env once and hands it to every subscriber of room.
// Delivery is best effort: a connection whose buffer is full is dropped.
func (h *Hub) Publish(ctx context.Context, room string, env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	if h.relay != nil {
		return h.relay.Publish(ctx, room, data)
	}
	h.Deliver(room, data)
	return nil
}

// Deliver writes an encoded frame to the local subscribers of room and
// returns how many accepted it.
func (h *Hub) Deliver(room string, data []byte) int {
	members := h.registry.MembersOf(room)

	sent := 0
	for _, c := range members {
		if c.Deliver(data) {
			sent++
			continue
		}
		h.log.Warn().Str("conn", c.ID()).Str("room", room).Msg("slow consumer dropped")
		go h.Unregister(c)
	}
	h.log.Debug().Str("room", room).Int("sent", sent).Msg("broadcast")
	return sent
}

// SendTo writes a frame to a single connection, bypassing rooms.
func (h *Hub) SendTo(c Conn, env Envelope) bool {
	data, err := json.Marshal(env)
	if err != nil {
		h.log.Error().Err(err).Msg("marshal direct frame")
		return false
	}
	return c.Deliver(data)
}

func (h *Hub) pingClients() {
	data, _ := json.Marshal(NewEnvelope(PingPayload{Time: time.Now().Unix()}))

	h.mu.RLock()
	conns := make([]Conn, 0, len(h.clients))
	for _, c := range h.clients {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		if !c.Deliver(data) {
			go h.Unregister(c)
		}
	}
}

// IsUserOnline reports whether the user holds at least one live connection.
func (h *Hub) IsUserOnline(userID string) bool {
	return h.registry.Count(UserRoom(userID)) > 0
}

func (h *Hub) GetConnectedClientsCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
