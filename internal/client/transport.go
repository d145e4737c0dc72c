// Package client is the consumer side of the discussion service: a websocket
// transport for live events and a small JSON client for the HTTP API.
package client

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/flowchartsman/retry"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/Marga-Ghale/ora-discuss/internal/socket"
)

var (
	ErrNotConnected = errors.New("transport is not connected")
	ErrClosed       = errors.New("transport is closed")
)

const eventBuffer = 64

// Transport owns one websocket connection to the hub. Create one per session
// and pass it to whatever needs live events.
type Transport struct {
	url    string
	token  string
	dialer *websocket.Dialer

	mu      sync.Mutex
	conn    *websocket.Conn
	closed  bool
	writeMu sync.Mutex
	events  chan socket.RawEnvelope
	done    chan struct{}
}

// NewTransport targets a websocket URL such as ws://localhost:8080/api/ws.
func NewTransport(url, token string) *Transport {
	return &Transport{
		url:    url,
		token:  token,
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		events: make(chan socket.RawEnvelope, eventBuffer),
		done:   make(chan struct{}),
	}
}

// Connect dials the hub, retrying with backoff, and starts reading events.
// A transport connects once; after Close a new one is needed.
func (t *Transport) Connect(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed
	}
	if t.conn != nil {
		return nil
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+t.token)

	var conn *websocket.Conn
	retrier := retry.NewRetrier(5, 200*time.Millisecond, 5*time.Second)
	err := retrier.RunContext(ctx, func(ctx context.Context) error {
		c, resp, err := t.dialer.DialContext(ctx, t.url, header)
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		if err != nil {
			log.Debug().Err(err).Str("url", t.url).Msg("websocket dial failed")
			return err
		}
		conn = c
		return nil
	})
	if err != nil {
		return err
	}

	t.conn = conn
	go t.readLoop(conn)
	return nil
}

func (t *Transport) readLoop(conn *websocket.Conn) {
	defer close(t.events)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug().Err(err).Msg("websocket read stopped")
			}
			return
		}
		env, err := socket.DecodeEnvelope(data)
		if err != nil {
			log.Warn().Err(err).Msg("dropping malformed event")
			continue
		}
		select {
		case t.events <- env:
		case <-t.done:
			return
		}
	}
}

// Events yields everything the hub sends. It is closed when the connection ends.
func (t *Transport) Events() <-chan socket.RawEnvelope {
	return t.events
}

func (t *Transport) Join(projectID string) error {
	return t.write(socket.ClientMessage{Action: "join", ProjectID: projectID})
}

func (t *Transport) Leave(projectID string) error {
	return t.write(socket.ClientMessage{Action: "leave", ProjectID: projectID})
}

func (t *Transport) Send(projectID, body string) error {
	return t.write(socket.ClientMessage{Action: "send", ProjectID: projectID, Body: body})
}

// Ping asks the hub for a pong event.
func (t *Transport) Ping() error {
	return t.write(socket.ClientMessage{Action: "ping"})
}

func (t *Transport) write(msg socket.ClientMessage) error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return conn.WriteJSON(msg)
}

// Close sends a close frame and drops the connection.
func (t *Transport) Close() error {
	t.mu.Lock()
	conn := t.conn
	t.conn = nil
	if !t.closed {
		t.closed = true
		close(t.done)
	}
	t.mu.Unlock()
	if conn == nil {
		return nil
	}

	t.writeMu.Lock()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	t.writeMu.Unlock()
	return conn.Close()
}
