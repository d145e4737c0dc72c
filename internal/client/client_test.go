package client

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Marga-Ghale/ora-discuss/internal/api"
	"github.com/Marga-Ghale/ora-discuss/internal/auth"
	"github.com/Marga-Ghale/ora-discuss/internal/config"
	"github.com/Marga-Ghale/ora-discuss/internal/models"
	"github.com/Marga-Ghale/ora-discuss/internal/repository/memory"
	"github.com/Marga-Ghale/ora-discuss/internal/service"
	"github.com/Marga-Ghale/ora-discuss/internal/socket"
	"github.com/Marga-Ghale/ora-discuss/internal/storage"
)

var (
	lead  = models.Identity{ID: "lead", Username: "Lead"}
	alice = models.Identity{ID: "alice", Username: "Alice"}
	carol = models.Identity{ID: "carol", Username: "Carol"}
)

type harness struct {
	server *httptest.Server
	issuer *auth.Issuer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repos := memory.NewRepositories()
	require.NoError(t, repos.ProjectRepo.Create(context.Background(), &models.Project{
		ID:          "p1",
		Name:        "Apollo",
		TeamLeadID:  lead.ID,
		TeamMembers: []models.TeamMember{{UserID: alice.ID, Username: alice.Username}},
	}))

	ctx, cancel := context.WithCancel(context.Background())
	hub := socket.NewHub()
	go hub.Run(ctx)

	services := service.NewServices(&service.ServiceDeps{
		Config:      &config.Config{MaxUploadMB: 1},
		Repos:       repos,
		Files:       storage.NewMemoryStore(),
		Broadcaster: socket.NewBroadcaster(hub),
	})
	issuer := auth.NewIssuer("test-secret", time.Hour)

	engine := api.NewRouter(api.RouterDeps{
		Services: services,
		Hub:      hub,
		WS:       socket.NewHandler(hub, issuer, services.Project, services.Message, nil),
		Tokens:   issuer,
		Storage:  "memory",
	})
	server := httptest.NewServer(engine)
	t.Cleanup(func() {
		server.Close()
		cancel()
	})
	return &harness{server: server, issuer: issuer}
}

func (h *harness) token(t *testing.T, who models.Identity) string {
	token, err := h.issuer.Issue(who)
	require.NoError(t, err)
	return token
}

func (h *harness) transport(t *testing.T, who models.Identity) *Transport {
	url := "ws" + strings.TrimPrefix(h.server.URL, "http") + "/api/ws"
	tr := NewTransport(url, h.token(t, who))
	require.NoError(t, tr.Connect(context.Background()))
	t.Cleanup(func() { _ = tr.Close() })

	// The pong proves the hub has attached the connection to its user room.
	require.NoError(t, tr.Ping())
	next(t, tr, socket.EventPong)
	return tr
}

func (h *harness) api(t *testing.T, who models.Identity) *API {
	return NewAPI(h.server.URL, h.token(t, who))
}

// next waits for the first event of type want, skipping others.
func next(t *testing.T, tr *Transport, want socket.EventType) socket.Payload {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case env, ok := <-tr.Events():
			require.True(t, ok, "event stream closed")
			if env.Type != want {
				continue
			}
			p, err := env.Decode()
			require.NoError(t, err)
			return p
		case <-timeout:
			t.Fatalf("no %s event", want)
		}
	}
}

func TestTransportJoinAndSend(t *testing.T) {
	h := newHarness(t)
	a := h.transport(t, alice)
	l := h.transport(t, lead)

	require.NoError(t, a.Join("p1"))
	ack := next(t, a, socket.EventAck).(*socket.AckPayload)
	assert.Equal(t, "joined", ack.Action)

	require.NoError(t, l.Join("p1"))
	next(t, l, socket.EventAck)

	require.NoError(t, a.Send("p1", "hello"))
	msg := next(t, l, socket.EventMessage).(*socket.MessagePayload)
	assert.Equal(t, "hello", msg.Body)
	assert.Equal(t, "Alice", msg.SenderName)

	history, err := h.api(t, lead).History(context.Background(), "p1", 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "hello", history[0].Body)
}

func TestTransportJoinRefusedForOutsider(t *testing.T) {
	h := newHarness(t)
	c := h.transport(t, carol)

	require.NoError(t, c.Join("p1"))
	errEvent := next(t, c, socket.EventError).(*socket.ErrorPayload)
	assert.Equal(t, "join", errEvent.Action)
}

func TestTransportNotConnected(t *testing.T) {
	tr := NewTransport("ws://127.0.0.1:1/api/ws", "token")
	assert.ErrorIs(t, tr.Join("p1"), ErrNotConnected)
	require.NoError(t, tr.Close())
	assert.ErrorIs(t, tr.Connect(context.Background()), ErrClosed)
}

func TestAPIJoinRequestLifecycle(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	leadEvents := h.transport(t, lead)
	carolEvents := h.transport(t, carol)

	created, err := h.api(t, carol).RequestJoin(ctx, models.JoinRequestRequest{
		RecipientUserID: lead.ID, ProjectID: "p1", Role: "developer",
	})
	require.NoError(t, err)
	assert.False(t, created.Refreshed)

	requested := next(t, leadEvents, socket.EventNotificationRequested).(*socket.NotificationPayload)
	assert.Equal(t, created.Notification.ID, requested.ID)

	pending, err := h.api(t, lead).ListNotifications(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	accepted, err := h.api(t, lead).Accept(ctx, pending[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeAdded, accepted.Outcome)

	resolved := next(t, carolEvents, socket.EventNotificationResolved).(*socket.ResolutionPayload)
	assert.Equal(t, models.StateAccepted, resolved.State)

	_, err = h.api(t, lead).Reject(ctx, pending[0].ID)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 404, apiErr.Status)
}
