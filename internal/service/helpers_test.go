package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Marga-Ghale/ora-discuss/internal/config"
	"github.com/Marga-Ghale/ora-discuss/internal/models"
	"github.com/Marga-Ghale/ora-discuss/internal/repository"
	"github.com/Marga-Ghale/ora-discuss/internal/repository/memory"
	"github.com/Marga-Ghale/ora-discuss/internal/socket"
	"github.com/Marga-Ghale/ora-discuss/internal/storage"
)

const (
	projectID = "p1"
	leadID    = "lead"
)

var (
	alice = models.Identity{ID: "alice", Username: "Alice"}
	bob   = models.Identity{ID: "bob", Username: "Bob"}
	carol = models.Identity{ID: "carol", Username: "Carol"}
	lead  = models.Identity{ID: leadID, Username: "Lead"}
)

type fixture struct {
	svc   *Services
	repos *repository.Repositories
	hub   *socket.Hub
	store storage.FileStore
}

type fixtureOption func(repos *repository.Repositories, store *storage.FileStore)

// newFixture seeds project p1 led by "lead" with alice and bob as members.
func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()

	repos := memory.NewRepositories()
	err := repos.ProjectRepo.Create(context.Background(), &models.Project{
		ID:         projectID,
		Name:       "Apollo",
		TeamLeadID: leadID,
		Roles:      []string{"developer", "designer"},
		TeamMembers: []models.TeamMember{
			{UserID: alice.ID, Username: alice.Username, Role: "developer"},
			{UserID: bob.ID, Username: bob.Username, Role: "designer"},
		},
	})
	require.NoError(t, err)

	var store storage.FileStore = storage.NewMemoryStore()
	for _, opt := range opts {
		opt(repos, &store)
	}

	hub := socket.NewHub()
	svc := NewServices(&ServiceDeps{
		Config:      &config.Config{MaxUploadMB: 1},
		Repos:       repos,
		Files:       store,
		Broadcaster: socket.NewBroadcaster(hub),
	})
	return &fixture{svc: svc, repos: repos, hub: hub, store: store}
}

// connect attaches a recording connection for user and joins it to rooms.
func (f *fixture) connect(user models.Identity, rooms ...string) *recordingConn {
	c := &recordingConn{id: "conn-" + user.ID, user: user.ID}
	f.hub.Attach(c)
	for _, room := range rooms {
		f.hub.Join(room, c)
	}
	return c
}

type recordingConn struct {
	id   string
	user string

	mu     sync.Mutex
	frames [][]byte
}

func (c *recordingConn) ID() string     { return c.id }
func (c *recordingConn) UserID() string { return c.user }

func (c *recordingConn) Deliver(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, data)
	return true
}

// events decodes everything received so far, optionally filtered by type.
func (c *recordingConn) events(t *testing.T, types ...socket.EventType) []socket.Payload {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []socket.Payload
	for _, data := range c.frames {
		env, err := socket.DecodeEnvelope(data)
		require.NoError(t, err)
		if len(types) > 0 && !hasType(types, env.Type) {
			continue
		}
		p, err := env.Decode()
		require.NoError(t, err)
		out = append(out, p)
	}
	return out
}

func hasType(types []socket.EventType, t socket.EventType) bool {
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}

func (c *recordingConn) messages(t *testing.T) []string {
	var bodies []string
	for _, p := range c.events(t, socket.EventMessage) {
		bodies = append(bodies, p.(*socket.MessagePayload).Body)
	}
	return bodies
}
