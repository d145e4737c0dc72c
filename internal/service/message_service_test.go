package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Marga-Ghale/ora-discuss/internal/models"
	"github.com/Marga-Ghale/ora-discuss/internal/repository"
	"github.com/Marga-Ghale/ora-discuss/internal/socket"
	"github.com/Marga-Ghale/ora-discuss/internal/storage"
)

func send(f *fixture, who models.Identity, body string) (*models.Message, error) {
	return f.svc.Message.Send(context.Background(), SendMessageInput{
		ProjectID:  projectID,
		SenderID:   who.ID,
		SenderName: who.Username,
		Body:       body,
	})
}

func TestSendReachesEveryMemberOnce(t *testing.T) {
	f := newFixture(t)
	a := f.connect(alice, socket.ProjectRoom(projectID))
	b := f.connect(bob, socket.ProjectRoom(projectID))
	f.hub.Join(socket.ProjectRoom(projectID), b)
	other := f.connect(carol, socket.ProjectRoom("p2"))

	msg, err := send(f, alice, "  hello  ")
	require.NoError(t, err)
	assert.Equal(t, "hello", msg.Body)

	assert.Equal(t, []string{"hello"}, a.messages(t), "sender sees its own message through the fan-out")
	assert.Equal(t, []string{"hello"}, b.messages(t))
	assert.Empty(t, other.messages(t))
}

func TestSendRejectsInvalidInput(t *testing.T) {
	f := newFixture(t)
	b := f.connect(bob, socket.ProjectRoom(projectID))

	for name, body := range map[string]string{
		"empty":      "",
		"whitespace": " \n\t ",
		"too long":   strings.Repeat("x", MaxMessageLength+1),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := send(f, alice, body)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}

	_, err := f.svc.Message.Send(context.Background(), SendMessageInput{SenderID: alice.ID, Body: "hi"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	history, err := f.svc.Message.History(context.Background(), projectID, bob.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, history)
	assert.Empty(t, b.messages(t))
}

func TestSendChecksProjectAccess(t *testing.T) {
	f := newFixture(t)

	_, err := send(f, carol, "let me in")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.Message.Send(context.Background(), SendMessageInput{ProjectID: "nope", SenderID: alice.ID, Body: "hi"})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = send(f, lead, "the lead may post")
	assert.NoError(t, err)
}

type failingMessages struct {
	repository.MessageRepository
}

func (failingMessages) Create(context.Context, *models.Message) error {
	return errors.New("connection refused")
}

func TestSendPersistFailureSkipsBroadcast(t *testing.T) {
	f := newFixture(t, func(repos *repository.Repositories, _ *storage.FileStore) {
		repos.MessageRepo = failingMessages{repos.MessageRepo}
	})
	b := f.connect(bob, socket.ProjectRoom(projectID))

	_, err := send(f, alice, "lost")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpstream)

	var ue *UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, "persist message", ue.Op)

	assert.Empty(t, b.messages(t))
}

func TestDiscussionEndToEnd(t *testing.T) {
	f := newFixture(t)
	a := f.connect(alice, socket.ProjectRoom(projectID))
	b := f.connect(bob, socket.ProjectRoom(projectID))

	_, err := send(f, alice, "hello")
	require.NoError(t, err)

	got := b.events(t, socket.EventMessage)
	require.Len(t, got, 1)
	assert.Equal(t, "Alice", got[0].(*socket.MessagePayload).SenderName)
	assert.Equal(t, "hello", got[0].(*socket.MessagePayload).Body)

	f.hub.Leave(socket.ProjectRoom(projectID), a)

	_, err = send(f, bob, "bye")
	require.NoError(t, err)

	assert.Equal(t, []string{"hello"}, a.messages(t))
	assert.Equal(t, []string{"hello", "bye"}, b.messages(t))

	history, err := f.svc.Message.History(context.Background(), projectID, bob.ID, 0)
	require.NoError(t, err)
	var bodies []string
	for _, m := range history {
		bodies = append(bodies, m.Body)
	}
	assert.Equal(t, []string{"hello", "bye"}, bodies)
}

func TestConcurrentSendsDeliverInPersistedOrder(t *testing.T) {
	f := newFixture(t)
	a := f.connect(alice, socket.ProjectRoom(projectID))
	b := f.connect(bob, socket.ProjectRoom(projectID))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			who := alice
			if i%2 == 1 {
				who = bob
			}
			_, err := send(f, who, fmt.Sprintf("m%d", i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	history, err := f.svc.Message.History(context.Background(), projectID, alice.ID, 0)
	require.NoError(t, err)
	require.Len(t, history, 50)

	persisted := make([]string, len(history))
	for i, m := range history {
		persisted[i] = m.Body
	}
	assert.Equal(t, persisted, a.messages(t))
	assert.Equal(t, persisted, b.messages(t))
}

func TestSendAsUsesIdentity(t *testing.T) {
	f := newFixture(t)
	b := f.connect(bob, socket.ProjectRoom(projectID))

	require.NoError(t, f.svc.Message.SendAs(context.Background(), alice, projectID, "from the socket"))

	got := b.events(t, socket.EventMessage)
	require.Len(t, got, 1)
	assert.Equal(t, alice.ID, got[0].(*socket.MessagePayload).SenderID)
	assert.Equal(t, "Alice", got[0].(*socket.MessagePayload).SenderName)
}
