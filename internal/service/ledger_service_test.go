package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Marga-Ghale/ora-discuss/internal/models"
	"github.com/Marga-Ghale/ora-discuss/internal/repository"
	"github.com/Marga-Ghale/ora-discuss/internal/socket"
	"github.com/Marga-Ghale/ora-discuss/internal/storage"
)

func requestJoin(f *fixture, who models.Identity, role string) (*models.Notification, bool, error) {
	return f.svc.Ledger.Request(context.Background(), RequestInput{
		RecipientUserID: leadID,
		Requester:       who,
		ProjectID:       projectID,
		Role:            role,
	})
}

func TestRequestValidation(t *testing.T) {
	f := newFixture(t)

	cases := map[string]RequestInput{
		"no recipient":  {Requester: carol, ProjectID: projectID, Role: "developer"},
		"no requester":  {RecipientUserID: leadID, ProjectID: projectID, Role: "developer"},
		"no name":       {RecipientUserID: leadID, Requester: models.Identity{ID: "dave"}, ProjectID: projectID, Role: "developer"},
		"no project":    {RecipientUserID: leadID, Requester: carol, Role: "developer"},
		"no role":       {RecipientUserID: leadID, Requester: carol, ProjectID: projectID},
		"self":          {RecipientUserID: leadID, Requester: lead, ProjectID: projectID, Role: "developer"},
		"not the lead":  {RecipientUserID: alice.ID, Requester: carol, ProjectID: projectID, Role: "developer"},
		"role not open": {RecipientUserID: leadID, Requester: carol, ProjectID: projectID, Role: "astronaut"},
		"member":        {RecipientUserID: leadID, Requester: alice, ProjectID: projectID, Role: "developer"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := f.svc.Ledger.Request(context.Background(), in)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}

	_, _, err := f.svc.Ledger.Request(context.Background(), RequestInput{
		RecipientUserID: leadID, Requester: carol, ProjectID: "nope", Role: "developer",
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRequestRefreshesDuplicate(t *testing.T) {
	f := newFixture(t)
	leadConn := f.connect(lead)

	first, refreshed, err := requestJoin(f, carol, "developer")
	require.NoError(t, err)
	assert.False(t, refreshed)
	assert.Equal(t, "Apollo", first.ProjectName)

	second, refreshed, err := requestJoin(f, carol, "designer")
	require.NoError(t, err)
	assert.True(t, refreshed)
	assert.Equal(t, first.ID, second.ID)

	pending, err := f.svc.Ledger.List(context.Background(), leadID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "designer", pending[0].Role)

	assert.Len(t, leadConn.events(t, socket.EventNotificationRequested), 2)
}

func TestListNewestFirst(t *testing.T) {
	f := newFixture(t)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for _, seed := range []struct {
		id     string
		offset time.Duration
	}{{"1", 0}, {"3", 2 * time.Minute}, {"2", time.Minute}} {
		_, err := f.repos.NotificationRepo.Upsert(context.Background(), &models.Notification{
			ID:              seed.id,
			RecipientUserID: leadID,
			RequesterUserID: "user-" + seed.id,
			RequesterName:   "User " + seed.id,
			ProjectID:       projectID,
			Role:            "developer",
			Timestamp:       base.Add(seed.offset),
		})
		require.NoError(t, err)
	}

	list, err := f.svc.Ledger.List(context.Background(), leadID)
	require.NoError(t, err)

	var ids []string
	for _, n := range list {
		ids = append(ids, n.ID)
	}
	assert.Equal(t, []string{"3", "2", "1"}, ids)
}

func TestAcceptAddsMember(t *testing.T) {
	f := newFixture(t)
	carolConn := f.connect(carol)

	n, _, err := requestJoin(f, carol, "developer")
	require.NoError(t, err)

	resolved, outcome, err := f.svc.Ledger.Accept(context.Background(), leadID, n.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeAdded, outcome)
	assert.Equal(t, models.StateAccepted, resolved.State)

	ok, err := f.repos.ProjectRepo.IsTeamMember(context.Background(), projectID, carol.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	pending, err := f.svc.Ledger.List(context.Background(), leadID)
	require.NoError(t, err)
	assert.Empty(t, pending)

	got := carolConn.events(t, socket.EventNotificationResolved)
	require.Len(t, got, 1)
	assert.Equal(t, models.OutcomeAdded, got[0].(*socket.ResolutionPayload).Outcome)
}

func TestAcceptAlreadyMember(t *testing.T) {
	f := newFixture(t)

	n, _, err := requestJoin(f, carol, "developer")
	require.NoError(t, err)

	// Carol is added some other way before the lead gets to the request.
	_, err = f.repos.ProjectRepo.AddTeamMember(context.Background(), projectID, models.TeamMember{UserID: carol.ID, Role: "designer"})
	require.NoError(t, err)

	_, outcome, err := f.svc.Ledger.Accept(context.Background(), leadID, n.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeAlreadyMember, outcome)

	project, err := f.repos.ProjectRepo.FindByID(context.Background(), projectID)
	require.NoError(t, err)
	count := 0
	for _, m := range project.TeamMembers {
		if m.UserID == carol.ID {
			count++
			assert.Equal(t, "designer", m.Role)
		}
	}
	assert.Equal(t, 1, count)

	pending, err := f.svc.Ledger.List(context.Background(), leadID)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestAcceptAndRejectForeignID(t *testing.T) {
	f := newFixture(t)

	n, _, err := requestJoin(f, carol, "developer")
	require.NoError(t, err)

	_, _, err = f.svc.Ledger.Accept(context.Background(), alice.ID, n.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.svc.Ledger.Reject(context.Background(), alice.ID, n.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, _, err = f.svc.Ledger.Accept(context.Background(), leadID, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	pending, err := f.svc.Ledger.List(context.Background(), leadID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, n.ID, pending[0].ID)
}

func TestConcurrentAcceptAndRejectHaveOneWinner(t *testing.T) {
	for i := 0; i < 20; i++ {
		f := newFixture(t)
		n, _, err := requestJoin(f, carol, "developer")
		require.NoError(t, err)

		var wg sync.WaitGroup
		var acceptErr, rejectErr error
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _, acceptErr = f.svc.Ledger.Accept(context.Background(), leadID, n.ID)
		}()
		go func() {
			defer wg.Done()
			_, rejectErr = f.svc.Ledger.Reject(context.Background(), leadID, n.ID)
		}()
		wg.Wait()

		if acceptErr == nil {
			assert.ErrorIs(t, rejectErr, ErrNotFound)
		} else {
			assert.ErrorIs(t, acceptErr, ErrNotFound)
			assert.NoError(t, rejectErr)
		}

		pending, err := f.svc.Ledger.List(context.Background(), leadID)
		require.NoError(t, err)
		assert.Empty(t, pending)
	}
}

type failingMembership struct {
	repository.ProjectRepository
}

func (failingMembership) AddTeamMember(context.Context, string, models.TeamMember) (bool, error) {
	return false, errors.New("project store timeout")
}

func TestAcceptMembershipFailureReopensRequest(t *testing.T) {
	f := newFixture(t, func(repos *repository.Repositories, _ *storage.FileStore) {
		repos.ProjectRepo = failingMembership{repos.ProjectRepo}
	})
	carolConn := f.connect(carol)

	n, _, err := requestJoin(f, carol, "developer")
	require.NoError(t, err)

	_, _, err = f.svc.Ledger.Accept(context.Background(), leadID, n.ID)
	assert.ErrorIs(t, err, ErrUpstream)

	pending, err := f.svc.Ledger.List(context.Background(), leadID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, n.ID, pending[0].ID)
	assert.Equal(t, models.StatePending, pending[0].State)

	assert.Empty(t, carolConn.events(t, socket.EventNotificationResolved))
}

func TestRejectLeavesMembershipAlone(t *testing.T) {
	f := newFixture(t)

	n, _, err := requestJoin(f, carol, "developer")
	require.NoError(t, err)

	resolved, err := f.svc.Ledger.Reject(context.Background(), leadID, n.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StateRejected, resolved.State)

	ok, err := f.repos.ProjectRepo.IsTeamMember(context.Background(), projectID, carol.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = f.svc.Ledger.Reject(context.Background(), leadID, n.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPurgeDropsResolvedOnly(t *testing.T) {
	f := newFixture(t)

	resolved, _, err := requestJoin(f, carol, "developer")
	require.NoError(t, err)
	_, err = f.svc.Ledger.Reject(context.Background(), leadID, resolved.ID)
	require.NoError(t, err)

	pending, _, err := requestJoin(f, models.Identity{ID: "dave", Username: "Dave"}, "designer")
	require.NoError(t, err)

	n, err := f.svc.Ledger.Purge(context.Background(), -time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	stored, err := f.repos.NotificationRepo.FindByID(context.Background(), pending.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored)
}
