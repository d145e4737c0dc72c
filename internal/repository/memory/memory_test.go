package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Marga-Ghale/ora-discuss/internal/models"
	"github.com/Marga-Ghale/ora-discuss/internal/repository"
)

func TestMessagesKeepSendOrderAndLimit(t *testing.T) {
	ctx := context.Background()
	repo := NewMessageRepository(Open())

	for _, body := range []string{"one", "two", "three"} {
		require.NoError(t, repo.Create(ctx, &models.Message{ProjectID: "p1", Body: body}))
	}
	require.NoError(t, repo.Create(ctx, &models.Message{ProjectID: "p2", Body: "elsewhere"}))

	all, err := repo.ListByProject(ctx, "p1", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "one", all[0].Body)
	assert.Equal(t, "three", all[2].Body)

	recent, err := repo.ListByProject(ctx, "p1", 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "two", recent[0].Body)
	assert.Equal(t, "three", recent[1].Body)
}

func TestNotificationUpsertRefreshesPending(t *testing.T) {
	ctx := context.Background()
	repo := NewNotificationRepository(Open())

	first := &models.Notification{RecipientUserID: "lead", RequesterUserID: "u1", ProjectID: "p1", Role: "dev"}
	refreshed, err := repo.Upsert(ctx, first)
	require.NoError(t, err)
	assert.False(t, refreshed)

	second := &models.Notification{RecipientUserID: "lead", RequesterUserID: "u1", ProjectID: "p1", Role: "qa"}
	refreshed, err = repo.Upsert(ctx, second)
	require.NoError(t, err)
	assert.True(t, refreshed)
	assert.Equal(t, first.ID, second.ID)

	pending, err := repo.ListPending(ctx, "lead")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "qa", pending[0].Role)
}

func TestNotificationResolveIsCompareAndSet(t *testing.T) {
	ctx := context.Background()
	repo := NewNotificationRepository(Open())

	n := &models.Notification{RecipientUserID: "lead", RequesterUserID: "u1", ProjectID: "p1", Role: "dev"}
	_, err := repo.Upsert(ctx, n)
	require.NoError(t, err)

	foreign, err := repo.Resolve(ctx, n.ID, "someone-else", models.StateAccepted)
	require.NoError(t, err)
	assert.Nil(t, foreign)

	won, err := repo.Resolve(ctx, n.ID, "lead", models.StateAccepted)
	require.NoError(t, err)
	require.NotNil(t, won)
	assert.Equal(t, models.StateAccepted, won.State)

	again, err := repo.Resolve(ctx, n.ID, "lead", models.StateRejected)
	require.NoError(t, err)
	assert.Nil(t, again)
}

func TestNotificationReopenRefusesDuplicatePending(t *testing.T) {
	ctx := context.Background()
	repo := NewNotificationRepository(Open())

	n := &models.Notification{RecipientUserID: "lead", RequesterUserID: "u1", ProjectID: "p1", Role: "dev"}
	_, err := repo.Upsert(ctx, n)
	require.NoError(t, err)
	_, err = repo.Resolve(ctx, n.ID, "lead", models.StateAccepted)
	require.NoError(t, err)

	newer := &models.Notification{RecipientUserID: "lead", RequesterUserID: "u1", ProjectID: "p1", Role: "dev"}
	_, err = repo.Upsert(ctx, newer)
	require.NoError(t, err)
	assert.NotEqual(t, n.ID, newer.ID)

	assert.ErrorIs(t, repo.Reopen(ctx, n.ID), repository.ErrDuplicatePending)
}

func TestNotificationPurgeOnlyResolved(t *testing.T) {
	ctx := context.Background()
	repo := NewNotificationRepository(Open())

	resolved := &models.Notification{RecipientUserID: "lead", RequesterUserID: "u1", ProjectID: "p1", Role: "dev"}
	pending := &models.Notification{RecipientUserID: "lead", RequesterUserID: "u2", ProjectID: "p1", Role: "dev"}
	_, _ = repo.Upsert(ctx, resolved)
	_, _ = repo.Upsert(ctx, pending)
	_, err := repo.Resolve(ctx, resolved.ID, "lead", models.StateRejected)
	require.NoError(t, err)

	n, err := repo.PurgeResolved(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	gone, _ := repo.FindByID(ctx, resolved.ID)
	assert.Nil(t, gone)
	kept, _ := repo.FindByID(ctx, pending.ID)
	assert.NotNil(t, kept)
}

func TestAddTeamMemberIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := NewProjectRepository(Open())

	p := &models.Project{Name: "Apollo", TeamLeadID: "lead"}
	require.NoError(t, repo.Create(ctx, p))

	added, err := repo.AddTeamMember(ctx, p.ID, models.TeamMember{UserID: "u1", Role: "dev"})
	require.NoError(t, err)
	assert.True(t, added)

	added, err = repo.AddTeamMember(ctx, p.ID, models.TeamMember{UserID: "u1", Role: "dev"})
	require.NoError(t, err)
	assert.False(t, added)

	_, err = repo.AddTeamMember(ctx, "missing", models.TeamMember{UserID: "u1"})
	assert.ErrorIs(t, err, repository.ErrProjectNotFound)

	ok, err := repo.IsTeamMember(ctx, p.ID, "lead")
	require.NoError(t, err)
	assert.True(t, ok)

	projects, err := repo.FetchProjectsForUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Len(t, projects[0].TeamMembers, 1)
}
