package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/Marga-Ghale/ora-discuss/internal/models"
	"github.com/Marga-Ghale/ora-discuss/internal/repository"
)

type notificationRow struct {
	models.Notification
	resolvedAt time.Time
}

type notificationRepository struct {
	db *notificationTable
}

func NewNotificationRepository(db *DB) repository.NotificationRepository {
	return &notificationRepository{db: db.notifications}
}

// pendingFor finds the pending row for a (recipient, requester, project) key.
func (repo *notificationRepository) pendingFor(n *models.Notification) *notificationRow {
	for _, row := range repo.db.t {
		if row.State == models.StatePending &&
			row.RecipientUserID == n.RecipientUserID &&
			row.RequesterUserID == n.RequesterUserID &&
			row.ProjectID == n.ProjectID {
			return row
		}
	}
	return nil
}

func (repo *notificationRepository) Upsert(_ context.Context, n *models.Notification) (bool, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now().UTC()
	}
	n.State = models.StatePending

	if existing := repo.pendingFor(n); existing != nil {
		existing.RequesterName = n.RequesterName
		existing.ProjectName = n.ProjectName
		existing.Role = n.Role
		existing.Timestamp = n.Timestamp
		n.ID = existing.ID
		return true, nil
	}

	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	repo.db.t[n.ID] = &notificationRow{Notification: *n}
	return false, nil
}

func (repo *notificationRepository) FindByID(_ context.Context, id string) (*models.Notification, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	row, ok := repo.db.t[id]
	if !ok {
		return nil, nil
	}
	n := row.Notification
	return &n, nil
}

func (repo *notificationRepository) ListPending(_ context.Context, recipientID string) ([]*models.Notification, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var out []*models.Notification
	for _, row := range repo.db.t {
		if row.RecipientUserID == recipientID && row.State == models.StatePending {
			n := row.Notification
			out = append(out, &n)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].ID > out[j].ID
		}
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}

func (repo *notificationRepository) Resolve(_ context.Context, id, recipientID string, to models.NotificationState) (*models.Notification, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	row, ok := repo.db.t[id]
	if !ok || row.RecipientUserID != recipientID || row.State != models.StatePending {
		return nil, nil
	}
	row.State = to
	row.resolvedAt = time.Now().UTC()
	n := row.Notification
	return &n, nil
}

func (repo *notificationRepository) Reopen(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	row, ok := repo.db.t[id]
	if !ok || row.State == models.StatePending {
		return nil
	}
	if other := repo.pendingFor(&row.Notification); other != nil {
		return repository.ErrDuplicatePending
	}
	row.State = models.StatePending
	row.resolvedAt = time.Time{}
	return nil
}

func (repo *notificationRepository) PurgeResolved(_ context.Context, before time.Time) (int64, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	var n int64
	for id, row := range repo.db.t {
		if row.State.IsTerminal() && row.resolvedAt.Before(before) {
			delete(repo.db.t, id)
			n++
		}
	}
	return n, nil
}
