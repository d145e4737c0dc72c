package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Marga-Ghale/ora-discuss/internal/models"
	"github.com/Marga-Ghale/ora-discuss/internal/repository"
)

type messageRepository struct {
	db *messageTable
}

func NewMessageRepository(db *DB) repository.MessageRepository {
	return &messageRepository{db: db.messages}
}

func (repo *messageRepository) Create(_ context.Context, msg *models.Message) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	repo.db.byProject[msg.ProjectID] = append(repo.db.byProject[msg.ProjectID], *msg)
	return nil
}

func (repo *messageRepository) ListByProject(_ context.Context, projectID string, limit int) ([]*models.Message, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	all := repo.db.byProject[projectID]
	start := 0
	if limit > 0 && len(all) > limit {
		start = len(all) - limit
	}
	out := make([]*models.Message, 0, len(all)-start)
	for i := start; i < len(all); i++ {
		m := all[i]
		out = append(out, &m)
	}
	return out, nil
}
