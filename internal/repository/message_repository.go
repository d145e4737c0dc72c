package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Marga-Ghale/ora-discuss/internal/models"
)

type MessageRepository interface {
	Create(ctx context.Context, msg *models.Message) error
	// ListByProject returns the newest limit messages in send order.
	ListByProject(ctx context.Context, projectID string, limit int) ([]*models.Message, error)
}

type pgMessageRepository struct {
	pool *pgxpool.Pool
}

func NewMessageRepository(pool *pgxpool.Pool) MessageRepository {
	return &pgMessageRepository{pool: pool}
}

func (r *pgMessageRepository) Create(ctx context.Context, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO messages (id, project_id, sender_id, sender_name, body, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, msg.ID, msg.ProjectID, msg.SenderID, msg.SenderName, msg.Body, msg.Timestamp)
	return err
}

func (r *pgMessageRepository) ListByProject(ctx context.Context, projectID string, limit int) ([]*models.Message, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, project_id, sender_id, sender_name, body, created_at
		FROM (
			SELECT seq, id, project_id, sender_id, sender_name, body, created_at
			FROM messages WHERE project_id = $1
			ORDER BY seq DESC
			LIMIT $2
		) recent
		ORDER BY seq ASC
	`, projectID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		m := &models.Message{}
		if err := rows.Scan(&m.ID, &m.ProjectID, &m.SenderID, &m.SenderName, &m.Body, &m.Timestamp); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
