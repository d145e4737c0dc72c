package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Marga-Ghale/ora-discuss/internal/models"
)

// NotificationRepository stores join requests. Only pending rows form the
// active ledger; resolved rows are kept until purged.
type NotificationRepository interface {
	// Upsert inserts a pending request or, when one is already pending for the
	// same (recipient, requester, project), refreshes it in place. n is updated
	// with the stored ID and timestamp.
	Upsert(ctx context.Context, n *models.Notification) (refreshed bool, err error)
	FindByID(ctx context.Context, id string) (*models.Notification, error)
	ListPending(ctx context.Context, recipientID string) ([]*models.Notification, error)
	// Resolve moves a pending request owned by recipientID to a terminal state.
	// It returns nil when no such pending request exists.
	Resolve(ctx context.Context, id, recipientID string, to models.NotificationState) (*models.Notification, error)
	Reopen(ctx context.Context, id string) error
	PurgeResolved(ctx context.Context, before time.Time) (int64, error)
}

type pgNotificationRepository struct {
	pool *pgxpool.Pool
}

func NewNotificationRepository(pool *pgxpool.Pool) NotificationRepository {
	return &pgNotificationRepository{pool: pool}
}

const notificationColumns = `id, recipient_user_id, requester_user_id, requester_name, project_id, project_name, role, created_at, state`

func scanNotification(row pgx.Row) (*models.Notification, error) {
	n := &models.Notification{}
	err := row.Scan(
		&n.ID, &n.RecipientUserID, &n.RequesterUserID, &n.RequesterName,
		&n.ProjectID, &n.ProjectName, &n.Role, &n.Timestamp, &n.State,
	)
	if err != nil {
		return nil, err
	}
	return n, nil
}

func (r *pgNotificationRepository) Upsert(ctx context.Context, n *models.Notification) (bool, error) {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now().UTC()
	}
	n.State = models.StatePending

	query := `
		INSERT INTO join_requests (id, recipient_user_id, requester_user_id, requester_name, project_id, project_name, role, state, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'pending', $8)
		ON CONFLICT (recipient_user_id, requester_user_id, project_id) WHERE state = 'pending'
		DO UPDATE SET
			requester_name = EXCLUDED.requester_name,
			project_name   = EXCLUDED.project_name,
			role           = EXCLUDED.role,
			created_at     = EXCLUDED.created_at
		RETURNING id, created_at, (xmax = 0) AS inserted
	`
	var inserted bool
	err := r.pool.QueryRow(ctx, query,
		n.ID, n.RecipientUserID, n.RequesterUserID, n.RequesterName,
		n.ProjectID, n.ProjectName, n.Role, n.Timestamp,
	).Scan(&n.ID, &n.Timestamp, &inserted)
	if err != nil {
		return false, err
	}
	return !inserted, nil
}

func (r *pgNotificationRepository) FindByID(ctx context.Context, id string) (*models.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM join_requests WHERE id = $1`
	n, err := scanNotification(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return n, err
}

func (r *pgNotificationRepository) ListPending(ctx context.Context, recipientID string) ([]*models.Notification, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM join_requests
		WHERE recipient_user_id = $1 AND state = 'pending'
		ORDER BY created_at DESC, id DESC
	`
	rows, err := r.pool.Query(ctx, query, recipientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *pgNotificationRepository) Resolve(ctx context.Context, id, recipientID string, to models.NotificationState) (*models.Notification, error) {
	query := `
		UPDATE join_requests
		SET state = $3, resolved_at = NOW()
		WHERE id = $1 AND recipient_user_id = $2 AND state = 'pending'
		RETURNING ` + notificationColumns
	n, err := scanNotification(r.pool.QueryRow(ctx, query, id, recipientID, to))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return n, err
}

func (r *pgNotificationRepository) Reopen(ctx context.Context, id string) error {
	query := `UPDATE join_requests SET state = 'pending', resolved_at = NULL WHERE id = $1 AND state <> 'pending'`
	_, err := r.pool.Exec(ctx, query, id)
	if isUniqueViolation(err) {
		return ErrDuplicatePending
	}
	return err
}

func (r *pgNotificationRepository) PurgeResolved(ctx context.Context, before time.Time) (int64, error) {
	query := `DELETE FROM join_requests WHERE state <> 'pending' AND resolved_at < $1`
	tag, err := r.pool.Exec(ctx, query, before)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
