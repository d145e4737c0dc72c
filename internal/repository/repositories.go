package repository

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
)

type Repositories struct {
	// pgxpool
	MessageRepo      MessageRepository
	FileRepo         FileRepository
	NotificationRepo NotificationRepository

	// sqlx
	ProjectRepo ProjectRepository
}

func NewRepositories(pool *pgxpool.Pool, db *sqlx.DB) *Repositories {
	return &Repositories{
		MessageRepo:      NewMessageRepository(pool),
		FileRepo:         NewFileRepository(pool),
		NotificationRepo: NewNotificationRepository(pool),
		ProjectRepo:      NewProjectRepository(db),
	}
}
