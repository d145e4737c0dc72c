// Package memory keeps every table in process memory. It backs the
// STORAGE_DRIVER=memory mode and the service tests.
package memory

import (
	"sync"

	"github.com/Marga-Ghale/ora-discuss/internal/models"
	"github.com/Marga-Ghale/ora-discuss/internal/repository"
)

type (
	DB struct {
		messages      *messageTable
		files         *fileTable
		notifications *notificationTable
		projects      *projectTable
	}

	messageTable struct {
		byProject map[string][]models.Message
		mutex     sync.RWMutex
	}

	fileTable struct {
		t     map[string]*models.FileRecord
		mutex sync.RWMutex
	}

	notificationTable struct {
		t     map[string]*notificationRow
		mutex sync.RWMutex
	}

	projectTable struct {
		t     map[string]*models.Project
		mutex sync.RWMutex
	}
)

func Open() *DB {
	return &DB{
		messages:      &messageTable{byProject: make(map[string][]models.Message)},
		files:         &fileTable{t: make(map[string]*models.FileRecord)},
		notifications: &notificationTable{t: make(map[string]*notificationRow)},
		projects:      &projectTable{t: make(map[string]*models.Project)},
	}
}

// NewRepositories wires every in-memory repository over a fresh DB.
func NewRepositories() *repository.Repositories {
	db := Open()
	return &repository.Repositories{
		MessageRepo:      NewMessageRepository(db),
		FileRepo:         NewFileRepository(db),
		NotificationRepo: NewNotificationRepository(db),
		ProjectRepo:      NewProjectRepository(db),
	}
}
