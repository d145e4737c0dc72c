package service

import (
	"context"

	"github.com/Marga-Ghale/ora-discuss/internal/config"
	"github.com/Marga-Ghale/ora-discuss/internal/models"
	"github.com/Marga-Ghale/ora-discuss/internal/repository"
	"github.com/Marga-Ghale/ora-discuss/internal/socket"
	"github.com/Marga-Ghale/ora-discuss/internal/storage"
)

// ============================================
// Services Container
// ============================================

type Services struct {
	Project     ProjectService
	Message     MessageService
	File        FileService
	Ledger      LedgerService
	Broadcaster *socket.Broadcaster

	// MaxUploadBytes caps a single uploaded file.
	MaxUploadBytes int64
}

// ServiceDeps contains all dependencies needed to create services
type ServiceDeps struct {
	Config      *config.Config
	Repos       *repository.Repositories
	Files       storage.FileStore
	Broadcaster *socket.Broadcaster
}

func NewServices(deps *ServiceDeps) *Services {
	// Messages and file events for one project go out in commit order.
	locks := newKeyedMutex()

	maxUpload := int64(25) << 20
	if deps.Config != nil && deps.Config.MaxUploadMB > 0 {
		maxUpload = int64(deps.Config.MaxUploadMB) << 20
	}

	return &Services{
		Project:     NewProjectService(deps.Repos.ProjectRepo),
		Message:     newMessageService(deps.Repos.MessageRepo, deps.Repos.ProjectRepo, deps.Broadcaster, locks),
		File:        newFileService(deps.Repos.FileRepo, deps.Repos.ProjectRepo, deps.Files, deps.Broadcaster, locks, maxUpload),
		Ledger:      NewLedgerService(deps.Repos.NotificationRepo, deps.Repos.ProjectRepo, deps.Broadcaster),
		Broadcaster: deps.Broadcaster,

		MaxUploadBytes: maxUpload,
	}
}

// requireMember loads a project and checks that userID leads or belongs to it.
func requireMember(ctx context.Context, projects repository.ProjectRepository, projectID, userID string) (*models.Project, error) {
	if projectID == "" {
		return nil, invalid("project id is required")
	}
	project, err := projects.FindByID(ctx, projectID)
	if err != nil {
		return nil, upstream("load project", err)
	}
	if project == nil {
		return nil, ErrNotFound
	}
	if !project.HasMember(userID) {
		return nil, ErrForbidden
	}
	return project, nil
}
