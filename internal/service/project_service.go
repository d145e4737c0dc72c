package service

import (
	"context"

	"github.com/Marga-Ghale/ora-discuss/internal/models"
	"github.com/Marga-Ghale/ora-discuss/internal/repository"
)

// ProjectService exposes the parts of the project store the discussion
// pages need. It also decides who may subscribe to a project room.
type ProjectService interface {
	ListForUser(ctx context.Context, userID string) ([]*models.Project, error)
	Get(ctx context.Context, projectID, userID string) (*models.Project, error)
	PatchColumns(ctx context.Context, projectID, userID string, columns []models.TaskColumn) (*models.Project, error)
	CanJoin(ctx context.Context, userID, projectID string) error
}

type projectService struct {
	projectRepo repository.ProjectRepository
}

func NewProjectService(projectRepo repository.ProjectRepository) ProjectService {
	return &projectService{projectRepo: projectRepo}
}

func (s *projectService) ListForUser(ctx context.Context, userID string) ([]*models.Project, error) {
	projects, err := s.projectRepo.FetchProjectsForUser(ctx, userID)
	if err != nil {
		return nil, upstream("fetch projects", err)
	}
	if projects == nil {
		projects = []*models.Project{}
	}
	return projects, nil
}

func (s *projectService) Get(ctx context.Context, projectID, userID string) (*models.Project, error) {
	return requireMember(ctx, s.projectRepo, projectID, userID)
}

// PatchColumns replaces the kanban columns. Column IDs must be unique and a
// task may sit in one column only.
func (s *projectService) PatchColumns(ctx context.Context, projectID, userID string, columns []models.TaskColumn) (*models.Project, error) {
	project, err := requireMember(ctx, s.projectRepo, projectID, userID)
	if err != nil {
		return nil, err
	}

	seenColumns := make(map[string]bool, len(columns))
	seenTasks := make(map[string]string)
	for _, col := range columns {
		if col.ID == "" {
			return nil, invalid("column id is required")
		}
		if seenColumns[col.ID] {
			return nil, invalid("duplicate column %q", col.ID)
		}
		seenColumns[col.ID] = true
		for _, taskID := range col.TaskIDs {
			if other, ok := seenTasks[taskID]; ok {
				return nil, invalid("task %q is in columns %q and %q", taskID, other, col.ID)
			}
			seenTasks[taskID] = col.ID
		}
	}

	if err := s.projectRepo.PatchTaskColumns(ctx, projectID, columns); err != nil {
		return nil, upstream("patch task columns", err)
	}
	project.TaskColumns = columns
	return project, nil
}

// CanJoin allows the project lead and team members.
func (s *projectService) CanJoin(ctx context.Context, userID, projectID string) error {
	_, err := requireMember(ctx, s.projectRepo, projectID, userID)
	return err
}
