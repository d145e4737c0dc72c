package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/Marga-Ghale/ora-discuss/internal/models"
	"github.com/Marga-Ghale/ora-discuss/internal/repository"
)

type projectRepository struct {
	db *projectTable
}

func NewProjectRepository(db *DB) repository.ProjectRepository {
	return &projectRepository{db: db.projects}
}

func cloneProject(p *models.Project) *models.Project {
	out := *p
	out.Roles = append([]string(nil), p.Roles...)
	out.TeamMembers = append([]models.TeamMember(nil), p.TeamMembers...)
	out.TaskColumns = make([]models.TaskColumn, len(p.TaskColumns))
	for i, c := range p.TaskColumns {
		c.TaskIDs = append([]string(nil), c.TaskIDs...)
		out.TaskColumns[i] = c
	}
	return &out
}

func (repo *projectRepository) Create(_ context.Context, project *models.Project) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if project.ID == "" {
		project.ID = uuid.New().String()
	}
	if project.CreatedAt.IsZero() {
		project.CreatedAt = time.Now().UTC()
	}
	repo.db.t[project.ID] = cloneProject(project)
	return nil
}

func (repo *projectRepository) FindByID(_ context.Context, id string) (*models.Project, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	p, ok := repo.db.t[id]
	if !ok {
		return nil, nil
	}
	return cloneProject(p), nil
}

func (repo *projectRepository) FetchProjectsForUser(_ context.Context, userID string) ([]*models.Project, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var out []*models.Project
	for _, p := range repo.db.t {
		if p.HasMember(userID) {
			out = append(out, cloneProject(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (repo *projectRepository) PatchTaskColumns(_ context.Context, projectID string, columns []models.TaskColumn) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	p, ok := repo.db.t[projectID]
	if !ok {
		return nil
	}
	p.TaskColumns = cloneProject(&models.Project{TaskColumns: columns}).TaskColumns
	return nil
}

func (repo *projectRepository) AddTeamMember(_ context.Context, projectID string, member models.TeamMember) (bool, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	p, ok := repo.db.t[projectID]
	if !ok {
		return false, repository.ErrProjectNotFound
	}
	for _, m := range p.TeamMembers {
		if m.UserID == member.UserID {
			return false, nil
		}
	}
	if member.JoinedAt.IsZero() {
		member.JoinedAt = time.Now().UTC()
	}
	p.TeamMembers = append(p.TeamMembers, member)
	return true, nil
}

func (repo *projectRepository) IsTeamMember(_ context.Context, projectID, userID string) (bool, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	p, ok := repo.db.t[projectID]
	if !ok {
		return false, nil
	}
	return p.HasMember(userID), nil
}
