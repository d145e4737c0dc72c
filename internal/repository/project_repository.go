package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/Marga-Ghale/ora-discuss/internal/models"
)

// ProjectRepository is the contract with the project store. Team membership
// includes the project lead.
type ProjectRepository interface {
	Create(ctx context.Context, project *models.Project) error
	FindByID(ctx context.Context, id string) (*models.Project, error)
	FetchProjectsForUser(ctx context.Context, userID string) ([]*models.Project, error)
	PatchTaskColumns(ctx context.Context, projectID string, columns []models.TaskColumn) error
	// AddTeamMember is idempotent; added is false when the user was already listed.
	AddTeamMember(ctx context.Context, projectID string, member models.TeamMember) (added bool, err error)
	IsTeamMember(ctx context.Context, projectID, userID string) (bool, error)
}

type projectRow struct {
	ID          string         `db:"id"`
	Name        string         `db:"name"`
	TeamLeadID  string         `db:"team_lead_id"`
	Roles       types.JSONText `db:"roles"`
	TaskColumns types.JSONText `db:"task_columns"`
	CreatedAt   time.Time      `db:"created_at"`
}

func (row projectRow) toModel() (*models.Project, error) {
	p := &models.Project{
		ID:         row.ID,
		Name:       row.Name,
		TeamLeadID: row.TeamLeadID,
		CreatedAt:  row.CreatedAt,
	}
	if err := row.Roles.Unmarshal(&p.Roles); err != nil {
		return nil, err
	}
	if err := row.TaskColumns.Unmarshal(&p.TaskColumns); err != nil {
		return nil, err
	}
	return p, nil
}

type memberRow struct {
	ProjectID string `db:"project_id"`
	models.TeamMember
}

type sqlxProjectRepository struct {
	db *sqlx.DB
}

func NewProjectRepository(db *sqlx.DB) ProjectRepository {
	return &sqlxProjectRepository{db: db}
}

func (r *sqlxProjectRepository) Create(ctx context.Context, project *models.Project) error {
	if project.ID == "" {
		project.ID = uuid.New().String()
	}
	if project.CreatedAt.IsZero() {
		project.CreatedAt = time.Now().UTC()
	}
	roles, err := json.Marshal(nonNil(project.Roles))
	if err != nil {
		return err
	}
	columns, err := json.Marshal(nonNilColumns(project.TaskColumns))
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO projects (id, name, team_lead_id, roles, task_columns, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, project.ID, project.Name, project.TeamLeadID, types.JSONText(roles), types.JSONText(columns), project.CreatedAt)
	if err != nil {
		return err
	}

	for _, m := range project.TeamMembers {
		if m.JoinedAt.IsZero() {
			m.JoinedAt = project.CreatedAt
		}
		if _, err := tx.ExecContext(ctx, insertMemberQuery, project.ID, m.UserID, m.Username, m.Role, m.JoinedAt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *sqlxProjectRepository) FindByID(ctx context.Context, id string) (*models.Project, error) {
	var row projectRow
	err := r.db.GetContext(ctx, &row, `
		SELECT id, name, team_lead_id, roles, task_columns, created_at
		FROM projects WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	project, err := row.toModel()
	if err != nil {
		return nil, err
	}
	if err := r.attachMembers(ctx, []*models.Project{project}); err != nil {
		return nil, err
	}
	return project, nil
}

func (r *sqlxProjectRepository) FetchProjectsForUser(ctx context.Context, userID string) ([]*models.Project, error) {
	var rows []projectRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT p.id, p.name, p.team_lead_id, p.roles, p.task_columns, p.created_at
		FROM projects p
		WHERE p.team_lead_id = $1
		   OR EXISTS (SELECT 1 FROM project_members m WHERE m.project_id = p.id AND m.user_id = $1)
		ORDER BY p.created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}

	projects := make([]*models.Project, 0, len(rows))
	for _, row := range rows {
		p, err := row.toModel()
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	if err := r.attachMembers(ctx, projects); err != nil {
		return nil, err
	}
	return projects, nil
}

func (r *sqlxProjectRepository) attachMembers(ctx context.Context, projects []*models.Project) error {
	if len(projects) == 0 {
		return nil
	}
	byID := make(map[string]*models.Project, len(projects))
	ids := make([]string, 0, len(projects))
	for _, p := range projects {
		byID[p.ID] = p
		p.TeamMembers = []models.TeamMember{}
		ids = append(ids, p.ID)
	}

	query, args, err := sqlx.In(`
		SELECT project_id, user_id, username, role, joined_at
		FROM project_members WHERE project_id IN (?)
		ORDER BY joined_at, user_id
	`, ids)
	if err != nil {
		return err
	}

	var members []memberRow
	if err := r.db.SelectContext(ctx, &members, r.db.Rebind(query), args...); err != nil {
		return err
	}
	for _, m := range members {
		if p, ok := byID[m.ProjectID]; ok {
			p.TeamMembers = append(p.TeamMembers, m.TeamMember)
		}
	}
	return nil
}

func (r *sqlxProjectRepository) PatchTaskColumns(ctx context.Context, projectID string, columns []models.TaskColumn) error {
	data, err := json.Marshal(nonNilColumns(columns))
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		UPDATE projects SET task_columns = $2, updated_at = NOW() WHERE id = $1
	`, projectID, types.JSONText(data))
	return err
}

const insertMemberQuery = `
	INSERT INTO project_members (project_id, user_id, username, role, joined_at)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (project_id, user_id) DO NOTHING
`

func (r *sqlxProjectRepository) AddTeamMember(ctx context.Context, projectID string, member models.TeamMember) (bool, error) {
	if member.JoinedAt.IsZero() {
		member.JoinedAt = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx, insertMemberQuery, projectID, member.UserID, member.Username, member.Role, member.JoinedAt)
	if isForeignKeyViolation(err) {
		return false, ErrProjectNotFound
	}
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *sqlxProjectRepository) IsTeamMember(ctx context.Context, projectID, userID string) (bool, error) {
	var ok bool
	err := r.db.GetContext(ctx, &ok, `
		SELECT EXISTS (SELECT 1 FROM projects WHERE id = $1 AND team_lead_id = $2)
		    OR EXISTS (SELECT 1 FROM project_members WHERE project_id = $1 AND user_id = $2)
	`, projectID, userID)
	return ok, err
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilColumns(c []models.TaskColumn) []models.TaskColumn {
	if c == nil {
		return []models.TaskColumn{}
	}
	return c
}
