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

type FileRepository interface {
	Create(ctx context.Context, f *models.FileRecord) error
	FindByID(ctx context.Context, id string) (*models.FileRecord, error)
	// ListByProject returns newest first.
	ListByProject(ctx context.Context, projectID string) ([]*models.FileRecord, error)
	Delete(ctx context.Context, id string) error
}

type pgFileRepository struct {
	pool *pgxpool.Pool
}

func NewFileRepository(pool *pgxpool.Pool) FileRepository {
	return &pgFileRepository{pool: pool}
}

const fileColumns = `id, project_id, name, content_type, size, object_key, uploader_id, uploader_name, created_at`

func scanFile(row pgx.Row) (*models.FileRecord, error) {
	f := &models.FileRecord{}
	err := row.Scan(&f.ID, &f.ProjectID, &f.Name, &f.ContentType, &f.Size, &f.ObjectKey,
		&f.UploaderID, &f.UploaderName, &f.CreatedAt)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (r *pgFileRepository) Create(ctx context.Context, f *models.FileRecord) error {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO project_files (`+fileColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, f.ID, f.ProjectID, f.Name, f.ContentType, f.Size, f.ObjectKey, f.UploaderID, f.UploaderName, f.CreatedAt)
	return err
}

func (r *pgFileRepository) FindByID(ctx context.Context, id string) (*models.FileRecord, error) {
	f, err := scanFile(r.pool.QueryRow(ctx, `SELECT `+fileColumns+` FROM project_files WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return f, err
}

func (r *pgFileRepository) ListByProject(ctx context.Context, projectID string) ([]*models.FileRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+fileColumns+`
		FROM project_files WHERE project_id = $1
		ORDER BY created_at DESC, id DESC
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []*models.FileRecord
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

func (r *pgFileRepository) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM project_files WHERE id = $1`, id)
	return err
}
