package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/Marga-Ghale/ora-discuss/internal/models"
	"github.com/Marga-Ghale/ora-discuss/internal/repository"
)

type fileRepository struct {
	db *fileTable
}

func NewFileRepository(db *DB) repository.FileRepository {
	return &fileRepository{db: db.files}
}

func (repo *fileRepository) Create(_ context.Context, f *models.FileRecord) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}
	stored := *f
	repo.db.t[f.ID] = &stored
	return nil
}

func (repo *fileRepository) FindByID(_ context.Context, id string) (*models.FileRecord, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	f, ok := repo.db.t[id]
	if !ok {
		return nil, nil
	}
	out := *f
	return &out, nil
}

func (repo *fileRepository) ListByProject(_ context.Context, projectID string) ([]*models.FileRecord, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var out []*models.FileRecord
	for _, f := range repo.db.t {
		if f.ProjectID == projectID {
			cp := *f
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (repo *fileRepository) Delete(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	delete(repo.db.t, id)
	return nil
}
