package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Marga-Ghale/ora-discuss/internal/models"
	"github.com/Marga-Ghale/ora-discuss/internal/repository"
	"github.com/Marga-Ghale/ora-discuss/internal/socket"
	"github.com/Marga-Ghale/ora-discuss/internal/storage"
)

type UploadInput struct {
	ProjectID string
	Uploader  models.Identity
	Name      string
	Size      int64
	Reader    io.Reader
}

// FileService stores project files and announces uploads and deletions once
// they are committed.
type FileService interface {
	Upload(ctx context.Context, in UploadInput) (*models.FileRecord, error)
	Delete(ctx context.Context, projectID, fileID string, actor models.Identity) error
	List(ctx context.Context, projectID, viewerID string) ([]*models.FileRecord, error)
	Open(ctx context.Context, fileID, viewerID string) (*models.FileRecord, io.ReadCloser, error)
}

type fileService struct {
	fileRepo    repository.FileRepository
	projectRepo repository.ProjectRepository
	store       storage.FileStore
	broadcaster *socket.Broadcaster
	locks       *keyedMutex
	maxBytes    int64
}

func newFileService(
	fileRepo repository.FileRepository,
	projectRepo repository.ProjectRepository,
	store storage.FileStore,
	broadcaster *socket.Broadcaster,
	locks *keyedMutex,
	maxBytes int64,
) FileService {
	return &fileService{
		fileRepo:    fileRepo,
		projectRepo: projectRepo,
		store:       store,
		broadcaster: broadcaster,
		locks:       locks,
		maxBytes:    maxBytes,
	}
}

func objectKey(projectID, fileID string) string {
	return fmt.Sprintf("projects/%s/%s", projectID, fileID)
}

func (s *fileService) Upload(ctx context.Context, in UploadInput) (*models.FileRecord, error) {
	name := strings.TrimSpace(filepath.Base(filepath.Clean("/" + in.Name)))
	if name == "" || name == "/" || name == "." {
		return nil, invalid("file name is required")
	}
	if in.Reader == nil {
		return nil, invalid("file content is required")
	}
	if in.Size > s.maxBytes {
		return nil, invalid("file exceeds %d bytes", s.maxBytes)
	}
	if _, err := requireMember(ctx, s.projectRepo, in.ProjectID, in.Uploader.ID); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(in.Reader, s.maxBytes+1))
	if err != nil {
		return nil, invalid("read upload: %v", err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, invalid("file exceeds %d bytes", s.maxBytes)
	}

	record := &models.FileRecord{
		ID:           uuid.New().String(),
		ProjectID:    in.ProjectID,
		Name:         name,
		ContentType:  mimetype.Detect(data).String(),
		Size:         int64(len(data)),
		UploaderID:   in.Uploader.ID,
		UploaderName: in.Uploader.Username,
		CreatedAt:    time.Now().UTC(),
	}
	record.ObjectKey = objectKey(record.ProjectID, record.ID)

	if err := s.store.Put(ctx, record.ObjectKey, bytes.NewReader(data), record.Size, record.ContentType); err != nil {
		return nil, upstream("store file", err)
	}

	unlock := s.locks.Lock(in.ProjectID)
	defer unlock()

	if err := s.fileRepo.Create(ctx, record); err != nil {
		if rmErr := s.store.Remove(context.WithoutCancel(ctx), record.ObjectKey); rmErr != nil {
			log.Warn().Err(rmErr).Str("key", record.ObjectKey).Msg("orphaned object after failed upload")
		}
		return nil, upstream("record file", err)
	}

	if s.broadcaster != nil {
		s.broadcaster.NotifyUploaded(ctx, *record, models.FileEvent{
			Kind:         models.FileUploaded,
			FileID:       record.ID,
			ProjectID:    record.ProjectID,
			UploaderName: record.UploaderName,
			Timestamp:    record.CreatedAt,
			Metadata: map[string]string{
				"name":        record.Name,
				"contentType": record.ContentType,
			},
		})
	}
	return record, nil
}

// Delete commits on the record. A failed object removal afterwards only
// leaves an unreferenced object behind, so fileDeleted is still published:
// the file is gone from the project as soon as its record is.
func (s *fileService) Delete(ctx context.Context, projectID, fileID string, actor models.Identity) error {
	if fileID == "" {
		return invalid("file id is required")
	}
	if _, err := requireMember(ctx, s.projectRepo, projectID, actor.ID); err != nil {
		return err
	}

	unlock := s.locks.Lock(projectID)
	defer unlock()

	record, err := s.fileRepo.FindByID(ctx, fileID)
	if err != nil {
		return upstream("load file", err)
	}
	if record == nil || record.ProjectID != projectID {
		return ErrNotFound
	}

	if err := s.fileRepo.Delete(ctx, fileID); err != nil {
		return upstream("delete file record", err)
	}
	if err := s.store.Remove(ctx, record.ObjectKey); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
		log.Warn().Err(err).Str("key", record.ObjectKey).Msg("orphaned object after delete")
	}

	if s.broadcaster != nil {
		s.broadcaster.NotifyDeleted(ctx, models.FileEvent{
			Kind:         models.FileDeleted,
			FileID:       record.ID,
			ProjectID:    record.ProjectID,
			UploaderName: actor.Username,
			Timestamp:    time.Now().UTC(),
			Metadata:     map[string]string{"name": record.Name},
		})
	}
	return nil
}

func (s *fileService) List(ctx context.Context, projectID, viewerID string) ([]*models.FileRecord, error) {
	if _, err := requireMember(ctx, s.projectRepo, projectID, viewerID); err != nil {
		return nil, err
	}
	files, err := s.fileRepo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, upstream("list files", err)
	}
	if files == nil {
		files = []*models.FileRecord{}
	}
	return files, nil
}

func (s *fileService) Open(ctx context.Context, fileID, viewerID string) (*models.FileRecord, io.ReadCloser, error) {
	record, err := s.fileRepo.FindByID(ctx, fileID)
	if err != nil {
		return nil, nil, upstream("load file", err)
	}
	if record == nil {
		return nil, nil, ErrNotFound
	}
	if _, err := requireMember(ctx, s.projectRepo, record.ProjectID, viewerID); err != nil {
		return nil, nil, err
	}

	rc, err := s.store.Get(ctx, record.ObjectKey)
	if errors.Is(err, storage.ErrObjectNotFound) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, upstream("open file", err)
	}
	return record, rc, nil
}
