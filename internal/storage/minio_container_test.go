package storage

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcminio "github.com/testcontainers/testcontainers-go/modules/minio"
)

const minioImage = "minio/minio:RELEASE.2024-01-16T16-07-38Z"

// setupMinio starts a throwaway MinIO server and returns its config.
func setupMinio(t *testing.T) MinioConfig {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping minio integration test in short mode")
	}

	ctx := context.Background()
	ctr, err := tcminio.Run(ctx, minioImage,
		tcminio.WithUsername("ora-admin"),
		tcminio.WithPassword("ora-secret-key"),
	)
	if err != nil {
		t.Skipf("minio container unavailable: %v", err)
	}
	t.Cleanup(func() {
		if err := ctr.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate minio container: %v", err)
		}
	})

	endpoint, err := ctr.ConnectionString(ctx)
	require.NoError(t, err)

	return MinioConfig{
		Endpoint:  endpoint,
		AccessKey: ctr.Username,
		SecretKey: ctr.Password,
		Bucket:    "ora-files",
	}
}

func TestMinioStoreRoundTrip(t *testing.T) {
	cfg := setupMinio(t)
	ctx := context.Background()

	s, err := NewMinioStore(ctx, cfg)
	require.NoError(t, err)

	// Creating the store twice reuses the bucket.
	_, err = NewMinioStore(ctx, cfg)
	require.NoError(t, err)

	require.NoError(t, s.Put(ctx, "p1/f1", strings.NewReader("meeting notes"), -1, "text/plain"))

	rc, err := s.Get(ctx, "p1/f1")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "meeting notes", string(data))

	_, err = s.Get(ctx, "p1/missing")
	assert.ErrorIs(t, err, ErrObjectNotFound)

	require.NoError(t, s.Remove(ctx, "p1/f1"))
	_, err = s.Get(ctx, "p1/f1")
	assert.ErrorIs(t, err, ErrObjectNotFound)

	// Removing an absent key is not an error on S3.
	assert.NoError(t, s.Remove(ctx, "p1/f1"))
}

func TestMinioStoreBadCredentialsFailFast(t *testing.T) {
	cfg := setupMinio(t)
	cfg.SecretKey = "not-the-secret"

	start := time.Now()
	_, err := NewMinioStore(context.Background(), cfg)
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second, "permanent errors are not retried")
}
