package blob_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caseprep/internal/blob"
	apperr "caseprep/internal/errors"
)

func TestFile_Read(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.enc")
	require.NoError(t, os.WriteFile(path, []byte("sealed"), 0o600))

	src := blob.NewFile(path)
	data, err := src.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sealed", string(data))
	assert.Equal(t, path, src.Name())
}

func TestFile_ReadMissing(t *testing.T) {
	src := blob.NewFile(filepath.Join(t.TempDir(), "missing.enc"))
	_, err := src.Read(context.Background())
	require.Error(t, err)
	assert.True(t, apperr.IsSourceRead(err), "got: %v", err)
}

func TestBytes_ReadReturnsCopy(t *testing.T) {
	src := blob.NewBytes("mem", []byte("abc"))

	first, err := src.Read(context.Background())
	require.NoError(t, err)
	first[0] = 'z'

	second, err := src.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc", string(second))
}

func TestBytes_ReadCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := blob.NewBytes("mem", []byte("abc")).Read(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOpen(t *testing.T) {
	objects, err := blob.NewObjectStore(blob.ObjectStoreConfig{Endpoint: "http://127.0.0.1:9000"})
	require.NoError(t, err)

	tests := []struct {
		name     string
		location string
		objects  *blob.ObjectStore
		wantName string
		wantErr  bool
	}{
		{"plain path", "./data/index.enc", nil, "./data/index.enc", false},
		{"file uri", "file:///srv/index.enc", nil, "/srv/index.enc", false},
		{"s3 object", "s3://artifacts/v1/index.enc", objects, "s3://artifacts/v1/index.enc", false},
		{"s3 without storage", "s3://artifacts/index.enc", nil, "", true},
		{"s3 without key", "s3://artifacts", objects, "", true},
		{"unknown scheme", "gs://bucket/key", nil, "", true},
		{"empty", "  ", nil, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := blob.Open(tt.location, tt.objects)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperr.IsInvalidInput(err), "got: %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, src.Name())
		})
	}
}

func TestNewObjectStore_EmptyEndpoint(t *testing.T) {
	_, err := blob.NewObjectStore(blob.ObjectStoreConfig{})
	require.Error(t, err)
}
