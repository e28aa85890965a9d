package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caseprep/internal/config"
	apperr "caseprep/internal/errors"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "fernet", cfg.Key.Cipher)
	assert.Equal(t, "env://CASEPREP_DECRYPTION_KEY", cfg.Key.Source)
	assert.Equal(t, "openai", cfg.Embedder.Provider)
	assert.Equal(t, "all-MiniLM-L6-v2", cfg.Embedder.Model)
	assert.Equal(t, 3, cfg.Store.DefaultN)
	assert.Equal(t, config.OverfetchConfig{Fixed: 20, Factor: 4}, cfg.Store.Overfetch)
	assert.Empty(t, cfg.Validate())
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
store:
  index: s3://artifacts/faiss_index.encrypted
  metadata: ./metadata.encrypted
key:
  source: keyring://caseprep/decryption
embedder:
  provider: ollama
  model: all-minilm
  base_url: http://ollama:11434/api
object_storage:
  endpoint: minio:9000
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "fernet", cfg.Key.Cipher)
	assert.Equal(t, 30, cfg.Embedder.TimeoutSecs)
	assert.Equal(t, "info", cfg.Log.Level)

	spec := cfg.EmbeddingSpec()
	assert.Equal(t, "ollama", spec.Provider)
	assert.Equal(t, "all-minilm", spec.Model)
	assert.Equal(t, 30*time.Second, spec.Timeout)
}

func TestLoad_ParseError(t *testing.T) {
	_, err := config.Load(writeConfig(t, "store: [unterminated"))
	require.Error(t, err)
	assert.Equal(t, apperr.CodeConfigParseInvalid, apperr.CodeOf(err))
}

func TestLoad_ValidationError(t *testing.T) {
	_, err := config.Load(writeConfig(t, `
store:
  index: ""
  metadata: m.enc
key:
  cipher: rot13
`))
	require.Error(t, err)
	assert.True(t, apperr.IsInvalidInput(err))
	assert.Contains(t, err.Error(), "store.index")
	assert.Contains(t, err.Error(), "key.cipher")
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	cfg.Store.Index = "s3://bucket/index.enc"
	cfg.Store.DefaultN = 0
	cfg.Key.Source = "gAAAAABnotareference"
	cfg.Embedder.Provider = "sentence-transformers"
	cfg.Log.Level = "loud"

	errs := cfg.Validate()
	assert.Len(t, errs, 5)
	for _, err := range errs {
		assert.NotContains(t, err.Error(), "gAAAAAB")
	}
}

func TestObjectStore(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	_, ok := cfg.ObjectStore()
	assert.False(t, ok)

	t.Setenv("CASEPREP_S3_ACCESS_KEY", "access")
	t.Setenv("CASEPREP_S3_SECRET_KEY", "secret")
	cfg.ObjectStorage.Endpoint = "minio:9000"
	opts, ok := cfg.ObjectStore()
	require.True(t, ok)
	assert.Equal(t, "access", opts.AccessKey)
	assert.Equal(t, "secret", opts.SecretKey)
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	cfg.Embedder.Provider = "hashing"
	cfg.Embedder.Dimension = 384

	require.NoError(t, config.Save(path, cfg))
	got, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestLoadDefault_WritesUserConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(t.TempDir())

	cfg, path, err := config.LoadDefault()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".config", "caseprep", "config.yaml"), path)
	assert.FileExists(t, path)
	assert.Equal(t, "fernet", cfg.Key.Cipher)
}
