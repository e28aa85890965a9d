package crypto_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"caseprep/internal/crypto"
	apperr "caseprep/internal/errors"
)

func init() {
	// Use the mock keyring so tests never touch the real OS keyring.
	keyring.MockInit()
}

func TestResolveKey_Env(t *testing.T) {
	t.Setenv("CASEPREP_TEST_KEY", "  secret-value \n")

	val, err := crypto.ResolveKey("env://CASEPREP_TEST_KEY")
	require.NoError(t, err)
	assert.Equal(t, "secret-value", val)
}

func TestResolveKey_EnvEmpty(t *testing.T) {
	t.Setenv("CASEPREP_EMPTY_KEY", "")

	_, err := crypto.ResolveKey("env://CASEPREP_EMPTY_KEY")
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeKeyResolveFailure))
}

func TestResolveKey_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key")
	require.NoError(t, os.WriteFile(path, []byte("file-secret\n"), 0o600))

	val, err := crypto.ResolveKey("file://" + path)
	require.NoError(t, err)
	assert.Equal(t, "file-secret", val)
}

func TestResolveKey_FileMissing(t *testing.T) {
	_, err := crypto.ResolveKey("file://" + filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeKeyResolveFailure))
}

func TestResolveKey_Keyring(t *testing.T) {
	require.NoError(t, keyring.Set("caseprep-test", "decryption-key", "keyring-secret"))

	val, err := crypto.ResolveKey("keyring://caseprep-test/decryption-key")
	require.NoError(t, err)
	assert.Equal(t, "keyring-secret", val)

	_, err = crypto.ResolveKey("keyring://caseprep-test/missing")
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeKeyResolveFailure))
}

func TestResolveKey_Invalid(t *testing.T) {
	tests := []struct {
		name string
		ref  string
	}{
		{"empty", ""},
		{"literal", "c2VjcmV0LWtleS1tYXRlcmlhbA=="},
		{"keyring missing key", "keyring://vault"},
		{"env missing name", "env://"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := crypto.ResolveKey(tt.ref)
			require.Error(t, err)
			assert.True(t, apperr.HasCode(err, apperr.CodeKeyInvalid), "got: %v", err)
			if tt.name == "literal" {
				assert.NotContains(t, err.Error(), tt.ref)
			}
		})
	}
}
