package crypto

import (
	"errors"
	"os"
	"strings"

	"github.com/zalando/go-keyring"

	apperr "caseprep/internal/errors"
)

const (
	envScheme     = "env://"
	fileScheme    = "file://"
	keyringScheme = "keyring://"
)

// ResolveKey loads key material from a reference. Supported forms:
//
//	env://VAR               environment variable
//	file:///path/to/key     file contents, surrounding whitespace trimmed
//	keyring://service/key   OS keyring entry
//
// Literal keys are rejected so that they never end up in config files.
// Errors name the reference scheme but never the key itself.
func ResolveKey(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	switch {
	case strings.HasPrefix(ref, envScheme):
		name := strings.TrimPrefix(ref, envScheme)
		if name == "" {
			return "", apperr.New(apperr.CodeKeyInvalid, "key reference: env:// needs a variable name")
		}
		val := strings.TrimSpace(os.Getenv(name))
		if val == "" {
			return "", apperr.Errorf(apperr.CodeKeyResolveFailure, "key reference: environment variable %s is empty", name)
		}
		return val, nil
	case strings.HasPrefix(ref, fileScheme):
		path := strings.TrimPrefix(ref, fileScheme)
		data, err := os.ReadFile(path)
		if err != nil {
			return "", apperr.Wrapf(err, apperr.CodeKeyResolveFailure, "key reference: reading key file %s", path)
		}
		val := strings.TrimSpace(string(data))
		if val == "" {
			return "", apperr.Errorf(apperr.CodeKeyResolveFailure, "key reference: key file %s is empty", path)
		}
		return val, nil
	case strings.HasPrefix(ref, keyringScheme):
		service, key, err := parseKeyringRef(ref)
		if err != nil {
			return "", err
		}
		val, err := keyring.Get(service, key)
		if err != nil {
			if errors.Is(err, keyring.ErrNotFound) {
				return "", apperr.Errorf(apperr.CodeKeyResolveFailure, "key reference: keyring entry %s/%s not found", service, key)
			}
			return "", apperr.Wrapf(err, apperr.CodeKeyResolveFailure, "key reference: reading keyring entry %s/%s", service, key)
		}
		return val, nil
	case ref == "":
		return "", apperr.New(apperr.CodeKeyInvalid, "key reference is empty")
	default:
		return "", apperr.New(apperr.CodeKeyInvalid, "key reference must use env://, file:// or keyring://")
	}
}

func parseKeyringRef(ref string) (service, key string, err error) {
	parts := strings.SplitN(strings.TrimPrefix(ref, keyringScheme), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", apperr.New(apperr.CodeKeyInvalid, "key reference: expected keyring://service/key")
	}
	return parts[0], parts[1], nil
}
