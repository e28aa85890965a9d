// Package crypto decrypts the sealed index and metadata artifacts.
//
// Every cipher here is authenticated: a wrong key or a modified ciphertext is
// reported as a decryption failure and never yields partial plaintext.
package crypto

import (
	"fmt"
	"strings"

	apperr "caseprep/internal/errors"
)

const (
	CipherFernet    = "fernet"
	CipherSecretbox = "secretbox"
)

// Cipher seals and opens opaque byte blobs with a symmetric key.
type Cipher interface {
	Name() string
	Decrypt(ciphertext []byte) ([]byte, error)
	Encrypt(plaintext []byte) ([]byte, error)
}

// New builds the named cipher from an encoded key.
func New(name, key string) (Cipher, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case CipherFernet, "":
		return NewFernet(key)
	case CipherSecretbox:
		return NewSecretbox(key)
	default:
		return nil, apperr.Errorf(apperr.CodeKeyInvalid, "unknown cipher %q", name)
	}
}

// GenerateKey returns a fresh random key encoded for the named cipher.
func GenerateKey(name string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case CipherFernet, "":
		return generateFernetKey()
	case CipherSecretbox:
		return generateSecretboxKey()
	default:
		return "", apperr.Errorf(apperr.CodeKeyInvalid, "unknown cipher %q", name)
	}
}

func decryptFailure(cipher string) error {
	return apperr.New(apperr.CodeDecryptFailure,
		fmt.Sprintf("%s: authentication failed (wrong key or corrupted ciphertext)", cipher),
		apperr.Field("cipher", cipher))
}
