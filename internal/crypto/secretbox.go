package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"io"
	"strings"

	"golang.org/x/crypto/nacl/secretbox"

	apperr "caseprep/internal/errors"
)

const (
	secretboxKeySize   = 32
	secretboxNonceSize = 24
)

// Secretbox implements Cipher with NaCl secretbox.
// Sealed layout: nonce (24 bytes) || box.
type Secretbox struct {
	key [secretboxKeySize]byte
}

// NewSecretbox parses a standard base64 encoded 32-byte key.
func NewSecretbox(key string) (*Secretbox, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(key))
	if err != nil || len(raw) != secretboxKeySize {
		return nil, apperr.New(apperr.CodeKeyInvalid, "secretbox: key must be 32 base64 encoded bytes")
	}
	s := &Secretbox{}
	copy(s.key[:], raw)
	return s, nil
}

func (s *Secretbox) Name() string { return CipherSecretbox }

func (s *Secretbox) String() string { return CipherSecretbox }

func (s *Secretbox) Decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < secretboxNonceSize+secretbox.Overhead {
		return nil, decryptFailure(CipherSecretbox)
	}
	var nonce [secretboxNonceSize]byte
	copy(nonce[:], ciphertext[:secretboxNonceSize])
	msg, ok := secretbox.Open(nil, ciphertext[secretboxNonceSize:], &nonce, &s.key)
	if !ok {
		return nil, decryptFailure(CipherSecretbox)
	}
	return msg, nil
}

func (s *Secretbox) Encrypt(plaintext []byte) ([]byte, error) {
	var nonce [secretboxNonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, apperr.Wrap(err, apperr.CodeEncryptFailure, "secretbox: generating nonce")
	}
	return secretbox.Seal(nonce[:], plaintext, &nonce, &s.key), nil
}

func generateSecretboxKey() (string, error) {
	raw := make([]byte, secretboxKeySize)
	if _, err := io.ReadFull(rand.Reader, raw); err != nil {
		return "", apperr.Wrap(err, apperr.CodeInternalFailure, "secretbox: generating key")
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}
