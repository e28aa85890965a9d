package crypto

import (
	"bytes"

	"github.com/fernet/fernet-go"

	apperr "caseprep/internal/errors"
)

// noTTL disables the token timestamp check; sealed artifacts do not expire.
const noTTL = -1

// Fernet implements Cipher with Fernet tokens (AES-128-CBC + HMAC-SHA256).
// This is the format the indexing job writes.
type Fernet struct {
	keys []*fernet.Key
}

// NewFernet parses a url-safe base64 encoded 32-byte Fernet key.
func NewFernet(key string) (*Fernet, error) {
	k, err := fernet.DecodeKey(string(bytes.TrimSpace([]byte(key))))
	if err != nil {
		return nil, apperr.New(apperr.CodeKeyInvalid, "fernet: key must be 32 url-safe base64 encoded bytes")
	}
	return &Fernet{keys: []*fernet.Key{k}}, nil
}

func (f *Fernet) Name() string { return CipherFernet }

func (f *Fernet) String() string { return CipherFernet }

func (f *Fernet) Decrypt(ciphertext []byte) ([]byte, error) {
	tok := bytes.TrimSpace(ciphertext)
	if len(tok) == 0 {
		return nil, decryptFailure(CipherFernet)
	}
	msg := fernet.VerifyAndDecrypt(tok, noTTL, f.keys)
	if msg == nil {
		return nil, decryptFailure(CipherFernet)
	}
	return msg, nil
}

func (f *Fernet) Encrypt(plaintext []byte) ([]byte, error) {
	tok, err := fernet.EncryptAndSign(plaintext, f.keys[0])
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeEncryptFailure, "fernet: sealing")
	}
	return tok, nil
}

func generateFernetKey() (string, error) {
	var k fernet.Key
	if err := k.Generate(); err != nil {
		return "", apperr.Wrap(err, apperr.CodeInternalFailure, "fernet: generating key")
	}
	return k.Encode(), nil
}
