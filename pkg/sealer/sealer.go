package sealer

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Sealer produces and opens opaque AES-GCM tokens carrying a subject and an
// expiry. Tokens are self-contained, so session state never needs a store.
type Sealer struct {
	key []byte
}

// New builds a Sealer from a base64-encoded 32-byte key.
func New(encodedKey string) (*Sealer, error) {
	key, err := base64.StdEncoding.DecodeString(encodedKey)
	if err != nil {
		return nil, fmt.Errorf("invalid seal key encoding: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("seal key must be 32 bytes, got %d", len(key))
	}
	return &Sealer{key: key}, nil
}

// Seal creates an opaque token binding subject to the given expiry.
func (s *Sealer) Seal(subject string, expiresAt time.Time) (string, error) {
	plaintext := []byte(subject + ":" + strconv.FormatInt(expiresAt.Unix(), 10))

	block, err := aes.NewCipher(s.key)
	if err != nil {
		return "", err
	}

	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aesgcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ct := aesgcm.Seal(nonce, nonce, plaintext, nil)
	return base64.RawURLEncoding.EncodeToString(ct), nil
}

// Open decrypts a token and returns its subject and expiry. An expired token
// fails with an error; tampered tokens fail GCM authentication.
func (s *Sealer) Open(token string, now time.Time) (string, time.Time, error) {
	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("invalid token encoding: %w", err)
	}

	block, err := aes.NewCipher(s.key)
	if err != nil {
		return "", time.Time{}, err
	}

	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", time.Time{}, err
	}

	nonceSize := aesgcm.NonceSize()
	if len(data) < nonceSize {
		return "", time.Time{}, fmt.Errorf("token too short")
	}
	nonce := data[:nonceSize]
	ciphertext := data[nonceSize:]

	pt, err := aesgcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("token authentication failed")
	}

	parts := strings.Split(string(pt), ":")
	if len(parts) < 2 {
		return "", time.Time{}, fmt.Errorf("invalid token format")
	}

	unix, err := strconv.ParseInt(parts[len(parts)-1], 10, 64)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("invalid token expiry")
	}
	expiresAt := time.Unix(unix, 0)
	subject := strings.Join(parts[:len(parts)-1], ":")

	if now.After(expiresAt) {
		return "", time.Time{}, fmt.Errorf("token expired")
	}

	return subject, expiresAt, nil
}
