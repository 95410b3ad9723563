// Package credentials decides how the stored password is kept at rest.
package credentials

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/nacl/secretbox"
)

const (
	sealedPrefix = "sealed:"
	keySize      = 32
	nonceSize    = 24
)

// ErrCorruptSecret is returned when a sealed value cannot be decoded or authenticated.
var ErrCorruptSecret = errors.New("stored secret is corrupt or was sealed with another key")

// ErrSealedWithoutKey is returned when a sealed value is read while
// encryption at rest is turned off.
var ErrSealedWithoutKey = errors.New("stored secret is sealed but encryption at rest is disabled; re-enable it or save the password again")

// Provider converts a password to its stored form and back.
type Provider interface {
	Seal(plain string) (string, error)
	Open(stored string) (string, error)
}

// PlainProvider stores passwords as-is. It refuses to open sealed values
// instead of handing the ciphertext out as a password.
type PlainProvider struct{}

func (PlainProvider) Seal(plain string) (string, error) { return plain, nil }

func (PlainProvider) Open(stored string) (string, error) {
	if strings.HasPrefix(stored, sealedPrefix) {
		return "", ErrSealedWithoutKey
	}

	return stored, nil
}

// SecretboxProvider seals passwords with NaCl secretbox under a local key.
// Values without the sealed prefix are treated as plain text on Open, so
// records written before encryption was enabled keep working.
type SecretboxProvider struct {
	key  [keySize]byte
	rand io.Reader
}

func NewSecretboxProvider(key [keySize]byte) *SecretboxProvider {
	return &SecretboxProvider{key: key, rand: rand.Reader}
}

func (p *SecretboxProvider) Seal(plain string) (string, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(p.rand, nonce[:]); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	box := secretbox.Seal(nonce[:], []byte(plain), &nonce, &p.key)

	return sealedPrefix + base64.StdEncoding.EncodeToString(box), nil
}

func (p *SecretboxProvider) Open(stored string) (string, error) {
	encoded, ok := strings.CutPrefix(stored, sealedPrefix)
	if !ok {
		return stored, nil
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || len(raw) < nonceSize+secretbox.Overhead {
		return "", ErrCorruptSecret
	}

	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])
	plain, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, &p.key)
	if !ok {
		return "", ErrCorruptSecret
	}

	return string(plain), nil
}

// LoadOrCreateKey reads the secretbox key from path, generating it on first
// use. The new key is hard-linked into place, so when two processes race on
// the first run both end up with the key that landed first.
func LoadOrCreateKey(path string) ([keySize]byte, error) {
	cleanPath := filepath.Clean(path)
	key, err := readKeyFile(cleanPath)
	if err == nil || !errors.Is(err, os.ErrNotExist) {
		return key, err
	}

	if _, err := io.ReadFull(rand.Reader, key[:]); err != nil {
		return key, fmt.Errorf("generate credentials key: %w", err)
	}
	dir := filepath.Dir(cleanPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return key, fmt.Errorf("create credentials key dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".credentials-*.tmp")
	if err != nil {
		return key, fmt.Errorf("create temp credentials key: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = os.Remove(tmpPath)
	}()

	_, writeErr := tmp.WriteString(base64.StdEncoding.EncodeToString(key[:]) + "\n")
	if writeErr == nil {
		writeErr = tmp.Sync()
	}
	if closeErr := tmp.Close(); writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		return key, fmt.Errorf("write temp credentials key: %w", writeErr)
	}

	if err := os.Link(tmpPath, cleanPath); err != nil {
		if errors.Is(err, os.ErrExist) {
			return readKeyFile(cleanPath)
		}

		return key, fmt.Errorf("install credentials key: %w", err)
	}

	return key, nil
}

func readKeyFile(path string) ([keySize]byte, error) {
	var key [keySize]byte

	// #nosec G304 -- path is resolved by app runtime and points to user config dir.
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return key, err
		}

		return key, fmt.Errorf("read credentials key: %w", err)
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(raw)))
	if err != nil || len(decoded) != keySize {
		return key, fmt.Errorf("credentials key file %s is malformed", path)
	}
	copy(key[:], decoded)

	return key, nil
}
