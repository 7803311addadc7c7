package entropy

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/domain/config"
	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/usecase"
	"golang.org/x/crypto/hkdf"
)

const (
	secretSize = 32
	seedSize   = 32
)

// SourceAdapter implements EntropySource. A random installation secret is
// created once in the data directory; seeds are HKDF expansions of it keyed
// by version and salt, so they are stable for an installation.
type SourceAdapter struct {
	secretPath string
}

// NewSourceAdapter creates a new SourceAdapter
func NewSourceAdapter(cfg *config.RuntimeConfig) *SourceAdapter {
	return &SourceAdapter{
		secretPath: filepath.Join(cfg.DataDir, "priv", "entropy.key"),
	}
}

// GetSeed returns the 32 byte seed for version and salt
func (s *SourceAdapter) GetSeed(_ context.Context, version int, salt string) ([]byte, error) {
	secret, err := s.secret()
	if err != nil {
		return nil, err
	}

	reader := hkdf.New(sha256.New, secret, []byte(salt), []byte("version:"+strconv.Itoa(version)))
	seed := make([]byte, seedSize)
	if _, err := io.ReadFull(reader, seed); err != nil {
		return nil, fmt.Errorf("failed to expand entropy: %w", err)
	}
	return seed, nil
}

// secret loads the installation secret, creating it on first use
func (s *SourceAdapter) secret() ([]byte, error) {
	data, err := os.ReadFile(s.secretPath)
	if err == nil {
		if len(data) != secretSize {
			return nil, fmt.Errorf("entropy secret at %s is corrupt: %d bytes", s.secretPath, len(data))
		}
		return data, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read entropy secret: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.secretPath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create entropy directory: %w", err)
	}
	secret := make([]byte, secretSize)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("failed to generate entropy secret: %w", err)
	}

	f, err := os.OpenFile(s.secretPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		if os.IsExist(err) {
			return s.secret()
		}
		return nil, fmt.Errorf("failed to create entropy secret: %w", err)
	}
	if _, err := f.Write(secret); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write entropy secret: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to write entropy secret: %w", err)
	}
	return secret, nil
}

// GetPath returns the path to the installation secret
func (s *SourceAdapter) GetPath() string {
	return s.secretPath
}

var _ usecase.EntropySource = (*SourceAdapter)(nil)
