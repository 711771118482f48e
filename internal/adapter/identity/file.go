// Package identity persists the collector identifier on local disk.
package identity

import (
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"gitlab.com/sysmon-2025.net/internal/core/ports/primary"
	"gitlab.com/sysmon-2025.net/internal/tcp/wire"
)

// ErrInvalidIdentity is returned when the identity file cannot be parsed.
var ErrInvalidIdentity = errors.New("invalid identity file")

// FileStore keeps the collector id in a single file.
type FileStore struct {
	path   string
	logger primary.Logger
}

func NewFileStore(path string, logger primary.Logger) *FileStore {
	return &FileStore{
		path:   path,
		logger: logger,
	}
}

// Path returns the identity file location.
func (s *FileStore) Path() string {
	return s.path
}

// LoadOrCreate returns the stored id, generating and saving a random one
// on first use.
func (s *FileStore) LoadOrCreate() (wire.CollectorID, error) {
	id, err := s.Load()
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return wire.CollectorID{}, err
	}

	id = wire.CollectorIDFromUUID(uuid.New())
	if err := s.Save(id); err != nil {
		return wire.CollectorID{}, err
	}

	s.logger.Info("Generated collector identity", "collectorId", id.String(), "path", s.path)
	return id, nil
}

// Load reads the id. Both the canonical UUID form and a decimal 128-bit
// integer are accepted.
func (s *FileStore) Load() (wire.CollectorID, error) {
	contents, err := os.ReadFile(s.path)
	if err != nil {
		return wire.CollectorID{}, fmt.Errorf("failed to read identity: %w", err)
	}

	return Parse(strings.TrimSpace(string(contents)))
}

// Save writes id in UUID form.
func (s *FileStore) Save(id wire.CollectorID) error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create identity directory: %w", err)
		}
	}

	if err := os.WriteFile(s.path, []byte(id.String()+"\n"), 0o600); err != nil {
		return fmt.Errorf("failed to write identity: %w", err)
	}
	return nil
}

// Parse decodes a UUID string or a decimal u128. All-digit input is always
// read as decimal, since uuid.Parse also accepts 32 bare hex digits.
func Parse(s string) (wire.CollectorID, error) {
	if !isDecimal(s) {
		u, err := uuid.Parse(s)
		if err != nil {
			return wire.CollectorID{}, fmt.Errorf("%w: %w", ErrInvalidIdentity, err)
		}
		return wire.CollectorIDFromUUID(u), nil
	}

	n, ok := new(big.Int).SetString(s, 10)
	if !ok || n.BitLen() > 128 {
		return wire.CollectorID{}, fmt.Errorf("%w: %q", ErrInvalidIdentity, s)
	}

	var buf [16]byte
	n.FillBytes(buf[:])
	return wire.CollectorIDFromUUID(uuid.UUID(buf)), nil
}

func isDecimal(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
