package file

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"tuyabridge/internal/storage"
)

// Store persists the credential document as a JSON file at a well-known path
// in the host's persistent storage area
type Store struct {
	path   string
	logger *slog.Logger
	mu     sync.RWMutex
}

// New creates a file-backed credential store
func New(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{path: path, logger: logger}
}

var _ storage.CredentialStore = (*Store)(nil)

// Load reads the credential document. A missing or corrupt file means "no
// stored credentials", not an error.
func (s *Store) Load(ctx context.Context) (*storage.StoredCredentials, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("Failed to read credential file, treating as unlinked",
				"component", "storage",
				"path", s.path,
				"error", err,
			)
		}
		return nil, nil
	}

	var creds storage.StoredCredentials
	if err := json.Unmarshal(data, &creds); err != nil {
		s.logger.Warn("Corrupt credential file, treating as unlinked",
			"component", "storage",
			"path", s.path,
			"error", err,
		)
		return nil, nil
	}
	if creds.TokenInfo == nil {
		return nil, nil
	}
	return &creds, nil
}

// Save writes the credential document atomically (write + rename)
func (s *Store) Save(ctx context.Context, creds *storage.StoredCredentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// Clear removes the credential document
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
