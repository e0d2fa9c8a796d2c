package credentials

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/uran124/avito-relay/internal/model"
)

// Store persists the singleton OAuth credential record as a JSON file.
// The token manager is the only writer; the mutex guards concurrent
// readers during a mid-refresh save.
type Store struct {
	path string
	mu   sync.Mutex
}

func NewStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create credentials dir: %w", err)
	}
	return &Store{path: path}, nil
}

// Load reads the stored credentials. A missing file yields a zero record
// and no error; the caller seeds client id/secret from config.
func (s *Store) Load() (model.Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var creds model.Credentials
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return creds, nil
	}
	if err != nil {
		return creds, fmt.Errorf("read credentials: %w", err)
	}
	if err := json.Unmarshal(raw, &creds); err != nil {
		return model.Credentials{}, fmt.Errorf("parse credentials: %w", err)
	}
	return creds, nil
}

// Save writes the record atomically via a sibling temp file. SavedAt is
// stamped here so callers never have to remember it.
func (s *Store) Save(creds model.Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	creds.SavedAt = time.Now().Unix()
	raw, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal credentials: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace credentials: %w", err)
	}
	return nil
}
