package matrix

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/id"
)

var _ mautrix.SyncStore = (*tokenStore)(nil)

// tokenStore is the client's mautrix.SyncStore. It persists the /sync
// next_batch token so a restart resumes where it left off instead of
// replaying history. An empty path keeps the token in memory only. The
// filter ID is never persisted: the filter is uploaded once per process.
type tokenStore struct {
	mu       sync.Mutex
	path     string
	token    string
	filterID string
	logger   *slog.Logger
}

func newTokenStore(path string, logger *slog.Logger) *tokenStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &tokenStore{path: path, logger: logger}
}

// SaveFilterID implements mautrix.SyncStore.
func (s *tokenStore) SaveFilterID(_ context.Context, _ id.UserID, filterID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filterID = filterID
	return nil
}

// LoadFilterID implements mautrix.SyncStore.
func (s *tokenStore) LoadFilterID(_ context.Context, _ id.UserID) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filterID, nil
}

// LoadNextBatch implements mautrix.SyncStore. An unreadable token file
// starts a fresh sync rather than stopping the client.
func (s *tokenStore) LoadNextBatch(_ context.Context, _ id.UserID) (string, error) {
	token, err := s.load()
	if err != nil {
		s.logger.Warn("sync token unreadable, starting fresh", "error", err)
		return "", nil
	}
	return token, nil
}

// SaveNextBatch implements mautrix.SyncStore. A failed write is logged and
// the token kept in memory, so a full disk never halts the sync loop.
func (s *tokenStore) SaveNextBatch(_ context.Context, _ id.UserID, token string) error {
	if err := s.save(token); err != nil {
		s.logger.Warn("failed to persist sync token", "error", err)
	}
	return nil
}

// load reads the persisted token. A missing file yields "".
func (s *tokenStore) load() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return s.token, nil
	}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("matrix: read sync token: %w", err)
	}
	s.token = strings.TrimSpace(string(data))
	return s.token, nil
}

// save writes token atomically (temp file + rename).
func (s *tokenStore) save(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if token == s.token {
		return nil
	}
	s.token = token
	if s.path == "" {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("matrix: create sync token dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(token), 0o600); err != nil {
		return fmt.Errorf("matrix: write sync token: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("matrix: rename sync token: %w", err)
	}
	return nil
}
