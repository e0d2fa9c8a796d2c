package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/uran124/avito-relay/internal/model"
)

// Session is the degraded per-chat state kept in durable file storage while
// the primary store is unreachable. It does not reconcile with the primary
// store: a chat that toggles between backends sees inconsistent history.
type Session struct {
	Stage     string               `json:"stage"`
	Collected model.Collected      `json:"collected"`
	History   []model.HistoryEntry `json:"history"`
}

// Store keeps one JSON file per chat id under dir.
type Store struct {
	dir        string
	historyCap int
	mu         sync.Mutex
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9_\-]`)

func NewStore(dir string, historyCap int) (*Store, error) {
	if historyCap <= 0 {
		return nil, fmt.Errorf("history cap must be positive, got %d", historyCap)
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create sessions dir: %w", err)
	}
	return &Store{dir: dir, historyCap: historyCap}, nil
}

// Path returns the filesystem-safe file for a chat id.
func (s *Store) Path(chatID string) string {
	return filepath.Join(s.dir, unsafeChars.ReplaceAllString(chatID, "_")+".json")
}

// Load reads the session for chatID, returning an empty session when the file
// is missing or unreadable.
func (s *Store) Load(chatID string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(chatID)
}

func (s *Store) load(chatID string) *Session {
	empty := &Session{Stage: model.StageStart, Collected: model.Collected{}, History: nil}

	raw, err := os.ReadFile(s.Path(chatID))
	if err != nil {
		return empty
	}

	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		log.Warn().Err(err).Str("chat_id", chatID).Msg("corrupt session file, starting fresh")
		return empty
	}

	if sess.Stage == "" {
		sess.Stage = model.StageStart
	}
	if sess.Collected == nil {
		sess.Collected = model.Collected{}
	}
	return &sess
}

// Save persists the session, evicting the oldest history entries beyond the cap.
func (s *Store) Save(chatID string, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(chatID, sess)
}

func (s *Store) save(chatID string, sess *Session) error {
	if len(sess.History) > s.historyCap {
		sess.History = sess.History[len(sess.History)-s.historyCap:]
	}

	raw, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := os.WriteFile(s.Path(chatID), raw, 0o640); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// Append adds one turn to the session and persists it.
func (s *Store) Append(chatID string, role model.Role, text string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.load(chatID)
	sess.History = append(sess.History, model.HistoryEntry{
		Role:      role,
		Text:      text,
		Timestamp: time.Now(),
	})
	if err := s.save(chatID, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// PruneIdle removes session files whose last modification is older than maxAge.
func (s *Store) PruneIdle(maxAge time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("read sessions dir: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(s.dir, entry.Name())); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}
