package session

import (
	"errors"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const DefaultTimeout = 30 * time.Minute

var (
	// ErrNotFound is returned when a session id is unknown or already expired.
	ErrNotFound = errors.New("session not found or expired")

	// ErrEmptyText rejects sessions without extracted text. Every stored
	// session carries a non-empty report text.
	ErrEmptyText = errors.New("session text cannot be empty")
)

// Record is one stored session.
type Record struct {
	Text      string
	Filename  string
	Timestamp time.Time
	FilePath  string
}

// Store is the in-memory session store. All mutations hold a single coarse
// lock; at this scale per-entry locking buys nothing.
type Store struct {
	mu      sync.Mutex
	records map[string]*Record
	timeout time.Duration
	clock   func() time.Time
	logger  zerolog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithClock injects a clock, used by tests to drive expiry.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) {
		s.clock = clock
	}
}

// WithLogger sets the store logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// NewStore creates a session store. A zero timeout falls back to
// DefaultTimeout.
func NewStore(timeout time.Duration, opts ...Option) *Store {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	s := &Store{
		records: make(map[string]*Record),
		timeout: timeout,
		clock:   time.Now,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// NewID returns a fresh session identifier. Random enough that collisions
// never happen in practice.
func (s *Store) NewID() string {
	return uuid.NewString()
}

// Create inserts a new session and returns its generated id.
func (s *Store) Create(text, filename string) (string, error) {
	id := s.NewID()
	if err := s.CreateWithID(id, text, filename, ""); err != nil {
		return "", err
	}
	return id, nil
}

// CreateWithID inserts a session under a caller-provided id. The disk-backed
// upload flow generates the id first so the persisted file can be named by
// it, then inserts with the resulting path.
func (s *Store) CreateWithID(id, text, filename, filePath string) error {
	if text == "" {
		return ErrEmptyText
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[id] = &Record{
		Text:      text,
		Filename:  filename,
		Timestamp: s.clock(),
		FilePath:  filePath,
	}

	s.logger.Debug().
		Str("session_id", id).
		Str("filename", filename).
		Int("text_length", len(text)).
		Msg("Session created")

	return nil
}

// GetAndTouch returns the session record and refreshes its expiry clock,
// atomically with respect to concurrent sweeps. An expired record is removed
// on the spot and reported as ErrNotFound.
func (s *Store) GetAndTouch(id string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return Record{}, ErrNotFound
	}

	now := s.clock()
	if now.Sub(rec.Timestamp) > s.timeout {
		s.removeLocked(id, rec)
		return Record{}, ErrNotFound
	}

	rec.Timestamp = now
	return *rec, nil
}

// Peek returns the session record without touching it. Reads stay
// side-effect-free: an expired record is reported as not found but left for
// the sweeper.
func (s *Store) Peek(id string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	if s.clock().Sub(rec.Timestamp) > s.timeout {
		return Record{}, ErrNotFound
	}

	return *rec, nil
}

// SweepExpired removes every session past its timeout and returns the removed
// ids. Associated upload files are deleted best-effort.
func (s *Store) SweepExpired() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	var removed []string

	for id, rec := range s.records {
		if now.Sub(rec.Timestamp) > s.timeout {
			s.removeLocked(id, rec)
			removed = append(removed, id)
		}
	}

	if len(removed) > 0 {
		s.logger.Info().
			Int("removed", len(removed)).
			Msg("Cleaned up expired sessions")
	}

	return removed
}

// Count returns the number of sessions not yet swept.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Timeout returns the configured session timeout.
func (s *Store) Timeout() time.Duration {
	return s.timeout
}

// removeLocked deletes a record and its upload file. Callers hold s.mu.
func (s *Store) removeLocked(id string, rec *Record) {
	delete(s.records, id)

	if rec.FilePath == "" {
		return
	}
	if err := os.Remove(rec.FilePath); err != nil && !os.IsNotExist(err) {
		s.logger.Warn().
			Err(err).
			Str("session_id", id).
			Str("file", rec.FilePath).
			Msg("Failed to delete upload file")
	}
}
