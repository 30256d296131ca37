/*
Package jsondoc provides the single-document JSON store for the leave tracker.

PURPOSE:
  Owns the whole persisted state - users, requests and settings - as one
  in-memory document backed by one JSON file. It is the only writer of that
  file. Every mutation rewrites the complete document.

DOCUMENT FORMAT:
  {
      "users":     [ {leave.User}, ... ],
      "requests":  [ {leave.Request}, ... ],
      "settings":  { "current_period": "P1", ... },
      "sequences": { "users": 3, "requests": 12 }
  }
  Every member is optional on read. "sequences" holds the high-water mark of
  each identifier sequence so ids are never reused after a deletion.

IDENTIFIERS:
  next id = max(existing ids, high-water mark) + 1, per collection.

CONCURRENCY:
  One sync.RWMutex. Every mutation holds the write lock across the whole
  read-modify-persist cycle, so two creations can never compute the same id
  and no update is lost. Reads take the read lock and return copies.

FAILURE MODEL:
  - Missing file: empty document with default settings.
  - Unparseable file: moved aside to <path>.corrupt-<timestamp>, a WARN event
    is logged, and the store starts from the empty document.
  - Failed write: the previous file is untouched (temp file + rename). The
    in-memory document keeps the change and the error is returned.

USAGE:
  store, err := jsondoc.Open(ctx, "./data.json", jsondoc.WithLogger(log))
  id, err := store.CreateUser(ctx, leave.User{Username: "ada"})
  user, err := store.GetUserByID(ctx, id)
  days := user.Balance(ctx)

SEE ALSO:
  - view.go: UserView / RequestView derived reads
  - leave/balance.go: the balance rule
*/
package jsondoc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/warp/leave-tracker/leave"
)

// =============================================================================
// DOCUMENT
// =============================================================================

type document struct {
	Users     []leave.User      `json:"users"`
	Requests  []leave.Request   `json:"requests"`
	Settings  map[string]string `json:"settings"`
	Sequences sequences         `json:"sequences"`
}

type sequences struct {
	Users    int64 `json:"users"`
	Requests int64 `json:"requests"`
}

func emptyDocument() document {
	return document{
		Users:    []leave.User{},
		Requests: []leave.Request{},
		Settings: leave.DefaultSettings(),
	}
}

// normalize fills the members an older or hand-edited document may lack.
func (d *document) normalize() {
	if d.Users == nil {
		d.Users = []leave.User{}
	}
	if d.Requests == nil {
		d.Requests = []leave.Request{}
	}
	if d.Settings == nil {
		d.Settings = leave.DefaultSettings()
	}
}

// =============================================================================
// STORE
// =============================================================================

// Store is the Document Store. Construct it with New or Open and share the
// one instance with every caller.
type Store struct {
	path string
	log  *zap.Logger
	now  func() time.Time

	mu  sync.RWMutex
	doc document
}

type Option func(*Store)

// WithLogger sets the logger used for load diagnostics and write failures.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock overrides the clock used to name moved-aside corrupt documents.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates a store for path holding an empty document. Call Load before
// use to pick up the file contents.
func New(path string, opts ...Option) *Store {
	s := &Store{
		path: path,
		log:  zap.NewNop(),
		now:  time.Now,
		doc:  emptyDocument(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open creates a store for path and loads it.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	s := New(path, opts...)
	if err := s.Load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// Load replaces the in-memory document with the file contents. A missing or
// unparseable file yields the empty document; only an unreadable file is an
// error.
func (s *Store) Load(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.doc = emptyDocument()
		s.log.Info("no document found, starting empty", zap.String("path", s.path))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read document: %w", err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		s.doc = emptyDocument()
		s.quarantine(err)
		return nil
	}
	doc.normalize()
	s.doc = doc

	s.log.Info("document loaded",
		zap.String("path", s.path),
		zap.Int("users", len(doc.Users)),
		zap.Int("requests", len(doc.Requests)),
	)
	return nil
}

// quarantine moves a corrupt document aside so the next save does not
// overwrite the only copy of the unreadable data.
func (s *Store) quarantine(parseErr error) {
	backup := fmt.Sprintf("%s.corrupt-%s", s.path, s.now().UTC().Format("20060102T150405Z"))
	fields := []zap.Field{
		zap.String("path", s.path),
		zap.Error(parseErr),
	}
	if err := os.Rename(s.path, backup); err != nil {
		s.log.Error("corrupt document could not be moved aside, starting empty",
			append(fields, zap.NamedError("rename_error", err))...)
		return
	}
	s.log.Warn("corrupt document moved aside, starting empty",
		append(fields, zap.String("backup", backup))...)
}

// Save writes the whole document to disk.
func (s *Store) Save(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistLocked()
}

// persistLocked rewrites the backing file. Caller holds s.mu for writing.
func (s *Store) persistLocked() error {
	data, err := json.MarshalIndent(s.doc, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	if err := writeFileAtomic(s.path, data); err != nil {
		s.log.Error("document write failed, memory and disk diverge",
			zap.String("path", s.path), zap.Error(err))
		return fmt.Errorf("failed to write document: %w", err)
	}
	s.log.Debug("document written",
		zap.String("path", s.path),
		zap.Int("bytes", len(data)),
	)
	return nil
}
