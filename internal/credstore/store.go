// Package credstore implements the durable credential store: a single JSON
// document mapping username -> password hash + metadata, rewritten atomically
// on every mutation.
//
// The store is read-modify-written as a whole document, so all operations
// serialize on one store-wide mutex. A corrupted document is quarantined to
// "<file>.corrupt.bak" and treated as empty rather than failing the caller:
// losing the ability to log in is worse than silently starting fresh. That
// path is reported through the logger only and must never become a
// user-visible error mid-dialog.
package credstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/filex"
	"github.com/dmitrijs2005/notekeeper/internal/logging"
	"github.com/dmitrijs2005/notekeeper/internal/models"
)

// record is the on-disk shape of one user:
// {"password": "...", "created_at": "...", "settings": {}}.
type record struct {
	Password  string         `json:"password"`
	CreatedAt time.Time      `json:"created_at"`
	Settings  map[string]any `json:"settings"`
}

type Store struct {
	path   string
	cost   int
	logger logging.Logger

	mu sync.Mutex
}

// New returns a Store persisting to path. cost is the bcrypt cost factor;
// values outside bcrypt's accepted range fall back to the default.
func New(path string, cost int, logger logging.Logger) *Store {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Store{path: path, cost: cost, logger: logger}
}

// Register creates a new user. Returns common.ErrAlreadyExists if the
// username (case-sensitive) is taken. The record is durably written before
// the call returns.
func (s *Store) Register(ctx context.Context, username, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	users := s.load(ctx)

	if _, ok := users[username]; ok {
		return common.ErrAlreadyExists
	}

	// bcrypt generates a fresh salt on every call.
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	users[username] = record{
		Password:  string(hash),
		CreatedAt: time.Now().UTC(),
		Settings:  map[string]any{},
	}

	return s.save(users)
}

// Authenticate verifies a username/password pair. Returns common.ErrNotFound
// for an unknown username and common.ErrBadCredential for a wrong password.
// bcrypt's hash comparison is constant-time in the password.
func (s *Store) Authenticate(ctx context.Context, username, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	users := s.load(ctx)

	u, ok := users[username]
	if !ok {
		return common.ErrNotFound
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
		return common.ErrBadCredential
	}

	return nil
}

// Exists reports whether the username is already registered. Used by the
// registration flow to reject a taken name before asking for a password.
func (s *Store) Exists(ctx context.Context, username string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.load(ctx)[username]
	return ok
}

// List returns all usernames in lexical order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users := s.load(ctx)

	names := make([]string, 0, len(users))
	for name := range users {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Get returns the stored user. The password hash is included; callers must
// not expose it.
func (s *Store) Get(ctx context.Context, username string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.load(ctx)[username]
	if !ok {
		return nil, common.ErrNotFound
	}

	return &models.User{
		UserName:     username,
		PasswordHash: u.Password,
		CreatedAt:    u.CreatedAt,
		Settings:     u.Settings,
	}, nil
}

// Snapshot returns the current credential document as raw bytes, for the
// backup service. A missing file yields an empty document.
func (s *Store) Snapshot(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []byte("{}"), nil
		}
		return nil, fmt.Errorf("%w: read %s: %v", common.ErrStorage, s.path, err)
	}
	return data, nil
}

// load reads and parses the credential document. The caller must hold s.mu.
//
// Fail-safe, not fail-fast: a missing file is an empty store; an unreadable
// or unparsable file is quarantined and also treated as empty. Only the log
// sees the corruption.
func (s *Store) load(ctx context.Context) map[string]record {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Error(ctx, "failed to read credential file", "path", s.path, "error", err)
		}
		return map[string]record{}
	}

	users := map[string]record{}
	if err := json.Unmarshal(data, &users); err != nil {
		quarantined, qerr := filex.Quarantine(s.path)
		if qerr != nil {
			s.logger.Error(ctx, "failed to quarantine corrupted credential file",
				"path", s.path, "error", qerr)
		} else {
			s.logger.Error(ctx, "credential file corrupted, starting empty",
				"path", s.path, "quarantined", quarantined, "error", err)
		}
		return map[string]record{}
	}

	return users
}

// save atomically rewrites the whole document. The caller must hold s.mu.
func (s *Store) save(users map[string]record) error {
	data, err := json.MarshalIndent(users, "", "    ")
	if err != nil {
		return fmt.Errorf("%w: marshal credentials: %v", common.ErrStorage, err)
	}

	if err := filex.AtomicWrite(s.path, data, 0o600); err != nil {
		return fmt.Errorf("%w: %v", common.ErrStorage, err)
	}

	return nil
}
