// internal/session/session.go
//
// Package session holds the single authenticated identity of a client and
// persists it across restarts. The state file is the only client-side
// persistence besides nothing: token (only with remember-me), profile, and
// the chat last-read mark.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/kor4soft/teamsync/internal/backend"
	"github.com/kor4soft/teamsync/internal/types"
)

type state struct {
	User     *types.User `json:"user,omitempty"`
	Token    string      `json:"token,omitempty"`
	Remember bool        `json:"remember"`
	LastRead time.Time   `json:"chat_last_read"`
}

type Session struct {
	provider backend.Provider
	path     string

	mu    sync.RWMutex
	state state
}

// New creates a session backed by provider, storing state at path. An empty
// path picks the default location under the user config dir.
func New(provider backend.Provider, path string) (*Session, error) {
	if path == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("resolving config dir: %w", err)
		}
		path = filepath.Join(dir, "teamsync", "session.json")
	}
	return &Session{provider: provider, path: path}, nil
}

// SignIn authenticates, loads the profile row, and persists the session.
// The token is only written to disk when remember is set.
func (s *Session) SignIn(ctx context.Context, email, password string, remember bool) (*types.User, error) {
	ident, err := s.provider.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return s.adopt(ctx, ident, remember)
}

// SignUp registers a new account and signs it in.
func (s *Session) SignUp(ctx context.Context, email, password, fullName string, remember bool) (*types.User, error) {
	ident, err := s.provider.SignUp(ctx, email, password, fullName)
	if err != nil {
		return nil, err
	}
	return s.adopt(ctx, ident, remember)
}

func (s *Session) adopt(ctx context.Context, ident *backend.Identity, remember bool) (*types.User, error) {
	user, err := s.fetchProfile(ctx, ident)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.state.User = user
	s.state.Remember = remember
	if remember {
		s.state.Token = s.provider.Token()
	} else {
		s.state.Token = ""
	}
	s.mu.Unlock()

	if err := s.save(); err != nil {
		return user, fmt.Errorf("persisting session: %w", err)
	}
	return user, nil
}

// Restore loads the state file and, when a token was remembered, resumes it
// with the provider. A dead token clears the persisted session.
func (s *Session) Restore(ctx context.Context) (*types.User, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var st state
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("corrupt session file: %w", err)
	}

	s.mu.Lock()
	s.state.LastRead = st.LastRead
	s.mu.Unlock()

	if !st.Remember || st.Token == "" {
		return nil, nil
	}

	ident, err := s.provider.Resume(ctx, st.Token)
	if err != nil {
		s.mu.Lock()
		s.state.User, s.state.Token, s.state.Remember = nil, "", false
		s.mu.Unlock()
		// best effort: the dead token is already gone from memory
		_ = s.save()
		return nil, nil
	}

	user, err := s.fetchProfile(ctx, ident)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.state.User = user
	s.state.Token = st.Token
	s.state.Remember = true
	s.mu.Unlock()
	return user, nil
}

// SignOut ends the provider session and clears everything but the
// last-read mark.
func (s *Session) SignOut(ctx context.Context) error {
	err := s.provider.SignOut(ctx)

	s.mu.Lock()
	s.state.User, s.state.Token, s.state.Remember = nil, "", false
	s.mu.Unlock()

	if saveErr := s.save(); saveErr != nil && err == nil {
		err = saveErr
	}
	return err
}

// Require returns ErrNotSignedIn when no live identity is present. Stores
// call this before every mutation.
func (s *Session) Require() error {
	if s.CurrentUser() == nil {
		return backend.ErrNotSignedIn
	}
	return nil
}

// CurrentUser returns the signed-in profile, or nil. Expiry is delegated to
// the provider's identity check.
func (s *Session) CurrentUser() *types.User {
	if s.provider.CurrentIdentity() == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.User
}

// UserID returns the signed-in user id, or "".
func (s *Session) UserID() string {
	u := s.CurrentUser()
	if u == nil {
		return ""
	}
	return u.ID
}

// LastRead is the persisted chat last-read mark; zero when never set.
func (s *Session) LastRead() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.LastRead
}

// SetLastRead persists the chat last-read mark.
func (s *Session) SetLastRead(t time.Time) error {
	s.mu.Lock()
	s.state.LastRead = t
	s.mu.Unlock()
	return s.save()
}

func (s *Session) fetchProfile(ctx context.Context, ident *backend.Identity) (*types.User, error) {
	rows, err := s.provider.Select(ctx, backend.TableUsers, backend.Query{
		Conds: []backend.Cond{backend.Eq("id", ident.ID)},
		Limit: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("loading profile: %w", err)
	}
	if len(rows) == 0 {
		// Identity without a profile row: synthesize from the identity.
		return &types.User{ID: ident.ID, Email: ident.Email}, nil
	}
	user, err := backend.DecodeRow[types.User](rows[0])
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Session) save() error {
	s.mu.RLock()
	data, err := json.MarshalIndent(s.state, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}
