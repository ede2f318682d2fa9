package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jrsteele09/distritherm-admin/token"
	"github.com/jrsteele09/distritherm-admin/users"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// Manager owns the current session. All reads and the token swap performed after a
// refresh go through its lock, so every request observes a single current token.
type Manager struct {
	store   Store
	mu      sync.RWMutex
	current Session
}

func NewManager(store Store) *Manager {
	return &Manager{store: store}
}

// Init rehydrates the session from the store. A stored session without an access
// token is ignored.
func (m *Manager) Init(ctx context.Context) error {
	s, err := m.store.Load(ctx)
	if errors.Is(err, ErrNotFound) {
		m.Reset()
		return nil
	}
	if err != nil {
		return fmt.Errorf("[session.Init] %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if !s.Valid() {
		m.current = Session{}
		return nil
	}
	m.current = *s
	return nil
}

// Reset drops the in memory session without touching the store.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = Session{}
}

// Start replaces the session after a successful login and persists it.
func (m *Manager) Start(ctx context.Context, s Session) error {
	if !s.Valid() {
		return errors.New("[session.Start] access token is required")
	}
	m.mu.Lock()
	m.current = s
	m.mu.Unlock()

	if err := m.store.Save(ctx, &s); err != nil {
		return fmt.Errorf("[session.Start] %w", err)
	}
	return nil
}

// Current returns a copy of the session and whether it is authenticated.
func (m *Manager) Current() (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current, m.current.Valid()
}

func (m *Manager) AccessToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current.AccessToken
}

func (m *Manager) RefreshToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current.RefreshToken
}

func (m *Manager) User() *users.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current.User
}

func (m *Manager) IsAuthenticated() bool {
	return m.AccessToken() != ""
}

// Token exposes the current credentials as an oauth2.Token.
func (m *Manager) Token() *oauth2.Token {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return token.OAuth2(m.current.AccessToken, m.current.RefreshToken)
}

// SetTokens atomically swaps in a refreshed access token. An empty refreshToken keeps
// the previous one.
func (m *Manager) SetTokens(ctx context.Context, accessToken, refreshToken string) error {
	m.mu.Lock()
	m.current.AccessToken = accessToken
	if refreshToken != "" {
		m.current.RefreshToken = refreshToken
	}
	snapshot := m.current
	m.mu.Unlock()

	if err := m.store.Save(ctx, &snapshot); err != nil {
		return fmt.Errorf("[session.SetTokens] %w", err)
	}
	return nil
}

// SetUser updates the cached profile, e.g. after the user edits their own account.
func (m *Manager) SetUser(ctx context.Context, u *users.User) error {
	m.mu.Lock()
	m.current.User = u
	snapshot := m.current
	m.mu.Unlock()

	if !snapshot.Valid() {
		return nil
	}
	return m.store.Save(ctx, &snapshot)
}

// Clear destroys the session in memory and in the store.
func (m *Manager) Clear(ctx context.Context) error {
	m.Reset()
	if err := m.store.Clear(ctx); err != nil {
		log.Err(err).Msg("Failed to clear persisted session")
		return fmt.Errorf("[session.Clear] %w", err)
	}
	return nil
}
