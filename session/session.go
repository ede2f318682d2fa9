package session

import (
	"context"
	"errors"

	"github.com/jrsteele09/distritherm-admin/users"
)

// Persisted keys, shared by every Store implementation.
const (
	KeyAccessToken  = "accessToken"
	KeyRefreshToken = "refreshToken"
	KeyUser         = "user"
)

// ErrNotFound is returned by a Store that holds no session.
var ErrNotFound = errors.New("session not found")

// Session is the authenticated state of the admin client.
// It is created on login and destroyed on logout or when a token refresh fails.
type Session struct {
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken,omitempty"`
	User         *users.User `json:"user,omitempty"`
}

// Valid reports whether the session carries an access token.
func (s *Session) Valid() bool {
	return s != nil && s.AccessToken != ""
}

// Store persists a session between process runs.
type Store interface {
	Load(ctx context.Context) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Clear(ctx context.Context) error
}
