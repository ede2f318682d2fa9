package auth

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jrsteele09/distritherm-admin/apiclient"
	"github.com/jrsteele09/distritherm-admin/internal/validation"
	"github.com/jrsteele09/distritherm-admin/session"
	"github.com/jrsteele09/distritherm-admin/token"
	"github.com/jrsteele09/distritherm-admin/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	loginPath  = "/auth/regular-login"
	logoutPath = "/auth/logout"
)

// Credentials are the login form fields.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken,omitempty"`
	User         *users.User `json:"user,omitempty"`
	Message      string      `json:"message,omitempty"`

	// Some deployments wrap the payload in data.
	Data *loginResponse `json:"data,omitempty"`
}

// Service signs the admin user in and out. It owns the session lifecycle; token
// renewal itself happens inside the shared apiclient.Client.
type Service struct {
	client   *apiclient.Client
	sessions *session.Manager
	nowTime  func() time.Time
}

type ServiceOption func(*Service)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

func NewService(client *apiclient.Client, sessions *session.Manager, opts ...ServiceOption) *Service {
	s := &Service{
		client:   client,
		sessions: sessions,
		nowTime:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login exchanges credentials for tokens and starts a persisted session.
func (s *Service) Login(ctx context.Context, email, password string) (*users.User, error) {
	creds := Credentials{Email: strings.TrimSpace(email), Password: password}
	if err := validation.Struct(creds); err != nil {
		return nil, err
	}

	resp, err := s.client.Do(ctx, &apiclient.Request{
		Method:          http.MethodPost,
		Path:            loginPath,
		Body:            creds,
		SkipAuthRefresh: true,
	})
	if err != nil {
		if apiclient.StatusCode(err) == http.StatusUnauthorized {
			return nil, errors.Wrap(InvalidCredentialsErr, apiclient.Message(err))
		}
		return nil, errors.Wrap(err, "login failed")
	}

	var lr loginResponse
	if err := resp.Decode(&lr); err != nil {
		return nil, errors.Wrap(err, "login failed")
	}
	if lr.AccessToken == "" && lr.Data != nil {
		lr = *lr.Data
	}
	if lr.AccessToken == "" {
		return nil, MissingAccessTokenErr
	}

	user := lr.User
	if user == nil {
		user = userFromToken(lr.AccessToken, creds.Email)
	}

	// A fresh login supersedes any refresh still pending for an old session.
	s.client.Reset()
	if err := s.sessions.Start(ctx, session.Session{
		AccessToken:  lr.AccessToken,
		RefreshToken: lr.RefreshToken,
		User:         user,
	}); err != nil {
		return nil, errors.Wrap(err, "persisting session")
	}

	log.Info().Str("email", user.Email).Str("role", string(user.Role)).Msg("Signed in")
	return user, nil
}

// userFromToken builds a minimal profile from the access token claims when the login
// response did not include one.
func userFromToken(accessToken, email string) *users.User {
	u := &users.User{Email: email}
	in, err := token.Inspect(accessToken)
	if err != nil {
		return u
	}
	if in.Email != "" {
		u.Email = in.Email
	}
	u.Role = users.RoleType(in.Role)
	if id, err := parseID(in.Subject); err == nil {
		u.ID = id
	}
	return u
}

func parseID(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}

// Logout ends the session locally. The server is told on a best effort basis.
func (s *Service) Logout(ctx context.Context) error {
	if s.sessions.IsAuthenticated() {
		_, err := s.client.Do(ctx, &apiclient.Request{
			Method:          http.MethodPost,
			Path:            logoutPath,
			SkipAuthRefresh: true,
		})
		if err != nil {
			log.Debug().Err(err).Msg("Server side logout failed")
		}
	}

	s.client.Reset()
	if err := s.sessions.Clear(ctx); err != nil {
		return errors.Wrap(err, "clearing session")
	}
	return nil
}

// Restore rehydrates the persisted session. When the access token is a JWT that has
// already expired it is renewed up front rather than on the first 401.
func (s *Service) Restore(ctx context.Context) (*users.User, error) {
	if err := s.sessions.Init(ctx); err != nil {
		return nil, errors.Wrap(err, "loading session")
	}
	if !s.sessions.IsAuthenticated() {
		return nil, NotAuthenticatedErr
	}

	if in, err := token.Inspect(s.sessions.AccessToken()); err == nil && in.Expired(s.nowTime()) {
		log.Debug().Time("expired_at", in.ExpiresAt).Msg("Stored access token expired, refreshing")
		if err := s.client.Refresh(ctx); err != nil {
			return nil, err
		}
	}
	return s.sessions.User(), nil
}

// Refresh forces a token renewal, sharing any refresh already in flight.
func (s *Service) Refresh(ctx context.Context) error {
	if !s.sessions.IsAuthenticated() {
		return NotAuthenticatedErr
	}
	return s.client.Refresh(ctx)
}

func (s *Service) CurrentUser() *users.User {
	return s.sessions.User()
}

func (s *Service) IsAuthenticated() bool {
	return s.sessions.IsAuthenticated()
}
