package apitest

import (
	"context"
	"testing"
	"time"

	"github.com/jrsteele09/distritherm-admin/apiclient"
	"github.com/jrsteele09/distritherm-admin/internal/config"
	"github.com/jrsteele09/distritherm-admin/session"
	"github.com/jrsteele09/distritherm-admin/session/memstore"
	"github.com/jrsteele09/distritherm-admin/users"
	"github.com/stretchr/testify/require"
)

const (
	AdminEmail    = "admin@distritherm.fr"
	AdminPassword = "Adm1n!Pass"
)

// Harness wires a Client and a session Manager to a fresh Backend.
type Harness struct {
	Backend   *Backend
	Client    *apiclient.Client
	Session   *session.Manager
	Navigator *apiclient.PathNavigator
	Admin     Record
}

// NewHarness starts a backend holding one admin account. Nobody is signed in.
func NewHarness(t testing.TB, options ...apiclient.Option) *Harness {
	t.Helper()

	b := New()
	t.Cleanup(b.Close)

	admin := b.AddAccount(AdminEmail, AdminPassword, Record{
		"firstName": "Alice",
		"lastName":  "Martin",
		"role":      string(users.RoleAdmin),
	})

	cfg := config.API{
		BaseURL:        b.URL,
		Platform:       "web",
		LoginPath:      "/login",
		RequestTimeout: 5 * time.Second,
		UploadTimeout:  10 * time.Second,
	}
	nav := apiclient.NewPathNavigator(cfg.LoginPath, "/dashboard")
	mgr := session.NewManager(memstore.New())

	client, err := apiclient.New(cfg, mgr, append([]apiclient.Option{apiclient.WithNavigator(nav)}, options...)...)
	require.NoError(t, err)

	return &Harness{Backend: b, Client: client, Session: mgr, Navigator: nav, Admin: admin}
}

// SignIn starts a session for the admin account with freshly issued tokens.
func (h *Harness) SignIn(t testing.TB) {
	t.Helper()
	id := toInt64(h.Admin["id"])
	access, refresh := h.Backend.IssueTokens(id)
	require.NoError(t, h.Session.Start(context.Background(), session.Session{
		AccessToken:  access,
		RefreshToken: refresh,
		User:         &users.User{ID: id, Email: AdminEmail, FirstName: "Alice", LastName: "Martin", Role: users.RoleAdmin},
	}))
}
