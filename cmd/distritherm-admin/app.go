package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jrsteele09/distritherm-admin/agencies"
	"github.com/jrsteele09/distritherm-admin/apiclient"
	"github.com/jrsteele09/distritherm-admin/auth"
	"github.com/jrsteele09/distritherm-admin/brands"
	"github.com/jrsteele09/distritherm-admin/campaigns"
	"github.com/jrsteele09/distritherm-admin/categories"
	"github.com/jrsteele09/distritherm-admin/internal/config"
	"github.com/jrsteele09/distritherm-admin/internal/metrics"
	"github.com/jrsteele09/distritherm-admin/products"
	"github.com/jrsteele09/distritherm-admin/promotions"
	"github.com/jrsteele09/distritherm-admin/quotes"
	"github.com/jrsteele09/distritherm-admin/session"
	"github.com/jrsteele09/distritherm-admin/session/filestore"
	"github.com/jrsteele09/distritherm-admin/session/memstore"
	"github.com/jrsteele09/distritherm-admin/session/redisstore"
	"github.com/jrsteele09/distritherm-admin/users"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

// app holds the services every command works with.
type app struct {
	out      printer
	client   *apiclient.Client
	sessions *session.Manager
	auth     *auth.Service

	quotes     *quotes.Service
	products   *products.Service
	promotions *promotions.Service
	brands     *brands.Service
	categories *categories.Service
	agencies   *agencies.Service
	users      *users.Service
	campaigns  *campaigns.Service
}

func newApp(ctx context.Context, cfg config.Config, reg prometheus.Registerer, out printer) (*app, error) {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	sessions := session.NewManager(store)

	nav := apiclient.NewPathNavigator(cfg.GetLoginPath(), "/")
	nav.OnRedirect = func() {
		log.Warn().Msg("Session expired, run `distritherm-admin login` again")
	}
	client, err := apiclient.New(cfg, sessions,
		apiclient.WithNavigator(nav),
		apiclient.WithMetrics(metrics.NewClientMetrics(reg)),
		apiclient.WithLogger(log.Logger),
	)
	if err != nil {
		return nil, err
	}

	return &app{
		out:        out,
		client:     client,
		sessions:   sessions,
		auth:       auth.NewService(client, sessions),
		quotes:     quotes.NewService(client),
		products:   products.NewService(client),
		promotions: promotions.NewService(client),
		brands:     brands.NewService(client),
		categories: categories.NewService(client),
		agencies:   agencies.NewService(client),
		users:      users.NewService(client, sessions),
		campaigns:  campaigns.NewService(client),
	}, nil
}

func openStore(ctx context.Context, cfg config.StorageConfig) (session.Store, error) {
	switch cfg.GetSessionStore() {
	case config.StoreMemory:
		return memstore.New(), nil
	case config.StoreRedis:
		return redisstore.New(ctx, cfg.GetRedisURL(), cfg.GetRedisPrefix())
	case config.StoreFile:
		path := cfg.GetSessionFile()
		if !filepath.IsAbs(path) {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("[openStore] %w", err)
			}
			path = filepath.Join(home, path)
		}
		return filestore.New(path, filestore.WithSecret(cfg.GetSessionSecret())), nil
	}
	return nil, fmt.Errorf("[openStore] unknown session store %q", cfg.GetSessionStore())
}

// signedIn restores the stored session for commands that need one.
func (a *app) signedIn(ctx context.Context) (*users.User, error) {
	u, err := a.auth.Restore(ctx)
	if errors.Is(err, auth.NotAuthenticatedErr) {
		return nil, apiclient.WithMessage(err, "Not signed in, run `distritherm-admin login` first")
	}
	return u, err
}
