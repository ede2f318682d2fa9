package main

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/jrsteele09/distritherm-admin/pagination"
	"github.com/jrsteele09/distritherm-admin/quotes"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Summary is the set of collection totals shown on the dashboard home.
type Summary struct {
	Quotes     map[quotes.Status]int `json:"quotes" yaml:"quotes"`
	Products   int                   `json:"products" yaml:"products"`
	Promotions int                   `json:"promotions" yaml:"promotions"`
	Users      int                   `json:"users" yaml:"users"`
	Brands     int                   `json:"brands" yaml:"brands"`
	Categories int                   `json:"categories" yaml:"categories"`
	Agencies   int                   `json:"agencies" yaml:"agencies"`
}

const dashboardConcurrency = 4

func runDashboard(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("dashboard")
	watch := fs.Duration("watch", 0, "refresh interval, 0 to print once")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if _, err := a.signedIn(ctx); err != nil {
		return err
	}

	if err := printSummary(ctx, a); err != nil || *watch <= 0 {
		return err
	}
	ticker := time.NewTicker(*watch)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := printSummary(ctx, a); err != nil {
				log.Warn().Err(err).Msg("Dashboard refresh failed")
			}
		}
	}
}

func printSummary(ctx context.Context, a *app) error {
	s, err := summarize(ctx, a)
	if err != nil {
		return err
	}
	return a.out.print(s, func(w io.Writer) {
		fmt.Fprintln(w, "QUOTES")
		for _, status := range quotes.Statuses() {
			fmt.Fprintf(w, "  %s\t%d\n", status.Label(), s.Quotes[status])
		}
		fmt.Fprintf(w, "PRODUCTS\t%d\n", s.Products)
		fmt.Fprintf(w, "PROMOTIONS\t%d\n", s.Promotions)
		fmt.Fprintf(w, "USERS\t%d\n", s.Users)
		fmt.Fprintf(w, "BRANDS\t%d\n", s.Brands)
		fmt.Fprintf(w, "CATEGORIES\t%d\n", s.Categories)
		fmt.Fprintf(w, "AGENCIES\t%d\n", s.Agencies)
	})
}

// summarize asks for one item of each collection and reads the totals from the page
// metadata.
func summarize(ctx context.Context, a *app) (Summary, error) {
	one := pagination.Params{Page: 1, Limit: 1}
	s := Summary{Quotes: make(map[quotes.Status]int)}
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(dashboardConcurrency)

	for _, status := range quotes.Statuses() {
		g.Go(func() error {
			page, err := a.quotes.Search(ctx, quotes.Filters{Status: status}, one)
			if err != nil {
				return err
			}
			mu.Lock()
			s.Quotes[status] = page.Meta.Total
			mu.Unlock()
			return nil
		})
	}

	count := func(dst *int, list func(context.Context) (int, error)) {
		g.Go(func() error {
			n, err := list(ctx)
			if err != nil {
				return err
			}
			mu.Lock()
			*dst = n
			mu.Unlock()
			return nil
		})
	}
	count(&s.Products, func(ctx context.Context) (int, error) {
		page, err := a.products.List(ctx, one)
		return page.Meta.Total, err
	})
	count(&s.Promotions, func(ctx context.Context) (int, error) {
		page, err := a.promotions.List(ctx, one)
		return page.Meta.Total, err
	})
	count(&s.Users, func(ctx context.Context) (int, error) {
		page, err := a.users.List(ctx, one)
		return page.Meta.Total, err
	})
	count(&s.Brands, func(ctx context.Context) (int, error) {
		page, err := a.brands.List(ctx, one)
		return page.Meta.Total, err
	})
	count(&s.Categories, func(ctx context.Context) (int, error) {
		page, err := a.categories.List(ctx, one)
		return page.Meta.Total, err
	})
	count(&s.Agencies, func(ctx context.Context) (int, error) {
		page, err := a.agencies.List(ctx, one)
		return page.Meta.Total, err
	})

	if err := g.Wait(); err != nil {
		return Summary{}, err
	}
	return s, nil
}
