package pagination_test

import (
	"testing"

	"github.com/jrsteele09/distritherm-admin/pagination"
	"github.com/stretchr/testify/require"
)

func TestLastPage(t *testing.T) {
	require.Equal(t, 3, pagination.LastPage(25, 10))
	require.Equal(t, 2, pagination.LastPage(20, 10))
	require.Equal(t, 1, pagination.LastPage(0, 10))
	require.Equal(t, 1, pagination.LastPage(3, 10))
	require.Equal(t, 3, pagination.LastPage(25, 0)) // default limit applies
}

func TestNewMeta(t *testing.T) {
	m := pagination.NewMeta(25, 2, 10)
	require.Equal(t, pagination.Meta{Total: 25, Page: 2, Limit: 10, LastPage: 3}, m)

	m = pagination.NewMeta(5, 0, 1000)
	require.Equal(t, 1, m.Page)
	require.Equal(t, pagination.MaxLimit, m.Limit)
}

func TestMeta_Normalize(t *testing.T) {
	complete := pagination.Meta{Total: 40, Page: 4, Limit: 10, LastPage: 4}
	require.Equal(t, complete, complete.Normalize())

	missing := pagination.Meta{Total: 25, Page: 2, Limit: 10}
	require.Equal(t, 3, missing.Normalize().LastPage)
}

func TestParams_Query(t *testing.T) {
	p := pagination.Params{Page: 2, Limit: 10}.
		WithFilter("status", "PENDING").
		WithFilter("commercialId", "")

	q := p.Query()
	require.Equal(t, "2", q.Get("page"))
	require.Equal(t, "10", q.Get("limit"))
	require.Equal(t, "PENDING", q.Get("status"))
	require.False(t, q.Has("commercialId"))

	cleared := p.WithFilter("status", "")
	require.Empty(t, cleared.Filters)
	require.Equal(t, "PENDING", p.Filters["status"])
}

func TestParams_QueryDefaults(t *testing.T) {
	q := pagination.Params{}.Query()
	require.Equal(t, "1", q.Get("page"))
	require.Equal(t, "10", q.Get("limit"))
}
