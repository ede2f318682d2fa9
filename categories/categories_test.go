package categories_test

import (
	"context"
	"testing"

	"github.com/jrsteele09/distritherm-admin/categories"
	"github.com/jrsteele09/distritherm-admin/internal/apitest"
	apperrors "github.com/jrsteele09/distritherm-admin/internal/errors"
	"github.com/jrsteele09/distritherm-admin/internal/utils"
	"github.com/jrsteele09/distritherm-admin/pagination"
	"github.com/jrsteele09/distritherm-admin/resource"
	"github.com/stretchr/testify/require"
)

func TestService_AgencyJoin(t *testing.T) {
	h := apitest.NewHarness(t)
	h.SignIn(t)
	h.Backend.Seed("agencies", apitest.Record{"id": 2, "name": "Agence Lyon"}, apitest.Record{"id": 3, "name": "Agence Paris"})
	svc := categories.NewService(h.Client)
	ctx := context.Background()

	root, err := svc.Create(ctx, categories.Input{Name: "Chauffage", AgenceID: 2, Level: 1, IsActive: true})
	require.NoError(t, err)
	require.Equal(t, "Agence Lyon", root.AgenceName)

	_, err = svc.Create(ctx, categories.Input{Name: "Chaudières", AgenceID: 2, Level: 2, ParentCategoryID: utils.Ptr(root.ID)})
	require.NoError(t, err)
	_, err = svc.Create(ctx, categories.Input{Name: "Climatisation", AgenceID: 3, Level: 1})
	require.NoError(t, err)

	_, err = svc.Create(ctx, categories.Input{Name: "Trop profond", AgenceID: 2, Level: 4})
	require.ErrorIs(t, err, apperrors.ErrInvalidInput)

	page, err := svc.List(ctx, categories.ByAgency(pagination.Params{}, 2))
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.Len(t, categories.Roots(page.Items), 1)
	require.Len(t, categories.Children(page.Items, root.ID), 1)

	t.Run("controller reloads so the join is present", func(t *testing.T) {
		ctrl := resource.New[categories.Category, categories.Input, categories.Input](svc, h.Session)
		defer ctrl.Close()
		require.NoError(t, ctrl.Load(ctx, pagination.Params{Page: 1, Limit: 10}))

		require.NoError(t, ctrl.Update(ctx, root.ID, categories.Input{Name: "Chauffage", AgenceID: 3, Level: 1}))
		for _, c := range ctrl.State().Items {
			if c.ID == root.ID {
				require.Equal(t, "Agence Paris", c.AgenceName)
			}
		}
	})
}

func TestTree(t *testing.T) {
	cats := []categories.Category{
		{ID: 1, Name: "Chauffage"},
		{ID: 2, Name: "Sanitaire"},
		{ID: 3, Name: "Chaudières", ParentCategoryID: utils.Ptr(int64(1))},
		{ID: 4, Name: "Radiateurs", ParentCategoryID: utils.Ptr(int64(1))},
		{ID: 5, Name: "Chaudières gaz", ParentCategoryID: utils.Ptr(int64(3))},
	}

	roots := categories.Roots(cats)
	require.Equal(t, []int64{1, 2}, []int64{roots[0].ID, roots[1].ID})

	children := categories.Children(cats, 1)
	require.Equal(t, []int64{3, 4}, []int64{children[0].ID, children[1].ID})
	require.Empty(t, categories.Children(cats, 2))
	require.NotNil(t, categories.Children(nil, 1))
}
