package quotes_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/jrsteele09/distritherm-admin/apiclient"
	"github.com/jrsteele09/distritherm-admin/auth"
	"github.com/jrsteele09/distritherm-admin/internal/apitest"
	apperrors "github.com/jrsteele09/distritherm-admin/internal/errors"
	"github.com/jrsteele09/distritherm-admin/internal/utils"
	"github.com/jrsteele09/distritherm-admin/pagination"
	"github.com/jrsteele09/distritherm-admin/quotes"
	"github.com/stretchr/testify/require"
)

func seedQuotes(h *apitest.Harness) {
	h.Backend.Seed("users",
		apitest.Record{"id": 3, "email": "client@chauffage-durand.fr", "role": "CLIENT", "firstName": "Paul", "lastName": "Durand"},
		apitest.Record{"id": 7, "email": "chloe.bernard@distritherm.fr", "role": "COMMERCIAL", "firstName": "Chloé", "lastName": "Bernard"},
	)
	h.Backend.Seed("devis",
		apitest.Record{"id": 40, "status": "PENDING", "userId": 3, "cart": apitest.Record{"id": 9, "totalPrice": 150, "cartItems": []any{}}},
		apitest.Record{"id": 41, "status": "SENDED", "userId": 3, "commercialId": 7},
		apitest.Record{"id": 42, "status": "PENDING", "userId": 3},
	)
}

func newQuoteService(t *testing.T, opts ...quotes.ServiceOption) (*apitest.Harness, *quotes.Service) {
	h := apitest.NewHarness(t)
	h.SignIn(t)
	seedQuotes(h)
	return h, quotes.NewService(h.Client, opts...)
}

func findQuote(t *testing.T, items []quotes.Quote, id int64) quotes.Quote {
	t.Helper()
	for _, q := range items {
		if q.ID == id {
			return q
		}
	}
	require.FailNow(t, fmt.Sprintf("quote %d not in page", id))
	return quotes.Quote{}
}

func TestController_AssignCommercialAfterLogin(t *testing.T) {
	h := apitest.NewHarness(t)
	seedQuotes(h)
	ctx := context.Background()

	_, err := auth.NewService(h.Client, h.Session).Login(ctx, apitest.AdminEmail, apitest.AdminPassword)
	require.NoError(t, err)

	ctrl := quotes.NewController(quotes.NewService(h.Client), h.Session)
	defer ctrl.Close()

	require.NoError(t, ctrl.Load(ctx, pagination.Params{Page: 1, Limit: 10}))
	state := ctrl.State()
	require.Len(t, state.Items, 3)
	require.NotNil(t, state.Meta)
	require.Equal(t, 3, state.Meta.Total)
	require.Equal(t, 1, state.Meta.LastPage)
	q42 := findQuote(t, state.Items, 42)
	require.Zero(t, q42.AssignedTo())

	require.NoError(t, ctrl.Update(ctx, 42, quotes.UpdateInput{CommercialID: utils.Ptr(int64(7))}))

	state = ctrl.State()
	require.Empty(t, state.Error)
	require.False(t, state.Loading)
	q := findQuote(t, state.Items, 42)
	require.NotNil(t, q.Commercial)
	require.Equal(t, int64(7), q.Commercial.UserID)
	require.Equal(t, "Chloé", q.Commercial.User.FirstName)
	require.Equal(t, quotes.StatusPending, q.Status)
	require.Equal(t, 2, h.Backend.CountRequests("GET /devis"))
}

func TestController_StatusChangeReloads(t *testing.T) {
	h, svc := newQuoteService(t)
	ctx := context.Background()
	ctrl := quotes.NewController(svc, h.Session)
	defer ctrl.Close()

	require.NoError(t, ctrl.Load(ctx, pagination.Params{Page: 1, Limit: 10}))
	require.NoError(t, ctrl.Update(ctx, 40, quotes.UpdateInput{Status: utils.Ptr(quotes.StatusAccepted)}))
	require.Equal(t, quotes.StatusAccepted, findQuote(t, ctrl.State().Items, 40).Status)

	err := ctrl.Update(ctx, 40, quotes.UpdateInput{Status: utils.Ptr(quotes.Status("ARCHIVED"))})
	require.ErrorIs(t, err, apperrors.ErrInvalidStatus)
	require.NotEmpty(t, ctrl.State().Error)
	require.Equal(t, 1, h.Backend.CountRequests("PUT /devis/40"))
}

func TestController_StatusChangeFollowsPolicy(t *testing.T) {
	noAcceptance := quotes.TransitionFunc(func(from, to quotes.Status) error {
		if to == quotes.StatusAccepted {
			return fmt.Errorf("%w: %s cannot be accepted here", apperrors.ErrInvalidStatus, from)
		}
		return quotes.PermissivePolicy.Allow(from, to)
	})
	h, svc := newQuoteService(t, quotes.WithTransitionPolicy(noAcceptance))
	ctx := context.Background()
	ctrl := quotes.NewController(svc, h.Session)
	defer ctrl.Close()

	require.NoError(t, ctrl.Load(ctx, pagination.Params{Page: 1, Limit: 10}))

	err := ctrl.Update(ctx, 40, quotes.UpdateInput{Status: utils.Ptr(quotes.StatusAccepted)})
	require.ErrorIs(t, err, apperrors.ErrInvalidStatus)
	require.NotEmpty(t, ctrl.State().Error)
	require.Zero(t, h.Backend.CountRequests("PUT /devis/40"))

	stored, err := svc.Get(ctx, 40)
	require.NoError(t, err)
	require.Equal(t, quotes.StatusPending, stored.Status)

	require.NoError(t, ctrl.Update(ctx, 40, quotes.UpdateInput{Status: utils.Ptr(quotes.StatusRejected)}))
	require.Equal(t, quotes.StatusRejected, findQuote(t, ctrl.State().Items, 40).Status)
	require.Equal(t, 1, h.Backend.CountRequests("PUT /devis/40"))
}

func TestService_AssignCommercial(t *testing.T) {
	_, svc := newQuoteService(t)
	ctx := context.Background()

	t.Run("assign keeps the status", func(t *testing.T) {
		q, err := svc.AssignCommercial(ctx, 41, 3)
		require.NoError(t, err)
		require.Equal(t, int64(3), q.AssignedTo())
		require.Equal(t, quotes.StatusSended, q.Status)
	})

	t.Run("unassign", func(t *testing.T) {
		q, err := svc.AssignCommercial(ctx, 41, 0)
		require.NoError(t, err)
		require.Nil(t, q.Commercial)
		require.Nil(t, q.CommercialID)
		require.Zero(t, q.AssignedTo())
	})

	t.Run("missing quote", func(t *testing.T) {
		_, err := svc.AssignCommercial(ctx, 99, 7)
		require.True(t, apiclient.IsNotFound(err))
		require.Equal(t, "Quote does not exist", apiclient.Message(err))
	})

	t.Run("negative id", func(t *testing.T) {
		_, err := svc.AssignCommercial(ctx, 41, -1)
		require.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})
}

func TestService_UpdateStatus(t *testing.T) {
	t.Run("permissive", func(t *testing.T) {
		h, svc := newQuoteService(t)
		ctx := context.Background()

		q, err := svc.UpdateStatus(ctx, 41, quotes.StatusPending)
		require.NoError(t, err)
		require.Equal(t, quotes.StatusPending, q.Status)
		require.Equal(t, int64(7), q.AssignedTo())
		require.Zero(t, h.Backend.CountRequests("GET /devis/41"))

		_, err = svc.UpdateStatus(ctx, 41, "DONE")
		require.ErrorIs(t, err, apperrors.ErrInvalidStatus)
		require.Equal(t, 1, h.Backend.CountRequests("PUT /devis/41"))
	})

	t.Run("custom policy", func(t *testing.T) {
		finalIsFinal := quotes.TransitionFunc(func(from, to quotes.Status) error {
			if from.Final() && from != to {
				return fmt.Errorf("%w: %s is final", apperrors.ErrInvalidStatus, from)
			}
			return quotes.PermissivePolicy.Allow(from, to)
		})
		h, svc := newQuoteService(t, quotes.WithTransitionPolicy(finalIsFinal))
		ctx := context.Background()

		_, err := svc.UpdateStatus(ctx, 42, quotes.StatusRejected)
		require.NoError(t, err)

		_, err = svc.UpdateStatus(ctx, 42, quotes.StatusPending)
		require.ErrorIs(t, err, apperrors.ErrInvalidStatus)
		require.Equal(t, 1, h.Backend.CountRequests("PUT /devis/42"))
	})
}

func TestService_Queries(t *testing.T) {
	_, svc := newQuoteService(t)
	ctx := context.Background()

	t.Run("get with total", func(t *testing.T) {
		q, err := svc.Get(ctx, 40)
		require.NoError(t, err)
		require.Equal(t, "150", quotes.Total(&q).String())
	})

	t.Run("get missing", func(t *testing.T) {
		_, err := svc.Get(ctx, 404)
		require.True(t, apiclient.IsNotFound(err))
		require.Equal(t, "Quote does not exist", apiclient.Message(err))
	})

	t.Run("search by status", func(t *testing.T) {
		page, err := svc.Search(ctx, quotes.Filters{Status: quotes.StatusPending}, pagination.Params{})
		require.NoError(t, err)
		require.Len(t, page.Items, 2)

		_, err = svc.Search(ctx, quotes.Filters{Status: "LOST"}, pagination.Params{})
		require.ErrorIs(t, err, apperrors.ErrInvalidStatus)
	})

	t.Run("by commercial", func(t *testing.T) {
		page, err := svc.ListByCommercial(ctx, 7, pagination.Params{})
		require.NoError(t, err)
		require.Len(t, page.Items, 1)
		require.Equal(t, int64(41), page.Items[0].ID)

		q, err := svc.GetByCommercial(ctx, 7, 41)
		require.NoError(t, err)
		require.Equal(t, "Bernard", q.Commercial.User.LastName)

		_, err = svc.GetByCommercial(ctx, 7, 42)
		require.True(t, apiclient.IsNotFound(err))

		_, err = svc.ListByCommercial(ctx, 0, pagination.Params{})
		require.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})
}

func TestService_CreateAndDelete(t *testing.T) {
	h, svc := newQuoteService(t)
	ctx := context.Background()

	q, err := svc.Create(ctx, quotes.CreateInput{UserID: 3, CartID: 12, Comment: "Chantier Lyon 3e"})
	require.NoError(t, err)
	require.Equal(t, quotes.StatusPending, q.Status)
	require.NotNil(t, q.CreatedAt)

	_, err = svc.Create(ctx, quotes.CreateInput{UserID: 3})
	require.ErrorIs(t, err, apperrors.ErrInvalidInput)

	require.NoError(t, svc.Delete(ctx, q.ID))
	_, ok := h.Backend.Get("devis", q.ID)
	require.False(t, ok)
}
