package users_test

import (
	"context"
	"testing"

	"github.com/jrsteele09/distritherm-admin/apiclient"
	"github.com/jrsteele09/distritherm-admin/internal/apitest"
	apperrors "github.com/jrsteele09/distritherm-admin/internal/errors"
	"github.com/jrsteele09/distritherm-admin/internal/utils"
	"github.com/jrsteele09/distritherm-admin/pagination"
	"github.com/jrsteele09/distritherm-admin/users"
	"github.com/stretchr/testify/require"
)

type fixedActor struct{ user *users.User }

func (a fixedActor) User() *users.User { return a.user }

func newService(t *testing.T) (*apitest.Harness, *users.Service) {
	h := apitest.NewHarness(t)
	h.SignIn(t)
	return h, users.NewService(h.Client, h.Session)
}

func validCreateInput() users.CreateInput {
	return users.CreateInput{
		Email:      "paul.durand@chauffage-durand.fr",
		Password:   "Chauff4ge!",
		FirstName:  "Paul",
		LastName:   "Durand",
		Role:       users.RoleClient,
		PostalCode: "75011",
	}
}

func TestService_ListAndByRole(t *testing.T) {
	h, svc := newService(t)
	ctx := context.Background()
	h.Backend.Seed("users",
		apitest.Record{"email": "c1@distritherm.fr", "role": "COMMERCIAL", "firstName": "Chloé"},
		apitest.Record{"email": "c2@distritherm.fr", "role": "COMMERCIAL", "firstName": "Hugo"},
		apitest.Record{"email": "client@acme.fr", "role": "CLIENT"},
	)

	page, err := svc.List(ctx, pagination.Params{Page: 1, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.Equal(t, 4, page.Meta.Total)
	require.Equal(t, 2, page.Meta.LastPage)

	commercials, err := svc.ListByRole(ctx, users.RoleCommercial, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, commercials.Items, 2)
	for _, u := range commercials.Items {
		require.True(t, u.IsCommercial())
	}

	_, err = svc.ListByRole(ctx, "SUPERUSER", pagination.Params{})
	require.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestService_Get(t *testing.T) {
	h, svc := newService(t)
	ctx := context.Background()

	admin, err := svc.Get(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, apitest.AdminEmail, admin.Email)

	_, err = svc.Get(ctx, 999)
	require.True(t, apiclient.IsNotFound(err))
	require.Equal(t, "User does not exist", apiclient.Message(err))
	require.Equal(t, 1, h.Backend.CountRequests("GET /users/999"))
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("created", func(t *testing.T) {
		_, svc := newService(t)
		u, err := svc.Create(ctx, validCreateInput())
		require.NoError(t, err)
		require.NotZero(t, u.ID)
		require.Equal(t, users.RoleClient, u.Role)
		require.False(t, u.IsEmailVerified)
	})

	t.Run("duplicate email", func(t *testing.T) {
		_, svc := newService(t)
		in := validCreateInput()
		in.Email = apitest.AdminEmail
		_, err := svc.Create(ctx, in)
		require.True(t, apiclient.IsConflict(err))
		require.Equal(t, users.DuplicateEmailMessage, apiclient.Message(err))
	})

	t.Run("weak password rejected locally", func(t *testing.T) {
		h, svc := newService(t)
		in := validCreateInput()
		in.Password = "password"
		_, err := svc.Create(ctx, in)
		require.ErrorIs(t, err, apperrors.ErrInvalidInput)
		require.Contains(t, err.Error(), "uppercase")
		require.Zero(t, h.Backend.CountRequests("POST /users/create-user"))
	})

	t.Run("invalid fields", func(t *testing.T) {
		_, svc := newService(t)
		in := validCreateInput()
		in.Email = "paul"
		in.SiretNumber = "123"
		_, err := svc.Create(ctx, in)
		require.ErrorIs(t, err, apperrors.ErrInvalidInput)
		require.Contains(t, err.Error(), "email")
		require.Contains(t, err.Error(), "siretNumber")
	})
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("admin edits anyone", func(t *testing.T) {
		h, svc := newService(t)
		other := h.Backend.Seed("users", apitest.Record{"email": "c1@distritherm.fr", "role": "COMMERCIAL"})[0]

		u, err := svc.Update(ctx, other["id"].(int64), users.UpdateInput{City: utils.Ptr("Lyon")})
		require.NoError(t, err)
		require.Equal(t, "Lyon", u.City)
	})

	t.Run("non admin cannot edit another profile", func(t *testing.T) {
		h := apitest.NewHarness(t)
		h.SignIn(t)
		svc := users.NewService(h.Client, fixedActor{&users.User{ID: 5, Role: users.RoleCommercial}})

		_, err := svc.Update(ctx, 1, users.UpdateInput{City: utils.Ptr("Lyon")})
		require.ErrorIs(t, err, apperrors.ErrForbidden)
		require.Equal(t, users.ForbiddenEditMessage, apiclient.Message(err))
		require.Zero(t, h.Backend.CountRequests("PUT /users/1"))
	})

	t.Run("non admin cannot change own role", func(t *testing.T) {
		h := apitest.NewHarness(t)
		h.SignIn(t)
		svc := users.NewService(h.Client, fixedActor{&users.User{ID: 1, Role: users.RoleCommercial}})

		_, err := svc.Update(ctx, 1, users.UpdateInput{Role: utils.Ptr(users.RoleAdmin)})
		require.ErrorIs(t, err, apperrors.ErrForbidden)
	})

	t.Run("missing user", func(t *testing.T) {
		_, svc := newService(t)
		_, err := svc.Update(ctx, 404, users.UpdateInput{City: utils.Ptr("Lyon")})
		require.Equal(t, "User does not exist", apiclient.Message(err))
	})
}

func TestService_Delete(t *testing.T) {
	h, svc := newService(t)
	ctx := context.Background()
	other := h.Backend.Seed("users", apitest.Record{"email": "old@acme.fr", "role": "CLIENT"})[0]
	id := other["id"].(int64)

	require.NoError(t, svc.Delete(ctx, id))
	_, ok := h.Backend.Get("users", id)
	require.False(t, ok)
	require.True(t, apiclient.IsNotFound(svc.Delete(ctx, id)))
}

func TestService_Verification(t *testing.T) {
	_, svc := newService(t)
	ctx := context.Background()

	msg, err := svc.SendVerification(ctx, "client@acme.fr")
	require.NoError(t, err)
	require.Equal(t, "Verification email sent", msg)

	msg, err = svc.VerifyEmail(ctx, "client@acme.fr", "123456")
	require.NoError(t, err)
	require.Equal(t, "Email verified", msg)

	_, err = svc.VerifyEmail(ctx, "client@acme.fr", "")
	require.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestController_ForbiddenEditShown(t *testing.T) {
	h := apitest.NewHarness(t)
	h.SignIn(t)
	ctx := context.Background()
	svc := users.NewService(h.Client, fixedActor{&users.User{ID: 5, Role: users.RoleCommercial}})
	ctrl := users.NewController(svc, h.Session)
	defer ctrl.Close()

	require.NoError(t, ctrl.Load(ctx, pagination.Params{Page: 1, Limit: 10}))
	require.Len(t, ctrl.State().Items, 1)

	err := ctrl.Update(ctx, 1, users.UpdateInput{City: utils.Ptr("Lyon")})
	require.ErrorIs(t, err, apperrors.ErrForbidden)
	require.Equal(t, users.ForbiddenEditMessage, ctrl.State().Error)
	require.False(t, ctrl.State().Loading)
}

func TestUser_FullName(t *testing.T) {
	tests := []struct {
		name string
		user *users.User
		want string
	}{
		{"first and last name", &users.User{FirstName: "Chloé", LastName: "Bernard", Email: "chloe.bernard@distritherm.fr"}, "Chloé Bernard"},
		{"last name only", &users.User{LastName: "Bernard"}, "Bernard"},
		{"falls back to email", &users.User{FirstName: " ", Email: "chloe.bernard@distritherm.fr"}, "chloe.bernard@distritherm.fr"},
		{"nil user", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.user.FullName())
		})
	}
}
