package redisstore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jrsteele09/distritherm-admin/session"
	"github.com/jrsteele09/distritherm-admin/session/redisstore"
	"github.com/jrsteele09/distritherm-admin/users"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type mockCmdable struct {
	values map[string]string
	getErr error
}

func newMockCmdable() *mockCmdable {
	return &mockCmdable{values: make(map[string]string)}
}

func (m *mockCmdable) Get(_ context.Context, key string) *redis.StringCmd {
	if m.getErr != nil {
		return redis.NewStringResult("", m.getErr)
	}
	v, ok := m.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *mockCmdable) Set(_ context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	m.values[key] = value.(string)
	return redis.NewStatusResult("OK", nil)
}

func (m *mockCmdable) Del(_ context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, k := range keys {
		if _, ok := m.values[k]; ok {
			delete(m.values, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func TestStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	s := redisstore.NewWithClient(mock, "distritherm:")

	_, err := s.Load(ctx)
	require.ErrorIs(t, err, session.ErrNotFound)

	require.NoError(t, s.Save(ctx, &session.Session{
		AccessToken:  "a1",
		RefreshToken: "r1",
		User:         &users.User{ID: 2, Email: "client@example.com", Role: users.RoleClient},
	}))
	require.Equal(t, "a1", mock.values["distritherm:accessToken"])
	require.Equal(t, "r1", mock.values["distritherm:refreshToken"])
	require.Contains(t, mock.values["distritherm:user"], `"email":"client@example.com"`)

	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "r1", loaded.RefreshToken)
	require.Equal(t, int64(2), loaded.User.ID)

	require.NoError(t, s.Clear(ctx))
	require.Empty(t, mock.values)
}

func TestStore_AccessTokenOnly(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	mock.values["accessToken"] = "bare"
	s := redisstore.NewWithClient(mock, "")

	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "bare", loaded.AccessToken)
	require.Empty(t, loaded.RefreshToken)
	require.Nil(t, loaded.User)
}

func TestStore_LoadError(t *testing.T) {
	mock := newMockCmdable()
	mock.getErr = errors.New("connection refused")
	s := redisstore.NewWithClient(mock, "x")

	_, err := s.Load(context.Background())
	require.Error(t, err)
	require.NotErrorIs(t, err, session.ErrNotFound)
}

func TestNew_RequiresURL(t *testing.T) {
	_, err := redisstore.New(context.Background(), "", "x")
	require.Error(t, err)
}
