package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jrsteele09/distritherm-admin/session"
	"github.com/jrsteele09/distritherm-admin/users"
	"github.com/redis/go-redis/v9"
)

var _ session.Store = (*Store)(nil)

type cmdable interface {
	Get(context.Context, string) *redis.StringCmd
	Set(context.Context, string, any, time.Duration) *redis.StatusCmd
	Del(context.Context, ...string) *redis.IntCmd
}

// Store keeps the session under "<prefix>:accessToken", "<prefix>:refreshToken" and
// "<prefix>:user", so several admin workstations can share one login.
type Store struct {
	client cmdable
	prefix string
}

// New connects to redisURL and verifies connectivity.
func New(ctx context.Context, redisURL, prefix string) (*Store, error) {
	if redisURL == "" {
		return nil, errors.New("[redisstore.New] redis url is required")
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("[redisstore.New] parsing redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("[redisstore.New] ping redis: %w", err)
	}
	return NewWithClient(client, prefix), nil
}

func NewWithClient(client cmdable, prefix string) *Store {
	return &Store{client: client, prefix: strings.TrimSuffix(prefix, ":")}
}

func (s *Store) key(name string) string {
	if s.prefix == "" {
		return name
	}
	return s.prefix + ":" + name
}

func (s *Store) Load(ctx context.Context) (*session.Session, error) {
	access, err := s.client.Get(ctx, s.key(session.KeyAccessToken)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("[redisstore.Load] %w", err)
	}

	sess := &session.Session{AccessToken: access}
	if sess.RefreshToken, err = s.optional(ctx, session.KeyRefreshToken); err != nil {
		return nil, err
	}
	rawUser, err := s.optional(ctx, session.KeyUser)
	if err != nil {
		return nil, err
	}
	if rawUser != "" {
		var u users.User
		if err := json.Unmarshal([]byte(rawUser), &u); err != nil {
			return nil, fmt.Errorf("[redisstore.Load] decoding user: %w", err)
		}
		sess.User = &u
	}
	return sess, nil
}

func (s *Store) optional(ctx context.Context, name string) (string, error) {
	v, err := s.client.Get(ctx, s.key(name)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("[redisstore.Load] %s: %w", name, err)
	}
	return v, nil
}

func (s *Store) Save(ctx context.Context, sess *session.Session) error {
	if err := s.client.Set(ctx, s.key(session.KeyAccessToken), sess.AccessToken, 0).Err(); err != nil {
		return fmt.Errorf("[redisstore.Save] %w", err)
	}
	if sess.RefreshToken != "" {
		if err := s.client.Set(ctx, s.key(session.KeyRefreshToken), sess.RefreshToken, 0).Err(); err != nil {
			return fmt.Errorf("[redisstore.Save] %w", err)
		}
	}
	if sess.User != nil {
		raw, err := json.Marshal(sess.User)
		if err != nil {
			return fmt.Errorf("[redisstore.Save] encoding user: %w", err)
		}
		if err := s.client.Set(ctx, s.key(session.KeyUser), string(raw), 0).Err(); err != nil {
			return fmt.Errorf("[redisstore.Save] %w", err)
		}
	}
	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	keys := []string{s.key(session.KeyAccessToken), s.key(session.KeyRefreshToken), s.key(session.KeyUser)}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("[redisstore.Clear] %w", err)
	}
	return nil
}
