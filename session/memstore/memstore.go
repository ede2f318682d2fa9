package memstore

import (
	"context"
	"sync"

	"github.com/jrsteele09/distritherm-admin/session"
)

var _ session.Store = (*Store)(nil)

// Store keeps the session in memory only; nothing survives the process.
type Store struct {
	lock    sync.RWMutex
	session *session.Session
}

func New() *Store {
	return &Store{}
}

func (s *Store) Load(_ context.Context) (*session.Session, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	if s.session == nil {
		return nil, session.ErrNotFound
	}
	c := *s.session
	return &c, nil
}

func (s *Store) Save(_ context.Context, sess *session.Session) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	c := *sess
	s.session = &c
	return nil
}

func (s *Store) Clear(_ context.Context) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.session = nil
	return nil
}
