// Package resource holds one page of a remote collection and keeps it consistent with
// the server across create, update and delete.
package resource

import (
	"context"
	"errors"
	"sync"

	"github.com/jrsteele09/distritherm-admin/apiclient"
	"github.com/jrsteele09/distritherm-admin/pagination"
	"github.com/rs/zerolog/log"
)

var (
	// ErrClosed is returned by every operation once Close was called.
	ErrClosed = errors.New("resource controller closed")
	// ErrSuperseded is returned by a Load whose result was dropped because a newer Load started.
	ErrSuperseded = errors.New("load superseded by a newer load")
)

// Fetcher is the per resource service a Controller drives.
type Fetcher[T, C, U any] interface {
	List(ctx context.Context, params pagination.Params) (pagination.Page[T], error)
	Create(ctx context.Context, input C) (T, error)
	Update(ctx context.Context, id int64, input U) (T, error)
	Delete(ctx context.Context, id int64) error
}

// Authenticator reports whether a session token is available. session.Manager implements it.
type Authenticator interface {
	IsAuthenticated() bool
}

// State is a snapshot of the controller. Meta is nil until a load succeeds.
type State[T any] struct {
	Items   []T
	Meta    *pagination.Meta
	Loading bool
	Error   string
}

type Option[T any] func(*options[T])

type options[T any] struct {
	name        string
	defaults    pagination.Params
	localInsert bool
	onChange    func(State[T])
}

// WithName labels the controller in logs.
func WithName[T any](name string) Option[T] {
	return func(o *options[T]) {
		o.name = name
	}
}

// WithDefaults sets the params Refresh uses before the first Load.
func WithDefaults[T any](params pagination.Params) Option[T] {
	return func(o *options[T]) {
		o.defaults = params
	}
}

// WithLocalInsert appends created items to the held page instead of reloading. Only
// suitable for resources without server computed fields.
func WithLocalInsert[T any]() Option[T] {
	return func(o *options[T]) {
		o.localInsert = true
	}
}

// OnChange registers fn to receive a snapshot after every state change.
func OnChange[T any](fn func(State[T])) Option[T] {
	return func(o *options[T]) {
		o.onChange = fn
	}
}

// Controller is safe for concurrent use.
type Controller[T, C, U any] struct {
	fetcher Fetcher[T, C, U]
	auth    Authenticator
	opts    options[T]

	closeCtx context.Context
	closeFn  context.CancelFunc

	mu         sync.Mutex
	state      State[T]
	params     pagination.Params
	hasParams  bool
	generation uint64
	cancelLoad context.CancelFunc
}

// New creates a controller. auth may be nil, in which case loads are never guarded.
func New[T, C, U any](fetcher Fetcher[T, C, U], auth Authenticator, opts ...Option[T]) *Controller[T, C, U] {
	o := options[T]{name: "resource"}
	for _, opt := range opts {
		opt(&o)
	}
	closeCtx, closeFn := context.WithCancel(context.Background())
	return &Controller[T, C, U]{
		fetcher:  fetcher,
		auth:     auth,
		opts:     o,
		closeCtx: closeCtx,
		closeFn:  closeFn,
		state:    State[T]{Items: []T{}},
	}
}

// State returns a copy of the current state.
func (c *Controller[T, C, U]) State() State[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller[T, C, U]) snapshotLocked() State[T] {
	s := c.state
	s.Items = make([]T, len(c.state.Items))
	copy(s.Items, c.state.Items)
	if c.state.Meta != nil {
		meta := *c.state.Meta
		s.Meta = &meta
	}
	return s
}

// Params returns the params of the last Load, or the defaults.
func (c *Controller[T, C, U]) Params() pagination.Params {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hasParams {
		return c.params
	}
	return c.opts.defaults
}

// Load fetches one page. A failure is recorded in State().Error, except for auth failures
// which the client already handles by forcing a new login. Without a session token the
// state is emptied and no request is made.
func (c *Controller[T, C, U]) Load(ctx context.Context, params pagination.Params) error {
	if c.closeCtx.Err() != nil {
		return ErrClosed
	}

	c.mu.Lock()
	c.params = params
	c.hasParams = true
	c.generation++
	gen := c.generation
	if c.cancelLoad != nil {
		c.cancelLoad()
		c.cancelLoad = nil
	}

	if c.auth != nil && !c.auth.IsAuthenticated() {
		c.state = State[T]{Items: []T{}}
		snap := c.snapshotLocked()
		c.mu.Unlock()
		c.notify(snap)
		return nil
	}

	loadCtx, cancel := c.operationContext(ctx)
	defer cancel()
	c.cancelLoad = cancel
	c.state.Loading = true
	c.state.Error = ""
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)

	page, err := c.fetcher.List(loadCtx, params)

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		log.Debug().Str("resource", c.opts.name).Uint64("generation", gen).Msg("Dropping stale load")
		return ErrSuperseded
	}
	c.cancelLoad = nil
	c.state.Loading = false
	if err != nil {
		c.recordLocked(err)
	} else {
		c.state.Items = page.Items
		if c.state.Items == nil {
			c.state.Items = []T{}
		}
		meta := page.Meta
		c.state.Meta = &meta
	}
	snap = c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
	return err
}

// Refresh reloads with the last used params, or the defaults.
func (c *Controller[T, C, U]) Refresh(ctx context.Context) error {
	return c.Load(ctx, c.Params())
}

// Create sends input and then reloads the page, so server computed fields are present.
func (c *Controller[T, C, U]) Create(ctx context.Context, input C) error {
	opCtx, cancel, err := c.beginMutation(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	item, err := c.fetcher.Create(opCtx, input)
	if err != nil {
		return c.failMutation(err)
	}
	if c.opts.localInsert {
		c.insertLocal(item)
		return nil
	}
	return c.reloadAfterMutation(ctx)
}

// Update sends input for id and then reloads. The returned item is never patched into
// the held page.
func (c *Controller[T, C, U]) Update(ctx context.Context, id int64, input U) error {
	opCtx, cancel, err := c.beginMutation(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	if _, err := c.fetcher.Update(opCtx, id, input); err != nil {
		return c.failMutation(err)
	}
	return c.reloadAfterMutation(ctx)
}

func (c *Controller[T, C, U]) Delete(ctx context.Context, id int64) error {
	opCtx, cancel, err := c.beginMutation(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	if err := c.fetcher.Delete(opCtx, id); err != nil {
		return c.failMutation(err)
	}
	return c.reloadAfterMutation(ctx)
}

func (c *Controller[T, C, U]) ClearError() {
	c.mu.Lock()
	c.state.Error = ""
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
}

// Close cancels every in-flight operation. Later calls fail with ErrClosed.
func (c *Controller[T, C, U]) Close() {
	c.closeFn()
}

// operationContext derives a context cancelled by the caller or by Close.
func (c *Controller[T, C, U]) operationContext(ctx context.Context) (context.Context, context.CancelFunc) {
	opCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(c.closeCtx, cancel)
	return opCtx, func() {
		stop()
		cancel()
	}
}

func (c *Controller[T, C, U]) beginMutation(ctx context.Context) (context.Context, context.CancelFunc, error) {
	if c.closeCtx.Err() != nil {
		return nil, nil, ErrClosed
	}
	opCtx, cancel := c.operationContext(ctx)

	c.mu.Lock()
	c.state.Loading = true
	c.state.Error = ""
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
	return opCtx, cancel, nil
}

func (c *Controller[T, C, U]) failMutation(err error) error {
	c.mu.Lock()
	c.state.Loading = false
	c.recordLocked(err)
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
	return err
}

// reloadAfterMutation refreshes the page. The mutation itself succeeded, so a failed
// reload only shows up in State().Error.
func (c *Controller[T, C, U]) reloadAfterMutation(ctx context.Context) error {
	if err := c.Refresh(ctx); err != nil && !errors.Is(err, ErrSuperseded) {
		log.Debug().Err(err).Str("resource", c.opts.name).Msg("Reload after mutation failed")
	}
	return nil
}

// insertLocal appends item when the current page has room. A full page only counts it.
func (c *Controller[T, C, U]) insertLocal(item T) {
	c.mu.Lock()
	c.state.Loading = false
	if m := c.state.Meta; m == nil || m.Limit <= 0 || len(c.state.Items) < m.Limit {
		c.state.Items = append(c.state.Items, item)
	}
	if c.state.Meta != nil {
		c.state.Meta.Total++
		c.state.Meta.LastPage = pagination.LastPage(c.state.Meta.Total, c.state.Meta.Limit)
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
}

func (c *Controller[T, C, U]) recordLocked(err error) {
	if apiclient.IsAuthError(err) {
		return
	}
	c.state.Error = apiclient.Message(err)
}

func (c *Controller[T, C, U]) notify(s State[T]) {
	if c.opts.onChange != nil {
		c.opts.onChange(s)
	}
}
