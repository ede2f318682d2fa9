package resource_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/distritherm-admin/apiclient"
	"github.com/jrsteele09/distritherm-admin/pagination"
	"github.com/jrsteele09/distritherm-admin/resource"
	"github.com/stretchr/testify/require"
)

type item struct {
	ID     int64
	Status string
	Label  string // computed by the server
}

type itemInput struct {
	Status string
}

// fakeFetcher stores items in memory and computes Label the way a server would join a field.
type fakeFetcher struct {
	mu        sync.Mutex
	items     map[int64]item
	nextID    int64
	listCalls int
	listErr   error
	mutateErr error
	block     chan struct{} // when set, List waits for it or for ctx
}

func newFakeFetcher(n int) *fakeFetcher {
	f := &fakeFetcher{items: make(map[int64]item), nextID: 1}
	for range n {
		f.add("PENDING")
	}
	return f
}

func (f *fakeFetcher) add(status string) item {
	it := item{ID: f.nextID, Status: status, Label: "label:" + status}
	f.items[it.ID] = it
	f.nextID++
	return it
}

func (f *fakeFetcher) List(ctx context.Context, params pagination.Params) (pagination.Page[item], error) {
	f.mu.Lock()
	f.listCalls++
	block := f.block
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return pagination.Page[item]{}, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return pagination.Page[item]{}, f.listErr
	}
	all := make([]item, 0, len(f.items))
	for _, it := range f.items {
		all = append(all, it)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	meta := pagination.NewMeta(len(all), params.Page, params.Limit)
	start := min((meta.Page-1)*meta.Limit, len(all))
	end := min(start+meta.Limit, len(all))
	return pagination.Page[item]{Items: all[start:end], Meta: meta}, nil
}

func (f *fakeFetcher) Create(_ context.Context, in itemInput) (item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.mutateErr != nil {
		return item{}, f.mutateErr
	}
	it := f.add(in.Status)
	return item{ID: it.ID, Status: it.Status}, nil
}

func (f *fakeFetcher) Update(_ context.Context, id int64, in itemInput) (item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.mutateErr != nil {
		return item{}, f.mutateErr
	}
	it, ok := f.items[id]
	if !ok {
		return item{}, &apiclient.APIError{Status: 404}
	}
	it.Status = in.Status
	it.Label = "label:" + in.Status
	f.items[id] = it
	// The mutation response lacks the joined field.
	return item{ID: id, Status: in.Status}, nil
}

func (f *fakeFetcher) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.mutateErr != nil {
		return f.mutateErr
	}
	delete(f.items, id)
	return nil
}

func (f *fakeFetcher) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

type authFlag bool

func (a authFlag) IsAuthenticated() bool { return bool(a) }

func TestController_LoadPagination(t *testing.T) {
	f := newFakeFetcher(25)
	c := resource.New[item, itemInput, itemInput](f, authFlag(true))

	require.NoError(t, c.Load(context.Background(), pagination.Params{Page: 2, Limit: 10}))
	s := c.State()
	require.False(t, s.Loading)
	require.Empty(t, s.Error)
	require.NotNil(t, s.Meta)
	require.Equal(t, 3, s.Meta.LastPage)
	require.Equal(t, 25, s.Meta.Total)
	require.LessOrEqual(t, len(s.Items), 10)
	require.Equal(t, int64(11), s.Items[0].ID)
}

func TestController_MetaNilBeforeFirstLoad(t *testing.T) {
	c := resource.New[item, itemInput, itemInput](newFakeFetcher(1), nil)
	s := c.State()
	require.Nil(t, s.Meta)
	require.Empty(t, s.Items)
}

func TestController_GuardWithoutSession(t *testing.T) {
	f := newFakeFetcher(3)
	c := resource.New[item, itemInput, itemInput](f, authFlag(false))

	require.NoError(t, c.Load(context.Background(), pagination.Params{}))
	require.Zero(t, f.calls())
	s := c.State()
	require.Nil(t, s.Meta)
	require.Empty(t, s.Items)
	require.False(t, s.Loading)
}

func TestController_LoadErrors(t *testing.T) {
	t.Run("records the message", func(t *testing.T) {
		f := newFakeFetcher(1)
		f.listErr = &apiclient.APIError{Status: 500, Message: "database unavailable"}
		c := resource.New[item, itemInput, itemInput](f, nil)

		require.Error(t, c.Load(context.Background(), pagination.Params{}))
		require.Equal(t, "database unavailable", c.State().Error)
		require.False(t, c.State().Loading)

		c.ClearError()
		require.Empty(t, c.State().Error)
	})

	t.Run("suppresses auth failures", func(t *testing.T) {
		f := newFakeFetcher(1)
		f.listErr = fmt.Errorf("listing: %w", apiclient.ErrRefreshFailed)
		c := resource.New[item, itemInput, itemInput](f, nil)

		require.Error(t, c.Load(context.Background(), pagination.Params{}))
		require.Empty(t, c.State().Error)
	})
}

func TestController_UpdateReloadsFromServer(t *testing.T) {
	f := newFakeFetcher(3)
	c := resource.New[item, itemInput, itemInput](f, nil)
	ctx := context.Background()
	require.NoError(t, c.Load(ctx, pagination.Params{Page: 1, Limit: 10}))

	require.NoError(t, c.Update(ctx, 2, itemInput{Status: "ACCEPTED"}))
	require.Equal(t, 2, f.calls())

	s := c.State()
	require.Equal(t, "ACCEPTED", s.Items[1].Status)
	require.Equal(t, "label:ACCEPTED", s.Items[1].Label)
	require.Equal(t, pagination.Params{Page: 1, Limit: 10}, c.Params())
}

func TestController_CreateAndDelete(t *testing.T) {
	f := newFakeFetcher(2)
	c := resource.New[item, itemInput, itemInput](f, nil)
	ctx := context.Background()
	require.NoError(t, c.Load(ctx, pagination.Params{}))

	require.NoError(t, c.Create(ctx, itemInput{Status: "PENDING"}))
	require.Len(t, c.State().Items, 3)
	require.Equal(t, "label:PENDING", c.State().Items[2].Label)

	require.NoError(t, c.Delete(ctx, 1))
	require.Len(t, c.State().Items, 2)
	require.Equal(t, 2, c.State().Meta.Total)
	require.Equal(t, 3, f.calls())
}

func TestController_MutationFailure(t *testing.T) {
	f := newFakeFetcher(1)
	c := resource.New[item, itemInput, itemInput](f, nil)
	ctx := context.Background()
	require.NoError(t, c.Load(ctx, pagination.Params{}))

	f.mutateErr = &apiclient.APIError{Status: 409, Message: "Duplicate"}
	err := c.Create(ctx, itemInput{Status: "PENDING"})
	require.True(t, apiclient.IsConflict(err))
	require.Equal(t, "Duplicate", c.State().Error)
	require.False(t, c.State().Loading)
	require.Equal(t, 1, f.calls())
}

func TestController_LocalInsert(t *testing.T) {
	f := newFakeFetcher(1)
	c := resource.New[item, itemInput, itemInput](f, nil, resource.WithLocalInsert[item]())
	ctx := context.Background()
	require.NoError(t, c.Load(ctx, pagination.Params{}))

	require.NoError(t, c.Create(ctx, itemInput{Status: "NEW"}))
	require.Equal(t, 1, f.calls())
	s := c.State()
	require.Len(t, s.Items, 2)
	require.Equal(t, 2, s.Meta.Total)
	require.Empty(t, s.Items[1].Label)
}

func TestController_LocalInsertOnFullPage(t *testing.T) {
	f := newFakeFetcher(5)
	c := resource.New[item, itemInput, itemInput](f, nil, resource.WithLocalInsert[item]())
	ctx := context.Background()
	require.NoError(t, c.Load(ctx, pagination.Params{Page: 1, Limit: 5}))

	require.NoError(t, c.Create(ctx, itemInput{Status: "NEW"}))
	require.Equal(t, 1, f.calls())
	s := c.State()
	require.Len(t, s.Items, 5)
	require.Equal(t, 6, s.Meta.Total)
	require.Equal(t, 2, s.Meta.LastPage)
	require.LessOrEqual(t, len(s.Items), s.Meta.Limit)
}

func TestController_RefreshUsesDefaults(t *testing.T) {
	f := newFakeFetcher(15)
	c := resource.New[item, itemInput, itemInput](f, nil,
		resource.WithDefaults[item](pagination.Params{Page: 2, Limit: 5}))

	require.NoError(t, c.Refresh(context.Background()))
	s := c.State()
	require.Equal(t, 2, s.Meta.Page)
	require.Equal(t, int64(6), s.Items[0].ID)
}

func TestController_StaleLoadDropped(t *testing.T) {
	f := newFakeFetcher(20)
	f.block = make(chan struct{})
	c := resource.New[item, itemInput, itemInput](f, nil)
	ctx := context.Background()

	first := make(chan error, 1)
	go func() { first <- c.Load(ctx, pagination.Params{Page: 1, Limit: 10}) }()
	require.Eventually(t, func() bool { return f.calls() == 1 }, time.Second, 5*time.Millisecond)

	f.mu.Lock()
	f.block = nil
	f.mu.Unlock()

	require.NoError(t, c.Load(ctx, pagination.Params{Page: 2, Limit: 10}))
	require.ErrorIs(t, <-first, resource.ErrSuperseded)
	require.Equal(t, 2, c.State().Meta.Page)
	require.Equal(t, int64(11), c.State().Items[0].ID)
}

func TestController_Close(t *testing.T) {
	f := newFakeFetcher(1)
	f.block = make(chan struct{})
	c := resource.New[item, itemInput, itemInput](f, nil)

	done := make(chan error, 1)
	go func() { done <- c.Load(context.Background(), pagination.Params{}) }()
	require.Eventually(t, func() bool { return f.calls() == 1 }, time.Second, 5*time.Millisecond)

	c.Close()
	select {
	case err := <-done:
		require.True(t, errors.Is(err, context.Canceled))
	case <-time.After(time.Second):
		t.Fatal("load was not cancelled")
	}
	require.ErrorIs(t, c.Load(context.Background(), pagination.Params{}), resource.ErrClosed)
	require.ErrorIs(t, c.Delete(context.Background(), 1), resource.ErrClosed)
}

func TestController_OnChange(t *testing.T) {
	var mu sync.Mutex
	var loading []bool
	c := resource.New[item, itemInput, itemInput](newFakeFetcher(2), nil,
		resource.OnChange(func(s resource.State[item]) {
			mu.Lock()
			loading = append(loading, s.Loading)
			mu.Unlock()
		}))

	require.NoError(t, c.Load(context.Background(), pagination.Params{}))
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []bool{true, false}, loading)
}
