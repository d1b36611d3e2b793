package tabsync

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"testing"

	"github.com/entrhq/stylebot/pkg/eventloop"
	"github.com/entrhq/stylebot/pkg/logging"
	"github.com/entrhq/stylebot/pkg/tabcache"
	"github.com/entrhq/stylebot/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logging.SetOutput(io.Discard)
	os.Exit(m.Run())
}

type recordingUpdater struct {
	mu        sync.Mutex
	updates   []types.TabSnapshot
	forgotten []int
}

func (r *recordingUpdater) Update(_ context.Context, tab types.TabSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, tab)
}

func (r *recordingUpdater) Forget(tabID int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.forgotten = append(r.forgotten, tabID)
}

func (r *recordingUpdater) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.updates)
}

type staticOptions bool

func (o staticOptions) ContextMenuEnabled() bool { return bool(o) }

// fakeTabs answers lookups from a map. When gate is set, lookups wait on it
// before reading the map.
type fakeTabs struct {
	mu      sync.Mutex
	tabs    map[int]types.TabSnapshot
	gate    chan struct{}
	lookups int
}

func (f *fakeTabs) Get(_ context.Context, tabID int) (types.TabSnapshot, error) {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	tab, ok := f.tabs[tabID]
	if !ok {
		return types.TabSnapshot{}, types.ErrTabNotFound
	}
	return tab, nil
}

func (f *fakeTabs) remove(tabID int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tabs, tabID)
}

type fixture struct {
	sync   *Synchronizer
	menu   *recordingUpdater
	action *recordingUpdater
	tabs   *fakeTabs
	cache  *tabcache.Cache
}

func newFixture(t *testing.T, contextMenu bool, loop *eventloop.Loop) *fixture {
	t.Helper()
	f := &fixture{
		menu:   &recordingUpdater{},
		action: &recordingUpdater{},
		tabs:   &fakeTabs{tabs: map[int]types.TabSnapshot{}},
		cache:  tabcache.New(),
	}
	s, err := New(Config{
		Menu:    f.menu,
		Action:  f.action,
		Tabs:    f.tabs,
		Options: staticOptions(contextMenu),
		Cache:   f.cache,
		Loop:    loop,
	})
	require.NoError(t, err)
	f.sync = s
	return f
}

func TestOnUpdated_CompleteWithMenuDisabledStillUpdatesAction(t *testing.T) {
	f := newFixture(t, false, nil)
	tab := types.TabSnapshot{ID: 1, URL: "https://example.com/", Status: types.TabStatusComplete}

	f.sync.OnUpdated(context.Background(), 1, types.TabChange{Status: types.TabStatusComplete, URL: tab.URL}, tab)

	assert.Equal(t, 0, f.menu.count())
	require.Equal(t, 1, f.action.count())
	assert.Equal(t, tab, f.action.updates[0])
}

func TestOnUpdated_CompleteWithMenuEnabled(t *testing.T) {
	f := newFixture(t, true, nil)
	tab := types.TabSnapshot{ID: 1, URL: "https://example.com/", Status: types.TabStatusComplete}

	f.sync.OnUpdated(context.Background(), 1, types.TabChange{Status: types.TabStatusComplete}, tab)

	assert.Equal(t, 1, f.menu.count())
	assert.Equal(t, 0, f.action.count())
}

func TestOnUpdated_LoadingDoesNotTouchMenu(t *testing.T) {
	f := newFixture(t, true, nil)
	tab := types.TabSnapshot{ID: 1, URL: "https://example.com/", Status: types.TabStatusLoading}

	f.sync.OnUpdated(context.Background(), 1, types.TabChange{Status: types.TabStatusLoading}, tab)

	assert.Equal(t, 0, f.menu.count())
	entry, ok := f.cache.Get(1)
	require.True(t, ok)
	assert.True(t, entry.Loading)
}

func TestOnUpdated_CompleteClearsLoading(t *testing.T) {
	f := newFixture(t, false, nil)
	ctx := context.Background()
	tab := types.TabSnapshot{ID: 2, URL: "https://example.com/"}

	tab.Status = types.TabStatusLoading
	f.sync.OnUpdated(ctx, 2, types.TabChange{Status: types.TabStatusLoading}, tab)
	tab.Status = types.TabStatusComplete
	f.sync.OnUpdated(ctx, 2, types.TabChange{Status: types.TabStatusComplete}, tab)

	entry, ok := f.cache.Get(2)
	require.True(t, ok)
	assert.False(t, entry.Loading)
}

func TestOnRemoved_ClearsCacheIdempotently(t *testing.T) {
	f := newFixture(t, true, nil)
	ctx := context.Background()
	f.cache.Set(42, tabcache.Entry{Loading: true})

	f.sync.OnRemoved(ctx, 42)
	_, ok := f.cache.Get(42)
	assert.False(t, ok)

	assert.NotPanics(t, func() { f.sync.OnRemoved(ctx, 42) })
	_, ok = f.cache.Get(42)
	assert.False(t, ok)
	assert.Equal(t, []int{42, 42}, f.action.forgotten)
}

func TestOnRemoved_UnknownTab(t *testing.T) {
	f := newFixture(t, true, nil)
	f.cache.Set(1, tabcache.Entry{})

	f.sync.OnRemoved(context.Background(), 99)

	assert.Equal(t, []int{1}, f.cache.IDs())
}

func TestOnActivated_UpdatesMenu(t *testing.T) {
	f := newFixture(t, true, nil)
	f.tabs.tabs[3] = types.TabSnapshot{ID: 3, URL: "https://example.com/"}

	f.sync.OnActivated(context.Background(), 3)

	require.Equal(t, 1, f.menu.count())
	assert.Equal(t, 3, f.menu.updates[0].ID)
}

func TestOnActivated_MenuDisabledSkipsLookup(t *testing.T) {
	f := newFixture(t, false, nil)
	f.tabs.tabs[3] = types.TabSnapshot{ID: 3}

	f.sync.OnActivated(context.Background(), 3)

	assert.Equal(t, 0, f.tabs.lookups)
	assert.Equal(t, 0, f.menu.count())
}

func TestOnActivated_LookupError(t *testing.T) {
	f := newFixture(t, true, nil)
	f.sync.tabs = errTabs{}

	assert.NotPanics(t, func() { f.sync.OnActivated(context.Background(), 3) })
	assert.Equal(t, 0, f.menu.count())
}

type errTabs struct{}

func (errTabs) Get(context.Context, int) (types.TabSnapshot, error) {
	return types.TabSnapshot{}, errors.New("browser disconnected")
}

func TestActivatedRacingRemoval(t *testing.T) {
	loop := eventloop.New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)

	f := newFixture(t, true, loop)
	f.tabs.tabs[7] = types.TabSnapshot{ID: 7, URL: "https://example.com/"}
	f.tabs.gate = make(chan struct{})
	f.cache.Set(7, tabcache.Entry{Loading: true})

	require.NoError(t, f.sync.Dispatch(ctx, types.NewTabActivatedEvent(7)))

	// The tab closes while its snapshot is being fetched.
	removed := make(chan struct{})
	require.NoError(t, loop.Post(func(ctx context.Context) {
		f.tabs.remove(7)
		f.sync.HandleEvent(ctx, types.NewTabRemovedEvent(7))
		close(removed)
	}))
	<-removed
	close(f.tabs.gate)
	loop.Stop()

	assert.Equal(t, 1, f.tabs.lookups)
	assert.Equal(t, 0, f.menu.count())
	_, ok := f.cache.Get(7)
	assert.False(t, ok)
}

func TestHandleEvent_Dispatch(t *testing.T) {
	f := newFixture(t, true, nil)
	ctx := context.Background()
	tab := types.TabSnapshot{ID: 5, URL: "https://example.com/", Status: types.TabStatusComplete}
	f.tabs.tabs[5] = tab

	require.NoError(t, f.sync.Dispatch(ctx, types.NewTabUpdatedEvent(tab, types.TabChange{URL: tab.URL})))
	require.NoError(t, f.sync.Dispatch(ctx, types.NewTabActivatedEvent(5)))
	require.NoError(t, f.sync.Dispatch(ctx, &types.TabEvent{Type: types.TabEventUpdated, TabID: 5}))
	require.NoError(t, f.sync.Dispatch(ctx, types.NewTabRemovedEvent(5)))

	assert.Equal(t, 2, f.menu.count())
	assert.Equal(t, 1, f.action.count())
	assert.Equal(t, []int{5}, f.action.forgotten)
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestOnUpdated_StaleCompleteAfterRemovalKeepsCacheEmpty(t *testing.T) {
	f := newFixture(t, false, nil)
	ctx := context.Background()
	tab := types.TabSnapshot{ID: 6, URL: "https://example.com/", Status: types.TabStatusLoading}

	f.sync.OnUpdated(ctx, 6, types.TabChange{Status: types.TabStatusLoading}, tab)
	f.sync.OnRemoved(ctx, 6)

	tab.Status = types.TabStatusComplete
	f.sync.OnUpdated(ctx, 6, types.TabChange{Status: types.TabStatusComplete}, tab)

	_, ok := f.cache.Get(6)
	assert.False(t, ok)
}
