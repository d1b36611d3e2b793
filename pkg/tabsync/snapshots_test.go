package tabsync

import (
	"context"
	"testing"

	"github.com/entrhq/stylebot/pkg/tabcache"
	"github.com/entrhq/stylebot/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshots(t *testing.T) {
	s := NewSnapshots()
	ctx := context.Background()

	_, err := s.Get(ctx, 1)
	assert.ErrorIs(t, err, types.ErrTabNotFound)

	s.Observe(types.NewTabUpdatedEvent(types.TabSnapshot{ID: 1, URL: "https://a.example/"}, types.TabChange{URL: "https://a.example/"}))
	s.Observe(types.NewTabUpdatedEvent(types.TabSnapshot{ID: 2, URL: "https://b.example/"}, types.TabChange{}))
	s.Observe(types.NewTabActivatedEvent(2))

	tab, err := s.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "https://a.example/", tab.URL)
	assert.False(t, tab.Active)

	tab, err = s.Get(ctx, 2)
	require.NoError(t, err)
	assert.True(t, tab.Active)

	s.Observe(types.NewTabRemovedEvent(2))
	s.Observe(types.NewTabRemovedEvent(2))
	_, err = s.Get(ctx, 2)
	assert.ErrorIs(t, err, types.ErrTabNotFound)
}

func TestSnapshots_ActivationCarriesUnseenTab(t *testing.T) {
	snapshots := NewSnapshots()
	menu := &recordingUpdater{}
	s, err := New(Config{
		Menu:    menu,
		Action:  &recordingUpdater{},
		Tabs:    snapshots,
		Options: staticOptions(true),
		Cache:   tabcache.New(),
	})
	require.NoError(t, err)

	event := types.NewTabActivatedEvent(8)
	event.Tab = &types.TabSnapshot{ID: 8, URL: "https://example.com/", Status: types.TabStatusComplete}
	snapshots.Observe(event)
	s.HandleEvent(context.Background(), event)

	require.Equal(t, 1, menu.count())
	assert.Equal(t, "https://example.com/", menu.updates[0].URL)
	assert.True(t, menu.updates[0].Active)
}
