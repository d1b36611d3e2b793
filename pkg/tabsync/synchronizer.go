// Package tabsync keeps the context menu, the browser action and the tab
// cache in step with tab lifecycle events.
package tabsync

import (
	"context"
	"errors"
	"fmt"

	"github.com/entrhq/stylebot/pkg/eventloop"
	"github.com/entrhq/stylebot/pkg/logging"
	"github.com/entrhq/stylebot/pkg/tabcache"
	"github.com/entrhq/stylebot/pkg/types"
)

var debugLog = logging.NewLogger("tabsync")

// MenuUpdater refreshes the context menu for a tab.
type MenuUpdater interface {
	Update(ctx context.Context, tab types.TabSnapshot)
}

// ActionUpdater refreshes the browser action for a tab and drops the state
// of closed tabs.
type ActionUpdater interface {
	Update(ctx context.Context, tab types.TabSnapshot)
	Forget(tabID int)
}

// TabQuerier looks up the live snapshot of a tab. It returns
// types.ErrTabNotFound for tabs that are gone.
type TabQuerier interface {
	Get(ctx context.Context, tabID int) (types.TabSnapshot, error)
}

// OptionReader exposes the one option the synchronizer depends on.
type OptionReader interface {
	ContextMenuEnabled() bool
}

// Config holds the collaborators of a Synchronizer. Loop is optional;
// without it tab lookups block the caller.
type Config struct {
	Menu    MenuUpdater
	Action  ActionUpdater
	Tabs    TabQuerier
	Options OptionReader
	Cache   *tabcache.Cache
	Loop    *eventloop.Loop
}

// Synchronizer reacts to tab lifecycle events. Handlers are meant to run on
// the event loop, one at a time.
type Synchronizer struct {
	menu    MenuUpdater
	action  ActionUpdater
	tabs    TabQuerier
	options OptionReader
	cache   *tabcache.Cache
	loop    *eventloop.Loop
}

// New creates a synchronizer from cfg.
func New(cfg Config) (*Synchronizer, error) {
	switch {
	case cfg.Menu == nil:
		return nil, fmt.Errorf("tabsync: menu updater is required")
	case cfg.Action == nil:
		return nil, fmt.Errorf("tabsync: action updater is required")
	case cfg.Tabs == nil:
		return nil, fmt.Errorf("tabsync: tab querier is required")
	case cfg.Options == nil:
		return nil, fmt.Errorf("tabsync: option reader is required")
	case cfg.Cache == nil:
		return nil, fmt.Errorf("tabsync: tab cache is required")
	}
	return &Synchronizer{
		menu:    cfg.Menu,
		action:  cfg.Action,
		tabs:    cfg.Tabs,
		options: cfg.Options,
		cache:   cfg.Cache,
		loop:    cfg.Loop,
	}, nil
}

// Dispatch queues event on the loop, or handles it inline when the
// synchronizer has no loop.
func (s *Synchronizer) Dispatch(ctx context.Context, event *types.TabEvent) error {
	if s.loop == nil {
		s.HandleEvent(ctx, event)
		return nil
	}
	return s.loop.Post(func(ctx context.Context) {
		s.HandleEvent(ctx, event)
	})
}

// HandleEvent routes a lifecycle event to its handler.
func (s *Synchronizer) HandleEvent(ctx context.Context, event *types.TabEvent) {
	switch event.Type {
	case types.TabEventUpdated:
		if event.Tab == nil || event.Change == nil {
			debugLog.Warnf("Ignoring update for tab %d without snapshot", event.TabID)
			return
		}
		s.OnUpdated(ctx, event.TabID, *event.Change, *event.Tab)
	case types.TabEventActivated:
		s.OnActivated(ctx, event.TabID)
	case types.TabEventRemoved:
		s.OnRemoved(ctx, event.TabID)
	default:
		debugLog.Warnf("Ignoring tab event %q", event.Type)
	}
}

// OnUpdated handles a tab update. The two checks are independent: a
// finished load refreshes the menu when the option allows it, and a URL
// change refreshes the browser action regardless of the option.
func (s *Synchronizer) OnUpdated(ctx context.Context, tabID int, change types.TabChange, tab types.TabSnapshot) {
	switch change.Status {
	case types.TabStatusLoading:
		s.cache.Set(tabID, tabcache.Entry{Loading: true})
	case types.TabStatusComplete:
		s.cache.Update(tabID, func(e tabcache.Entry) tabcache.Entry {
			e.Loading = false
			return e
		})
	}

	if tab.Status == types.TabStatusComplete && s.options.ContextMenuEnabled() {
		s.menu.Update(ctx, tab)
	}
	if change.URL != "" {
		s.action.Update(ctx, tab)
	}
}

// OnActivated refreshes the menu for the newly active tab. The tab may be
// closed before its snapshot arrives; that ends the handler quietly.
func (s *Synchronizer) OnActivated(ctx context.Context, tabID int) {
	if !s.options.ContextMenuEnabled() {
		return
	}

	lookup := func(ctx context.Context) (types.TabSnapshot, error) {
		return s.tabs.Get(ctx, tabID)
	}
	apply := func(ctx context.Context, tab types.TabSnapshot, err error) {
		if errors.Is(err, types.ErrTabNotFound) {
			debugLog.Debugf("Tab %d closed before activation was handled", tabID)
			return
		}
		if err != nil {
			debugLog.Warnf("Failed to look up activated tab %d: %v", tabID, err)
			return
		}
		s.menu.Update(ctx, tab)
	}

	if s.loop == nil {
		tab, err := lookup(ctx)
		apply(ctx, tab, err)
		return
	}
	eventloop.Await(ctx, s.loop, lookup, apply)
}

// OnRemoved drops the cached state of a closed tab. Repeated removals are
// no-ops.
func (s *Synchronizer) OnRemoved(_ context.Context, tabID int) {
	if s.cache.Delete(tabID) {
		debugLog.Debugf("Cleared cache for tab %d", tabID)
	}
	s.action.Forget(tabID)
}
