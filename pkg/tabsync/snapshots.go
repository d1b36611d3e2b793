package tabsync

import (
	"context"
	"sync"

	"github.com/entrhq/stylebot/pkg/types"
)

// Snapshots is a TabQuerier answering from the snapshots carried by update
// and activation events. It serves tab sources that cannot be queried, such
// as events forwarded by the extension.
type Snapshots struct {
	mu   sync.RWMutex
	tabs map[int]types.TabSnapshot
}

// NewSnapshots creates an empty snapshot store.
func NewSnapshots() *Snapshots {
	return &Snapshots{tabs: make(map[int]types.TabSnapshot)}
}

// Observe records the tab state carried by event. It must see events in
// the order they were produced.
func (s *Snapshots) Observe(event *types.TabEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch event.Type {
	case types.TabEventUpdated:
		if event.Tab != nil {
			s.tabs[event.TabID] = *event.Tab
		}
	case types.TabEventActivated:
		if event.Tab != nil {
			s.tabs[event.TabID] = *event.Tab
		}
		for id, tab := range s.tabs {
			tab.Active = id == event.TabID
			s.tabs[id] = tab
		}
	case types.TabEventRemoved:
		delete(s.tabs, event.TabID)
	}
}

// Get returns the last snapshot seen for tabID.
func (s *Snapshots) Get(_ context.Context, tabID int) (types.TabSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tab, ok := s.tabs[tabID]
	if !ok {
		return types.TabSnapshot{}, types.ErrTabNotFound
	}
	return tab, nil
}
