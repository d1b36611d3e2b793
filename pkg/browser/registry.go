package browser

import (
	"sync"

	"github.com/entrhq/stylebot/pkg/types"
)

// pageView is the part of a playwright.Page the registry reads.
type pageView interface {
	URL() string
	Title() (string, error)
	IsClosed() bool
}

type tabRecord struct {
	page   pageView
	status types.TabStatus
}

// registry assigns stable integer tab ids to pages. Ids are never reused.
type registry struct {
	mu     sync.RWMutex
	tabs   map[int]*tabRecord
	ids    map[pageView]int
	nextID int
	active int
}

func newRegistry() *registry {
	return &registry{
		tabs:   make(map[int]*tabRecord),
		ids:    make(map[pageView]int),
		nextID: 1,
	}
}

// add registers page and makes it the active tab.
func (r *registry) add(page pageView) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.ids[page]; ok {
		return id
	}
	id := r.nextID
	r.nextID++
	r.tabs[id] = &tabRecord{page: page, status: types.TabStatusLoading}
	r.ids[page] = id
	r.active = id
	return id
}

// remove unregisters page. The second result is false if it was unknown.
func (r *registry) remove(page pageView) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.ids[page]
	if !ok {
		return 0, false
	}
	delete(r.ids, page)
	delete(r.tabs, id)
	if r.active == id {
		r.active = 0
	}
	return id, true
}

func (r *registry) setStatus(id int, status types.TabStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.tabs[id]; ok {
		rec.status = status
	}
}

// snapshot describes tab id. Closed pages are reported as missing. The
// title costs a driver round trip, so callers inside page callbacks skip it.
func (r *registry) snapshot(id int, withTitle bool) (types.TabSnapshot, error) {
	r.mu.RLock()
	rec, ok := r.tabs[id]
	var status types.TabStatus
	active := r.active == id
	if ok {
		status = rec.status
	}
	r.mu.RUnlock()

	if !ok || rec.page.IsClosed() {
		return types.TabSnapshot{}, types.ErrTabNotFound
	}

	var title string
	if withTitle {
		t, err := rec.page.Title()
		if err != nil {
			debugLog.Debugf("Failed to read title of tab %d: %v", id, err)
		}
		title = t
	}
	return types.TabSnapshot{
		ID:     id,
		URL:    rec.page.URL(),
		Title:  title,
		Status: status,
		Active: active,
	}, nil
}
