// Package browseraction tracks the toolbar button state of each tab.
package browseraction

import (
	"context"
	"sort"
	"sync"

	"github.com/entrhq/stylebot/pkg/logging"
	"github.com/entrhq/stylebot/pkg/types"
)

var debugLog = logging.NewLogger("browseraction")

// State is the button state for one tab.
type State struct {
	TabID int    `json:"tabId"`
	URL   string `json:"url"`

	// Enabled is set when an enabled style applies to the page.
	Enabled bool `json:"enabled"`

	// Active is set while the editor is open in the tab.
	Active bool `json:"active"`

	// Highlighted is set while the user hovers stylebot UI in the page.
	Highlighted bool `json:"highlighted"`
}

// Icon names the icon variant for the state.
func (s State) Icon() string {
	switch {
	case s.Active:
		return "active"
	case s.Highlighted:
		return "highlighted"
	case s.Enabled:
		return "enabled"
	default:
		return "default"
	}
}

// Renderer draws the button for a tab.
type Renderer interface {
	RenderAction(ctx context.Context, state State) error
}

// StyleChecker reports whether a page has an enabled style.
type StyleChecker interface {
	HasEnabledStyle(pageURL string) bool
}

// BrowserAction keeps per-tab button state and pushes it to a renderer.
// Renders happen in the order the state changed.
type BrowserAction struct {
	styles   StyleChecker
	renderer Renderer

	// renderMu is held from a state change until its render returns.
	renderMu sync.Mutex

	mu     sync.Mutex
	states map[int]State
}

// New creates a browser action backed by styles and drawn by renderer.
func New(styles StyleChecker, renderer Renderer) *BrowserAction {
	return &BrowserAction{
		styles:   styles,
		renderer: renderer,
		states:   make(map[int]State),
	}
}

// Update recomputes the state after the tab navigated. Navigation closes
// the editor, so the active and highlighted flags reset.
func (b *BrowserAction) Update(ctx context.Context, tab types.TabSnapshot) {
	b.apply(ctx, tab, true, func(State) State {
		return State{TabID: tab.ID, URL: tab.URL}
	})
}

// Activate marks the editor as open in tab. Pulses for tabs without state,
// such as tabs already forgotten, are ignored.
func (b *BrowserAction) Activate(ctx context.Context, tab types.TabSnapshot) {
	b.apply(ctx, tab, false, func(s State) State {
		s.Active = true
		return s
	})
}

// Highlight marks the button highlighted for tab.
func (b *BrowserAction) Highlight(ctx context.Context, tab types.TabSnapshot) {
	b.apply(ctx, tab, false, func(s State) State {
		s.Highlighted = true
		return s
	})
}

// Unhighlight clears the highlighted and active flags for tab.
func (b *BrowserAction) Unhighlight(ctx context.Context, tab types.TabSnapshot) {
	b.apply(ctx, tab, false, func(s State) State {
		s.Highlighted = false
		s.Active = false
		return s
	})
}

// Refresh re-evaluates the enabled flag of every known tab, e.g. after
// styles changed.
func (b *BrowserAction) Refresh(ctx context.Context) {
	b.mu.Lock()
	ids := make([]int, 0, len(b.states))
	for id := range b.states {
		ids = append(ids, id)
	}
	b.mu.Unlock()
	sort.Ints(ids)

	for _, id := range ids {
		b.apply(ctx, types.TabSnapshot{ID: id}, false, func(s State) State { return s })
	}
}

// Forget drops the state of a closed tab.
func (b *BrowserAction) Forget(tabID int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.states, tabID)
}

// State returns the current state of a tab.
func (b *BrowserAction) State(tabID int) (State, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.states[tabID]
	return s, ok
}

func (b *BrowserAction) apply(ctx context.Context, tab types.TabSnapshot, create bool, fn func(State) State) {
	b.renderMu.Lock()
	defer b.renderMu.Unlock()

	b.mu.Lock()
	state, ok := b.states[tab.ID]
	if !ok && !create {
		b.mu.Unlock()
		debugLog.Debugf("Ignoring browser action change for unknown tab %d", tab.ID)
		return
	}
	if !ok {
		state = State{TabID: tab.ID}
	}
	if tab.URL != "" {
		state.URL = tab.URL
	}
	state = fn(state)
	state.Enabled = state.URL != "" && b.styles.HasEnabledStyle(state.URL)
	b.states[tab.ID] = state
	b.mu.Unlock()

	if err := b.renderer.RenderAction(ctx, state); err != nil {
		debugLog.Warnf("Failed to render browser action for tab %d: %v", tab.ID, err)
	}
}
