package types

import "errors"

// TabStatus mirrors the loading state the browser reports for a tab.
type TabStatus string

const (
	TabStatusLoading  TabStatus = "loading"  // TabStatusLoading indicates a navigation is in progress.
	TabStatusComplete TabStatus = "complete" // TabStatusComplete indicates the page finished loading.
)

// TabSnapshot is the browser's live description of a tab. It is read-only
// from the background process's point of view.
type TabSnapshot struct {
	ID       int       `json:"id"`
	WindowID int       `json:"windowId,omitempty"`
	URL      string    `json:"url"`
	Title    string    `json:"title,omitempty"`
	Status   TabStatus `json:"status,omitempty"`
	Active   bool      `json:"active,omitempty"`
}

// TabChange describes which properties changed in a tab-updated event.
// Empty fields did not change.
type TabChange struct {
	Status TabStatus `json:"status,omitempty"`
	URL    string    `json:"url,omitempty"`
}

// Sender identifies the browsing context that issued a request.
type Sender struct {
	// Tab is nil for contexts that do not live in a tab (popup, options page).
	Tab     *TabSnapshot `json:"tab,omitempty"`
	FrameID int          `json:"frameId,omitempty"`
	URL     string       `json:"url,omitempty"`
	Origin  string       `json:"origin,omitempty"`
}

// PageURL returns the URL of the page hosting the sender: the tab URL when
// known, otherwise the sender's own URL.
func (s Sender) PageURL() string {
	if s.Tab != nil && s.Tab.URL != "" {
		return s.Tab.URL
	}
	return s.URL
}

// TabEventType defines the kind of tab lifecycle event.
type TabEventType string

const (
	TabEventUpdated   TabEventType = "tab_updated"   // TabEventUpdated carries a change descriptor and a full snapshot.
	TabEventActivated TabEventType = "tab_activated" // TabEventActivated carries only the tab identifier.
	TabEventRemoved   TabEventType = "tab_removed"   // TabEventRemoved carries only the tab identifier.
)

// TabEvent is a tab lifecycle notification from the browser.
type TabEvent struct {
	// Change is set for TabEventUpdated.
	Change *TabChange `json:"change,omitempty"`

	// Tab is set for TabEventUpdated. Activated events may carry it too, so
	// tabs opened before the process started can still be looked up.
	Tab *TabSnapshot `json:"tab,omitempty"`

	Type  TabEventType `json:"type"`
	TabID int          `json:"tabId"`
}

// NewTabUpdatedEvent creates a tab updated event.
func NewTabUpdatedEvent(tab TabSnapshot, change TabChange) *TabEvent {
	return &TabEvent{
		Type:   TabEventUpdated,
		TabID:  tab.ID,
		Change: &change,
		Tab:    &tab,
	}
}

// NewTabActivatedEvent creates a tab activated event.
func NewTabActivatedEvent(tabID int) *TabEvent {
	return &TabEvent{
		Type:  TabEventActivated,
		TabID: tabID,
	}
}

// NewTabRemovedEvent creates a tab removed event.
func NewTabRemovedEvent(tabID int) *TabEvent {
	return &TabEvent{
		Type:  TabEventRemoved,
		TabID: tabID,
	}
}

// ErrTabNotFound is returned by tab lookups for tabs that no longer exist.
var ErrTabNotFound = errors.New("tab not found")
