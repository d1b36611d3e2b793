// Package contextmenu maintains the page context menu shown for the active
// tab.
package contextmenu

import (
	"context"
	"sync"

	"github.com/entrhq/stylebot/pkg/logging"
	"github.com/entrhq/stylebot/pkg/types"
)

var debugLog = logging.NewLogger("contextmenu")

// Menu item identifiers.
const (
	ItemStyleElement  = "style-element"
	ItemSearchStyles  = "search-styles"
	ItemToggleStyling = "toggle-styling"
)

// Item is one entry of the context menu.
type Item struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Menu is the full context menu for a tab.
type Menu struct {
	TabID int    `json:"tabId"`
	URL   string `json:"url"`
	Items []Item `json:"items"`
}

// Renderer displays menus. Implementations must tolerate repeated calls
// with the same menu.
type Renderer interface {
	RenderMenu(ctx context.Context, menu Menu) error
	ClearMenu(ctx context.Context) error
}

// StyleLookup finds the styles matching a page.
type StyleLookup interface {
	ForPage(pageURL string) ([]types.Style, error)
}

// ContextMenu rebuilds the menu from the styles of the tab's page.
type ContextMenu struct {
	styles   StyleLookup
	renderer Renderer

	mu      sync.Mutex
	current *Menu
}

// New creates a context menu backed by styles and drawn by renderer.
func New(styles StyleLookup, renderer Renderer) *ContextMenu {
	return &ContextMenu{styles: styles, renderer: renderer}
}

// Update rebuilds and renders the menu for tab. It is idempotent; failures
// are logged.
func (c *ContextMenu) Update(ctx context.Context, tab types.TabSnapshot) {
	menu := c.build(tab)

	c.mu.Lock()
	c.current = &menu
	c.mu.Unlock()

	if err := c.renderer.RenderMenu(ctx, menu); err != nil {
		debugLog.Warnf("Failed to render context menu for tab %d: %v", tab.ID, err)
	}
}

// Clear removes the menu, used when the contextMenu option is switched off.
func (c *ContextMenu) Clear(ctx context.Context) {
	c.mu.Lock()
	c.current = nil
	c.mu.Unlock()

	if err := c.renderer.ClearMenu(ctx); err != nil {
		debugLog.Warnf("Failed to clear context menu: %v", err)
	}
}

// Current returns the last rendered menu.
func (c *ContextMenu) Current() (Menu, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return Menu{}, false
	}
	return *c.current, true
}

func (c *ContextMenu) build(tab types.TabSnapshot) Menu {
	menu := Menu{
		TabID: tab.ID,
		URL:   tab.URL,
		Items: []Item{
			{ID: ItemStyleElement, Title: "Style Element"},
			{ID: ItemSearchStyles, Title: "Search styles"},
		},
	}

	if style, ok := c.pageStyle(tab.URL); ok {
		title := "Enable styling for " + style.URL
		if style.Enabled {
			title = "Disable styling for " + style.URL
		}
		menu.Items = append(menu.Items, Item{ID: ItemToggleStyling, Title: title})
	}
	return menu
}

// pageStyle returns the most specific non-global style for the page.
func (c *ContextMenu) pageStyle(pageURL string) (types.Style, bool) {
	if pageURL == "" {
		return types.Style{}, false
	}
	matched, err := c.styles.ForPage(pageURL)
	if err != nil {
		debugLog.Debugf("No styles for %q: %v", pageURL, err)
		return types.Style{}, false
	}
	for i := len(matched) - 1; i >= 0; i-- {
		if matched[i].URL != types.GlobalStylePattern {
			return matched[i], true
		}
	}
	return types.Style{}, false
}
