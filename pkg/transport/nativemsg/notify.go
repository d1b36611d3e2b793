package nativemsg

import (
	"context"

	"github.com/entrhq/stylebot/pkg/browseraction"
	"github.com/entrhq/stylebot/pkg/contextmenu"
)

// Notification event names.
const (
	EventContextMenu        = "contextMenu"
	EventContextMenuCleared = "contextMenuCleared"
	EventBrowserAction      = "browserAction"
	EventOpenPage           = "openPage"
)

// Renderer draws the context menu and browser action by notifying the
// extension over the server's output stream.
type Renderer struct {
	server *Server
}

// NewRenderer creates a renderer writing to server.
func NewRenderer(server *Server) *Renderer {
	return &Renderer{server: server}
}

// RenderMenu sends the menu for a tab.
func (r *Renderer) RenderMenu(_ context.Context, menu contextmenu.Menu) error {
	return r.server.Notify(EventContextMenu, menu)
}

// ClearMenu tells the extension to remove the menu.
func (r *Renderer) ClearMenu(context.Context) error {
	return r.server.Notify(EventContextMenuCleared, nil)
}

// RenderAction sends the toolbar button state for a tab.
func (r *Renderer) RenderAction(_ context.Context, state browseraction.State) error {
	return r.server.Notify(EventBrowserAction, actionPayload{State: state, Icon: state.Icon()})
}

// OpenPage asks the extension to open url in a new tab.
func (r *Renderer) OpenPage(_ context.Context, url string) error {
	return r.server.Notify(EventOpenPage, openPagePayload{URL: url})
}

type openPagePayload struct {
	URL string `json:"url"`
}

type actionPayload struct {
	browseraction.State
	Icon string `json:"icon"`
}
