// Package router dispatches front-end requests to the clipboard,
// browser-action, option and style handlers.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/entrhq/stylebot/pkg/logging"
	"github.com/entrhq/stylebot/pkg/types"
)

var debugLog = logging.NewLogger("router")

// ErrNoResponse is sent to callers whose handler returned without replying.
var ErrNoResponse = errors.New("handler produced no response")

// ClipboardWriter copies text to the clipboard.
type ClipboardWriter interface {
	Copy(text string) error
}

// BrowserAction updates the toolbar button of a tab.
type BrowserAction interface {
	Activate(ctx context.Context, tab types.TabSnapshot)
	Highlight(ctx context.Context, tab types.TabSnapshot)
	Unhighlight(ctx context.Context, tab types.TabSnapshot)
}

// OptionFacade reads and writes user options.
type OptionFacade interface {
	Get(key string) (interface{}, error)
	Set(key string, value interface{}) error
	All() map[string]interface{}
	ViewOptionsPage(ctx context.Context) error
}

// StyleFacade reads and writes stored styles.
type StyleFacade interface {
	Set(page, css string, readability bool) error
	Move(source, destination string) error
	All() map[string]types.Style
	SetAll(styles map[string]types.Style, save bool) error
	ForPage(pageURL string) ([]types.Style, error)
	MergedForPage(pageURL string, important bool) (types.MergedCSS, error)
	MergedForIframe(topURL string, important bool) (types.MergedCSS, error)
	Enable(page string) error
	Disable(page string) error
}

// Handlers groups the collaborators requests are routed to.
type Handlers struct {
	Clipboard     ClipboardWriter
	BrowserAction BrowserAction
	Options       OptionFacade
	Styles        StyleFacade
}

// Router routes each request to exactly one handler group. It keeps no
// state between requests; ordering between writes is left to the facades.
type Router struct {
	handlers Handlers
}

// New creates a router. All handlers must be non-nil.
func New(handlers Handlers) (*Router, error) {
	switch {
	case handlers.Clipboard == nil:
		return nil, fmt.Errorf("router: clipboard handler is required")
	case handlers.BrowserAction == nil:
		return nil, fmt.Errorf("router: browser action handler is required")
	case handlers.Options == nil:
		return nil, fmt.Errorf("router: option facade is required")
	case handlers.Styles == nil:
		return nil, fmt.Errorf("router: style facade is required")
	}
	return &Router{handlers: handlers}, nil
}

// HandleRaw decodes a wire message and handles it. Messages with an unknown
// name are logged and dropped: no handler runs and resp is closed without
// a value. Malformed payloads of known requests are answered with an error
// when the request expects a response.
func (r *Router) HandleRaw(ctx context.Context, data []byte, sender types.Sender, resp *Responder) {
	req, err := types.DecodeRequest(data)
	if err != nil {
		defer resp.Close()
		var unknown *types.UnknownRequestError
		if errors.As(err, &unknown) {
			debugLog.Warnf("[%s] Unhandled request kind %q", resp.ID(), unknown.Name)
			return
		}
		name := peekName(data)
		resp.bind(name)
		debugLog.Warnf("[%s] Rejecting %s: %v", resp.ID(), name, err)
		if types.ExpectsResponse(name) {
			resp.Send(types.NewErrorResponse(err))
		}
		return
	}
	r.Handle(ctx, req, sender, resp)
}

// Handle runs the handler group for req and closes resp once it returns.
// A handler that panics or fails to answer a request expecting a response
// is logged and the caller receives an error.
func (r *Router) Handle(ctx context.Context, req types.Request, sender types.Sender, resp *Responder) {
	defer resp.Close()
	name := req.Name()
	resp.bind(name)
	debugLog.Debugf("[%s] Handling %s", resp.ID(), name)

	defer func() {
		if p := recover(); p != nil {
			debugLog.Errorf("[%s] Handler for %s panicked: %v\n%s", resp.ID(), name, p, debug.Stack())
			if types.ExpectsResponse(name) {
				resp.Send(types.NewErrorResponse(fmt.Errorf("internal error handling %s", name)))
			}
			return
		}
		if types.ExpectsResponse(name) && !resp.Responded() {
			debugLog.Errorf("[%s] Handler for %s returned without responding", resp.ID(), name)
			resp.Send(types.NewErrorResponse(ErrNoResponse))
		}
	}()

	var err error
	switch req := req.(type) {
	case types.CopyToClipboardRequest:
		err = r.handlers.Clipboard.Copy(req.Text)
	case types.ActivateBrowserActionRequest,
		types.HighlightBrowserActionRequest,
		types.UnhighlightBrowserActionRequest:
		err = r.handleBrowserAction(ctx, req, sender)
	case types.GetOptionRequest,
		types.SetOptionRequest,
		types.GetAllOptionsRequest,
		types.ViewOptionsPageRequest:
		err = r.handleOption(ctx, req, resp)
	case types.SetStyleRequest,
		types.MoveStylesRequest,
		types.GetAllStylesRequest,
		types.SetAllStylesRequest,
		types.GetStylesForPageRequest,
		types.GetMergedCSSAndURLForPageRequest,
		types.GetMergedCSSAndURLForIframeRequest,
		types.EnableStyleRequest,
		types.DisableStyleRequest:
		err = r.handleStyle(req, sender, resp)
	default:
		debugLog.Warnf("[%s] Unhandled request kind %q", resp.ID(), name)
		return
	}

	if err == nil {
		return
	}
	if types.ExpectsResponse(name) {
		debugLog.Warnf("[%s] %s failed: %v", resp.ID(), name, err)
		resp.Send(types.NewErrorResponse(err))
		return
	}
	debugLog.Errorf("[%s] %s failed with no caller to report to: %v", resp.ID(), name, err)
}

func peekName(data []byte) types.RequestName {
	var envelope struct {
		Name types.RequestName `json:"name"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return ""
	}
	return envelope.Name
}
