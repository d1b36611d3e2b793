package types

import (
	"encoding/json"
	"errors"
	"fmt"
)

// RequestName is the tag carried in the name field of every inbound message.
type RequestName string

const (
	RequestCopyToClipboard             RequestName = "copyToClipboard"             // RequestCopyToClipboard writes text to the system clipboard.
	RequestActivateBrowserAction       RequestName = "activateBrowserAction"       // RequestActivateBrowserAction marks the sender's action icon as active.
	RequestHighlightBrowserAction      RequestName = "highlightBrowserAction"      // RequestHighlightBrowserAction pulses the sender's action icon.
	RequestUnhighlightBrowserAction    RequestName = "unhighlightBrowserAction"    // RequestUnhighlightBrowserAction restores the sender's action icon.
	RequestGetOption                   RequestName = "getOption"                   // RequestGetOption reads one option.
	RequestSetOption                   RequestName = "setOption"                   // RequestSetOption writes one option.
	RequestGetAllOptions               RequestName = "getAllOptions"               // RequestGetAllOptions reads the whole options bag.
	RequestViewOptionsPage             RequestName = "viewOptionsPage"             // RequestViewOptionsPage opens the options page.
	RequestSetStyle                    RequestName = "setStyle"                    // RequestSetStyle stores the CSS for a page pattern.
	RequestMoveStyles                  RequestName = "moveStyles"                  // RequestMoveStyles renames a page pattern.
	RequestGetAllStyles                RequestName = "getAllStyles"                // RequestGetAllStyles returns every stored style.
	RequestSetAllStyles                RequestName = "setAllStyles"                // RequestSetAllStyles replaces every stored style.
	RequestGetStylesForPage            RequestName = "getStylesForPage"            // RequestGetStylesForPage returns the styles matching a page.
	RequestGetMergedCSSAndURLForPage   RequestName = "getMergedCssAndUrlForPage"   // RequestGetMergedCSSAndURLForPage returns the merged CSS for a page.
	RequestGetMergedCSSAndURLForIframe RequestName = "getMergedCssAndUrlForIframe" // RequestGetMergedCSSAndURLForIframe returns the merged CSS for a frame's top page.
	RequestEnableStyle                 RequestName = "enableStyle"                 // RequestEnableStyle enables the style for a page pattern.
	RequestDisableStyle                RequestName = "disableStyle"                // RequestDisableStyle disables the style for a page pattern.
)

// Group identifies the handler that owns a request name.
type Group string

const (
	GroupClipboard     Group = "clipboard"
	GroupBrowserAction Group = "browser_action"
	GroupOption        Group = "option"
	GroupStyle         Group = "style"
)

var requestGroups = map[RequestName]Group{
	RequestCopyToClipboard: GroupClipboard,

	RequestActivateBrowserAction:    GroupBrowserAction,
	RequestHighlightBrowserAction:   GroupBrowserAction,
	RequestUnhighlightBrowserAction: GroupBrowserAction,

	RequestGetOption:       GroupOption,
	RequestSetOption:       GroupOption,
	RequestGetAllOptions:   GroupOption,
	RequestViewOptionsPage: GroupOption,

	RequestSetStyle:                    GroupStyle,
	RequestMoveStyles:                  GroupStyle,
	RequestGetAllStyles:                GroupStyle,
	RequestSetAllStyles:                GroupStyle,
	RequestGetStylesForPage:            GroupStyle,
	RequestGetMergedCSSAndURLForPage:   GroupStyle,
	RequestGetMergedCSSAndURLForIframe: GroupStyle,
	RequestEnableStyle:                 GroupStyle,
	RequestDisableStyle:                GroupStyle,
}

// GroupOf classifies a request name. The second result is false for names
// outside the vocabulary.
func GroupOf(name RequestName) (Group, bool) {
	g, ok := requestGroups[name]
	return g, ok
}

// RequestNames returns every known request name.
func RequestNames() []RequestName {
	names := make([]RequestName, 0, len(requestGroups))
	for name := range requestGroups {
		names = append(names, name)
	}
	return names
}

// ExpectsResponse reports whether the caller waits for a reply. Clipboard
// writes, browser-action pulses and opening the options page are fire-and-forget.
func ExpectsResponse(name RequestName) bool {
	switch name {
	case RequestCopyToClipboard,
		RequestActivateBrowserAction,
		RequestHighlightBrowserAction,
		RequestUnhighlightBrowserAction,
		RequestViewOptionsPage:
		return false
	}
	_, ok := requestGroups[name]
	return ok
}

// Request is the closed set of messages the background process accepts.
// Only the types in this package implement it.
type Request interface {
	Name() RequestName
	isRequest()
}

type CopyToClipboardRequest struct {
	Text string `json:"text"`
}

type ActivateBrowserActionRequest struct{}

type HighlightBrowserActionRequest struct{}

type UnhighlightBrowserActionRequest struct{}

type GetOptionRequest struct {
	Key string `json:"key"`
}

type SetOptionRequest struct {
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
}

type GetAllOptionsRequest struct{}

type ViewOptionsPageRequest struct{}

// SetStyleRequest stores css for the page pattern. An empty css removes the style.
type SetStyleRequest struct {
	Page        string `json:"page"`
	CSS         string `json:"css"`
	Readability bool   `json:"readability,omitempty"`
}

type MoveStylesRequest struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
}

type GetAllStylesRequest struct{}

// SetAllStylesRequest replaces the whole style set. Save controls whether the
// new set is persisted or only held in memory.
type SetAllStylesRequest struct {
	Styles map[string]Style `json:"styles"`
	Save   bool             `json:"save"`
}

// GetStylesForPageRequest falls back to the sender's URL when Page is empty.
type GetStylesForPageRequest struct {
	Page string `json:"page,omitempty"`
}

type GetMergedCSSAndURLForPageRequest struct {
	Page      string `json:"page,omitempty"`
	Important bool   `json:"important,omitempty"`
}

// GetMergedCSSAndURLForIframeRequest resolves styles against the top-level
// page of the sending tab rather than the frame's own URL.
type GetMergedCSSAndURLForIframeRequest struct {
	Page      string `json:"page,omitempty"`
	Important bool   `json:"important,omitempty"`
}

type EnableStyleRequest struct {
	Page string `json:"page"`
}

type DisableStyleRequest struct {
	Page string `json:"page"`
}

func (CopyToClipboardRequest) Name() RequestName          { return RequestCopyToClipboard }
func (ActivateBrowserActionRequest) Name() RequestName    { return RequestActivateBrowserAction }
func (HighlightBrowserActionRequest) Name() RequestName   { return RequestHighlightBrowserAction }
func (UnhighlightBrowserActionRequest) Name() RequestName { return RequestUnhighlightBrowserAction }
func (GetOptionRequest) Name() RequestName                { return RequestGetOption }
func (SetOptionRequest) Name() RequestName                { return RequestSetOption }
func (GetAllOptionsRequest) Name() RequestName            { return RequestGetAllOptions }
func (ViewOptionsPageRequest) Name() RequestName          { return RequestViewOptionsPage }
func (SetStyleRequest) Name() RequestName                 { return RequestSetStyle }
func (MoveStylesRequest) Name() RequestName               { return RequestMoveStyles }
func (GetAllStylesRequest) Name() RequestName             { return RequestGetAllStyles }
func (SetAllStylesRequest) Name() RequestName             { return RequestSetAllStyles }
func (GetStylesForPageRequest) Name() RequestName         { return RequestGetStylesForPage }
func (GetMergedCSSAndURLForPageRequest) Name() RequestName {
	return RequestGetMergedCSSAndURLForPage
}
func (GetMergedCSSAndURLForIframeRequest) Name() RequestName {
	return RequestGetMergedCSSAndURLForIframe
}
func (EnableStyleRequest) Name() RequestName  { return RequestEnableStyle }
func (DisableStyleRequest) Name() RequestName { return RequestDisableStyle }

func (CopyToClipboardRequest) isRequest()             {}
func (ActivateBrowserActionRequest) isRequest()       {}
func (HighlightBrowserActionRequest) isRequest()      {}
func (UnhighlightBrowserActionRequest) isRequest()    {}
func (GetOptionRequest) isRequest()                   {}
func (SetOptionRequest) isRequest()                   {}
func (GetAllOptionsRequest) isRequest()               {}
func (ViewOptionsPageRequest) isRequest()             {}
func (SetStyleRequest) isRequest()                    {}
func (MoveStylesRequest) isRequest()                  {}
func (GetAllStylesRequest) isRequest()                {}
func (SetAllStylesRequest) isRequest()                {}
func (GetStylesForPageRequest) isRequest()            {}
func (GetMergedCSSAndURLForPageRequest) isRequest()   {}
func (GetMergedCSSAndURLForIframeRequest) isRequest() {}
func (EnableStyleRequest) isRequest()                 {}
func (DisableStyleRequest) isRequest()                {}

// ErrUnknownRequest is matched by errors.Is for messages whose name is not
// part of the vocabulary.
var ErrUnknownRequest = errors.New("unknown request")

// UnknownRequestError carries the offending name.
type UnknownRequestError struct {
	Name RequestName
}

func (e *UnknownRequestError) Error() string {
	if e.Name == "" {
		return "unknown request: missing name"
	}
	return fmt.Sprintf("unknown request: %q", string(e.Name))
}

func (e *UnknownRequestError) Is(target error) bool {
	return target == ErrUnknownRequest
}

// DecodeRequest parses a wire message of the form {"name": ..., <payload>}
// into its typed variant.
func DecodeRequest(data []byte) (Request, error) {
	var envelope struct {
		Name RequestName `json:"name"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode request: %w", err)
	}

	var (
		req Request
		err error
	)
	switch envelope.Name {
	case RequestCopyToClipboard:
		req, err = decodeInto[CopyToClipboardRequest](data)
	case RequestActivateBrowserAction:
		return ActivateBrowserActionRequest{}, nil
	case RequestHighlightBrowserAction:
		return HighlightBrowserActionRequest{}, nil
	case RequestUnhighlightBrowserAction:
		return UnhighlightBrowserActionRequest{}, nil
	case RequestGetOption:
		req, err = decodeInto[GetOptionRequest](data)
	case RequestSetOption:
		req, err = decodeInto[SetOptionRequest](data)
	case RequestGetAllOptions:
		return GetAllOptionsRequest{}, nil
	case RequestViewOptionsPage:
		return ViewOptionsPageRequest{}, nil
	case RequestSetStyle:
		req, err = decodeInto[SetStyleRequest](data)
	case RequestMoveStyles:
		req, err = decodeInto[MoveStylesRequest](data)
	case RequestGetAllStyles:
		return GetAllStylesRequest{}, nil
	case RequestSetAllStyles:
		req, err = decodeInto[SetAllStylesRequest](data)
	case RequestGetStylesForPage:
		req, err = decodeInto[GetStylesForPageRequest](data)
	case RequestGetMergedCSSAndURLForPage:
		req, err = decodeInto[GetMergedCSSAndURLForPageRequest](data)
	case RequestGetMergedCSSAndURLForIframe:
		req, err = decodeInto[GetMergedCSSAndURLForIframeRequest](data)
	case RequestEnableStyle:
		req, err = decodeInto[EnableStyleRequest](data)
	case RequestDisableStyle:
		req, err = decodeInto[DisableStyleRequest](data)
	default:
		return nil, &UnknownRequestError{Name: envelope.Name}
	}

	if err != nil {
		return nil, fmt.Errorf("failed to decode %s payload: %w", envelope.Name, err)
	}
	return req, nil
}

func decodeInto[T Request](data []byte) (Request, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}
