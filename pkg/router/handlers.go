package router

import (
	"context"
	"errors"
	"fmt"

	"github.com/entrhq/stylebot/pkg/types"
)

// ErrNoSenderTab is returned for browser-action requests from contexts
// outside a tab.
var ErrNoSenderTab = errors.New("sender has no tab")

// ErrNoPage is returned for style requests that name no page and come
// from a sender without a URL.
var ErrNoPage = errors.New("no page given and sender has no URL")

func (r *Router) handleBrowserAction(ctx context.Context, req types.Request, sender types.Sender) error {
	if sender.Tab == nil {
		return fmt.Errorf("%s: %w", req.Name(), ErrNoSenderTab)
	}
	tab := *sender.Tab

	switch req.(type) {
	case types.ActivateBrowserActionRequest:
		r.handlers.BrowserAction.Activate(ctx, tab)
	case types.HighlightBrowserActionRequest:
		r.handlers.BrowserAction.Highlight(ctx, tab)
	case types.UnhighlightBrowserActionRequest:
		r.handlers.BrowserAction.Unhighlight(ctx, tab)
	}
	return nil
}

func (r *Router) handleOption(ctx context.Context, req types.Request, resp *Responder) error {
	opts := r.handlers.Options

	switch req := req.(type) {
	case types.GetOptionRequest:
		value, err := opts.Get(req.Key)
		if err != nil {
			return err
		}
		resp.Send(types.NewValueResponse(value))
	case types.SetOptionRequest:
		if err := opts.Set(req.Key, req.Value); err != nil {
			return err
		}
		resp.Send(types.NewAckResponse())
	case types.GetAllOptionsRequest:
		resp.Send(types.NewValueResponse(opts.All()))
	case types.ViewOptionsPageRequest:
		return opts.ViewOptionsPage(ctx)
	}
	return nil
}

func (r *Router) handleStyle(req types.Request, sender types.Sender, resp *Responder) error {
	styles := r.handlers.Styles

	switch req := req.(type) {
	case types.SetStyleRequest:
		if err := styles.Set(req.Page, req.CSS, req.Readability); err != nil {
			return err
		}
		resp.Send(types.NewAckResponse())
	case types.MoveStylesRequest:
		if err := styles.Move(req.Source, req.Destination); err != nil {
			return err
		}
		resp.Send(types.NewAckResponse())
	case types.GetAllStylesRequest:
		resp.Send(types.NewValueResponse(styles.All()))
	case types.SetAllStylesRequest:
		if err := styles.SetAll(req.Styles, req.Save); err != nil {
			return err
		}
		resp.Send(types.NewAckResponse())
	case types.GetStylesForPageRequest:
		page, err := pageFor(req.Page, sender)
		if err != nil {
			return err
		}
		matched, err := styles.ForPage(page)
		if err != nil {
			return err
		}
		resp.Send(types.NewValueResponse(matched))
	case types.GetMergedCSSAndURLForPageRequest:
		page, err := pageFor(req.Page, sender)
		if err != nil {
			return err
		}
		merged, err := styles.MergedForPage(page, req.Important)
		if err != nil {
			return err
		}
		resp.Send(types.NewValueResponse(merged))
	case types.GetMergedCSSAndURLForIframeRequest:
		page, err := pageFor(req.Page, sender)
		if err != nil {
			return err
		}
		merged, err := styles.MergedForIframe(page, req.Important)
		if err != nil {
			return err
		}
		resp.Send(types.NewValueResponse(merged))
	case types.EnableStyleRequest:
		if err := styles.Enable(req.Page); err != nil {
			return err
		}
		resp.Send(types.NewAckResponse())
	case types.DisableStyleRequest:
		if err := styles.Disable(req.Page); err != nil {
			return err
		}
		resp.Send(types.NewAckResponse())
	}
	return nil
}

// pageFor resolves the page a style request is about. Frames resolve to
// the top-level page of their tab.
func pageFor(page string, sender types.Sender) (string, error) {
	if page != "" {
		return page, nil
	}
	if u := sender.PageURL(); u != "" {
		return u, nil
	}
	return "", ErrNoPage
}
