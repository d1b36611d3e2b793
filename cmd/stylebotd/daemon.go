package main

import (
	"context"
	"fmt"
	"io"

	"github.com/entrhq/stylebot/pkg/browser"
	"github.com/entrhq/stylebot/pkg/browseraction"
	"github.com/entrhq/stylebot/pkg/clipboard"
	"github.com/entrhq/stylebot/pkg/config"
	"github.com/entrhq/stylebot/pkg/contextmenu"
	"github.com/entrhq/stylebot/pkg/eventloop"
	"github.com/entrhq/stylebot/pkg/logging"
	"github.com/entrhq/stylebot/pkg/options"
	"github.com/entrhq/stylebot/pkg/router"
	"github.com/entrhq/stylebot/pkg/styles"
	"github.com/entrhq/stylebot/pkg/tabcache"
	"github.com/entrhq/stylebot/pkg/tabsync"
	"github.com/entrhq/stylebot/pkg/transport/nativemsg"
	"github.com/entrhq/stylebot/pkg/types"
)

var debugLog = logging.NewLogger("daemon")

// surface draws the extension's UI and opens pages on its behalf.
type surface interface {
	contextmenu.Renderer
	browseraction.Renderer
	options.PageOpener
}

// daemon owns every long-lived component of the background process.
type daemon struct {
	cfg *config.Daemon

	options *options.Service
	styles  *styles.Service
	menu    *contextmenu.ContextMenu
	action  *browseraction.BrowserAction
	cache   *tabcache.Cache
	loop    *eventloop.Loop
	sync    *tabsync.Synchronizer
	router  *router.Router

	server    *nativemsg.Server
	source    *browser.Source
	snapshots *tabsync.Snapshots
}

// newDaemon builds the component graph. in and out carry the native
// messaging channel when it is enabled.
func newDaemon(cfg *config.Daemon, in io.Reader, out io.Writer) (*daemon, error) {
	store, err := config.NewFileStore(cfg.OptionsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open options: %w", err)
	}
	persister, err := styles.NewFilePersister(cfg.StylesPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open styles: %w", err)
	}
	debugLog.Infof("Options in %s, styles in %s", store.Path(), persister.Path())

	d := &daemon{
		cfg:   cfg,
		cache: tabcache.New(),
		loop:  eventloop.New(),
	}
	d.styles, err = styles.NewService(persister)
	if err != nil {
		return nil, err
	}

	var surf surface = logSurface{}
	if cfg.Transport.NativeMessaging {
		d.server = nativemsg.NewServer(in, out, nativemsg.HandlerFunc(d.handleRaw), uint32(cfg.Transport.MaxMessageSize))
		surf = nativemsg.NewRenderer(d.server)
	}

	var opener options.PageOpener = surf
	var tabs tabsync.TabQuerier
	if cfg.Browser.Enabled {
		d.source = browser.NewSource(browser.Options{
			Headless:  cfg.Browser.Headless,
			StartURLs: cfg.Browser.StartURLs,
			Timeout:   cfg.Browser.Timeout,
		})
		opener = d.source
		tabs = d.source
	} else {
		d.snapshots = tabsync.NewSnapshots()
		tabs = d.snapshots
	}

	d.options, err = options.NewService(store, opener, cfg.OptionsPageURL)
	if err != nil {
		return nil, err
	}
	d.menu = contextmenu.New(d.styles, surf)
	d.action = browseraction.New(d.styles, surf)

	d.sync, err = tabsync.New(tabsync.Config{
		Menu:    d.menu,
		Action:  d.action,
		Tabs:    tabs,
		Options: d.options,
		Cache:   d.cache,
		Loop:    d.loop,
	})
	if err != nil {
		return nil, err
	}

	d.router, err = router.New(router.Handlers{
		Clipboard:     clipboard.NewHandler(),
		BrowserAction: d.action,
		Options:       d.options,
		Styles:        d.styles,
	})
	if err != nil {
		return nil, err
	}

	d.options.OnChange(d.optionChanged)
	d.styles.OnChange(d.stylesChanged)
	if d.server != nil && d.snapshots != nil {
		d.server.OnTabEvent(d.extensionTabEvent)
	}
	return d, nil
}

// run starts the loop and the tab and request sources, and blocks until
// the extension disconnects, the browser goes away or ctx is cancelled.
func (d *daemon) run(ctx context.Context) error {
	loopCtx, cancelLoop := context.WithCancel(context.Background())
	defer cancelLoop()
	go func() {
		if err := d.loop.Run(loopCtx); err != nil && loopCtx.Err() == nil {
			debugLog.Errorf("Event loop stopped: %v", err)
		}
	}()
	// Stop only drains a loop that is already running.
	ready := make(chan struct{})
	if err := d.loop.Post(func(context.Context) { close(ready) }); err != nil {
		return err
	}
	<-ready
	defer d.loop.Stop()

	var browserDone <-chan struct{}
	if d.source != nil {
		if err := d.source.Start(ctx); err != nil {
			return fmt.Errorf("failed to start browser: %w", err)
		}
		defer func() {
			if err := d.source.Shutdown(); err != nil {
				debugLog.Warnf("Browser shutdown failed: %v", err)
			}
		}()
		browserDone = d.source.Done()
		go d.pumpBrowserEvents(ctx)
	}

	var serveErr chan error
	if d.server != nil {
		serveErr = make(chan error, 1)
		go func() {
			serveErr <- d.server.Serve(ctx)
		}()
	}

	debugLog.Infof("stylebotd %s started (native messaging: %v, browser: %v)", version, d.server != nil, d.source != nil)

	select {
	case <-ctx.Done():
		debugLog.Infof("Shutdown requested")
		return nil
	case <-browserDone:
		debugLog.Infof("Browser closed")
		return nil
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("native messaging failed: %w", err)
		}
		debugLog.Infof("Extension disconnected")
		return nil
	}
}

func (d *daemon) handleRaw(ctx context.Context, data []byte, sender types.Sender, resp *router.Responder) {
	d.router.HandleRaw(ctx, data, sender, resp)
}

func (d *daemon) pumpBrowserEvents(ctx context.Context) {
	for {
		select {
		case event := <-d.source.Events():
			d.dispatch(ctx, event)
		case <-d.source.Done():
			return
		case <-ctx.Done():
			return
		}
	}
}

func (d *daemon) extensionTabEvent(ctx context.Context, event *types.TabEvent) {
	d.snapshots.Observe(event)
	d.dispatch(ctx, event)
}

func (d *daemon) dispatch(ctx context.Context, event *types.TabEvent) {
	if err := d.sync.Dispatch(ctx, event); err != nil {
		debugLog.Warnf("Dropping %s for tab %d: %v", event.Type, event.TabID, err)
	}
}

// optionChanged removes the context menu when the option is switched off.
func (d *daemon) optionChanged(key string, value interface{}) {
	if key != options.KeyContextMenu {
		return
	}
	if enabled, _ := value.(bool); enabled {
		return
	}
	if err := d.loop.Post(d.menu.Clear); err != nil {
		debugLog.Warnf("Failed to clear context menu: %v", err)
	}
}

// stylesChanged redraws the browser action of every known tab.
func (d *daemon) stylesChanged([]string) {
	if err := d.loop.Post(d.action.Refresh); err != nil {
		debugLog.Warnf("Failed to refresh browser action: %v", err)
	}
}

// logSurface stands in for the extension when no native messaging channel
// is open.
type logSurface struct{}

func (logSurface) RenderMenu(_ context.Context, menu contextmenu.Menu) error {
	debugLog.Debugf("Context menu for tab %d: %d items", menu.TabID, len(menu.Items))
	return nil
}

func (logSurface) ClearMenu(context.Context) error {
	debugLog.Debugf("Context menu cleared")
	return nil
}

func (logSurface) RenderAction(_ context.Context, state browseraction.State) error {
	debugLog.Debugf("Browser action for tab %d: %s", state.TabID, state.Icon())
	return nil
}

func (logSurface) OpenPage(_ context.Context, url string) error {
	return fmt.Errorf("no page opener for %s", url)
}
