// Package browser drives a Chromium instance through Playwright and reports
// its pages as tabs.
//
// Every page gets a stable integer id. Navigation, load and close callbacks
// are turned into tab lifecycle events, and the source answers tab lookups
// and opens pages for the rest of the process.
package browser

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/entrhq/stylebot/pkg/logging"
	"github.com/entrhq/stylebot/pkg/types"
	"github.com/playwright-community/playwright-go"
)

var debugLog = logging.NewLogger("browser")

const (
	// DefaultTimeout bounds page operations.
	DefaultTimeout = 30 * time.Second

	eventBuffer = 64
)

// Options configures the browser.
type Options struct {
	// Headless controls whether the browser runs without a visible window.
	Headless bool

	// StartURLs are opened as tabs once the browser is up.
	StartURLs []string

	// Timeout for page operations. Zero means DefaultTimeout.
	Timeout time.Duration
}

// Source owns the Playwright browser and emits tab events.
type Source struct {
	opts Options
	tabs *registry

	mu          sync.Mutex
	playwright  *playwright.Playwright
	browser     playwright.Browser
	context     playwright.BrowserContext
	initialized bool

	events    chan *types.TabEvent
	done      chan struct{}
	closeOnce sync.Once
}

// NewSource creates a source. Call Start to launch the browser.
func NewSource(opts Options) *Source {
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Source{
		opts:   opts,
		tabs:   newRegistry(),
		events: make(chan *types.TabEvent, eventBuffer),
		done:   make(chan struct{}),
	}
}

// Events delivers tab lifecycle events in the order the browser reported
// them.
func (s *Source) Events() <-chan *types.TabEvent {
	return s.events
}

// Done is closed by Shutdown.
func (s *Source) Done() <-chan struct{} {
	return s.done
}

// Start installs Playwright if needed, launches Chromium and opens the
// start URLs.
func (s *Source) Start(ctx context.Context) error {
	if err := s.launch(); err != nil {
		return err
	}
	for _, url := range s.opts.StartURLs {
		if err := s.OpenPage(ctx, url); err != nil {
			debugLog.Warnf("Failed to open start URL %s: %v", url, err)
		}
	}
	return nil
}

func (s *Source) launch() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return nil
	}

	// Keep driver output away from stdout, which may carry native messages.
	runOpts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}
	if err := playwright.Install(runOpts); err != nil {
		return fmt.Errorf("failed to install playwright: %w", err)
	}
	pw, err := playwright.Run(runOpts)
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(s.opts.Headless),
	})
	if err != nil {
		pw.Stop()
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	bctx, err := browser.NewContext()
	if err != nil {
		browser.Close()
		pw.Stop()
		return fmt.Errorf("failed to create context: %w", err)
	}
	bctx.SetDefaultTimeout(float64(s.opts.Timeout.Milliseconds()))
	bctx.OnPage(s.watch)

	s.playwright = pw
	s.browser = browser
	s.context = bctx
	s.initialized = true
	debugLog.Infof("Browser started (headless=%v)", s.opts.Headless)
	return nil
}

// watch registers a new page and subscribes to its lifecycle.
func (s *Source) watch(page playwright.Page) {
	id := s.tabs.add(page)
	debugLog.Debugf("Tab %d opened", id)
	s.emit(types.NewTabActivatedEvent(id))

	page.OnFrameNavigated(func(frame playwright.Frame) {
		if frame != page.MainFrame() {
			return
		}
		s.tabs.setStatus(id, types.TabStatusLoading)
		s.emitUpdate(id, types.TabChange{Status: types.TabStatusLoading, URL: frame.URL()})
	})
	page.OnLoad(func(playwright.Page) {
		s.tabs.setStatus(id, types.TabStatusComplete)
		s.emitUpdate(id, types.TabChange{Status: types.TabStatusComplete})
	})
	page.OnClose(func(playwright.Page) {
		if id, ok := s.tabs.remove(page); ok {
			debugLog.Debugf("Tab %d closed", id)
			s.emit(types.NewTabRemovedEvent(id))
		}
	})
}

func (s *Source) emitUpdate(id int, change types.TabChange) {
	snapshot, err := s.tabs.snapshot(id, false)
	if err != nil {
		return
	}
	s.emit(types.NewTabUpdatedEvent(snapshot, change))
}

// emit blocks until the event is consumed or the source shuts down, so
// removals are never dropped.
func (s *Source) emit(event *types.TabEvent) {
	select {
	case s.events <- event:
	case <-s.done:
	}
}

// Get returns the live snapshot of a tab, or types.ErrTabNotFound once the
// tab is closed.
func (s *Source) Get(_ context.Context, tabID int) (types.TabSnapshot, error) {
	return s.tabs.snapshot(tabID, true)
}

// OpenPage opens url in a new tab.
func (s *Source) OpenPage(_ context.Context, url string) error {
	s.mu.Lock()
	bctx := s.context
	started := s.initialized
	s.mu.Unlock()
	if !started {
		return fmt.Errorf("browser not started")
	}

	// Page callbacks fire while NewPage and Goto run, so no lock is held.
	page, err := bctx.NewPage()
	if err != nil {
		return fmt.Errorf("failed to create page: %w", err)
	}
	if _, err := page.Goto(url); err != nil {
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	return nil
}

// Shutdown closes the browser, stops Playwright and closes Done.
func (s *Source) Shutdown() error {
	s.closeOnce.Do(func() { close(s.done) })

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return nil
	}

	_ = s.context.Close() // Ignore errors, continue cleanup
	_ = s.browser.Close() // Ignore errors, continue cleanup
	s.initialized = false
	if err := s.playwright.Stop(); err != nil {
		return fmt.Errorf("failed to stop playwright: %w", err)
	}
	return nil
}
