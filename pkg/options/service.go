package options

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/entrhq/stylebot/pkg/config"
	"github.com/entrhq/stylebot/pkg/logging"
)

var debugLog = logging.NewLogger("options")

// SectionID is the settings-store section holding the options bag.
const SectionID = "options"

// ErrUnknownOption is returned for keys outside the options bag.
var ErrUnknownOption = errors.New("unknown option")

// PageOpener opens a page in the browser.
type PageOpener interface {
	OpenPage(ctx context.Context, url string) error
}

// ChangeFunc is called after a successful Set with the new value.
type ChangeFunc func(key string, value interface{})

// Service is the option facade. It is safe for concurrent use; readers may
// observe a value set concurrently before or after their read.
type Service struct {
	mu        sync.RWMutex
	opts      Options
	store     config.Store
	opener    PageOpener
	pageURL   string
	listeners []ChangeFunc
}

// NewService loads the options bag from store, filling unset keys with
// Defaults. opener may be nil, in which case ViewOptionsPage fails.
func NewService(store config.Store, opener PageOpener, pageURL string) (*Service, error) {
	data, err := store.GetSection(SectionID)
	if err != nil {
		return nil, fmt.Errorf("failed to read options: %w", err)
	}

	opts := Defaults()
	if err := opts.apply(data); err != nil {
		return nil, fmt.Errorf("invalid stored options: %w", err)
	}

	return &Service{
		opts:    opts,
		store:   store,
		opener:  opener,
		pageURL: pageURL,
	}, nil
}

// Get returns the value of one option.
func (s *Service) Get(key string) (interface{}, error) {
	f, ok := fields[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownOption, key)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return f.get(&s.opts), nil
}

// Set validates and stores one option, then persists the bag. If persisting
// fails the previous value is restored and the error returned.
func (s *Service) Set(key string, value interface{}) error {
	f, ok := fields[key]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownOption, key)
	}

	s.mu.Lock()
	previous := s.opts
	if err := f.set(&s.opts, value); err != nil {
		s.mu.Unlock()
		return err
	}
	if err := s.persistLocked(); err != nil {
		s.opts = previous
		s.mu.Unlock()
		return err
	}
	newValue := f.get(&s.opts)
	listeners := append([]ChangeFunc(nil), s.listeners...)
	s.mu.Unlock()

	debugLog.Debugf("Option %s set to %v", key, newValue)
	for _, fn := range listeners {
		fn(key, newValue)
	}
	return nil
}

func (s *Service) persistLocked() error {
	if err := s.store.SetSection(SectionID, s.opts.Map()); err != nil {
		return fmt.Errorf("failed to store options: %w", err)
	}
	if err := s.store.Save(); err != nil {
		return fmt.Errorf("failed to save options: %w", err)
	}
	return nil
}

// All returns every option as a key/value map.
func (s *Service) All() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.opts.Map()
}

// Snapshot returns a copy of the options bag.
func (s *Service) Snapshot() Options {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.opts
}

// ContextMenuEnabled reports whether context-menu integration is on.
func (s *Service) ContextMenuEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.opts.ContextMenu
}

// OnChange registers fn to be called after every successful Set.
func (s *Service) OnChange(fn ChangeFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// ViewOptionsPage opens the options page.
func (s *Service) ViewOptionsPage(ctx context.Context) error {
	if s.opener == nil {
		return errors.New("no page opener configured")
	}
	if err := s.opener.OpenPage(ctx, s.pageURL); err != nil {
		return fmt.Errorf("failed to open options page: %w", err)
	}
	return nil
}
