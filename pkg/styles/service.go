// Package styles is the style facade: per-page CSS storage, lookup and
// merging for the router and the browser-action and context-menu surfaces.
package styles

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/entrhq/stylebot/pkg/logging"
	"github.com/entrhq/stylebot/pkg/types"
)

var debugLog = logging.NewLogger("styles")

// ErrStyleNotFound is returned when an operation names a pattern with no
// stored style.
var ErrStyleNotFound = errors.New("style not found")

// ChangeFunc is called after a write with the affected patterns.
type ChangeFunc func(patterns []string)

// Service is the style facade. Writes are serialized by one lock, so
// concurrent writes to the same pattern resolve last-write-wins in the order
// they acquire it, and each write is persisted before the next one starts.
type Service struct {
	mu        sync.RWMutex
	styles    map[string]types.Style
	patterns  map[string]*pattern
	persister Persister
	listeners []ChangeFunc
	now       func() time.Time
}

// NewService loads the stored styles. A nil persister keeps styles in memory
// only.
func NewService(persister Persister) (*Service, error) {
	s := &Service{
		styles:    make(map[string]types.Style),
		patterns:  make(map[string]*pattern),
		persister: persister,
		now:       time.Now,
	}
	if persister == nil {
		return s, nil
	}

	loaded, err := persister.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load styles: %w", err)
	}
	if err := s.replaceLocked(loaded); err != nil {
		return nil, err
	}
	debugLog.Infof("Loaded %d styles", len(s.styles))
	return s, nil
}

// OnChange registers fn to be called after every successful write.
func (s *Service) OnChange(fn ChangeFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Set stores css for the page pattern. Setting an empty css without
// readability removes the style.
func (s *Service) Set(page, css string, readability bool) error {
	key := NormalizePattern(page)
	p, err := compilePattern(key)
	if err != nil {
		return err
	}
	if err := ValidateCSS(css); err != nil {
		debugLog.Warnf("Storing CSS for %s that does not parse: %v", key, err)
	}

	return s.write([]string{key}, func(styles map[string]types.Style, patterns map[string]*pattern) error {
		if css == "" && !readability {
			delete(styles, key)
			delete(patterns, key)
			return nil
		}
		existing, ok := styles[key]
		enabled := !ok || existing.Enabled
		styles[key] = types.Style{
			URL:          key,
			CSS:          css,
			Enabled:      enabled,
			Readability:  readability,
			ModifiedTime: s.now(),
		}
		patterns[key] = p
		return nil
	})
}

// Move renames the style stored under source to destination, replacing any
// style already there.
func (s *Service) Move(source, destination string) error {
	src := NormalizePattern(source)
	dst := NormalizePattern(destination)
	p, err := compilePattern(dst)
	if err != nil {
		return err
	}

	return s.write([]string{src, dst}, func(styles map[string]types.Style, patterns map[string]*pattern) error {
		style, ok := styles[src]
		if !ok {
			return fmt.Errorf("%w: %q", ErrStyleNotFound, src)
		}
		if src == dst {
			return nil
		}
		delete(styles, src)
		delete(patterns, src)
		style.URL = dst
		style.ModifiedTime = s.now()
		styles[dst] = style
		patterns[dst] = p
		return nil
	})
}

// Enable turns on the style for a pattern.
func (s *Service) Enable(page string) error {
	return s.setEnabled(page, true)
}

// Disable turns off the style for a pattern without deleting it.
func (s *Service) Disable(page string) error {
	return s.setEnabled(page, false)
}

func (s *Service) setEnabled(page string, enabled bool) error {
	key := NormalizePattern(page)
	return s.write([]string{key}, func(styles map[string]types.Style, _ map[string]*pattern) error {
		style, ok := styles[key]
		if !ok {
			return fmt.Errorf("%w: %q", ErrStyleNotFound, key)
		}
		style.Enabled = enabled
		styles[key] = style
		return nil
	})
}

// All returns every stored style keyed by pattern.
func (s *Service) All() map[string]types.Style {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyStyles(s.styles)
}

// SetAll replaces every stored style. With save unset the new set lives in
// memory until the next persisted write.
func (s *Service) SetAll(styles map[string]types.Style, save bool) error {
	s.mu.Lock()
	previous := s.styles
	previousPatterns := s.patterns
	if err := s.replaceLocked(styles); err != nil {
		s.mu.Unlock()
		return err
	}
	if save {
		if err := s.saveLocked(); err != nil {
			s.styles = previous
			s.patterns = previousPatterns
			s.mu.Unlock()
			return err
		}
	}
	keys := sortedKeys(s.styles)
	listeners := append([]ChangeFunc(nil), s.listeners...)
	s.mu.Unlock()

	notify(listeners, keys)
	return nil
}

// replaceLocked swaps in a normalized copy of styles.
func (s *Service) replaceLocked(in map[string]types.Style) error {
	styles := make(map[string]types.Style, len(in))
	patterns := make(map[string]*pattern, len(in))
	for key, style := range in {
		if style.URL == "" {
			style.URL = key
		}
		style.URL = NormalizePattern(style.URL)
		p, err := compilePattern(style.URL)
		if err != nil {
			return err
		}
		styles[style.URL] = style
		patterns[style.URL] = p
	}
	s.styles = styles
	s.patterns = patterns
	return nil
}

// write applies fn to copies of the state, persists the result and only
// then makes it visible. A failed fn or save leaves the state untouched.
func (s *Service) write(affected []string, fn func(map[string]types.Style, map[string]*pattern) error) error {
	s.mu.Lock()
	styles := copyStyles(s.styles)
	patterns := make(map[string]*pattern, len(s.patterns))
	for k, p := range s.patterns {
		patterns[k] = p
	}
	if err := fn(styles, patterns); err != nil {
		s.mu.Unlock()
		return err
	}

	previous, previousPatterns := s.styles, s.patterns
	s.styles, s.patterns = styles, patterns
	if err := s.saveLocked(); err != nil {
		s.styles, s.patterns = previous, previousPatterns
		s.mu.Unlock()
		return err
	}
	listeners := append([]ChangeFunc(nil), s.listeners...)
	s.mu.Unlock()

	notify(listeners, affected)
	return nil
}

func (s *Service) saveLocked() error {
	if s.persister == nil {
		return nil
	}
	if err := s.persister.Save(copyStyles(s.styles)); err != nil {
		return fmt.Errorf("failed to save styles: %w", err)
	}
	return nil
}

// ForPage returns every style whose pattern matches the page, enabled or
// not, least specific first.
func (s *Service) ForPage(pageURL string) ([]types.Style, error) {
	host, path, err := pageLocation(pageURL)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.matchLocked(host, path, false), nil
}

// HasEnabledStyle reports whether any enabled, non-global style matches the
// page. The global style is ignored so the action icon only lights up for
// pages the user styled explicitly.
func (s *Service) HasEnabledStyle(pageURL string) bool {
	host, path, err := pageLocation(pageURL)
	if err != nil {
		return false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, style := range s.matchLocked(host, path, true) {
		if style.URL != types.GlobalStylePattern {
			return true
		}
	}
	return false
}

// MergedForPage returns the enabled styles matching the page merged into one
// sheet, least specific first, and the most specific contributing pattern.
func (s *Service) MergedForPage(pageURL string, important bool) (types.MergedCSS, error) {
	host, path, err := pageLocation(pageURL)
	if err != nil {
		return types.MergedCSS{}, err
	}

	s.mu.RLock()
	matched := s.matchLocked(host, path, true)
	s.mu.RUnlock()

	var merged types.MergedCSS
	sheets := make([]string, 0, len(matched))
	for _, style := range matched {
		sheets = append(sheets, style.CSS)
		merged.URL = style.URL
		merged.Readability = merged.Readability || style.Readability
	}
	merged.CSS = mergeCSS(sheets, important)
	return merged, nil
}

// MergedForIframe is MergedForPage for a frame embedded in topURL. Frames
// take the styles of the page they are embedded in but never readability
// mode, which only applies to the top-level document.
func (s *Service) MergedForIframe(topURL string, important bool) (types.MergedCSS, error) {
	merged, err := s.MergedForPage(topURL, important)
	if err != nil {
		return types.MergedCSS{}, err
	}
	merged.Readability = false
	return merged, nil
}

func (s *Service) matchLocked(host, path string, enabledOnly bool) []types.Style {
	type ranked struct {
		style types.Style
		rank  int
	}
	var hits []ranked
	for key, p := range s.patterns {
		style := s.styles[key]
		if enabledOnly && !style.Enabled {
			continue
		}
		if p.match(host, path) {
			hits = append(hits, ranked{style: style, rank: p.specificity()})
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].rank != hits[j].rank {
			return hits[i].rank < hits[j].rank
		}
		return hits[i].style.URL < hits[j].style.URL
	})

	out := make([]types.Style, len(hits))
	for i, h := range hits {
		out[i] = h.style
	}
	return out
}

func notify(listeners []ChangeFunc, patterns []string) {
	for _, fn := range listeners {
		fn(patterns)
	}
}

func copyStyles(in map[string]types.Style) map[string]types.Style {
	out := make(map[string]types.Style, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func sortedKeys(in map[string]types.Style) []string {
	keys := make([]string, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
