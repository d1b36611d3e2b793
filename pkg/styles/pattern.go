package styles

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/entrhq/stylebot/pkg/types"
	"github.com/gobwas/glob"
	"golang.org/x/net/publicsuffix"
)

var (
	// ErrInvalidPattern is returned for page patterns that cannot be compiled.
	ErrInvalidPattern = errors.New("invalid page pattern")

	// ErrPatternTooBroad is returned for plain patterns naming a public
	// suffix such as "com" or "co.uk".
	ErrPatternTooBroad = errors.New("page pattern matches a public suffix")
)

// pattern decides which pages a style applies to.
//
//   - "*" matches every page.
//   - A plain host ("example.com") matches that host and its subdomains; with
//     a path ("example.com/docs") it also requires the path prefix.
//   - Anything containing glob syntax is matched with gobwas/glob: patterns
//     without "/" against the host, others against host+path. "*" stops at
//     "/", "**" does not.
type pattern struct {
	raw    string
	global bool
	glob   glob.Glob
	host   string
	path   string
}

// NormalizePattern turns user input such as "https://www.example.com/" into
// the key styles are stored under.
func NormalizePattern(raw string) string {
	p := strings.TrimSpace(raw)
	if p == types.GlobalStylePattern {
		return p
	}
	if i := strings.Index(p, "://"); i >= 0 {
		p = p[i+3:]
	}
	p = strings.TrimPrefix(p, "www.")
	p = strings.TrimSuffix(p, "/")
	return strings.ToLower(p)
}

func hasGlobSyntax(s string) bool {
	return strings.ContainsAny(s, "*?[{")
}

func compilePattern(raw string) (*pattern, error) {
	if raw == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidPattern)
	}
	if raw == types.GlobalStylePattern {
		return &pattern{raw: raw, global: true}, nil
	}

	if hasGlobSyntax(raw) {
		g, err := glob.Compile(raw, '/')
		if err != nil {
			return nil, fmt.Errorf("%w %q: %v", ErrInvalidPattern, raw, err)
		}
		return &pattern{raw: raw, glob: g}, nil
	}

	host, path, _ := strings.Cut(raw, "/")
	if host == "" {
		return nil, fmt.Errorf("%w %q: missing host", ErrInvalidPattern, raw)
	}
	// Unlisted single labels such as "localhost" are their own suffix but
	// not ICANN-managed; those stay usable.
	if suffix, icann := publicsuffix.PublicSuffix(host); suffix == host && (icann || strings.Contains(host, ".")) {
		return nil, fmt.Errorf("%w: %q", ErrPatternTooBroad, raw)
	}
	p := &pattern{raw: raw, host: host}
	if path != "" {
		p.path = "/" + path
	}
	return p, nil
}

// match reports whether the page (host, path) is covered by the pattern.
func (p *pattern) match(host, path string) bool {
	switch {
	case p.global:
		return true
	case p.glob != nil:
		if strings.Contains(p.raw, "/") {
			return p.glob.Match(host + path)
		}
		return p.glob.Match(host)
	}

	if host != p.host && !strings.HasSuffix(host, "."+p.host) {
		return false
	}
	return p.path == "" || strings.HasPrefix(path, p.path)
}

// specificity orders patterns for merging: the global style first, then
// glob patterns, then plain patterns, each by the amount of literal text.
func (p *pattern) specificity() int {
	switch {
	case p.global:
		return 0
	case p.glob != nil:
		literal := 0
		for _, r := range p.raw {
			if !strings.ContainsRune("*?[]{},", r) {
				literal++
			}
		}
		return 1 + literal
	default:
		return 1<<16 + len(p.raw)
	}
}

// pageLocation extracts the lowercase host without "www." and the path of
// a page URL. Bare hosts such as "example.com" are accepted.
func pageLocation(pageURL string) (string, string, error) {
	raw := strings.TrimSpace(pageURL)
	if raw == "" {
		return "", "", fmt.Errorf("empty page URL")
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("invalid page URL %q: %w", pageURL, err)
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return host, path, nil
}
