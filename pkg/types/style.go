package types

import "time"

// GlobalStylePattern is the pattern of the style applied to every page.
const GlobalStylePattern = "*"

// Style is the stored CSS for one page pattern.
type Style struct {
	URL          string    `json:"url" yaml:"url"`
	CSS          string    `json:"css" yaml:"css"`
	Enabled      bool      `json:"enabled" yaml:"enabled"`
	Readability  bool      `json:"readability" yaml:"readability"`
	ModifiedTime time.Time `json:"modifiedTime" yaml:"modified_time"`
}

// MergedCSS is the stylesheet to inject into a page together with the most
// specific pattern that contributed to it. URL is empty when nothing matched.
type MergedCSS struct {
	CSS         string `json:"css"`
	URL         string `json:"url"`
	Readability bool   `json:"readability"`
}
