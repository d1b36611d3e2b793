// Package clipboard handles copyToClipboard requests.
package clipboard

import (
	"fmt"

	"github.com/atotto/clipboard"
	"github.com/entrhq/stylebot/pkg/logging"
)

var debugLog = logging.NewLogger("clipboard")

// WriteFunc writes text to a clipboard.
type WriteFunc func(text string) error

// Handler copies text to the system clipboard.
type Handler struct {
	write WriteFunc
}

// NewHandler creates a handler that writes to the system clipboard. On
// hosts without a clipboard utility every Copy fails.
func NewHandler() *Handler {
	return &Handler{write: clipboard.WriteAll}
}

// NewHandlerWithWriter creates a handler using write instead of the system
// clipboard.
func NewHandlerWithWriter(write WriteFunc) *Handler {
	return &Handler{write: write}
}

// Copy writes text to the clipboard.
func (h *Handler) Copy(text string) error {
	if err := h.write(text); err != nil {
		return fmt.Errorf("failed to write clipboard: %w", err)
	}
	debugLog.Debugf("Copied %d bytes to clipboard", len(text))
	return nil
}
