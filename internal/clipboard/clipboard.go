// Package clipboard copies the transcript to the system clipboard.
package clipboard

import (
	"errors"
	"fmt"

	"github.com/atotto/clipboard"
)

// ErrUnsupported is returned when no clipboard utility is available.
var ErrUnsupported = errors.New("clipboard unsupported on this system")

// Clipboard receives text on a copy action.
type Clipboard interface {
	WriteAll(text string) error
}

// System writes to the OS clipboard (pbcopy, xclip/xsel/wl-copy, or the
// Windows API, depending on platform).
type System struct{}

// NewSystem returns the system clipboard.
func NewSystem() System {
	return System{}
}

// WriteAll implements Clipboard.
func (System) WriteAll(text string) error {
	if clipboard.Unsupported {
		return ErrUnsupported
	}
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("write clipboard: %w", err)
	}
	return nil
}

// Memory is an in-process clipboard used when the system clipboard is
// unavailable (headless servers).
type Memory struct {
	text string
}

// WriteAll implements Clipboard.
func (m *Memory) WriteAll(text string) error {
	m.text = text
	return nil
}

// Text returns the last copied text.
func (m *Memory) Text() string {
	return m.text
}
