package display

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/mattn/go-isatty"

	"live-transcriber/internal/models"
)

const (
	eraseLine = "\r\033[K"
	faint     = "\033[2m"
	reset     = "\033[0m"
)

// Console renders the transcript on a terminal. On a TTY the transcript line is
// redrawn in place; otherwise every change is printed on its own line.
type Console struct {
	mu    sync.Mutex
	w     io.Writer
	tty   bool
	state models.DisplayState
}

// NewConsole creates a console sink for f, detecting whether it is a terminal.
func NewConsole(f *os.File) *Console {
	fd := f.Fd()
	return NewConsoleWriter(f, isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd))
}

// NewConsoleWriter creates a console sink for an arbitrary writer.
func NewConsoleWriter(w io.Writer, tty bool) *Console {
	return &Console{w: w, tty: tty}
}

// Publish implements Sink.
func (c *Console) Publish(u models.DisplayUpdate) {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev := c.state
	c.state.Apply(u)

	if !c.tty {
		switch u.EventType {
		case models.EventDisplay:
			if u.Text != prev.Text {
				fmt.Fprintln(c.w, u.Text)
			}
		case models.EventStatus:
			fmt.Fprintln(c.w, u.Status)
		}
		return
	}

	switch u.EventType {
	case models.EventStatus:
		fmt.Fprint(c.w, eraseLine+u.Status+"\n")
		c.redraw()
	case models.EventDisplay, models.EventClear, models.EventPlaceholder:
		c.redraw()
	}
}

// redraw rewrites the transcript line. Callers hold c.mu.
func (c *Console) redraw() {
	if c.state.Text == "" {
		fmt.Fprint(c.w, eraseLine+faint+c.state.Placeholder+reset)
		return
	}
	fmt.Fprint(c.w, eraseLine+c.state.Text)
}
