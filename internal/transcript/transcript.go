// Package transcript writes the human-readable event log of a conversion.
package transcript

import (
	"bufio"
	"fmt"
	"io"

	"github.com/rcliao/heulog/internal/model"
)

// textWidth is the column the stamp starts in, matching the layout the
// controller's own tools print. Longer text pushes the stamp right.
const textWidth = 27

// Options control what reaches the outputs.
type Options struct {
	// Mute suppresses every line, on both the transcript and the echo.
	Mute bool
	// Echo, when set, receives a copy of every line (console echo).
	Echo io.Writer
}

// Writer appends events to a transcript. It buffers; call Flush when done.
type Writer struct {
	out   *bufio.Writer
	opts  Options
	lines int
}

// New returns a writer over w. A nil w disables the transcript file while
// keeping the echo.
func New(w io.Writer, opts Options) *Writer {
	t := &Writer{opts: opts}
	if w != nil {
		t.out = bufio.NewWriter(w)
	}
	return t
}

// Format renders one event as a transcript line, without the blank
// separator line a break event is preceded by.
func Format(ev model.Event) string {
	return fmt.Sprintf("%-*s %s\n", textWidth, ev.Text, ev.Stamp)
}

// Write appends ev. Events with empty text are dropped.
func (t *Writer) Write(ev model.Event) error {
	if t.opts.Mute || ev.Text == "" {
		return nil
	}
	line := Format(ev)
	if ev.Break {
		line = "\n" + line
	}
	if t.out != nil {
		if _, err := t.out.WriteString(line); err != nil {
			return fmt.Errorf("write transcript: %w", err)
		}
	}
	if t.opts.Echo != nil {
		if _, err := io.WriteString(t.opts.Echo, line); err != nil {
			return fmt.Errorf("echo transcript: %w", err)
		}
	}
	t.lines++
	return nil
}

// Lines is the number of events written so far.
func (t *Writer) Lines() int { return t.lines }

// Flush writes any buffered lines to the underlying writer.
func (t *Writer) Flush() error {
	if t.out == nil {
		return nil
	}
	if err := t.out.Flush(); err != nil {
		return fmt.Errorf("flush transcript: %w", err)
	}
	return nil
}
