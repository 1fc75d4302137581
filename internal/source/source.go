// Package source provides the raw-record sources a conversion reads from:
// log files, in-memory lines and dumps fetched from a controller.
package source

import (
	"bufio"
	"io"
)

// maxLine bounds a single log line. Real records are under 40 bytes; the
// limit only matters for garbage input.
const maxLine = 1 << 20

// Lines returns a record source over r. Line terminators, \r\n included,
// are stripped.
func Lines(r io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)
	return sc
}

// Slice is a record source over lines already in memory.
type Slice struct {
	lines []string
	next  int
}

// NewSlice returns a source yielding lines in order.
func NewSlice(lines []string) *Slice {
	return &Slice{lines: lines}
}

func (s *Slice) Scan() bool {
	if s.next >= len(s.lines) {
		return false
	}
	s.next++
	return true
}

func (s *Slice) Text() string { return s.lines[s.next-1] }

func (s *Slice) Err() error { return nil }
