// Package window maps a wall-clock window onto the input lines of a log, so
// a partial conversion can start and stop at the right records.
package window

import (
	"errors"
	"fmt"

	"github.com/rcliao/heulog/internal/clock"
	"github.com/rcliao/heulog/internal/decoder"
	"github.com/rcliao/heulog/internal/model"
)

// ErrNotFound is returned when the log never reaches the window start.
var ErrNotFound = errors.New("window start not in log")

// Source yields raw log lines.
type Source interface {
	Scan() bool
	Text() string
	Err() error
}

// Options match the offsets the conversion will use, so stamps compare the
// way they will be displayed.
type Options struct {
	TimeZoneOffset int
	DateLineOffset int
}

// Window is a line range ready for a conversion's StartLine and EndLine.
type Window struct {
	// StartLine is the number of lines to skip. The first converted line is
	// the last DT record at or before the window start, so the conversion
	// opens with a full date.
	StartLine int
	// EndLine is the last line inside the window.
	EndLine int
	// First and Last are the first and last stamps seen inside the window.
	First, Last model.Stamp
}

// Locate scans src for the lines covering [from, to]. Stamps without
// seconds compare at minute resolution.
func Locate(src Source, from, to model.Stamp, opts Options) (Window, error) {
	if to.Compare(from) < 0 {
		return Window{}, fmt.Errorf("window ends %s before it starts %s", to, from)
	}
	rc := clock.New(clock.Offsets{Hours: opts.TimeZoneOffset, Days: opts.DateLineOffset})

	var w Window
	lastDT := 0
	started := false
	line := 0
	for src.Scan() {
		line++
		rec := decoder.Decode(line, src.Text())
		switch rec.Tag {
		case decoder.TagDT:
			if _, err := rc.FullStamp(rec); err != nil {
				continue
			}
		case decoder.TagTI:
			if err := rc.TimeOnly(rec); err != nil {
				continue
			}
		default:
			continue
		}

		cur := rc.Current()
		if !started {
			if rec.Tag == decoder.TagDT && cur.Compare(from) <= 0 {
				lastDT = line
			}
			if cur.Compare(from) < 0 {
				continue
			}
			started = true
			if lastDT == 0 {
				lastDT = line
			}
			w.StartLine = lastDT - 1
			w.First = cur
		}
		if cur.Compare(to) > 0 {
			w.EndLine = line - 1
			return w, nil
		}
		w.Last = cur
	}
	if err := src.Err(); err != nil {
		return Window{}, fmt.Errorf("locate: %w", err)
	}
	if !started {
		return Window{}, fmt.Errorf("%w: %s", ErrNotFound, from)
	}
	w.EndLine = line
	return w, nil
}
