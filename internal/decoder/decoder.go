// Package decoder classifies fixed-column pump controller log records.
//
// A record is one text line whose first two characters are its tag. The rest
// of the line is positional: every tag has its own byte offsets, fixed by the
// controller firmware, and there is no delimiter to split on. Decode only
// classifies; consumers slice their fields lazily with Field, Int and Float.
package decoder

import (
	"fmt"
	"strconv"
	"strings"
)

// Tag is the two-character record discriminator.
type Tag uint8

const (
	TagUnknown Tag = iota
	TagDT          // full date + time stamp
	TagTI          // time-only stamp
	TagPS          // packed pump state
	TagTH          // throttle
	TagTM          // inlet/outlet temperature
	TagFL          // flow rate
	TagPR          // log read
	TagIN          // interlock
	TagRE          // restart
	TagPD          // power going down
	TagCL          // log closed
	TagLE          // leak
	TagMF          // minimum flow limit
	TagMT          // maximum temperature limit
	TagVE          // hardware/software version
	TagDW          // dissipated power (redundant, ignored)
	TagIF          // interface commands and queries
	TagTU          // screen touches
	TagSV          // supply voltages
	TagCT          // CPU temperature
	TagDB          // debug counters
	TagWD          // watchdog reboot
)

var tagNames = [...]string{
	TagUnknown: "",
	TagDT:      "DT",
	TagTI:      "TI",
	TagPS:      "PS",
	TagTH:      "TH",
	TagTM:      "TM",
	TagFL:      "FL",
	TagPR:      "PR",
	TagIN:      "IN",
	TagRE:      "RE",
	TagPD:      "PD",
	TagCL:      "CL",
	TagLE:      "LE",
	TagMF:      "MF",
	TagMT:      "MT",
	TagVE:      "VE",
	TagDW:      "DW",
	TagIF:      "IF",
	TagTU:      "TU",
	TagSV:      "SV",
	TagCT:      "CT",
	TagDB:      "DB",
	TagWD:      "WD",
}

var byName = func() map[string]Tag {
	m := make(map[string]Tag, len(tagNames))
	for t, name := range tagNames {
		if name != "" {
			m[name] = Tag(t)
		}
	}
	return m
}()

// Tags returns every known tag in declaration order.
func Tags() []Tag {
	out := make([]Tag, 0, len(tagNames)-1)
	for t := TagDT; int(t) < len(tagNames); t++ {
		out = append(out, t)
	}
	return out
}

// Lookup maps a two-character name to its tag, or TagUnknown.
func Lookup(name string) Tag {
	return byName[name]
}

func (t Tag) String() string {
	if int(t) < len(tagNames) && t != TagUnknown {
		return tagNames[t]
	}
	return "??"
}

// IsStamp reports whether the tag is one of the two timestamp families.
func (t Tag) IsStamp() bool { return t == TagDT || t == TagTI }

// Offsets shared by every non-timestamp record: "XX:SS.hh payload".
const (
	SecondsLo = 3
	SecondsHi = 8
	PayloadLo = 9
)

// Record is one raw log line and its tag.
type Record struct {
	Line int
	Tag  Tag
	Raw  string
}

// Decode classifies a raw line. Line terminators are stripped; the line is
// otherwise returned unchanged.
func Decode(line int, raw string) Record {
	raw = strings.TrimRight(raw, "\r\n")
	rec := Record{Line: line, Raw: raw}
	if len(raw) >= 2 {
		rec.Tag = Lookup(raw[:2])
	}
	return rec
}

// Blank reports an empty or whitespace-only line. Blank lines carry nothing
// and are never reported as unrecognized.
func (r Record) Blank() bool {
	return strings.TrimSpace(r.Raw) == ""
}

// Name is the raw two-character tag text, even for unknown tags.
func (r Record) Name() string {
	if len(r.Raw) < 2 {
		return r.Raw
	}
	return r.Raw[:2]
}

// Field slices [lo, hi) out of the line, clamped to its length, so a short
// line yields a short or empty field rather than a panic.
func (r Record) Field(lo, hi int) string {
	n := len(r.Raw)
	if lo > n {
		lo = n
	}
	if hi > n {
		hi = n
	}
	if lo >= hi {
		return ""
	}
	return r.Raw[lo:hi]
}

// Seconds is the seconds.hundredths fragment carried by non-timestamp records.
func (r Record) Seconds() string {
	return r.Field(SecondsLo, SecondsHi)
}

// FieldError reports a field that does not hold the expected number.
type FieldError struct {
	Tag    Tag
	Lo, Hi int
	Value  string
	Err    error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s field [%d:%d] %q: %v", e.Tag, e.Lo, e.Hi, e.Value, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

// Int parses [lo, hi) as a base-10 integer, ignoring surrounding spaces.
func (r Record) Int(lo, hi int) (int64, error) {
	v := r.Field(lo, hi)
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return 0, &FieldError{Tag: r.Tag, Lo: lo, Hi: hi, Value: v, Err: err}
	}
	return n, nil
}

// Float parses [lo, hi) as a decimal number, ignoring surrounding spaces.
func (r Record) Float(lo, hi int) (float64, error) {
	v := r.Field(lo, hi)
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, &FieldError{Tag: r.Tag, Lo: lo, Hi: hi, Value: v, Err: err}
	}
	return f, nil
}
