// Package model defines the value types shared by the log conversion engine,
// the scan archive and the CLI.
package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Date is a device calendar date with a two-digit year.
//
// Day is allowed to fall outside the month: time-zone and date-line offsets
// are applied linearly and are not carried across month boundaries.
type Date struct {
	Month int `json:"month"`
	Day   int `json:"day"`
	Year  int `json:"year"`
}

// Epoch is the reference date a scan starts from.
var Epoch = Date{Month: 1, Day: 1, Year: 0}

// ParseDate parses a MM/DD/YY date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("01/02/06", strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{Month: int(t.Month()), Day: t.Day(), Year: t.Year() % 100}, nil
}

// IsZero reports whether no date has been established.
func (d Date) IsZero() bool { return d == Date{} }

// Before orders dates by year, month, then day.
func (d Date) Before(o Date) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

// AddDays moves the date by n calendar days, rolling months and years.
func (d Date) AddDays(n int) Date {
	t := time.Date(2000+d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
	return Date{Month: int(t.Month()), Day: t.Day(), Year: t.Year() % 100}
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return fmt.Sprintf("%02d/%02d/%02d", d.Month, d.Day, d.Year)
}

// TimeOfDay is an HH:MM clock reading. The zero value is "not yet known".
type TimeOfDay struct {
	Hour   int  `json:"hour"`
	Minute int  `json:"minute"`
	Known  bool `json:"known"`
}

// At returns a known time of day.
func At(hour, minute int) TimeOfDay {
	return TimeOfDay{Hour: hour, Minute: minute, Known: true}
}

// ParseTimeOfDay parses an HH:MM reading.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return At(t.Hour(), t.Minute()), nil
}

func (t TimeOfDay) String() string {
	if !t.Known {
		return ""
	}
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Stamp is a reconciled (date, time, seconds) triple.
type Stamp struct {
	Date Date      `json:"date"`
	Time TimeOfDay `json:"time"`
	// Seconds is the seconds.hundredths fragment exactly as logged.
	Seconds string `json:"seconds"`
}

// String renders the stamp the way both output artifacts print it:
// "MM/DD/YY HH:MM:SS.hh".
func (s Stamp) String() string {
	return s.Date.String() + " " + s.Time.String() + ":" + s.Seconds
}

// Hundredths parses the seconds fragment into hundredths of a second.
func (s Stamp) Hundredths() (int, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s.Seconds), 64)
	if err != nil || f < 0 {
		return 0, false
	}
	return int(f*100 + 0.5), true
}

// DayHundredths is hours*3600 + minutes*60 + seconds, in hundredths. It is
// only meaningful for ordering stamps that share a date.
func (s Stamp) DayHundredths() (int64, bool) {
	h, ok := s.Hundredths()
	if !ok || !s.Time.Known {
		return 0, false
	}
	return int64(s.Time.Hour*3600+s.Time.Minute*60)*100 + int64(h), true
}

// Clock converts the stamp to a wall-clock instant in UTC. Out-of-range days
// produced by linear offsets are normalized by time.Date.
func (s Stamp) Clock() time.Time {
	h, _ := s.Hundredths()
	t := time.Date(2000+s.Date.Year, time.Month(s.Date.Month), s.Date.Day, s.Time.Hour, s.Time.Minute, 0, 0, time.UTC)
	return t.Add(time.Duration(h) * 10 * time.Millisecond)
}

// ParseStamp parses "MM/DD/YY HH:MM" with an optional ":SS.hh" suffix.
func ParseStamp(s string) (Stamp, error) {
	s = strings.TrimSpace(s)
	datePart, rest, ok := strings.Cut(s, " ")
	if !ok {
		return Stamp{}, fmt.Errorf("parse stamp %q: want \"MM/DD/YY HH:MM\"", s)
	}
	d, err := ParseDate(datePart)
	if err != nil {
		return Stamp{}, err
	}
	rest = strings.TrimSpace(rest)
	secs := ""
	if len(rest) > 5 && rest[5] == ':' {
		secs = rest[6:]
		rest = rest[:5]
	}
	t, err := ParseTimeOfDay(rest)
	if err != nil {
		return Stamp{}, err
	}
	return Stamp{Date: d, Time: t, Seconds: secs}, nil
}

// Compare orders stamps by date, then time of day, then seconds.
func (s Stamp) Compare(o Stamp) int {
	switch {
	case s.Date.Before(o.Date):
		return -1
	case o.Date.Before(s.Date):
		return 1
	}
	a, okA := s.DayHundredths()
	b, okB := o.DayHundredths()
	if !okA || !okB {
		a = int64(s.Time.Hour*3600+s.Time.Minute*60) * 100
		b = int64(o.Time.Hour*3600+o.Time.Minute*60) * 100
	}
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// MarshalText renders the stamp as String does; an unset stamp is empty.
func (s Stamp) MarshalText() ([]byte, error) {
	if s == (Stamp{}) {
		return nil, nil
	}
	return []byte(s.String()), nil
}

// UnmarshalText parses the MarshalText form.
func (s *Stamp) UnmarshalText(b []byte) error {
	if len(strings.TrimSpace(string(b))) == 0 {
		*s = Stamp{}
		return nil
	}
	st, err := ParseStamp(string(b))
	if err != nil {
		return err
	}
	*s = st
	return nil
}
