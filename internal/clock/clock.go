// Package clock reconciles the controller's two incomplete timestamp record
// families into one non-decreasing (date, time, seconds) clock.
//
// DT records carry MM/DD/YY HH:MM plus seconds, TI records carry HH:MM only,
// and every other record carries a seconds.hundredths fragment. The device
// never logs a day rollover, so a DT at hour 00 that still reports the
// previous date is taken as a midnight crossing.
package clock

import (
	"fmt"

	"github.com/rcliao/heulog/internal/decoder"
	"github.com/rcliao/heulog/internal/model"
)

// Field offsets of the timestamp records.
const (
	dtBadLo, dtBadHi   = 3, 6
	dtDateLo, dtDateHi = 3, 11
	dtTimeLo, dtTimeHi = 12, 17
	dtSecsLo, dtSecsHi = 18, 23
	tiTimeLo, tiTimeHi = 3, 8

	badDateMarker = "BAD"
)

// Offsets are fixed corrections applied to every displayed stamp.
type Offsets struct {
	// Hours is a time-zone correction. On DT records it may push the date
	// one day forward or back.
	Hours int
	// Days is a date-line correction added to DT dates.
	Days int
}

// Reconciler owns the authoritative current timestamp of one scan.
type Reconciler struct {
	offsets Offsets

	// reference is the last reconciled device date, before offsets. It
	// never decreases.
	reference model.Date
	// fullHour is the device hour of the last DT record, -1 before any.
	fullHour int

	current model.Stamp
}

// New returns a reconciler starting at the epoch reference date.
func New(off Offsets) *Reconciler {
	return &Reconciler{offsets: off, reference: model.Epoch, fullHour: -1}
}

// Current is the reconciled stamp as it should be displayed.
func (r *Reconciler) Current() model.Stamp { return r.current }

// Reference is the last reconciled device date.
func (r *Reconciler) Reference() model.Date { return r.reference }

// FullStamp applies a DT record. It reports whether the record carried a
// seconds fragment. A malformed record leaves the clock untouched.
func (r *Reconciler) FullStamp(rec decoder.Record) (bool, error) {
	date := r.reference
	if rec.Field(dtBadLo, dtBadHi) != badDateMarker {
		d, err := model.ParseDate(rec.Field(dtDateLo, dtDateHi))
		if err != nil {
			return false, fmt.Errorf("DT date: %w", err)
		}
		date = d
	}
	tod, err := model.ParseTimeOfDay(rec.Field(dtTimeLo, dtTimeHi))
	if err != nil {
		return false, fmt.Errorf("DT time: %w", err)
	}

	// Hour 00 still on the reference date means the day rolled over. Only
	// the first DT of the hour can be the crossing.
	if tod.Hour == 0 && date == r.reference && r.fullHour != 0 {
		date = date.AddDays(1)
	}
	if date.Before(r.reference) {
		date = r.reference
	}
	r.reference = date
	r.fullHour = tod.Hour

	r.current.Date, r.current.Time = r.shift(date, tod)
	secs := rec.Field(dtSecsLo, dtSecsHi)
	if secs == "" {
		return false, nil
	}
	r.current.Seconds = secs
	return true, nil
}

// TimeOnly applies a TI record. The date is left alone: a TI shares the date
// of the last DT, and its hour offset wraps without touching the day.
func (r *Reconciler) TimeOnly(rec decoder.Record) error {
	tod, err := model.ParseTimeOfDay(rec.Field(tiTimeLo, tiTimeHi))
	if err != nil {
		return fmt.Errorf("TI time: %w", err)
	}
	if r.offsets.Hours != 0 {
		tod.Hour = ((tod.Hour+r.offsets.Hours)%24 + 24) % 24
	}
	r.current.Time = tod
	return nil
}

// Seconds applies the fragment carried by a non-timestamp record and reports
// whether there was one.
func (r *Reconciler) Seconds(fragment string) bool {
	if fragment == "" {
		return false
	}
	r.current.Seconds = fragment
	return true
}

// shift applies the configured offsets to a reconciled device date and time.
// Day arithmetic is linear: the day may leave the month's range.
func (r *Reconciler) shift(d model.Date, tod model.TimeOfDay) (model.Date, model.TimeOfDay) {
	if r.offsets.Hours != 0 {
		tod.Hour += r.offsets.Hours
		switch {
		case tod.Hour > 23:
			tod.Hour -= 24
			d.Day++
		case tod.Hour < 0:
			tod.Hour += 24
			d.Day--
		}
	}
	d.Day += r.offsets.Days
	return d, tod
}
