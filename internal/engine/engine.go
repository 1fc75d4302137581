// Package engine drives one conversion of a pump controller log: it feeds
// every record through the timestamp reconciler and the telemetry
// accumulator, and writes the transcript and tabular artifacts.
package engine

import (
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/rcliao/heulog/internal/clock"
	"github.com/rcliao/heulog/internal/decoder"
	"github.com/rcliao/heulog/internal/model"
	"github.com/rcliao/heulog/internal/tabular"
	"github.com/rcliao/heulog/internal/telemetry"
	"github.com/rcliao/heulog/internal/transcript"
)

// Config bounds and tunes one conversion.
type Config struct {
	// StartLine is the number of input lines skipped before converting.
	StartLine int
	// EndLine is the input line conversion stops at; 0 means no ceiling.
	// An EndLine at or before StartLine converts nothing.
	EndLine        int
	Mute           bool
	TimeZoneOffset int
	DateLineOffset int
	// LogVersion selects the TM record layout (1 or 2).
	LogVersion int
}

// Outputs are the artifact writers. A nil writer disables that artifact.
type Outputs struct {
	Transcript io.Writer
	Tabular    io.Writer
	// Echo receives a console copy of transcript lines and diagnostics.
	Echo io.Writer
}

// Hooks observe a conversion as it runs. Any of them may be nil.
type Hooks struct {
	OnEvent      func(model.Event)
	OnRow        func(model.Row)
	OnDiagnostic func(model.Diagnostic)
}

// Source yields raw log lines. *bufio.Scanner satisfies it.
type Source interface {
	Scan() bool
	Text() string
	Err() error
}

// Engine converts logs. Its state lives in one run per call, so an Engine
// may be reused for several scans, one at a time.
type Engine struct {
	cfg     Config
	out     Outputs
	hooks   Hooks
	log     *zap.Logger
	metrics *Metrics
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithHooks installs observation hooks.
func WithHooks(h Hooks) Option {
	return func(e *Engine) { e.hooks = h }
}

// WithMetrics counts records, rows and diagnostics into m.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// New returns an engine writing to out.
func New(cfg Config, out Outputs, opts ...Option) *Engine {
	e := &Engine{cfg: cfg, out: out, log: zap.NewNop()}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Run converts src from the start line to the end line or end of input.
// Bad records become diagnostics and never stop the scan; a read error on
// src ends it like end of input. Only failures to write an artifact are
// returned.
func (e *Engine) Run(src Source) (model.Summary, error) {
	r := e.newRun()
	e.log.Info("scan start",
		zap.Int("start_line", e.cfg.StartLine),
		zap.Int("end_line", e.cfg.EndLine),
		zap.Int("tz_offset", e.cfg.TimeZoneOffset),
		zap.Int("date_offset", e.cfg.DateLineOffset),
		zap.Int("log_version", e.cfg.LogVersion))

	if err := r.tab.WriteHeader(); err != nil {
		return r.sum, err
	}

	line := 0
	for line < e.cfg.StartLine && src.Scan() {
		line++
	}
	if line == e.cfg.StartLine {
		for e.cfg.EndLine <= 0 || line < e.cfg.EndLine {
			if !src.Scan() {
				break
			}
			line++
			if err := r.step(decoder.Decode(line, src.Text())); err != nil {
				return r.sum, err
			}
		}
	}
	if err := src.Err(); err != nil {
		e.log.Warn("read log, treating as end of input", zap.Int("line", line), zap.Error(err))
	}

	r.sum.Lines = line
	r.sum.DuplicateRows = r.tab.Duplicates()
	r.sum.Rows = r.tab.Rows()
	e.metrics.scanned(line)

	if err := r.tw.Flush(); err != nil {
		return r.sum, err
	}
	if err := r.tab.Flush(); err != nil {
		return r.sum, err
	}

	e.log.Info("scan done",
		zap.Stringer("first", r.sum.First),
		zap.Stringer("last", r.sum.Last),
		zap.Int("lines", r.sum.Lines),
		zap.Int("records", r.sum.Records),
		zap.Int("rows", r.sum.Rows),
		zap.Int("duplicate_rows", r.sum.DuplicateRows),
		zap.Int("unrecognized", r.sum.Unrecognized),
		zap.Int("malformed", r.sum.Malformed))
	return r.sum, nil
}

// run is the state of one scan.
type run struct {
	e     *Engine
	clock *clock.Reconciler
	acc   *telemetry.Accumulator
	tw    *transcript.Writer
	tab   *tabular.Emitter

	// dated is set once a DT record established a date; rows wait for it.
	dated bool
	sum   model.Summary
}

func (e *Engine) newRun() *run {
	onRow := func(row model.Row) {
		e.metrics.row(row.Duplicate)
		if e.hooks.OnRow != nil {
			e.hooks.OnRow(row)
		}
	}
	return &run{
		e:     e,
		clock: clock.New(clock.Offsets{Hours: e.cfg.TimeZoneOffset, Days: e.cfg.DateLineOffset}),
		acc:   telemetry.New(telemetry.Options{LogVersion: e.cfg.LogVersion}),
		tw:    transcript.New(e.out.Transcript, transcript.Options{Mute: e.cfg.Mute, Echo: e.out.Echo}),
		tab:   tabular.New(e.out.Tabular, onRow),
	}
}

func (r *run) step(rec decoder.Record) error {
	if rec.Blank() {
		return nil
	}
	r.sum.Records++
	r.e.metrics.record(rec.Name())

	switch rec.Tag {
	case decoder.TagUnknown, decoder.TagDT, decoder.TagTI:
		r.acc.Skip()
	}

	switch rec.Tag {
	case decoder.TagUnknown:
		return r.diagnose(rec, model.DiagUnrecognized, "Unrecognizable tag: "+rec.Raw)

	case decoder.TagDT:
		gotSecs, err := r.clock.FullStamp(rec)
		if err != nil {
			return r.diagnose(rec, model.DiagMalformed, err.Error())
		}
		r.dated = true
		r.track()
		if gotSecs {
			return r.row()
		}
		return nil

	case decoder.TagTI:
		if err := r.clock.TimeOnly(rec); err != nil {
			return r.diagnose(rec, model.DiagMalformed, err.Error())
		}
		return nil
	}

	res, err := r.acc.Apply(rec)
	if err != nil {
		return r.diagnose(rec, model.DiagMalformed, err.Error())
	}
	newSecs := r.clock.Seconds(rec.Seconds())
	r.track()

	for _, l := range res.Lines {
		ev := model.Event{Line: rec.Line, Stamp: r.clock.Current(), Text: l.Text, Break: l.Break}
		if err := r.tw.Write(ev); err != nil {
			return err
		}
		r.sum.Events++
		if r.e.hooks.OnEvent != nil {
			r.e.hooks.OnEvent(ev)
		}
	}
	if res.Eligible && newSecs {
		return r.row()
	}
	return nil
}

func (r *run) row() error {
	if !r.dated {
		return nil
	}
	return r.tab.Emit(r.clock.Current(), r.acc.State())
}

// track records the first and last complete stamps of the scan.
func (r *run) track() {
	cur := r.clock.Current()
	if !r.dated || cur.Seconds == "" || !cur.Time.Known {
		return
	}
	if r.sum.First == (model.Stamp{}) {
		r.sum.First = cur
	}
	r.sum.Last = cur
}

func (r *run) diagnose(rec decoder.Record, kind model.DiagnosticKind, text string) error {
	d := model.Diagnostic{Line: rec.Line, Tag: rec.Name(), Kind: kind, Text: text}
	switch kind {
	case model.DiagUnrecognized:
		r.sum.Unrecognized++
	case model.DiagMalformed:
		r.sum.Malformed++
	}
	r.e.metrics.diagnostic(string(kind))
	r.e.log.Warn("skip record", zap.Int("line", d.Line), zap.String("tag", d.Tag), zap.String("reason", d.Text))
	if r.e.hooks.OnDiagnostic != nil {
		r.e.hooks.OnDiagnostic(d)
	}
	if r.e.out.Echo != nil && !r.e.cfg.Mute {
		if _, err := fmt.Fprintf(r.e.out.Echo, "Line %d %s\n", d.Line, d.Text); err != nil {
			return fmt.Errorf("echo diagnostic: %w", err)
		}
	}
	return nil
}
