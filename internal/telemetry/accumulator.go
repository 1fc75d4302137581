// Package telemetry keeps the shadow telemetry state of one scan and decides
// which records deserve a transcript line.
//
// Pump-state sub-fields are edge-triggered: a line is produced only when the
// decoded value differs from the last one seen. Everything else is a
// discrete event or a running counter and produces a line every time.
package telemetry

import (
	"errors"
	"fmt"

	"github.com/rcliao/heulog/internal/decoder"
	"github.com/rcliao/heulog/internal/model"
)

// fluidSpecificHeat converts flow (l/min) times temperature drop (C) to watts.
const fluidSpecificHeat = 1796.0

// ErrUnhandledTag is returned for tags the accumulator does not decode:
// timestamp records and unknown tags.
var ErrUnhandledTag = errors.New("unhandled tag")

// Options configure decoding.
type Options struct {
	// LogVersion selects the TM field layout: 1 for the early firmware's
	// nn.n temperatures, 2 (default) for nn.nn.
	LogVersion int
}

// Line is one piece of display text produced by a record.
type Line struct {
	Text string
	// Break asks for a blank line before the text.
	Break bool
}

// Result is what one record produced.
type Result struct {
	Lines []Line
	// Eligible reports that the record produced display text, which makes
	// it a candidate for a tabular row.
	Eligible bool
}

func emit(text string) Result {
	return Result{Lines: []Line{{Text: text}}, Eligible: true}
}

const unknown = -1

// shadows hold the last emitted value of every edge-triggered field.
type shadows struct {
	on, hot, selection, shutdown int
	p1High, p2High               int
	maxIp1, maxIp2               int
}

func (s *shadows) forget() {
	*s = shadows{unknown, unknown, unknown, unknown, unknown, unknown, unknown, unknown}
}

// Accumulator owns the telemetry state of one scan. It is not safe for
// concurrent use.
type Accumulator struct {
	opts   Options
	state  model.Snapshot
	shadow shadows

	// records counts every record of the scan, decoded here or not.
	records      int
	first        bool
	wasPowerdown bool
}

// New returns an accumulator at the default state. Shadows start equal to
// the default state, so only real changes are reported until the first
// restart record forgets them.
func New(opts Options) *Accumulator {
	if opts.LogVersion == 0 {
		opts.LogVersion = 2
	}
	return &Accumulator{opts: opts, state: model.DefaultSnapshot()}
}

// State returns a copy of the current telemetry state.
func (a *Accumulator) State() model.Snapshot { return a.state }

// commit mutates the state once all of a record's fields have parsed.
type commit func() Result

type handler func(a *Accumulator, rec decoder.Record) (commit, error)

var handlers = map[decoder.Tag]handler{
	decoder.TagPS: (*Accumulator).pumpState,
	decoder.TagTH: (*Accumulator).throttle,
	decoder.TagTM: (*Accumulator).temperature,
	decoder.TagFL: (*Accumulator).flow,
	decoder.TagPR: (*Accumulator).logRead,
	decoder.TagIN: (*Accumulator).interlock,
	decoder.TagRE: (*Accumulator).restart,
	decoder.TagPD: (*Accumulator).powerDown,
	decoder.TagCL: (*Accumulator).logClosed,
	decoder.TagLE: (*Accumulator).leak,
	decoder.TagMF: (*Accumulator).minFlow,
	decoder.TagMT: (*Accumulator).maxTemp,
	decoder.TagVE: (*Accumulator).version,
	decoder.TagDW: (*Accumulator).dissipated,
	decoder.TagIF: (*Accumulator).iface,
	decoder.TagTU: (*Accumulator).touches,
	decoder.TagSV: (*Accumulator).supply,
	decoder.TagCT: (*Accumulator).cpuTemp,
	decoder.TagDB: (*Accumulator).debug,
	decoder.TagWD: (*Accumulator).watchdog,
}

// Apply decodes one non-timestamp record into the state. A record whose
// fields do not parse returns an error and leaves the state untouched.
func (a *Accumulator) Apply(rec decoder.Record) (Result, error) {
	a.records++
	h, ok := handlers[rec.Tag]
	if !ok {
		return Result{}, fmt.Errorf("%w %q", ErrUnhandledTag, rec.Name())
	}
	c, err := h(a, rec)
	if err != nil {
		return Result{}, err
	}
	a.begin()
	return c(), nil
}

// Skip counts a record of the scan that is not applied here, such as a DT
// or TI stamp or an unrecognized tag, so a later restart is not taken for
// the opening record.
func (a *Accumulator) Skip() { a.records++ }

// begin resets the one-shot flags, which only hold for the record that sets
// them. The interlock flag is a latch and is left alone.
func (a *Accumulator) begin() {
	a.first = a.records == 1
	a.wasPowerdown = a.state.Powerdown

	a.state.Restart = false
	a.state.Cold = false
	a.state.Powerdown = false
	a.state.LogClosed = false
	a.state.Leak = false
}

func (a *Accumulator) pumpState(rec decoder.Record) (commit, error) {
	v, err := rec.Int(decoder.PayloadLo, 18)
	if err != nil {
		return nil, err
	}
	if v < 0 {
		return nil, &decoder.FieldError{Tag: rec.Tag, Lo: decoder.PayloadLo, Hi: 18, Value: rec.Field(decoder.PayloadLo, 18), Err: errors.New("negative pump state")}
	}
	ps := DecodePumpState(uint32(v))
	return func() Result {
		s := &a.state
		s.PumpsOn = ps.On
		s.PumpsHot = ps.HighTemp
		s.PumpSelection = ps.Selection
		s.PumpsShutdown = ps.Shutdown
		s.P1CurrentHigh = ps.P1CurrentHigh
		s.P2CurrentHigh = ps.P2CurrentHigh
		s.MaxIp1 = ps.MaxIp1
		s.MaxIp2 = ps.MaxIp2

		var lines []Line
		edge := func(shadow *int, v int, text string) {
			if *shadow != v {
				*shadow = v
				lines = append(lines, Line{Text: text})
			}
		}
		edge(&a.shadow.on, ps.On, pick(ps.On, "Pumps On", "Pumps Off"))
		edge(&a.shadow.hot, ps.HighTemp, pick(ps.HighTemp, "PUMPS HOT, shut down!", "Pumps not hot."))
		edge(&a.shadow.selection, ps.Selection, selectionText[ps.Selection])
		edge(&a.shadow.shutdown, ps.Shutdown, pick(ps.Shutdown, "Pumps shutting down", "Pumps running"))
		edge(&a.shadow.p1High, ps.P1CurrentHigh, pick(ps.P1CurrentHigh, "Pump 1 CURRENT HIGH", "Pump 1 current normal."))
		edge(&a.shadow.p2High, ps.P2CurrentHigh, pick(ps.P2CurrentHigh, "Pump 2 CURRENT HIGH", "Pump 2 current normal."))
		edge(&a.shadow.maxIp1, ps.MaxIp1, fmt.Sprintf("Max pump 1 current %4.1f A", float64(ps.MaxIp1)/10))
		edge(&a.shadow.maxIp2, ps.MaxIp2, fmt.Sprintf("Max pump 2 current %4.1f A", float64(ps.MaxIp2)/10))
		return Result{Lines: lines, Eligible: len(lines) > 0}
	}, nil
}

var selectionText = [4]string{
	SelectionNone:  "BOTH PUMPS DISABLED!?",
	SelectionPump1: "P.1 Enabled, P.2 DISABLED",
	SelectionPump2: "P.1 DISABLED, P.2 Enabled",
	SelectionBoth:  "Both pumps enabled.",
}

func pick(bit int, on, off string) string {
	if bit == 1 {
		return on
	}
	return off
}

func (a *Accumulator) throttle(rec decoder.Record) (commit, error) {
	f, err := rec.Float(decoder.PayloadLo, 15)
	if err != nil {
		return nil, err
	}
	return func() Result {
		a.state.Throttle = f
		return emit(fmt.Sprintf("Throttle: %5.3f", f))
	}, nil
}

func (a *Accumulator) temperature(rec decoder.Record) (commit, error) {
	inLo, inHi, outHi := decoder.PayloadLo, 14, 20
	format := "Inlet:%5.2fC, Outlet:%5.2fC"
	if a.opts.LogVersion == 1 {
		inHi, outHi = 13, 18
		format = "Inlet:%4.1f C, Outlet:%4.1f C"
	}
	in, err := rec.Float(inLo, inHi)
	if err != nil {
		return nil, err
	}
	out, err := rec.Float(inHi, outHi)
	if err != nil {
		return nil, err
	}
	return func() Result {
		a.state.InletTemp, a.state.OutletTemp = in, out
		a.dissipation()
		return emit(fmt.Sprintf(format, in, out))
	}, nil
}

func (a *Accumulator) flow(rec decoder.Record) (commit, error) {
	f, err := rec.Float(decoder.PayloadLo, 14)
	if err != nil {
		return nil, err
	}
	return func() Result {
		a.state.Flow = f
		a.dissipation()
		return emit(fmt.Sprintf("Flow rate: %5.2f l/min", f))
	}, nil
}

// dissipation derives the heat load from the latest flow and temperatures.
func (a *Accumulator) dissipation() {
	s := &a.state
	s.DissWatts = int(s.Flow / 60 * (s.InletTemp - s.OutletTemp) * fluidSpecificHeat)
}

func (a *Accumulator) logRead(rec decoder.Record) (commit, error) {
	return func() Result { return emit("Log File Read") }, nil
}

func (a *Accumulator) interlock(rec decoder.Record) (commit, error) {
	n, err := rec.Int(decoder.PayloadLo, 10)
	if err != nil {
		return nil, err
	}
	return func() Result {
		a.state.InterlockOn = n != 0
		if a.state.InterlockOn {
			return emit("Interlock On")
		}
		return emit("Interlock Off")
	}, nil
}

func (a *Accumulator) restart(rec decoder.Record) (commit, error) {
	cold := rec.Field(decoder.PayloadLo, 10) == "C"
	return func() Result {
		s := &a.state
		s.Restart = true
		s.Cold = cold
		// Anything but the opening record should follow an orderly
		// power-down; a watchdog record may still explain it.
		if !a.first {
			s.MysteryRestart = !a.wasPowerdown
		}
		s.WDTReboot = false
		a.shadow.forget()

		text := "WARM RESTART"
		if cold {
			text = "COLD RESTART"
		}
		return Result{Lines: []Line{{Text: text, Break: true}}, Eligible: true}
	}, nil
}

func (a *Accumulator) powerDown(rec decoder.Record) (commit, error) {
	return func() Result {
		a.state.Powerdown = true
		return emit("POWER GOING DOWN")
	}, nil
}

func (a *Accumulator) logClosed(rec decoder.Record) (commit, error) {
	return func() Result {
		// Closing the log is an orderly shutdown too.
		a.state.LogClosed = true
		a.state.Powerdown = true
		return emit("LOG CLOSED.")
	}, nil
}

func (a *Accumulator) leak(rec decoder.Record) (commit, error) {
	n, err := rec.Int(decoder.PayloadLo, 10)
	if err != nil {
		return nil, err
	}
	return func() Result {
		a.state.Leak = n != 0
		if a.state.Leak {
			return emit("LEAK detected")
		}
		return emit("No leak")
	}, nil
}

func (a *Accumulator) minFlow(rec decoder.Record) (commit, error) {
	f, err := rec.Float(decoder.PayloadLo, 14)
	if err != nil {
		return nil, err
	}
	return func() Result {
		a.state.MinFlow = f
		return emit(fmt.Sprintf("Min flow lim set:%5.2f l/m", f))
	}, nil
}

func (a *Accumulator) maxTemp(rec decoder.Record) (commit, error) {
	n, err := rec.Int(decoder.PayloadLo, 11)
	if err != nil {
		return nil, err
	}
	return func() Result {
		a.state.MaxTemp = int(n)
		return emit(fmt.Sprintf("Max temp limit set:%2d C", n))
	}, nil
}

func (a *Accumulator) version(rec decoder.Record) (commit, error) {
	hw := rec.Field(decoder.PayloadLo, 11)
	sw := rec.Field(12, 14)
	return func() Result {
		a.state.HardwareVersion, a.state.SoftwareVersion = hw, sw
		res := Result{Eligible: true}
		if a.state.MysteryRestart {
			res.Lines = append(res.Lines, Line{Text: "Restart without Shutdown!"})
		}
		res.Lines = append(res.Lines, Line{Text: fmt.Sprintf("Hardware V%s, Software V%s", hw, sw)})
		return res
	}, nil
}

// dissipated ignores the logged power: it lags the flow and temperature
// records it is computed from.
func (a *Accumulator) dissipated(rec decoder.Record) (commit, error) {
	return func() Result { return Result{} }, nil
}

func (a *Accumulator) iface(rec decoder.Record) (commit, error) {
	cmds, err := rec.Int(decoder.PayloadLo, 20)
	if err != nil {
		return nil, err
	}
	qrys, err := rec.Int(20, 31)
	if err != nil {
		return nil, err
	}
	return func() Result {
		a.state.Cmds += cmds
		a.state.Qrys += qrys
		return emit(fmt.Sprintf("Cmds:%11d Qrys:%11d", a.state.Cmds, a.state.Qrys))
	}, nil
}

func (a *Accumulator) touches(rec decoder.Record) (commit, error) {
	n, err := rec.Int(decoder.PayloadLo, 20)
	if err != nil {
		return nil, err
	}
	return func() Result {
		a.state.Touches += n
		return emit(fmt.Sprintf("Touches:%11d", a.state.Touches))
	}, nil
}

func (a *Accumulator) supply(rec decoder.Record) (commit, error) {
	v24 := rec.Field(decoder.PayloadLo, 14)
	v5 := rec.Field(16, 20)
	v3 := rec.Field(22, 26)
	return func() Result {
		a.state.PS24V, a.state.PS5V, a.state.PS3p3V = v24, v5, v3
		return emit("24V:" + v24 + " 5V:" + v5 + " 3.3V:" + v3)
	}, nil
}

func (a *Accumulator) cpuTemp(rec decoder.Record) (commit, error) {
	f, err := rec.Float(decoder.PayloadLo, 13)
	if err != nil {
		return nil, err
	}
	return func() Result {
		a.state.CPUTemp = f
		return emit(fmt.Sprintf("CPU temperature: %4.1f C", f))
	}, nil
}

func (a *Accumulator) debug(rec decoder.Record) (commit, error) {
	var g [3]int64
	for i, lo := range [3]int{decoder.PayloadLo, 13, 17} {
		n, err := rec.Int(lo, lo+3)
		if err != nil {
			return nil, err
		}
		g[i] = n
	}
	return func() Result {
		a.state.Glitch0, a.state.Glitch1, a.state.Glitch2 = int(g[0]), int(g[1]), int(g[2])
		return emit(fmt.Sprintf("Debug 0:%03d 1:%03d 2:%03d", g[0], g[1], g[2]))
	}, nil
}

func (a *Accumulator) watchdog(rec decoder.Record) (commit, error) {
	marker := rec.Field(decoder.PayloadLo, 11)
	expired := rec.Field(11, 12)
	return func() Result {
		s := &a.state
		s.RebootMarker, s.DogExpired = marker, expired
		s.WDTReboot = true
		// The watchdog explains the restart.
		s.MysteryRestart = false
		return emit("WDT reboot:" + marker + expired)
	}, nil
}
