// Package tabular writes the analysis CSV of a conversion: one row per
// eligible record, plus a synthesized duplicate of the previous row ahead
// of every step so plotting tools draw edges instead of ramps.
package tabular

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rcliao/heulog/internal/model"
)

// Header names every column, in order. Downstream tooling depends on both.
const Header = "Time,Pon,PumpsHot,ePumpSelection,PumpsShutdown,P1CurrentHigh,P2CurrentHigh,maxIp1,maxIp2," +
	"fThrot,fInTemp,fOutTemp,fFlow,bIntOn,bRestart,bCold,bPowerdown,bLogClosed,bLeak,fMinFlow," +
	"iMaxTemp,iDissWatts,newCmds,newQrys,newTouches,ps24V,ps5V,ps3p3V,iCpuTemp,iGlitch0,iGlitch1,iGlitch2," +
	"bWDTreboot,bMysteryRestart"

// minStep is the gap, in hundredths of a second, above which a step gets a
// duplicate edge row.
const minStep = 2

// Emitter writes rows and owns the duplicate-row policy. A nil writer keeps
// the policy and the OnRow hook running without a file.
type Emitter struct {
	out   *bufio.Writer
	onRow func(model.Row)

	last     model.Row
	lastAt   int64
	haveLast bool

	rows, dups int
}

// New returns an emitter over w. onRow may be nil.
func New(w io.Writer, onRow func(model.Row)) *Emitter {
	e := &Emitter{onRow: onRow}
	if w != nil {
		e.out = bufio.NewWriter(w)
	}
	return e
}

// WriteHeader writes the column header line.
func (e *Emitter) WriteHeader() error {
	if e.out == nil {
		return nil
	}
	if _, err := e.out.WriteString(Header + "\n"); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	return nil
}

// Emit writes the row for snap at st. When st is on the same date as the
// previous row and more than two hundredths later, a copy of the previous
// row stamped one hundredth before st is written first.
func (e *Emitter) Emit(st model.Stamp, snap model.Snapshot) error {
	at, ok := st.DayHundredths()
	if ok && e.haveLast && st.Date == e.last.Stamp.Date && at-e.lastAt > minStep {
		h, _ := st.Hundredths()
		if h > 0 {
			h--
		}
		dup := model.Row{Stamp: st, Duplicate: true, Values: e.last.Values}
		dup.Stamp.Seconds = fmt.Sprintf("%02d.%02d", h/100, h%100)
		if err := e.write(dup); err != nil {
			return err
		}
		e.dups++
	}
	row := model.Row{Stamp: st, Values: snap}
	if err := e.write(row); err != nil {
		return err
	}
	e.rows++
	e.last, e.lastAt, e.haveLast = row, at, ok
	return nil
}

func (e *Emitter) write(r model.Row) error {
	if e.out != nil {
		if _, err := e.out.WriteString(FormatRow(r) + "\n"); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	if e.onRow != nil {
		e.onRow(r)
	}
	return nil
}

// Rows is the number of rows written, duplicates included.
func (e *Emitter) Rows() int { return e.rows + e.dups }

// Duplicates is the number of synthesized edge rows.
func (e *Emitter) Duplicates() int { return e.dups }

// Flush writes any buffered rows to the underlying writer.
func (e *Emitter) Flush() error {
	if e.out == nil {
		return nil
	}
	if err := e.out.Flush(); err != nil {
		return fmt.Errorf("flush rows: %w", err)
	}
	return nil
}

// FormatRow renders a row without its line terminator.
func FormatRow(r model.Row) string {
	return r.Stamp.String() + "," + FormatValues(r.Values)
}

// FormatValues renders every snapshot column after Time.
func FormatValues(s model.Snapshot) string {
	var b strings.Builder
	b.Grow(160)
	col := func(v string) {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(v)
	}
	itoa := strconv.Itoa
	tenths := func(v int) string { return fmt.Sprintf("%d.%d", v/10, v%10) }

	col(itoa(s.PumpsOn))
	col(itoa(s.PumpsHot))
	col(itoa(s.PumpSelection))
	col(itoa(s.PumpsShutdown))
	col(itoa(s.P1CurrentHigh))
	col(itoa(s.P2CurrentHigh))
	col(tenths(s.MaxIp1))
	col(tenths(s.MaxIp2))
	col(fmt.Sprintf("%05.3f", s.Throttle))
	col(fmt.Sprintf("%5.2f", s.InletTemp))
	col(fmt.Sprintf("%5.2f", s.OutletTemp))
	col(fmt.Sprintf("%5.2f", s.Flow))
	col(bit(s.InterlockOn))
	col(bit(s.Restart))
	col(bit(s.Cold))
	col(bit(s.Powerdown))
	col(bit(s.LogClosed))
	col(bit(s.Leak))
	col(fmt.Sprintf("%4.2f", s.MinFlow))
	col(itoa(s.MaxTemp))
	col(itoa(s.DissWatts))
	col(strconv.FormatInt(s.Cmds, 10))
	col(strconv.FormatInt(s.Qrys, 10))
	col(strconv.FormatInt(s.Touches, 10))
	col(s.PS24V)
	col(s.PS5V)
	col(s.PS3p3V)
	col(fmt.Sprintf("%.1f", s.CPUTemp))
	col(itoa(s.Glitch0))
	col(itoa(s.Glitch1))
	col(itoa(s.Glitch2))
	col(bit(s.WDTReboot))
	col(bit(s.MysteryRestart))
	return b.String()
}

func bit(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
