package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Reply framing of the controller's log dump.
const (
	bodyStart    = "<"
	bodyEnd      = ">"
	serialPrefix = "Serial"
	serialLo     = 14
	serialHi     = 18
)

// Dump is a controller's reply to a log dump command.
type Dump struct {
	// Serial is the unit serial number from the preamble, if it sent one.
	Serial    string
	Preamble  []string
	Lines     []string
	Postamble []string
	// Complete reports that the end-of-body marker arrived.
	Complete bool
}

// BaseName is the name a fetched log and its artifacts share.
func BaseName(serial string, logNum int) string {
	return fmt.Sprintf("sn%slog%d", serial, logNum)
}

// ParseDump splits a dump reply into preamble, body and postamble. A reply
// with no body marker is an empty dump, not an error.
func ParseDump(r io.Reader) (Dump, error) {
	const (
		preamble = iota
		body
		postamble
	)
	var d Dump
	state := preamble
	sc := Lines(r)
	for sc.Scan() {
		line := sc.Text()
		switch state {
		case preamble:
			if line == bodyStart {
				state = body
				continue
			}
			if strings.HasPrefix(line, serialPrefix) && len(line) > serialLo {
				d.Serial = strings.TrimSpace(line[serialLo:min(len(line), serialHi)])
			}
			d.Preamble = append(d.Preamble, line)
		case body:
			if line == bodyEnd {
				state = postamble
				d.Complete = true
				continue
			}
			d.Lines = append(d.Lines, line)
		case postamble:
			d.Postamble = append(d.Postamble, line)
		}
	}
	if err := sc.Err(); err != nil {
		return d, fmt.Errorf("read dump: %w", err)
	}
	return d, nil
}

// Source returns the dump body as a record source.
func (d Dump) Source() *Slice { return NewSlice(d.Lines) }

// WriteLog saves the body as "sn<serial>log<logNum>.txt" in dir and returns
// the path. fallbackSerial names the file when the unit sent no serial.
func (d Dump) WriteLog(dir string, logNum int, fallbackSerial string) (string, error) {
	serial := d.Serial
	if serial == "" {
		serial = fallbackSerial
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create log dir: %w", err)
	}
	path := filepath.Join(dir, BaseName(serial, logNum)+".txt")
	var b strings.Builder
	for _, l := range d.Lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("write log: %w", err)
	}
	return path, nil
}

// Command is the dump request for the last megs megabytes of the log.
func Command(megs int) string {
	return fmt.Sprintf("frlog977%04d\n", megs)
}

// Fetch asks the controller on rw for its log and parses the reply. It reads
// at most megs megabytes. The controller does not close the line when done,
// so rw should end the reply once the line goes quiet (see IdleTimeout).
func Fetch(ctx context.Context, rw io.ReadWriter, megs int) (Dump, error) {
	if megs < 1 {
		return Dump{}, fmt.Errorf("fetch: megs must be positive, got %d", megs)
	}
	if _, err := io.WriteString(rw, Command(megs)); err != nil {
		return Dump{}, fmt.Errorf("send dump command: %w", err)
	}
	r := io.LimitReader(ctxReader{ctx: ctx, r: rw}, int64(megs)<<20)
	d, err := ParseDump(r)
	if err != nil {
		return d, fmt.Errorf("fetch: %w", err)
	}
	return d, nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// Port is a serial port with a read timeout, like a go.bug.st/serial port:
// a read that times out returns no bytes and no error.
type Port interface {
	io.ReadWriter
	SetReadTimeout(time.Duration) error
}

// IdleTimeout sets the read timeout on p and returns p with a timed-out read
// reported as end of input, so a line that goes quiet ends a Fetch.
func IdleTimeout(p Port, timeout time.Duration) (io.ReadWriter, error) {
	if err := p.SetReadTimeout(timeout); err != nil {
		return nil, fmt.Errorf("set read timeout: %w", err)
	}
	return idlePort{p: p}, nil
}

type idlePort struct {
	p Port
}

func (i idlePort) Write(b []byte) (int, error) { return i.p.Write(b) }

func (i idlePort) Read(b []byte) (int, error) {
	n, err := i.p.Read(b)
	if n == 0 && err == nil && len(b) > 0 {
		return 0, io.EOF
	}
	return n, err
}
