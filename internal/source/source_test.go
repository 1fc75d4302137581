package source

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, src interface {
	Scan() bool
	Text() string
	Err() error
}) []string {
	t.Helper()
	var out []string
	for src.Scan() {
		out = append(out, src.Text())
	}
	require.NoError(t, src.Err())
	return out
}

func TestLines_StripsTerminators(t *testing.T) {
	got := collect(t, Lines(strings.NewReader("DT:08/16/24 14:25 12.34\r\nPR:12.50\n\nTH:13.00 0.750")))
	assert.Equal(t, []string{"DT:08/16/24 14:25 12.34", "PR:12.50", "", "TH:13.00 0.750"}, got)
}

func TestSlice(t *testing.T) {
	s := NewSlice([]string{"a", "b"})
	assert.Equal(t, []string{"a", "b"}, collect(t, s))
	assert.False(t, s.Scan())
	assert.Empty(t, collect(t, NewSlice(nil)))
}

const reply = "frlog9770001\n" +
	"Log size: 4096\n" +
	"Serial number:1060\n" +
	"<\n" +
	"DT:08/16/24 14:25 12.34\n" +
	"PR:12.50\n" +
	">\n" +
	"done\n"

func TestParseDump(t *testing.T) {
	d, err := ParseDump(strings.NewReader(reply))
	require.NoError(t, err)
	assert.Equal(t, "1060", d.Serial)
	assert.True(t, d.Complete)
	assert.Equal(t, []string{"DT:08/16/24 14:25 12.34", "PR:12.50"}, d.Lines)
	assert.Equal(t, []string{"frlog9770001", "Log size: 4096", "Serial number:1060"}, d.Preamble)
	assert.Equal(t, []string{"done"}, d.Postamble)
	assert.Equal(t, d.Lines, collect(t, d.Source()))
}

func TestParseDump_NoBody(t *testing.T) {
	d, err := ParseDump(strings.NewReader("frlog9770001\nERR\n"))
	require.NoError(t, err)
	assert.Empty(t, d.Lines)
	assert.False(t, d.Complete)
	assert.Empty(t, d.Serial)
}

func TestParseDump_Truncated(t *testing.T) {
	d, err := ParseDump(strings.NewReader("<\nDT:08/16/24 14:25 12.34\nPR:1"))
	require.NoError(t, err)
	assert.False(t, d.Complete)
	assert.Equal(t, []string{"DT:08/16/24 14:25 12.34", "PR:1"}, d.Lines)
}

func TestWriteLog(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	d := Dump{Serial: "1060", Lines: []string{"PR:12.50", "TH:13.00 0.750"}}
	path, err := d.WriteLog(dir, 18, "9999")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "sn1060log18.txt"), path)
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "PR:12.50\nTH:13.00 0.750\n", string(b))

	d.Serial = ""
	path, err = d.WriteLog(dir, 18, "9999")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "sn9999log18.txt"), path)
}

// fakePort records what was written and replays a canned reply.
type fakePort struct {
	sent  bytes.Buffer
	reply io.Reader
}

func (p *fakePort) Write(b []byte) (int, error) { return p.sent.Write(b) }
func (p *fakePort) Read(b []byte) (int, error)  { return p.reply.Read(b) }

func TestFetch(t *testing.T) {
	p := &fakePort{reply: strings.NewReader(reply)}
	d, err := Fetch(context.Background(), p, 1)
	require.NoError(t, err)
	assert.Equal(t, "frlog9770001\n", p.sent.String())
	assert.Equal(t, "1060", d.Serial)
	assert.Len(t, d.Lines, 2)

	assert.Equal(t, "frlog9770012\n", Command(12))

	_, err = Fetch(context.Background(), p, 0)
	assert.Error(t, err)
}

func TestFetch_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Fetch(ctx, &fakePort{reply: strings.NewReader(reply)}, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

// quietPort returns its reply, then times out the way a serial port with a
// read timeout does: no bytes and no error.
type quietPort struct {
	fakePort
	timeout time.Duration
}

func (p *quietPort) SetReadTimeout(d time.Duration) error { p.timeout = d; return nil }

func (p *quietPort) Read(b []byte) (int, error) {
	n, err := p.reply.Read(b)
	if err == io.EOF {
		return n, nil
	}
	return n, err
}

func TestFetch_IdleTimeoutEndsReply(t *testing.T) {
	p := &quietPort{fakePort: fakePort{reply: strings.NewReader(reply)}}
	rw, err := IdleTimeout(p, time.Second)
	require.NoError(t, err)
	d, err := Fetch(context.Background(), rw, 1)
	require.NoError(t, err)
	assert.True(t, d.Complete)
	assert.Equal(t, time.Second, p.timeout)
	assert.Equal(t, "frlog9770001\n", p.sent.String())
}

// The body never closes before the line goes quiet.
func TestFetch_IdleTimeoutTruncatedReply(t *testing.T) {
	p := &quietPort{fakePort: fakePort{reply: strings.NewReader("Serial number:1060\r\n<\r\nDT:08/16/24 12:00 00.00\r\n")}}
	rw, err := IdleTimeout(p, time.Second)
	require.NoError(t, err)
	d, err := Fetch(context.Background(), rw, 1)
	require.NoError(t, err)
	assert.False(t, d.Complete)
	assert.Equal(t, []string{"DT:08/16/24 12:00 00.00"}, d.Lines)
}
