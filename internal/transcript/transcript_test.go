package transcript

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/heulog/internal/model"
)

func stamp(t *testing.T, s string) model.Stamp {
	t.Helper()
	st, err := model.ParseStamp(s)
	require.NoError(t, err)
	return st
}

func TestWrite(t *testing.T) {
	var buf, echo bytes.Buffer
	w := New(&buf, Options{Echo: &echo})

	require.NoError(t, w.Write(model.Event{Text: "Pumps On", Stamp: stamp(t, "08/16/24 14:25:12.34")}))
	require.NoError(t, w.Write(model.Event{Text: "", Stamp: stamp(t, "08/16/24 14:25:12.40")}))
	require.NoError(t, w.Write(model.Event{Text: "WARM RESTART", Break: true, Stamp: stamp(t, "08/16/24 14:26:00.00")}))
	require.NoError(t, w.Flush())

	want := "Pumps On                    08/16/24 14:25:12.34\n" +
		"\n" +
		"WARM RESTART                08/16/24 14:26:00.00\n"
	assert.Equal(t, want, buf.String())
	assert.Equal(t, want, echo.String())
	assert.Equal(t, 2, w.Lines())
}

func TestWrite_LongTextNotTruncated(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf, Options{})
	text := "Inlet:24.50C, Outlet:21.25C plus"
	require.NoError(t, w.Write(model.Event{Text: text, Stamp: stamp(t, "08/16/24 14:25:01.00")}))
	require.NoError(t, w.Flush())
	assert.Equal(t, text+" 08/16/24 14:25:01.00\n", buf.String())
}

func TestWrite_Mute(t *testing.T) {
	var buf, echo bytes.Buffer
	w := New(&buf, Options{Mute: true, Echo: &echo})
	require.NoError(t, w.Write(model.Event{Text: "Pumps On"}))
	require.NoError(t, w.Flush())
	assert.Empty(t, buf.String())
	assert.Empty(t, echo.String())
	assert.Zero(t, w.Lines())
}

func TestWrite_EchoOnly(t *testing.T) {
	var echo bytes.Buffer
	w := New(nil, Options{Echo: &echo})
	require.NoError(t, w.Write(model.Event{Text: "Log File Read", Stamp: stamp(t, "08/16/24 14:25:01.00")}))
	require.NoError(t, w.Flush())
	assert.Contains(t, echo.String(), "Log File Read")
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestFlush_Error(t *testing.T) {
	w := New(failWriter{}, Options{})
	require.NoError(t, w.Write(model.Event{Text: "x"}))
	err := w.Flush()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}
