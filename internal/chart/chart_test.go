package chart

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/heulog/internal/model"
)

func row(t *testing.T, stamp string, dup bool, inlet float64, watts int) model.Row {
	t.Helper()
	st, err := model.ParseStamp(stamp)
	require.NoError(t, err)
	v := model.DefaultSnapshot()
	v.InletTemp = inlet
	v.OutletTemp = inlet - 4
	v.Flow = 12
	v.DissWatts = watts
	return model.Row{Stamp: st, Duplicate: dup, Values: v}
}

func TestBuild(t *testing.T) {
	rows := []model.Row{
		row(t, "08/16/24 23:59:58.00", false, 24, 1796),
		row(t, "08/16/24 23:59:59.49", true, 24, 1796),
		row(t, "08/16/24 23:59:59.50", false, 25, 1800),
		row(t, "08/17/24 00:00:01.00", false, 26, 1900),
	}
	s, err := Build(rows)
	require.NoError(t, err)
	require.Len(t, s.Inlet, 3, "duplicates are skipped")
	assert.InDelta(t, 0, s.Inlet[0].X, 1e-9)
	assert.InDelta(t, 1.5, s.Inlet[1].X, 1e-9)
	assert.InDelta(t, 3, s.Inlet[2].X, 1e-9, "crosses midnight")
	assert.InDelta(t, 22, s.Outlet[2].Y, 1e-9)
	assert.InDelta(t, 1900, s.Power[2].Y, 1e-9)
}

func TestBuild_NoData(t *testing.T) {
	_, err := Build(nil)
	assert.ErrorIs(t, err, ErrNoData)

	_, err = Build([]model.Row{{Stamp: model.Stamp{Seconds: "01.00"}}})
	assert.ErrorIs(t, err, ErrNoData)
}

func TestRender(t *testing.T) {
	rows := []model.Row{
		row(t, "08/16/24 14:25:12.34", false, 24, 1796),
		row(t, "08/16/24 14:25:20.00", false, 25, 1810),
		row(t, "08/16/24 14:26:02.10", false, 23, 1750),
	}
	path := filepath.Join(t.TempDir(), "scan.png")
	require.NoError(t, Render(rows, "sn1060log18", path, 640, 480))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")))
}
