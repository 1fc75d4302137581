package decoder

import (
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_KnownTags(t *testing.T) {
	for _, tag := range Tags() {
		rec := Decode(7, tag.String()+":12.34 1\n")
		assert.Equal(t, tag, rec.Tag, "tag %s", tag)
		assert.Equal(t, 7, rec.Line)
		assert.Equal(t, tag.String()+":12.34 1", rec.Raw, "line terminator stripped")
	}
	assert.Len(t, Tags(), 22)
}

func TestDecode_Unknown(t *testing.T) {
	rec := Decode(1, "ZZ:01.00 garbage")
	assert.Equal(t, TagUnknown, rec.Tag)
	assert.Equal(t, "ZZ", rec.Name())
	assert.False(t, rec.Blank())

	rec = Decode(2, "X")
	assert.Equal(t, TagUnknown, rec.Tag)
	assert.Equal(t, "X", rec.Name())
}

func TestDecode_Blank(t *testing.T) {
	for _, raw := range []string{"", "\n", "\r\n", "   "} {
		rec := Decode(1, raw)
		assert.True(t, rec.Blank(), "%q", raw)
		assert.Equal(t, TagUnknown, rec.Tag)
	}
}

func TestField_Clamps(t *testing.T) {
	rec := Decode(1, "IN:01.00 1")
	assert.Equal(t, "01.00", rec.Seconds())
	assert.Equal(t, "1", rec.Field(9, 10))
	assert.Equal(t, "1", rec.Field(9, 40))
	assert.Equal(t, "", rec.Field(20, 30))
	assert.Equal(t, "", rec.Field(5, 2))
}

func TestIntAndFloat(t *testing.T) {
	rec := Decode(1, "IF:05.50 00000000012 0000000003")
	n, err := rec.Int(9, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 12, n)
	n, err = rec.Int(20, 31)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	rec = Decode(1, "TH:05.50 0.750")
	f, err := rec.Float(9, 15)
	require.NoError(t, err)
	assert.InDelta(t, 0.75, f, 1e-9)
}

func TestFieldError(t *testing.T) {
	rec := Decode(3, "MT:05.50 xx")
	_, err := rec.Int(9, 11)
	require.Error(t, err)

	var fe *FieldError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, TagMT, fe.Tag)
	assert.Equal(t, "xx", fe.Value)
	assert.True(t, errors.Is(err, strconv.ErrSyntax))
	assert.Contains(t, err.Error(), "MT field [9:11]")
}

func TestTagString(t *testing.T) {
	assert.Equal(t, "PS", TagPS.String())
	assert.Equal(t, "??", TagUnknown.String())
	assert.True(t, TagDT.IsStamp())
	assert.True(t, TagTI.IsStamp())
	assert.False(t, TagPS.IsStamp())
	assert.Equal(t, TagWD, Lookup("WD"))
	assert.Equal(t, TagUnknown, Lookup("wd"))
}
