package nbt

import (
	"bytes"
	"math"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encode(t *testing.T, name string, v any) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, NewEncoder(&buf).EncodeNamed(name, v))
	return buf.Bytes()
}

func TestRoundTripAllKinds(t *testing.T) {
	cases := []struct {
		name string
		v    any
	}{
		{"byte", int8(-7)},
		{"short", int16(-30000)},
		{"int", int32(math.MinInt32)},
		{"long", int64(math.MaxInt64)},
		{"float", float32(-1.5)},
		{"double", math.Pi},
		{"bytes", []byte{0, 1, 0xff}},
		{"string", "héllo"},
		{"list", List{Type: TagShort, Items: []any{int16(1), int16(-2)}}},
		{"empty list", List{Type: TagEnd, Items: []any{}}},
		{"compound", Compound{"a": int32(1), "b": Compound{"c": "d"}}},
		{"ints", []int32{-1, 0, 1}},
		{"longs", []int64{math.MinInt64, 42}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			raw := encode(t, c.name, c.v)
			name, v, next, err := Decode(raw, 0)
			require.NoError(t, err)
			assert.Equal(t, c.name, name)
			assert.Equal(t, len(raw), next)
			if diff := cmp.Diff(c.v, v); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}

	t.Run("end", func(t *testing.T) {
		name, v, next, err := Decode([]byte{0}, 0)
		require.NoError(t, err)
		assert.Equal(t, "", name)
		assert.Equal(t, End{}, v)
		assert.Equal(t, 1, next)
	})
}

func TestDecodeTaggedIsUnnamed(t *testing.T) {
	name, v, next, err := DecodeTagged([]byte{0xff, 0xfe}, 0, TagShort)
	require.NoError(t, err)
	assert.Equal(t, Unnamed, name)
	assert.Equal(t, int16(-2), v)
	assert.Equal(t, 2, next)
}

func TestDecodeAtOffset(t *testing.T) {
	raw := append([]byte{0xaa, 0xbb}, encode(t, "x", int32(5))...)
	name, v, next, err := Decode(raw, 2)
	require.NoError(t, err)
	assert.Equal(t, "x", name)
	assert.Equal(t, int32(5), v)
	assert.Equal(t, len(raw), next)
}

func TestListOfInts(t *testing.T) {
	raw := []byte{
		byte(TagList), 0, 1, 'l',
		byte(TagInt), 0, 0, 0, 3,
		0xff, 0xff, 0xff, 0xff,
		0, 0, 0, 0,
		0x7f, 0xff, 0xff, 0xff,
	}
	_, v, _, err := Decode(raw, 0)
	require.NoError(t, err)
	want := List{Type: TagInt, Items: []any{int32(-1), int32(0), int32(math.MaxInt32)}}
	if diff := cmp.Diff(want, v); diff != "" {
		t.Errorf("list mismatch (-want +got):\n%s", diff)
	}
}

func TestFormatViolations(t *testing.T) {
	cases := map[string][]byte{
		"duplicate key": {
			byte(TagCompound), 0, 0,
			byte(TagByte), 0, 1, 'a', 5,
			byte(TagByte), 0, 1, 'a', 6,
			byte(TagEnd),
		},
		"negative byte array": {byte(TagByteArray), 0, 0, 0xff, 0xff, 0xff, 0xfe},
		"negative string":     {byte(TagString), 0, 0, 0x80, 0x00},
		"negative list count": {byte(TagList), 0, 0, byte(TagInt), 0xff, 0xff, 0xff, 0xff},
		"negative int array":  {byte(TagIntArray), 0, 0, 0x80, 0, 0, 0},
		"unknown tag":         {13, 0, 0},
		"unknown list type":   {byte(TagList), 0, 0, 42, 0, 0, 0, 1, 0},
		"end list elements":   {byte(TagList), 0, 0, byte(TagEnd), 0, 0, 0, 1},
		"truncated int":       {byte(TagInt), 0, 0, 1, 2},
		"truncated name":      {byte(TagInt), 0, 5, 'a'},
		"unterminated":        {byte(TagCompound), 0, 0, byte(TagByte), 0, 1, 'a', 5},
		"invalid utf8":        {byte(TagString), 0, 0, 0, 1, 0xff},
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, _, err := Decode(raw, 0)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrFormat), "error %v is not a format violation", err)
		})
	}
}

func TestMaxDepth(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{byte(TagCompound), 0, 0})
	for i := 0; i < 10; i++ {
		buf.Write([]byte{byte(TagCompound), 0, 1, 'n'})
	}
	for i := 0; i < 11; i++ {
		buf.WriteByte(byte(TagEnd))
	}

	_, _, _, err := Decoder{MaxDepth: 5}.Decode(buf.Bytes(), 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFormat))

	_, v, _, err := Decoder{MaxDepth: 11}.Decode(buf.Bytes(), 0)
	require.NoError(t, err)
	assert.IsType(t, Compound{}, v)
}

func TestDecodeDoesNotAliasInput(t *testing.T) {
	raw := encode(t, "b", []byte{1, 2, 3})
	_, v, _, err := Decode(raw, 0)
	require.NoError(t, err)
	raw[len(raw)-1] = 9
	assert.Equal(t, []byte{1, 2, 3}, v)
}

func TestCompoundAccessors(t *testing.T) {
	c := Compound{"i": int32(3), "s": "x", "l": List{Type: TagByte}}

	i, err := c.Int("i")
	require.NoError(t, err)
	assert.Equal(t, int32(3), i)

	s, err := c.StringValue("s")
	require.NoError(t, err)
	assert.Equal(t, "x", s)

	_, err = c.Int("s")
	assert.True(t, errors.Is(err, ErrFormat))

	_, err = c.Bytes("missing")
	assert.True(t, errors.Is(err, ErrFormat))

	l, err := c.List("l")
	require.NoError(t, err)
	assert.Equal(t, TagByte, l.Type)
}
