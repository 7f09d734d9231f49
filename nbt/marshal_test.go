package nbt

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalStruct(t *testing.T) {
	type section struct {
		Y      int8
		Blocks []byte
	}
	v := struct {
		X        int32     `nbt:"xPos"`
		Name     string    `nbt:"name"`
		Skipped  string    `nbt:"-"`
		hidden   int
		Sections []section `nbt:"Sections"`
	}{X: 4, Name: "w", Skipped: "nope", Sections: []section{{Y: 1, Blocks: []byte{9}}}}

	var buf bytes.Buffer
	require.NoError(t, Marshal(&buf, v))

	_, got, _, err := Decode(buf.Bytes(), 0)
	require.NoError(t, err)
	want := Compound{
		"xPos": int32(4),
		"name": "w",
		"Sections": List{Type: TagCompound, Items: []any{
			Compound{"Y": int8(1), "Blocks": []byte{9}},
		}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("decoded struct mismatch (-want +got):\n%s", diff)
	}
}

func TestMarshalRejectsMixedList(t *testing.T) {
	var buf bytes.Buffer
	err := Marshal(&buf, Compound{"l": []any{int32(1), "two"}})
	assert.ErrorContains(t, err, "mixed types")
}

func TestMarshalRejectsNonStringMapKeys(t *testing.T) {
	var buf bytes.Buffer
	err := Marshal(&buf, map[int]int32{1: 2})
	assert.Error(t, err)
}

func TestDumpSummarizesLargeArrays(t *testing.T) {
	var buf bytes.Buffer
	Dump(&buf, "Level", Compound{"Blocks": make([]byte, 32768), "xPos": int32(3)}, 16)
	out := buf.String()
	assert.Contains(t, out, "TAG_Byte_Array len=32768")
	assert.Contains(t, out, "xPos")
}
