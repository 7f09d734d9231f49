package nbt

import (
	"testing"

	gomcnbt "github.com/Tnze/go-mc/nbt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The encoder and decoder are checked against go-mc's independent
// implementation so that a symmetric bug in both cannot hide.
func TestAgainstGoMC(t *testing.T) {
	blocks := make([]byte, 300)
	for i := range blocks {
		blocks[i] = byte(i * 7)
	}
	root := Compound{
		"Level": Compound{
			"xPos":       int32(-33),
			"zPos":       int32(12),
			"Blocks":     blocks,
			"LastUpdate": int64(1234567890123),
			"TileEntities": List{Type: TagCompound, Items: []any{
				Compound{"id": "Sign", "x": int32(-520), "Text1": "hi"},
			}},
		},
	}
	raw := encode(t, "", root)

	var theirs struct {
		Level struct {
			XPos         int32  `nbt:"xPos"`
			ZPos         int32  `nbt:"zPos"`
			Blocks       []byte `nbt:"Blocks"`
			LastUpdate   int64  `nbt:"LastUpdate"`
			TileEntities []struct {
				ID    string `nbt:"id"`
				X     int32  `nbt:"x"`
				Text1 string `nbt:"Text1"`
			} `nbt:"TileEntities"`
		} `nbt:"Level"`
	}
	require.NoError(t, gomcnbt.Unmarshal(raw, &theirs))

	_, v, _, err := Decode(raw, 0)
	require.NoError(t, err)
	level, err := v.(Compound).Compound("Level")
	require.NoError(t, err)

	x, err := level.Int("xPos")
	require.NoError(t, err)
	assert.Equal(t, theirs.Level.XPos, x)

	z, err := level.Int("zPos")
	require.NoError(t, err)
	assert.Equal(t, theirs.Level.ZPos, z)

	b, err := level.Bytes("Blocks")
	require.NoError(t, err)
	assert.Equal(t, theirs.Level.Blocks, b)

	lu, err := level.Long("LastUpdate")
	require.NoError(t, err)
	assert.Equal(t, theirs.Level.LastUpdate, lu)

	te, err := level.List("TileEntities")
	require.NoError(t, err)
	require.Len(t, theirs.Level.TileEntities, 1)
	require.Len(t, te.Items, 1)
	sign := te.Items[0].(Compound)
	assert.Equal(t, theirs.Level.TileEntities[0].ID, sign["id"])
	assert.Equal(t, theirs.Level.TileEntities[0].X, sign["x"])
	assert.Equal(t, theirs.Level.TileEntities[0].Text1, sign["Text1"])
}
