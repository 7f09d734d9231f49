// Package chunktest builds chunk records for tests.
package chunktest

import (
	"bytes"

	"github.com/astei/savemap/nbt"
)

const (
	width  = 16
	height = 128
)

// Chunk is a mutable chunk that encodes to a record.
type Chunk struct {
	X, Z      int32
	Blocks    []byte
	HeightMap []byte
	Data      []byte
	Entities  []nbt.Compound
}

func New(x, z int32) *Chunk {
	return &Chunk{
		X:         x,
		Z:         z,
		Blocks:    make([]byte, width*width*height),
		HeightMap: make([]byte, width*width),
		Data:      make([]byte, width*width*height/2),
	}
}

func index(x, y, z int) int {
	return y + z*height + x*height*width
}

func (c *Chunk) Set(x, y, z int, id byte) *Chunk {
	c.Blocks[index(x, y, z)] = id
	return c
}

// SetData stores the 4-bit data value of a block.
func (c *Chunk) SetData(x, y, z int, v byte) *Chunk {
	i := index(x, y, z)
	shift := uint(i%2) * 4
	c.Data[i>>1] = c.Data[i>>1]&^(0xf<<shift) | (v&0xf)<<shift
	return c
}

func (c *Chunk) SetHeight(x, z int, h byte) *Chunk {
	c.HeightMap[z*width+x] = h
	return c
}

// Column stacks ids from y=0 upward and sets the height map just above the
// last one.
func (c *Chunk) Column(x, z int, ids ...byte) *Chunk {
	for y, id := range ids {
		c.Set(x, y, z, id)
	}
	return c.SetHeight(x, z, byte(len(ids)))
}

// Fill gives every column a single block of id at y=0.
func (c *Chunk) Fill(id byte) *Chunk {
	for x := 0; x < width; x++ {
		for z := 0; z < width; z++ {
			c.Column(x, z, id)
		}
	}
	return c
}

func (c *Chunk) AddSign(x, y, z int32, text [4]string) *Chunk {
	return c.AddEntity(nbt.Compound{
		"id":    "Sign",
		"x":     x,
		"y":     y,
		"z":     z,
		"Text1": text[0],
		"Text2": text[1],
		"Text3": text[2],
		"Text4": text[3],
	})
}

func (c *Chunk) AddEntity(entity nbt.Compound) *Chunk {
	c.Entities = append(c.Entities, entity)
	return c
}

// Compound returns the record root as the decoder would produce it.
func (c *Chunk) Compound() nbt.Compound {
	entities := nbt.List{Type: nbt.TagEnd}
	if len(c.Entities) > 0 {
		entities.Type = nbt.TagCompound
		for _, e := range c.Entities {
			entities.Items = append(entities.Items, e)
		}
	}
	return nbt.Compound{
		"Level": nbt.Compound{
			"xPos":         c.X,
			"zPos":         c.Z,
			"Blocks":       c.Blocks,
			"HeightMap":    c.HeightMap,
			"Data":         c.Data,
			"TileEntities": entities,
			"LastUpdate":   int64(0),
		},
	}
}

// Encode returns the uncompressed record.
func (c *Chunk) Encode() []byte {
	var buf bytes.Buffer
	if err := nbt.Marshal(&buf, c.Compound()); err != nil {
		panic(err)
	}
	return buf.Bytes()
}
