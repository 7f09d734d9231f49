// Package chunk extracts map data from decoded chunk records: the surface
// block of every column, beds and signs.
package chunk

import (
	"github.com/cockroachdb/errors"

	"github.com/astei/savemap/nbt"
	"github.com/astei/savemap/region"
)

const (
	Width       = 16
	Height      = 128
	BlockCount  = Width * Width * Height
	ColumnCount = Width * Width
)

// Block ids with special meaning to the extractor.
const (
	BlockAir  byte = 0
	BlockBed  byte = 26
	BlockSnow byte = 78
)

// ErrFormat marks chunk records that do not have the expected shape.
var ErrFormat = errors.New("chunk: format violation")

// ErrWrongRegion is returned when a chunk is stored in a region file that
// does not cover its position.
var ErrWrongRegion = errors.New("chunk: stored in the wrong region")

func violationf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf("chunk: "+format, args...), ErrFormat)
}

// Level is the "Level" compound of one chunk record.
type Level struct {
	// Chunk grid position; one unit is 16 blocks.
	X int
	Z int

	// Blocks holds one id per block, indexed by Index.
	Blocks []byte
	// HeightMap holds, per column z*16+x, the height of the first block
	// reached by sky light.
	HeightMap []byte
	// Data holds one 4-bit value per block, two per byte, low nibble first.
	Data []byte

	TileEntities []nbt.Compound
}

// Index returns the offset of block (x, y, z) within Blocks.
func Index(x, y, z int) int {
	return y + z*Height + x*Height*Width
}

// Decode decodes a record into its Level.
func Decode(raw []byte) (*Level, error) {
	return DecodeWith(nbt.Decoder{}, raw)
}

// DecodeWith is Decode using a configured tree decoder.
func DecodeWith(d nbt.Decoder, raw []byte) (*Level, error) {
	_, root, _, err := d.Decode(raw, 0)
	if err != nil {
		return nil, err
	}
	compound, ok := root.(nbt.Compound)
	if !ok {
		return nil, violationf("record root is %s, want %s", nbt.TagOf(root), nbt.TagCompound)
	}
	return ParseLevel(compound)
}

// ParseLevel reads the Level compound out of a decoded record root.
func ParseLevel(root nbt.Compound) (*Level, error) {
	level, err := root.Compound("Level")
	if err != nil {
		return nil, err
	}

	x, err := level.Int("xPos")
	if err != nil {
		return nil, err
	}
	z, err := level.Int("zPos")
	if err != nil {
		return nil, err
	}
	blocks, err := level.Bytes("Blocks")
	if err != nil {
		return nil, err
	}
	heightMap, err := level.Bytes("HeightMap")
	if err != nil {
		return nil, err
	}
	data, err := level.Bytes("Data")
	if err != nil {
		return nil, err
	}

	// Array sizes are fixed by the chunk dimensions.
	if len(blocks) != BlockCount {
		return nil, violationf("chunk %d,%d: %d blocks, want %d", x, z, len(blocks), BlockCount)
	}
	if len(heightMap) != ColumnCount {
		return nil, violationf("chunk %d,%d: height map of %d, want %d", x, z, len(heightMap), ColumnCount)
	}
	if len(data) != BlockCount/2 {
		return nil, violationf("chunk %d,%d: %d data bytes, want %d", x, z, len(data), BlockCount/2)
	}

	var entities []nbt.Compound
	if level.Has("TileEntities") {
		list, err := level.List("TileEntities")
		if err != nil {
			return nil, err
		}
		for _, item := range list.Items {
			entity, ok := item.(nbt.Compound)
			if !ok {
				return nil, violationf("chunk %d,%d: tile entity is %s", x, z, nbt.TagOf(item))
			}
			entities = append(entities, entity)
		}
	}

	return &Level{
		X:            int(x),
		Z:            int(z),
		Blocks:       blocks,
		HeightMap:    heightMap,
		Data:         data,
		TileEntities: entities,
	}, nil
}

// Region returns the region that covers the chunk.
func (l *Level) Region() region.Coord {
	return region.Coord{X: floorDiv(l.X, 32), Z: floorDiv(l.Z, 32)}
}

// CheckRegion fails if the chunk does not belong to the region it was read
// from, which means the container is corrupt.
func (l *Level) CheckRegion(want region.Coord) error {
	if got := l.Region(); got != want {
		return errors.Mark(
			errors.Wrapf(ErrWrongRegion, "chunk %d,%d belongs to region %s, found in %s", l.X, l.Z, got, want),
			ErrFormat)
	}
	return nil
}

// Nibble returns the 4-bit Data value of the block at index i.
func (l *Level) Nibble(i int) byte {
	return (l.Data[i>>1] >> (uint(i%2) * 4)) & 0xf
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}
