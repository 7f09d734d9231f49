package chunk

import (
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/astei/savemap/region"
)

// SnowStrategy selects how the surface search treats blocks sitting on top
// of the height map's surface. Snow layers do not block sky light, so the
// height map does not count them.
type SnowStrategy int

const (
	// SnowSkipSolid climbs while the block above is anything but air.
	SnowSkipSolid SnowStrategy = iota
	// SnowSingleLayer climbs one block, and only onto snow.
	SnowSingleLayer
)

func (s SnowStrategy) String() string {
	switch s {
	case SnowSkipSolid:
		return "skip-solid"
	case SnowSingleLayer:
		return "single-layer"
	}
	return "unknown"
}

func ParseSnowStrategy(s string) (SnowStrategy, error) {
	switch s {
	case "skip-solid", "":
		return SnowSkipSolid, nil
	case "single-layer":
		return SnowSingleLayer, nil
	}
	return 0, errors.Newf("unknown snow strategy %q (want skip-solid or single-layer)", s)
}

func (s SnowStrategy) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *SnowStrategy) UnmarshalText(text []byte) error {
	v, err := ParseSnowStrategy(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Surface holds the surface block id of every column, indexed z*16+x. Zero
// means the column has no surface.
type Surface [ColumnCount]byte

func (s *Surface) At(x, z int) byte {
	return s[z*Width+x]
}

// Bed is the head half of a bed, in world block coordinates.
type Bed struct {
	X    int    `json:"x"`
	Z    int    `json:"z"`
	Time uint32 `json:"time"`
}

// Sign is a sign with at least one non-empty line, in world block
// coordinates.
type Sign struct {
	Time uint32    `json:"time"`
	X    int       `json:"x"`
	Z    int       `json:"z"`
	Text [4]string `json:"text"`
}

// Result is everything extracted from one chunk.
type Result struct {
	X       int
	Z       int
	Surface Surface
	Beds    []Bed
	Signs   []Sign
}

// Extractor turns chunk levels into Results. The zero value uses
// SnowSkipSolid.
type Extractor struct {
	Snow SnowStrategy
}

// Extract computes the surface, beds and signs of level. Features carry
// timestamp, the record's last modification time.
func (e Extractor) Extract(level *Level, timestamp uint32) (Result, error) {
	signs, err := Signs(level, timestamp)
	if err != nil {
		return Result{}, err
	}
	return Result{
		X:       level.X,
		Z:       level.Z,
		Surface: e.Surface(level),
		Beds:    Beds(level, timestamp),
		Signs:   signs,
	}, nil
}

// ExtractInRegion is Extract preceded by CheckRegion.
func (e Extractor) ExtractInRegion(level *Level, timestamp uint32, coord region.Coord) (Result, error) {
	if err := level.CheckRegion(coord); err != nil {
		return Result{}, err
	}
	return e.Extract(level, timestamp)
}

func (e Extractor) Surface(level *Level) Surface {
	var s Surface
	for z := 0; z < Width; z++ {
		for x := 0; x < Width; x++ {
			s[z*Width+x] = e.column(level, x, z)
		}
	}
	return s
}

func (e Extractor) column(level *Level, x, z int) byte {
	h := int(level.HeightMap[z*Width+x])
	if h == 0 {
		return BlockAir
	}
	y := Index(x, min(h, Height)-1, z)

	switch e.Snow {
	case SnowSingleLayer:
		if y%Height < Height-1 && level.Blocks[y+1] == BlockSnow {
			y++
		}
	default:
		for y%Height < Height-1 && level.Blocks[y+1] != BlockAir {
			y++
		}
	}
	return level.Blocks[y]
}

// Beds returns the head half of every bed in the chunk, in block order.
func Beds(level *Level, timestamp uint32) []Bed {
	var beds []Bed
	for i, b := range level.Blocks {
		if b != BlockBed {
			continue
		}
		// Bit 3 of the data value is set on the head half.
		if level.Nibble(i)&0x8 == 0 {
			continue
		}
		beds = append(beds, Bed{
			X:    level.X*Width + i/(Height*Width),
			Z:    level.Z*Width + (i/Height)%Width,
			Time: timestamp,
		})
	}
	return beds
}

// Signs returns every sign tile entity that has any text.
func Signs(level *Level, timestamp uint32) ([]Sign, error) {
	var signs []Sign
	for _, entity := range level.TileEntities {
		id, err := entity.StringValue("id")
		if err != nil {
			return nil, err
		}
		if id != "Sign" {
			continue
		}

		var sign Sign
		sign.Time = timestamp
		x, err := entity.Int("x")
		if err != nil {
			return nil, err
		}
		z, err := entity.Int("z")
		if err != nil {
			return nil, err
		}
		sign.X, sign.Z = int(x), int(z)
		for i := range sign.Text {
			if sign.Text[i], err = entity.StringValue(textKeys[i]); err != nil {
				return nil, err
			}
		}

		if strings.Join(sign.Text[:], "") == "" {
			continue
		}
		signs = append(signs, sign)
	}
	return signs, nil
}

var textKeys = [4]string{"Text1", "Text2", "Text3", "Text4"}
