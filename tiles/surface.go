package tiles

import (
	"image"

	"github.com/astei/savemap/chunk"
	"github.com/astei/savemap/palette"
	"github.com/astei/savemap/raster"
)

// ChunksPerRegion is the edge length of a region in chunks.
const ChunksPerRegion = 32

// Surface holds the surface block ids of a whole region, one per pixel of
// its zoom 0 tile, indexed py*Size+px.
type Surface [Size * Size]byte

// SetChunk places the surface of the chunk at (cx, cz). The chunk coordinates
// may be absolute; only their position inside the region is used.
func (s *Surface) SetChunk(cx, cz int, cs *chunk.Surface) {
	ox := floorMod(cx, ChunksPerRegion) * chunk.Width
	oy := floorMod(cz, ChunksPerRegion) * chunk.Width
	for z := 0; z < chunk.Width; z++ {
		copy(s[(oy+z)*Size+ox:], cs[z*chunk.Width:(z+1)*chunk.Width])
	}
}

func (s *Surface) At(px, py int) byte {
	return s[py*Size+px]
}

// Rasterize colors every pixel of s through p. Air stays transparent.
// onUnknown, if set, sees every id the palette lacks, once per pixel.
func Rasterize(s *Surface, p *palette.Palette, onUnknown palette.UnknownFunc) *image.NRGBA {
	img := raster.New(Size, Size)
	for py := 0; py < Size; py++ {
		for px := 0; px < Size; px++ {
			id := s[py*Size+px]
			if id == chunk.BlockAir {
				continue
			}
			c, ok := p.Lookup(id)
			if !ok && onUnknown != nil {
				onUnknown(id)
			}
			img.SetNRGBA(px, py, c)
		}
	}
	return img
}
