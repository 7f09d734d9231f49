package raster_test

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astei/savemap/raster"
)

var (
	red  = color.NRGBA{R: 255, A: 255}
	blue = color.NRGBA{B: 255, A: 255}
)

func TestNewIsTransparent(t *testing.T) {
	img := raster.New(4, 3)
	assert.Equal(t, image.Rect(0, 0, 4, 3), img.Bounds())
	assert.Equal(t, color.NRGBA{}, img.NRGBAAt(2, 2))
}

func TestPaste(t *testing.T) {
	dst := raster.New(8, 8)
	src := raster.New(2, 2)
	raster.Fill(src, red)
	raster.Paste(dst, src, 5, 6)

	assert.Equal(t, red, dst.NRGBAAt(5, 6))
	assert.Equal(t, red, dst.NRGBAAt(6, 7))
	assert.Equal(t, color.NRGBA{}, dst.NRGBAAt(4, 6))
	assert.Equal(t, color.NRGBA{}, dst.NRGBAAt(5, 5))
}

func TestResizeNearest(t *testing.T) {
	src := raster.New(2, 2)
	src.SetNRGBA(0, 0, red)
	src.SetNRGBA(1, 1, blue)

	dst := raster.Resize(src, 4, 4, raster.ResampleNearest)
	assert.Equal(t, red, dst.NRGBAAt(0, 0))
	assert.Equal(t, red, dst.NRGBAAt(1, 1))
	assert.Equal(t, blue, dst.NRGBAAt(3, 3))
	assert.Equal(t, color.NRGBA{}, dst.NRGBAAt(3, 0))
}

func TestResizeSolid(t *testing.T) {
	for _, mode := range []raster.Resample{raster.ResampleNearest, raster.ResampleLinear} {
		src := raster.New(512, 512)
		raster.Fill(src, blue)
		dst := raster.Resize(src, 256, 256, mode)
		assert.Equal(t, image.Rect(0, 0, 256, 256), dst.Bounds(), mode.String())
		for _, c := range []color.NRGBA{dst.NRGBAAt(0, 0), dst.NRGBAAt(255, 128)} {
			assert.InDelta(t, 255, int(c.B), 1, mode.String())
			assert.InDelta(t, 255, int(c.A), 1, mode.String())
			assert.Zero(t, c.R, mode.String())
		}
	}
}

func TestSaveLoad(t *testing.T) {
	img := raster.New(3, 2)
	img.SetNRGBA(2, 1, color.NRGBA{R: 1, G: 2, B: 3, A: 200})
	path := filepath.Join(t.TempDir(), "a", "b", "img.png")
	require.NoError(t, raster.Save(img, path))

	got, err := raster.Load(path)
	require.NoError(t, err)
	assert.Equal(t, img.Pix, got.Pix)
}

func TestDecodeConverts(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 2, 1))
	gray.SetGray(1, 0, color.Gray{Y: 100})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, gray))

	img, err := raster.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 100, G: 100, B: 100, A: 255}, img.NRGBAAt(1, 0))
}

func TestParseResample(t *testing.T) {
	m, err := raster.ParseResample("linear")
	require.NoError(t, err)
	assert.Equal(t, raster.ResampleLinear, m)
	_, err = raster.ParseResample("cubic")
	assert.Error(t, err)
}
