package palette_test

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astei/savemap/palette"
)

func TestDefault(t *testing.T) {
	p := palette.Default()
	assert.Equal(t, color.NRGBA{R: 200, G: 200, B: 200, A: 255}, p.ColorOf(1))
	assert.Equal(t, color.NRGBA{R: 140, G: 25, B: 25, A: 255}, p.ColorOf(26))
	assert.Equal(t, color.NRGBA{R: 255, G: 144, B: 0, A: 255}, p.ColorOf(91))
	assert.Equal(t, 47, p.Len())

	c, ok := p.Lookup(200)
	assert.False(t, ok)
	assert.Equal(t, palette.Unknown, c)
	assert.Equal(t, color.NRGBA{R: 255, G: 0, B: 127, A: 255}, p.ColorOf(7))
}

func TestNewIgnoresAir(t *testing.T) {
	p := palette.New(map[byte]color.NRGBA{0: {R: 1, A: 255}, 5: {G: 9, A: 255}})
	_, ok := p.Lookup(0)
	assert.False(t, ok)
	assert.Equal(t, 1, p.Len())
}

func TestColorsIsACopy(t *testing.T) {
	colors := palette.Default().Colors()
	colors[1] = color.NRGBA{}
	assert.Equal(t, uint8(200), palette.Default().ColorOf(1).R)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "palette.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
base: default
colors:
  1: [10, 20, 30]
  95: [1, 2, 3, 128]
`), 0644))

	p, err := palette.Load(path)
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 10, G: 20, B: 30, A: 255}, p.ColorOf(1))
	assert.Equal(t, color.NRGBA{R: 1, G: 2, B: 3, A: 128}, p.ColorOf(95))
	assert.Equal(t, palette.Default().ColorOf(2), p.ColorOf(2))
}

func TestParseErrors(t *testing.T) {
	for name, doc := range map[string]string{
		"id range":    "colors:\n  300: [1, 2, 3]\n",
		"components":  "colors:\n  1: [1, 2]\n",
		"value range": "colors:\n  1: [1, 2, 256]\n",
		"base":        "base: fancy\n",
		"yaml":        "colors: [",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := palette.Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestParseWithoutBase(t *testing.T) {
	p, err := palette.Parse([]byte("colors:\n  3: [1, 1, 1]\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, p.Len())
	assert.Equal(t, palette.Unknown, p.ColorOf(1))
}
