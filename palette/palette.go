// Package palette maps block ids to map colors.
package palette

import (
	"image/color"
	"os"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// Unknown is the color of ids missing from a palette.
var Unknown = color.NRGBA{R: 255, G: 0, B: 127, A: 255}

// UnknownFunc observes lookups of ids missing from a palette.
type UnknownFunc func(id byte)

// Palette is an immutable block id to color table. Safe for concurrent use.
type Palette struct {
	colors [256]color.NRGBA
	known  [256]bool
}

// New builds a palette from colors. Id 0 (air) is never colored.
func New(colors map[byte]color.NRGBA) *Palette {
	p := &Palette{}
	for id, c := range colors {
		if id == 0 {
			continue
		}
		p.colors[id] = c
		p.known[id] = true
	}
	return p
}

// Lookup returns the color of id and whether the palette knows it.
func (p *Palette) Lookup(id byte) (color.NRGBA, bool) {
	if !p.known[id] {
		return Unknown, false
	}
	return p.colors[id], true
}

// ColorOf returns the color of id, or Unknown.
func (p *Palette) ColorOf(id byte) color.NRGBA {
	c, _ := p.Lookup(id)
	return c
}

// Len returns the number of known ids.
func (p *Palette) Len() int {
	n := 0
	for _, ok := range p.known {
		if ok {
			n++
		}
	}
	return n
}

// Colors returns a copy of the table.
func (p *Palette) Colors() map[byte]color.NRGBA {
	colors := make(map[byte]color.NRGBA, p.Len())
	for id, ok := range p.known {
		if ok {
			colors[byte(id)] = p.colors[id]
		}
	}
	return colors
}

type file struct {
	// Base is "default" to extend the built-in table, or empty.
	Base   string        `yaml:"base"`
	Colors map[int][]int `yaml:"colors"`
}

// Load reads a palette file:
//
//	base: default
//	colors:
//	  1: [200, 200, 200]
//	  95: [10, 20, 30, 128]
func Load(path string) (*Palette, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	p, err := Parse(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "palette %s", path)
	}
	return p, nil
}

func Parse(raw []byte) (*Palette, error) {
	var f file
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, err
	}

	colors := make(map[byte]color.NRGBA)
	switch f.Base {
	case "":
	case "default":
		colors = Default().Colors()
	default:
		return nil, errors.Newf("unknown base %q", f.Base)
	}

	for id, rgba := range f.Colors {
		if id < 1 || id > 255 {
			return nil, errors.Newf("block id %d out of range", id)
		}
		c, err := parseColor(rgba)
		if err != nil {
			return nil, errors.Wrapf(err, "block id %d", id)
		}
		colors[byte(id)] = c
	}
	return New(colors), nil
}

func parseColor(v []int) (color.NRGBA, error) {
	if len(v) != 3 && len(v) != 4 {
		return color.NRGBA{}, errors.Newf("want 3 or 4 components, got %d", len(v))
	}
	for _, c := range v {
		if c < 0 || c > 255 {
			return color.NRGBA{}, errors.Newf("component %d out of range", c)
		}
	}
	c := color.NRGBA{R: uint8(v[0]), G: uint8(v[1]), B: uint8(v[2]), A: 255}
	if len(v) == 4 {
		c.A = uint8(v[3])
	}
	return c, nil
}
