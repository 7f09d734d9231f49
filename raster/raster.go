// Package raster holds the small set of image operations the map renderer
// needs, on top of image.NRGBA.
package raster

import (
	"bufio"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"golang.org/x/image/draw"
)

// Resample selects the interpolation used by Resize.
type Resample int

const (
	ResampleNearest Resample = iota
	ResampleLinear
)

func (r Resample) String() string {
	switch r {
	case ResampleNearest:
		return "nearest"
	case ResampleLinear:
		return "linear"
	}
	return "unknown"
}

func ParseResample(s string) (Resample, error) {
	switch s {
	case "nearest", "":
		return ResampleNearest, nil
	case "linear":
		return ResampleLinear, nil
	}
	return 0, errors.Newf("unknown resample mode %q (want nearest or linear)", s)
}

func (r Resample) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Resample) UnmarshalText(text []byte) error {
	v, err := ParseResample(string(text))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

func (r Resample) interpolator() draw.Interpolator {
	if r == ResampleLinear {
		return draw.ApproxBiLinear
	}
	return draw.NearestNeighbor
}

// New returns a fully transparent w×h image.
func New(w, h int) *image.NRGBA {
	return image.NewNRGBA(image.Rect(0, 0, w, h))
}

// Paste copies src onto dst with its top-left corner at (x, y), replacing
// the covered pixels.
func Paste(dst draw.Image, src image.Image, x, y int) {
	b := src.Bounds()
	r := image.Rect(x, y, x+b.Dx(), y+b.Dy())
	draw.Draw(dst, r, src, b.Min, draw.Src)
}

// Resize scales src to w×h.
func Resize(src image.Image, w, h int, mode Resample) *image.NRGBA {
	dst := New(w, h)
	mode.interpolator().Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

// Fill paints every pixel of img with c.
func Fill(img draw.Image, c color.Color) {
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
}

func Encode(w io.Writer, img image.Image) error {
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	return enc.Encode(w, img)
}

// Decode reads a PNG and converts it to NRGBA.
func Decode(r io.Reader) (*image.NRGBA, error) {
	img, err := png.Decode(r)
	if err != nil {
		return nil, err
	}
	if nrgba, ok := img.(*image.NRGBA); ok {
		return nrgba, nil
	}
	b := img.Bounds()
	nrgba := New(b.Dx(), b.Dy())
	draw.Draw(nrgba, nrgba.Bounds(), img, b.Min, draw.Src)
	return nrgba, nil
}

func Load(path string) (*image.NRGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, err := Decode(bufio.NewReader(f))
	if err != nil {
		return nil, errors.Wrapf(err, "decoding %s", path)
	}
	return img, nil
}

// Save writes img as a PNG, creating parent directories.
func Save(img image.Image, path string) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	w := bufio.NewWriter(f)
	if err := Encode(w, img); err != nil {
		return errors.Wrapf(err, "encoding %s", path)
	}
	return w.Flush()
}
