package tiles

import (
	"image"

	"github.com/astei/savemap/raster"
)

// Builder composes parent tiles out of their stored children.
type Builder struct {
	Store    *Store
	Resample raster.Resample
}

// Parent builds tile id from its children in source, one level finer.
// Children outside source are ignored even when stored. Missing children
// leave their quadrant transparent. It also returns how many children were
// found.
func (b *Builder) Parent(id ID, source Set) (*image.NRGBA, int, error) {
	parent := raster.New(Size, Size)
	found := 0
	for _, child := range Expand(id) {
		if !source.Has(child.ID) {
			continue
		}
		img, err := b.Store.ReadTile(child.ID)
		if err != nil {
			return nil, 0, err
		}
		if img == nil {
			continue
		}
		found++
		raster.Paste(parent, raster.Resize(img, Half, Half, b.Resample), child.OffsetX, child.OffsetY)
	}
	return parent, found, nil
}

// Build composes id from source and writes it to the store. Parents without
// any child are not written.
func (b *Builder) Build(id ID, source Set) (bool, error) {
	img, found, err := b.Parent(id, source)
	if err != nil || found == 0 {
		return false, err
	}
	if err := b.Store.WriteTile(id, img); err != nil {
		return false, err
	}
	return true, nil
}
