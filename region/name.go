package region

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// Ext is the extension of McRegion container files.
const Ext = ".mcr"

// Coord is a region position on the region grid. Region (x, z) holds chunks
// [x*32, x*32+32) × [z*32, z*32+32).
type Coord struct {
	X int
	Z int
}

func (c Coord) String() string {
	return fmt.Sprintf("%d,%d", c.X, c.Z)
}

// FileName returns the conventional file name, r.<x>.<z>.mcr.
func (c Coord) FileName() string {
	return fmt.Sprintf("r.%d.%d%s", c.X, c.Z, Ext)
}

// ParseName extracts the region coordinate from a file name such as
// "r.-1.3.mcr". Directories in name are ignored.
func ParseName(name string) (Coord, error) {
	base := filepath.Base(name)
	parts := strings.Split(base, ".")
	if len(parts) != 4 || parts[0] != "r" || "."+parts[3] != Ext {
		return Coord{}, errors.Newf("region: %q is not a region file name", base)
	}
	x, err := strconv.Atoi(parts[1])
	if err != nil {
		return Coord{}, errors.Wrapf(err, "region: %q", base)
	}
	z, err := strconv.Atoi(parts[2])
	if err != nil {
		return Coord{}, errors.Wrapf(err, "region: %q", base)
	}
	return Coord{X: x, Z: z}, nil
}

// SlotPosition returns the region-local chunk position addressed by slot.
func SlotPosition(slot int) (x, z int) {
	return slot % 32, slot / 32
}
