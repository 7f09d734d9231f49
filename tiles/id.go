// Package tiles renders region surfaces into map tiles and builds the zoom
// pyramid above them.
package tiles

import (
	"cmp"
	"fmt"
	"slices"
)

const (
	// Size is the edge length of every tile in pixels.
	Size = 512
	// Half is the edge length of a child inside its parent.
	Half = Size / 2
)

// ID addresses a tile. At zoom 0, X and Y equal the region's X and Z; every
// coarser level is one lower.
type ID struct {
	X    int
	Y    int
	Zoom int
}

func (id ID) String() string {
	return fmt.Sprintf("%d/%d,%d", id.Zoom, id.X, id.Y)
}

// Child is a tile that lands inside a parent at a pixel offset.
type Child struct {
	ID
	OffsetX int
	OffsetY int
}

// Squash returns the parent of id on the next coarser level.
func Squash(id ID) ID {
	return ID{X: floorDiv(id.X, 2), Y: floorDiv(id.Y, 2), Zoom: id.Zoom - 1}
}

// Expand returns the four tiles one level finer that make up id.
func Expand(id ID) [4]Child {
	x, y, z := 2*id.X, 2*id.Y, id.Zoom+1
	return [4]Child{
		{ID: ID{X: x, Y: y, Zoom: z}, OffsetX: 0, OffsetY: 0},
		{ID: ID{X: x + 1, Y: y, Zoom: z}, OffsetX: Half, OffsetY: 0},
		{ID: ID{X: x, Y: y + 1, Zoom: z}, OffsetX: 0, OffsetY: Half},
		{ID: ID{X: x + 1, Y: y + 1, Zoom: z}, OffsetX: Half, OffsetY: Half},
	}
}

// SquashAll returns the sorted, deduplicated parents of ids.
func SquashAll(ids []ID) []ID {
	parents := make([]ID, 0, len(ids))
	for _, id := range ids {
		parents = append(parents, Squash(id))
	}
	Sort(parents)
	return slices.Compact(parents)
}

// Set holds the tiles of one level.
type Set map[ID]struct{}

func NewSet(ids []ID) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s Set) Has(id ID) bool {
	_, ok := s[id]
	return ok
}

// Sort orders ids by zoom, then row, then column.
func Sort(ids []ID) {
	slices.SortFunc(ids, func(a, b ID) int {
		return cmp.Or(cmp.Compare(a.Zoom, b.Zoom), cmp.Compare(a.Y, b.Y), cmp.Compare(a.X, b.X))
	})
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

func floorMod(a, b int) int {
	return a - floorDiv(a, b)*b
}
