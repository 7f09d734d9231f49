package pipeline

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/cockroachdb/errors"

	"github.com/astei/savemap/chunk"
	"github.com/astei/savemap/tiles"
)

// Levels maps a zoom level to the tiles present on it.
type Levels map[int][]tiles.ID

// Zooms returns the levels present, finest first.
func (l Levels) Zooms() []int {
	zooms := make([]int, 0, len(l))
	for z := range l {
		zooms = append(zooms, z)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(zooms)))
	return zooms
}

// MarshalJSON writes {"0": [[x, y], ...], "-1": ...} with the finest level
// first.
func (l Levels) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, zoom := range l.Zooms() {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.Quote(strconv.Itoa(zoom)))
		buf.WriteByte(':')
		coords := make([][2]int, 0, len(l[zoom]))
		for _, id := range l[zoom] {
			coords = append(coords, [2]int{id.X, id.Y})
		}
		raw, err := json.Marshal(coords)
		if err != nil {
			return nil, err
		}
		buf.Write(raw)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (l *Levels) UnmarshalJSON(data []byte) error {
	var raw map[string][][2]int
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	levels := make(Levels, len(raw))
	for key, coords := range raw {
		zoom, err := strconv.Atoi(key)
		if err != nil {
			return errors.Wrapf(err, "zoom level %q", key)
		}
		ids := make([]tiles.ID, 0, len(coords))
		for _, c := range coords {
			ids = append(ids, tiles.ID{X: c[0], Y: c[1], Zoom: zoom})
		}
		levels[zoom] = ids
	}
	*l = levels
	return nil
}

// Manifest describes a rendered map for the viewer.
type Manifest struct {
	Beds  []chunk.Bed  `json:"beds"`
	Signs []chunk.Sign `json:"signs"`
	Tiles Levels       `json:"tiles"`
}

func NewManifest() *Manifest {
	return &Manifest{Beds: []chunk.Bed{}, Signs: []chunk.Sign{}, Tiles: Levels{}}
}

// Save writes m to path through a temporary file.
func (m *Manifest) Save(path string) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// LoadManifest reads a manifest written by Save.
func LoadManifest(path string) (*Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m := NewManifest()
	if err := json.Unmarshal(raw, m); err != nil {
		return nil, errors.Wrapf(err, "manifest %s", path)
	}
	if m.Tiles == nil {
		m.Tiles = Levels{}
	}
	return m, nil
}
