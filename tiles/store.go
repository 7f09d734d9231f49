package tiles

import (
	"image"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/astei/savemap/raster"
)

// DefaultPattern lays tiles out as tiles_<zoom>/r.<x>.<y>.png.
const DefaultPattern = "tiles_{z}/r.{x}.{y}.png"

var ErrInvalidPattern = errors.New("tiles: invalid file pattern")

func validatePattern(pattern string) error {
	for _, p := range []string{"{x}", "{y}", "{z}"} {
		if !strings.Contains(pattern, p) {
			return errors.Wrapf(ErrInvalidPattern, "placeholder %v not found in %q", p, pattern)
		}
	}
	return nil
}

func formatPattern(pattern string, id ID) string {
	result := pattern
	result = strings.ReplaceAll(result, "{x}", strconv.Itoa(id.X))
	result = strings.ReplaceAll(result, "{y}", strconv.Itoa(id.Y))
	result = strings.ReplaceAll(result, "{z}", strconv.Itoa(id.Zoom))
	return result
}

// Store keeps one PNG file per tile under a directory. Distinct tiles map to
// distinct files, so concurrent writers of different tiles never collide.
type Store struct {
	dir        string
	pattern    string
	pathRegexp *regexp.Regexp
}

// NewStore creates a Store rooted at dir. The pattern is a slash-separated
// path relative to dir; an empty pattern means DefaultPattern.
func NewStore(dir, pattern string) (*Store, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	if err := validatePattern(pattern); err != nil {
		return nil, err
	}

	regexPattern := regexp.QuoteMeta(pattern)
	regexPattern = strings.ReplaceAll(regexPattern, `\{x\}`, `(?P<x>-?\d+)`)
	regexPattern = strings.ReplaceAll(regexPattern, `\{y\}`, `(?P<y>-?\d+)`)
	regexPattern = strings.ReplaceAll(regexPattern, `\{z\}`, `(?P<z>-?\d+)`)
	pathRegexp, err := regexp.Compile("^" + regexPattern + "$")
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "compiling pattern"), ErrInvalidPattern)
	}
	return &Store{dir: dir, pattern: pattern, pathRegexp: pathRegexp}, nil
}

func (s *Store) Dir() string {
	return s.dir
}

// Path returns the file holding id.
func (s *Store) Path(id ID) string {
	return filepath.Join(s.dir, filepath.FromSlash(formatPattern(s.pattern, id)))
}

func (s *Store) WriteTile(id ID, img image.Image) error {
	if err := raster.Save(img, s.Path(id)); err != nil {
		return errors.Wrapf(err, "writing tile %s", id)
	}
	return nil
}

// ReadTile loads id. A tile that does not exist yields nil and no error.
func (s *Store) ReadTile(id ID) (*image.NRGBA, error) {
	img, err := raster.Load(s.Path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading tile %s", id)
	}
	return img, nil
}

func (s *Store) HasTile(id ID) bool {
	_, err := os.Stat(s.Path(id))
	return err == nil
}

// List returns the sorted ids of every stored tile at zoom.
func (s *Store) List(zoom int) ([]ID, error) {
	var ids []ID
	err := s.visit(func(id ID) {
		if id.Zoom == zoom {
			ids = append(ids, id)
		}
	})
	Sort(ids)
	return ids, err
}

// Levels returns the stored tiles grouped by zoom.
func (s *Store) Levels() (map[int][]ID, error) {
	levels := make(map[int][]ID)
	err := s.visit(func(id ID) {
		levels[id.Zoom] = append(levels[id.Zoom], id)
	})
	for _, ids := range levels {
		Sort(ids)
	}
	return levels, err
}

func (s *Store) visit(visitor func(ID)) error {
	err := filepath.WalkDir(s.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.dir, path)
		if err != nil {
			return err
		}
		matches := s.pathRegexp.FindStringSubmatch(filepath.ToSlash(rel))
		if matches == nil {
			return nil
		}

		var id ID
		for _, f := range []struct {
			name string
			dst  *int
		}{{"x", &id.X}, {"y", &id.Y}, {"z", &id.Zoom}} {
			v, err := strconv.Atoi(matches[s.pathRegexp.SubexpIndex(f.name)])
			if err != nil {
				return errors.Wrapf(err, "%s", path)
			}
			*f.dst = v
		}
		visitor(id)
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
