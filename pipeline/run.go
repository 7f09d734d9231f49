package pipeline

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"

	"github.com/astei/savemap/metrics"
	"github.com/astei/savemap/region"
	"github.com/astei/savemap/tiles"
)

// Report summarizes a run.
type Report struct {
	Manifest *Manifest
	Regions  int
	Records  int
	// FailedRegions counts extract or rebase units that failed.
	FailedRegions int
	FailedTiles   int
}

// Render runs both stages over files and writes the manifest. Unless
// FailFast is set, failing units do not stop the run: everything that
// succeeded is written and the returned error joins the failures.
func (r *Renderer) Render(ctx context.Context, files []RegionFile) (*Report, error) {
	return r.render(ctx, files, true)
}

// RenderBase runs only the extract stage. The manifest lists zoom 0 alone.
func (r *Renderer) RenderBase(ctx context.Context, files []RegionFile) (*Report, error) {
	return r.render(ctx, files, false)
}

func (r *Renderer) render(ctx context.Context, files []RegionFile, pyramid bool) (*Report, error) {
	extracted, extractErr := r.Extract(ctx, files)
	if extracted == nil {
		return nil, extractErr
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.CombineErrors(err, extractErr)
	}

	m := NewManifest()
	m.Beds = extracted.Beds
	m.Signs = extracted.Signs
	report, err := r.finish(ctx, m, extracted.Tiles, true, pyramid)
	if report != nil {
		report.Regions = len(files)
		report.Records = extracted.Records
		report.FailedRegions = extracted.Failed
	}
	return report, errors.Join(extractErr, err)
}

// Zoom rebuilds the pyramid from the zoom 0 tiles already stored and updates
// the manifest's tile lists, keeping its features.
func (r *Renderer) Zoom(ctx context.Context) (*Report, error) {
	level0, err := r.store.List(0)
	if err != nil {
		return nil, err
	}
	m, err := LoadManifest(r.manifestPath())
	if errors.Is(err, fs.ErrNotExist) {
		m = NewManifest()
	} else if err != nil {
		return nil, err
	}
	return r.finish(ctx, m, level0, false, true)
}

func (r *Renderer) finish(ctx context.Context, m *Manifest, level0 []tiles.ID, withFeatures, withPyramid bool) (*Report, error) {
	pyramid := &PyramidResult{Levels: Levels{0: sortedCopy(level0)}}
	var pyramidErr error
	if withPyramid {
		pyramid, pyramidErr = r.BuildPyramid(ctx, level0)
		if pyramid == nil {
			return nil, pyramidErr
		}
	}
	m.Tiles = pyramid.Levels
	if err := m.Save(r.manifestPath()); err != nil {
		return nil, errors.CombineErrors(err, pyramidErr)
	}
	if r.cfg.FeatureDB {
		if err := r.writeFeatureDB(ctx, m, withFeatures); err != nil {
			return nil, errors.CombineErrors(err, pyramidErr)
		}
	}
	return &Report{Manifest: m, FailedTiles: pyramid.Failed}, pyramidErr
}

func (r *Renderer) writeFeatureDB(ctx context.Context, m *Manifest, withFeatures bool) (err error) {
	db, err := r.openFeatureDB()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := db.Close(); err == nil {
			err = cerr
		}
	}()
	if withFeatures {
		if err := db.WriteFeatures(ctx, m.Beds, m.Signs); err != nil {
			return err
		}
	}
	return db.WriteLevels(ctx, m.Tiles)
}

// Rebase colors the stored surface dumps again with the current palette,
// replacing the zoom 0 tiles, and then rebuilds the pyramid like Zoom.
func (r *Renderer) Rebase(ctx context.Context) (*Report, error) {
	paths, err := filepath.Glob(filepath.Join(r.surfaceDir(), "r.*.dat.zst"))
	if err != nil {
		return nil, err
	}
	failed, rebaseErr := r.runUnits(ctx, metrics.StageRebase, "rebase", len(paths),
		func(i int) string { return paths[i] },
		func(ctx context.Context, i int) error {
			coord, surface, err := tiles.LoadSurface(paths[i])
			if err != nil {
				return err
			}
			return r.writeSurface(coord, surface)
		})
	if rebaseErr != nil && r.cfg.FailFast {
		return nil, rebaseErr
	}

	report, err := r.Zoom(ctx)
	if report != nil {
		report.Regions = len(paths)
		report.FailedRegions = failed
	}
	return report, errors.Join(rebaseErr, err)
}

func sortedCopy(ids []tiles.ID) []tiles.ID {
	out := append([]tiles.ID{}, ids...)
	tiles.Sort(out)
	return out
}

// RegionFiles returns the region files named by paths. A directory stands
// for all region files inside it.
func RegionFiles(paths ...string) ([]RegionFile, error) {
	var files []RegionFile
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if info.IsDir() {
			found, err := Discover(p)
			if err != nil {
				return nil, err
			}
			files = append(files, found...)
			continue
		}
		coord, err := region.ParseName(p)
		if err != nil {
			return nil, err
		}
		files = append(files, RegionFile{Path: p, Coord: coord})
	}
	return files, nil
}
