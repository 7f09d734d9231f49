package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/astei/savemap/chunk"
	"github.com/astei/savemap/metrics"
	"github.com/astei/savemap/nbt"
	"github.com/astei/savemap/region"
	"github.com/astei/savemap/tiles"
)

// RegionFile is one container file of the world.
type RegionFile struct {
	Path  string
	Coord region.Coord
}

// Discover lists the region files in dir, sorted by coordinate. Files with
// other names are skipped.
func Discover(dir string) ([]RegionFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []RegionFile
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), region.Ext) {
			continue
		}
		coord, err := region.ParseName(e.Name())
		if err != nil {
			continue
		}
		files = append(files, RegionFile{Path: filepath.Join(dir, e.Name()), Coord: coord})
	}
	sort.Slice(files, func(i, j int) bool {
		a, b := files[i].Coord, files[j].Coord
		if a.Z != b.Z {
			return a.Z < b.Z
		}
		return a.X < b.X
	})
	return files, nil
}

// ExtractResult gathers the output of the extract stage, in input order.
type ExtractResult struct {
	// Tiles lists the zoom 0 tiles written.
	Tiles   []tiles.ID
	Beds    []chunk.Bed
	Signs   []chunk.Sign
	Records int
	Failed  int
}

type regionResult struct {
	tile    tiles.ID
	beds    []chunk.Bed
	signs   []chunk.Sign
	records int
}

// Extract renders the zoom 0 tile of every file. With FailFast the result is
// nil on error; otherwise it holds every region that succeeded and the error
// joins the failures.
func (r *Renderer) Extract(ctx context.Context, files []RegionFile) (*ExtractResult, error) {
	results := make([]*regionResult, len(files))
	failed, err := r.runUnits(ctx, metrics.StageExtract, "regions", len(files),
		func(i int) string { return files[i].Path },
		func(ctx context.Context, i int) error {
			res, err := r.renderRegion(ctx, files[i])
			results[i] = res
			return err
		})
	if err != nil && r.cfg.FailFast {
		return nil, err
	}

	out := &ExtractResult{
		Tiles:  []tiles.ID{},
		Beds:   []chunk.Bed{},
		Signs:  []chunk.Sign{},
		Failed: failed,
	}
	for _, res := range results {
		if res == nil {
			continue
		}
		out.Tiles = append(out.Tiles, res.tile)
		out.Beds = append(out.Beds, res.beds...)
		out.Signs = append(out.Signs, res.signs...)
		out.Records += res.records
	}
	r.logger.Info("extract finished",
		"regions", len(files), "failed", failed, "records", out.Records,
		"beds", len(out.Beds), "signs", len(out.Signs))
	return out, err
}

func (r *Renderer) renderRegion(ctx context.Context, file RegionFile) (*regionResult, error) {
	start := time.Now()
	reader, err := region.Open(file.Path)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	dec := nbt.Decoder{MaxDepth: r.cfg.MaxDepth}
	extractor := chunk.Extractor{Snow: r.cfg.Snow}
	res := &regionResult{tile: tiles.ID{X: file.Coord.X, Y: file.Coord.Z}}
	var surface tiles.Surface

	err = reader.Each(func(rec region.Record) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		level, err := chunk.DecodeWith(dec, rec.Data)
		if err != nil {
			return errors.Wrapf(err, "slot %d", rec.Slot)
		}
		extracted, err := extractor.ExtractInRegion(level, rec.Timestamp, file.Coord)
		if err != nil {
			return errors.Wrapf(err, "slot %d", rec.Slot)
		}
		surface.SetChunk(extracted.X, extracted.Z, &extracted.Surface)
		res.beds = append(res.beds, extracted.Beds...)
		res.signs = append(res.signs, extracted.Signs...)
		res.records++
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "region %s", file.Path)
	}
	r.metrics.Records.Add(float64(res.records))

	if err := r.writeSurface(file.Coord, &surface); err != nil {
		return nil, err
	}
	if r.cfg.SurfaceDumps {
		path := filepath.Join(r.surfaceDir(), tiles.DumpName(file.Coord))
		if err := tiles.SaveSurface(path, file.Coord, &surface); err != nil {
			return nil, err
		}
	}

	r.metrics.RegionDuration.Observe(time.Since(start).Seconds())
	r.logger.Debug("region rendered",
		"region", file.Coord, "records", res.records, "duration", time.Since(start))
	return res, nil
}

// writeSurface colors a region surface and stores it as the region's zoom 0
// tile.
func (r *Renderer) writeSurface(coord region.Coord, surface *tiles.Surface) error {
	var unknown [256]int
	img := tiles.Rasterize(surface, r.palette, func(id byte) { unknown[id]++ })
	for id, n := range unknown {
		if n == 0 {
			continue
		}
		r.metrics.AddUnknown(byte(id), n)
		r.logger.Debug("unknown block id", "region", coord, "block", id, "pixels", n)
	}

	id := tiles.ID{X: coord.X, Y: coord.Z}
	if err := r.store.WriteTile(id, img); err != nil {
		return err
	}
	r.metrics.TileWritten(0)
	return nil
}
