package pipeline

import (
	"context"
	"strconv"

	"github.com/cockroachdb/errors"

	"github.com/astei/savemap/metrics"
	"github.com/astei/savemap/tiles"
)

// PyramidResult lists, per zoom level, the tiles present.
type PyramidResult struct {
	Levels Levels
	Failed int
}

// BuildPyramid builds every level from -1 down to MinZoom out of the zoom 0
// tiles in level0. Parents are composed only from the tiles listed for the
// level below, never from other files left in the store. A level only starts
// once the previous one is fully written. Building stops early if a level
// ends up empty.
func (r *Renderer) BuildPyramid(ctx context.Context, level0 []tiles.ID) (*PyramidResult, error) {
	current := sortedCopy(level0)
	res := &PyramidResult{Levels: Levels{0: current}}
	builder := &tiles.Builder{Store: r.store, Resample: r.cfg.Resample}

	var errs []error
	for zoom := -1; zoom >= r.cfg.MinZoom; zoom-- {
		parents := tiles.SquashAll(current)
		if len(parents) == 0 {
			break
		}
		source := tiles.NewSet(current)

		written := make([]bool, len(parents))
		failed, err := r.runUnits(ctx, metrics.StagePyramid, "zoom "+strconv.Itoa(zoom), len(parents),
			func(i int) string { return parents[i].String() },
			func(ctx context.Context, i int) error {
				ok, err := builder.Build(parents[i], source)
				if ok {
					written[i] = true
					r.metrics.TileWritten(zoom)
				}
				return err
			})
		res.Failed += failed
		if err != nil {
			if r.cfg.FailFast {
				return nil, err
			}
			errs = append(errs, err)
		}

		current = current[:0:0]
		for i, id := range parents {
			if written[i] {
				current = append(current, id)
			}
		}
		res.Levels[zoom] = current
		r.logger.Info("zoom level built", "zoom", zoom, "tiles", len(current), "failed", failed)
	}
	return res, errors.Join(errs...)
}
