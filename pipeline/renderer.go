// Package pipeline renders a world's region files into a tile pyramid and a
// feature manifest.
//
// Rendering runs in two stages. The extract stage handles one region file
// per unit: it decodes every chunk, writes the region's zoom 0 tile and
// collects its beds and signs. The pyramid stage then builds each coarser
// zoom level from the one below it, one parent tile per unit. Units of a
// stage run concurrently; levels run one after another.
package pipeline

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"github.com/cockroachdb/errors"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"

	"github.com/astei/savemap/chunk"
	"github.com/astei/savemap/featuredb"
	"github.com/astei/savemap/metrics"
	"github.com/astei/savemap/palette"
	"github.com/astei/savemap/raster"
	"github.com/astei/savemap/tiles"
)

const (
	ManifestName = "manifest.json"
	SurfaceDir   = "surface"
)

type Config struct {
	// Workers bounds the units running at once. Zero means runtime.NumCPU.
	Workers int
	// MinZoom is the coarsest level built.
	MinZoom int
	// MaxDepth bounds compound and list nesting in chunk records.
	MaxDepth int

	Snow     chunk.SnowStrategy
	Resample raster.Resample

	// FailFast stops a stage at its first failing unit. Otherwise failures
	// are logged, the remaining units complete and the stage returns all
	// failures joined.
	FailFast bool
	// SurfaceDumps keeps the raw surface ids of every region for Rebase.
	SurfaceDumps bool
	// FeatureDB also writes features and tiles to a SQLite index.
	FeatureDB bool
	// Quiet hides progress bars.
	Quiet bool
}

type Renderer struct {
	cfg      Config
	store    *tiles.Store
	palette  *palette.Palette
	logger   *slog.Logger
	metrics  *metrics.Metrics
	progress io.Writer
}

type Option func(*Renderer)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Renderer) { r.logger = logger }
}

func WithPalette(p *palette.Palette) Option {
	return func(r *Renderer) { r.palette = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Renderer) { r.metrics = m }
}

// WithProgress sets where progress bars are drawn. The default is stderr.
func WithProgress(w io.Writer) Option {
	return func(r *Renderer) { r.progress = w }
}

// New creates a Renderer writing into store.
func New(store *tiles.Store, cfg Config, opts ...Option) *Renderer {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	r := &Renderer{
		cfg:      cfg,
		store:    store,
		palette:  palette.Default(),
		logger:   slog.New(slog.DiscardHandler),
		progress: os.Stderr,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.metrics == nil {
		r.metrics = metrics.New()
	}
	return r
}

func (r *Renderer) Metrics() *metrics.Metrics {
	return r.metrics
}

func (r *Renderer) manifestPath() string {
	return filepath.Join(r.store.Dir(), ManifestName)
}

func (r *Renderer) surfaceDir() string {
	return filepath.Join(r.store.Dir(), SurfaceDir)
}

func (r *Renderer) newBar(n int, desc string) *progressbar.ProgressBar {
	return progressbar.NewOptions(n,
		progressbar.OptionSetWriter(r.progress),
		progressbar.OptionSetDescription(desc),
		progressbar.OptionShowCount(),
		progressbar.OptionSetVisibility(!r.cfg.Quiet),
		progressbar.OptionClearOnFinish(),
	)
}

// runUnits runs unit(i) for i in [0, n) on the worker pool. Failures are
// logged and counted under stage. It returns the failures joined, or with
// FailFast only the first one, and the number of failed units.
func (r *Renderer) runUnits(ctx context.Context, stage, desc string, n int, name func(i int) string, unit func(ctx context.Context, i int) error) (int, error) {
	bar := r.newBar(n, desc)
	defer func() { _ = bar.Finish() }()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			err := unit(gctx, i)
			_ = bar.Add(1)
			if err == nil {
				return nil
			}
			errs[i] = err
			r.metrics.Failed(stage)
			r.logger.Error("unit failed", "stage", stage, "unit", name(i), "error", err)
			if r.cfg.FailFast {
				return err
			}
			return nil
		})
	}
	waitErr := g.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
		}
	}
	if r.cfg.FailFast && waitErr != nil {
		return failed, waitErr
	}
	if waitErr != nil {
		errs = append(errs, waitErr)
	}
	return failed, errors.Join(errs...)
}

func (r *Renderer) openFeatureDB() (*featuredb.DB, error) {
	return featuredb.Open(filepath.Join(r.store.Dir(), featuredb.FileName), featuredb.WithLogger(r.logger))
}
