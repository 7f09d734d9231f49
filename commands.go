package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"

	"github.com/astei/savemap/config"
	"github.com/astei/savemap/metrics"
	"github.com/astei/savemap/nbt"
	"github.com/astei/savemap/palette"
	"github.com/astei/savemap/pipeline"
	"github.com/astei/savemap/region"
	"github.com/astei/savemap/tiles"
)

// env is the state shared by all commands, set up before any of them runs.
type env struct {
	stdout  io.Writer
	stderr  io.Writer
	cfg     config.Config
	logger  *slog.Logger
	metrics *metrics.Metrics
	ran     bool
}

func newApp(stdout, stderr io.Writer) *cli.App {
	e := &env{stdout: stdout, stderr: stderr, metrics: metrics.New()}
	return &cli.App{
		Name:      "savemap",
		Usage:     "renders McRegion worlds into map tiles",
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "YAML settings `FILE`"},
			&cli.StringFlag{Name: "env-file", Value: ".env", Usage: "load SAVEMAP_* variables from `FILE` if it exists"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "log every region"},
			&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "hide progress bars"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "output `DIR`"},
			&cli.StringFlag{Name: "tile-pattern", Usage: "tile path under the output directory, with {x}, {y} and {z}"},
			&cli.StringFlag{Name: "palette", Usage: "palette `FILE` replacing the built-in colors"},
			&cli.IntFlag{Name: "workers", Aliases: []string{"j"}, Usage: "concurrent units"},
			&cli.IntFlag{Name: "min-zoom", Usage: "coarsest zoom level"},
			&cli.IntFlag{Name: "max-depth", Usage: "maximum nesting in chunk records"},
			&cli.StringFlag{Name: "snow", Usage: "snow handling: skip-solid or single-layer"},
			&cli.StringFlag{Name: "resample", Usage: "pyramid resampling: nearest or linear"},
			&cli.BoolFlag{Name: "fail-fast", Usage: "stop at the first failing region or tile"},
			&cli.BoolFlag{Name: "surface-dumps", Usage: "keep raw surfaces for rebase"},
			&cli.BoolFlag{Name: "feature-db", Usage: "also write features.db"},
			&cli.StringFlag{Name: "metrics-file", Usage: "write Prometheus metrics to `FILE`"},
		},
		Before: e.setup,
		After:  e.writeMetrics,
		Commands: []*cli.Command{
			{
				Name:      "build",
				Usage:     "render a world and build its zoom levels",
				ArgsUsage: "<world or region dir | region file>...",
				Action: func(c *cli.Context) error {
					return e.render(c, true)
				},
			},
			{
				Name:      "render",
				Usage:     "render zoom 0 only",
				ArgsUsage: "<world or region dir | region file>...",
				Action: func(c *cli.Context) error {
					return e.render(c, false)
				},
			},
			{
				Name:  "zoom",
				Usage: "build zoom levels from the stored zoom 0 tiles",
				Action: func(c *cli.Context) error {
					r, err := e.renderer()
					if err != nil {
						return err
					}
					report, err := r.Zoom(c.Context)
					e.printReport(report)
					return err
				},
			},
			{
				Name:  "rebase",
				Usage: "recolor zoom 0 from stored surfaces, then rebuild zoom levels",
				Action: func(c *cli.Context) error {
					r, err := e.renderer()
					if err != nil {
						return err
					}
					report, err := r.Rebase(c.Context)
					e.printReport(report)
					return err
				},
			},
			{
				Name:      "dump",
				Usage:     "list the records of a region file, or print one record",
				ArgsUsage: "<region file> [slot]",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "max-array", Value: 16, Usage: "summarize arrays longer than this"},
				},
				Action: e.dump,
			},
		},
	}
}

func (e *env) setup(c *cli.Context) error {
	if err := config.LoadDotEnv(c.String("env-file")); err != nil {
		return err
	}
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return err
	}

	for name, set := range map[string]func(){
		"output":        func() { cfg.Output = c.String("output") },
		"tile-pattern":  func() { cfg.TilePattern = c.String("tile-pattern") },
		"palette":       func() { cfg.Palette = c.String("palette") },
		"metrics-file":  func() { cfg.MetricsFile = c.String("metrics-file") },
		"workers":       func() { cfg.Workers = c.Int("workers") },
		"min-zoom":      func() { cfg.MinZoom = c.Int("min-zoom") },
		"max-depth":     func() { cfg.MaxDepth = c.Int("max-depth") },
		"fail-fast":     func() { cfg.FailFast = c.Bool("fail-fast") },
		"surface-dumps": func() { cfg.SurfaceDumps = c.Bool("surface-dumps") },
		"feature-db":    func() { cfg.FeatureDB = c.Bool("feature-db") },
		"quiet":         func() { cfg.Quiet = c.Bool("quiet") },
	} {
		if c.IsSet(name) {
			set()
		}
	}
	if c.IsSet("snow") {
		if err := cfg.Snow.UnmarshalText([]byte(c.String("snow"))); err != nil {
			return err
		}
	}
	if c.IsSet("resample") {
		if err := cfg.Resample.UnmarshalText([]byte(c.String("resample"))); err != nil {
			return err
		}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	e.cfg = cfg

	level := slog.LevelInfo
	if c.Bool("verbose") {
		level = slog.LevelDebug
	}
	e.logger = slog.New(slog.NewTextHandler(e.stderr, &slog.HandlerOptions{Level: level}))
	return nil
}

func (e *env) renderer() (*pipeline.Renderer, error) {
	store, err := tiles.NewStore(e.cfg.Output, e.cfg.TilePattern)
	if err != nil {
		return nil, err
	}
	p := palette.Default()
	if e.cfg.Palette != "" {
		if p, err = palette.Load(e.cfg.Palette); err != nil {
			return nil, err
		}
	}
	e.ran = true
	return pipeline.New(store, pipeline.Config{
		Workers:      e.cfg.Workers,
		MinZoom:      e.cfg.MinZoom,
		MaxDepth:     e.cfg.MaxDepth,
		Snow:         e.cfg.Snow,
		Resample:     e.cfg.Resample,
		FailFast:     e.cfg.FailFast,
		SurfaceDumps: e.cfg.SurfaceDumps,
		FeatureDB:    e.cfg.FeatureDB,
		Quiet:        e.cfg.Quiet,
	},
		pipeline.WithLogger(e.logger),
		pipeline.WithPalette(p),
		pipeline.WithMetrics(e.metrics),
		pipeline.WithProgress(e.stderr),
	), nil
}

func (e *env) render(c *cli.Context, zoom bool) error {
	if c.NArg() == 0 {
		return errors.New("need a world to work with")
	}
	files, err := pipeline.RegionFiles(regionDirs(c.Args().Slice())...)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return errors.Newf("no region files in %v", c.Args().Slice())
	}
	r, err := e.renderer()
	if err != nil {
		return err
	}

	var report *pipeline.Report
	if zoom {
		report, err = r.Render(c.Context, files)
	} else {
		report, err = r.RenderBase(c.Context, files)
	}
	e.printReport(report)
	return err
}

// regionDirs points world directories at their region subdirectory.
func regionDirs(args []string) []string {
	out := make([]string, 0, len(args))
	for _, arg := range args {
		sub := filepath.Join(arg, "region")
		if info, err := os.Stat(sub); err == nil && info.IsDir() {
			arg = sub
		}
		out = append(out, arg)
	}
	return out
}

func (e *env) printReport(report *pipeline.Report) {
	if report == nil {
		return
	}
	m := report.Manifest

	tbl := tablewriter.NewWriter(e.stdout)
	tbl.SetHeader([]string{"Regions", "Failed", "Chunks", "Beds", "Signs", "Failed tiles"})
	tbl.Append([]string{
		strconv.Itoa(report.Regions),
		strconv.Itoa(report.FailedRegions),
		strconv.Itoa(report.Records),
		strconv.Itoa(len(m.Beds)),
		strconv.Itoa(len(m.Signs)),
		strconv.Itoa(report.FailedTiles),
	})
	tbl.Render()

	tbl = tablewriter.NewWriter(e.stdout)
	tbl.SetHeader([]string{"Zoom", "Tiles"})
	for _, zoom := range m.Tiles.Zooms() {
		tbl.Append([]string{strconv.Itoa(zoom), strconv.Itoa(len(m.Tiles[zoom]))})
	}
	tbl.Render()
}

func (e *env) writeMetrics(c *cli.Context) error {
	if !e.ran || e.cfg.MetricsFile == "" {
		return nil
	}
	return e.metrics.WriteTextfile(e.cfg.MetricsFile)
}

func (e *env) dump(c *cli.Context) error {
	if c.NArg() == 0 {
		return errors.New("need a region file")
	}
	reader, err := region.Open(c.Args().Get(0))
	if err != nil {
		return err
	}
	defer reader.Close()

	if c.NArg() == 1 {
		tbl := tablewriter.NewWriter(e.stdout)
		tbl.SetHeader([]string{"Slot", "X", "Z", "Modified"})
		for slot := 0; slot < region.Slots; slot++ {
			if !reader.ChunkExists(slot) {
				continue
			}
			x, z := region.SlotPosition(slot)
			modified := time.Unix(int64(reader.Timestamp(slot)), 0).UTC().Format(time.RFC3339)
			tbl.Append([]string{strconv.Itoa(slot), strconv.Itoa(x), strconv.Itoa(z), modified})
		}
		tbl.Render()
		_, err := fmt.Fprintf(e.stdout, "%d records\n", reader.Count())
		return err
	}

	slot, err := strconv.Atoi(c.Args().Get(1))
	if err != nil {
		return errors.Wrapf(err, "slot %q", c.Args().Get(1))
	}
	rec, err := reader.ReadSlot(slot)
	if err != nil {
		return err
	}
	name, v, _, err := nbt.Decoder{MaxDepth: e.cfg.MaxDepth}.Decode(rec.Data, 0)
	if err != nil {
		return errors.Wrapf(err, "slot %d", slot)
	}
	nbt.Dump(e.stdout, name, v, c.Int("max-array"))
	return nil
}
