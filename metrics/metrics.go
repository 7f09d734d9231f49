// Package metrics counts what a render run did, for export through the
// node exporter textfile collector.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "savemap"

// Stage names used as the stage label.
const (
	StageExtract = "extract"
	StagePyramid = "pyramid"
	StageRebase  = "rebase"
)

type Metrics struct {
	Registry *prometheus.Registry

	Records        prometheus.Counter
	UnknownBlocks  *prometheus.CounterVec
	FailedUnits    *prometheus.CounterVec
	TilesWritten   *prometheus.CounterVec
	RegionDuration prometheus.Histogram
}

// New creates the collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Records: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_total",
			Help:      "Chunk records decoded.",
		}),
		UnknownBlocks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unknown_blocks_total",
			Help:      "Surface pixels whose block id has no palette color.",
		}, []string{"block"}),
		FailedUnits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failed_units_total",
			Help:      "Regions or tiles that failed to render.",
		}, []string{"stage"}),
		TilesWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tiles_written_total",
			Help:      "Tiles written, by zoom level.",
		}, []string{"zoom"}),
		RegionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "region_duration_seconds",
			Help:      "Time to extract and rasterize one region.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
	}
	m.Registry.MustRegister(m.Records, m.UnknownBlocks, m.FailedUnits, m.TilesWritten, m.RegionDuration)
	return m
}

func (m *Metrics) AddUnknown(id byte, n int) {
	m.UnknownBlocks.WithLabelValues(strconv.Itoa(int(id))).Add(float64(n))
}

func (m *Metrics) Failed(stage string) {
	m.FailedUnits.WithLabelValues(stage).Inc()
}

func (m *Metrics) TileWritten(zoom int) {
	m.TilesWritten.WithLabelValues(strconv.Itoa(zoom)).Inc()
}

// WriteTextfile writes every metric to path in the text exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry)
}
