package metrics_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/astei/savemap/metrics"
)

func TestCounters(t *testing.T) {
	m := metrics.New()
	m.Records.Add(3)
	m.AddUnknown(200, 5)
	m.AddUnknown(200, 2)
	m.AddUnknown(7, 1)
	m.Failed(metrics.StageExtract)
	m.TileWritten(0)
	m.TileWritten(-1)
	m.TileWritten(-1)

	require.Equal(t, 3.0, testutil.ToFloat64(m.Records))
	require.Equal(t, 7.0, testutil.ToFloat64(m.UnknownBlocks.WithLabelValues("200")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.FailedUnits.WithLabelValues("extract")))
	require.Equal(t, 2.0, testutil.ToFloat64(m.TilesWritten.WithLabelValues("-1")))
	require.Equal(t, 2, testutil.CollectAndCount(m.UnknownBlocks))
}

func TestWriteTextfile(t *testing.T) {
	m := metrics.New()
	m.Records.Inc()
	m.RegionDuration.Observe(0.5)
	path := filepath.Join(t.TempDir(), "savemap.prom")
	require.NoError(t, m.WriteTextfile(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(raw), "savemap_records_total 1")
	require.Contains(t, string(raw), "savemap_region_duration_seconds_count 1")
}
