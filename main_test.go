package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astei/savemap/chunk/chunktest"
	"github.com/astei/savemap/pipeline"
	"github.com/astei/savemap/region/regiontest"
)

func testWorld(t *testing.T) string {
	t.Helper()
	world := t.TempDir()
	dir := filepath.Join(world, "region")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, regiontest.NewBuilder().
		Add(0, 42, chunktest.New(0, 0).Fill(2).Encode()).
		WriteFile(filepath.Join(dir, "r.0.0.mcr")))
	return world
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := newApp(&out, io.Discard).Run(append([]string{"savemap", "--env-file", ""}, args...))
	return out.String(), err
}

func TestBuild(t *testing.T) {
	world := testWorld(t)
	out := filepath.Join(t.TempDir(), "map")
	prom := filepath.Join(t.TempDir(), "savemap.prom")

	stdout, err := run(t, "-q", "-o", out, "--min-zoom", "-1", "--metrics-file", prom, "build", world)
	require.NoError(t, err)
	assert.Contains(t, stdout, "ZOOM")

	m, err := pipeline.LoadManifest(filepath.Join(out, pipeline.ManifestName))
	require.NoError(t, err)
	assert.Equal(t, []int{0, -1}, m.Tiles.Zooms())

	raw, err := os.ReadFile(prom)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "savemap_records_total 1")
}

func TestRenderThenZoom(t *testing.T) {
	world := testWorld(t)
	out := filepath.Join(t.TempDir(), "map")

	_, err := run(t, "-q", "-o", out, "render", world)
	require.NoError(t, err)
	m, err := pipeline.LoadManifest(filepath.Join(out, pipeline.ManifestName))
	require.NoError(t, err)
	assert.Equal(t, []int{0}, m.Tiles.Zooms())

	_, err = run(t, "-q", "-o", out, "--min-zoom", "-2", "zoom")
	require.NoError(t, err)
	m, err = pipeline.LoadManifest(filepath.Join(out, pipeline.ManifestName))
	require.NoError(t, err)
	assert.Equal(t, []int{0, -1, -2}, m.Tiles.Zooms())
}

func TestSettingsLayering(t *testing.T) {
	world := testWorld(t)
	file := filepath.Join(world, "region", "r.0.0.mcr")
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "savemap.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("workers: 3\nsnow: bogus\n"), 0644))

	_, err := run(t, "-c", cfgPath, "-o", dir, "dump", file)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bogus")

	require.NoError(t, os.WriteFile(cfgPath, []byte("workers: 3\n"), 0644))
	t.Setenv("SAVEMAP_WORKERS", "0")
	_, err = run(t, "-c", cfgPath, "-o", dir, "dump", file)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "workers must be positive")

	_, err = run(t, "-c", cfgPath, "-o", dir, "--workers", "2", "dump", file)
	require.NoError(t, err)
}

func TestDump(t *testing.T) {
	world := testWorld(t)
	file := filepath.Join(world, "region", "r.0.0.mcr")

	stdout, err := run(t, "dump", file)
	require.NoError(t, err)
	assert.Contains(t, stdout, "1 records")
	assert.Contains(t, stdout, "1970-01-01T00:00:42Z")

	stdout, err = run(t, "dump", file, "0")
	require.NoError(t, err)
	assert.Contains(t, stdout, "xPos")
	assert.Contains(t, stdout, "Blocks")

	_, err = run(t, "dump", file, "5")
	require.Error(t, err)
}

func TestBuildNeedsWorld(t *testing.T) {
	_, err := run(t, "-o", t.TempDir(), "build")
	require.Error(t, err)
}
