package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/achilleasa/sunray/asset"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	file := filepath.Join(t.TempDir(), "sunray.json")
	require.NoError(t, os.WriteFile(file, []byte(`{
  "build": {"max_leaf_primitives": 4, "ray_epsilon": 0.001},
  "grid": {"columns": 2},
  "compression": "lz4",
  "workers": 8
}`), 0o644))

	cfg, err := LoadConfig(file)
	require.NoError(t, err)

	exp := DefaultConfig()
	exp.Build.MaxLeafPrimitives = 4
	exp.Build.RayEpsilon = 0.001
	exp.Grid.Columns = 2
	exp.Compression = "lz4"
	exp.Workers = 8
	require.Equal(t, exp, cfg)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	require.ErrorIs(t, err, os.ErrNotExist)

	file := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(file, []byte(`{"workers": "many"}`), 0o644))
	_, err = LoadConfig(file)
	require.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.Workers = 0
	require.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Compression = "brotli"
	require.ErrorIs(t, cfg.Validate(), asset.ErrUnknownCompression)
}
