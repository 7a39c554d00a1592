package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "data/updated_supplier_dataset.csv", cfg.Data.RawPath)
	assert.Equal(t, "processed/supplier_dataset_with_risk.csv", cfg.Data.ProcessedPath)
	assert.Equal(t, "models/supplier_failure_gbt.json", cfg.Data.ModelPath)
	assert.Equal(t, 0.7, cfg.Ranking.RiskWeight)
	assert.Equal(t, 0.3, cfg.Ranking.DistWeight)
	assert.Equal(t, "India", cfg.Ranking.WarehouseCountry)
	assert.True(t, cfg.Features.Noise)
	assert.Equal(t, 50, cfg.Model.Rounds)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	yaml := `
ranking:
  warehouse_country: Germany
weather:
  key: test-key
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "Germany", cfg.Ranking.WarehouseCountry)
	assert.Equal(t, "test-key", cfg.Weather.Key)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Untouched keys keep defaults.
	assert.Equal(t, 0.7, cfg.Ranking.RiskWeight)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("RISK_CONFLICT_KEY", "env-token")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "env-token", cfg.Conflict.Key)
}

func TestValidate_BadWeights(t *testing.T) {
	cfg := Default()
	cfg.Ranking.RiskWeight = -1

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "weights")
}

func TestValidate_BadDriver(t *testing.T) {
	cfg := Default()
	cfg.Store.Driver = "oracle"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver")
}

func TestInitLogger_BadLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "nope", Format: "json"})
	require.Error(t, err)
}

func TestInitLogger_Console(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
}
