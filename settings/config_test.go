package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/btree-query-bench/lineindex/dbms/index"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Default(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_OverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
logger:
  log_level: debug
  file_log_name: ./lineindex.log
index:
  compression: none
bench:
  workers: 8
  csv: out.csv
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logger.LogLevel)
	assert.Equal(t, "./lineindex.log", cfg.Logger.FileLogName)
	assert.Equal(t, 3, cfg.Logger.MaxBackups)
	assert.Equal(t, "none", cfg.Index.Compression)
	assert.Equal(t, 8, cfg.Bench.Workers)
	assert.Equal(t, 100000, cfg.Bench.Ops)
	assert.Equal(t, "out.csv", cfg.Bench.CSV)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.True(t, errors.Is(err, index.ErrIO))

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("logger: [1, 2"), 0644))
	_, err = Load(bad)
	assert.Error(t, err)

	invalid := filepath.Join(dir, "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("bench:\n  workers: 0\n"), 0644))
	_, err = Load(invalid)
	assert.ErrorContains(t, err, "at least one worker")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"default", func(*Config) {}, true},
		{"bad_level", func(c *Config) { c.Logger.LogLevel = "trace" }, false},
		{"bad_compression", func(c *Config) { c.Index.Compression = "zstd" }, false},
		{"negative_capacity", func(c *Config) { c.Index.Capacity = -1 }, false},
		{"negative_ops", func(c *Config) { c.Bench.Ops = -5 }, false},
		{"miss_ratio", func(c *Config) { c.Bench.MissRatio = 101 }, false},
		{"empty_level", func(c *Config) { c.Logger.LogLevel = "" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
