package settings

import (
	"os"

	"github.com/btree-query-bench/lineindex/dbms/index"
	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Logger Logger `yaml:"logger"`
	Index  Index  `yaml:"index"`
	Bench  Bench  `yaml:"bench"`
}

// Logger is the configuration for the logger
type Logger struct {
	LogLevel    string `yaml:"log_level"`
	FileLogName string `yaml:"file_log_name"`
	MaxBackups  int    `yaml:"max_backups"`
	MaxAge      int    `yaml:"max_age"`
	MaxSize     int    `yaml:"max_size"`
	Compress    bool   `yaml:"compress"`
}

// Index is the configuration for index files
type Index struct {
	// Compression is "snappy" or "none".
	Compression string `yaml:"compression"`
	// Capacity overrides the node capacity of new indexes when positive.
	Capacity int `yaml:"capacity"`
}

// Bench is the configuration for the benchmark workload
type Bench struct {
	Ops       int    `yaml:"ops"`
	Seeks     int    `yaml:"seeks"`
	SeekCount int    `yaml:"seek_count"`
	Workers   int    `yaml:"workers"`
	MissRatio int    `yaml:"miss_ratio"`
	Seed      int64  `yaml:"seed"`
	Dir       string `yaml:"dir"`
	CSV       string `yaml:"csv"`
	Plot      string `yaml:"plot"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Logger: Logger{
			LogLevel:   "info",
			MaxBackups: 3,
			MaxAge:     28,
			MaxSize:    100,
		},
		Index: Index{Compression: "snappy"},
		Bench: Bench{
			Ops:       100000,
			Seeks:     1000,
			SeekCount: 100,
			Workers:   4,
			MissRatio: 10,
			Seed:      1,
		},
	}
}

// Load reads a YAML file over the defaults. An empty path yields Default().
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, index.IOError(err, "settings: read")
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrapf(err, "settings: parse %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	switch c.Logger.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return errors.Newf("settings: unknown log level %q", c.Logger.LogLevel)
	}
	switch c.Index.Compression {
	case "", "snappy", "none":
	default:
		return errors.Newf("settings: unknown compression %q", c.Index.Compression)
	}
	if c.Index.Capacity < 0 {
		return errors.Newf("settings: negative index capacity %d", c.Index.Capacity)
	}
	b := c.Bench
	switch {
	case b.Ops < 0 || b.Seeks < 0 || b.SeekCount < 0:
		return errors.Newf("settings: bench counts must not be negative")
	case b.Workers < 1:
		return errors.Newf("settings: bench needs at least one worker, got %d", b.Workers)
	case b.MissRatio < 0 || b.MissRatio > 100:
		return errors.Newf("settings: bench miss ratio %d outside 0..100", b.MissRatio)
	}
	return nil
}
