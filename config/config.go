// Package config loads the service configuration file.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"pricepred/logging"

	"gopkg.in/yaml.v2"
)

// DefaultFile is the config file name looked up by Locate.
const DefaultFile = "config.yaml"

type Config struct {
	Http struct {
		Port           int           `yaml:"port"`
		Timeout        time.Duration `yaml:"timeout"`
		AllowedOrigins []string      `yaml:"allowed_origins"`
	} `yaml:"http"`
	Log logging.Config `yaml:"log"`
	ML  struct {
		ModelType  string `yaml:"model_type"`
		ModelPath  string `yaml:"model_path"`
		SchemaPath string `yaml:"schema_path"`
		CacheSize  int    `yaml:"cache_size"`
		// Watch enables hot reload; nil means the default (on).
		Watch *bool `yaml:"watch"`
	} `yaml:"ml"`
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	// Dir is the directory of the loaded file; relative paths resolve
	// against it.
	Dir string `yaml:"-"`
}

// Default returns the configuration used for keys absent from the file.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Http.Port == 0 {
		c.Http.Port = 8080
	}
	if c.Http.Timeout == 0 {
		c.Http.Timeout = 30 * time.Second
	}
	if len(c.Http.AllowedOrigins) == 0 {
		c.Http.AllowedOrigins = []string{"*"}
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = 100
	}
	if c.Log.MaxBackups == 0 {
		c.Log.MaxBackups = 5
	}
	if c.Log.MaxAgeDays == 0 {
		c.Log.MaxAgeDays = 30
	}
	if c.ML.ModelPath == "" {
		c.ML.ModelPath = "models/pricepred.json"
	}
	if c.ML.SchemaPath == "" {
		c.ML.SchemaPath = "models/columns.json"
	}
	if c.ML.CacheSize == 0 {
		c.ML.CacheSize = 1024
	}
	if c.ML.Watch == nil {
		watch := true
		c.ML.Watch = &watch
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/predictions.db"
	}
}

// WatchEnabled reports whether artifact hot reload is on.
func (c *Config) WatchEnabled() bool {
	return c.ML.Watch == nil || *c.ML.Watch
}

// Load decodes the file at path, fills defaults and resolves relative
// paths against the file's directory.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var cfg Config
	if err := yaml.NewDecoder(file).Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	cfg.applyDefaults()

	dir, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, err
	}
	cfg.Dir = dir
	cfg.ML.ModelPath = cfg.Resolve(cfg.ML.ModelPath)
	cfg.ML.SchemaPath = cfg.Resolve(cfg.ML.SchemaPath)
	cfg.Database.Path = cfg.Resolve(cfg.Database.Path)
	if cfg.Log.File != "" {
		cfg.Log.File = cfg.Resolve(cfg.Log.File)
	}
	return &cfg, nil
}

// Resolve makes p absolute relative to the config directory.
func (c *Config) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || c.Dir == "" {
		return p
	}
	return filepath.Join(c.Dir, p)
}

// Locate finds the config file: explicit wins, then ./config.yaml, then
// ../config.yaml for binaries started from cmd/.
func Locate(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	for _, candidate := range []string{DefaultFile, filepath.Join("..", DefaultFile)} {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%s not found in . or ..", DefaultFile)
}
