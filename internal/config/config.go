package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	domindex "github.com/kailas-cloud/esgate/internal/domain/index"
	"github.com/kailas-cloud/esgate/internal/domain/index/field"
)

// Config holds the esgate configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Search   SearchConfig   `yaml:"search"`
	Storage  StorageConfig  `yaml:"storage"`
	Auth     AuthConfig     `yaml:"auth"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error (default: determined by env)
	Format string `yaml:"format"` // json, console (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int   `yaml:"port"`
	ReadTimeoutSec  int   `yaml:"read_timeout_sec"`
	WriteTimeoutSec int   `yaml:"write_timeout_sec"`
	ShutdownSec     int   `yaml:"shutdown_timeout_sec"`
	MaxBodyBytes    int64 `yaml:"max_body_bytes"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // redis (default: redis)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// SearchConfig holds query execution settings and the declared indexes.
type SearchConfig struct {
	DefaultMaxConcurrentSearches int           `yaml:"default_max_concurrent_searches"`
	EnsureIndexes                *bool         `yaml:"ensure_indexes"` // create missing FT indexes on startup (default: true)
	Indexes                      []IndexConfig `yaml:"indexes"`
}

// IndexConfig declares one searchable index.
type IndexConfig struct {
	Name    string        `yaml:"name"`
	Storage string        `yaml:"storage"` // json, hash (default: json)
	Fields  []FieldConfig `yaml:"fields"`
}

// FieldConfig declares one indexed field.
type FieldConfig struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"` // tag, numeric, text
	Path     string `yaml:"path"` // JSON path (default: $.<name>)
	Sortable bool   `yaml:"sortable"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// PathEnvVar names a config file that overrides the per-environment lookup.
const PathEnvVar = "ESGATE_CONFIG"

// Load reads config/<env>.yaml, or the file named by ESGATE_CONFIG when set.
func Load(env string) (Config, error) {
	if path := os.Getenv(PathEnvVar); path != "" {
		return LoadFile(path)
	}
	return LoadFile(findConfigPath(env))
}

// LoadFile reads, expands, defaults and validates one configuration file.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		c.HTTP.MaxBodyBytes = 10 << 20
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "redis"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Search.DefaultMaxConcurrentSearches <= 0 {
		c.Search.DefaultMaxConcurrentSearches = 10
	}
	if c.Search.EnsureIndexes == nil {
		ensure := true
		c.Search.EnsureIndexes = &ensure
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "esgate:"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Database.Driver != "redis" {
		return fmt.Errorf("database.driver must be \"redis\", got %q", c.Database.Driver)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	if _, err := c.Search.DomainIndexes(); err != nil {
		return err
	}
	return nil
}

// DomainIndexes converts the declared indexes. Index names must be unique.
func (s SearchConfig) DomainIndexes() ([]domindex.Index, error) {
	out := make([]domindex.Index, 0, len(s.Indexes))
	seen := make(map[string]bool, len(s.Indexes))
	for i, ic := range s.Indexes {
		if seen[ic.Name] {
			return nil, fmt.Errorf("search.indexes[%d]: duplicate index %q", i, ic.Name)
		}
		seen[ic.Name] = true

		fields := make([]field.Field, 0, len(ic.Fields))
		for j, fc := range ic.Fields {
			ft, err := field.ParseType(fc.Type)
			if err != nil {
				return nil, fmt.Errorf("search.indexes[%d].fields[%d]: %w", i, j, err)
			}
			f, err := field.New(fc.Name, ft, fc.Path, fc.Sortable)
			if err != nil {
				return nil, fmt.Errorf("search.indexes[%d].fields[%d]: %w", i, j, err)
			}
			fields = append(fields, f)
		}

		idx, err := domindex.New(ic.Name, domindex.Storage(strings.ToLower(ic.Storage)), fields)
		if err != nil {
			return nil, fmt.Errorf("search.indexes[%d]: %w", i, err)
		}
		out = append(out, idx)
	}
	return out, nil
}

// findConfigPath prefers ./config and falls back to the repository's config
// directory, which lets tests run from any package directory.
func findConfigPath(env string) string {
	local := filepath.Join("config", env+".yaml")
	if fileExists(local) {
		return local
	}
	_, self, _, _ := runtime.Caller(0)
	root := filepath.Join(filepath.Dir(self), "..", "..")
	if path := filepath.Join(root, local); fileExists(path) {
		return path
	}
	return local
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
