package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	domindex "github.com/kailas-cloud/esgate/internal/domain/index"
	"github.com/kailas-cloud/esgate/internal/domain/index/field"
)

func validConfig() Config {
	return Config{
		HTTP:     HTTPConfig{Port: 9200},
		Database: DatabaseConfig{Driver: "redis", Addrs: []string{"localhost:6379"}},
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 0

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_MissingAddrs(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Addrs = nil

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing database addrs")
	}
}

func TestValidate_UnknownDriver(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Driver = "valkey"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for unsupported driver")
	}
	expected := `database.driver must be "redis", got "valkey"`
	if err.Error() != expected {
		t.Errorf("unexpected error message:\ngot:  %q\nwant: %q", err.Error(), expected)
	}
}

func TestValidate_Indexes(t *testing.T) {
	tests := []struct {
		name    string
		indexes []IndexConfig
		wantErr string
	}{
		{
			name:    "bad field type",
			indexes: []IndexConfig{{Name: "logs", Fields: []FieldConfig{{Name: "status", Type: "vector"}}}},
			wantErr: "search.indexes[0].fields[0]",
		},
		{
			name:    "no fields",
			indexes: []IndexConfig{{Name: "logs"}},
			wantErr: "search.indexes[0]",
		},
		{
			name:    "bad index name",
			indexes: []IndexConfig{{Name: "Logs!", Fields: []FieldConfig{{Name: "status", Type: "numeric"}}}},
			wantErr: "search.indexes[0]",
		},
		{
			name:    "bad storage",
			indexes: []IndexConfig{{Name: "logs", Storage: "xml", Fields: []FieldConfig{{Name: "a", Type: "tag"}}}},
			wantErr: "invalid storage type",
		},
		{
			name:    "duplicate index",
			indexes: []IndexConfig{
				{Name: "logs", Fields: []FieldConfig{{Name: "a", Type: "tag"}}},
				{Name: "logs", Fields: []FieldConfig{{Name: "b", Type: "tag"}}},
			},
			wantErr: `duplicate index "logs"`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Search.Indexes = tc.indexes

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error %q does not mention %q", err, tc.wantErr)
			}
		})
	}
}

func TestDomainIndexes(t *testing.T) {
	s := SearchConfig{Indexes: []IndexConfig{{
		Name:    "logs",
		Storage: "HASH",
		Fields: []FieldConfig{
			{Name: "status", Type: "Numeric", Sortable: true},
			{Name: "msg", Type: "text", Path: "$.message"},
		},
	}}}

	indexes, err := s.DomainIndexes()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(indexes) != 1 {
		t.Fatalf("expected 1 index, got %d", len(indexes))
	}
	idx := indexes[0]
	if idx.Name() != "logs" || idx.Storage() != domindex.StorageHash {
		t.Errorf("index = %s/%s", idx.Name(), idx.Storage())
	}
	status, ok := idx.FieldByName("status")
	if !ok || status.FieldType() != field.Numeric || !status.Sortable() {
		t.Errorf("status field = %+v", status)
	}
	msg, _ := idx.FieldByName("msg")
	if msg.Path() != "$.message" {
		t.Errorf("msg path = %q", msg.Path())
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.WriteTimeoutSec != 30 {
		t.Errorf("expected WriteTimeoutSec=30, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.HTTP.ShutdownSec != 10 {
		t.Errorf("expected ShutdownSec=10, got %d", cfg.HTTP.ShutdownSec)
	}
	if cfg.HTTP.MaxBodyBytes != 10<<20 {
		t.Errorf("expected MaxBodyBytes=10MiB, got %d", cfg.HTTP.MaxBodyBytes)
	}
	if cfg.Database.Driver != "redis" {
		t.Errorf("expected Driver=redis, got %q", cfg.Database.Driver)
	}
	if cfg.Database.ReadinessTimeout != 10 {
		t.Errorf("expected ReadinessTimeout=10, got %d", cfg.Database.ReadinessTimeout)
	}
	if cfg.Search.DefaultMaxConcurrentSearches != 10 {
		t.Errorf("expected DefaultMaxConcurrentSearches=10, got %d", cfg.Search.DefaultMaxConcurrentSearches)
	}
	if cfg.Search.EnsureIndexes == nil || !*cfg.Search.EnsureIndexes {
		t.Error("expected EnsureIndexes=true")
	}
	if cfg.Storage.KeyPrefix != "esgate:" {
		t.Errorf("expected KeyPrefix='esgate:', got %q", cfg.Storage.KeyPrefix)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	ensure := false
	cfg := Config{
		HTTP:     HTTPConfig{ReadTimeoutSec: 30, WriteTimeoutSec: 60, ShutdownSec: 5, MaxBodyBytes: 1024},
		Database: DatabaseConfig{ReadinessTimeout: 15},
		Search:   SearchConfig{DefaultMaxConcurrentSearches: 4, EnsureIndexes: &ensure},
		Storage:  StorageConfig{KeyPrefix: "custom:"},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 30 {
		t.Errorf("expected ReadTimeoutSec=30, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.WriteTimeoutSec != 60 {
		t.Errorf("expected WriteTimeoutSec=60, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.HTTP.MaxBodyBytes != 1024 {
		t.Errorf("expected MaxBodyBytes=1024, got %d", cfg.HTTP.MaxBodyBytes)
	}
	if cfg.Search.DefaultMaxConcurrentSearches != 4 {
		t.Errorf("expected DefaultMaxConcurrentSearches=4, got %d", cfg.Search.DefaultMaxConcurrentSearches)
	}
	if *cfg.Search.EnsureIndexes {
		t.Error("expected EnsureIndexes to stay false")
	}
	if cfg.Storage.KeyPrefix != "custom:" {
		t.Errorf("expected KeyPrefix='custom:', got %q", cfg.Storage.KeyPrefix)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("ESGATE_TEST_ADDR", "redis:6380")

	got := string(expandEnvVars([]byte("a: ${ESGATE_TEST_ADDR}\nb: ${ESGATE_TEST_UNSET:-fallback}\nc: ${ESGATE_TEST_UNSET}")))
	want := "a: redis:6380\nb: fallback\nc: "
	if got != want {
		t.Errorf("expandEnvVars() = %q, want %q", got, want)
	}
}

func TestLoadFile(t *testing.T) {
	t.Setenv("ESGATE_TEST_PORT", "9201")

	path := filepath.Join(t.TempDir(), "test.yaml")
	data := `
http:
  port: ${ESGATE_TEST_PORT}
database:
  addrs: ["localhost:6379"]
search:
  default_max_concurrent_searches: 3
  indexes:
    - name: logs
      fields:
        - {name: status, type: numeric, sortable: true}
        - {name: level, type: tag}
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTP.Port != 9201 {
		t.Errorf("expected port 9201, got %d", cfg.HTTP.Port)
	}
	if cfg.Search.DefaultMaxConcurrentSearches != 3 {
		t.Errorf("expected 3 concurrent searches, got %d", cfg.Search.DefaultMaxConcurrentSearches)
	}
	if cfg.Database.Driver != "redis" {
		t.Errorf("expected default driver, got %q", cfg.Database.Driver)
	}
	if len(cfg.Search.Indexes) != 1 || len(cfg.Search.Indexes[0].Fields) != 2 {
		t.Errorf("unexpected indexes: %+v", cfg.Search.Indexes)
	}
}

func TestLoadFile_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("http:\n  port: 0\ndatabase:\n  addrs: [x]\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Fatal("expected validation error")
	}
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected read error")
	}
}

func TestLoad_LocalConfig(t *testing.T) {
	t.Setenv(PathEnvVar, "")
	cfg, err := Load("local")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := cfg.Search.DomainIndexes(); err != nil {
		t.Errorf("local indexes: %v", err)
	}
}

func TestLoad_PathOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	if err := os.WriteFile(path, []byte("http:\n  port: 9300\ndatabase:\n  addrs: [\"redis:6379\"]\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(PathEnvVar, path)

	cfg, err := Load("env-without-a-file")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTP.Port != 9300 {
		t.Errorf("expected port from %s, got %d", PathEnvVar, cfg.HTTP.Port)
	}
}
