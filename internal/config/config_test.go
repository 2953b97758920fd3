package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadYAMLThenEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	path := filepath.Join(t.TempDir(), "ffe.yaml")
	yamlDoc := `
env: development
http:
  addr: ":9090"
  cors_origins: ["https://studio.example"]
storage:
  driver: memory
blob:
  driver: s3
  s3:
    bucket: archives
    region: eu-west-1
    path_style: true
telemetry:
  tracing: stdout
`
	if err := os.WriteFile(path, []byte(yamlDoc), 0o600); err != nil {
		t.Fatalf("write yaml: %v", err)
	}
	t.Setenv("FFE_HTTP_ADDR", ":7070")
	t.Setenv("FFE_REDIS_ADDR", "localhost:6379")
	t.Setenv("FFE_STORAGE_DRIVER", "SQLite")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTP.Addr != ":7070" {
		t.Fatalf("env override lost: addr=%q", cfg.HTTP.Addr)
	}
	if cfg.Storage.Driver != "sqlite" || cfg.Storage.SQLitePath != "ffe.db" {
		t.Fatalf("unexpected storage %+v", cfg.Storage)
	}
	if cfg.Blob.Driver != "s3" || cfg.Blob.S3.Bucket != "archives" || !cfg.Blob.S3.PathStyle {
		t.Fatalf("unexpected blob %+v", cfg.Blob)
	}
	if len(cfg.HTTP.CORSOrigins) != 1 || cfg.Telemetry.Tracing != "stdout" {
		t.Fatalf("unexpected yaml values %+v", cfg)
	}
	if cfg.Events.RedisAddr != "localhost:6379" || cfg.Events.RedisChannel != "ffe.room_events" {
		t.Fatalf("unexpected events %+v", cfg.Events)
	}
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("FFE_MCP_ACTOR_ID=env-bot\nFFE_MCP_ACTOR_ROLE=designer\n"), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Unsetenv("FFE_MCP_ACTOR_ID")
		_ = os.Unsetenv("FFE_MCP_ACTOR_ROLE")
	})
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.MCP.ActorID != "env-bot" || cfg.MCP.ActorRole != "designer" {
		t.Fatalf("dotenv values not applied: %+v", cfg.MCP)
	}
}

func TestLoadErrors(t *testing.T) {
	t.Chdir(t.TempDir())
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing explicit file")
	}
	bad := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(bad, []byte("http: [oops"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(bad); err == nil {
		t.Fatalf("expected parse error")
	}
	t.Setenv("FFE_BLOB_S3_PATH_STYLE", "sometimes")
	if _, err := Load(""); err == nil || !strings.Contains(err.Error(), "FFE_BLOB_S3_PATH_STYLE") {
		t.Fatalf("expected path style parse error, got %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]func(*Config){
		"storage driver": func(c *Config) { c.Storage.Driver = "mongo" },
		"postgres dsn":   func(c *Config) { c.Storage.Driver = "postgres" },
		"blob driver":    func(c *Config) { c.Blob.Driver = "gcs" },
		"s3 bucket":      func(c *Config) { c.Blob.Driver = "s3" },
		"tracing":        func(c *Config) { c.Telemetry.Tracing = "jaeger" },
		"mcp role":       func(c *Config) { c.MCP.ActorRole = "owner" },
		"mcp actor":      func(c *Config) { c.MCP.ActorID = "" },
		"http addr":      func(c *Config) { c.HTTP.Addr = "" },
		"env":            func(c *Config) { c.Env = "staging" },
		"prod secret":    func(c *Config) { c.Env = "production" },
	}
	for name, mutate := range cases {
		cfg := Default()
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestApplyEnvLowercasesDrivers(t *testing.T) {
	cfg := Default()
	env := map[string]string{
		"FFE_BLOB_DRIVER":       "MEMORY",
		"FFE_TRACING":           "Stdout",
		"FFE_HTTP_CORS_ORIGINS": "https://a.example, ,https://b.example",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
	if err := applyEnv(&cfg, lookup); err != nil {
		t.Fatalf("apply env: %v", err)
	}
	if cfg.Blob.Driver != "memory" || cfg.Telemetry.Tracing != "stdout" {
		t.Fatalf("drivers not normalised: %+v %+v", cfg.Blob, cfg.Telemetry)
	}
	if len(cfg.HTTP.CORSOrigins) != 2 {
		t.Fatalf("expected 2 origins, got %v", cfg.HTTP.CORSOrigins)
	}
}
