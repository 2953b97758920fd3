// Package config loads ffetrack settings from an optional .env file, an
// optional YAML file, and FFE_* environment variables, in that order of
// increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full process configuration.
type Config struct {
	Env       string          `yaml:"env" validate:"oneof=development production"`
	HTTP      HTTPConfig      `yaml:"http"`
	Storage   StorageConfig   `yaml:"storage"`
	Auth      AuthConfig      `yaml:"auth"`
	Blob      BlobConfig      `yaml:"blob"`
	Events    EventsConfig    `yaml:"events"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	MCP       MCPConfig       `yaml:"mcp"`
}

// HTTPConfig configures the API listener.
type HTTPConfig struct {
	Addr        string   `yaml:"addr" validate:"required"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// StorageConfig selects the persistent store.
type StorageConfig struct {
	Driver      string `yaml:"driver" validate:"oneof=memory sqlite postgres"`
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn" validate:"required_if=Driver postgres"`
}

// AuthConfig configures bearer token verification.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	JWTIssuer string `yaml:"jwt_issuer"`
}

// BlobConfig selects the template archive store.
type BlobConfig struct {
	Driver string       `yaml:"driver" validate:"oneof=memory fs s3"`
	FSRoot string       `yaml:"fs_root"`
	S3     BlobS3Config `yaml:"s3"`
}

// BlobS3Config holds S3 archive settings. Credentials come from the AWS
// default chain.
type BlobS3Config struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	PathStyle bool   `yaml:"path_style"`
}

// EventsConfig configures room event publishing. An empty address disables it.
type EventsConfig struct {
	RedisAddr    string `yaml:"redis_addr"`
	RedisChannel string `yaml:"redis_channel"`
}

// TelemetryConfig selects the trace exporter.
type TelemetryConfig struct {
	Tracing string `yaml:"tracing" validate:"oneof=none stdout"`
}

// MCPConfig names the actor MCP tool calls run as.
type MCPConfig struct {
	ActorID   string `yaml:"actor_id" validate:"required"`
	ActorRole string `yaml:"actor_role" validate:"oneof=admin designer member"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Env:       "development",
		HTTP:      HTTPConfig{Addr: ":8080"},
		Storage:   StorageConfig{Driver: "sqlite", SQLitePath: "ffe.db"},
		Auth:      AuthConfig{JWTIssuer: "ffetrack"},
		Blob:      BlobConfig{Driver: "fs", FSRoot: "./blobdata"},
		Events:    EventsConfig{RedisChannel: "ffe.room_events"},
		Telemetry: TelemetryConfig{Tracing: "none"},
		MCP:       MCPConfig{ActorID: "mcp", ActorRole: "admin"},
	}
}

// Load builds the configuration. A missing .env is ignored; a missing YAML
// file is an error only when path is non-empty.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks value ranges and cross-field requirements.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return fmt.Errorf("invalid config: %s failed %s", fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Blob.Driver == "s3" && strings.TrimSpace(c.Blob.S3.Bucket) == "" {
		return errors.New("invalid config: blob.s3.bucket required for s3 driver")
	}
	if c.Env == "production" && strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return errors.New("invalid config: auth.jwt_secret required in production")
	}
	return nil
}

type lookupFunc func(string) (string, bool)

func applyEnv(cfg *Config, lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	str("FFE_ENV", &cfg.Env)
	str("FFE_HTTP_ADDR", &cfg.HTTP.Addr)
	if v, ok := lookup("FFE_HTTP_CORS_ORIGINS"); ok {
		cfg.HTTP.CORSOrigins = splitList(v)
	}
	str("FFE_STORAGE_DRIVER", &cfg.Storage.Driver)
	str("FFE_SQLITE_PATH", &cfg.Storage.SQLitePath)
	str("FFE_POSTGRES_DSN", &cfg.Storage.PostgresDSN)
	str("FFE_JWT_SECRET", &cfg.Auth.JWTSecret)
	str("FFE_JWT_ISSUER", &cfg.Auth.JWTIssuer)
	str("FFE_BLOB_DRIVER", &cfg.Blob.Driver)
	str("FFE_BLOB_FS_ROOT", &cfg.Blob.FSRoot)
	str("FFE_BLOB_S3_BUCKET", &cfg.Blob.S3.Bucket)
	str("FFE_BLOB_S3_REGION", &cfg.Blob.S3.Region)
	str("FFE_BLOB_S3_ENDPOINT", &cfg.Blob.S3.Endpoint)
	if v, ok := lookup("FFE_BLOB_S3_PATH_STYLE"); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("FFE_BLOB_S3_PATH_STYLE: %w", err)
		}
		cfg.Blob.S3.PathStyle = b
	}
	str("FFE_REDIS_ADDR", &cfg.Events.RedisAddr)
	str("FFE_REDIS_CHANNEL", &cfg.Events.RedisChannel)
	str("FFE_TRACING", &cfg.Telemetry.Tracing)
	str("FFE_MCP_ACTOR_ID", &cfg.MCP.ActorID)
	str("FFE_MCP_ACTOR_ROLE", &cfg.MCP.ActorRole)
	cfg.Storage.Driver = strings.ToLower(cfg.Storage.Driver)
	cfg.Blob.Driver = strings.ToLower(cfg.Blob.Driver)
	cfg.Telemetry.Tracing = strings.ToLower(cfg.Telemetry.Tracing)
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
