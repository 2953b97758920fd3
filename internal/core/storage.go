package core

import (
	"fmt"
	"os"
	"strings"

	"github.com/Aamm5845/residentone-workflow-sub002/internal/infra/persistence/memory"
	"github.com/Aamm5845/residentone-workflow-sub002/internal/infra/persistence/postgres"
	"github.com/Aamm5845/residentone-workflow-sub002/internal/infra/persistence/sqlite"
	"github.com/Aamm5845/residentone-workflow-sub002/pkg/domain"
)

// StorageDriver identifies a concrete persistent storage implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

type (
	Transaction     = domain.Transaction
	TransactionView = domain.TransactionView
	PersistentStore = domain.PersistentStore
)

// StorageConfig selects and parameterises a storage backend.
type StorageConfig struct {
	Driver      StorageDriver
	SQLitePath  string
	PostgresDSN string
}

// StorageConfigFromEnv reads the storage settings from the environment.
//
//	FFE_STORAGE_DRIVER: memory|sqlite|postgres (default sqlite)
//	FFE_SQLITE_PATH: path to sqlite file (default ./ffe.db)
//	FFE_POSTGRES_DSN: postgres DSN when driver=postgres
func StorageConfigFromEnv() StorageConfig {
	return StorageConfig{
		Driver:      StorageDriver(os.Getenv("FFE_STORAGE_DRIVER")),
		SQLitePath:  os.Getenv("FFE_SQLITE_PATH"),
		PostgresDSN: os.Getenv("FFE_POSTGRES_DSN"),
	}
}

// OpenPersistentStore selects a backend using environment variables.
// Defaults to sqlite when unset.
func OpenPersistentStore(engine *RulesEngine) (PersistentStore, error) {
	return OpenPersistentStoreWith(StorageConfigFromEnv(), engine)
}

// OpenPersistentStoreWith opens the backend named by cfg.
func OpenPersistentStoreWith(cfg StorageConfig, engine *RulesEngine) (PersistentStore, error) {
	if engine == nil {
		engine = NewDefaultRulesEngine()
	}
	driver := StorageDriver(strings.ToLower(strings.TrimSpace(string(cfg.Driver))))
	if driver == "" {
		driver = StorageSQLite
	}
	switch driver {
	case StorageMemory:
		return memory.NewStore(engine), nil
	case StorageSQLite:
		return sqlite.NewStore(cfg.SQLitePath, engine)
	case StoragePostgres:
		return postgres.NewStore(cfg.PostgresDSN, engine)
	default:
		return nil, fmt.Errorf("unknown storage driver %s", cfg.Driver)
	}
}
