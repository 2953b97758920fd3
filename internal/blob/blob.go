// Package blob exposes the blob store contract and opens a configured backend.
// Callers depend on blob.Store; only this package imports the infra backends.
package blob

import (
	"context"
	"fmt"

	"github.com/Aamm5845/residentone-workflow-sub002/internal/blob/core"
	"github.com/Aamm5845/residentone-workflow-sub002/internal/infra/blob/fs"
	memorystore "github.com/Aamm5845/residentone-workflow-sub002/internal/infra/blob/memory"
	infraS3 "github.com/Aamm5845/residentone-workflow-sub002/internal/infra/blob/s3"
)

type (
	// Driver identifies a blob backend driver.
	Driver = core.Driver
	// PutOptions configures a blob write.
	PutOptions = core.PutOptions
	// Info describes stored blob metadata.
	Info = core.Info
	// Store is the interface for blob storage backends.
	Store = core.Store
	// S3Config configures the S3 backend.
	S3Config = infraS3.Config
)

const (
	DriverFilesystem = core.DriverFilesystem
	DriverS3         = core.DriverS3
	DriverMemory     = core.DriverMemory
)

var (
	ErrNotFound = core.ErrNotFound
	ErrExists   = core.ErrExists
)

// Config selects a backend.
type Config struct {
	Driver Driver
	FSRoot string
	S3     S3Config
}

// Open constructs the backend named by cfg. An empty driver selects fs.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case "", DriverFilesystem:
		return fs.New(cfg.FSRoot)
	case DriverS3:
		return infraS3.New(ctx, cfg.S3)
	case DriverMemory:
		return memorystore.New(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", cfg.Driver)
	}
}
