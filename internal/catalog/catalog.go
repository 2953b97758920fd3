// Package catalog archives templates as JSON snapshots in a blob store and
// restores them as new templates.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Aamm5845/residentone-workflow-sub002/internal/blob"
	"github.com/Aamm5845/residentone-workflow-sub002/pkg/domain"
)

const (
	// FormatVersion tags archives written by this package.
	FormatVersion = 1

	keyPrefix   = "templates/"
	contentType = "application/json"
	stampLayout = "20060102T150405.000000000Z"

	// maxArchiveBytes bounds how much of an archive Import will read.
	maxArchiveBytes = 8 << 20
)

// TemplateService is the template surface the catalog needs.
type TemplateService interface {
	GetTemplate(ctx context.Context, templateID string) (domain.TemplateDetail, error)
	ImportTemplate(ctx context.Context, detail domain.TemplateDetail) (domain.TemplateDetail, domain.Result, error)
}

// Archive is the on-disk envelope of an exported template.
type Archive struct {
	Format     int                   `json:"format"`
	ExportedAt time.Time             `json:"exported_at"`
	ExportedBy string                `json:"exported_by,omitempty"`
	Template   domain.TemplateDetail `json:"template"`
}

// Entry describes one stored archive.
type Entry struct {
	Key        string    `json:"key"`
	TemplateID string    `json:"template_id"`
	Size       int64     `json:"size_bytes"`
	StoredAt   time.Time `json:"stored_at"`
}

// Catalog moves templates between the service and a blob store.
type Catalog struct {
	templates TemplateService
	store     blob.Store
	now       func() time.Time
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithClock overrides the clock used to stamp archive keys.
func WithClock(now func() time.Time) Option {
	return func(c *Catalog) {
		if now != nil {
			c.now = now
		}
	}
}

// New builds a catalog over the template service and blob store.
func New(templates TemplateService, store blob.Store, opts ...Option) *Catalog {
	c := &Catalog{templates: templates, store: store, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Export writes a snapshot of the template and returns its key,
// templates/<templateID>/<UTC timestamp>.json.
func (c *Catalog) Export(ctx context.Context, templateID string) (string, error) {
	detail, err := c.templates.GetTemplate(ctx, templateID)
	if err != nil {
		return "", err
	}
	at := c.now().UTC()
	archive := Archive{Format: FormatVersion, ExportedAt: at, Template: detail}
	if actor, ok := domain.ActorFrom(ctx); ok {
		archive.ExportedBy = actor.ID
	}
	raw, err := json.MarshalIndent(archive, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode archive: %w", err)
	}
	key := keyPrefix + templateID + "/" + at.Format(stampLayout) + ".json"
	_, err = c.store.Put(ctx, key, bytes.NewReader(raw), blob.PutOptions{
		ContentType: contentType,
		Metadata:    map[string]string{"template-id": templateID, "format": fmt.Sprint(FormatVersion)},
	})
	if err != nil {
		if errors.Is(err, blob.ErrExists) {
			return "", domain.NewConflictError(domain.EntityTemplate, templateID, "archive %s already exists", key)
		}
		return "", fmt.Errorf("store archive: %w", err)
	}
	return key, nil
}

// Import reads an archive, checks its shape, and creates a new template from
// it. Archive contents are validated again by the template service.
func (c *Catalog) Import(ctx context.Context, key string) (domain.TemplateDetail, error) {
	if !strings.HasPrefix(key, keyPrefix) || !strings.HasSuffix(key, ".json") {
		return domain.TemplateDetail{}, domain.NewValidationError("%q is not a template archive key", key)
	}
	_, rc, err := c.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return domain.TemplateDetail{}, &domain.Error{Kind: domain.KindNotFound, EntityID: key, Reason: fmt.Sprintf("archive %q not found", key), Err: err}
		}
		return domain.TemplateDetail{}, fmt.Errorf("read archive: %w", err)
	}
	defer func() { _ = rc.Close() }()
	archive, err := decodeArchive(io.LimitReader(rc, maxArchiveBytes+1))
	if err != nil {
		return domain.TemplateDetail{}, err
	}
	detail, _, err := c.templates.ImportTemplate(ctx, archive.Template)
	return detail, err
}

// List returns the archives of a template, oldest first. An empty id lists
// every archive.
func (c *Catalog) List(ctx context.Context, templateID string) ([]Entry, error) {
	prefix := keyPrefix
	if templateID != "" {
		prefix += templateID + "/"
	}
	infos, err := c.store.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list archives: %w", err)
	}
	out := make([]Entry, 0, len(infos))
	for _, info := range infos {
		rest := strings.TrimPrefix(info.Key, keyPrefix)
		id, _, ok := strings.Cut(rest, "/")
		if !ok || !strings.HasSuffix(info.Key, ".json") {
			continue
		}
		out = append(out, Entry{Key: info.Key, TemplateID: id, Size: info.Size, StoredAt: info.LastModified})
	}
	return out, nil
}

func decodeArchive(r io.Reader) (Archive, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return Archive{}, fmt.Errorf("read archive: %w", err)
	}
	if len(raw) > maxArchiveBytes {
		return Archive{}, domain.NewValidationError("archive exceeds %d bytes", maxArchiveBytes)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	var archive Archive
	if err := dec.Decode(&archive); err != nil {
		return Archive{}, domain.NewValidationError("malformed archive: %v", err)
	}
	if archive.Format != FormatVersion {
		return Archive{}, domain.NewValidationError("unsupported archive format %d", archive.Format)
	}
	if strings.TrimSpace(archive.Template.Template.Name) == "" {
		return Archive{}, domain.NewValidationError("archive has no template name")
	}
	return archive, nil
}
