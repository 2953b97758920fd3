// Package postgres provides a Postgres-backed persistent store that mirrors the
// in-memory semantics while writing each committed change as a row upsert.
// Unique indexes in the schema back the in-memory constraints.
package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/Aamm5845/residentone-workflow-sub002/internal/infra/persistence/memory"
	"github.com/Aamm5845/residentone-workflow-sub002/pkg/domain"
	"github.com/jackc/pgx/v5/pgconn"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.PersistentStore = (*Store)(nil)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/ffe?sslmode=disable"

	uniqueViolation = "23505"
)

//go:embed schema.sql
var schemaDDL string

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

type execQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Store persists state to Postgres while reusing the in-memory implementation for transactions.
type Store struct {
	*memory.Store
	db *sql.DB
	mu sync.Mutex
}

// NewStore opens a Postgres-backed store using the provided DSN (falls back to defaultDSN).
// It applies the embedded schema and hydrates the in-memory store from the tables.
func NewStore(dsn string, engine *domain.RulesEngine) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := applyDDLStatements(ctx, db, schemaDDL); err != nil {
		return nil, err
	}
	snapshot, err := loadSnapshot(ctx, db)
	if err != nil {
		return nil, err
	}
	s := &Store{db: db}
	s.Store = memory.NewStore(engine, memory.WithCommitHook(s.persist))
	s.ImportState(snapshot)
	return s, nil
}

// Close closes the database handle.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

func splitStatements(ddl string) []string {
	var out []string
	for _, stmt := range strings.Split(ddl, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		out = append(out, strings.TrimSpace(stmt))
	}
	return out
}

func applyDDLStatements(ctx context.Context, db execQuerier, ddl string) error {
	for _, stmt := range splitStatements(ddl) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("execute ddl: %w", err)
		}
	}
	return nil
}

var tableBuckets = []struct {
	table string
	load  func(*memory.Snapshot, string, []byte) error
}{
	{"ffe_templates", func(s *memory.Snapshot, id string, raw []byte) error {
		return decodeInto(s.Templates, id, raw)
	}},
	{"ffe_sections", func(s *memory.Snapshot, id string, raw []byte) error {
		return decodeInto(s.Sections, id, raw)
	}},
	{"ffe_template_items", func(s *memory.Snapshot, id string, raw []byte) error {
		return decodeInto(s.TemplateItems, id, raw)
	}},
	{"ffe_rooms", func(s *memory.Snapshot, id string, raw []byte) error {
		return decodeInto(s.Rooms, id, raw)
	}},
	{"ffe_room_items", func(s *memory.Snapshot, id string, raw []byte) error {
		return decodeInto(s.RoomItems, id, raw)
	}},
	{"ffe_expansions", func(s *memory.Snapshot, id string, raw []byte) error {
		return decodeInto(s.Expansions, id, raw)
	}},
}

func decodeInto[T any](dst map[string]T, id string, raw []byte) error {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	dst[id] = v
	return nil
}

func loadSnapshot(ctx context.Context, db execQuerier) (memory.Snapshot, error) {
	snapshot := memory.Snapshot{
		Templates:     map[string]domain.Template{},
		Sections:      map[string]domain.Section{},
		TemplateItems: map[string]domain.TemplateItem{},
		Rooms:         map[string]domain.Room{},
		RoomItems:     map[string]domain.RoomItem{},
		Expansions:    map[string]domain.Expansion{},
	}
	for _, bucket := range tableBuckets {
		if err := loadTable(ctx, db, bucket.table, func(id string, raw []byte) error {
			return bucket.load(&snapshot, id, raw)
		}); err != nil {
			return memory.Snapshot{}, err
		}
	}
	return snapshot, nil
}

func loadTable(ctx context.Context, db execQuerier, table string, fn func(id string, raw []byte) error) error {
	rows, err := db.QueryContext(ctx, "SELECT id, payload FROM "+table)
	if err != nil {
		return fmt.Errorf("select %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var id string
		var payload []byte
		if err := rows.Scan(&id, &payload); err != nil {
			return fmt.Errorf("scan %s: %w", table, err)
		}
		if len(payload) == 0 {
			continue
		}
		if err := fn(id, payload); err != nil {
			return fmt.Errorf("decode %s: %w", table, err)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate %s: %w", table, err)
	}
	return nil
}

func (s *Store) persist(ctx context.Context, commit memory.Commit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	for _, change := range commit.Changes {
		if err := upsertChange(ctx, tx, change); err != nil {
			return mapConstraintError(err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

func upsertChange(ctx context.Context, tx *sql.Tx, change domain.Change) error {
	payload, err := json.Marshal(change.After)
	if err != nil {
		return fmt.Errorf("encode %s: %w", change.Entity, err)
	}
	var (
		query string
		args  []any
	)
	switch v := change.After.(type) {
	case domain.Template:
		query = `INSERT INTO ffe_templates (id, name, payload) VALUES ($1,$2,$3)
			ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, payload=EXCLUDED.payload`
		args = []any{v.ID, v.Name, payload}
	case domain.Section:
		query = `INSERT INTO ffe_sections (id, template_id, position, payload) VALUES ($1,$2,$3,$4)
			ON CONFLICT (id) DO UPDATE SET position=EXCLUDED.position, payload=EXCLUDED.payload`
		args = []any{v.ID, v.TemplateID, v.Position, payload}
	case domain.TemplateItem:
		query = `INSERT INTO ffe_template_items (id, section_id, position, payload) VALUES ($1,$2,$3,$4)
			ON CONFLICT (id) DO UPDATE SET position=EXCLUDED.position, payload=EXCLUDED.payload`
		args = []any{v.ID, v.SectionID, v.Position, payload}
	case domain.Room:
		query = `INSERT INTO ffe_rooms (id, template_id, payload) VALUES ($1,$2,$3)`
		args = []any{v.ID, v.TemplateID, payload}
	case domain.RoomItem:
		query = `INSERT INTO ffe_room_items (id, room_id, template_item_id, parent_item_id, status, visible, payload) VALUES ($1,$2,$3,$4,$5,$6,$7)
			ON CONFLICT (id) DO UPDATE SET status=EXCLUDED.status, visible=EXCLUDED.visible, payload=EXCLUDED.payload`
		args = []any{v.ID, v.RoomID, nullable(v.TemplateItemID), nullable(v.ParentItemID), string(v.Status), v.Visible, payload}
	case domain.Expansion:
		query = `INSERT INTO ffe_expansions (id, parent_item_id, logic_option_id, sequence, active, payload) VALUES ($1,$2,$3,$4,$5,$6)
			ON CONFLICT (id) DO UPDATE SET active=EXCLUDED.active, payload=EXCLUDED.payload`
		args = []any{v.ID, v.ParentItemID, v.LogicOptionID, v.Sequence, v.Active, payload}
	default:
		return fmt.Errorf("unsupported change payload %T for %s", change.After, change.Entity)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert %s: %w", change.Entity, err)
	}
	return nil
}

func nullable(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

// mapConstraintError turns unique violations into domain conflicts.
func mapConstraintError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return &domain.Error{
			Kind:   domain.KindConflict,
			Reason: fmt.Sprintf("unique constraint %s violated", pgErr.ConstraintName),
			Err:    err,
		}
	}
	return err
}

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
