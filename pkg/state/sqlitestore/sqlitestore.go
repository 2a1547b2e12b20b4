// Package sqlitestore implements state.Store on top of SQLite using the pure
// Go modernc.org/sqlite driver.
//
// Usage:
//
//	db, err := sqlitestore.Open("csvdoc.db")
//	schemas, err := sqlitestore.New[csvdoc.SchemaRecord](db)
//
// In tests:
//
//	db, err := sqlitestore.Open(":memory:")
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/goliatone/go-csvdoc/pkg/state"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS csvdoc_records (
	key         TEXT PRIMARY KEY,
	partition   TEXT NOT NULL,
	document    TEXT NOT NULL,
	snapshot_id TEXT NOT NULL DEFAULT '',
	updated_at  TEXT NOT NULL,
	payload     BLOB NOT NULL
)`

type openConfig struct {
	busyTimeout int
	synchronous string
	mkdirAll    bool
}

// OpenOption customises Open.
type OpenOption func(*openConfig)

// WithBusyTimeout sets PRAGMA busy_timeout in milliseconds. Default: 10000.
func WithBusyTimeout(ms int) OpenOption { return func(c *openConfig) { c.busyTimeout = ms } }

// WithSynchronous sets PRAGMA synchronous. Default: "NORMAL".
func WithSynchronous(mode string) OpenOption { return func(c *openConfig) { c.synchronous = mode } }

// WithMkdirAll creates parent directories of the database path before opening.
func WithMkdirAll() OpenOption { return func(c *openConfig) { c.mkdirAll = true } }

// Open opens (and migrates) a SQLite database at path.
func Open(path string, opts ...OpenOption) (*sql.DB, error) {
	cfg := openConfig{busyTimeout: 10_000, synchronous: "NORMAL"}
	for _, o := range opts {
		o(&cfg)
	}

	if cfg.mkdirAll && path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("sqlitestore: mkdir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: open: %w", err)
	}
	if path == ":memory:" {
		// each connection to ":memory:" is a separate database
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.busyTimeout),
		fmt.Sprintf("PRAGMA synchronous = %s", cfg.synchronous),
	}
	if path != ":memory:" {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlitestore: %s: %w", p, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlitestore: exec schema: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlitestore: ping: %w", err)
	}
	return db, nil
}

// Store is a state.Store persisted in the csvdoc_records table. It does not
// own the *sql.DB.
type Store[T any] struct {
	db    *sql.DB
	codec state.Codec[T]
	now   func() time.Time
}

var _ state.Store[struct{}] = (*Store[struct{}])(nil)

// New wraps db. A nil codec selects state.JSONCodec.
func New[T any](db *sql.DB, codec ...state.Codec[T]) (*Store[T], error) {
	if db == nil {
		return nil, errors.New("sqlitestore: db must not be nil")
	}
	s := &Store[T]{db: db, codec: state.JSONCodec[T]{}, now: time.Now}
	if len(codec) > 0 && codec[0] != nil {
		s.codec = codec[0]
	}
	return s, nil
}

func (s *Store[T]) Load(ctx context.Context, ref state.Ref) (T, state.Meta, bool, error) {
	var zero T
	key, err := ref.Identifier()
	if err != nil {
		return zero, state.Meta{}, false, err
	}

	var (
		snapshotID string
		updatedAt  string
		payload    []byte
	)
	row := s.db.QueryRowContext(ctx,
		`SELECT snapshot_id, updated_at, payload FROM csvdoc_records WHERE key = ?`, key)
	if err := row.Scan(&snapshotID, &updatedAt, &payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return zero, state.Meta{}, false, nil
		}
		return zero, state.Meta{}, false, fmt.Errorf("sqlitestore: load %s: %w", ref, err)
	}

	record, meta, err := state.DecodeEnvelope(s.codec, payload)
	if err != nil {
		return zero, state.Meta{}, false, fmt.Errorf("sqlitestore: load %s: %w", ref, err)
	}
	if meta.SnapshotID == "" {
		meta.SnapshotID = snapshotID
	}
	if meta.UpdatedAt.IsZero() {
		if ts, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
			meta.UpdatedAt = ts
		}
	}
	return record, meta, true, nil
}

func (s *Store[T]) Save(ctx context.Context, ref state.Ref, record T, meta state.Meta) (state.Meta, error) {
	key, err := ref.Identifier()
	if err != nil {
		return state.Meta{}, err
	}
	stamped := state.StampMeta(meta, s.now())
	payload, err := state.EncodeEnvelope(s.codec, record, stamped)
	if err != nil {
		return state.Meta{}, err
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO csvdoc_records (key, partition, document, snapshot_id, updated_at, payload)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(key) DO UPDATE SET
	snapshot_id = excluded.snapshot_id,
	updated_at  = excluded.updated_at,
	payload     = excluded.payload`,
		key, string(ref.Partition), ref.Document, stamped.SnapshotID,
		stamped.UpdatedAt.Format(time.RFC3339Nano), payload)
	if err != nil {
		return state.Meta{}, fmt.Errorf("sqlitestore: save %s: %w", ref, err)
	}
	return stamped, nil
}

func (s *Store[T]) Delete(ctx context.Context, ref state.Ref) error {
	key, err := ref.Identifier()
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM csvdoc_records WHERE key = ?`, key); err != nil {
		return fmt.Errorf("sqlitestore: delete %s: %w", ref, err)
	}
	return nil
}
