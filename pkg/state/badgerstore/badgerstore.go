// Package badgerstore implements state.Store on top of an embedded BadgerDB.
//
// Records are kept under "<prefix><partition>/<document>" keys as JSON
// envelopes (record plus state.Meta). Several stores with different record
// types may share one *badger.DB as long as they use the same prefix
// convention; the engine opens one store per partition record type.
package badgerstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/goliatone/go-csvdoc/pkg/state"
)

// DefaultPrefix namespaces csvdoc keys inside a shared database.
const DefaultPrefix = "csvdoc/"

// Config holds configuration for a BadgerDB instance.
type Config struct {
	// Path is the directory for BadgerDB files. Ignored when InMemory is true.
	Path string

	// InMemory enables in-memory mode (no disk persistence).
	InMemory bool

	// SyncWrites enables synchronous writes for durability.
	SyncWrites bool

	// Logger receives BadgerDB's internal log lines. Nil disables them.
	Logger *slog.Logger
}

// DefaultConfig returns a durable configuration rooted at path.
func DefaultConfig(path string) Config {
	return Config{Path: path, SyncWrites: true}
}

// InMemoryConfig returns configuration for tests.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Open opens a BadgerDB instance with the given configuration.
func Open(cfg Config) (*badger.DB, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("badgerstore: path is required for persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("badgerstore: create directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badgerstore: open: %w", err)
	}
	return db, nil
}

// Option configures a Store.
type Option[T any] func(*Store[T])

// WithCodec replaces the default JSON codec.
func WithCodec[T any](codec state.Codec[T]) Option[T] {
	return func(s *Store[T]) {
		if codec != nil {
			s.codec = codec
		}
	}
}

// WithPrefix overrides DefaultPrefix.
func WithPrefix[T any](prefix string) Option[T] {
	return func(s *Store[T]) {
		s.prefix = prefix
	}
}

// Store is a state.Store backed by BadgerDB. It does not own the database;
// callers close the *badger.DB themselves.
type Store[T any] struct {
	db     *badger.DB
	codec  state.Codec[T]
	prefix string
	now    func() time.Time
}

var _ state.Store[struct{}] = (*Store[struct{}])(nil)

// New wraps db.
func New[T any](db *badger.DB, opts ...Option[T]) (*Store[T], error) {
	if db == nil {
		return nil, errors.New("badgerstore: db must not be nil")
	}
	s := &Store[T]{
		db:     db,
		codec:  state.JSONCodec[T]{},
		prefix: DefaultPrefix,
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

func (s *Store[T]) key(ref state.Ref) ([]byte, error) {
	id, err := ref.Identifier()
	if err != nil {
		return nil, err
	}
	return []byte(s.prefix + id), nil
}

func (s *Store[T]) Load(ctx context.Context, ref state.Ref) (T, state.Meta, bool, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, state.Meta{}, false, err
	}
	key, err := s.key(ref)
	if err != nil {
		return zero, state.Meta{}, false, err
	}

	var raw []byte
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return zero, state.Meta{}, false, nil
	}
	if err != nil {
		return zero, state.Meta{}, false, fmt.Errorf("badgerstore: load %s: %w", ref, err)
	}

	record, meta, err := state.DecodeEnvelope(s.codec, raw)
	if err != nil {
		return zero, state.Meta{}, false, fmt.Errorf("badgerstore: load %s: %w", ref, err)
	}
	return record, meta, true, nil
}

func (s *Store[T]) Save(ctx context.Context, ref state.Ref, record T, meta state.Meta) (state.Meta, error) {
	if err := ctx.Err(); err != nil {
		return state.Meta{}, err
	}
	key, err := s.key(ref)
	if err != nil {
		return state.Meta{}, err
	}
	stamped := state.StampMeta(meta, s.now())
	raw, err := state.EncodeEnvelope(s.codec, record, stamped)
	if err != nil {
		return state.Meta{}, err
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, raw)
	})
	if err != nil {
		return state.Meta{}, fmt.Errorf("badgerstore: save %s: %w", ref, err)
	}
	return stamped, nil
}

func (s *Store[T]) Delete(ctx context.Context, ref state.Ref) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key, err := s.key(ref)
	if err != nil {
		return err
	}
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	}); err != nil {
		return fmt.Errorf("badgerstore: delete %s: %w", ref, err)
	}
	return nil
}
