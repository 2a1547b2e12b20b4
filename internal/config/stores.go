package config

import (
	"errors"
	"fmt"
	"log/slog"

	csvdoc "github.com/goliatone/go-csvdoc"
	"github.com/goliatone/go-csvdoc/pkg/state"
	"github.com/goliatone/go-csvdoc/pkg/state/badgerstore"
	"github.com/goliatone/go-csvdoc/pkg/state/sqlitestore"
)

// Stores holds both partition stores and closes the backend they share.
type Stores struct {
	Documents state.Store[csvdoc.DocumentRecord]
	Schemas   state.Store[csvdoc.SchemaRecord]
	close     func() error
}

// Close releases the backend.
func (s Stores) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// Open opens the configured backend. Both partitions share one database.
func (c StoreConfig) Open(logger *slog.Logger) (Stores, error) {
	switch c.Driver {
	case "", DriverMemory:
		return Stores{
			Documents: state.NewMemoryStore[csvdoc.DocumentRecord](),
			Schemas:   state.NewMemoryStore[csvdoc.SchemaRecord](),
		}, nil
	case DriverBadger:
		cfg := badgerstore.DefaultConfig(c.Path)
		cfg.Logger = logger
		db, err := badgerstore.Open(cfg)
		if err != nil {
			return Stores{}, err
		}
		docs, errDocs := badgerstore.New(db, badgerstore.WithCodec(csvdoc.DocumentCodec()))
		schemas, errSchemas := badgerstore.New(db, badgerstore.WithCodec(csvdoc.SchemaCodec()))
		if err := errors.Join(errDocs, errSchemas); err != nil {
			_ = db.Close()
			return Stores{}, err
		}
		return Stores{Documents: docs, Schemas: schemas, close: db.Close}, nil
	case DriverSQLite:
		db, err := sqlitestore.Open(c.Path, sqlitestore.WithMkdirAll())
		if err != nil {
			return Stores{}, err
		}
		docs, errDocs := sqlitestore.New(db, csvdoc.DocumentCodec())
		schemas, errSchemas := sqlitestore.New(db, csvdoc.SchemaCodec())
		if err := errors.Join(errDocs, errSchemas); err != nil {
			_ = db.Close()
			return Stores{}, err
		}
		return Stores{Documents: docs, Schemas: schemas, close: db.Close}, nil
	default:
		return Stores{}, fmt.Errorf("config: unknown store driver %q", c.Driver)
	}
}
