package state

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"
)

var ErrInvalidRef = errors.New("state: invalid ref")

// Partition names a logical storage area.
type Partition string

const (
	// PartitionDocument holds row content. It is transient: a new file load
	// replaces it wholesale.
	PartitionDocument Partition = "document"
	// PartitionSchema holds headers, column definitions and widths. It is
	// persistent and merges with incoming headers on load.
	PartitionSchema Partition = "schema"
)

// Valid reports whether p is a known partition.
func (p Partition) Valid() bool {
	switch p {
	case PartitionDocument, PartitionSchema:
		return true
	default:
		return false
	}
}

// Ref identifies one persisted record: one partition of one document.
type Ref struct {
	Partition Partition
	Document  string
}

// DocumentRef returns the document partition ref for name.
func DocumentRef(name string) Ref {
	return Ref{Partition: PartitionDocument, Document: name}
}

// SchemaRef returns the schema partition ref for name.
func SchemaRef(name string) Ref {
	return Ref{Partition: PartitionSchema, Document: name}
}

// Identifier returns the canonical storage key, e.g. "schema/default".
func (r Ref) Identifier() (string, error) {
	if !r.Partition.Valid() {
		return "", fmt.Errorf("%w: unsupported partition %q", ErrInvalidRef, r.Partition)
	}
	doc := strings.TrimSpace(r.Document)
	if doc == "" {
		return "", fmt.Errorf("%w: document name is required", ErrInvalidRef)
	}
	if strings.Contains(doc, "/") {
		return "", fmt.Errorf("%w: document name %q must not contain '/'", ErrInvalidRef, doc)
	}
	return fmt.Sprintf("%s/%s", r.Partition, doc), nil
}

func (r Ref) String() string {
	return fmt.Sprintf("%s/%s", r.Partition, r.Document)
}

// Meta is storage-owned metadata attached to each saved record.
type Meta struct {
	SnapshotID string            `json:"snapshot_id,omitempty"`
	UpdatedAt  time.Time         `json:"updated_at,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// Store loads/saves one record for a single Ref. Both calls must be
// idempotent. A missing record is reported with ok=false and a nil error.
type Store[T any] interface {
	Load(ctx context.Context, ref Ref) (record T, meta Meta, ok bool, err error)
	Save(ctx context.Context, ref Ref, record T, meta Meta) (Meta, error)
}

// Deleter is implemented by stores that can drop a record.
type Deleter interface {
	Delete(ctx context.Context, ref Ref) error
}

// StampMeta fills UpdatedAt when the caller left it empty.
func StampMeta(meta Meta, now time.Time) Meta {
	out := cloneMeta(meta)
	if out.UpdatedAt.IsZero() {
		out.UpdatedAt = now.UTC()
	}
	return out
}

func cloneMeta(meta Meta) Meta {
	meta.Extra = maps.Clone(meta.Extra)
	return meta
}
