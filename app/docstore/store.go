// Package docstore is a small document database: named collections of JSON
// documents with store-assigned ids, field queries, ordered listing, server
// timestamps and an atomic counter primitive.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound     = errors.New("docstore: document not found")
	ErrUnavailable  = errors.New("docstore: store unavailable")
	ErrConflict     = errors.New("docstore: write conflict retries exhausted")
	ErrNotNumeric   = errors.New("docstore: field is not numeric")
	ErrInvalidInput = errors.New("docstore: invalid input")
)

// Fields is a set of top-level document fields. Values must be JSON
// encodable, or ServerTimestamp.
type Fields map[string]any

type serverTimestamp struct{}

// ServerTimestamp as a field value is replaced with the store's clock at
// write time. All ServerTimestamp fields of one write get the same instant.
var ServerTimestamp = serverTimestamp{}

// Op is a query comparison operator.
type Op string

const (
	Eq  Op = "=="
	Neq Op = "!="
	Lt  Op = "<"
	Lte Op = "<="
	Gt  Op = ">"
	Gte Op = ">="
)

// Direction orders ListOrdered results.
type Direction int

const (
	Asc Direction = iota
	Desc
)

// Store is the document store contract consumed by the repositories.
type Store interface {
	Create(ctx context.Context, collection string, fields Fields) (string, error)
	Get(ctx context.Context, collection, id string) (*Document, error)
	Update(ctx context.Context, collection, id string, fields Fields) error
	Delete(ctx context.Context, collection, id string) error
	Query(ctx context.Context, collection, field string, op Op, value any) ([]*Document, error)
	// ListOrdered returns documents sorted by orderField. limit <= 0 means
	// no limit. Documents lacking the field sort last.
	ListOrdered(ctx context.Context, collection, orderField string, dir Direction, limit int) ([]*Document, error)
	// Increment atomically adds delta to a numeric field and clamps the
	// result at floor. A missing field counts as zero.
	Increment(ctx context.Context, collection, id, field string, delta, floor int64) (int64, error)
	Now() time.Time
	Close() error
}

// Document is a stored document snapshot.
type Document struct {
	ID     string
	fields map[string]json.RawMessage
}

// DataTo decodes the document fields into dst, which should be a pointer
// to a struct with json tags.
func (d *Document) DataTo(dst any) error {
	data, err := json.Marshal(d.fields)
	if err != nil {
		return fmt.Errorf("docstore: encode document %s: %w", d.ID, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("docstore: decode document %s: %w", d.ID, err)
	}
	return nil
}

// Has reports whether the document carries field.
func (d *Document) Has(field string) bool {
	_, ok := d.fields[field]
	return ok
}

// Int returns a numeric field as int64. A missing field reads as zero.
func (d *Document) Int(field string) (int64, error) {
	return numericField(d.fields, field)
}

func numericField(fields map[string]json.RawMessage, field string) (int64, error) {
	raw, ok := fields[field]
	if !ok || string(raw) == "null" {
		return 0, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, fmt.Errorf("%w: %s", ErrNotNumeric, field)
	}
	v, err := n.Int64()
	if err != nil {
		f, ferr := n.Float64()
		if ferr != nil {
			return 0, fmt.Errorf("%w: %s", ErrNotNumeric, field)
		}
		v = int64(f)
	}
	return v, nil
}
