package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// DocKeyPrefix prefixes every document key: doc:{collection}:{id}.
const DocKeyPrefix = "doc:"

// DefaultConflictRetries bounds how often a conflicting write is re-run.
const DefaultConflictRetries = 16

// Options configures a BadgerStore.
type Options struct {
	Path            string
	InMemory        bool
	ConflictRetries int
	// Now overrides the wall clock behind server timestamps.
	Now func() time.Time
}

// BadgerStore implements Store on an embedded Badger database. Every write
// runs in an optimistic transaction and is re-run when Badger reports a
// conflict, so read-then-write sequences such as Increment never lose
// updates.
type BadgerStore struct {
	db      *badger.DB
	clock   *clock
	retries uint
	closed  atomic.Bool
}

var _ Store = (*BadgerStore)(nil)

// Open opens (or creates) the database described by opts.
func Open(opts Options) (*BadgerStore, error) {
	var bopts badger.Options
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if opts.Path == "" {
			return nil, fmt.Errorf("%w: database path is required", ErrInvalidInput)
		}
		bopts = badger.DefaultOptions(opts.Path)
	}
	bopts = bopts.WithLogger(nil)

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return New(db, opts), nil
}

// New wraps an already opened database. Close closes db.
func New(db *badger.DB, opts Options) *BadgerStore {
	retries := opts.ConflictRetries
	if retries <= 0 {
		retries = DefaultConflictRetries
	}
	return &BadgerStore{
		db:      db,
		clock:   newClock(opts.Now),
		retries: uint(retries),
	}
}

// DB exposes the underlying database for maintenance tasks.
func (s *BadgerStore) DB() *badger.DB {
	return s.db
}

func (s *BadgerStore) Now() time.Time {
	return s.clock.Now()
}

func (s *BadgerStore) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.db.Close()
}

func docKey(collection, id string) []byte {
	return []byte(DocKeyPrefix + collection + ":" + id)
}

func collectionPrefix(collection string) []byte {
	return []byte(DocKeyPrefix + collection + ":")
}

func checkCollection(collection string) error {
	if collection == "" || strings.Contains(collection, ":") {
		return fmt.Errorf("%w: bad collection name %q", ErrInvalidInput, collection)
	}
	return nil
}

func (s *BadgerStore) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed.Load() {
		return ErrUnavailable
	}
	return nil
}

func (s *BadgerStore) translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, badger.ErrKeyNotFound):
		return ErrNotFound
	case errors.Is(err, badger.ErrDBClosed), errors.Is(err, badger.ErrBlockedWrites):
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}

// update runs fn in a read-write transaction, re-running it with backoff
// while Badger reports conflicts. fn must re-read everything it depends on.
func (s *BadgerStore) update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := s.ready(ctx); err != nil {
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Millisecond
	b.MaxInterval = 50 * time.Millisecond

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		if err := s.ready(ctx); err != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		err := s.db.Update(fn)
		if errors.Is(err, badger.ErrConflict) {
			return struct{}{}, err
		}
		if err != nil {
			return struct{}{}, backoff.Permanent(s.translate(err))
		}
		return struct{}{}, nil
	}, backoff.WithBackOff(b), backoff.WithMaxTries(s.retries))

	if errors.Is(err, badger.ErrConflict) {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}

func (s *BadgerStore) view(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return s.translate(s.db.View(fn))
}

// encodeFields resolves ServerTimestamp sentinels and JSON-encodes values.
func (s *BadgerStore) encodeFields(fields Fields, into map[string]json.RawMessage) error {
	var now time.Time
	for name, value := range fields {
		if name == "" {
			return fmt.Errorf("%w: empty field name", ErrInvalidInput)
		}
		if _, ok := value.(serverTimestamp); ok {
			if now.IsZero() {
				now = s.clock.Now()
			}
			value = now
		}
		raw, err := encodeValue(value)
		if err != nil {
			return err
		}
		into[name] = raw
	}
	return nil
}

func readFields(item *badger.Item) (map[string]json.RawMessage, error) {
	fields := make(map[string]json.RawMessage)
	err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &fields)
	})
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", item.Key(), err)
	}
	return fields, nil
}

func getFields(txn *badger.Txn, key []byte) (map[string]json.RawMessage, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return readFields(item)
}

func putFields(txn *badger.Txn, key []byte, fields map[string]json.RawMessage) error {
	data, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	return txn.Set(key, data)
}

// Create stores a new document under a random UUID and returns the id.
func (s *BadgerStore) Create(ctx context.Context, collection string, fields Fields) (string, error) {
	if err := checkCollection(collection); err != nil {
		return "", err
	}
	doc := make(map[string]json.RawMessage, len(fields))
	if err := s.encodeFields(fields, doc); err != nil {
		return "", err
	}

	id := uuid.NewString()
	key := docKey(collection, id)
	err := s.update(ctx, func(txn *badger.Txn) error {
		return putFields(txn, key, doc)
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *BadgerStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	if err := checkCollection(collection); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, ErrNotFound
	}

	var doc *Document
	err := s.view(ctx, func(txn *badger.Txn) error {
		fields, err := getFields(txn, docKey(collection, id))
		if err != nil {
			return err
		}
		doc = &Document{ID: id, fields: fields}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Update merges fields into an existing document.
func (s *BadgerStore) Update(ctx context.Context, collection, id string, fields Fields) error {
	if err := checkCollection(collection); err != nil {
		return err
	}
	if id == "" {
		return ErrNotFound
	}
	patch := make(map[string]json.RawMessage, len(fields))
	if err := s.encodeFields(fields, patch); err != nil {
		return err
	}

	key := docKey(collection, id)
	return s.update(ctx, func(txn *badger.Txn) error {
		doc, err := getFields(txn, key)
		if err != nil {
			return err
		}
		for name, raw := range patch {
			doc[name] = raw
		}
		return putFields(txn, key, doc)
	})
}

func (s *BadgerStore) Delete(ctx context.Context, collection, id string) error {
	if err := checkCollection(collection); err != nil {
		return err
	}
	if id == "" {
		return ErrNotFound
	}

	key := docKey(collection, id)
	return s.update(ctx, func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err != nil {
			return err
		}
		return txn.Delete(key)
	})
}

func (s *BadgerStore) Increment(ctx context.Context, collection, id, field string, delta, floor int64) (int64, error) {
	if err := checkCollection(collection); err != nil {
		return 0, err
	}
	if id == "" {
		return 0, ErrNotFound
	}
	if field == "" {
		return 0, fmt.Errorf("%w: empty field name", ErrInvalidInput)
	}

	key := docKey(collection, id)
	var result int64
	err := s.update(ctx, func(txn *badger.Txn) error {
		doc, err := getFields(txn, key)
		if err != nil {
			return err
		}
		current, err := numericField(doc, field)
		if err != nil {
			return err
		}
		next := current + delta
		if next < floor {
			next = floor
		}
		raw, err := encodeValue(next)
		if err != nil {
			return err
		}
		doc[field] = raw
		if err := putFields(txn, key, doc); err != nil {
			return err
		}
		result = next
		return nil
	})
	if err != nil {
		return 0, err
	}
	return result, nil
}

// scan calls fn for every document of collection in key order.
func (s *BadgerStore) scan(ctx context.Context, collection string, fn func(doc *Document) error) error {
	if err := checkCollection(collection); err != nil {
		return err
	}
	prefix := collectionPrefix(collection)
	return s.view(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			fields, err := readFields(item)
			if err != nil {
				return err
			}
			id := strings.TrimPrefix(string(item.Key()), string(prefix))
			if err := fn(&Document{ID: id, fields: fields}); err != nil {
				return err
			}
		}
		return nil
	})
}

// Query returns the documents whose field satisfies op against value, in
// key order.
func (s *BadgerStore) Query(ctx context.Context, collection, field string, op Op, value any) ([]*Document, error) {
	if !op.valid() {
		return nil, fmt.Errorf("%w: unknown operator %q", ErrInvalidInput, op)
	}
	want, err := encodeValue(value)
	if err != nil {
		return nil, err
	}

	var docs []*Document
	err = s.scan(ctx, collection, func(doc *Document) error {
		raw, ok := doc.fields[field]
		if matches(raw, ok, op, want) {
			docs = append(docs, doc)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}

func (s *BadgerStore) ListOrdered(ctx context.Context, collection, orderField string, dir Direction, limit int) ([]*Document, error) {
	var docs []*Document
	err := s.scan(ctx, collection, func(doc *Document) error {
		docs = append(docs, doc)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(docs, func(i, j int) bool {
		a, aok := docs[i].fields[orderField]
		b, bok := docs[j].fields[orderField]
		switch {
		case !aok && !bok:
			return docs[i].ID < docs[j].ID
		case !aok:
			return false
		case !bok:
			return true
		}
		c, ok := compareRaw(a, b)
		if !ok || c == 0 {
			return docs[i].ID < docs[j].ID
		}
		if dir == Desc {
			return c > 0
		}
		return c < 0
	})

	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}
	return docs, nil
}
