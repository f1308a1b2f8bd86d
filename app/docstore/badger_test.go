package docstore

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *BadgerStore {
	t.Helper()
	s, err := Open(Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

type testDoc struct {
	Title     string    `json:"title"`
	Count     int64     `json:"count"`
	CreatedAt time.Time `json:"createdAt"`
}

func TestCreateAndGet(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	id, err := s.Create(ctx, "posts", Fields{
		"title":     "hello",
		"count":     0,
		"createdAt": ServerTimestamp,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	doc, err := s.Get(ctx, "posts", id)
	require.NoError(t, err)
	assert.Equal(t, id, doc.ID)

	var got testDoc
	require.NoError(t, doc.DataTo(&got))
	assert.Equal(t, "hello", got.Title)
	assert.Equal(t, int64(0), got.Count)
	assert.False(t, got.CreatedAt.IsZero())
	assert.True(t, doc.Has("title"))
	assert.False(t, doc.Has("missing"))

	t.Run("missing document", func(t *testing.T) {
		_, err := s.Get(ctx, "posts", "nope")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("empty id", func(t *testing.T) {
		_, err := s.Get(ctx, "posts", "")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("bad collection", func(t *testing.T) {
		_, err := s.Create(ctx, "a:b", Fields{"x": 1})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("collections are isolated", func(t *testing.T) {
		_, err := s.Get(ctx, "comments", id)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestUpdateMergesFields(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	id, err := s.Create(ctx, "posts", Fields{"title": "old", "count": 3})
	require.NoError(t, err)

	require.NoError(t, s.Update(ctx, "posts", id, Fields{"title": "new"}))

	doc, err := s.Get(ctx, "posts", id)
	require.NoError(t, err)
	var got testDoc
	require.NoError(t, doc.DataTo(&got))
	assert.Equal(t, "new", got.Title)
	assert.Equal(t, int64(3), got.Count)

	err = s.Update(ctx, "posts", "missing", Fields{"title": "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDelete(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	id, err := s.Create(ctx, "posts", Fields{"title": "bye"})
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, "posts", id))
	_, err = s.Get(ctx, "posts", id)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, s.Delete(ctx, "posts", id), ErrNotFound)
}

func TestServerTimestampsIncrease(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s, err := Open(Options{InMemory: true, Now: func() time.Time { return fixed }})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	var last time.Time
	for i := 0; i < 5; i++ {
		now := s.Now()
		assert.True(t, now.After(last), "timestamp %d did not increase", i)
		last = now
	}
}

func TestQuery(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	for _, c := range []struct {
		post  string
		count int
	}{{"a", 1}, {"a", 2}, {"b", 3}} {
		_, err := s.Create(ctx, "comments", Fields{"postId": c.post, "count": c.count})
		require.NoError(t, err)
	}

	tests := []struct {
		name  string
		field string
		op    Op
		value any
		want  int
	}{
		{"equal string", "postId", Eq, "a", 2},
		{"not equal", "postId", Neq, "a", 1},
		{"greater than", "count", Gt, 1, 2},
		{"less or equal", "count", Lte, 2, 2},
		{"no matches", "postId", Eq, "zzz", 0},
		{"missing field", "other", Eq, "a", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs, err := s.Query(ctx, "comments", tt.field, tt.op, tt.value)
			require.NoError(t, err)
			assert.Len(t, docs, tt.want)
		})
	}

	t.Run("unknown operator", func(t *testing.T) {
		_, err := s.Query(ctx, "comments", "postId", Op("~"), "a")
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestListOrdered(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 10; i++ {
		id, err := s.Create(ctx, "posts", Fields{"n": i, "createdAt": ServerTimestamp})
		require.NoError(t, err)
		ids = append(ids, id)
	}

	t.Run("descending with limit", func(t *testing.T) {
		docs, err := s.ListOrdered(ctx, "posts", "createdAt", Desc, 4)
		require.NoError(t, err)
		require.Len(t, docs, 4)
		for i, doc := range docs {
			assert.Equal(t, ids[9-i], doc.ID)
		}
	})

	t.Run("ascending without limit", func(t *testing.T) {
		docs, err := s.ListOrdered(ctx, "posts", "createdAt", Asc, 0)
		require.NoError(t, err)
		require.Len(t, docs, 10)
		for i, doc := range docs {
			assert.Equal(t, ids[i], doc.ID)
		}
	})

	t.Run("documents without the field sort last", func(t *testing.T) {
		id, err := s.Create(ctx, "posts", Fields{"n": 99})
		require.NoError(t, err)
		docs, err := s.ListOrdered(ctx, "posts", "createdAt", Desc, 0)
		require.NoError(t, err)
		require.Len(t, docs, 11)
		assert.Equal(t, id, docs[10].ID)
	})
}

func TestIncrement(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	id, err := s.Create(ctx, "posts", Fields{"likesCount": 0})
	require.NoError(t, err)

	t.Run("adds delta", func(t *testing.T) {
		n, err := s.Increment(ctx, "posts", id, "likesCount", 1, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("clamps at floor", func(t *testing.T) {
		n, err := s.Increment(ctx, "posts", id, "likesCount", -5, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(0), n)
	})

	t.Run("missing field starts from zero", func(t *testing.T) {
		n, err := s.Increment(ctx, "posts", id, "views", 2, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
	})

	t.Run("missing document", func(t *testing.T) {
		_, err := s.Increment(ctx, "posts", "missing", "likesCount", 1, 0)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("non numeric field", func(t *testing.T) {
		other, err := s.Create(ctx, "posts", Fields{"likesCount": "many"})
		require.NoError(t, err)
		_, err = s.Increment(ctx, "posts", other, "likesCount", 1, 0)
		assert.ErrorIs(t, err, ErrNotNumeric)
	})
}

func TestIncrementConcurrent(t *testing.T) {
	s, err := Open(Options{InMemory: true, ConflictRetries: 1000})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	ctx := context.Background()

	id, err := s.Create(ctx, "posts", Fields{"commentsCount": 0})
	require.NoError(t, err)

	const workers = 20
	const perWorker = 10
	var wg sync.WaitGroup
	errs := make(chan error, workers*perWorker)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				if _, err := s.Increment(ctx, "posts", id, "commentsCount", 1, 0); err != nil {
					errs <- err
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	doc, err := s.Get(ctx, "posts", id)
	require.NoError(t, err)
	n, err := doc.Int("commentsCount")
	require.NoError(t, err)
	assert.Equal(t, int64(workers*perWorker), n)
}

func TestContextAndClose(t *testing.T) {
	s, err := Open(Options{InMemory: true})
	require.NoError(t, err)

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := s.Create(ctx, "posts", Fields{"title": "x"})
		assert.ErrorIs(t, err, context.Canceled)
		_, err = s.Get(ctx, "posts", "x")
		assert.ErrorIs(t, err, context.Canceled)
	})

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	t.Run("closed store", func(t *testing.T) {
		_, err := s.Create(context.Background(), "posts", Fields{"title": "x"})
		assert.ErrorIs(t, err, ErrUnavailable)
		_, err = s.ListOrdered(context.Background(), "posts", "createdAt", Desc, 0)
		assert.ErrorIs(t, err, ErrUnavailable)
	})
}

func TestBackupRestore(t *testing.T) {
	src := setupTestStore(t)
	ctx := context.Background()

	id, err := src.Create(ctx, "posts", Fields{"title": "kept"})
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = src.Backup(&buf)
	require.NoError(t, err)

	dst := setupTestStore(t)
	require.NoError(t, dst.Restore(&buf))

	doc, err := dst.Get(ctx, "posts", id)
	require.NoError(t, err)
	var got testDoc
	require.NoError(t, doc.DataTo(&got))
	assert.Equal(t, "kept", got.Title)
}
