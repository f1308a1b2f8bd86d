package repositories

import (
	"context"
	"testing"

	"campusblogs/app/apperr"
	"campusblogs/app/docstore"
	"campusblogs/app/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *docstore.BadgerStore {
	t.Helper()
	store, err := docstore.Open(docstore.Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestDocPostRepository(t *testing.T) {
	repo := NewDocPostRepository(setupTestStore(t))
	ctx := context.Background()

	post := &models.Post{
		Title:      "Test Post",
		Content:    "<p>This is a test post</p>",
		BannerURL:  "/blobs/banners/u1_1",
		AuthorID:   "u1",
		AuthorName: "Ana",
	}

	t.Run("Create", func(t *testing.T) {
		err := repo.Create(ctx, post)
		assert.NoError(t, err)
		assert.NotEmpty(t, post.ID)
		assert.False(t, post.CreatedAt.IsZero())
		assert.Zero(t, post.LikesCount)
		assert.Zero(t, post.CommentsCount)
	})

	t.Run("GetByID", func(t *testing.T) {
		found, err := repo.GetByID(ctx, post.ID)
		assert.NoError(t, err)
		assert.Equal(t, post.Title, found.Title)
		assert.Equal(t, post.Content, found.Content)
		assert.Equal(t, "u1", found.AuthorID)
		assert.True(t, post.CreatedAt.Equal(found.CreatedAt))
	})

	t.Run("GetByID missing", func(t *testing.T) {
		_, err := repo.GetByID(ctx, "missing")
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("Update", func(t *testing.T) {
		title := "Updated Title"
		updated, err := repo.Update(ctx, post.ID, PostChanges{Title: &title})
		assert.NoError(t, err)
		assert.Equal(t, "Updated Title", updated.Title)
		assert.Equal(t, post.Content, updated.Content)
		assert.False(t, updated.UpdatedAt.IsZero())
		assert.True(t, post.CreatedAt.Equal(updated.CreatedAt))
	})

	t.Run("Update missing", func(t *testing.T) {
		title := "x"
		_, err := repo.Update(ctx, "missing", PostChanges{Title: &title})
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("counters", func(t *testing.T) {
		n, err := repo.IncrementLikes(ctx, post.ID, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		n, err = repo.IncrementComments(ctx, post.ID, -1)
		require.NoError(t, err)
		assert.Equal(t, int64(0), n)

		require.NoError(t, repo.SetCommentsCount(ctx, post.ID, 7))
		found, err := repo.GetByID(ctx, post.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(7), found.CommentsCount)
		assert.Equal(t, int64(1), found.LikesCount)

		_, err = repo.IncrementLikes(ctx, "missing", 1)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, post.ID))
		_, err := repo.GetByID(ctx, post.ID)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
		assert.ErrorIs(t, repo.Delete(ctx, post.ID), apperr.ErrNotFound)
	})
}

func TestDocPostRepositoryListing(t *testing.T) {
	repo := NewDocPostRepository(setupTestStore(t))
	ctx := context.Background()

	var ids []string
	for i, author := range []string{"u1", "u2", "u1", "u2", "u1"} {
		post := &models.Post{Title: "Post", Content: "C", AuthorID: author}
		require.NoError(t, repo.Create(ctx, post), "post %d", i)
		ids = append(ids, post.ID)
	}

	t.Run("List newest first", func(t *testing.T) {
		posts, err := repo.List(ctx, 0)
		require.NoError(t, err)
		require.Len(t, posts, 5)
		for i, p := range posts {
			assert.Equal(t, ids[4-i], p.ID)
		}
	})

	t.Run("List with limit", func(t *testing.T) {
		posts, err := repo.List(ctx, 2)
		require.NoError(t, err)
		require.Len(t, posts, 2)
		assert.Equal(t, ids[4], posts[0].ID)
		assert.Equal(t, ids[3], posts[1].ID)
	})

	t.Run("ListByAuthor", func(t *testing.T) {
		posts, err := repo.ListByAuthor(ctx, "u1")
		require.NoError(t, err)
		got := make([]string, 0, len(posts))
		for _, p := range posts {
			got = append(got, p.ID)
		}
		assert.ElementsMatch(t, []string{ids[0], ids[2], ids[4]}, got)

		none, err := repo.ListByAuthor(ctx, "nobody")
		require.NoError(t, err)
		assert.Empty(t, none)
	})
}

func TestTranslateClosedStore(t *testing.T) {
	store, err := docstore.Open(docstore.Options{InMemory: true})
	require.NoError(t, err)
	repo := NewDocPostRepository(store)
	require.NoError(t, store.Close())

	_, err = repo.GetByID(context.Background(), "x")
	assert.ErrorIs(t, err, apperr.ErrNetwork)
	assert.True(t, apperr.Retryable(err))
}

func TestTranslateDeadline(t *testing.T) {
	repo := NewDocPostRepository(setupTestStore(t))
	ctx, cancel := context.WithTimeout(context.Background(), 0)
	defer cancel()

	_, err := repo.List(ctx, 0)
	assert.ErrorIs(t, err, apperr.ErrTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
