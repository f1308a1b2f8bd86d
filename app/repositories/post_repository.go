package repositories

import (
	"context"

	"campusblogs/app/docstore"
	"campusblogs/app/models"
)

// DocPostRepository implements PostRepository on a document store
type DocPostRepository struct {
	store docstore.Store
}

var _ PostRepository = (*DocPostRepository)(nil)

// NewDocPostRepository creates a new DocPostRepository
func NewDocPostRepository(store docstore.Store) *DocPostRepository {
	return &DocPostRepository{store: store}
}

// Create stores a new post with zeroed counters and a server-assigned
// createdAt, then refreshes post from the stored record.
func (r *DocPostRepository) Create(ctx context.Context, post *models.Post) error {
	id, err := r.store.Create(ctx, PostsCollection, docstore.Fields{
		"title":            post.Title,
		"content":          post.Content,
		"bannerUrl":        post.BannerURL,
		FieldAuthorID:      post.AuthorID,
		"authorName":       post.AuthorName,
		FieldCreatedAt:     docstore.ServerTimestamp,
		FieldLikesCount:    0,
		FieldCommentsCount: 0,
	})
	if err != nil {
		return translate("posts.Create", err)
	}

	stored, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	*post = *stored
	return nil
}

// GetByID retrieves a post by ID
func (r *DocPostRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	doc, err := r.store.Get(ctx, PostsCollection, id)
	if err != nil {
		return nil, translate("posts.GetByID", err)
	}
	post, err := decodePost(doc)
	if err != nil {
		return nil, translate("posts.GetByID", err)
	}
	return post, nil
}

func (r *DocPostRepository) List(ctx context.Context, limit int) ([]*models.Post, error) {
	docs, err := r.store.ListOrdered(ctx, PostsCollection, FieldCreatedAt, docstore.Desc, limit)
	if err != nil {
		return nil, translate("posts.List", err)
	}
	return decodePosts("posts.List", docs)
}

func (r *DocPostRepository) ListByAuthor(ctx context.Context, authorID string) ([]*models.Post, error) {
	docs, err := r.store.Query(ctx, PostsCollection, FieldAuthorID, docstore.Eq, authorID)
	if err != nil {
		return nil, translate("posts.ListByAuthor", err)
	}
	return decodePosts("posts.ListByAuthor", docs)
}

func decodePosts(op string, docs []*docstore.Document) ([]*models.Post, error) {
	posts := make([]*models.Post, 0, len(docs))
	for _, doc := range docs {
		post, err := decodePost(doc)
		if err != nil {
			return nil, translate(op, err)
		}
		posts = append(posts, post)
	}
	return posts, nil
}

// Update writes the given fields and stamps updatedAt. Counters are never
// written here.
func (r *DocPostRepository) Update(ctx context.Context, id string, changes PostChanges) (*models.Post, error) {
	fields := docstore.Fields{FieldUpdatedAt: docstore.ServerTimestamp}
	if changes.Title != nil {
		fields["title"] = *changes.Title
	}
	if changes.Content != nil {
		fields["content"] = *changes.Content
	}
	if changes.BannerURL != nil {
		fields["bannerUrl"] = *changes.BannerURL
	}

	if err := r.store.Update(ctx, PostsCollection, id, fields); err != nil {
		return nil, translate("posts.Update", err)
	}
	return r.GetByID(ctx, id)
}

// Delete deletes a post by ID. Comments are left in place.
func (r *DocPostRepository) Delete(ctx context.Context, id string) error {
	return translate("posts.Delete", r.store.Delete(ctx, PostsCollection, id))
}

func (r *DocPostRepository) IncrementLikes(ctx context.Context, id string, delta int64) (int64, error) {
	n, err := r.store.Increment(ctx, PostsCollection, id, FieldLikesCount, delta, 0)
	return n, translate("posts.IncrementLikes", err)
}

func (r *DocPostRepository) IncrementComments(ctx context.Context, id string, delta int64) (int64, error) {
	n, err := r.store.Increment(ctx, PostsCollection, id, FieldCommentsCount, delta, 0)
	return n, translate("posts.IncrementComments", err)
}

func (r *DocPostRepository) SetCommentsCount(ctx context.Context, id string, n int64) error {
	if n < 0 {
		n = 0
	}
	err := r.store.Update(ctx, PostsCollection, id, docstore.Fields{FieldCommentsCount: n})
	return translate("posts.SetCommentsCount", err)
}
