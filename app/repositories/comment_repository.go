package repositories

import (
	"context"
	"sort"

	"campusblogs/app/docstore"
	"campusblogs/app/models"
)

// DocCommentRepository implements CommentRepository on a document store
type DocCommentRepository struct {
	store docstore.Store
}

var _ CommentRepository = (*DocCommentRepository)(nil)

// NewDocCommentRepository creates a new DocCommentRepository
func NewDocCommentRepository(store docstore.Store) *DocCommentRepository {
	return &DocCommentRepository{store: store}
}

// Create creates a new comment
func (r *DocCommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	fields := docstore.Fields{
		FieldPostID:    comment.PostID,
		"authorName":   comment.AuthorName,
		"authorEmail":  comment.AuthorEmail,
		"body":         comment.Body,
		FieldCreatedAt: docstore.ServerTimestamp,
	}
	if comment.AuthorUserID != "" {
		fields["authorUserId"] = comment.AuthorUserID
	}

	id, err := r.store.Create(ctx, CommentsCollection, fields)
	if err != nil {
		return translate("comments.Create", err)
	}
	stored, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	*comment = *stored
	return nil
}

// GetByID retrieves a comment by ID
func (r *DocCommentRepository) GetByID(ctx context.Context, id string) (*models.Comment, error) {
	doc, err := r.store.Get(ctx, CommentsCollection, id)
	if err != nil {
		return nil, translate("comments.GetByID", err)
	}
	comment, err := decodeComment(doc)
	if err != nil {
		return nil, translate("comments.GetByID", err)
	}
	return comment, nil
}

// ListByPost retrieves all comments for a post in discussion order
func (r *DocCommentRepository) ListByPost(ctx context.Context, postID string) ([]*models.Comment, error) {
	docs, err := r.store.Query(ctx, CommentsCollection, FieldPostID, docstore.Eq, postID)
	if err != nil {
		return nil, translate("comments.ListByPost", err)
	}

	comments := make([]*models.Comment, 0, len(docs))
	for _, doc := range docs {
		comment, err := decodeComment(doc)
		if err != nil {
			return nil, translate("comments.ListByPost", err)
		}
		comments = append(comments, comment)
	}
	sort.SliceStable(comments, func(i, j int) bool {
		a, b := comments[i], comments[j]
		if a.CreatedAt.Equal(b.CreatedAt) {
			return a.ID < b.ID
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
	return comments, nil
}

func (r *DocCommentRepository) CountByPost(ctx context.Context, postID string) (int64, error) {
	docs, err := r.store.Query(ctx, CommentsCollection, FieldPostID, docstore.Eq, postID)
	if err != nil {
		return 0, translate("comments.CountByPost", err)
	}
	return int64(len(docs)), nil
}

func (r *DocCommentRepository) UpdateBody(ctx context.Context, id, body string) (*models.Comment, error) {
	err := r.store.Update(ctx, CommentsCollection, id, docstore.Fields{
		"body":         body,
		FieldUpdatedAt: docstore.ServerTimestamp,
	})
	if err != nil {
		return nil, translate("comments.UpdateBody", err)
	}
	return r.GetByID(ctx, id)
}

// Delete deletes a comment by ID
func (r *DocCommentRepository) Delete(ctx context.Context, id string) error {
	return translate("comments.Delete", r.store.Delete(ctx, CommentsCollection, id))
}
