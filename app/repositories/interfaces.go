package repositories

import (
	"context"

	"campusblogs/app/models"
)

// PostChanges lists the editable post fields. Nil fields are left as is.
type PostChanges struct {
	Title     *string
	Content   *string
	BannerURL *string
}

// PostRepository defines the interface for post data access
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id string) (*models.Post, error)
	// List returns posts newest first. limit <= 0 returns all of them.
	List(ctx context.Context, limit int) ([]*models.Post, error)
	ListByAuthor(ctx context.Context, authorID string) ([]*models.Post, error)
	Update(ctx context.Context, id string, changes PostChanges) (*models.Post, error)
	Delete(ctx context.Context, id string) error
	// IncrementLikes and IncrementComments apply delta atomically and
	// return the stored result. Both counters are floored at zero.
	IncrementLikes(ctx context.Context, id string, delta int64) (int64, error)
	IncrementComments(ctx context.Context, id string, delta int64) (int64, error)
	SetCommentsCount(ctx context.Context, id string, n int64) error
}

// CommentRepository defines the interface for comment data access
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id string) (*models.Comment, error)
	// ListByPost returns a post's comments oldest first.
	ListByPost(ctx context.Context, postID string) ([]*models.Comment, error)
	CountByPost(ctx context.Context, postID string) (int64, error)
	UpdateBody(ctx context.Context, id, body string) (*models.Comment, error)
	Delete(ctx context.Context, id string) error
}
