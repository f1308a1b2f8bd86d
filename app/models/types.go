package models

import "time"

// Post is a published blog article with denormalized engagement counters.
type Post struct {
	ID            string    `json:"id"`
	Title         string    `json:"title" validate:"required,max=200"`
	Content       string    `json:"content" validate:"required"`
	BannerURL     string    `json:"bannerUrl"`
	AuthorID      string    `json:"authorId" validate:"required"`
	AuthorName    string    `json:"authorName" validate:"max=100"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt,omitempty"`
	LikesCount    int64     `json:"likesCount" validate:"gte=0"`
	CommentsCount int64     `json:"commentsCount" validate:"gte=0"`
}

// Comment is a reply attached to exactly one Post.
type Comment struct {
	ID           string    `json:"id"`
	PostID       string    `json:"postId" validate:"required"`
	AuthorName   string    `json:"authorName" validate:"required,max=100"`
	AuthorEmail  string    `json:"authorEmail" validate:"required,email"`
	AuthorUserID string    `json:"authorUserId,omitempty"`
	Body         string    `json:"body" validate:"required,max=5000"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt,omitempty"`
}

// Identity is the caller on whose behalf an operation runs. The zero value
// is the anonymous caller.
type Identity struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
}

// Anonymous is the unauthenticated caller.
var Anonymous = Identity{}

// BannerImage is an uploaded banner picture.
type BannerImage struct {
	Filename    string
	ContentType string
	Data        []byte
}

// NewPost is the input to creating a post. The author comes from the
// caller identity.
type NewPost struct {
	Title      string `validate:"required,max=200"`
	Content    string `validate:"required"`
	AuthorName string `validate:"max=100"`
	Banner     *BannerImage
}

// PostUpdate carries an edit to a post. Nil fields are left unchanged.
// Counters are never editable; they are decoded only so that an update
// naming them can be refused.
type PostUpdate struct {
	Title         *string      `json:"title,omitempty"`
	Content       *string      `json:"content,omitempty"`
	BannerURL     *string      `json:"bannerUrl,omitempty"`
	Banner        *BannerImage `json:"-"`
	LikesCount    *int64       `json:"likesCount,omitempty"`
	CommentsCount *int64       `json:"commentsCount,omitempty"`
}

// NewComment is the input to adding a comment.
type NewComment struct {
	Body        string `json:"body"`
	AuthorName  string `json:"authorName"`
	AuthorEmail string `json:"authorEmail"`
}
