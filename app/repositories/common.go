package repositories

import (
	"context"
	"errors"

	"campusblogs/app/apperr"
	"campusblogs/app/docstore"
	"campusblogs/app/models"
)

const (
	// Collection names in the document store
	PostsCollection    = "posts"
	CommentsCollection = "comments"

	// Field names shared by the repositories and the store queries
	FieldCreatedAt     = "createdAt"
	FieldUpdatedAt     = "updatedAt"
	FieldAuthorID      = "authorId"
	FieldPostID        = "postId"
	FieldLikesCount    = "likesCount"
	FieldCommentsCount = "commentsCount"
)

// translate classifies a document store error for the service layer.
func translate(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, docstore.ErrNotFound):
		return apperr.Wrap(apperr.KindNotFound, op, "record not found", err)
	case errors.Is(err, context.DeadlineExceeded):
		return apperr.Wrap(apperr.KindTimeout, op, "store call timed out", err)
	case errors.Is(err, context.Canceled), errors.Is(err, docstore.ErrUnavailable):
		return apperr.Wrap(apperr.KindNetwork, op, "store unavailable", err)
	case errors.Is(err, docstore.ErrConflict):
		return apperr.Wrap(apperr.KindNetwork, op, "store too busy", err)
	}
	return apperr.Wrap(apperr.KindInternal, op, "store error", err)
}

// decodePost unmarshals a document and sets its id on the entity.
func decodePost(doc *docstore.Document) (*models.Post, error) {
	var post models.Post
	if err := doc.DataTo(&post); err != nil {
		return nil, err
	}
	post.ID = doc.ID
	return &post, nil
}

func decodeComment(doc *docstore.Document) (*models.Comment, error) {
	var comment models.Comment
	if err := doc.DataTo(&comment); err != nil {
		return nil, err
	}
	comment.ID = doc.ID
	return &comment, nil
}
