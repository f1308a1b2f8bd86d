package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"campusblogs/app/apperr"
	"campusblogs/app/models"
	"campusblogs/app/repositories"

	"github.com/rs/zerolog/log"
)

// MaxCommentLength bounds a comment body in characters.
const MaxCommentLength = 5000

// EngagementService handles comments and likes and keeps the post counters
// in step with them.
type EngagementService struct {
	commentRepo repositories.CommentRepository
	postRepo    repositories.PostRepository
}

// NewEngagementService creates a new EngagementService
func NewEngagementService(commentRepo repositories.CommentRepository, postRepo repositories.PostRepository) *EngagementService {
	return &EngagementService{
		commentRepo: commentRepo,
		postRepo:    postRepo,
	}
}

// AddComment stores a comment and then adds one to the post's
// commentsCount. Anyone may comment; authorUserId is recorded only for
// signed-in callers.
func (s *EngagementService) AddComment(ctx context.Context, caller models.Identity, postID string, in models.NewComment) (*models.Comment, error) {
	const op = "AddComment"
	in.Normalize(caller)
	if in.Body == "" {
		return nil, apperr.Validation(op, "comment body is required")
	}

	comment := &models.Comment{
		PostID:       postID,
		AuthorName:   in.AuthorName,
		AuthorEmail:  in.AuthorEmail,
		AuthorUserID: caller.UserID,
		Body:         in.Body,
	}
	if err := comment.Validate(); err != nil {
		return nil, apperr.Validation(op, "%s", models.Describe(err))
	}

	if _, err := s.postRepo.GetByID(ctx, postID); err != nil {
		return nil, err
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}

	if _, err := s.postRepo.IncrementComments(ctx, postID, 1); err != nil {
		log.Warn().Err(err).Str("postID", postID).Str("commentID", comment.ID).
			Msg("comment stored but commentsCount not incremented")
		return nil, apperr.Wrap(apperr.KindOf(err), op,
			fmt.Sprintf("comment %s stored but commentsCount not updated", comment.ID), err)
	}
	return comment, nil
}

// authorize loads a comment and checks that caller wrote it.
func (s *EngagementService) authorize(ctx context.Context, op string, caller models.Identity, commentID string) (*models.Comment, error) {
	if caller.IsAnonymous() {
		return nil, apperr.Authorization(op, "sign in to change a comment")
	}
	comment, err := s.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if !comment.EditableBy(caller) {
		return nil, apperr.Authorization(op, "only the comment author can change this comment")
	}
	return comment, nil
}

// EditComment replaces the comment body. commentsCount is untouched.
func (s *EngagementService) EditComment(ctx context.Context, caller models.Identity, commentID, newBody string) (*models.Comment, error) {
	const op = "EditComment"
	if _, err := s.authorize(ctx, op, caller, commentID); err != nil {
		return nil, err
	}

	body := strings.TrimSpace(newBody)
	if body == "" {
		return nil, apperr.Validation(op, "comment body is required")
	}
	if utf8.RuneCountInString(body) > MaxCommentLength {
		return nil, apperr.Validation(op, "comment body must be at most %d characters", MaxCommentLength)
	}
	return s.commentRepo.UpdateBody(ctx, commentID, body)
}

// DeleteComment removes the comment and takes one off the post's
// commentsCount, never going below zero. postID may be empty; when given it
// must match the comment.
func (s *EngagementService) DeleteComment(ctx context.Context, caller models.Identity, commentID, postID string) error {
	const op = "DeleteComment"
	comment, err := s.authorize(ctx, op, caller, commentID)
	if err != nil {
		return err
	}
	if postID != "" && postID != comment.PostID {
		return apperr.Validation(op, "comment %s does not belong to post %s", commentID, postID)
	}

	if err := s.commentRepo.Delete(ctx, commentID); err != nil {
		return err
	}

	_, err = s.postRepo.IncrementComments(ctx, comment.PostID, -1)
	switch {
	case err == nil:
		return nil
	case apperr.KindOf(err) == apperr.KindNotFound:
		log.Debug().Str("postID", comment.PostID).Str("commentID", commentID).
			Msg("comment of deleted post removed")
		return nil
	default:
		log.Warn().Err(err).Str("postID", comment.PostID).Str("commentID", commentID).
			Msg("comment deleted but commentsCount not decremented")
		return apperr.Wrap(apperr.KindOf(err), op,
			fmt.Sprintf("comment %s deleted but commentsCount not updated", commentID), err)
	}
}

// ListComments returns the comments of a live post, oldest first.
func (s *EngagementService) ListComments(ctx context.Context, postID string) ([]*models.Comment, error) {
	if _, err := s.postRepo.GetByID(ctx, postID); err != nil {
		return nil, err
	}
	return s.commentRepo.ListByPost(ctx, postID)
}

// LikePost adds one like. Only signed-in callers may like, and repeat likes
// by the same caller all count.
func (s *EngagementService) LikePost(ctx context.Context, caller models.Identity, postID string) (*models.Post, error) {
	const op = "LikePost"
	if caller.IsAnonymous() {
		return nil, apperr.Authorization(op, "sign in to like a post")
	}
	if _, err := s.postRepo.IncrementLikes(ctx, postID, 1); err != nil {
		return nil, err
	}
	return s.postRepo.GetByID(ctx, postID)
}

// ReconcileCommentsCount recounts a post's comments and stores the count
// when the cached value has drifted. A comment added or removed while the
// count runs can leave the result off by that comment.
func (s *EngagementService) ReconcileCommentsCount(ctx context.Context, postID string) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	actual, err := s.commentRepo.CountByPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if actual == post.CommentsCount {
		return post, nil
	}

	if err := s.postRepo.SetCommentsCount(ctx, postID, actual); err != nil {
		return nil, err
	}
	log.Info().Str("postID", postID).Int64("cached", post.CommentsCount).Int64("actual", actual).
		Msg("commentsCount reconciled")
	post.CommentsCount = actual
	return post, nil
}

// Correction records one reconciled counter.
type Correction struct {
	PostID string
	Before int64
	After  int64
}

// ReconcileAll reconciles every post and reports the counters it changed.
func (s *EngagementService) ReconcileAll(ctx context.Context) ([]Correction, error) {
	posts, err := s.postRepo.List(ctx, 0)
	if err != nil {
		return nil, err
	}

	var corrections []Correction
	for _, post := range posts {
		fixed, err := s.ReconcileCommentsCount(ctx, post.ID)
		if apperr.KindOf(err) == apperr.KindNotFound {
			continue
		}
		if err != nil {
			return corrections, err
		}
		if fixed.CommentsCount != post.CommentsCount {
			corrections = append(corrections, Correction{PostID: post.ID, Before: post.CommentsCount, After: fixed.CommentsCount})
		}
	}
	return corrections, nil
}
