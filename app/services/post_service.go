package services

import (
	"context"
	"fmt"
	"strings"

	"campusblogs/app/apperr"
	"campusblogs/app/blobstore"
	"campusblogs/app/models"
	"campusblogs/app/repositories"
	"campusblogs/app/richtext"

	"github.com/rs/zerolog/log"
)

// DefaultLatestLimit is the size of the latest-posts feed.
const DefaultLatestLimit = 4

// PostOptions tunes PostService.
type PostOptions struct {
	LatestLimit int
	// CascadeCommentDeletes removes a post's comments when the post is
	// deleted. Off by default: comments outlive their post.
	CascadeCommentDeletes bool
}

// PostService handles business logic for posts
type PostService struct {
	postRepo    repositories.PostRepository
	commentRepo repositories.CommentRepository
	blobs       blobstore.Store
	opts        PostOptions
}

// NewPostService creates a new PostService
func NewPostService(postRepo repositories.PostRepository, commentRepo repositories.CommentRepository, blobs blobstore.Store, opts PostOptions) *PostService {
	if opts.LatestLimit <= 0 {
		opts.LatestLimit = DefaultLatestLimit
	}
	return &PostService{
		postRepo:    postRepo,
		commentRepo: commentRepo,
		blobs:       blobs,
		opts:        opts,
	}
}

// CreatePost uploads the banner, then stores the post with zeroed counters.
// If the post write fails after the upload the banner stays behind and the
// error names it.
func (s *PostService) CreatePost(ctx context.Context, caller models.Identity, in models.NewPost) (*models.Post, error) {
	const op = "CreatePost"
	if caller.IsAnonymous() {
		return nil, apperr.Authorization(op, "sign in to publish a post")
	}

	in.Normalize()
	in.Content = richtext.Sanitize(in.Content)
	if in.AuthorName == "" {
		in.AuthorName = strings.TrimSpace(caller.DisplayName)
	}
	if err := in.Validate(); err != nil {
		return nil, apperr.Validation(op, "%s", models.Describe(err))
	}
	if richtext.IsBlank(in.Content) {
		return nil, apperr.Validation(op, "content is required")
	}

	handle, err := s.uploadBanner(ctx, caller.UserID, in.Banner)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, op, "banner upload failed", err)
	}

	post := &models.Post{
		Title:      in.Title,
		Content:    in.Content,
		BannerURL:  s.blobs.PublicURL(handle),
		AuthorID:   caller.UserID,
		AuthorName: in.AuthorName,
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		log.Error().Err(err).Str("blob", handle.Path).Str("authorID", caller.UserID).
			Msg("banner uploaded but post was not created")
		return nil, apperr.Wrap(apperr.KindStorage, op,
			fmt.Sprintf("banner %s uploaded but post was not created", handle.Path), err)
	}

	log.Info().Str("postID", post.ID).Str("authorID", post.AuthorID).Msg("post created")
	return post, nil
}

// bannerPath names a banner by its author and content, so an author
// uploading the same image twice shares one object.
func bannerPath(userID string, data []byte) string {
	return fmt.Sprintf("banners/%s_%s", pathSafe(userID), blobstore.Checksum(data)[:16])
}

func (s *PostService) uploadBanner(ctx context.Context, userID string, banner *models.BannerImage) (blobstore.Handle, error) {
	return s.blobs.Upload(ctx, bannerPath(userID, banner.Data), banner.Data)
}

// pathSafe maps anything outside [A-Za-z0-9._-] to '_'.
func pathSafe(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		}
		return '_'
	}, s)
}

// UpdatePost edits title, content or banner. Only the author may edit.
func (s *PostService) UpdatePost(ctx context.Context, caller models.Identity, id string, u models.PostUpdate) (*models.Post, error) {
	const op = "UpdatePost"
	if caller.IsAnonymous() {
		return nil, apperr.Authorization(op, "sign in to edit a post")
	}
	if err := u.Validate(); err != nil {
		return nil, apperr.Validation(op, "%s", err.Error())
	}

	post, err := s.postRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !post.OwnedBy(caller) {
		return nil, apperr.Authorization(op, "only the author can edit this post")
	}

	var changes repositories.PostChanges
	if u.Title != nil {
		title := strings.TrimSpace(*u.Title)
		changes.Title = &title
	}
	if u.Content != nil {
		content := richtext.Sanitize(strings.TrimSpace(*u.Content))
		if richtext.IsBlank(content) {
			return nil, apperr.Validation(op, "content cannot be empty")
		}
		changes.Content = &content
	}
	if u.BannerURL != nil {
		bannerURL, ok := richtext.SafeImageURL(*u.BannerURL)
		if !ok {
			return nil, apperr.Validation(op, "bannerUrl must be an http(s) or relative URL")
		}
		changes.BannerURL = &bannerURL
	}

	var uploaded string
	if u.Banner != nil {
		handle, err := s.uploadBanner(ctx, caller.UserID, u.Banner)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindStorage, op, "banner upload failed", err)
		}
		bannerURL := s.blobs.PublicURL(handle)
		changes.BannerURL = &bannerURL
		uploaded = handle.Path
	}

	updated, err := s.postRepo.Update(ctx, id, changes)
	if err != nil {
		if uploaded != "" {
			log.Error().Err(err).Str("blob", uploaded).Str("postID", id).
				Msg("banner uploaded but post was not updated")
			return nil, apperr.Wrap(apperr.KindStorage, op,
				fmt.Sprintf("banner %s uploaded but post was not updated", uploaded), err)
		}
		return nil, err
	}
	return updated, nil
}

// GetPost retrieves a post by ID
func (s *PostService) GetPost(ctx context.Context, id string) (*models.Post, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperr.Validation("GetPost", "post id is required")
	}
	return s.postRepo.GetByID(ctx, id)
}

// ListPosts returns posts newest first; limit <= 0 lists all of them.
func (s *PostService) ListPosts(ctx context.Context, limit int) ([]*models.Post, error) {
	return s.postRepo.List(ctx, limit)
}

// LatestPosts is the front-page feed.
func (s *PostService) LatestPosts(ctx context.Context) ([]*models.Post, error) {
	return s.postRepo.List(ctx, s.opts.LatestLimit)
}

func (s *PostService) ListPostsByAuthor(ctx context.Context, authorID string) ([]*models.Post, error) {
	if strings.TrimSpace(authorID) == "" {
		return nil, apperr.Validation("ListPostsByAuthor", "author id is required")
	}
	return s.postRepo.ListByAuthor(ctx, authorID)
}

// DeletePost deletes a post. Only the author may delete.
func (s *PostService) DeletePost(ctx context.Context, caller models.Identity, id string) error {
	const op = "DeletePost"
	if caller.IsAnonymous() {
		return apperr.Authorization(op, "sign in to delete a post")
	}

	post, err := s.postRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !post.OwnedBy(caller) {
		return apperr.Authorization(op, "only the author can delete this post")
	}

	if err := s.postRepo.Delete(ctx, id); err != nil {
		return err
	}
	log.Info().Str("postID", id).Msg("post deleted")
	return s.removePostComments(ctx, id)
}

// removePostComments is the single place deciding what happens to the
// comments of a deleted post.
func (s *PostService) removePostComments(ctx context.Context, postID string) error {
	if !s.opts.CascadeCommentDeletes {
		return nil
	}

	comments, err := s.commentRepo.ListByPost(ctx, postID)
	if err != nil {
		return fmt.Errorf("list comments of deleted post %s: %w", postID, err)
	}
	for _, c := range comments {
		if err := s.commentRepo.Delete(ctx, c.ID); err != nil && apperr.KindOf(err) != apperr.KindNotFound {
			return fmt.Errorf("delete comment %s of deleted post %s: %w", c.ID, postID, err)
		}
	}
	log.Info().Str("postID", postID).Int("comments", len(comments)).Msg("comments of deleted post removed")
	return nil
}
