package models

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	ErrCountersReadOnly = errors.New("likesCount and commentsCount cannot be edited")
	ErrEmptyUpdate      = errors.New("update changes nothing")
	ErrBannerRequired   = errors.New("banner image is required")
)

// Validate checks if the post meets all validation requirements
func (p *Post) Validate() error {
	return validate.Struct(p)
}

// OwnedBy reports whether caller authored the post. Anonymous callers own
// nothing.
func (p *Post) OwnedBy(caller Identity) bool {
	return caller.UserID != "" && caller.UserID == p.AuthorID
}

// Normalize trims the text fields.
func (in *NewPost) Normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)
	in.AuthorName = strings.TrimSpace(in.AuthorName)
}

// Validate checks a normalized NewPost.
func (in *NewPost) Validate() error {
	if err := validate.Struct(in); err != nil {
		return err
	}
	if in.Banner == nil || len(in.Banner.Data) == 0 {
		return ErrBannerRequired
	}
	return nil
}

// Validate rejects counter edits, empty updates and blanked fields.
func (u *PostUpdate) Validate() error {
	if u.LikesCount != nil || u.CommentsCount != nil {
		return ErrCountersReadOnly
	}
	if u.Title == nil && u.Content == nil && u.BannerURL == nil && u.Banner == nil {
		return ErrEmptyUpdate
	}
	if u.Title != nil {
		if err := validate.Var(strings.TrimSpace(*u.Title), "required,max=200"); err != nil {
			return titleError(err)
		}
	}
	if u.Content != nil && strings.TrimSpace(*u.Content) == "" {
		return errors.New("content cannot be empty")
	}
	if u.Banner != nil && len(u.Banner.Data) == 0 {
		return errors.New("banner image is empty")
	}
	return nil
}

// titleError words a validator failure on a bare title value, which carries
// no field name.
func titleError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	if verrs[0].Tag() == "max" {
		return errors.New("title must be at most " + verrs[0].Param() + " characters")
	}
	return errors.New("title cannot be empty")
}
