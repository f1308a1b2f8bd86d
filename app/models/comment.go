package models

import "strings"

// AnonymousName is shown for commenters who leave the name blank.
const AnonymousName = "Anonymous"

// Validate checks if the comment meets all validation requirements
func (c *Comment) Validate() error {
	return validate.Struct(c)
}

// EditableBy reports whether caller may edit or delete the comment. Comments
// left without a signed-in identity are editable by nobody.
func (c *Comment) EditableBy(caller Identity) bool {
	return caller.UserID != "" && c.AuthorUserID != "" && caller.UserID == c.AuthorUserID
}

// Normalize trims the input and fills name and email from the caller when
// they are blank.
func (in *NewComment) Normalize(caller Identity) {
	in.Body = strings.TrimSpace(in.Body)
	in.AuthorName = strings.TrimSpace(in.AuthorName)
	in.AuthorEmail = strings.TrimSpace(in.AuthorEmail)
	if in.AuthorName == "" {
		in.AuthorName = strings.TrimSpace(caller.DisplayName)
	}
	if in.AuthorName == "" {
		in.AuthorName = AnonymousName
	}
	if in.AuthorEmail == "" {
		in.AuthorEmail = strings.TrimSpace(caller.Email)
	}
}

// IsAnonymous reports whether the identity carries no user id.
func (i Identity) IsAnonymous() bool {
	return i.UserID == ""
}
