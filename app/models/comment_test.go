package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommentValidation(t *testing.T) {
	valid := Comment{
		PostID:      "p1",
		AuthorName:  "Ana",
		AuthorEmail: "ana@example.edu",
		Body:        "nice post",
	}

	t.Run("valid comment", func(t *testing.T) {
		c := valid
		assert.NoError(t, c.Validate())
	})

	t.Run("missing email", func(t *testing.T) {
		c := valid
		c.AuthorEmail = ""
		err := c.Validate()
		assert.Error(t, err)
		assert.Equal(t, "authorEmail is required", Describe(err))
	})

	t.Run("malformed email", func(t *testing.T) {
		c := valid
		c.AuthorEmail = "not-an-email"
		err := c.Validate()
		assert.Error(t, err)
		assert.Equal(t, "authorEmail must be a valid email address", Describe(err))
	})

	t.Run("missing post", func(t *testing.T) {
		c := valid
		c.PostID = ""
		assert.Error(t, c.Validate())
	})
}

func TestCommentEditableBy(t *testing.T) {
	owned := &Comment{AuthorUserID: "u1"}
	assert.True(t, owned.EditableBy(Identity{UserID: "u1"}))
	assert.False(t, owned.EditableBy(Identity{UserID: "u2"}))
	assert.False(t, owned.EditableBy(Anonymous))

	anonymous := &Comment{}
	assert.False(t, anonymous.EditableBy(Identity{UserID: "u1"}))
	assert.False(t, anonymous.EditableBy(Anonymous))
}

func TestNewCommentNormalize(t *testing.T) {
	t.Run("anonymous defaults", func(t *testing.T) {
		in := NewComment{Body: "  hi  ", AuthorEmail: "x@y.z"}
		in.Normalize(Anonymous)
		assert.Equal(t, "hi", in.Body)
		assert.Equal(t, AnonymousName, in.AuthorName)
		assert.Equal(t, "x@y.z", in.AuthorEmail)
	})

	t.Run("signed in caller fills blanks", func(t *testing.T) {
		in := NewComment{Body: "hi"}
		in.Normalize(Identity{UserID: "u1", DisplayName: "Ana", Email: "ana@example.edu"})
		assert.Equal(t, "Ana", in.AuthorName)
		assert.Equal(t, "ana@example.edu", in.AuthorEmail)
	})

	t.Run("explicit values win", func(t *testing.T) {
		in := NewComment{Body: "hi", AuthorName: "Nick", AuthorEmail: "n@example.edu"}
		in.Normalize(Identity{UserID: "u1", DisplayName: "Ana", Email: "ana@example.edu"})
		assert.Equal(t, "Nick", in.AuthorName)
		assert.Equal(t, "n@example.edu", in.AuthorEmail)
	})
}
