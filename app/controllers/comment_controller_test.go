package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"campusblogs/app/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (s *testServer) addComment(t *testing.T, as models.Identity, postID, payload string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/posts/"+postID+"/comments", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	return s.do(t, req, as)
}

func (s *testServer) commentsCount(t *testing.T, postID string) int64 {
	t.Helper()
	w := s.do(t, httptest.NewRequest(http.MethodGet, "/api/posts/"+postID, nil), models.Anonymous)
	require.Equal(t, http.StatusOK, w.Code)
	var post models.Post
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &post))
	return post.CommentsCount
}

func TestCommentController(t *testing.T) {
	s := setupTestServer(t)
	post := s.createPost(t, alice, "Post", "<p>body</p>")

	var anonymous, signed models.Comment
	t.Run("anonymous comment", func(t *testing.T) {
		w := s.addComment(t, models.Anonymous, post.ID, `{"body":"nice post","authorEmail":"guest@example.edu"}`)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &anonymous))
		assert.Equal(t, "nice post", anonymous.Body)
		assert.Equal(t, models.AnonymousName, anonymous.AuthorName)
		assert.Empty(t, anonymous.AuthorUserID)
		assert.Equal(t, int64(1), s.commentsCount(t, post.ID))
	})

	t.Run("signed in comment", func(t *testing.T) {
		w := s.addComment(t, bob, post.ID, `{"body":"agreed","authorUserId":"u1"}`)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &signed))
		assert.Equal(t, "u2", signed.AuthorUserID, "author id comes from the token")
		assert.Equal(t, "Bob", signed.AuthorName)
		assert.Equal(t, int64(2), s.commentsCount(t, post.ID))
	})

	t.Run("invalid comments", func(t *testing.T) {
		for _, payload := range []string{`{"body":"  "}`, `{"body":"hi","authorEmail":"not-an-email"}`, `not json`} {
			w := s.addComment(t, bob, post.ID, payload)
			assert.Equal(t, http.StatusBadRequest, w.Code, payload)
		}
		w := s.addComment(t, bob, "missing", `{"body":"hi"}`)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, int64(2), s.commentsCount(t, post.ID))
	})

	t.Run("list comments oldest first", func(t *testing.T) {
		w := s.do(t, httptest.NewRequest(http.MethodGet, "/api/posts/"+post.ID+"/comments", nil), models.Anonymous)
		require.Equal(t, http.StatusOK, w.Code)

		var response struct {
			Comments []models.Comment `json:"comments"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		require.Len(t, response.Comments, 2)
		assert.Equal(t, anonymous.ID, response.Comments[0].ID)
		assert.Equal(t, signed.ID, response.Comments[1].ID)
	})

	t.Run("edit comment", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPut, "/api/comments/"+signed.ID, strings.NewReader(`{"body":"strongly agreed"}`))
		w := s.do(t, req, bob)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var response models.Comment
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "strongly agreed", response.Body)

		req = httptest.NewRequest(http.MethodPut, "/api/comments/"+signed.ID, strings.NewReader(`{"body":"hijack"}`))
		assert.Equal(t, http.StatusForbidden, s.do(t, req, alice).Code)

		req = httptest.NewRequest(http.MethodPut, "/api/comments/"+anonymous.ID, strings.NewReader(`{"body":"hijack"}`))
		assert.Equal(t, http.StatusUnauthorized, s.do(t, req, models.Anonymous).Code)
	})

	t.Run("delete comment", func(t *testing.T) {
		w := s.do(t, httptest.NewRequest(http.MethodDelete, "/api/comments/"+signed.ID+"?postId=other", nil), bob)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = s.do(t, httptest.NewRequest(http.MethodDelete, "/api/comments/"+signed.ID+"?postId="+post.ID, nil), alice)
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, int64(2), s.commentsCount(t, post.ID))

		w = s.do(t, httptest.NewRequest(http.MethodDelete, "/api/comments/"+signed.ID+"?postId="+post.ID, nil), bob)
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, int64(1), s.commentsCount(t, post.ID))

		w = s.do(t, httptest.NewRequest(http.MethodDelete, "/api/comments/"+signed.ID, nil), bob)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, int64(1), s.commentsCount(t, post.ID))
	})
}

func TestCommentsOfMissingPost(t *testing.T) {
	s := setupTestServer(t)
	w := s.do(t, httptest.NewRequest(http.MethodGet, "/api/posts/missing/comments", nil), models.Anonymous)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
