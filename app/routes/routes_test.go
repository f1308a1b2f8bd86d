package routes

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"campusblogs/app/blobstore"
	"campusblogs/app/docstore"
	"campusblogs/app/identity"
	"campusblogs/app/models"
	"campusblogs/app/repositories"
	"campusblogs/app/services"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testApp struct {
	router *mux.Router
	tokens *identity.JWTProvider
}

func setupTestRouter(t *testing.T) *testApp {
	t.Helper()
	old := log.Logger
	log.Logger = zerolog.Nop()
	t.Cleanup(func() { log.Logger = old })

	store, err := docstore.Open(docstore.Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	blobDir := t.TempDir()
	blobs, err := blobstore.NewFileStore(blobDir, "/blobs")
	require.NoError(t, err)
	tokens, err := identity.NewJWTProvider(identity.Config{Secret: "routes-secret"})
	require.NoError(t, err)

	postRepo := repositories.NewDocPostRepository(store)
	commentRepo := repositories.NewDocCommentRepository(store)
	router := SetupRoutes(Deps{
		Posts:          services.NewPostService(postRepo, commentRepo, blobs, services.PostOptions{}),
		Engagement:     services.NewEngagementService(commentRepo, postRepo),
		Verifier:       tokens,
		BlobDir:        blobDir,
		BlobURLPrefix:  "/blobs",
		RequestTimeout: 5 * time.Second,
		ExcerptLength:  100,
	})
	return &testApp{router: router, tokens: tokens}
}

func (a *testApp) request(t *testing.T, method, path string, body io.Reader, contentType string, as models.Identity) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if !as.IsAnonymous() {
		token, err := a.tokens.Issue(as)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testApp) post(t *testing.T, as models.Identity, title string) models.Post {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("title", title))
	require.NoError(t, mw.WriteField("content", "<p>"+title+" body</p>"))
	part, err := mw.CreateFormFile("banner", "banner.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("banner bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	w := a.request(t, http.MethodPost, "/api/posts", &buf, mw.FormDataContentType(), as)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var p models.Post
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	return p
}

func (a *testApp) get(t *testing.T, path string, into any) {
	t.Helper()
	w := a.request(t, http.MethodGet, path, nil, "", models.Anonymous)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Equal(t, "application/json", w.Header().Get("Content-Type"))
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), into))
}

func TestEngagementFlow(t *testing.T) {
	app := setupTestRouter(t)
	u1 := models.Identity{UserID: "u1", DisplayName: "Uma"}
	u2 := models.Identity{UserID: "u2", DisplayName: "Viktor", Email: "viktor@example.edu"}

	p := app.post(t, u1, "Hello")
	assert.Zero(t, p.LikesCount)
	assert.Zero(t, p.CommentsCount)

	w := app.request(t, http.MethodPost, "/api/posts/"+p.ID+"/like", nil, "", u2)
	require.Equal(t, http.StatusOK, w.Code)

	var got models.Post
	app.get(t, "/api/posts/"+p.ID, &got)
	assert.Equal(t, int64(1), got.LikesCount)

	w = app.request(t, http.MethodPost, "/api/posts/"+p.ID+"/comments",
		strings.NewReader(`{"body":"nice post"}`), "application/json", u2)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var c models.Comment
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &c))

	app.get(t, "/api/posts/"+p.ID, &got)
	assert.Equal(t, int64(1), got.CommentsCount)

	var list struct {
		Comments []models.Comment `json:"comments"`
	}
	app.get(t, "/api/posts/"+p.ID+"/comments", &list)
	require.Len(t, list.Comments, 1)
	assert.Equal(t, "nice post", list.Comments[0].Body)

	w = app.request(t, http.MethodDelete, "/api/comments/"+c.ID+"?postId="+p.ID, nil, "", u2)
	require.Equal(t, http.StatusNoContent, w.Code)

	app.get(t, "/api/posts/"+p.ID, &got)
	assert.Zero(t, got.CommentsCount)
	assert.Equal(t, int64(1), got.LikesCount)
}

func TestFeedRoutes(t *testing.T) {
	app := setupTestRouter(t)
	author := models.Identity{UserID: "author-1", DisplayName: "Author"}
	for _, title := range []string{"one", "two", "three", "four", "five"} {
		app.post(t, author, title)
	}

	var feed struct {
		Posts []struct {
			Title   string `json:"title"`
			Excerpt string `json:"excerpt"`
		} `json:"posts"`
	}
	app.get(t, "/api/posts/latest", &feed)
	require.Len(t, feed.Posts, services.DefaultLatestLimit)
	assert.Equal(t, "five", feed.Posts[0].Title)
	assert.Equal(t, "five body", feed.Posts[0].Excerpt)

	app.get(t, "/api/posts?limit=2", &feed)
	assert.Len(t, feed.Posts, 2)

	app.get(t, "/api/authors/author-1/posts", &feed)
	assert.Len(t, feed.Posts, 5)
}

func TestBlobRoute(t *testing.T) {
	app := setupTestRouter(t)
	p := app.post(t, models.Identity{UserID: "u1"}, "With banner")

	w := app.request(t, http.MethodGet, p.BannerURL, nil, "", models.Anonymous)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "banner bytes", w.Body.String())
}

func TestUnknownRoutes(t *testing.T) {
	app := setupTestRouter(t)

	w := app.request(t, http.MethodGet, "/api/nothing/here", nil, "", models.Anonymous)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	w = app.request(t, http.MethodGet, "/elsewhere", nil, "", models.Anonymous)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestInvalidToken(t *testing.T) {
	app := setupTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/api/posts", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	w := httptest.NewRecorder()
	app.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
