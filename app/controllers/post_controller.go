package controllers

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"campusblogs/app/models"
	"campusblogs/app/services"

	"github.com/gorilla/mux"
)

// DefaultMaxUploadBytes caps a multipart request body.
const DefaultMaxUploadBytes = 8 << 20

// PostController handles HTTP requests for blog posts
type PostController struct {
	postService       *services.PostService
	engagementService *services.EngagementService
	excerptLength     int
	maxUploadBytes    int64
}

// PostControllerOptions tunes the feed and upload handling.
type PostControllerOptions struct {
	ExcerptLength  int
	MaxUploadBytes int64
}

// NewPostController creates a new PostController
func NewPostController(posts *services.PostService, engagement *services.EngagementService, opts PostControllerOptions) *PostController {
	if opts.ExcerptLength <= 0 {
		opts.ExcerptLength = 100
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}
	return &PostController{
		postService:       posts,
		engagementService: engagement,
		excerptLength:     opts.ExcerptLength,
		maxUploadBytes:    opts.MaxUploadBytes,
	}
}

// Index lists post summaries, newest first.
func (pc *PostController) Index(w http.ResponseWriter, r *http.Request) {
	limit, ok := limitParam(r)
	if !ok {
		badRequest(w, r, "ListPosts", "limit must be a non-negative integer")
		return
	}
	posts, err := pc.postService.ListPosts(r.Context(), limit)
	if err != nil {
		sendError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, map[string]any{"posts": summarize(posts, pc.excerptLength)})
}

// Latest returns the front-page feed.
func (pc *PostController) Latest(w http.ResponseWriter, r *http.Request) {
	posts, err := pc.postService.LatestPosts(r.Context())
	if err != nil {
		sendError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, map[string]any{"posts": summarize(posts, pc.excerptLength)})
}

// ByAuthor lists one author's posts.
func (pc *PostController) ByAuthor(w http.ResponseWriter, r *http.Request) {
	posts, err := pc.postService.ListPostsByAuthor(r.Context(), mux.Vars(r)["authorId"])
	if err != nil {
		sendError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, map[string]any{"posts": summarize(posts, pc.excerptLength)})
}

// Show handles displaying a single post
func (pc *PostController) Show(w http.ResponseWriter, r *http.Request) {
	post, err := pc.postService.GetPost(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		sendError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, post)
}

// Create handles a multipart post submission with its banner image.
func (pc *PostController) Create(w http.ResponseWriter, r *http.Request) {
	const op = "CreatePost"
	r.Body = http.MaxBytesReader(w, r.Body, pc.maxUploadBytes)
	if err := r.ParseMultipartForm(pc.maxUploadBytes); err != nil {
		badRequest(w, r, op, "expected a multipart form: %v", err)
		return
	}

	banner, err := readBanner(r)
	if err != nil {
		badRequest(w, r, op, "read banner: %v", err)
		return
	}
	in := models.NewPost{
		Title:      r.FormValue("title"),
		Content:    r.FormValue("content"),
		AuthorName: r.FormValue("authorName"),
		Banner:     banner,
	}

	post, err := pc.postService.CreatePost(r.Context(), caller(r), in)
	if err != nil {
		sendError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/posts/"+post.ID)
	sendJSON(w, http.StatusCreated, post)
}

// Edit applies a JSON or multipart update.
func (pc *PostController) Edit(w http.ResponseWriter, r *http.Request) {
	const op = "UpdatePost"
	var update models.PostUpdate

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		r.Body = http.MaxBytesReader(w, r.Body, pc.maxUploadBytes)
		if err := r.ParseMultipartForm(pc.maxUploadBytes); err != nil {
			badRequest(w, r, op, "invalid multipart form: %v", err)
			return
		}
		update.Title = formValue(r, "title")
		update.Content = formValue(r, "content")
		update.BannerURL = formValue(r, "bannerUrl")
		// Counter fields are passed on so the service refuses them.
		if formValue(r, "likesCount") != nil {
			update.LikesCount = new(int64)
		}
		if formValue(r, "commentsCount") != nil {
			update.CommentsCount = new(int64)
		}
		banner, err := readBanner(r)
		if err != nil {
			badRequest(w, r, op, "read banner: %v", err)
			return
		}
		update.Banner = banner
	} else if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		badRequest(w, r, op, "invalid JSON: %v", err)
		return
	}

	post, err := pc.postService.UpdatePost(r.Context(), caller(r), mux.Vars(r)["id"], update)
	if err != nil {
		sendError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, post)
}

// Delete handles deleting a post
func (pc *PostController) Delete(w http.ResponseWriter, r *http.Request) {
	if err := pc.postService.DeletePost(r.Context(), caller(r), mux.Vars(r)["id"]); err != nil {
		sendError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Like adds one like and returns the post.
func (pc *PostController) Like(w http.ResponseWriter, r *http.Request) {
	post, err := pc.engagementService.LikePost(r.Context(), caller(r), mux.Vars(r)["id"])
	if err != nil {
		sendError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, post)
}

func formValue(r *http.Request, key string) *string {
	values, ok := r.MultipartForm.Value[key]
	if !ok || len(values) == 0 {
		return nil
	}
	v := values[0]
	return &v
}

// readBanner returns the "banner" file part, or nil when there is none.
func readBanner(r *http.Request) (*models.BannerImage, error) {
	file, header, err := r.FormFile("banner")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	contentType := header.Header.Get("Content-Type")
	if contentType == "" || strings.HasPrefix(contentType, "application/octet-stream") {
		contentType = http.DetectContentType(data)
	}
	return &models.BannerImage{Filename: header.Filename, ContentType: contentType, Data: data}, nil
}
