// Package routes assembles the HTTP API.
package routes

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"campusblogs/app/controllers"
	"campusblogs/app/identity"
	"campusblogs/app/middleware"
	"campusblogs/app/services"

	"github.com/gorilla/mux"
)

// Deps is everything the router needs.
type Deps struct {
	Posts          *services.PostService
	Engagement     *services.EngagementService
	Verifier       identity.Verifier
	BlobDir        string
	BlobURLPrefix  string
	RequestTimeout time.Duration
	ExcerptLength  int
	MaxUploadBytes int64
}

// SetupRoutes defines the application's routes and returns a router.
func SetupRoutes(deps Deps) *mux.Router {
	router := mux.NewRouter()

	// Apply global middleware
	router.Use(middleware.Recoverer)
	router.Use(middleware.Logger)
	router.Use(middleware.RequestTimeout(deps.RequestTimeout))
	router.Use(middleware.ContentTypeJSON)
	router.Use(middleware.Authenticate(deps.Verifier))

	postController := controllers.NewPostController(deps.Posts, deps.Engagement, controllers.PostControllerOptions{
		ExcerptLength:  deps.ExcerptLength,
		MaxUploadBytes: deps.MaxUploadBytes,
	})
	commentController := controllers.NewCommentController(deps.Engagement)

	router.NotFoundHandler = http.HandlerFunc(notFound)

	api := router.PathPrefix("/api").Subrouter()

	// Posts API endpoints
	posts := api.PathPrefix("/posts").Subrouter()
	posts.HandleFunc("", postController.Index).Methods("GET")
	posts.HandleFunc("", postController.Create).Methods("POST")
	posts.HandleFunc("/latest", postController.Latest).Methods("GET")
	posts.HandleFunc("/{id}", postController.Show).Methods("GET")
	posts.HandleFunc("/{id}", postController.Edit).Methods("PUT")
	posts.HandleFunc("/{id}", postController.Delete).Methods("DELETE")
	posts.HandleFunc("/{id}/like", postController.Like).Methods("POST")

	// Comments API endpoints
	posts.HandleFunc("/{id}/comments", commentController.Index).Methods("GET")
	posts.HandleFunc("/{id}/comments", commentController.Create).Methods("POST")
	api.HandleFunc("/comments/{id}", commentController.Edit).Methods("PUT")
	api.HandleFunc("/comments/{id}", commentController.Delete).Methods("DELETE")

	api.HandleFunc("/authors/{authorId}/posts", postController.ByAuthor).Methods("GET")

	if deps.BlobDir != "" {
		// Blobs published under an absolute URL are served elsewhere; the
		// local copy stays reachable under /blobs/.
		prefix := "/blobs/"
		if p := strings.TrimRight(deps.BlobURLPrefix, "/"); strings.HasPrefix(p, "/") && p != "" {
			prefix = p + "/"
		}
		router.PathPrefix(prefix).Handler(http.StripPrefix(prefix, http.FileServer(http.Dir(deps.BlobDir)))).Methods("GET", "HEAD")
	}

	return router
}

func notFound(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "Not found", "kind": "not_found"})
		return
	}
	http.NotFound(w, r)
}
