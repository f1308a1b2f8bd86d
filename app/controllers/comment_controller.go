package controllers

import (
	"encoding/json"
	"net/http"

	"campusblogs/app/models"
	"campusblogs/app/services"

	"github.com/gorilla/mux"
)

// CommentController handles HTTP requests for comments
type CommentController struct {
	engagementService *services.EngagementService
}

// NewCommentController creates a new CommentController
func NewCommentController(engagement *services.EngagementService) *CommentController {
	return &CommentController{engagementService: engagement}
}

// Index handles listing all comments for a post
func (cc *CommentController) Index(w http.ResponseWriter, r *http.Request) {
	comments, err := cc.engagementService.ListComments(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		sendError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, map[string]any{"comments": comments})
}

// Create handles creating a new comment
func (cc *CommentController) Create(w http.ResponseWriter, r *http.Request) {
	var in models.NewComment
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		badRequest(w, r, "AddComment", "invalid JSON: %v", err)
		return
	}

	comment, err := cc.engagementService.AddComment(r.Context(), caller(r), mux.Vars(r)["id"], in)
	if err != nil {
		sendError(w, r, err)
		return
	}
	sendJSON(w, http.StatusCreated, comment)
}

// Edit handles editing an existing comment
func (cc *CommentController) Edit(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Body string `json:"body"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		badRequest(w, r, "EditComment", "invalid JSON: %v", err)
		return
	}

	comment, err := cc.engagementService.EditComment(r.Context(), caller(r), mux.Vars(r)["id"], body.Body)
	if err != nil {
		sendError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, comment)
}

// Delete handles deleting a comment. ?postId= is optional.
func (cc *CommentController) Delete(w http.ResponseWriter, r *http.Request) {
	err := cc.engagementService.DeleteComment(r.Context(), caller(r), mux.Vars(r)["id"], r.URL.Query().Get("postId"))
	if err != nil {
		sendError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
