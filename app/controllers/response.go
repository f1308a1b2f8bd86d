package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"campusblogs/app/apperr"
	"campusblogs/app/middleware"
	"campusblogs/app/models"
	"campusblogs/app/richtext"

	"github.com/rs/zerolog/log"
)

// PostSummary is the feed view of a post.
type PostSummary struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Excerpt       string    `json:"excerpt"`
	BannerURL     string    `json:"bannerUrl"`
	AuthorID      string    `json:"authorId"`
	AuthorName    string    `json:"authorName"`
	CreatedAt     time.Time `json:"createdAt"`
	LikesCount    int64     `json:"likesCount"`
	CommentsCount int64     `json:"commentsCount"`
}

func summarize(posts []*models.Post, excerptLength int) []PostSummary {
	out := make([]PostSummary, 0, len(posts))
	for _, p := range posts {
		out = append(out, PostSummary{
			ID:            p.ID,
			Title:         p.Title,
			Excerpt:       richtext.Excerpt(p.Content, excerptLength),
			BannerURL:     p.BannerURL,
			AuthorID:      p.AuthorID,
			AuthorName:    p.AuthorName,
			CreatedAt:     p.CreatedAt,
			LikesCount:    p.LikesCount,
			CommentsCount: p.CommentsCount,
		})
	}
	return out
}

func caller(r *http.Request) models.Identity {
	return middleware.CallerFrom(r.Context())
}

func sendJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Warn().Err(err).Msg("write response")
	}
}

// statusFor maps an error kind to its HTTP status. An authorization failure
// for a caller without identity is 401.
func statusFor(kind apperr.Kind, anonymous bool) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindAuthorization:
		if anonymous {
			return http.StatusUnauthorized
		}
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindTimeout:
		return http.StatusGatewayTimeout
	case apperr.KindNetwork:
		return http.StatusServiceUnavailable
	case apperr.KindStorage:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func sendError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindUnknown {
		kind = apperr.KindInternal
	}
	status := statusFor(kind, caller(r).IsAnonymous())

	message := err.Error()
	var ae *apperr.Error
	if errors.As(err, &ae) && ae.Msg != "" {
		message = ae.Msg
	}
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", r.URL.Path).Str("kind", kind.String()).Msg("request failed")
	}

	body := map[string]any{"error": message, "kind": kind.String()}
	if apperr.Retryable(err) {
		body["retryable"] = true
	}
	sendJSON(w, status, body)
}

func badRequest(w http.ResponseWriter, r *http.Request, op, format string, args ...any) {
	sendError(w, r, apperr.Validation(op, format, args...))
}

// limitParam reads ?limit=, treating a missing value as 0 (no limit).
func limitParam(r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
