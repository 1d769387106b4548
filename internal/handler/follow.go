package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/package-registry/internal/auth"
	"github.com/sakif/package-registry/internal/model"
	"github.com/sakif/package-registry/internal/service"
)

// FollowHandler serves follow state and the followed-packages feed.
// Every route requires an authenticated caller.
type FollowHandler struct {
	follows *service.FollowGraph
	feed    *service.FeedQuery
	logger  *slog.Logger
}

// NewFollowHandler creates a FollowHandler.
func NewFollowHandler(follows *service.FollowGraph, feed *service.FeedQuery, logger *slog.Logger) *FollowHandler {
	return &FollowHandler{follows: follows, feed: feed, logger: logger}
}

// HandleFollow follows a package. Following twice is fine.
//
// HTTP: PUT /api/v1/packages/{name}/follow
func (h *FollowHandler) HandleFollow(w http.ResponseWriter, r *http.Request) {
	err := h.follows.FollowByName(r.Context(), auth.AccountIDFromContext(r.Context()), chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// HandleUnfollow unfollows a package. Unfollowing twice is fine.
//
// HTTP: DELETE /api/v1/packages/{name}/follow
func (h *FollowHandler) HandleUnfollow(w http.ResponseWriter, r *http.Request) {
	err := h.follows.UnfollowByName(r.Context(), auth.AccountIDFromContext(r.Context()), chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

type followingResponse struct {
	Following bool `json:"following"`
}

// HandleFollowing reports whether the caller follows a package.
//
// HTTP: GET /api/v1/packages/{name}/following
func (h *FollowHandler) HandleFollowing(w http.ResponseWriter, r *http.Request) {
	following, err := h.follows.IsFollowingByName(r.Context(), auth.AccountIDFromContext(r.Context()), chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, followingResponse{Following: following})
}

type feedMeta struct {
	More bool `json:"more"`
}

type feedResponse struct {
	Versions []model.Version `json:"versions"`
	Meta     feedMeta        `json:"meta"`
}

// HandleUpdates returns a page of versions of followed packages, newest first.
//
// HTTP: GET /api/v1/me/updates?page=1&per_page=10
//
// page defaults to 1 and must be at least 1. per_page defaults to the
// configured page size and is clamped to the configured maximum.
func (h *FollowHandler) HandleUpdates(w http.ResponseWriter, r *http.Request) {
	page, err := intParam(r, "page", 1)
	if err != nil {
		writeError(w, err)
		return
	}
	perPage, err := intParam(r, "per_page", 0)
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := h.feed.Updates(r.Context(), auth.AccountIDFromContext(r.Context()), page, perPage)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, feedResponse{
		Versions: result.Versions,
		Meta:     feedMeta{More: result.More},
	})
}
