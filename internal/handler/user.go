package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/package-registry/internal/apperror"
	"github.com/sakif/package-registry/internal/auth"
	"github.com/sakif/package-registry/internal/model"
	"github.com/sakif/package-registry/internal/service"
)

// UserHandler serves public profiles, email edits, and owner statistics.
type UserHandler struct {
	identity  *service.IdentityStore
	profile   *service.ProfileEditor
	downloads *service.DownloadAggregator
	logger    *slog.Logger
}

// NewUserHandler creates a UserHandler.
func NewUserHandler(
	identity *service.IdentityStore,
	profile *service.ProfileEditor,
	downloads *service.DownloadAggregator,
	logger *slog.Logger,
) *UserHandler {
	return &UserHandler{
		identity:  identity,
		profile:   profile,
		downloads: downloads,
		logger:    logger,
	}
}

// userParam is the wildcard under /users. It holds a login on the show route
// and an account ID everywhere else.
const userParam = "user"

// HandleShow returns an account by login. The email is only present when
// the caller is that account.
//
// HTTP: GET /api/v1/users/{user}, where {user} is a login
func (h *UserHandler) HandleShow(w http.ResponseWriter, r *http.Request) {
	account, err := h.identity.FindByLogin(r.Context(), chi.URLParam(r, userParam))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, userResponse{User: account.View(auth.AccountIDFromContext(r.Context()))})
}

// updateUserRequest is {"user": {"email": "..."}}. A missing user object or a
// null email both decode to a nil Email.
type updateUserRequest struct {
	User struct {
		Email *string `json:"email"`
	} `json:"user"`
}

// HandleUpdate sets the caller's email.
//
// HTTP: PUT /api/v1/users/{user} (auth), where {user} is an account ID
// Body: {"user": {"email": "foo@bar.com"}}
func (h *UserHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	_, err := h.profile.UpdateEmail(r.Context(),
		auth.AccountIDFromContext(r.Context()),
		chi.URLParam(r, userParam),
		req.User.Email,
	)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

type statsResponse struct {
	TotalDownloads int64 `json:"total_downloads"`
}

// HandleStats returns the download total across an account's packages.
//
// HTTP: GET /api/v1/users/{user}/stats, where {user} is an account ID
func (h *UserHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	total, err := h.downloads.TotalDownloads(r.Context(), chi.URLParam(r, userParam))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, statsResponse{TotalDownloads: total})
}

type packagesResponse struct {
	Packages []model.Package `json:"packages"`
}

// HandleListPackages lists the packages an account owns.
//
// HTTP: GET /api/v1/packages?user_id={id}
func (h *UserHandler) HandleListPackages(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, apperror.ValidationFailed("user_id", "user_id is required"))
		return
	}

	pkgs, err := h.downloads.PackagesByOwner(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, packagesResponse{Packages: pkgs})
}
