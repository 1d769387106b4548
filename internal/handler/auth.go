package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/package-registry/internal/apperror"
	"github.com/sakif/package-registry/internal/auth"
	"github.com/sakif/package-registry/internal/model"
	"github.com/sakif/package-registry/internal/service"
)

const stateCookie = "oauth_state"

// IdentityProvider runs the OAuth handshake. *auth.GitHubProvider is the
// production implementation.
type IdentityProvider interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*model.ProviderIdentity, error)
}

// AuthHandler serves the GitHub login flow and the caller's own profile.
//
//   - HandleAuthorizeURL → GitHub URL plus a state stored in a cookie
//   - HandleAuthorize    → checks state, exchanges the code, sets the session cookie
//   - HandleLogout       → clears the session cookie
//   - HandleMe           → the caller's private view (email included)
type AuthHandler struct {
	provider      IdentityProvider
	logins        *service.LoginService
	identity      *service.IdentityStore
	sessionTTL    time.Duration
	secureCookies bool
	logger        *slog.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(
	provider IdentityProvider,
	logins *service.LoginService,
	identity *service.IdentityStore,
	sessionTTL time.Duration,
	secureCookies bool,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		provider:      provider,
		logins:        logins,
		identity:      identity,
		sessionTTL:    sessionTTL,
		secureCookies: secureCookies,
		logger:        logger,
	}
}

type authorizeURLResponse struct {
	URL   string `json:"url"`
	State string `json:"state"`
}

// HandleAuthorizeURL starts a login.
//
// HTTP: GET /api/v1/authorize_url
//
// The state is random and single-use; it lives for ten minutes in an
// HttpOnly cookie and must come back unchanged on the callback.
func (h *AuthHandler) HandleAuthorizeURL(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, authorizeURLResponse{
		URL:   h.provider.AuthURL(state),
		State: state,
	})
}

type userResponse struct {
	User model.AccountView `json:"user"`
}

// HandleAuthorize completes a login.
//
// HTTP: GET /api/v1/authorize?code=xxx&state=yyy
//
//  1. state must match the state cookie ("invalid state" otherwise)
//  2. the code is exchanged for the GitHub identity
//  3. the account is reconciled and a session issued
//  4. the session is set as an HttpOnly cookie
func (h *AuthHandler) HandleAuthorize(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	c, err := r.Cookie(stateCookie)
	if err != nil || c.Value == "" || state == "" || state != c.Value {
		h.logger.Warn("authorize: state mismatch")
		writeError(w, apperror.ValidationFailed("state", "invalid state"))
		return
	}

	http.SetCookie(w, &http.Cookie{Name: stateCookie, Value: "", Path: "/", MaxAge: -1})

	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, apperror.ValidationFailed("code", "missing OAuth code"))
		return
	}

	identity, err := h.provider.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("authorize: GitHub exchange failed", slog.String("error", err.Error()))
		writeError(w, apperror.Unauthenticated("authentication with GitHub failed"))
		return
	}

	result, err := h.logins.LoginWithGitHub(r.Context(), identity)
	if err != nil {
		h.logger.Error("authorize: login failed",
			slog.Int64("githubID", identity.GitHubID),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    result.Session,
		Path:     "/",
		MaxAge:   int(h.sessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, userResponse{User: result.Account.View(result.Account.ID)})
}

// HandleLogout deletes the session cookie.
//
// HTTP: POST /api/v1/logout
//
// Sessions are stateless JWTs; the token stays valid until expiry but the
// browser no longer sends it.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// HandleMe returns the caller's own account, email included.
//
// HTTP: GET /api/v1/me (auth)
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	accountID := auth.AccountIDFromContext(r.Context())

	account, err := h.identity.FindByID(r.Context(), accountID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, userResponse{User: account.View(accountID)})
}
