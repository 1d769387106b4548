package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sakif/package-registry/internal/apperror"
	"github.com/sakif/package-registry/internal/model"
)

// SessionCookie holds the session JWT.
const SessionCookie = "registry_session"

// Source says how a request was authenticated.
type Source int

const (
	SessionIdentity Source = iota + 1
	TokenIdentity
)

func (s Source) String() string {
	switch s {
	case SessionIdentity:
		return "session"
	case TokenIdentity:
		return "token"
	default:
		return "anonymous"
	}
}

// Identity is the authenticated caller.
type Identity struct {
	AccountID string
	Source    Source
}

// TokenResolver maps an API token secret to its account.
// *service.TokenAuthenticator satisfies it.
type TokenResolver interface {
	Authenticate(ctx context.Context, secret string) (*model.Account, error)
}

// contextKey is package-private so no other package can read or shadow the
// identity stored in a request context.
type contextKey string

const identityKey contextKey = "identity"

// Resolve identifies the caller once per request and stores the Identity in
// the context.
//
// Order: a valid session cookie wins; otherwise the Authorization header is
// tried as an API token, either bare or as "Bearer <secret>". A request with
// neither continues anonymously. A token that does not resolve also
// continues anonymously, and RequireAuth rejects it later where it matters.
//
// A storage failure during token lookup is not an anonymous request: it is
// answered with 503 here.
//
// sessions may be nil when session signing is not configured.
func Resolve(sessions *SessionService, tokens TokenResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := identify(r, sessions, tokens)
			if err != nil {
				logger.Error("resolving request identity", slog.String("error", err.Error()))
				writeAuthError(w, http.StatusServiceUnavailable, "authentication temporarily unavailable")
				return
			}
			if id != nil {
				r = r.WithContext(WithIdentity(r.Context(), *id))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth rejects anonymous requests with 401. It must run after Resolve.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := IdentityFromContext(r.Context()); !ok {
			writeAuthError(w, http.StatusUnauthorized, "must be logged in to perform that action")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext returns the caller identity, or false for anonymous requests.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok && id.AccountID != ""
}

// AccountIDFromContext returns the caller's account ID, or "" when anonymous.
func AccountIDFromContext(ctx context.Context) string {
	id, _ := IdentityFromContext(ctx)
	return id.AccountID
}

func identify(r *http.Request, sessions *SessionService, tokens TokenResolver) (*Identity, error) {
	if sessions != nil {
		if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
			if accountID, err := sessions.Verify(c.Value); err == nil {
				return &Identity{AccountID: accountID, Source: SessionIdentity}, nil
			}
		}
	}

	secret := bearerSecret(r.Header.Get("Authorization"))
	if secret == "" || tokens == nil {
		return nil, nil
	}

	account, err := tokens.Authenticate(r.Context(), secret)
	switch {
	case err == nil:
		return &Identity{AccountID: account.ID, Source: TokenIdentity}, nil
	case errors.Is(err, apperror.ErrUnauthenticated), errors.Is(err, apperror.ErrNotFound):
		return nil, nil
	default:
		return nil, err
	}
}

// bearerSecret accepts both "Authorization: <secret>" and
// "Authorization: Bearer <secret>".
func bearerSecret(header string) string {
	header = strings.TrimSpace(header)
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return header
}

// authErrorBody matches the handler error body: {"errors":[{"detail":"..."}]}.
type authErrorBody struct {
	Errors []authErrorDetail `json:"errors"`
}

type authErrorDetail struct {
	Detail string `json:"detail"`
}

func writeAuthError(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(authErrorBody{Errors: []authErrorDetail{{Detail: detail}}})
}
