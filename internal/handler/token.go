package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/package-registry/internal/auth"
	"github.com/sakif/package-registry/internal/service"
)

// TokenHandler issues API tokens to the caller.
type TokenHandler struct {
	tokens *service.TokenAuthenticator
	logger *slog.Logger
}

// NewTokenHandler creates a TokenHandler.
func NewTokenHandler(tokens *service.TokenAuthenticator, logger *slog.Logger) *TokenHandler {
	return &TokenHandler{tokens: tokens, logger: logger}
}

type createTokenRequest struct {
	APIToken struct {
		Name string `json:"name"`
	} `json:"api_token"`
}

type createdToken struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Prefix    string    `json:"prefix"`
	CreatedAt time.Time `json:"created_at"`
	Token     string    `json:"token"`
}

type createTokenResponse struct {
	APIToken createdToken `json:"api_token"`
}

// HandleCreate issues a token for the caller. The plaintext secret is only
// ever in this response.
//
// HTTP: POST /api/v1/me/tokens (auth)
// Body: {"api_token": {"name": "ci"}}
func (h *TokenHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createTokenRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	token, secret, err := h.tokens.Issue(r.Context(), auth.AccountIDFromContext(r.Context()), req.APIToken.Name)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, createTokenResponse{APIToken: createdToken{
		ID:        token.ID,
		Name:      token.Name,
		Prefix:    token.Prefix,
		CreatedAt: token.CreatedAt,
		Token:     secret,
	}})
}
