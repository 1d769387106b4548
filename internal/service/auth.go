package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/package-registry/internal/auth"
	"github.com/sakif/package-registry/internal/model"
)

// LoginService completes a GitHub login: it reconciles the account and
// issues the session that the handler puts in a cookie.
//
//	AuthHandler (HTTP) → LoginService → IdentityStore (accounts)
//	                                  ↘ SessionService (JWT)
//
// It does not set cookies or read requests; those are HTTP concerns.
type LoginService struct {
	identity *IdentityStore
	sessions *auth.SessionService
	logger   *slog.Logger
}

// NewLoginService creates a LoginService.
func NewLoginService(identity *IdentityStore, sessions *auth.SessionService, logger *slog.Logger) *LoginService {
	return &LoginService{
		identity: identity,
		sessions: sessions,
		logger:   logger,
	}
}

// LoginResult bundles the reconciled account and its signed session.
type LoginResult struct {
	Account *model.Account
	Session string
}

// LoginWithGitHub reconciles a verified GitHub identity and issues a session.
func (s *LoginService) LoginWithGitHub(ctx context.Context, identity *model.ProviderIdentity) (*LoginResult, error) {
	if identity == nil {
		return nil, errors.New("service/auth: GitHub identity must not be nil")
	}
	if s.sessions == nil {
		return nil, errors.New("service/auth: sessions are not configured")
	}

	account, err := s.identity.Reconcile(ctx, *identity)
	if err != nil {
		return nil, err
	}

	session, err := s.sessions.Issue(account.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: issuing session for account %s: %w", account.ID, err)
	}

	s.logger.Info("account logged in via GitHub",
		slog.String("accountID", account.ID),
		slog.String("login", account.Login),
	)

	return &LoginResult{Account: account, Session: session}, nil
}
