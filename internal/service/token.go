package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/package-registry/internal/apperror"
	"github.com/sakif/package-registry/internal/auth"
	"github.com/sakif/package-registry/internal/model"
	"github.com/sakif/package-registry/internal/repository"
)

// TokenAuthenticator issues API tokens and resolves presented secrets to accounts.
//
// A token is linked to its account by account ID only. Reconciling the
// account again changes nothing the lookup depends on.
type TokenAuthenticator struct {
	tokens   repository.TokenRepository
	validate *validator.Validate
	logger   *slog.Logger
}

// NewTokenAuthenticator creates a TokenAuthenticator.
func NewTokenAuthenticator(tokens repository.TokenRepository, logger *slog.Logger) *TokenAuthenticator {
	return &TokenAuthenticator{
		tokens:   tokens,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}
}

type issueRequest struct {
	AccountID string `validate:"required"`
	Name      string `validate:"required,max=64"`
}

// Issue creates a token named name for accountID. The plaintext secret is
// returned once and is not recoverable afterwards.
func (s *TokenAuthenticator) Issue(ctx context.Context, accountID, name string) (*model.APIToken, string, error) {
	name = strings.TrimSpace(name)
	if err := s.validate.Struct(issueRequest{AccountID: accountID, Name: name}); err != nil {
		return nil, "", tokenValidationError(err)
	}

	secret, hash, prefix, err := auth.GenerateAPIToken()
	if err != nil {
		return nil, "", fmt.Errorf("service/token: %w", err)
	}

	token := &model.APIToken{
		AccountID: accountID,
		Name:      name,
		TokenHash: hash,
		Prefix:    prefix,
	}
	if err := s.tokens.CreateToken(ctx, token); err != nil {
		return nil, "", fmt.Errorf("service/token: creating token for account %s: %w", accountID, err)
	}

	s.logger.Info("api token issued",
		slog.String("accountID", accountID),
		slog.String("tokenID", token.ID),
		slog.String("prefix", prefix),
	)

	return token, secret, nil
}

// Authenticate returns the account owning secret.
// Empty and unknown secrets fail with apperror.ErrUnauthenticated.
func (s *TokenAuthenticator) Authenticate(ctx context.Context, secret string) (*model.Account, error) {
	if secret == "" {
		return nil, apperror.Unauthenticated("must be logged in to perform that action")
	}

	account, err := s.tokens.AccountByTokenHash(ctx, auth.HashAPIToken(secret))
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthenticated("invalid API token")
		}
		return nil, fmt.Errorf("service/token: looking up token: %w", err)
	}
	return account, nil
}

func tokenValidationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		switch verrs[0].Field() {
		case "AccountID":
			return apperror.Unauthenticated("must be logged in to perform that action")
		case "Name":
			if verrs[0].Tag() == "max" {
				return apperror.ValidationFailed("name", "token name must be at most 64 characters")
			}
			return apperror.ValidationFailed("name", "token name must not be empty")
		}
	}
	return apperror.ValidationFailed("", err.Error())
}
