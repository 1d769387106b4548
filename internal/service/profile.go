package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/package-registry/internal/apperror"
	"github.com/sakif/package-registry/internal/model"
	"github.com/sakif/package-registry/internal/repository"
)

// ProfileEditor is the only component that writes Account.Email.
type ProfileEditor struct {
	accounts repository.AccountRepository
	validate *validator.Validate
	logger   *slog.Logger
}

// NewProfileEditor creates a ProfileEditor.
func NewProfileEditor(accounts repository.AccountRepository, logger *slog.Logger) *ProfileEditor {
	return &ProfileEditor{
		accounts: accounts,
		validate: validator.New(),
		logger:   logger,
	}
}

// UpdateEmail sets targetID's email on behalf of requestingID.
//
// Checks run in this order:
//  1. requestingID must equal targetID (Forbidden)
//  2. email must be present and non-empty (InvalidInput, clearing is not supported)
//  3. email must look like an address (InvalidInput)
//
// The write touches the email column only, so it cannot clobber a concurrent
// reconcile of the GitHub-owned columns.
func (s *ProfileEditor) UpdateEmail(ctx context.Context, requestingID, targetID string, email *string) (*model.Account, error) {
	if requestingID == "" || requestingID != targetID {
		return nil, apperror.Forbidden("current user does not match requested user")
	}
	if email == nil || *email == "" {
		return nil, apperror.ValidationFailed("email", "empty email rejected")
	}
	if err := s.validate.Var(*email, "email,max=254"); err != nil {
		return nil, apperror.ValidationFailed("email", "invalid email address")
	}

	account, err := s.accounts.UpdateEmail(ctx, targetID, *email)
	if err != nil {
		return nil, fmt.Errorf("service/profile: updating email of account %s: %w", targetID, err)
	}

	s.logger.Info("email updated", slog.String("accountID", targetID))
	return account, nil
}
