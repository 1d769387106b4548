// Package service holds the account and engagement rules of the registry.
//
// Each component is a small struct that takes its repository interfaces and
// a logger through a NewXxx constructor:
//
//	IdentityStore       GitHub login → account row (email is never overwritten)
//	TokenAuthenticator  API token secret → account
//	ProfileEditor       the only writer of Account.Email
//	FollowGraph         (account, package) follow relation
//	FeedQuery           paginated versions of followed packages
//	DownloadAggregator  download totals per owner
//
// Handlers resolve the caller to an account ID before calling in here; nothing
// in this package reads HTTP requests.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/package-registry/internal/apperror"
	"github.com/sakif/package-registry/internal/model"
	"github.com/sakif/package-registry/internal/repository"
)

// IdentityStore reconciles GitHub identities with local accounts.
type IdentityStore struct {
	accounts repository.AccountRepository
	logger   *slog.Logger
}

// NewIdentityStore creates an IdentityStore.
func NewIdentityStore(accounts repository.AccountRepository, logger *slog.Logger) *IdentityStore {
	return &IdentityStore{
		accounts: accounts,
		logger:   logger,
	}
}

// Reconcile creates or refreshes the account for a verified GitHub identity.
//
// On first login the provider email becomes the account email. On every later
// login Login, Name, AvatarURL and the access token are overwritten and the
// stored email is left exactly as it is, whatever GitHub reports.
//
// The insert-or-update is a single atomic upsert keyed on the GitHub ID, so
// concurrent first logins for the same user end on one account.
func (s *IdentityStore) Reconcile(ctx context.Context, identity model.ProviderIdentity) (*model.Account, error) {
	if identity.GitHubID <= 0 {
		return nil, apperror.ValidationFailed("github_id", "invalid GitHub user id")
	}
	if identity.Login == "" {
		return nil, apperror.ValidationFailed("login", "GitHub login must not be empty")
	}

	account := &model.Account{
		GitHubID:          identity.GitHubID,
		Login:             identity.Login,
		Name:              identity.Name,
		AvatarURL:         identity.AvatarURL,
		Email:             identity.Email,
		GitHubAccessToken: identity.AccessToken,
	}

	if err := s.accounts.Upsert(ctx, account); err != nil {
		return nil, fmt.Errorf("service/identity: reconciling githubID=%d: %w", identity.GitHubID, err)
	}

	s.logger.Info("account reconciled",
		slog.String("accountID", account.ID),
		slog.String("login", account.Login),
		slog.Int64("githubID", account.GitHubID),
	)

	return account, nil
}

// FindByID returns the account with the given surrogate ID.
func (s *IdentityStore) FindByID(ctx context.Context, id string) (*model.Account, error) {
	if id == "" {
		return nil, apperror.NotFound("account", "(empty)")
	}

	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/identity: fetching account %s: %w", id, err)
	}
	return account, nil
}

// FindByLogin returns the account currently using the given GitHub login.
func (s *IdentityStore) FindByLogin(ctx context.Context, login string) (*model.Account, error) {
	if login == "" {
		return nil, apperror.NotFound("account", "(empty)")
	}

	account, err := s.accounts.GetByLogin(ctx, login)
	if err != nil {
		return nil, fmt.Errorf("service/identity: fetching account %s: %w", login, err)
	}
	return account, nil
}
