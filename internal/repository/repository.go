// Package repository declares the storage interfaces the services depend on.
// internal/repository/sqlite is the production implementation.
package repository

import (
	"context"

	"github.com/sakif/package-registry/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

// AccountRepository stores accounts.
//
// Upsert is keyed on GitHubID and must be atomic: concurrent upserts for the
// same GitHub user produce exactly one row. On the update path it refreshes
// the GitHub-owned fields only and leaves Email untouched; the stored row is
// copied back into account.
type AccountRepository interface {
	Upsert(ctx context.Context, account *model.Account) error
	GetByID(ctx context.Context, id string) (*model.Account, error)
	GetByLogin(ctx context.Context, login string) (*model.Account, error)
	GetByGitHubID(ctx context.Context, githubID int64) (*model.Account, error)
	UpdateEmail(ctx context.Context, id, email string) (*model.Account, error)
}

// TokenRepository stores API tokens.
type TokenRepository interface {
	CreateToken(ctx context.Context, token *model.APIToken) error
	// AccountByTokenHash returns the account owning the token with this digest.
	AccountByTokenHash(ctx context.Context, hash string) (*model.Account, error)
}

// FollowRepository stores the (account, package) follow relation.
// Follow and Unfollow are idempotent.
type FollowRepository interface {
	Follow(ctx context.Context, accountID, packageID string) error
	Unfollow(ctx context.Context, accountID, packageID string) error
	IsFollowing(ctx context.Context, accountID, packageID string) (bool, error)
	FollowedPackageIDs(ctx context.Context, accountID string) ([]string, error)
}

// PackageRepository is the read side of the package store used by the feed
// and the download statistics, plus the writes the publish path needs.
type PackageRepository interface {
	CreatePackage(ctx context.Context, pkg *model.Package, ownerID string) error
	GetPackageByName(ctx context.Context, name string) (*model.Package, error)
	ListPackagesByOwner(ctx context.Context, accountID string) ([]model.Package, error)
	AddVersion(ctx context.Context, version *model.Version) error
	IncrementDownloads(ctx context.Context, packageID string, delta int64) error

	// ListVersions returns versions of the given packages, newest first
	// (created_at DESC, id DESC), windowed by opts.
	ListVersions(ctx context.Context, packageIDs []string, opts ListOptions) ([]model.Version, error)
	// TotalDownloads sums Downloads over every package accountID owns.
	TotalDownloads(ctx context.Context, accountID string) (int64, error)
}
