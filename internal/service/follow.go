package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/package-registry/internal/repository"
)

// FollowGraph manages which packages an account follows.
// Follow and Unfollow are idempotent: repeating either is not an error.
type FollowGraph struct {
	follows  repository.FollowRepository
	packages repository.PackageRepository
	logger   *slog.Logger
}

// NewFollowGraph creates a FollowGraph.
func NewFollowGraph(follows repository.FollowRepository, packages repository.PackageRepository, logger *slog.Logger) *FollowGraph {
	return &FollowGraph{
		follows:  follows,
		packages: packages,
		logger:   logger,
	}
}

// Follow records that accountID follows packageID.
func (g *FollowGraph) Follow(ctx context.Context, accountID, packageID string) error {
	if err := g.follows.Follow(ctx, accountID, packageID); err != nil {
		return fmt.Errorf("service/follow: %w", err)
	}
	g.logger.Info("package followed", slog.String("accountID", accountID), slog.String("packageID", packageID))
	return nil
}

// Unfollow removes the follow, if any.
func (g *FollowGraph) Unfollow(ctx context.Context, accountID, packageID string) error {
	if err := g.follows.Unfollow(ctx, accountID, packageID); err != nil {
		return fmt.Errorf("service/follow: %w", err)
	}
	g.logger.Info("package unfollowed", slog.String("accountID", accountID), slog.String("packageID", packageID))
	return nil
}

// IsFollowing reports whether accountID follows packageID.
func (g *FollowGraph) IsFollowing(ctx context.Context, accountID, packageID string) (bool, error) {
	ok, err := g.follows.IsFollowing(ctx, accountID, packageID)
	if err != nil {
		return false, fmt.Errorf("service/follow: %w", err)
	}
	return ok, nil
}

// FollowedPackageIDs returns the packages accountID follows; empty, never nil.
func (g *FollowGraph) FollowedPackageIDs(ctx context.Context, accountID string) ([]string, error) {
	ids, err := g.follows.FollowedPackageIDs(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("service/follow: %w", err)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// FollowByName resolves the package by name, then follows it.
// Unknown names fail with apperror.ErrNotFound.
func (g *FollowGraph) FollowByName(ctx context.Context, accountID, name string) error {
	pkg, err := g.packages.GetPackageByName(ctx, name)
	if err != nil {
		return fmt.Errorf("service/follow: %w", err)
	}
	return g.Follow(ctx, accountID, pkg.ID)
}

// UnfollowByName resolves the package by name, then unfollows it.
func (g *FollowGraph) UnfollowByName(ctx context.Context, accountID, name string) error {
	pkg, err := g.packages.GetPackageByName(ctx, name)
	if err != nil {
		return fmt.Errorf("service/follow: %w", err)
	}
	return g.Unfollow(ctx, accountID, pkg.ID)
}

// IsFollowingByName resolves the package by name, then checks the follow.
func (g *FollowGraph) IsFollowingByName(ctx context.Context, accountID, name string) (bool, error) {
	pkg, err := g.packages.GetPackageByName(ctx, name)
	if err != nil {
		return false, fmt.Errorf("service/follow: %w", err)
	}
	return g.IsFollowing(ctx, accountID, pkg.ID)
}
