package service

import (
	"context"
	"fmt"

	"github.com/sakif/package-registry/internal/model"
	"github.com/sakif/package-registry/internal/repository"
)

// DownloadAggregator reports download statistics for package owners.
type DownloadAggregator struct {
	accounts repository.AccountRepository
	packages repository.PackageRepository
}

// NewDownloadAggregator creates a DownloadAggregator.
func NewDownloadAggregator(accounts repository.AccountRepository, packages repository.PackageRepository) *DownloadAggregator {
	return &DownloadAggregator{accounts: accounts, packages: packages}
}

// TotalDownloads sums the download counters of every package accountID owns.
// Unknown accounts fail with apperror.ErrNotFound; owning nothing yields 0.
func (a *DownloadAggregator) TotalDownloads(ctx context.Context, accountID string) (int64, error) {
	if _, err := a.accounts.GetByID(ctx, accountID); err != nil {
		return 0, fmt.Errorf("service/downloads: %w", err)
	}

	total, err := a.packages.TotalDownloads(ctx, accountID)
	if err != nil {
		return 0, fmt.Errorf("service/downloads: summing downloads of account %s: %w", accountID, err)
	}
	return total, nil
}

// PackagesByOwner lists the packages accountID owns, by name.
func (a *DownloadAggregator) PackagesByOwner(ctx context.Context, accountID string) ([]model.Package, error) {
	if _, err := a.accounts.GetByID(ctx, accountID); err != nil {
		return nil, fmt.Errorf("service/downloads: %w", err)
	}

	pkgs, err := a.packages.ListPackagesByOwner(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("service/downloads: listing packages of account %s: %w", accountID, err)
	}
	return pkgs, nil
}
