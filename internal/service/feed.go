package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/sakif/package-registry/internal/apperror"
	"github.com/sakif/package-registry/internal/model"
	"github.com/sakif/package-registry/internal/repository"
)

const (
	DefaultFeedPerPage = 10
	MaxFeedPerPage     = 100
)

// FeedPage is one page of the followed-packages feed.
type FeedPage struct {
	Versions []model.Version
	More     bool
}

// FeedOptions bounds the page size. Zero values fall back to the defaults.
type FeedOptions struct {
	DefaultPerPage int
	MaxPerPage     int
}

// FeedQuery lists recent versions of the packages an account follows.
type FeedQuery struct {
	follows  repository.FollowRepository
	packages repository.PackageRepository
	opts     FeedOptions
	logger   *slog.Logger
}

// NewFeedQuery creates a FeedQuery.
func NewFeedQuery(follows repository.FollowRepository, packages repository.PackageRepository, opts FeedOptions, logger *slog.Logger) *FeedQuery {
	if opts.DefaultPerPage <= 0 {
		opts.DefaultPerPage = DefaultFeedPerPage
	}
	if opts.MaxPerPage <= 0 {
		opts.MaxPerPage = MaxFeedPerPage
	}
	if opts.DefaultPerPage > opts.MaxPerPage {
		opts.DefaultPerPage = opts.MaxPerPage
	}
	return &FeedQuery{
		follows:  follows,
		packages: packages,
		opts:     opts,
		logger:   logger,
	}
}

// Updates returns page (1-based) of the feed, newest version first.
//
// PAGINATION:
// perPage+1 rows are requested at offset (page-1)*perPage. If the extra row
// comes back there is a next page; it is dropped from the result. No count
// query is run. A page past the end is empty with More=false, not an error,
// however large page is.
//
// perPage < 1 uses the default; perPage above the maximum is clamped.
func (q *FeedQuery) Updates(ctx context.Context, accountID string, page, perPage int) (*FeedPage, error) {
	if page < 1 {
		return nil, apperror.ValidationFailed("page", "page indexing starts from 1, page 0 is invalid")
	}
	perPage = q.perPage(perPage)

	followed, err := q.follows.FollowedPackageIDs(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("service/feed: listing follows of account %s: %w", accountID, err)
	}
	if len(followed) == 0 {
		return &FeedPage{Versions: []model.Version{}}, nil
	}
	// The offset of a page this far out does not fit in an int.
	if page-1 > math.MaxInt/perPage {
		return &FeedPage{Versions: []model.Version{}}, nil
	}

	versions, err := q.packages.ListVersions(ctx, followed, repository.ListOptions{
		Limit:  perPage + 1,
		Offset: (page - 1) * perPage,
	})
	if err != nil {
		return nil, fmt.Errorf("service/feed: listing versions: %w", err)
	}

	result := &FeedPage{Versions: versions}
	if len(versions) > perPage {
		result.Versions = versions[:perPage]
		result.More = true
	}
	if result.Versions == nil {
		result.Versions = []model.Version{}
	}

	q.logger.Debug("feed page served",
		slog.String("accountID", accountID),
		slog.Int("page", page),
		slog.Int("perPage", perPage),
		slog.Int("returned", len(result.Versions)),
		slog.Bool("more", result.More),
	)
	return result, nil
}

func (q *FeedQuery) perPage(n int) int {
	switch {
	case n < 1:
		return q.opts.DefaultPerPage
	case n > q.opts.MaxPerPage:
		return q.opts.MaxPerPage
	default:
		return n
	}
}
