package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/package-registry/internal/apperror"
	"github.com/sakif/package-registry/internal/model"
)

type feedFixture struct {
	follows  *fakeFollowRepo
	packages *fakePackageRepo
	feed     *FeedQuery
	base     time.Time
}

func newFeedFixture() *feedFixture {
	follows := newFakeFollowRepo()
	packages := newFakePackageRepo()
	return &feedFixture{
		follows:  follows,
		packages: packages,
		feed:     NewFeedQuery(follows, packages, FeedOptions{}, discardLogger()),
		base:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// publish creates a package with n versions, one hour apart.
func (f *feedFixture) publish(t *testing.T, name string, n int) *model.Package {
	t.Helper()
	ctx := context.Background()
	pkg := &model.Package{Name: name}
	require.NoError(t, f.packages.CreatePackage(ctx, pkg, "owner"))
	for i := 0; i < n; i++ {
		f.base = f.base.Add(time.Hour)
		require.NoError(t, f.packages.AddVersion(ctx, &model.Version{
			PackageID: pkg.ID,
			Number:    fmt.Sprintf("0.0.%d", i),
			CreatedAt: f.base,
		}))
	}
	return pkg
}

func TestUpdates_RejectsPageZero(t *testing.T) {
	f := newFeedFixture()

	for _, page := range []int{0, -1} {
		_, err := f.feed.Updates(context.Background(), "acc-1", page, 10)
		assert.True(t, errors.Is(err, apperror.ErrValidation), "page %d: got %v", page, err)
	}
}

func TestUpdates_NoFollowsSkipsVersionStore(t *testing.T) {
	f := newFeedFixture()
	f.publish(t, "unfollowed", 3)

	page, err := f.feed.Updates(context.Background(), "acc-1", 1, 10)
	require.NoError(t, err)
	assert.NotNil(t, page.Versions)
	assert.Empty(t, page.Versions)
	assert.False(t, page.More)
	assert.Equal(t, 0, f.packages.listVersionsCalls)
}

// Two followed packages with one version each, then unfollow one.
func TestUpdates_FollowAndUnfollow(t *testing.T) {
	f := newFeedFixture()
	ctx := context.Background()
	p1 := f.publish(t, "p1", 1)
	p2 := f.publish(t, "p2", 1)
	require.NoError(t, f.follows.Follow(ctx, "acc-1", p1.ID))
	require.NoError(t, f.follows.Follow(ctx, "acc-1", p2.ID))

	page, err := f.feed.Updates(ctx, "acc-1", 1, 1)
	require.NoError(t, err)
	assert.Len(t, page.Versions, 1)
	assert.True(t, page.More)
	assert.Equal(t, "p2", page.Versions[0].PackageName, "newest first")

	page, err = f.feed.Updates(ctx, "acc-1", 2, 1)
	require.NoError(t, err)
	assert.Len(t, page.Versions, 1)
	assert.False(t, page.More)

	page, err = f.feed.Updates(ctx, "acc-1", 3, 1)
	require.NoError(t, err)
	assert.Empty(t, page.Versions)
	assert.False(t, page.More)

	require.NoError(t, f.follows.Unfollow(ctx, "acc-1", p2.ID))

	page, err = f.feed.Updates(ctx, "acc-1", 1, 1)
	require.NoError(t, err)
	assert.Len(t, page.Versions, 1)
	assert.False(t, page.More)
	assert.Equal(t, "p1", page.Versions[0].PackageName)
}

func TestUpdates_PaginationWindows(t *testing.T) {
	f := newFeedFixture()
	ctx := context.Background()

	const n = 7
	for i := 0; i < n; i++ {
		pkg := f.publish(t, fmt.Sprintf("pkg%d", i), 1)
		require.NoError(t, f.follows.Follow(ctx, "acc-1", pkg.ID))
	}

	tests := []struct {
		page, perPage int
		wantLen       int
		wantMore      bool
	}{
		{page: 1, perPage: 3, wantLen: 3, wantMore: true},
		{page: 2, perPage: 3, wantLen: 3, wantMore: true},
		{page: 3, perPage: 3, wantLen: 1, wantMore: false},
		{page: 4, perPage: 3, wantLen: 0, wantMore: false},
		{page: 1, perPage: 7, wantLen: 7, wantMore: false},
		{page: 1, perPage: 6, wantLen: 6, wantMore: true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("page=%d,per_page=%d", tt.page, tt.perPage), func(t *testing.T) {
			page, err := f.feed.Updates(ctx, "acc-1", tt.page, tt.perPage)
			require.NoError(t, err)
			assert.Len(t, page.Versions, tt.wantLen)
			assert.Equal(t, tt.wantMore, page.More)
		})
	}
}

func TestUpdates_PerPageDefaultsAndClamp(t *testing.T) {
	f := newFeedFixture()
	ctx := context.Background()
	pkg := f.publish(t, "pkg", 1)
	require.NoError(t, f.follows.Follow(ctx, "acc-1", pkg.ID))

	_, err := f.feed.Updates(ctx, "acc-1", 2, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultFeedPerPage+1, f.packages.lastListOptions.Limit)
	assert.Equal(t, DefaultFeedPerPage, f.packages.lastListOptions.Offset)

	_, err = f.feed.Updates(ctx, "acc-1", 1, 10_000)
	require.NoError(t, err)
	assert.Equal(t, MaxFeedPerPage+1, f.packages.lastListOptions.Limit)
}

func TestNewFeedQuery_CustomOptions(t *testing.T) {
	f := newFeedFixture()
	q := NewFeedQuery(f.follows, f.packages, FeedOptions{DefaultPerPage: 50, MaxPerPage: 20}, discardLogger())

	assert.Equal(t, 20, q.perPage(0), "default is capped at the maximum")
	assert.Equal(t, 5, q.perPage(5))
	assert.Equal(t, 20, q.perPage(21))
}

func TestUpdates_FollowStoreError(t *testing.T) {
	f := newFeedFixture()
	f.follows.listErr = apperror.Transient("follows", context.DeadlineExceeded)

	_, err := f.feed.Updates(context.Background(), "acc-1", 1, 10)
	assert.True(t, errors.Is(err, apperror.ErrTransient))
}

func TestUpdates_PageFarPastTheEnd(t *testing.T) {
	f := newFeedFixture()
	ctx := context.Background()
	pkg := f.publish(t, "serde", 1)
	require.NoError(t, f.follows.Follow(ctx, "acc-1", pkg.ID))

	for _, page := range []int{math.MaxInt/10 + 2, math.MaxInt} {
		result, err := f.feed.Updates(ctx, "acc-1", page, 10)
		require.NoError(t, err)
		assert.NotNil(t, result.Versions)
		assert.Empty(t, result.Versions, "page %d", page)
		assert.False(t, result.More)
	}
	assert.Equal(t, 0, f.packages.listVersionsCalls)
}
