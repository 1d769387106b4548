package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sakif/package-registry/internal/model"
)

// newTestDB returns a fresh, fully migrated in-memory database.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	require.NoError(t, err, "failed to create test db")
	t.Cleanup(func() { db.Close() })
	return db
}

func strPtr(s string) *string { return &s }

// createTestAccount upserts an account for a fresh GitHub ID.
func createTestAccount(t *testing.T, db *DB, githubID int64, login string) *model.Account {
	t.Helper()
	a := &model.Account{
		GitHubID:          githubID,
		Login:             login,
		AvatarURL:         strPtr("https://avatars.githubusercontent.com/u/123"),
		GitHubAccessToken: login + "_token",
	}
	require.NoError(t, db.Upsert(context.Background(), a), "failed to create test account")
	return a
}

// createTestPackage creates a package owned by ownerID.
func createTestPackage(t *testing.T, db *DB, name, ownerID string) *model.Package {
	t.Helper()
	p := &model.Package{Name: name}
	require.NoError(t, db.CreatePackage(context.Background(), p, ownerID), "failed to create test package")
	return p
}

// addTestVersion publishes num for pkg at the given time.
func addTestVersion(t *testing.T, db *DB, pkg *model.Package, num string, at time.Time) *model.Version {
	t.Helper()
	v := &model.Version{PackageID: pkg.ID, Number: num, CreatedAt: at}
	require.NoError(t, db.AddVersion(context.Background(), v), "failed to add test version")
	return v
}

func testAccount() *model.Account {
	return &model.Account{GitHubID: 1, Login: "foo", GitHubAccessToken: "foo_token"}
}
