package sqlite

import (
	"context"
	"fmt"

	"github.com/sakif/package-registry/internal/repository"
)

var _ repository.FollowRepository = (*DB)(nil)

// Follow records that accountID follows packageID. Following twice is a no-op:
// the primary key absorbs the duplicate.
func (db *DB) Follow(ctx context.Context, accountID, packageID string) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO follows (account_id, package_id) VALUES (?, ?)
		 ON CONFLICT(account_id, package_id) DO NOTHING`,
		accountID, packageID,
	)
	if err != nil {
		return translateError(fmt.Sprintf("following package %s", packageID), err)
	}
	return nil
}

// Unfollow deletes the relation. Zero rows affected is success.
func (db *DB) Unfollow(ctx context.Context, accountID, packageID string) error {
	_, err := db.conn.ExecContext(ctx,
		`DELETE FROM follows WHERE account_id = ? AND package_id = ?`,
		accountID, packageID,
	)
	if err != nil {
		return translateError(fmt.Sprintf("unfollowing package %s", packageID), err)
	}
	return nil
}

// IsFollowing reports whether the relation exists.
func (db *DB) IsFollowing(ctx context.Context, accountID, packageID string) (bool, error) {
	var exists bool
	err := db.conn.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM follows WHERE account_id = ? AND package_id = ?)`,
		accountID, packageID,
	).Scan(&exists)
	if err != nil {
		return false, translateError(fmt.Sprintf("checking follow of package %s", packageID), err)
	}
	return exists, nil
}

// FollowedPackageIDs returns the IDs of every package accountID follows.
// An account that follows nothing gets an empty, non-nil slice.
func (db *DB) FollowedPackageIDs(ctx context.Context, accountID string) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT package_id FROM follows WHERE account_id = ? ORDER BY package_id`,
		accountID,
	)
	if err != nil {
		return nil, translateError(fmt.Sprintf("listing follows of account %s", accountID), err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, translateError("scanning follow row", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, translateError("iterating follow rows", err)
	}
	return ids, nil
}
