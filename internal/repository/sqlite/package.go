package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/package-registry/internal/apperror"
	"github.com/sakif/package-registry/internal/model"
	"github.com/sakif/package-registry/internal/repository"
)

var _ repository.PackageRepository = (*DB)(nil)

// CreatePackage inserts a package and its first owner in one transaction.
func (db *DB) CreatePackage(ctx context.Context, pkg *model.Package, ownerID string) error {
	now := time.Now().UTC()
	pkg.ID = xid.New().String()
	pkg.CreatedAt = now
	pkg.UpdatedAt = now

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return translateError("begin create package", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO packages (id, name, downloads, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		pkg.ID, pkg.Name, pkg.Downloads, pkg.CreatedAt, pkg.UpdatedAt,
	)
	if err != nil {
		return translateError(fmt.Sprintf("creating package %s", pkg.Name), err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO package_owners (package_id, account_id) VALUES (?, ?)`,
		pkg.ID, ownerID,
	)
	if err != nil {
		return translateError(fmt.Sprintf("adding owner to package %s", pkg.Name), err)
	}

	if err := tx.Commit(); err != nil {
		return translateError("commit create package", err)
	}
	return nil
}

// GetPackageByName looks a package up by its unique name.
func (db *DB) GetPackageByName(ctx context.Context, name string) (*model.Package, error) {
	var p model.Package
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, name, downloads, created_at, updated_at FROM packages WHERE name = ?`,
		name,
	).Scan(&p.ID, &p.Name, &p.Downloads, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("package", name)
		}
		return nil, translateError(fmt.Sprintf("getting package %s", name), err)
	}
	return &p, nil
}

// ListPackagesByOwner returns every package accountID owns, by name.
func (db *DB) ListPackagesByOwner(ctx context.Context, accountID string) ([]model.Package, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT p.id, p.name, p.downloads, p.created_at, p.updated_at
		 FROM packages p
		 JOIN package_owners o ON o.package_id = p.id
		 WHERE o.account_id = ?
		 ORDER BY p.name`,
		accountID,
	)
	if err != nil {
		return nil, translateError(fmt.Sprintf("listing packages of account %s", accountID), err)
	}
	defer rows.Close()

	packages := []model.Package{}
	for rows.Next() {
		var p model.Package
		if err := rows.Scan(&p.ID, &p.Name, &p.Downloads, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, translateError("scanning package row", err)
		}
		packages = append(packages, p)
	}
	if err := rows.Err(); err != nil {
		return nil, translateError("iterating package rows", err)
	}
	return packages, nil
}

// AddVersion publishes a version. CreatedAt is kept when the caller set it
// and is stored in UTC: the feed orders on the stored text.
func (db *DB) AddVersion(ctx context.Context, version *model.Version) error {
	version.ID = xid.New().String()
	if version.CreatedAt.IsZero() {
		version.CreatedAt = time.Now()
	}
	version.CreatedAt = version.CreatedAt.UTC()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO versions (id, package_id, num, created_at) VALUES (?, ?, ?, ?)`,
		version.ID, version.PackageID, version.Number, version.CreatedAt,
	)
	if err != nil {
		return translateError(fmt.Sprintf("adding version %s", version.Number), err)
	}
	return nil
}

// IncrementDownloads adds delta to the package's download counter.
func (db *DB) IncrementDownloads(ctx context.Context, packageID string, delta int64) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE packages SET downloads = downloads + ?, updated_at = ? WHERE id = ?`,
		delta, time.Now().UTC(), packageID,
	)
	if err != nil {
		return translateError(fmt.Sprintf("incrementing downloads of package %s", packageID), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return translateError(fmt.Sprintf("incrementing downloads of package %s", packageID), err)
	}
	if n == 0 {
		return apperror.NotFound("package", packageID)
	}
	return nil
}

// ListVersions returns versions belonging to packageIDs, newest first.
//
// ORDER BY created_at DESC, id DESC gives a total order, so LIMIT/OFFSET
// windows never overlap or skip rows between pages.
func (db *DB) ListVersions(ctx context.Context, packageIDs []string, opts repository.ListOptions) ([]model.Version, error) {
	versions := []model.Version{}
	if len(packageIDs) == 0 {
		return versions, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(packageIDs)), ",")
	args := make([]any, 0, len(packageIDs)+2)
	for _, id := range packageIDs {
		args = append(args, id)
	}
	args = append(args, opts.Limit, opts.Offset)

	rows, err := db.conn.QueryContext(ctx,
		`SELECT v.id, v.package_id, p.name, v.num, v.created_at
		 FROM versions v
		 JOIN packages p ON p.id = v.package_id
		 WHERE v.package_id IN (`+placeholders+`)
		 ORDER BY v.created_at DESC, v.id DESC
		 LIMIT ? OFFSET ?`,
		args...,
	)
	if err != nil {
		return nil, translateError("listing versions", err)
	}
	defer rows.Close()

	for rows.Next() {
		var v model.Version
		if err := rows.Scan(&v.ID, &v.PackageID, &v.PackageName, &v.Number, &v.CreatedAt); err != nil {
			return nil, translateError("scanning version row", err)
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, translateError("iterating version rows", err)
	}
	return versions, nil
}

// TotalDownloads sums downloads over the packages accountID owns. The join on
// package_owners restricts the sum to that account; no packages sums to 0.
func (db *DB) TotalDownloads(ctx context.Context, accountID string) (int64, error) {
	var total int64
	err := db.conn.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(p.downloads), 0)
		 FROM packages p
		 JOIN package_owners o ON o.package_id = p.id
		 WHERE o.account_id = ?`,
		accountID,
	).Scan(&total)
	if err != nil {
		return 0, translateError(fmt.Sprintf("summing downloads of account %s", accountID), err)
	}
	return total, nil
}
