package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/package-registry/internal/apperror"
	"github.com/sakif/package-registry/internal/model"
	"github.com/sakif/package-registry/internal/repository"
)

// compile-time check that *DB implements repository.AccountRepository
var _ repository.AccountRepository = (*DB)(nil)

const accountColumns = `id, github_id, login, name, avatar_url, email, gh_access_token, created_at, updated_at`

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*model.Account, error) {
	var (
		a                   model.Account
		name, avatar, email sql.NullString
	)
	err := row.Scan(
		&a.ID,
		&a.GitHubID,
		&a.Login,
		&name,
		&avatar,
		&email,
		&a.GitHubAccessToken,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.Name = fromNullString(name)
	a.AvatarURL = fromNullString(avatar)
	a.Email = fromNullString(email)
	return &a, nil
}

// Upsert inserts or updates an account keyed on its GitHub ID.
//
// INSERT ... ON CONFLICT(github_id) DO UPDATE is one atomic statement: two
// simultaneous first logins for the same GitHub user cannot create two rows,
// the loser of the race takes the update branch inside SQLite.
//
// The update set lists the GitHub-owned columns only. email is never in it:
// once an account exists its email belongs to the user.
//
// The canonical row is read back in the same transaction and copied into
// account, so the caller sees the surrogate ID and the preserved email.
func (db *DB) Upsert(ctx context.Context, account *model.Account) error {
	now := time.Now().UTC()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return translateError("begin upsert", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO accounts (id, github_id, login, name, avatar_url, email, gh_access_token, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(github_id) DO UPDATE SET
		     login           = excluded.login,
		     name            = excluded.name,
		     avatar_url      = excluded.avatar_url,
		     gh_access_token = excluded.gh_access_token,
		     updated_at      = excluded.updated_at`,
		xid.New().String(),
		account.GitHubID,
		account.Login,
		toNullString(account.Name),
		toNullString(account.AvatarURL),
		toNullString(account.Email),
		account.GitHubAccessToken,
		now,
		now,
	)
	if err != nil {
		return translateError(fmt.Sprintf("upserting account (githubID=%d)", account.GitHubID), err)
	}

	stored, err := scanAccount(tx.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE github_id = ?`, account.GitHubID))
	if err != nil {
		return translateError(fmt.Sprintf("reading account (githubID=%d)", account.GitHubID), err)
	}

	if err := tx.Commit(); err != nil {
		return translateError("commit upsert", err)
	}

	*account = *stored
	return nil
}

// GetByID retrieves an account by its internal ID.
// Returns apperror.ErrNotFound if no account exists with that ID.
func (db *DB) GetByID(ctx context.Context, id string) (*model.Account, error) {
	a, err := scanAccount(db.conn.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id))
	if err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("account", id)
		}
		return nil, translateError(fmt.Sprintf("getting account %s", id), err)
	}
	return a, nil
}

// GetByLogin retrieves an account by its GitHub login.
func (db *DB) GetByLogin(ctx context.Context, login string) (*model.Account, error) {
	a, err := scanAccount(db.conn.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE login = ?`, login))
	if err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("account", login)
		}
		return nil, translateError(fmt.Sprintf("getting account by login %s", login), err)
	}
	return a, nil
}

// GetByGitHubID retrieves an account by its GitHub user ID.
func (db *DB) GetByGitHubID(ctx context.Context, githubID int64) (*model.Account, error) {
	a, err := scanAccount(db.conn.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE github_id = ?`, githubID))
	if err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("account", fmt.Sprintf("github:%d", githubID))
		}
		return nil, translateError(fmt.Sprintf("getting account by githubID %d", githubID), err)
	}
	return a, nil
}

// UpdateEmail sets the email column and nothing else, so a concurrent Upsert
// of the GitHub-owned columns is never overwritten.
func (db *DB) UpdateEmail(ctx context.Context, id, email string) (*model.Account, error) {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE accounts SET email = ?, updated_at = ? WHERE id = ?`,
		email, time.Now().UTC(), id,
	)
	if err != nil {
		return nil, translateError(fmt.Sprintf("updating email for account %s", id), err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, translateError(fmt.Sprintf("updating email for account %s", id), err)
	}
	if n == 0 {
		return nil, apperror.NotFound("account", id)
	}

	return db.GetByID(ctx, id)
}

func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
