package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/package-registry/internal/apperror"
	"github.com/sakif/package-registry/internal/model"
	"github.com/sakif/package-registry/internal/repository"
)

var _ repository.TokenRepository = (*DB)(nil)

// CreateToken inserts a token row. ID and CreatedAt are filled in here.
// A duplicate token_hash surfaces as apperror.ErrConflict.
func (db *DB) CreateToken(ctx context.Context, token *model.APIToken) error {
	token.ID = xid.New().String()
	token.CreatedAt = time.Now().UTC()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO api_tokens (id, account_id, name, token_hash, token_prefix, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		token.ID,
		token.AccountID,
		token.Name,
		token.TokenHash,
		token.Prefix,
		token.CreatedAt,
	)
	if err != nil {
		return translateError(fmt.Sprintf("creating token for account %s", token.AccountID), err)
	}
	return nil
}

// AccountByTokenHash joins through api_tokens.account_id, the only link
// between a token and its account. Nothing GitHub reports is part of the
// lookup, so re-logins never break existing tokens.
func (db *DB) AccountByTokenHash(ctx context.Context, hash string) (*model.Account, error) {
	a, err := scanAccount(db.conn.QueryRowContext(ctx,
		`SELECT a.id, a.github_id, a.login, a.name, a.avatar_url, a.email, a.gh_access_token, a.created_at, a.updated_at
		 FROM api_tokens t
		 JOIN accounts a ON a.id = t.account_id
		 WHERE t.token_hash = ?`,
		hash,
	))
	if err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("token", "(redacted)")
		}
		return nil, translateError("looking up token", err)
	}
	return a, nil
}
