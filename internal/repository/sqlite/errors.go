package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	moderncsqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sakif/package-registry/internal/apperror"
)

// translateError turns driver errors into apperror kinds.
//
//	sql.ErrNoRows                        → caller decides (usually NotFound)
//	UNIQUE / PRIMARY KEY violation       → Conflict
//	SQLITE_BUSY, SQLITE_LOCKED, deadline → Transient
//	anything else                        → wrapped as-is
func translateError(op string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return apperror.Transient(op, err)
	}

	var se *moderncsqlite.Error
	if errors.As(err, &se) {
		switch se.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return apperror.Transient(op, err)
		case sqlite3.SQLITE_CONSTRAINT:
			if isUniqueViolation(err) {
				return &apperror.AppError{
					Err:     apperror.ErrConflict,
					Message: fmt.Sprintf("%s: %s", op, constraintTarget(err)),
					Cause:   err,
				}
			}
		}
	}

	return fmt.Errorf("sqlite: %s: %w", op, err)
}

func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "PRIMARY KEY constraint failed")
}

// constraintTarget extracts "accounts.login" from
// "constraint failed: UNIQUE constraint failed: accounts.login (2067)".
func constraintTarget(err error) string {
	msg := err.Error()
	i := strings.LastIndex(msg, "constraint failed: ")
	if i < 0 {
		return "duplicate value"
	}
	target := msg[i+len("constraint failed: "):]
	if j := strings.Index(target, " ("); j >= 0 {
		target = target[:j]
	}
	return "duplicate " + target
}

// isNoRows reports whether err is the "no matching row" sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
