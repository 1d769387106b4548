// Package auth handles who the caller is.
//
// Two sources identify a request:
//
//	SessionIdentity  a signed JWT in the session cookie, set after GitHub OAuth
//	TokenIdentity    an API token secret in the Authorization header
//
// The Resolve middleware turns either into an account ID stored in the request
// context once; handlers and services only ever see that ID.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const sessionIssuer = "package-registry"

// DefaultSessionTTL is used when NewSessionService is given a zero TTL.
const DefaultSessionTTL = 24 * time.Hour

// SessionService signs and verifies session JWTs (HS256).
//
// The account ID is the "sub" claim. The JWT carries nothing else about the
// account, so re-logins that change the login or avatar do not invalidate
// existing sessions.
type SessionService struct {
	secret []byte
	ttl    time.Duration
}

// NewSessionService creates a SessionService. The secret must be at least
// 16 characters.
func NewSessionService(secret string, ttl time.Duration) (*SessionService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionService{secret: []byte(secret), ttl: ttl}, nil
}

// TTL is how long an issued session stays valid.
func (s *SessionService) TTL() time.Duration {
	return s.ttl
}

// Issue signs a session for accountID valid for the configured TTL.
func (s *SessionService) Issue(accountID string) (string, error) {
	return s.IssueWithDuration(accountID, s.ttl)
}

// IssueWithDuration signs a session with an explicit lifetime.
func (s *SessionService) IssueWithDuration(accountID string, d time.Duration) (string, error) {
	if accountID == "" {
		return "", errors.New("auth: session subject must not be empty")
	}

	now := time.Now()
	c := jwt.RegisteredClaims{
		Subject:   accountID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(d)),
		Issuer:    sessionIssuer,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing session: %w", err)
	}
	return signed, nil
}

// Verify checks the signature, issuer, algorithm and expiry of a session and
// returns the account ID it was issued for.
func (s *SessionService) Verify(tokenStr string) (string, error) {
	var c jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&c,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(sessionIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", errors.New("auth: session expired")
		}
		return "", fmt.Errorf("auth: invalid session: %w", err)
	}
	if !token.Valid || c.Subject == "" {
		return "", errors.New("auth: invalid session claims")
	}
	return c.Subject, nil
}
