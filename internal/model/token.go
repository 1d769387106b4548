package model

import "time"

// APIToken is a long-lived credential owned by an account.
//
// Only the SHA-256 digest of the secret is stored. The plaintext is handed to
// the account once, at creation. A token keeps resolving to AccountID for its
// whole life, whatever happens to the account's GitHub-owned fields.
type APIToken struct {
	ID         string     `json:"id"`
	AccountID  string     `json:"-"`
	Name       string     `json:"name"`
	TokenHash  string     `json:"-"`
	Prefix     string     `json:"prefix"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
}
