package model

import "time"

// Account is a registry user, identified upstream by a GitHub account.
//
// GitHubID is the reconciliation key: every GitHub login for the same GitHub
// user lands on the same row. ID is our own surrogate key and never changes.
//
// Login, Name, AvatarURL and GitHubAccessToken are owned by GitHub and are
// refreshed on every login. Email is owned by the user: it is set from GitHub
// only when the account is first created, and after that only the profile
// editor writes it.
type Account struct {
	ID                string    `json:"id"`
	GitHubID          int64     `json:"githubId"`
	Login             string    `json:"login"`
	Name              *string   `json:"name"`
	AvatarURL         *string   `json:"avatarUrl"`
	Email             *string   `json:"email"`
	GitHubAccessToken string    `json:"-"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// ProviderIdentity is the verified result of a GitHub OAuth login.
// Optional fields are nil when GitHub did not report them.
type ProviderIdentity struct {
	GitHubID    int64
	Login       string
	Email       *string
	Name        *string
	AvatarURL   *string
	AccessToken string
}

// AccountView is the serialised form of an Account.
type AccountView struct {
	ID        string  `json:"id"`
	Login     string  `json:"login"`
	Name      *string `json:"name"`
	AvatarURL *string `json:"avatar"`
	URL       string  `json:"url"`
	Email     *string `json:"email"`
}

// ProfileURL is the account's public GitHub page.
func (a *Account) ProfileURL() string {
	return "https://github.com/" + a.Login
}

// View renders the account for viewerID. The email is only included when the
// viewer is the account itself; everyone else sees null.
func (a *Account) View(viewerID string) AccountView {
	v := AccountView{
		ID:        a.ID,
		Login:     a.Login,
		Name:      a.Name,
		AvatarURL: a.AvatarURL,
		URL:       a.ProfileURL(),
	}
	if viewerID != "" && viewerID == a.ID {
		v.Email = a.Email
	}
	return v
}
