package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"

	"github.com/sakif/package-registry/internal/model"
)

const defaultGitHubAPI = "https://api.github.com"

// githubUser is the part of GitHub's GET /user response the registry uses.
// name and email are null when the user has not set them or keeps them private.
type githubUser struct {
	ID        int64   `json:"id"`
	Login     string  `json:"login"`
	Name      *string `json:"name"`
	Email     *string `json:"email"`
	AvatarURL *string `json:"avatar_url"`
}

// GitHubProvider runs the GitHub OAuth authorization-code flow.
//
// The code-for-token exchange is server to server with the client secret;
// the access token never reaches the browser.
type GitHubProvider struct {
	config *oauth2.Config
	apiURL string
}

// NewGitHubProvider creates a provider for the OAuth app with the given
// credentials. callbackURL must match the app's registered callback exactly.
//
// Scopes: read:user for the profile, user:email for the primary email.
func NewGitHubProvider(clientID, clientSecret, callbackURL string) *GitHubProvider {
	return &GitHubProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     github.Endpoint,
		},
		apiURL: defaultGitHubAPI,
	}
}

// WithEndpoints points the provider at another OAuth server and API base URL.
// Used against GitHub Enterprise and in tests.
func (p *GitHubProvider) WithEndpoints(endpoint oauth2.Endpoint, apiURL string) *GitHubProvider {
	p.config.Endpoint = endpoint
	p.apiURL = strings.TrimSuffix(apiURL, "/")
	return p
}

// AuthURL returns the GitHub authorization URL carrying state. The caller
// stores state in a cookie and checks it on the callback.
func (p *GitHubProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades an authorization code for the verified GitHub identity.
//
//  1. POST the code to GitHub's token endpoint
//  2. GET /user with the resulting access token
//  3. map the profile onto model.ProviderIdentity
func (p *GitHubProvider) Exchange(ctx context.Context, code string) (*model.ProviderIdentity, error) {
	oauthToken, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging OAuth code: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.apiURL+"/user", nil)
	if err != nil {
		return nil, fmt.Errorf("auth: building GitHub /user request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := p.config.Client(ctx, oauthToken).Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth: calling GitHub /user API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth: GitHub /user API returned status %d", resp.StatusCode)
	}

	var u githubUser
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		return nil, fmt.Errorf("auth: decoding GitHub /user response: %w", err)
	}
	if u.ID == 0 || u.Login == "" {
		return nil, fmt.Errorf("auth: GitHub returned an invalid user (id=%d, login=%q)", u.ID, u.Login)
	}

	return &model.ProviderIdentity{
		GitHubID:    u.ID,
		Login:       u.Login,
		Name:        u.Name,
		Email:       u.Email,
		AvatarURL:   u.AvatarURL,
		AccessToken: oauthToken.AccessToken,
	}, nil
}
