// Package provider integrates with Google as the social sign-in provider.
// It returns identity facts only; account resolution and session decisions
// belong to the credential service.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

var (
	ErrInvalidGoogleAudience = errors.New("invalid google audience")
	ErrMissingGoogleSubject  = errors.New("google response missing subject")
)

const userInfoURL = "https://www.googleapis.com/oauth2/v1/userinfo"

// UserInfo is the normalized identity returned by Google.
type UserInfo struct {
	Sub   string
	Email string
	Name  string
}

// GoogleProvider supports two exchange styles: direct ID-token validation
// (the popup-style flow, where the client already holds Google credentials)
// and the two-step authorization-code redirect flow.
type GoogleProvider struct {
	clientID    string
	oauthConfig *oauth2.Config
}

func NewGoogleProvider(clientID, clientSecret, redirectURL string) *GoogleProvider {
	return &GoogleProvider{
		clientID: clientID,
		oauthConfig: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     google.Endpoint,
			Scopes:       []string{"openid", "email", "profile"},
		},
	}
}

// ValidateIDToken verifies a Google ID token against the tokeninfo endpoint
// and checks its audience.
func (p *GoogleProvider) ValidateIDToken(ctx context.Context, rawIDToken string) (*UserInfo, error) {
	oauth2Service, err := oauth2api.NewService(ctx, option.WithHTTPClient(&http.Client{}))
	if err != nil {
		return nil, err
	}

	tokenInfoCall := oauth2Service.Tokeninfo()
	tokenInfoCall.IdToken(rawIDToken)
	tokenInfo, err := tokenInfoCall.Do()
	if err != nil {
		return nil, err
	}

	if tokenInfo.Audience != p.clientID {
		return nil, ErrInvalidGoogleAudience
	}

	if tokenInfo.UserId == "" {
		return nil, ErrMissingGoogleSubject
	}

	return &UserInfo{
		Sub:   tokenInfo.UserId,
		Email: tokenInfo.Email,
	}, nil
}

// FetchUserInfo retrieves the Google profile for an access token. Used to
// fill in the display name, which tokeninfo does not carry.
func (p *GoogleProvider) FetchUserInfo(ctx context.Context, accessToken string) (*UserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, userInfoURL, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.New("status code is not OK")
	}

	var payload struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}

	return &UserInfo{
		Sub:   payload.ID,
		Email: payload.Email,
		Name:  payload.Name,
	}, nil
}

// AuthCodeURL builds the OAuth authorization URL for the redirect flow.
func (p *GoogleProvider) AuthCodeURL(state string) string {
	return p.oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// ExchangeCode exchanges an authorization code for tokens and returns the
// Google profile behind them.
func (p *GoogleProvider) ExchangeCode(ctx context.Context, code string) (*UserInfo, error) {
	token, err := p.oauthConfig.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}

	info, err := p.FetchUserInfo(ctx, token.AccessToken)
	if err != nil {
		return nil, err
	}

	if info.Sub == "" {
		return nil, ErrMissingGoogleSubject
	}

	return info, nil
}
