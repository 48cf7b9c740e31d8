package jwks

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// ClientCredentials identifies an OAuth2 client for the client_credentials
// grant.
type ClientCredentials struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
	Audience     string
}

// ClientCredentialsToken requests an access token so it can be inspected.
// The Fetcher's HTTP client carries the request.
func (f *Fetcher) ClientCredentialsToken(ctx context.Context, cc ClientCredentials) (*oauth2.Token, error) {
	if cc.TokenURL == "" || cc.ClientID == "" {
		return nil, errors.New("token URL and client ID are required")
	}
	cfg := clientcredentials.Config{
		ClientID:     cc.ClientID,
		ClientSecret: cc.ClientSecret,
		TokenURL:     cc.TokenURL,
		Scopes:       cc.Scopes,
	}
	if cc.Audience != "" {
		cfg.EndpointParams = map[string][]string{"audience": {cc.Audience}}
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, f.client)
	tok, err := cfg.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("client credentials grant failed: %w", err)
	}
	return tok, nil
}
