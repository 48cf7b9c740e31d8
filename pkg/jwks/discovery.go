package jwks

import (
	"context"
	"fmt"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/mydebugger/jwtkit/pkg/telemetry"
)

// Discovery is the subset of an OpenID Provider configuration needed to
// locate keys and tokens.
type Discovery struct {
	Issuer        string   `json:"issuer"`
	JWKSURI       string   `json:"jwks_uri"`
	TokenEndpoint string   `json:"token_endpoint,omitempty"`
	Algorithms    []string `json:"id_token_signing_alg_values_supported,omitempty"`
}

// Discover reads issuer/.well-known/openid-configuration. go-oidc rejects a
// document whose issuer differs from the requested one.
func (f *Fetcher) Discover(ctx context.Context, issuer string) (*Discovery, error) {
	issuer = strings.TrimSuffix(issuer, "/")
	ctx, span := telemetry.StartSpan(ctx, "jwks.discover", telemetry.AttrIssuer.String(issuer))
	defer span.End()

	provider, err := oidc.NewProvider(oidc.ClientContext(ctx, f.client), issuer)
	if err != nil {
		telemetry.SetSpanError(span, err)
		return nil, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}

	var d Discovery
	if err := provider.Claims(&d); err != nil {
		telemetry.SetSpanError(span, err)
		return nil, fmt.Errorf("failed to parse discovery document: %w", err)
	}
	if d.JWKSURI == "" {
		telemetry.SetSpanError(span, ErrNoJWKSURI)
		return nil, ErrNoJWKSURI
	}
	if d.TokenEndpoint == "" {
		d.TokenEndpoint = provider.Endpoint().TokenURL
	}
	f.log.Debug("Discovered provider", "issuer", d.Issuer, "jwks_uri", d.JWKSURI)
	return &d, nil
}

// FetchIssuerJWKS discovers the issuer's jwks_uri and fetches its key set.
func (f *Fetcher) FetchIssuerJWKS(ctx context.Context, issuer string) (*Discovery, error) {
	d, err := f.Discover(ctx, issuer)
	if err != nil {
		return nil, err
	}
	if _, err := f.FetchJWKS(ctx, d.JWKSURI); err != nil {
		return nil, err
	}
	return d, nil
}
