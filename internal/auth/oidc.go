package auth

import (
	"context"
	"fmt"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
)

// OIDCAuthenticator verifies bearer ID tokens issued by an OpenID Connect
// provider.
type OIDCAuthenticator struct {
	verifier   *oidc.IDTokenVerifier
	emailClaim string
}

// NewOIDCAuthenticator discovers the provider at cfg.OIDCIssuerURL and
// verifies tokens issued for cfg.OIDCClientID.
func NewOIDCAuthenticator(ctx context.Context, cfg Config) (*OIDCAuthenticator, error) {
	provider, err := oidc.NewProvider(ctx, cfg.OIDCIssuerURL)
	if err != nil {
		return nil, fmt.Errorf("oidc provider: %w", err)
	}
	verifier := provider.Verifier(&oidc.Config{ClientID: cfg.OIDCClientID})
	return NewOIDCAuthenticatorWithVerifier(verifier, cfg.EmailClaim), nil
}

// NewOIDCAuthenticatorWithVerifier wraps an existing verifier.
func NewOIDCAuthenticatorWithVerifier(verifier *oidc.IDTokenVerifier, emailClaim string) *OIDCAuthenticator {
	if emailClaim == "" {
		emailClaim = "email"
	}
	return &OIDCAuthenticator{verifier: verifier, emailClaim: emailClaim}
}

func (a *OIDCAuthenticator) Authenticate(ctx context.Context, r *http.Request) (Identity, error) {
	raw := bearerToken(r)
	if raw == "" {
		return Identity{}, ErrUnauthenticated
	}

	token, err := a.verifier.Verify(ctx, raw)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	var claims map[string]any
	if err := token.Claims(&claims); err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	email, _ := claims[a.emailClaim].(string)

	id := Identity{Subject: token.Subject, Email: email}
	if !id.Valid() {
		return Identity{}, fmt.Errorf("%w: token has no %s claim", ErrUnauthenticated, a.emailClaim)
	}
	return id, nil
}
