// Package auth resolves the signed-in user for the REST API and the CLI.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrUnauthenticated is returned when a request carries no usable identity.
var ErrUnauthenticated = errors.New("not signed in")

// Modes accepted by Config.Mode.
const (
	ModeLocal   = "local"
	ModeHeaders = "headers"
	ModeOIDC    = "oidc"
)

// Headers read by the headers authenticator.
const (
	HeaderSubject = "X-User-Id"
	HeaderEmail   = "X-User-Email"
)

// Identity is the authenticated user.
type Identity struct {
	Subject string `json:"subject"`
	Email   string `json:"email"`
}

// Valid reports whether both subject and email are set.
func (i Identity) Valid() bool {
	return i.Subject != "" && i.Email != ""
}

type ctxKeyIdentity struct{}

// ContextWithIdentity returns a copy of ctx carrying identity.
func ContextWithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, ctxKeyIdentity{}, identity)
}

// IdentityFromContext returns the identity stored by ContextWithIdentity.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	v, ok := ctx.Value(ctxKeyIdentity{}).(Identity)
	return v, ok
}

// Config selects and configures an Authenticator.
type Config struct {
	Mode string

	// Local mode identity, from user.id and user.email.
	Subject string
	Email   string

	OIDCIssuerURL string
	OIDCClientID  string
	EmailClaim    string // default "email"
}

// Validate checks the fields required by the selected mode.
func (c Config) Validate() error {
	switch c.Mode {
	case "", ModeLocal, ModeHeaders:
		return nil
	case ModeOIDC:
		if strings.TrimSpace(c.OIDCIssuerURL) == "" {
			return errors.New("auth.oidc.issuer_url is required for oidc mode")
		}
		if strings.TrimSpace(c.OIDCClientID) == "" {
			return errors.New("auth.oidc.client_id is required for oidc mode")
		}
		return nil
	default:
		return fmt.Errorf("unknown auth mode %q (valid: local, headers, oidc)", c.Mode)
	}
}

// Authenticator extracts an Identity from a request.
type Authenticator interface {
	Authenticate(ctx context.Context, r *http.Request) (Identity, error)
}

// New returns the Authenticator for cfg.Mode. OIDC mode contacts the
// issuer for discovery.
func New(ctx context.Context, cfg Config) (Authenticator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Mode {
	case ModeHeaders:
		return HeadersAuthenticator{}, nil
	case ModeOIDC:
		return NewOIDCAuthenticator(ctx, cfg)
	default:
		return NewStaticAuthenticator(Identity{Subject: cfg.Subject, Email: cfg.Email}), nil
	}
}

// StaticAuthenticator returns the same identity for every request. It backs
// local mode where the configured user is trusted.
type StaticAuthenticator struct {
	identity Identity
}

// NewStaticAuthenticator returns an authenticator for identity.
func NewStaticAuthenticator(identity Identity) *StaticAuthenticator {
	return &StaticAuthenticator{identity: identity}
}

func (a *StaticAuthenticator) Authenticate(ctx context.Context, r *http.Request) (Identity, error) {
	if !a.identity.Valid() {
		return Identity{}, fmt.Errorf("%w: set user.id and user.email", ErrUnauthenticated)
	}
	return a.identity, nil
}

// HeadersAuthenticator trusts identity headers set by a fronting proxy.
type HeadersAuthenticator struct{}

func (HeadersAuthenticator) Authenticate(ctx context.Context, r *http.Request) (Identity, error) {
	id := Identity{
		Subject: strings.TrimSpace(r.Header.Get(HeaderSubject)),
		Email:   strings.TrimSpace(r.Header.Get(HeaderEmail)),
	}
	if !id.Valid() {
		return Identity{}, fmt.Errorf("%w: missing %s or %s header", ErrUnauthenticated, HeaderSubject, HeaderEmail)
	}
	return id, nil
}

func bearerToken(r *http.Request) string {
	authz := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, ok := strings.Cut(authz, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
