// Package identity resolves bearer tokens through the external identity
// provider. Token issuance and verification mechanics live entirely in
// that service; this package only consumes its verify endpoint.
package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"gitstore/internal/apperr"
)

// Principal is a verified identity.
type Principal struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

// Verifier resolves an opaque token to a Principal.
type Verifier interface {
	Verify(ctx context.Context, token string) (Principal, error)
}

// HTTPVerifier calls the identity provider's verify endpoint.
type HTTPVerifier struct {
	base   string
	client *http.Client
}

func NewHTTPVerifier(base string, timeout time.Duration) *HTTPVerifier {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPVerifier{base: base, client: &http.Client{Timeout: timeout}}
}

func (v *HTTPVerifier) Verify(ctx context.Context, token string) (Principal, error) {
	body := strings.NewReader(fmt.Sprintf(`{"token":%q}`, token))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.base+"/tokens/verify", body)
	if err != nil {
		return Principal{}, apperr.Internal(err, "identity request failed")
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := v.client.Do(req)
	if err != nil {
		return Principal{}, apperr.Internal(err, "identity provider unreachable")
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var p Principal
		if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
			return Principal{}, apperr.Internal(err, "identity response malformed")
		}
		if p.UserID == "" {
			return Principal{}, apperr.Internal(fmt.Errorf("verify returned empty userId"), "identity response malformed")
		}
		return p, nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return Principal{}, apperr.Unauthorized("token is invalid or expired")
	default:
		return Principal{}, apperr.Internal(
			fmt.Errorf("identity provider returned status %d", resp.StatusCode), "identity provider error")
	}
}

type contextKey struct{}

// WithPrincipal attaches a verified identity to the context.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, contextKey{}, p)
}

// FromContext retrieves the verified identity, if any.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(contextKey{}).(Principal)
	return p, ok
}

// BearerToken extracts the token from an Authorization header.
func BearerToken(r *http.Request) (string, error) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", apperr.Unauthorized("missing Authorization header")
	}
	token, ok := strings.CutPrefix(h, "Bearer ")
	if !ok || token == "" {
		return "", apperr.Unauthorized("Authorization header must be a bearer token")
	}
	return token, nil
}
