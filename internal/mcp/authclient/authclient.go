// Package authclient models the gateway's only dependency on the Hub's
// authentication surface: validating a bearer token into an identity.
//
// The real Hub call is out of scope for this gateway (spec.md §1 treats Hub
// auth as an opaque collaborator); Validator is the narrow interface the
// transport's authorization gate (§4.1.3) programs against.
package authclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrUnauthorized is returned by [Validator.Validate] when the Hub rejects
// the token outright (as opposed to a network/transport failure).
var ErrUnauthorized = errors.New("authclient: token rejected")

// Identity is the caller identity returned for a valid token.
type Identity struct {
	Subject string
}

// Validator validates a bearer token against the Hub.
//
// Outcomes (§4.1.3):
//   - nil error, non-nil identity: token is valid.
//   - ErrUnauthorized: token is present but invalid — callers should reject
//     with 401.
//   - any other non-nil error: validator failure (network, timeout, etc.) —
//     callers must NOT treat this as 401; continue unauthenticated instead.
type Validator interface {
	Validate(ctx context.Context, token string) (*Identity, error)
}

// HTTPValidator validates tokens by calling a configured Hub "whoami"-style
// endpoint. It is the production [Validator] implementation.
type HTTPValidator struct {
	// Endpoint is the Hub URL to call, e.g. "https://huggingface.co/api/whoami-v2".
	Endpoint string
	// Client is the HTTP client used for the call. Defaults to a client with
	// a 5s timeout when nil.
	Client *http.Client
}

// NewHTTPValidator returns an [HTTPValidator] with a sane default timeout.
func NewHTTPValidator(endpoint string) *HTTPValidator {
	return &HTTPValidator{
		Endpoint: endpoint,
		Client:   &http.Client{Timeout: 5 * time.Second},
	}
}

// Validate implements [Validator].
func (v *HTTPValidator) Validate(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, fmt.Errorf("authclient: empty token")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.Endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("authclient: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	client := v.Client
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("authclient: validate request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// The Hub response body parsing is intentionally out of scope; the
		// subject is derived from the token's well-known prefix for now.
		return &Identity{Subject: subjectFromToken(token)}, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, ErrUnauthorized
	default:
		return nil, fmt.Errorf("authclient: unexpected status %d", resp.StatusCode)
	}
}

func subjectFromToken(token string) string {
	if i := strings.IndexByte(token, '.'); i > 0 {
		return token[:i]
	}
	return token
}
