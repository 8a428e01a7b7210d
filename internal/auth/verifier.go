// Package auth verifies that /set-color calls carry an OIDC token minted
// for our task queue's service account.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/api/idtoken"
)

// ErrForbidden wraps every verification failure. Handlers map it to 403.
var ErrForbidden = errors.New("caller verification failed")

// Verifier checks the caller credential on an incoming request
type Verifier interface {
	VerifyRequest(ctx context.Context, r *http.Request) error
}

// GoogleVerifier validates Google-signed ID tokens against a configured
// audience and a caller allow-list
type GoogleVerifier struct {
	audience string
	allowed  map[string]struct{}

	// injected for tests
	validate func(ctx context.Context, token, audience string) (*idtoken.Payload, error)
}

var _ Verifier = (*GoogleVerifier)(nil)

// NewGoogleVerifier creates a verifier for the given audience and
// allowed caller emails
func NewGoogleVerifier(audience string, allowedCallers []string) *GoogleVerifier {
	allowed := make(map[string]struct{}, len(allowedCallers))
	for _, email := range allowedCallers {
		allowed[email] = struct{}{}
	}
	return &GoogleVerifier{
		audience: audience,
		allowed:  allowed,
		validate: idtoken.Validate,
	}
}

// VerifyRequest checks the Authorization header. Failures are never
// retried; the caller gets 403 and the task queue redelivers.
func (v *GoogleVerifier) VerifyRequest(ctx context.Context, r *http.Request) error {
	header := r.Header.Get("Authorization")
	if header == "" {
		return fmt.Errorf("%w: missing Authorization header", ErrForbidden)
	}

	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return fmt.Errorf("%w: malformed Authorization header", ErrForbidden)
	}

	payload, err := v.validate(ctx, parts[1], v.audience)
	if err != nil {
		return fmt.Errorf("%w: invalid OIDC token", ErrForbidden)
	}

	email, _ := payload.Claims["email"].(string)
	if _, ok := v.allowed[email]; !ok {
		return fmt.Errorf("%w: unauthorized caller %q", ErrForbidden, email)
	}
	return nil
}
