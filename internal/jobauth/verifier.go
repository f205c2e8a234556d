// Package jobauth authenticates calls that trigger batch jobs.
package jobauth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"github.com/smallbiznis/pulse/internal/config"
	"github.com/smallbiznis/pulse/internal/errkind"
)

var (
	ErrMissingCredential = errors.New("missing_credential")
	ErrInvalidCredential = errors.New("invalid_credential")
	ErrNotConfigured     = errors.New("trigger_secret_not_configured")
)

// Verifier decides whether a trigger request may run a job. The argument is
// the raw Authorization header value.
type Verifier interface {
	Verify(authorization string) error
}

type bearerSecret struct {
	secret []byte
}

// NewBearerSecret accepts "Bearer <secret>". An empty secret rejects
// every request.
func NewBearerSecret(secret string) Verifier {
	return &bearerSecret{secret: []byte(strings.TrimSpace(secret))}
}

func NewVerifier(cfg config.Config) Verifier {
	return NewBearerSecret(cfg.Scheduler.Secret)
}

func (v *bearerSecret) Verify(authorization string) error {
	if len(v.secret) == 0 {
		return reject(ErrNotConfigured)
	}

	header := strings.TrimSpace(authorization)
	if header == "" {
		return reject(ErrMissingCredential)
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return reject(ErrInvalidCredential)
	}
	if subtle.ConstantTimeCompare([]byte(parts[1]), v.secret) != 1 {
		return reject(ErrInvalidCredential)
	}
	return nil
}

func reject(reason error) error {
	return fmt.Errorf("%w: %w", errkind.ErrUnauthenticated, reason)
}
