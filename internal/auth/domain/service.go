package domain

import (
	"context"

	"gorm.io/gorm"
)

type Authenticator interface {
	// Authenticate resolves a raw session token to its user. Every failure
	// wraps errkind.ErrUnauthenticated.
	Authenticate(ctx context.Context, rawToken string) (*User, error)
}

type Repository interface {
	FindByHash(ctx context.Context, db *gorm.DB, tokenHash string) (*Token, error)
}
