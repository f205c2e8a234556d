package repository

import (
	"context"

	"github.com/smallbiznis/pulse/internal/auth/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByHash(ctx context.Context, db *gorm.DB, tokenHash string) (*domain.Token, error) {
	var token domain.Token
	err := db.WithContext(ctx).Raw(
		`SELECT token_hash, user_id, role, expires_at, revoked_at
		 FROM auth_tokens
		 WHERE token_hash = ?
		 LIMIT 1`,
		tokenHash,
	).Scan(&token).Error
	if err != nil {
		return nil, err
	}
	if token.TokenHash == "" {
		return nil, nil
	}
	return &token, nil
}
