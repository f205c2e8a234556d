package service

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"

	"github.com/smallbiznis/pulse/internal/auth/domain"
	"github.com/smallbiznis/pulse/internal/clock"
	"github.com/smallbiznis/pulse/internal/errkind"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Repo  domain.Repository
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	repo  domain.Repository
	clock clock.Clock
}

func New(p Params) domain.Authenticator {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("auth.service"),
		repo:  p.Repo,
		clock: p.Clock,
	}
}

func (s *Service) Authenticate(ctx context.Context, rawToken string) (*domain.User, error) {
	token := strings.TrimSpace(rawToken)
	if token == "" {
		return nil, unauthenticated(domain.ErrInvalidSession)
	}

	hash := domain.HashToken(token)
	record, err := s.repo.FindByHash(ctx, s.db, hash)
	if err != nil {
		return nil, errkind.Upstream("auth.find_token", err)
	}
	if record == nil || subtle.ConstantTimeCompare([]byte(record.TokenHash), []byte(hash)) != 1 {
		return nil, unauthenticated(domain.ErrInvalidSession)
	}

	now := s.clock.Now().UTC()
	if record.RevokedAt != nil {
		return nil, unauthenticated(domain.ErrSessionRevoked)
	}
	if !now.Before(record.ExpiresAt) {
		return nil, unauthenticated(domain.ErrSessionExpired)
	}

	role := strings.ToLower(strings.TrimSpace(record.Role))
	if role == "" {
		role = domain.RoleMember
	}
	return &domain.User{ID: record.UserID, Role: role}, nil
}

func unauthenticated(reason error) error {
	return fmt.Errorf("%w: %w", errkind.ErrUnauthenticated, reason)
}
