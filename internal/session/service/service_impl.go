package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	"github.com/smallbiznis/pulse/internal/clock"
	"github.com/smallbiznis/pulse/internal/config"
	"github.com/smallbiznis/pulse/internal/errkind"
	"github.com/smallbiznis/pulse/internal/observability/metrics"
	"github.com/smallbiznis/pulse/internal/session/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Config  config.Config `optional:"true"`
	Log     *zap.Logger
	GenID   *snowflake.Node
	Repo    domain.Repository
	Clock   clock.Clock
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	repo    domain.Repository
	genID   *snowflake.Node
	clock   clock.Clock
	metrics *metrics.Metrics
	idle    time.Duration
	loc     *time.Location
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("session.service"),
		repo:    p.Repo,
		genID:   p.GenID,
		clock:   p.Clock,
		metrics: p.Metrics,
		idle:    p.Config.Session.IdleTimeout,
		loc:     p.Config.Location(),
	}
}

func (s *Service) RecordHeartbeat(ctx context.Context, req domain.HeartbeatRequest) (*domain.HeartbeatResult, error) {
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return nil, errkind.ErrUnauthenticated
	}

	now := s.clock.Now().UTC()

	sessionID := strings.TrimSpace(req.SessionID)
	isNew := !ValidSessionID(sessionID)
	if !isNew {
		current, err := s.repo.FindByUserSession(ctx, s.db, userID, sessionID)
		if err != nil {
			return nil, errkind.Upstream("session.find", err)
		}
		if current != nil && current.Expired(now, s.idle, s.loc) {
			s.log.Debug("session expired, starting a new one",
				zap.String("user_id", userID),
				zap.Time("last_seen_at", current.LastSeenAt),
			)
			isNew = true
		}
	}
	if isNew {
		sessionID = ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String()
	}

	session := &domain.Session{
		ID:         s.genID.Generate(),
		UserID:     userID,
		SessionID:  sessionID,
		LastSeenAt: now,
		UserAgent:  truncateBytes(strings.TrimSpace(req.UserAgent), domain.MaxUserAgentBytes),
		IPAddress:  truncateBytes(strings.TrimSpace(req.IPAddress), domain.MaxIPAddressBytes),
		CreatedAt:  now,
	}

	if err := s.repo.Touch(ctx, s.db, session); err != nil {
		s.log.Warn("heartbeat upsert failed",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return nil, errkind.Upstream("session.touch", err)
	}

	stored, err := s.repo.FindByUserSession(ctx, s.db, userID, sessionID)
	if err != nil {
		return nil, errkind.Upstream("session.find", err)
	}
	lastSeen := now
	if stored != nil {
		lastSeen = stored.LastSeenAt.UTC()
	}

	s.metrics.RecordHeartbeat(ctx, isNew)

	return &domain.HeartbeatResult{
		SessionID:    sessionID,
		IsNewSession: isNew,
		LastSeenAt:   lastSeen,
	}, nil
}

// ValidSessionID reports whether a client supplied id can be stored as is.
func ValidSessionID(id string) bool {
	if id == "" || len(id) > domain.MaxSessionIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			return false
		}
	}
	return true
}

func truncateBytes(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(value[cut]) {
		cut--
	}
	return value[:cut]
}
