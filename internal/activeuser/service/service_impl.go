package service

import (
	"context"
	"time"

	"github.com/smallbiznis/pulse/internal/activeuser/domain"
	"github.com/smallbiznis/pulse/internal/errkind"
	sessiondomain "github.com/smallbiznis/pulse/internal/session/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	SessionRepo sessiondomain.Repository
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	sessionRepo sessiondomain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("activeuser.service"),
		sessionRepo: p.SessionRepo,
	}
}

func (s *Service) ComputeMetrics(ctx context.Context, asOf time.Time) (domain.ActiveUsers, error) {
	return s.count(ctx, asOf.UTC(), 0)
}

// ComputeTrends counts the windows shifted back by one comparable period and
// compares them with current. It also returns the previous counts.
func (s *Service) ComputeTrends(ctx context.Context, asOf time.Time, current domain.ActiveUsers) (domain.Trends, domain.ActiveUsers, error) {
	previous, err := s.count(ctx, asOf.UTC(), 1)
	if err != nil {
		return domain.Trends{}, domain.ActiveUsers{}, err
	}
	return domain.Trends{
		DailyDelta:   domain.Delta(current.Daily, previous.Daily),
		WeeklyDelta:  domain.Delta(current.Weekly, previous.Weekly),
		MonthlyDelta: domain.Delta(current.Monthly, previous.Monthly),
	}, previous, nil
}

func (s *Service) Overview(ctx context.Context, asOf time.Time) (domain.Overview, error) {
	current, err := s.ComputeMetrics(ctx, asOf)
	if err != nil {
		return domain.Overview{}, err
	}
	trends, previous, err := s.ComputeTrends(ctx, asOf, current)
	if err != nil {
		return domain.Overview{}, err
	}
	return domain.Overview{Current: current, Previous: previous, Trends: trends}, nil
}

// count evaluates the three windows ending at asOf minus shift periods of
// their own length.
func (s *Service) count(ctx context.Context, asOf time.Time, shift int) (domain.ActiveUsers, error) {
	lengths := []time.Duration{domain.DailyWindow, domain.WeeklyWindow, domain.MonthlyWindow}
	windows := make([]sessiondomain.Window, 0, len(lengths))
	for _, length := range lengths {
		end := asOf.Add(-time.Duration(shift) * length)
		windows = append(windows, sessiondomain.Window{From: end.Add(-length), To: end})
	}

	counts, err := s.sessionRepo.CountActiveUsers(ctx, s.db, windows)
	if err != nil {
		s.log.Warn("active user count failed", zap.Time("as_of", asOf), zap.Error(err))
		return domain.ActiveUsers{}, errkind.Upstream("activeuser.count", err)
	}

	result := domain.ActiveUsers{AsOf: asOf}
	if len(counts) == len(lengths) {
		result.Daily, result.Weekly, result.Monthly = counts[0], counts[1], counts[2]
	}
	return result, nil
}
