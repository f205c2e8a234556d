package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang-sql/civil"
	"github.com/smallbiznis/pulse/internal/clock"
	"github.com/smallbiznis/pulse/internal/config"
	"github.com/smallbiznis/pulse/internal/dailymetric/domain"
	"github.com/smallbiznis/pulse/internal/errkind"
	"github.com/smallbiznis/pulse/internal/metricdate"
	obslogger "github.com/smallbiznis/pulse/internal/observability/logger"
	"github.com/smallbiznis/pulse/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Repo       domain.Repository
	Calculator domain.Calculator
	Clock      clock.Clock
	Cfg        config.Config
	Metrics    *metrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	repo       domain.Repository
	calculator domain.Calculator
	clock      clock.Clock
	loc        *time.Location
	metrics    *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("dailymetric.service"),
		genID:      p.GenID,
		repo:       p.Repo,
		calculator: p.Calculator,
		clock:      p.Clock,
		loc:        p.Cfg.Location(),
		metrics:    p.Metrics,
	}
}

func (s *Service) Run(ctx context.Context, date *civil.Date) (*domain.RunResult, error) {
	now := s.clock.Now()
	target := metricdate.Resolve(date, now, s.loc)
	if err := metricdate.RequireCompleted(target, now, s.loc); err != nil {
		return nil, err
	}
	key := target.String()
	log := obslogger.WithMetricDate(obslogger.WithContext(ctx, s.log), key)

	existing, err := s.repo.FindByDate(ctx, s.db, key)
	if err != nil {
		return nil, errkind.Upstream("dailymetric.find", err)
	}
	if existing != nil {
		log.Debug("snapshot already committed", zap.String("snapshot_id", existing.ID.String()))
		s.metrics.RecordSnapshotOutcome(ctx, "existing")
		return &domain.RunResult{Snapshot: existing, State: domain.RunStateCommitted}, nil
	}

	log.Info("snapshot state", zap.String("state", string(domain.RunStateComputing)))

	_, asOf := metricdate.Bounds(target, s.loc)
	counts, err := s.calculator.ComputeMetrics(ctx, asOf)
	if err != nil {
		log.Warn("snapshot compute failed",
			zap.String("state", string(domain.RunStateNotStarted)),
			zap.Error(err),
		)
		return nil, err
	}

	snapshot := &domain.Snapshot{
		ID:                 s.genID.Generate(),
		MetricDate:         key,
		DailyActiveUsers:   counts.Daily,
		WeeklyActiveUsers:  counts.Weekly,
		MonthlyActiveUsers: counts.Monthly,
		ComputedAt:         s.clock.Now().UTC(),
	}

	inserted, err := s.repo.InsertIfAbsent(ctx, s.db, snapshot)
	if err != nil && !errors.Is(err, errkind.ErrConflict) {
		log.Warn("snapshot insert failed",
			zap.String("state", string(domain.RunStateNotStarted)),
			zap.Error(err),
		)
		return nil, errkind.Upstream("dailymetric.insert", err)
	}
	if inserted {
		log.Info("snapshot state",
			zap.String("state", string(domain.RunStateCommitted)),
			zap.String("snapshot_id", snapshot.ID.String()),
			zap.Int64("dau", snapshot.DailyActiveUsers),
			zap.Int64("wau", snapshot.WeeklyActiveUsers),
			zap.Int64("mau", snapshot.MonthlyActiveUsers),
		)
		s.metrics.RecordSnapshotOutcome(ctx, "created")
		return &domain.RunResult{Snapshot: snapshot, State: domain.RunStateCommitted, Created: true}, nil
	}

	// a concurrent run committed first
	winner, err := s.repo.FindByDate(ctx, s.db, key)
	if err != nil {
		return nil, errkind.Upstream("dailymetric.find_winner", err)
	}
	if winner == nil {
		return nil, errkind.Upstream("dailymetric.find_winner", domain.ErrSnapshotVanished)
	}
	log.Info("snapshot lost race", zap.String("snapshot_id", winner.ID.String()))
	s.metrics.RecordSnapshotOutcome(ctx, "lost_race")
	return &domain.RunResult{Snapshot: winner, State: domain.RunStateCommitted}, nil
}

func (s *Service) List(ctx context.Context, from, to civil.Date) ([]domain.Snapshot, error) {
	if err := metricdate.RequireRange(from, to); err != nil {
		return nil, err
	}
	snapshots, err := s.repo.ListRange(ctx, s.db, from.String(), to.String())
	if err != nil {
		return nil, errkind.Upstream("dailymetric.list", err)
	}
	return snapshots, nil
}

// Dedup keeps the newest row per date and removes the rest, one transaction
// per date, then ensures the unique index exists.
func (s *Service) Dedup(ctx context.Context, opts domain.DedupOptions) (*domain.DedupReport, error) {
	dates, err := s.repo.DuplicateDates(ctx, s.db)
	if err != nil {
		return nil, errkind.Upstream("dailymetric.duplicate_dates", err)
	}

	report := &domain.DedupReport{DryRun: opts.DryRun, Dates: make([]domain.DedupDate, 0, len(dates))}
	var errs []error
	for _, metricDate := range dates {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		entry, err := s.dedupDate(ctx, metricDate, opts.DryRun)
		if err != nil {
			s.log.Warn("dedup failed", zap.String("metric_date", metricDate), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", metricDate, err))
			continue
		}
		report.Dates = append(report.Dates, entry)
		report.RowsRemoved += len(entry.Removed)
	}

	if len(errs) > 0 {
		return report, errors.Join(errs...)
	}
	if opts.DryRun {
		return report, nil
	}

	if err := s.repo.EnsureDateIndex(ctx, s.db); err != nil {
		return report, errkind.Upstream("dailymetric.ensure_index", err)
	}
	report.ConstraintEnsured = true

	s.log.Info("dedup finished",
		zap.Int("dates", len(report.Dates)),
		zap.Int("rows_removed", report.RowsRemoved),
	)
	return report, nil
}

func (s *Service) dedupDate(ctx context.Context, metricDate string, dryRun bool) (domain.DedupDate, error) {
	entry := domain.DedupDate{MetricDate: metricDate}

	plan := func(tx *gorm.DB) ([]snowflake.ID, error) {
		rows, err := s.repo.ListByDate(ctx, tx, metricDate)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return nil, nil
		}
		entry.Kept = rows[0].ID
		ids := make([]snowflake.ID, 0, len(rows)-1)
		for _, row := range rows[1:] {
			ids = append(ids, row.ID)
		}
		return ids, nil
	}

	if dryRun {
		ids, err := plan(s.db)
		entry.Removed = ids
		return entry, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ids, err := plan(tx)
		if err != nil {
			return err
		}
		if _, err := s.repo.DeleteByIDs(ctx, tx, ids); err != nil {
			return err
		}
		entry.Removed = ids
		return nil
	})
	return entry, err
}
