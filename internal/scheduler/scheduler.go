package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang-sql/civil"
	auditdomain "github.com/smallbiznis/pulse/internal/audit/domain"
	"github.com/smallbiznis/pulse/internal/clock"
	dailymetricdomain "github.com/smallbiznis/pulse/internal/dailymetric/domain"
	"github.com/smallbiznis/pulse/internal/errkind"
	obsmetrics "github.com/smallbiznis/pulse/internal/observability/metrics"
	productivitydomain "github.com/smallbiznis/pulse/internal/productivity/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log             *zap.Logger
	GenID           *snowflake.Node
	Clock           clock.Clock
	SnapshotSvc     dailymetricdomain.Service
	ProductivitySvc productivitydomain.Service
	Config          Config             `optional:"true"`
	Audit           auditdomain.Service `optional:"true"`
}

// Scheduler runs the batch jobs. Both the HTTP trigger and the optional
// in-process loop go through it so every run is logged and counted the
// same way.
type Scheduler struct {
	log             *zap.Logger
	cfg             Config
	genID           *snowflake.Node
	clock           clock.Clock
	snapshotSvc     dailymetricdomain.Service
	productivitySvc productivitydomain.Service
	audit           auditdomain.Service
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.GenID == nil || p.Clock == nil || p.SnapshotSvc == nil || p.ProductivitySvc == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:             p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:             p.Config.withDefaults(),
		genID:           p.GenID,
		clock:           p.Clock,
		snapshotSvc:     p.SnapshotSvc,
		productivitySvc: p.ProductivitySvc,
		audit:           p.Audit,
	}, nil
}

// runJob applies the job deadline and records run, duration, timeout and
// error signals. Errors are returned to the caller; the run loop decides
// what is fatal.
func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	timeout time.Duration,
	fn func(ctx context.Context, run *jobRun) error,
) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx, run, owner := s.ensureJobRun(ctx, name)
	if owner {
		s.logJobStart(ctx, run)
	}
	schedMetrics := obsmetrics.Scheduler()
	schedMetrics.IncJobRun(name)

	err := fn(ctx, run)
	schedMetrics.ObserveJobDuration(name, s.clock.Now().Sub(start))
	if owner {
		s.logJobFinish(ctx, run, err)
		s.auditJobRun(ctx, run, err)
	}
	if err == nil {
		return nil
	}

	if isTimeout(err) {
		schedMetrics.IncJobTimeout(name)
		s.logger(ctx).Warn("job timed out",
			zap.String("job", name),
			zap.String("run_id", run.runID),
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
	}
	schedMetrics.IncJobError(name, err)
	return fmt.Errorf("%s: %w", name, err)
}

// RunDailySnapshot snapshots date, or yesterday when date is nil.
func (s *Scheduler) RunDailySnapshot(ctx context.Context, date *civil.Date) (*dailymetricdomain.RunResult, error) {
	var result *dailymetricdomain.RunResult
	err := s.runJob(ctx, JobDailySnapshot, s.cfg.SnapshotTimeout, func(ctx context.Context, run *jobRun) error {
		res, err := s.snapshotSvc.Run(ctx, date)
		if err != nil {
			return err
		}
		result = res
		if res.Snapshot != nil {
			run.metricDate = res.Snapshot.MetricDate
		}
		if res.Created {
			run.AddProcessed(1)
			obsmetrics.Scheduler().AddBatchProcessed(JobDailySnapshot, obsmetrics.SchedulerResourceSnapshots, 1)
		}
		return nil
	})
	return result, err
}

// RunProductivity scores every user for date, or yesterday when date is
// nil. When some users fail the result is still returned, together with an
// *errkind.PartialFailure.
func (s *Scheduler) RunProductivity(ctx context.Context, date *civil.Date) (*productivitydomain.BatchResult, error) {
	var result *productivitydomain.BatchResult
	err := s.runJob(ctx, JobProductivity, s.cfg.ProductivityTimeout, func(ctx context.Context, run *jobRun) error {
		res, err := s.productivitySvc.CalculateForAllUsers(ctx, date)
		result = res
		if res != nil {
			run.metricDate = res.Date
			run.AddProcessed(res.Processed)
			run.AddErrors(len(res.Failures))
			obsmetrics.Scheduler().AddBatchProcessed(JobProductivity, obsmetrics.SchedulerResourceUsers, res.Processed)
			obsmetrics.Scheduler().AddBatchFailed(JobProductivity, obsmetrics.SchedulerResourceUsers, len(res.Failures))
		}
		if err != nil {
			return err
		}
		if res.Failed() {
			return partialFailure(res)
		}
		return nil
	})
	return result, err
}

func partialFailure(res *productivitydomain.BatchResult) error {
	failures := make([]errkind.ItemFailure, 0, len(res.Failures))
	for _, f := range res.Failures {
		failures = append(failures, errkind.ItemFailure{Key: f.UserID, Reason: f.Reason})
	}
	return &errkind.PartialFailure{Failures: failures}
}

// RunOnce triggers both jobs for yesterday. A deadline is a soft timeout:
// it is logged and counted but does not fail the pass, since the next pass
// resumes idempotently.
func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error

	if _, jobErr := s.RunDailySnapshot(parent, nil); jobErr != nil && !isTimeout(jobErr) {
		err = errors.Join(err, jobErr)
	}
	if _, jobErr := s.RunProductivity(parent, nil); jobErr != nil && !isTimeout(jobErr) {
		err = errors.Join(err, jobErr)
	}

	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()
	nextRun := s.clock.Now().Add(s.cfg.RunInterval)
	schedMetrics := obsmetrics.Scheduler()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if runLag := s.clock.Now().Sub(nextRun); runLag > 0 {
			schedMetrics.ObserveRunLoopLag(runLag)
		}
		nextRun = nextRun.Add(s.cfg.RunInterval)
	}
}

func isTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}
