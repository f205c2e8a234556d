package scheduler

import (
	"context"
	"time"

	auditdomain "github.com/smallbiznis/pulse/internal/audit/domain"
	obscontext "github.com/smallbiznis/pulse/internal/observability/context"
	obslogger "github.com/smallbiznis/pulse/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/pulse/internal/observability/metrics"
	"go.uber.org/zap"
)

type jobRun struct {
	job            string
	runID          string
	startedAt      time.Time
	processedCount int
	errorCount     int
	metricDate     string
}

type jobRunKey struct{}

func (r *jobRun) AddProcessed(count int) {
	if r == nil || count <= 0 {
		return
	}
	r.processedCount += count
}

func (r *jobRun) AddErrors(count int) {
	if r == nil || count <= 0 {
		return
	}
	r.errorCount += count
}

func (s *Scheduler) ensureJobRun(ctx context.Context, job string) (context.Context, *jobRun, bool) {
	if ctx == nil {
		ctx = context.Background()
	}
	if existing := jobRunFromContext(ctx); existing != nil {
		return ctx, existing, false
	}
	run := &jobRun{
		job:       job,
		runID:     s.genID.Generate().String(),
		startedAt: s.clock.Now(),
	}
	ctx = context.WithValue(ctx, jobRunKey{}, run)
	if actorType, _ := obscontext.ActorFromContext(ctx); actorType == "" {
		ctx = obscontext.WithActor(ctx, obscontext.ActorTypeScheduler, "scheduler")
	}
	return ctx, run, true
}

func jobRunFromContext(ctx context.Context) *jobRun {
	if ctx == nil {
		return nil
	}
	if run, ok := ctx.Value(jobRunKey{}).(*jobRun); ok {
		return run
	}
	return nil
}

func (s *Scheduler) logger(ctx context.Context) *zap.Logger {
	return obslogger.WithContext(ctx, s.log)
}

func (s *Scheduler) logJobStart(ctx context.Context, run *jobRun) {
	if run == nil {
		return
	}
	obslogger.WithJob(s.logger(ctx), run.job, run.runID).Info("scheduler.job.start")
}

func (s *Scheduler) logJobFinish(ctx context.Context, run *jobRun, err error) {
	if run == nil {
		return
	}
	fields := []zap.Field{
		zap.Int64("duration_ms", s.clock.Now().Sub(run.startedAt).Milliseconds()),
		zap.Int("processed_count", run.processedCount),
		zap.Int("error_count", run.errorCount),
	}
	if err != nil {
		fields = append(fields,
			zap.String("error_type", obsmetrics.ClassifySchedulerJobReason(err)),
			zap.Bool("retryable", obsmetrics.IsSchedulerErrorRetryable(err)),
			zap.Error(err),
		)
	}
	log := obslogger.WithJob(s.logger(ctx), run.job, run.runID)
	if run.errorCount > 0 || err != nil {
		log.Warn("scheduler.job.finish", fields...)
		return
	}
	log.Info("scheduler.job.finish", fields...)
}

// auditJobRun writes the run outcome to the audit log. A failed write is
// logged and never fails the job.
func (s *Scheduler) auditJobRun(ctx context.Context, run *jobRun, err error) {
	if s.audit == nil || run == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = obsmetrics.ClassifySchedulerJobReason(err)
	}
	metadata := map[string]any{
		"run_id":          run.runID,
		"outcome":         outcome,
		"processed_count": run.processedCount,
		"error_count":     run.errorCount,
		"duration_ms":     s.clock.Now().Sub(run.startedAt).Milliseconds(),
	}
	if run.metricDate != "" {
		metadata["metric_date"] = run.metricDate
	}
	job := run.job
	// the job context may already be past its deadline
	auditCtx := context.WithoutCancel(ctx)
	if auditErr := s.audit.AuditLog(auditCtx, "", nil, auditdomain.ActionJobRun, auditdomain.TargetTypeJob, &job, metadata); auditErr != nil {
		s.logger(ctx).Warn("scheduler.job.audit_failed", zap.String("job", run.job), zap.Error(auditErr))
	}
}
