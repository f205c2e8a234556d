package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang-sql/civil"
	"github.com/smallbiznis/pulse/internal/clock"
	"github.com/smallbiznis/pulse/internal/config"
	"github.com/smallbiznis/pulse/internal/errkind"
	"github.com/smallbiznis/pulse/internal/metricdate"
	obslogger "github.com/smallbiznis/pulse/internal/observability/logger"
	"github.com/smallbiznis/pulse/internal/observability/metrics"
	"github.com/smallbiznis/pulse/internal/productivity/domain"
	sessiondomain "github.com/smallbiznis/pulse/internal/session/domain"
	"github.com/smallbiznis/pulse/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const defaultBatchSize = 200

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Repo        domain.Repository
	Events      domain.EventSource
	Users       domain.UserSource
	SessionRepo sessiondomain.Repository
	Scoring     *config.ScoringConfigHolder
	Clock       clock.Clock
	Cfg         config.Config
	Metrics     *metrics.Metrics `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	repo        domain.Repository
	events      domain.EventSource
	users       domain.UserSource
	sessionRepo sessiondomain.Repository
	scoring     *config.ScoringConfigHolder
	clock       clock.Clock
	loc         *time.Location
	metrics     *metrics.Metrics
	batchSize   int
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("productivity.service"),
		genID:       p.GenID,
		repo:        p.Repo,
		events:      p.Events,
		users:       p.Users,
		sessionRepo: p.SessionRepo,
		scoring:     p.Scoring,
		clock:       p.Clock,
		loc:         p.Cfg.Location(),
		metrics:     p.Metrics,
		batchSize:   defaultBatchSize,
	}
}

func (s *Service) CalculateForUser(ctx context.Context, userID string, date civil.Date) (*domain.Record, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, errkind.Invalid(domain.ErrInvalidUser.Error())
	}
	if err := metricdate.RequireCompleted(date, s.clock.Now(), s.loc); err != nil {
		return nil, err
	}

	from, to := metricdate.Bounds(date, s.loc)
	inputs, err := s.gatherInputs(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}

	scoring := s.scoring.Get()
	record := &domain.Record{
		ID:                 s.genID.Generate(),
		UserID:             userID,
		ActivityDate:       date.String(),
		Score:              domain.Score(inputs, scoring.Weights, scoring.MaxScore),
		SessionCount:       inputs.SessionCount,
		ActiveMinutes:      inputs.ActiveMinutes,
		MessageCount:       inputs.Messages,
		TaskCreatedCount:   inputs.TasksCreated,
		TaskCompletedCount: inputs.TasksCompleted,
		DocumentCount:      inputs.Documents,
		Weights:            datatypes.NewJSONType(scoring.Weights),
		ComputedAt:         s.clock.Now().UTC(),
	}

	if err := s.repo.Upsert(ctx, s.db, record); err != nil {
		return nil, errkind.Upstream("productivity.upsert", err)
	}

	stored, err := s.repo.FindByUserDate(ctx, s.db, userID, record.ActivityDate)
	if err != nil {
		return nil, errkind.Upstream("productivity.find", err)
	}
	if stored != nil {
		record.ID = stored.ID
	}
	return record, nil
}

func (s *Service) gatherInputs(ctx context.Context, userID string, from, to time.Time) (domain.Inputs, error) {
	counts, err := s.events.CountByType(ctx, s.db, userID, from, to)
	if err != nil {
		return domain.Inputs{}, errkind.Upstream("productivity.events", err)
	}
	sessions, err := s.sessionRepo.ListOverlapping(ctx, s.db, userID, from, to)
	if err != nil {
		return domain.Inputs{}, errkind.Upstream("productivity.sessions", err)
	}

	var active time.Duration
	for _, session := range sessions {
		active += session.Overlap(from, to)
	}

	return domain.Inputs{
		SessionCount:   int64(len(sessions)),
		ActiveMinutes:  domain.Round2(active.Minutes()),
		Messages:       counts[domain.EventMessageSent],
		TasksCreated:   counts[domain.EventTaskCreated],
		TasksCompleted: counts[domain.EventTaskCompleted],
		Documents:      counts[domain.EventDocumentUploaded],
	}, nil
}

func (s *Service) CalculateForAllUsers(ctx context.Context, date *civil.Date) (*domain.BatchResult, error) {
	target := metricdate.Resolve(date, s.clock.Now(), s.loc)
	if err := metricdate.RequireCompleted(target, s.clock.Now(), s.loc); err != nil {
		return nil, err
	}

	result := &domain.BatchResult{Date: target.String(), Failures: []domain.UserFailure{}}
	log := obslogger.WithMetricDate(obslogger.WithContext(ctx, s.log), result.Date)

	after := ""
	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		ids, err := s.users.ListUserIDs(ctx, s.db, after, s.batchSize)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return result, ctxErr
			}
			return result, errkind.Upstream("productivity.users", err)
		}

		for _, userID := range ids {
			if err := ctx.Err(); err != nil {
				log.Warn("productivity fan-out interrupted",
					zap.Int("processed", result.Processed),
					zap.Int("failed", len(result.Failures)),
					zap.Error(err),
				)
				return result, err
			}

			if _, err := s.CalculateForUser(ctx, userID, target); err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return result, ctxErr
				}
				log.Warn("productivity user failed", zap.String("user_id", userID), zap.Error(err))
				s.metrics.RecordProductivityRecord(ctx, "failed")
				result.Failures = append(result.Failures, domain.UserFailure{
					UserID: userID,
					Reason: failureReason(err),
				})
				continue
			}
			s.metrics.RecordProductivityRecord(ctx, "ok")
			result.Processed++
		}

		if len(ids) < s.batchSize {
			break
		}
		after = ids[len(ids)-1]
	}

	log.Info("productivity fan-out finished",
		zap.Int("processed", result.Processed),
		zap.Int("failed", len(result.Failures)),
	)
	return result, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (*domain.ListResponse, error) {
	if !req.Date.IsValid() {
		return nil, errkind.Invalid("date is required")
	}
	cursor, err := pagination.DecodeCursor(req.PageToken)
	if err != nil {
		return nil, errkind.Invalid(err.Error())
	}

	limit := req.Limit()
	records, err := s.repo.ListByDate(ctx, s.db, req.Date.String(), strings.TrimSpace(req.UserID), cursor.ID, limit+1)
	if err != nil {
		return nil, errkind.Upstream("productivity.list", err)
	}

	page, info, err := pagination.BuildCursorPageInfo(records, limit, func(r domain.Record) string { return r.UserID })
	if err != nil {
		return nil, err
	}
	if page == nil {
		page = []domain.Record{}
	}
	return &domain.ListResponse{Records: page, PageInfo: info}, nil
}

// failureReason keeps internal error text out of batch responses.
func failureReason(err error) string {
	switch {
	case errors.Is(err, errkind.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, errkind.ErrUpstream):
		return "upstream_failure"
	default:
		return "internal_error"
	}
}
