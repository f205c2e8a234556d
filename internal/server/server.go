package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	activeuserdomain "github.com/smallbiznis/pulse/internal/activeuser/domain"
	auditdomain "github.com/smallbiznis/pulse/internal/audit/domain"
	authdomain "github.com/smallbiznis/pulse/internal/auth/domain"
	"github.com/smallbiznis/pulse/internal/auth/session"
	"github.com/smallbiznis/pulse/internal/authorization"
	"github.com/smallbiznis/pulse/internal/cache"
	"github.com/smallbiznis/pulse/internal/clock"
	"github.com/smallbiznis/pulse/internal/config"
	dailymetricdomain "github.com/smallbiznis/pulse/internal/dailymetric/domain"
	"github.com/smallbiznis/pulse/internal/jobauth"
	"github.com/smallbiznis/pulse/internal/observability"
	obsmiddleware "github.com/smallbiznis/pulse/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/pulse/internal/observability/metrics"
	obstracing "github.com/smallbiznis/pulse/internal/observability/tracing"
	productivitydomain "github.com/smallbiznis/pulse/internal/productivity/domain"
	"github.com/smallbiznis/pulse/internal/ratelimit"
	"github.com/smallbiznis/pulse/internal/scheduler"
	sessiondomain "github.com/smallbiznis/pulse/internal/session/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	if httpMetrics != nil {
		r.Use(httpMetrics.GinMiddleware())
	}
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine           *gin.Engine
	cfg              config.Config
	log              *zap.Logger
	clock            clock.Clock
	authn            authdomain.Authenticator
	authzSvc         authorization.Service
	sessions         *session.Manager
	heartbeatSvc     sessiondomain.Service
	activeUserSvc    activeuserdomain.Service
	snapshotSvc      dailymetricdomain.Service
	productivitySvc  productivitydomain.Service
	scheduler        *scheduler.Scheduler
	jobVerifier      jobauth.Verifier
	auditSvc         auditdomain.Service
	overviewCache    cache.OverviewCache
	heartbeatLimiter *ratelimit.HeartbeatLimiter
	obsMetrics       *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin              *gin.Engine
	Cfg              config.Config
	Log              *zap.Logger
	Clock            clock.Clock
	Authn            authdomain.Authenticator
	AuthzSvc         authorization.Service
	Sessions         *session.Manager
	HeartbeatSvc     sessiondomain.Service
	ActiveUserSvc    activeuserdomain.Service
	SnapshotSvc      dailymetricdomain.Service
	ProductivitySvc  productivitydomain.Service
	Scheduler        *scheduler.Scheduler
	JobVerifier      jobauth.Verifier
	AuditSvc         auditdomain.Service         `optional:"true"`
	OverviewCache    cache.OverviewCache         `optional:"true"`
	HeartbeatLimiter *ratelimit.HeartbeatLimiter `optional:"true"`
	ObsMetrics       *obsmetrics.Metrics         `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:           p.Gin,
		cfg:              p.Cfg,
		log:              p.Log.Named("http.server"),
		clock:            p.Clock,
		authn:            p.Authn,
		authzSvc:         p.AuthzSvc,
		sessions:         p.Sessions,
		heartbeatSvc:     p.HeartbeatSvc,
		activeUserSvc:    p.ActiveUserSvc,
		snapshotSvc:      p.SnapshotSvc,
		productivitySvc:  p.ProductivitySvc,
		scheduler:        p.Scheduler,
		jobVerifier:      p.JobVerifier,
		auditSvc:         p.AuditSvc,
		overviewCache:    p.OverviewCache,
		heartbeatLimiter: p.HeartbeatLimiter,
		obsMetrics:       p.ObsMetrics,
	}

	svc.registerAPIRoutes()
	svc.registerAdminRoutes()
	svc.registerInternalRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	activity := api.Group("/activity", s.AuthRequired())
	{
		activity.POST("/heartbeat", s.RecordHeartbeat)
	}
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/admin")
	admin.Use(s.AuthRequired())

	// -------- Activity metrics --------
	metrics := admin.Group("/metrics", s.authorizeAction(authorization.ObjectActivityMetrics, authorization.ActionView))
	{
		metrics.GET("/active-users", s.GetActiveUsers)
		metrics.GET("/snapshots", s.ListSnapshots)
	}

	// -------- Productivity --------
	admin.GET("/productivity",
		s.authorizeAction(authorization.ObjectProductivity, authorization.ActionView),
		s.ListProductivity,
	)

	// -------- Audit --------
	if s.auditSvc != nil {
		admin.GET("/audit-logs",
			s.authorizeAction(authorization.ObjectAuditLogs, authorization.ActionView),
			s.ListAuditLogs,
		)
	}
}

func (s *Server) registerInternalRoutes() {
	jobs := s.engine.Group("/internal/jobs", s.SchedulerAuthRequired())
	{
		jobs.POST("/daily-snapshot", s.TriggerDailySnapshot)
		jobs.POST("/productivity", s.TriggerProductivity)
	}
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
