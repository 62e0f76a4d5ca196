package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/kredible/internal/auth"
	"github.com/smallbiznis/kredible/internal/clock"
	"github.com/smallbiznis/kredible/internal/config"
	"github.com/smallbiznis/kredible/internal/observability"
	obsmiddleware "github.com/smallbiznis/kredible/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/kredible/internal/observability/metrics"
	obstracing "github.com/smallbiznis/kredible/internal/observability/tracing"
	"github.com/smallbiznis/kredible/internal/plan"
	plandomain "github.com/smallbiznis/kredible/internal/plan/domain"
	"github.com/smallbiznis/kredible/internal/platform"
	platformdomain "github.com/smallbiznis/kredible/internal/platform/domain"
	"github.com/smallbiznis/kredible/internal/querylog"
	"github.com/smallbiznis/kredible/internal/ratelimit"
	"github.com/smallbiznis/kredible/internal/scheduler"
	"github.com/smallbiznis/kredible/internal/score"
	scoredomain "github.com/smallbiznis/kredible/internal/score/domain"
	"github.com/smallbiznis/kredible/internal/stats"
	statsdomain "github.com/smallbiznis/kredible/internal/stats/domain"
	"github.com/smallbiznis/kredible/internal/user"
	userdomain "github.com/smallbiznis/kredible/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module wires the HTTP API on top of the domain services. The caller is
// expected to supply config, clock, observability, the database and a
// snowflake node.
var Module = fx.Module("http.server",
	querylog.Module,
	plan.Module,
	platform.Module,
	user.Module,
	score.Module,
	stats.Module,
	auth.Module,
	ratelimit.Module,
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics, clk clock.Clock) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware(clk))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": timestamp(clk.Now()),
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics, clk clock.Clock) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics, clk)
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
	engine       *gin.Engine
	cfg          config.Config
	clock        clock.Clock
	validator    *auth.Validator
	platformSvc  platformdomain.Service
	planSvc      plandomain.Service
	userSvc      userdomain.Service
	scoreSvc     scoredomain.Service
	statsSvc     statsdomain.Service
	scoreLimiter *ratelimit.ScoreLimiter
	obsMetrics   *obsmetrics.Metrics

	scheduler *scheduler.Scheduler
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	Clock        clock.Clock
	Validator    *auth.Validator
	PlatformSvc  platformdomain.Service
	PlanSvc      plandomain.Service
	UserSvc      userdomain.Service
	ScoreSvc     scoredomain.Service
	StatsSvc     statsdomain.Service
	ScoreLimiter *ratelimit.ScoreLimiter
	ObsMetrics   *obsmetrics.Metrics `optional:"true"`

	Scheduler *scheduler.Scheduler `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		clock:        p.Clock,
		validator:    p.Validator,
		platformSvc:  p.PlatformSvc,
		planSvc:      p.PlanSvc,
		userSvc:      p.UserSvc,
		scoreSvc:     p.ScoreSvc,
		statsSvc:     p.StatsSvc,
		scoreLimiter: p.ScoreLimiter,
		obsMetrics:   p.ObsMetrics,
		scheduler:    p.Scheduler,
	}

	svc.registerPlatformRoutes()
	svc.registerPlanRoutes()
	svc.registerScoreRoutes()
	svc.registerStatsRoutes()
	svc.registerUserRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerPlatformRoutes() {
	platforms := s.engine.Group("/platforms")

	platforms.POST("", s.OptionalAdminKey(s.cfg.PlatformCreateRequiresAdmin), s.CreatePlatform)
	platforms.GET("/by-owner", s.ListPlatformsByOwner)
	platforms.GET("/usage", s.APIKeyRequired(), s.GetPlatformUsage)
	platforms.POST("/api-key", s.GetAPIKey)
	platforms.GET("/api-key/:platformId", s.GetAPIKeyByPlatformID)
	platforms.PATCH("/:platformId", s.AdminKeyRequired(), s.UpdatePlatform)
}

func (s *Server) registerPlanRoutes() {
	plans := s.engine.Group("/plans")

	plans.GET("", s.ListPlanCatalog)
	plans.POST("", s.AdminKeyRequired(), s.CreatePlan)
	plans.POST("/reset", s.AdminKeyRequired(), s.ResetPlans)
	plans.GET("/:platformId", s.GetPlan)
	plans.PUT("/:platformId", s.AdminKeyRequired(), s.ChangePlan)
}

func (s *Server) registerScoreRoutes() {
	s.engine.GET("/score/:walletAddress", s.APIKeyRequired(), s.ScoreRateLimit(), s.GetScore)
}

func (s *Server) registerStatsRoutes() {
	stats := s.engine.Group("/stats", s.AdminKeyRequired())

	stats.GET("", s.GetGlobalStats)
	stats.GET("/usage", s.GetUsageStats)
	stats.GET("/revenue", s.GetRevenueStats)
	stats.GET("/platform/:platformId", s.GetPlatformStats)
}

func (s *Server) registerUserRoutes() {
	users := s.engine.Group("/users")

	users.POST("", s.CreateUser)
	users.GET("/:walletAddress", s.GetUser)
	users.PATCH("/:walletAddress", s.UpdateUser)
	users.POST("/:walletAddress/documents", s.AddUserDocument)
	users.GET("/:walletAddress/activity", s.ListUserActivity)
	users.POST("/:walletAddress/activity", s.AddUserActivity)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
