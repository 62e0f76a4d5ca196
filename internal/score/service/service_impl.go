package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/smallbiznis/kredible/internal/clock"
	obslogger "github.com/smallbiznis/kredible/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/kredible/internal/observability/metrics"
	plandomain "github.com/smallbiznis/kredible/internal/plan/domain"
	querylogdomain "github.com/smallbiznis/kredible/internal/querylog/domain"
	scoredomain "github.com/smallbiznis/kredible/internal/score/domain"
	userdomain "github.com/smallbiznis/kredible/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log       *zap.Logger
	Clock     clock.Clock
	Scorer    scoredomain.Scorer
	Plans     plandomain.Service
	QueryLogs querylogdomain.Service
	Users     userdomain.Service  `optional:"true"`
	Metrics   *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	log       *zap.Logger
	clock     clock.Clock
	scorer    scoredomain.Scorer
	plans     plandomain.Service
	queryLogs querylogdomain.Service
	users     userdomain.Service
	metrics   *obsmetrics.Metrics
}

func New(p Params) scoredomain.Service {
	return &Service{
		log:       p.Log.Named("score.service"),
		clock:     p.Clock,
		scorer:    p.Scorer,
		plans:     p.Plans,
		queryLogs: p.QueryLogs,
		users:     p.Users,
		metrics:   p.Metrics,
	}
}

// Lookup runs quota, scoring and logging in that order. The decrement is not
// rolled back when a later step fails.
func (s *Service) Lookup(ctx context.Context, req scoredomain.LookupRequest) (*scoredomain.Result, error) {
	wallet := strings.TrimSpace(req.WalletAddress)
	if !userdomain.ValidWalletAddress(wallet) {
		return nil, scoredomain.ErrInvalidWalletAddress
	}
	log := obslogger.WithContext(ctx, s.log)

	ok, err := s.plans.DecrementQueries(ctx, req.PlatformID)
	if err != nil {
		s.metrics.RecordScoreLookup(ctx, req.PlanType, obsmetrics.ScoreResultError)
		return nil, err
	}
	if !ok {
		s.metrics.RecordScoreLookup(ctx, req.PlanType, obsmetrics.ScoreResultQuotaExceeded)
		return nil, plandomain.ErrQuotaExceeded
	}

	score, err := s.scorer.Score(ctx, wallet)
	if err != nil {
		log.Warn("scoring failed after quota consumed",
			zap.Bool("quota_consumed", true),
			zap.Error(err),
		)
		s.metrics.RecordScoreLookup(ctx, req.PlanType, obsmetrics.ScoreResultError)
		return nil, err
	}
	score = scoredomain.Clamp(score)

	now := s.clock.Now().UTC()
	if _, err := s.queryLogs.Record(ctx, querylogdomain.RecordRequest{
		PlatformID:    req.PlatformID,
		WalletAddress: wallet,
		Timestamp:     now,
		Score:         &score,
	}); err != nil {
		log.Warn("query log write failed after quota consumed",
			zap.Bool("quota_consumed", true),
			zap.Error(err),
		)
		s.metrics.RecordScoreLookup(ctx, req.PlanType, obsmetrics.ScoreResultError)
		return nil, fmt.Errorf("%w: %v", scoredomain.ErrQueryNotRecorded, err)
	}

	s.recordActivity(ctx, log, req.PlatformID, wallet, score)
	s.metrics.RecordScoreLookup(ctx, req.PlanType, obsmetrics.ScoreResultOK)

	return &scoredomain.Result{
		Score:         score,
		WalletAddress: wallet,
		Timestamp:     now,
	}, nil
}

func (s *Service) recordActivity(ctx context.Context, log *zap.Logger, platformID, wallet string, score int) {
	if s.users == nil {
		return
	}
	user, err := s.users.GetByWalletAddress(ctx, wallet)
	if err != nil {
		log.Warn("score activity lookup failed", zap.Error(err))
		return
	}
	if user == nil {
		return
	}
	if _, err := s.users.AddActivity(ctx, wallet, userdomain.ActivityRequest{
		Type: userdomain.ActivityScoreQuery,
		Details: map[string]any{
			"platformId": platformID,
			"score":      score,
		},
	}); err != nil {
		log.Warn("score activity append failed", zap.Error(err))
	}
}
