package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/kredible/internal/config"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const keyScorePlatform = "kredible:ratelimit:score:%s"

// ScoreLimiter bounds score lookups per platform. It uses the shared redis
// token bucket when redis is configured and per-process limiters otherwise.
type ScoreLimiter struct {
	enabled bool
	rate    float64
	burst   int

	bucket *TokenBucket

	mu    sync.Mutex
	local map[string]*rate.Limiter
}

func NewScoreLimiter(cfg config.Config, client redis.UniversalClient, log *zap.Logger) (*ScoreLimiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return &ScoreLimiter{}, nil
	}
	if limitCfg.ScoreRate <= 0 || limitCfg.ScoreBurst <= 0 {
		return nil, fmt.Errorf("score rate limit must be positive, got rate=%v burst=%d", limitCfg.ScoreRate, limitCfg.ScoreBurst)
	}

	limiter := &ScoreLimiter{
		enabled: true,
		rate:    limitCfg.ScoreRate,
		burst:   limitCfg.ScoreBurst,
		bucket:  NewTokenBucket(client),
		local:   make(map[string]*rate.Limiter),
	}
	backend := "local"
	if limiter.bucket != nil {
		backend = "redis"
	}
	log.Named("ratelimit").Info("score rate limit enabled",
		zap.String("backend", backend),
		zap.Float64("rate", limiter.rate),
		zap.Int("burst", limiter.burst),
	)
	return limiter, nil
}

func (l *ScoreLimiter) Enabled() bool {
	return l != nil && l.enabled
}

func (l *ScoreLimiter) Allow(ctx context.Context, platformID string) (*Result, error) {
	if !l.Enabled() {
		return &Result{Allowed: true}, nil
	}
	platformID = strings.TrimSpace(platformID)
	if l.bucket != nil {
		return l.bucket.Allow(ctx, fmt.Sprintf(keyScorePlatform, platformID), l.rate, l.burst)
	}
	return l.allowLocal(platformID), nil
}

func (l *ScoreLimiter) allowLocal(platformID string) *Result {
	l.mu.Lock()
	limiter, ok := l.local[platformID]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(l.rate), l.burst)
		l.local[platformID] = limiter
	}
	l.mu.Unlock()

	now := time.Now()
	reservation := limiter.ReserveN(now, 1)
	delay := reservation.DelayFrom(now)
	if delay > 0 {
		reservation.CancelAt(now)
		return &Result{Allowed: false, Limit: l.burst, RetryAfter: delay}
	}
	return &Result{
		Allowed:   true,
		Limit:     l.burst,
		Remaining: int(limiter.TokensAt(now)),
	}
}
