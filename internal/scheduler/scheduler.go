package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/robfig/cron/v3"
	"github.com/smallbiznis/kredible/internal/clock"
	obsmetrics "github.com/smallbiznis/kredible/internal/observability/metrics"
	plandomain "github.com/smallbiznis/kredible/internal/plan/domain"
	"github.com/smallbiznis/kredible/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	JobResetQuotas = "reset_quotas"

	resetLockKey = "kredible:scheduler:reset_quotas"

	TriggerCron   = "cron"
	TriggerManual = "manual"
)

var ErrInvalidConfig = errors.New("invalid scheduler config")

type Params struct {
	fx.In

	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Plans   plandomain.Service
	Config  Config              `optional:"true"`
	Locker  *ratelimit.Locker   `optional:"true"`
	Metrics *obsmetrics.Metrics `optional:"true"`
}

// Scheduler runs the monthly quota reset. When a redis locker is available
// only one replica runs each tick.
type Scheduler struct {
	log     *zap.Logger
	cfg     Config
	genID   *snowflake.Node
	clock   clock.Clock
	plans   plandomain.Service
	locker  *ratelimit.Locker
	metrics *obsmetrics.Metrics
	cron    *cron.Cron
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.GenID == nil || p.Clock == nil || p.Plans == nil {
		return nil, ErrInvalidConfig
	}
	cfg := p.Config.withDefaults()
	if _, err := cron.ParseStandard(cfg.ResetSpec); err != nil {
		return nil, fmt.Errorf("%w: reset spec %q: %v", ErrInvalidConfig, cfg.ResetSpec, err)
	}
	return &Scheduler{
		log:     p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:     cfg,
		genID:   p.GenID,
		clock:   p.Clock,
		plans:   p.Plans,
		locker:  p.Locker,
		metrics: p.Metrics,
		cron:    cron.New(cron.WithLocation(time.UTC)),
	}, nil
}

// Start registers the reset job and starts the cron loop.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.cfg.ResetSpec, func() {
		if _, err := s.ResetQuotas(ctx, TriggerCron); err != nil {
			s.log.Error("scheduled quota reset failed", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	s.log.Info("scheduler started", zap.String("reset_spec", s.cfg.ResetSpec))
	return nil
}

// Stop waits for a running job to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ResetQuotas refills every plan to its catalog allowance. It returns the
// number of plans reset, or zero when another replica holds the lock.
func (s *Scheduler) ResetQuotas(parent context.Context, trigger string) (int, error) {
	var reset int
	err := s.runJob(parent, JobResetQuotas, func(ctx context.Context) error {
		if s.locker == nil {
			n, err := s.plans.ResetMonthlyQueries(ctx)
			reset = n
			return err
		}
		ran, err := s.locker.Do(ctx, resetLockKey, s.cfg.LockTTL, func(ctx context.Context) error {
			n, err := s.plans.ResetMonthlyQueries(ctx)
			reset = n
			return err
		})
		if err == nil && !ran {
			s.log.Info("quota reset skipped; lock held elsewhere")
		}
		return err
	})
	s.metrics.RecordPlanReset(parent, trigger, reset)
	return reset, err
}

func (s *Scheduler) runJob(parent context.Context, name string, fn func(ctx context.Context) error) (err error) {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), s.cfg.Timeout)
	defer cancel()

	log := s.log.With(
		zap.String("job", name),
		zap.String("run_id", s.genID.Generate().String()),
	)
	log.Info("job started")

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: panic: %v", name, r)
		}
		elapsed := s.clock.Now().Sub(start)
		if err != nil {
			log.Error("job failed", zap.Duration("duration", elapsed), zap.Error(err))
			return
		}
		log.Info("job finished", zap.Duration("duration", elapsed))
	}()

	if err := fn(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			log.Warn("job timed out", zap.Duration("timeout", s.cfg.Timeout))
		}
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}
