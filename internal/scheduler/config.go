package scheduler

import (
	"strings"
	"time"

	"github.com/smallbiznis/kredible/internal/config"
)

// Config controls the quota reset job.
type Config struct {
	Enabled   bool
	ResetSpec string
	LockTTL   time.Duration
	Timeout   time.Duration
}

func DefaultConfig() Config {
	return Config{
		Enabled:   true,
		ResetSpec: "@monthly",
		LockTTL:   5 * time.Minute,
		Timeout:   2 * time.Minute,
	}
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		Enabled:   cfg.Scheduler.Enabled,
		ResetSpec: cfg.Scheduler.ResetSpec,
		LockTTL:   cfg.Scheduler.LockTTL,
		Timeout:   cfg.Scheduler.Timeout,
	}.withDefaults()
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if strings.TrimSpace(c.ResetSpec) == "" {
		c.ResetSpec = defaults.ResetSpec
	}
	if c.LockTTL <= 0 {
		c.LockTTL = defaults.LockTTL
	}
	if c.Timeout <= 0 {
		c.Timeout = defaults.Timeout
	}
	return c
}
