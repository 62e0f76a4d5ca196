package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// UnlimitedQueries marks a plan tier without a query ceiling.
const UnlimitedQueries int64 = -1

const (
	PlanBasic      = "basic"
	PlanPremium    = "premium"
	PlanEnterprise = "enterprise"
)

// PlanDefinition is one tier of the plan catalog.
type PlanDefinition struct {
	Type       string   `mapstructure:"type" json:"planType"`
	MaxQueries int64    `mapstructure:"maxQueries" json:"maxQueries"`
	Price      float64  `mapstructure:"price" json:"price"`
	Features   []string `mapstructure:"features" json:"features"`
}

func (d PlanDefinition) Unlimited() bool {
	return d.MaxQueries == UnlimitedQueries
}

type PlanCatalog struct {
	Plans []PlanDefinition `mapstructure:"plans"`
}

// Lookup returns the tier for planType. Matching is exact.
func (c PlanCatalog) Lookup(planType string) (PlanDefinition, bool) {
	for _, def := range c.Plans {
		if def.Type == planType {
			return def, true
		}
	}
	return PlanDefinition{}, false
}

func (c PlanCatalog) Types() []string {
	out := make([]string, 0, len(c.Plans))
	for _, def := range c.Plans {
		out = append(out, def.Type)
	}
	return out
}

func DefaultPlanCatalog() PlanCatalog {
	return PlanCatalog{
		Plans: []PlanDefinition{
			{
				Type:       PlanBasic,
				MaxQueries: 1_000,
				Price:      99,
				Features:   []string{"Basic credit score", "1,000 queries per month", "Email support"},
			},
			{
				Type:       PlanPremium,
				MaxQueries: 10_000,
				Price:      299,
				Features:   []string{"Advanced credit score", "10,000 queries per month", "Priority support", "Analytics"},
			},
			{
				Type:       PlanEnterprise,
				MaxQueries: 100_000,
				Price:      999,
				Features:   []string{"Custom credit score", "100,000 queries per month", "Dedicated support", "Advanced analytics", "API access"},
			},
		},
	}
}

// PlanCatalogHolder serves the current catalog and swaps it on file changes.
type PlanCatalogHolder struct {
	current atomic.Value // holds PlanCatalog
}

// NewStaticPlanCatalogHolder wraps a fixed catalog without file watching.
func NewStaticPlanCatalogHolder(catalog PlanCatalog) *PlanCatalogHolder {
	holder := &PlanCatalogHolder{}
	holder.current.Store(catalog)
	return holder
}

func NewPlanCatalogHolder(cfg Config, log *zap.Logger) (*PlanCatalogHolder, error) {
	log = log.Named("config.plans")
	v := viper.New()

	if cfg.PlanCatalogPath != "" {
		v.SetConfigFile(cfg.PlanCatalogPath)
	} else {
		v.SetConfigName("plans")
		v.SetConfigType("yml")
		v.AddConfigPath("/var/lib/kredible/config")
		v.AddConfigPath("/etc/kredible")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("KREDIBLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		fileLoaded = false
		v.SetDefault("plans", DefaultPlanCatalog().Plans)
	}

	var catalog PlanCatalog
	if err := v.Unmarshal(&catalog); err != nil {
		return nil, err
	}
	if err := validatePlanCatalog(catalog); err != nil {
		return nil, err
	}

	holder := NewStaticPlanCatalogHolder(catalog)
	if !fileLoaded {
		log.Info("plan catalog file not found, using defaults", zap.Strings("plans", catalog.Types()))
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated PlanCatalog
		if err := v.Unmarshal(&updated); err != nil {
			log.Warn("plan catalog reload failed", zap.Error(err))
			return
		}
		if err := validatePlanCatalog(updated); err != nil {
			log.Warn("invalid plan catalog ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("plan catalog reloaded", zap.String("file", e.Name), zap.Strings("plans", updated.Types()))
	})

	return holder, nil
}

func (h *PlanCatalogHolder) Get() PlanCatalog {
	return h.current.Load().(PlanCatalog)
}

func validatePlanCatalog(catalog PlanCatalog) error {
	if len(catalog.Plans) == 0 {
		return errors.New("plans cannot be empty")
	}
	seen := make(map[string]struct{}, len(catalog.Plans))
	for _, def := range catalog.Plans {
		if strings.TrimSpace(def.Type) == "" {
			return errors.New("plan type cannot be empty")
		}
		if _, ok := seen[def.Type]; ok {
			return fmt.Errorf("duplicate plan type %q", def.Type)
		}
		seen[def.Type] = struct{}{}
		if def.MaxQueries < UnlimitedQueries {
			return fmt.Errorf("plan %q: maxQueries must be >= -1", def.Type)
		}
		if def.Price < 0 {
			return fmt.Errorf("plan %q: price must be >= 0", def.Type)
		}
	}
	return nil
}
