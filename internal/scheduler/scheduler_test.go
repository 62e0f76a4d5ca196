package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/kredible/internal/config"
	plandomain "github.com/smallbiznis/kredible/internal/plan/domain"
	planrepository "github.com/smallbiznis/kredible/internal/plan/repository"
	planservice "github.com/smallbiznis/kredible/internal/plan/service"
	"github.com/smallbiznis/kredible/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newPlans(t *testing.T) (plandomain.Service, *gorm.DB) {
	t.Helper()
	db := testutil.NewDB(t, &plandomain.Plan{})
	return planservice.New(planservice.Params{
		Catalog: config.NewStaticPlanCatalogHolder(config.DefaultPlanCatalog()),
		Log:     zap.NewNop(),
		GenID:   testutil.MustNode(t),
		Clock:   testutil.FixedClock(),
		Repo:    planrepository.Provide(db),
	}), db
}

func TestResetQuotasRefillsPlans(t *testing.T) {
	ctx := context.Background()
	plans, db := newPlans(t)
	_, err := plans.CreatePlan(ctx, "p1", config.PlanBasic)
	require.NoError(t, err)
	_, err = plans.CreatePlan(ctx, "p2", config.PlanPremium)
	require.NoError(t, err)
	require.NoError(t, db.Model(&plandomain.Plan{}).Where("1 = 1").Update("remaining_queries", 3).Error)

	sched, err := New(Params{
		Log:   zap.NewNop(),
		GenID: testutil.MustNode(t),
		Clock: testutil.FixedClock(),
		Plans: plans,
	})
	require.NoError(t, err)

	n, err := sched.ResetQuotas(ctx, TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	p1, err := plans.GetPlan(ctx, "p1")
	require.NoError(t, err)
	assert.EqualValues(t, 1000, p1.RemainingQueries)
	p2, err := plans.GetPlan(ctx, "p2")
	require.NoError(t, err)
	assert.EqualValues(t, 10000, p2.RemainingQueries)
}

type plansMock struct {
	mock.Mock
	plandomain.Service
}

func (m *plansMock) ResetMonthlyQueries(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func TestResetQuotasWrapsErrors(t *testing.T) {
	plans := &plansMock{}
	plans.On("ResetMonthlyQueries", mock.Anything).Return(0, assert.AnError)

	sched, err := New(Params{
		Log:   zap.NewNop(),
		GenID: testutil.MustNode(t),
		Clock: testutil.FixedClock(),
		Plans: plans,
	})
	require.NoError(t, err)

	_, err = sched.ResetQuotas(context.Background(), TriggerCron)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), JobResetQuotas)
	plans.AssertExpectations(t)
}

func TestResetQuotasRecoversPanic(t *testing.T) {
	plans := &plansMock{}
	plans.On("ResetMonthlyQueries", mock.Anything).Run(func(mock.Arguments) { panic("boom") })

	sched, err := New(Params{
		Log:   zap.NewNop(),
		GenID: testutil.MustNode(t),
		Clock: testutil.FixedClock(),
		Plans: plans,
	})
	require.NoError(t, err)

	_, err = sched.ResetQuotas(context.Background(), TriggerCron)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic")
}

func TestNewValidatesResetSpec(t *testing.T) {
	plans, _ := newPlans(t)
	_, err := New(Params{
		Log:    zap.NewNop(),
		GenID:  testutil.MustNode(t),
		Clock:  testutil.FixedClock(),
		Plans:  plans,
		Config: Config{ResetSpec: "every tuesday"},
	})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = New(Params{Log: zap.NewNop()})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestStartStop(t *testing.T) {
	plans, _ := newPlans(t)
	sched, err := New(Params{
		Log:    zap.NewNop(),
		GenID:  testutil.MustNode(t),
		Clock:  testutil.FixedClock(),
		Plans:  plans,
		Config: Config{ResetSpec: "@monthly"},
	})
	require.NoError(t, err)

	require.NoError(t, sched.Start(context.Background()))
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, sched.Stop(ctx))
}

func TestProvideConfigDefaults(t *testing.T) {
	cfg := ProvideConfig(config.Config{})
	assert.Equal(t, "@monthly", cfg.ResetSpec)
	assert.Equal(t, 5*time.Minute, cfg.LockTTL)
	assert.Equal(t, 2*time.Minute, cfg.Timeout)
}
