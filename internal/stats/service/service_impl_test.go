package service

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/kredible/internal/clock"
	"github.com/smallbiznis/kredible/internal/config"
	plandomain "github.com/smallbiznis/kredible/internal/plan/domain"
	planrepository "github.com/smallbiznis/kredible/internal/plan/repository"
	planservice "github.com/smallbiznis/kredible/internal/plan/service"
	platformdomain "github.com/smallbiznis/kredible/internal/platform/domain"
	platformrepository "github.com/smallbiznis/kredible/internal/platform/repository"
	platformservice "github.com/smallbiznis/kredible/internal/platform/service"
	querylogdomain "github.com/smallbiznis/kredible/internal/querylog/domain"
	querylogrepository "github.com/smallbiznis/kredible/internal/querylog/repository"
	querylogservice "github.com/smallbiznis/kredible/internal/querylog/service"
	statsdomain "github.com/smallbiznis/kredible/internal/stats/domain"
	"github.com/smallbiznis/kredible/internal/testutil"
	userdomain "github.com/smallbiznis/kredible/internal/user/domain"
	userrepository "github.com/smallbiznis/kredible/internal/user/repository"
	userservice "github.com/smallbiznis/kredible/internal/user/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	svc       statsdomain.Service
	platforms platformdomain.Service
	queryLogs querylogdomain.Service
	clock     *clock.FakeClock
}

func setup(t *testing.T) fixture {
	t.Helper()
	db := testutil.NewDB(t,
		&platformdomain.Platform{},
		&plandomain.Plan{},
		&querylogdomain.QueryLog{},
		&userdomain.User{},
	)
	node := testutil.MustNode(t)
	clk := testutil.FixedClock()
	catalog := config.NewStaticPlanCatalogHolder(config.DefaultPlanCatalog())
	log := zap.NewNop()

	queryLogs := querylogservice.New(querylogservice.Params{
		Log: log, GenID: node, Clock: clk, Repo: querylogrepository.Provide(db),
	})
	plans := planservice.New(planservice.Params{
		Catalog: catalog, Log: log, GenID: node, Clock: clk,
		Repo: planrepository.Provide(db), QueryLogs: queryLogs,
	})
	platforms := platformservice.New(platformservice.Params{
		Catalog: catalog, Log: log, GenID: node, Clock: clk,
		Repo: platformrepository.Provide(db), Plans: plans,
	})
	users := userservice.New(userservice.Params{
		Log: log, GenID: node, Clock: clk, Repo: userrepository.Provide(db),
	})

	svc := New(Params{
		Log:       log,
		Clock:     clk,
		Catalog:   catalog,
		Platforms: platforms,
		Plans:     plans,
		QueryLogs: queryLogs,
		Users:     users,
	})
	return fixture{svc: svc, platforms: platforms, queryLogs: queryLogs, clock: clk}
}

func (f fixture) createPlatform(t *testing.T, name, planType string) string {
	t.Helper()
	resp, err := f.platforms.Create(context.Background(), platformdomain.CreateRequest{
		Name:         name,
		ContactEmail: "ops@" + name + ".io",
		PlanType:     planType,
	})
	require.NoError(t, err)
	return resp.ID
}

func (f fixture) logQueries(t *testing.T, platformID string, n int, at time.Time) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := f.queryLogs.Record(context.Background(), querylogdomain.RecordRequest{
			PlatformID:    platformID,
			WalletAddress: "GWALLET",
			Timestamp:     at,
		})
		require.NoError(t, err)
	}
}

func TestGlobalStats(t *testing.T) {
	f := setup(t)
	acme := f.createPlatform(t, "acme", config.PlanBasic)
	f.createPlatform(t, "globex", config.PlanPremium)
	f.logQueries(t, acme, 3, f.clock.Now())

	stats, err := f.svc.Global(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.TotalPlatforms)
	assert.EqualValues(t, 3, stats.TotalQueries)
	assert.Zero(t, stats.TotalUsers)
	assert.Len(t, stats.Platforms, 2)
}

func TestPlatformStats(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	acme := f.createPlatform(t, "acme", config.PlanBasic)
	f.logQueries(t, acme, 250, f.clock.Now())

	stats, err := f.svc.Platform(ctx, acme)
	require.NoError(t, err)
	assert.EqualValues(t, 250, stats.TotalQueries)
	assert.Len(t, stats.Queries, statsdomain.RecentQueryLimit)
	require.NotNil(t, stats.Usage)
	assert.EqualValues(t, 25, stats.Usage.UsagePercentage)

	_, err = f.svc.Platform(ctx, "missing")
	assert.ErrorIs(t, err, platformdomain.ErrNotFound)
}

func TestUsageStats(t *testing.T) {
	f := setup(t)
	acme := f.createPlatform(t, "acme", config.PlanBasic)
	globex := f.createPlatform(t, "globex", config.PlanEnterprise)
	f.createPlatform(t, "initech", config.PlanPremium)

	f.logQueries(t, acme, 2, f.clock.Now().Add(-48*time.Hour))
	f.logQueries(t, acme, 3, f.clock.Now().Add(-time.Hour))
	f.logQueries(t, globex, 2, f.clock.Now())

	usage, err := f.svc.Usage(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 7, usage.TotalQueries)
	assert.EqualValues(t, 3, usage.TotalPlatforms)
	assert.EqualValues(t, 3, usage.ActivePlatforms)
	assert.EqualValues(t, 5, usage.QueriesLast24h)
	assert.InDelta(t, 2.33, usage.AverageQueriesPerPlatform, 0.0001)

	byID := map[string]statsdomain.PlatformUsage{}
	for _, row := range usage.Platforms {
		byID[row.PlatformID] = row
	}
	assert.EqualValues(t, 5, byID[acme].UsedQueries)
	assert.EqualValues(t, 1000, byID[acme].MaxQueries)
	assert.EqualValues(t, 1, byID[acme].UsagePercentage)
	assert.EqualValues(t, 100000, byID[globex].MaxQueries)
}

func TestUsageStatsEmpty(t *testing.T) {
	f := setup(t)
	usage, err := f.svc.Usage(context.Background())
	require.NoError(t, err)
	assert.Zero(t, usage.AverageQueriesPerPlatform)
	assert.Empty(t, usage.Platforms)
}

func TestRevenueStats(t *testing.T) {
	f := setup(t)
	f.createPlatform(t, "acme", config.PlanBasic)
	f.createPlatform(t, "globex", config.PlanBasic)
	f.createPlatform(t, "initech", config.PlanEnterprise)

	revenue, err := f.svc.Revenue(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 1197.0, revenue.TotalRevenue, 0.001)
	assert.InDelta(t, 198.0, revenue.RevenueByPlan[config.PlanBasic], 0.001)
	assert.InDelta(t, 0.0, revenue.RevenueByPlan[config.PlanPremium], 0.001)
	assert.InDelta(t, 999.0, revenue.RevenueByPlan[config.PlanEnterprise], 0.001)
	assert.EqualValues(t, 3, revenue.PlatformCount)
}
