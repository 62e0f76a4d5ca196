package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/kredible/internal/auth"
	"github.com/smallbiznis/kredible/internal/config"
	"github.com/smallbiznis/kredible/internal/observability"
	obsmetrics "github.com/smallbiznis/kredible/internal/observability/metrics"
	plandomain "github.com/smallbiznis/kredible/internal/plan/domain"
	planrepository "github.com/smallbiznis/kredible/internal/plan/repository"
	planservice "github.com/smallbiznis/kredible/internal/plan/service"
	platformdomain "github.com/smallbiznis/kredible/internal/platform/domain"
	platformrepository "github.com/smallbiznis/kredible/internal/platform/repository"
	platformservice "github.com/smallbiznis/kredible/internal/platform/service"
	querylogdomain "github.com/smallbiznis/kredible/internal/querylog/domain"
	querylogrepository "github.com/smallbiznis/kredible/internal/querylog/repository"
	querylogservice "github.com/smallbiznis/kredible/internal/querylog/service"
	"github.com/smallbiznis/kredible/internal/ratelimit"
	scoreservice "github.com/smallbiznis/kredible/internal/score/service"
	statsservice "github.com/smallbiznis/kredible/internal/stats/service"
	"github.com/smallbiznis/kredible/internal/testutil"
	userdomain "github.com/smallbiznis/kredible/internal/user/domain"
	userrepository "github.com/smallbiznis/kredible/internal/user/repository"
	userservice "github.com/smallbiznis/kredible/internal/user/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testAdminKey = "admin-s3cret"

var testWallet = "G" + strings.Repeat("A", 55)

type testServer struct {
	db     *gorm.DB
	engine *gin.Engine
}

func newTestServer(t *testing.T, mutate func(*config.Config)) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Config{
		AdminKey:     testAdminKey,
		APIKeyPrefix: platformdomain.DefaultAPIKeyPrefix,
	}
	if mutate != nil {
		mutate(&cfg)
	}

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
		Cfg: cfg, Catalog: catalog, Log: log, GenID: node, Clock: clk,
		Repo: planrepository.Provide(db), QueryLogs: queryLogs,
	})
	platforms := platformservice.New(platformservice.Params{
		Cfg: cfg, Catalog: catalog, Log: log, GenID: node, Clock: clk,
		Repo: platformrepository.Provide(db), Plans: plans,
	})
	users := userservice.New(userservice.Params{
		Log: log, GenID: node, Clock: clk, Repo: userrepository.Provide(db),
	})
	scores := scoreservice.New(scoreservice.Params{
		Log: log, Clock: clk, Scorer: scoreservice.NewRandomScorer(),
		Plans: plans, QueryLogs: queryLogs, Users: users,
	})
	stats := statsservice.New(statsservice.Params{
		Log: log, Clock: clk, Catalog: catalog,
		Platforms: platforms, Plans: plans, QueryLogs: queryLogs, Users: users,
	})
	limiter, err := ratelimit.NewScoreLimiter(cfg, nil, log)
	require.NoError(t, err)
	httpMetrics, err := obsmetrics.NewHTTPMetricsWith(prometheus.NewRegistry())
	require.NoError(t, err)

	srv := NewServer(ServerParams{
		Gin:   NewEngine(observability.Config{LogLevel: "info"}, httpMetrics, clk),
		Cfg:   cfg,
		Clock: clk,
		Validator: auth.NewValidator(auth.Params{
			Cfg: cfg, Log: log, Platforms: platforms, Plans: plans,
		}),
		PlatformSvc:  platforms,
		PlanSvc:      plans,
		UserSvc:      users,
		ScoreSvc:     scores,
		StatsSvc:     stats,
		ScoreLimiter: limiter,
	})
	return &testServer{db: db, engine: srv.Engine()}
}

type response struct {
	Success   bool              `json:"success"`
	Message   string            `json:"message"`
	Error     string            `json:"error"`
	Errors    []ValidationError `json:"errors"`
	Data      json.RawMessage   `json:"data"`
	Timestamp string            `json:"timestamp"`
}

func (ts *testServer) do(t *testing.T, method, path string, body any, headers map[string]string) (*httptest.ResponseRecorder, response) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	ts.engine.ServeHTTP(rec, req)

	var resp response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return rec, resp
}

func (ts *testServer) createPlatform(t *testing.T, name, planType string) platformdomain.Response {
	t.Helper()
	rec, resp := ts.do(t, http.MethodPost, "/platforms", map[string]any{
		"name":         name,
		"contactEmail": "ops@" + name + ".io",
		"planType":     planType,
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var platform platformdomain.Response
	require.NoError(t, json.Unmarshal(resp.Data, &platform))
	return platform
}

func (ts *testServer) issueKey(t *testing.T, platform platformdomain.Response) string {
	t.Helper()
	rec, resp := ts.do(t, http.MethodPost, "/platforms/api-key", map[string]any{
		"platformId":   platform.ID,
		"contactEmail": platform.ContactEmail,
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var key platformdomain.APIKeyResponse
	require.NoError(t, json.Unmarshal(resp.Data, &key))
	return key.APIKey
}

func TestScoreLookupEndToEnd(t *testing.T) {
	ts := newTestServer(t, nil)
	platform := ts.createPlatform(t, "acme", config.PlanBasic)
	key := ts.issueKey(t, platform)
	assert.True(t, strings.HasPrefix(key, platformdomain.DefaultAPIKeyPrefix))

	rec, resp := ts.do(t, http.MethodGet, "/score/"+testWallet, nil, map[string]string{auth.HeaderAPIKey: key})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.Timestamp)

	var result struct {
		Score         int    `json:"score"`
		WalletAddress string `json:"walletAddress"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &result))
	assert.Equal(t, testWallet, result.WalletAddress)
	assert.GreaterOrEqual(t, result.Score, 0)
	assert.LessOrEqual(t, result.Score, 100)

	var logs int64
	require.NoError(t, ts.db.Model(&querylogdomain.QueryLog{}).Where("platform_id = ?", platform.ID).Count(&logs).Error)
	assert.EqualValues(t, 1, logs)

	var plan plandomain.Plan
	require.NoError(t, ts.db.Where("platform_id = ?", platform.ID).First(&plan).Error)
	assert.EqualValues(t, 999, plan.RemainingQueries)
}

func TestScoreRequiresAPIKey(t *testing.T) {
	ts := newTestServer(t, nil)

	rec, resp := ts.do(t, http.MethodGet, "/score/"+testWallet, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, resp.Success)
	assert.Equal(t, "unauthorized", resp.Error)

	rec, _ = ts.do(t, http.MethodGet, "/score/"+testWallet, nil, map[string]string{auth.HeaderAPIKey: "pk_unknown"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestScoreRejectsExhaustedQuota(t *testing.T) {
	ts := newTestServer(t, nil)
	platform := ts.createPlatform(t, "acme", config.PlanBasic)
	key := ts.issueKey(t, platform)

	require.NoError(t, ts.db.Model(&plandomain.Plan{}).
		Where("platform_id = ?", platform.ID).
		Update("remaining_queries", 0).Error)

	rec, resp := ts.do(t, http.MethodGet, "/score/"+testWallet, nil, map[string]string{auth.HeaderAPIKey: key})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "quota_exceeded", resp.Error)
}

func TestScoreRejectsMalformedWallet(t *testing.T) {
	ts := newTestServer(t, nil)
	key := ts.issueKey(t, ts.createPlatform(t, "acme", config.PlanBasic))

	rec, resp := ts.do(t, http.MethodGet, "/score/not-a-wallet", nil, map[string]string{auth.HeaderAPIKey: key})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", resp.Error)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "wallet_address", resp.Errors[0].Field)
}

func TestScoreRateLimited(t *testing.T) {
	ts := newTestServer(t, func(cfg *config.Config) {
		cfg.RateLimit = config.RateLimitConfig{Enabled: true, ScoreRate: 0.001, ScoreBurst: 1}
	})
	key := ts.issueKey(t, ts.createPlatform(t, "acme", config.PlanBasic))
	headers := map[string]string{auth.HeaderAPIKey: key}

	rec, _ := ts.do(t, http.MethodGet, "/score/"+testWallet, nil, headers)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, resp := ts.do(t, http.MethodGet, "/score/"+testWallet, nil, headers)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "rate_limited", resp.Error)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestCreatePlatformConflictAndValidation(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.createPlatform(t, "acme", config.PlanBasic)

	rec, resp := ts.do(t, http.MethodPost, "/platforms", map[string]any{
		"name":         "acme",
		"contactEmail": "other@acme.io",
		"planType":     config.PlanPremium,
	}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "already_exists", resp.Error)

	rec, resp = ts.do(t, http.MethodPost, "/platforms", map[string]any{
		"name":         "globex",
		"contactEmail": "ops@globex.io",
		"planType":     "platinum",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", resp.Error)

	rec, resp = ts.do(t, http.MethodPost, "/platforms", map[string]any{"name": "initech"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotEmpty(t, resp.Errors)
}

func TestCreatePlatformCanRequireAdmin(t *testing.T) {
	ts := newTestServer(t, func(cfg *config.Config) { cfg.PlatformCreateRequiresAdmin = true })
	body := map[string]any{"name": "acme", "contactEmail": "ops@acme.io", "planType": config.PlanBasic}

	rec, _ := ts.do(t, http.MethodPost, "/platforms", body, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = ts.do(t, http.MethodPost, "/platforms", body, map[string]string{auth.HeaderAdminKey: testAdminKey})
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestAPIKeyEmailMismatch(t *testing.T) {
	ts := newTestServer(t, nil)
	platform := ts.createPlatform(t, "acme", config.PlanBasic)

	rec, _ := ts.do(t, http.MethodPost, "/platforms/api-key", map[string]any{
		"platformId":   platform.ID,
		"contactEmail": "intruder@evil.io",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, resp := ts.do(t, http.MethodGet, "/platforms/api-key/"+platform.ID, nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", resp.Error)

	key := ts.issueKey(t, platform)
	rec, resp = ts.do(t, http.MethodGet, "/platforms/api-key/"+platform.ID, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(resp.Data), key)
}

func TestAPIKeyResponseFields(t *testing.T) {
	ts := newTestServer(t, nil)
	platform := ts.createPlatform(t, "acme", config.PlanBasic)

	issue, issued := ts.do(t, http.MethodPost, "/platforms/api-key", map[string]any{
		"platformId":   platform.ID,
		"contactEmail": platform.ContactEmail,
	}, nil)
	require.Equal(t, http.StatusOK, issue.Code, issue.Body.String())
	fetch, fetched := ts.do(t, http.MethodGet, "/platforms/api-key/"+platform.ID, nil, nil)
	require.Equal(t, http.StatusOK, fetch.Code, fetch.Body.String())

	for _, raw := range []json.RawMessage{issued.Data, fetched.Data} {
		var data map[string]any
		require.NoError(t, json.Unmarshal(raw, &data))
		assert.Len(t, data, 3)
		assert.Equal(t, platform.ID, data["platformId"])
		assert.Equal(t, "acme", data["platformName"])
		assert.NotEmpty(t, data["apiKey"])
		assert.NotContains(t, data, "name")
	}
}

func TestPlatformUsage(t *testing.T) {
	ts := newTestServer(t, nil)
	key := ts.issueKey(t, ts.createPlatform(t, "acme", config.PlanBasic))
	headers := map[string]string{auth.HeaderAPIKey: key}

	ts.do(t, http.MethodGet, "/score/"+testWallet, nil, headers)

	rec, resp := ts.do(t, http.MethodGet, "/platforms/usage", nil, headers)
	require.Equal(t, http.StatusOK, rec.Code)

	var usage plandomain.Usage
	require.NoError(t, json.Unmarshal(resp.Data, &usage))
	assert.EqualValues(t, 1000, usage.MaxQueries)
	assert.EqualValues(t, 999, usage.RemainingQueries)
	assert.EqualValues(t, 1, usage.UsedQueries)
}

func TestPlanRoutes(t *testing.T) {
	ts := newTestServer(t, nil)
	admin := map[string]string{auth.HeaderAdminKey: testAdminKey}

	rec, resp := ts.do(t, http.MethodGet, "/plans", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(resp.Data), config.PlanEnterprise)

	rec, resp = ts.do(t, http.MethodGet, "/plans/ghost", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "null", string(resp.Data))

	platform := ts.createPlatform(t, "acme", config.PlanBasic)

	rec, _ = ts.do(t, http.MethodPut, "/plans/"+platform.ID, map[string]any{"planType": config.PlanPremium}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, resp = ts.do(t, http.MethodPut, "/plans/"+platform.ID, map[string]any{"planType": config.PlanPremium}, admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var plan plandomain.Plan
	require.NoError(t, json.Unmarshal(resp.Data, &plan))
	assert.Equal(t, config.PlanPremium, plan.PlanType)

	rec, resp = ts.do(t, http.MethodPost, "/plans/reset", nil, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"plansReset":1}`, string(resp.Data))
}

func TestStatsRequireAdminKey(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.createPlatform(t, "acme", config.PlanBasic)

	for _, path := range []string{"/stats", "/stats/usage", "/stats/revenue", "/stats/platform/x"} {
		rec, resp := ts.do(t, http.MethodGet, path, nil, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
		assert.False(t, resp.Success)

		rec, _ = ts.do(t, http.MethodGet, path, nil, map[string]string{auth.HeaderAdminKey: "wrong"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}

	rec, resp := ts.do(t, http.MethodGet, "/stats", nil, map[string]string{auth.HeaderAdminKey: testAdminKey})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(resp.Data), `"totalPlatforms":1`)
}

func TestUserRoutes(t *testing.T) {
	ts := newTestServer(t, nil)

	rec, resp := ts.do(t, http.MethodGet, "/users/"+testWallet, nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", resp.Error)

	rec, _ = ts.do(t, http.MethodPost, "/users", map[string]any{"walletAddress": testWallet, "name": "Ada"}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec, _ = ts.do(t, http.MethodPost, "/users", map[string]any{"walletAddress": testWallet}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, _ = ts.do(t, http.MethodPost, "/users/"+testWallet+"/documents", map[string]any{
		"type": "passport",
		"url":  "https://files.example.com/passport.pdf",
	}, nil)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec, _ = ts.do(t, http.MethodPost, "/users/"+testWallet+"/activity", map[string]any{
		"type":    "login",
		"details": map[string]any{"ip": "127.0.0.1"},
	}, nil)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec, resp = ts.do(t, http.MethodGet, "/users/"+testWallet+"/activity", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(resp.Data), `"login"`)

	rec, _ = ts.do(t, http.MethodPost, "/users", map[string]any{"walletAddress": "nope"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnknownRouteUsesErrorEnvelope(t *testing.T) {
	ts := newTestServer(t, nil)

	rec, resp := ts.do(t, http.MethodGet, "/nope", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, resp.Success)
	assert.Equal(t, "not_found", resp.Error)
	assert.NotEmpty(t, resp.Timestamp)
}
