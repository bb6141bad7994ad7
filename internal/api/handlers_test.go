package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/nondisposable/internal/auth"
	"github.com/ignite/nondisposable/internal/blocklist"
	"github.com/ignite/nondisposable/internal/config"
	"github.com/ignite/nondisposable/internal/domain"
	"github.com/ignite/nondisposable/internal/metrics"
	"github.com/ignite/nondisposable/internal/repository/memory"
	"github.com/ignite/nondisposable/internal/service/disposable"
)

type stubFetcher struct {
	body string
	err  error
}

func (s *stubFetcher) Fetch(context.Context, string) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []byte(s.body), nil
}

type failingStore struct{ err error }

func (f failingStore) ReplaceAll(context.Context, []string) error { return f.err }
func (f failingStore) Contains(context.Context, string) (bool, error) { return false, f.err }
func (f failingStore) List(context.Context, int, int) ([]domain.DisposableDomain, error) {
	return nil, f.err
}
func (f failingStore) Count(context.Context) (int, error) { return 0, f.err }

const adminToken = "test-admin-token"

type testEnv struct {
	handler http.Handler
	store   *memory.DomainStore
	rules   *disposable.RulesHolder
	fetcher *stubFetcher
}

func newTestEnv(t *testing.T, seed ...string) *testEnv {
	t.Helper()
	store := memory.NewDomainStore()
	require.NoError(t, store.Seed(seed...))
	return newTestEnvWithStore(t, store, store)
}

func newTestEnvWithStore(t *testing.T, store disposable.DomainStore, mem *memory.DomainStore) *testEnv {
	t.Helper()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	rules := disposable.NewRulesHolder(domain.DefaultRules())
	fetcher := &stubFetcher{body: "temp.com\ntrash.net\n"}

	checker := disposable.NewChecker(store, rules, m)
	srv := NewServer(config.ServerConfig{Host: "localhost", Port: 0, AllowedOrigins: []string{"http://localhost:8080"}}, Deps{
		Checker:   checker,
		Validator: disposable.NewValidator(checker, rules, nil),
		Refresher: disposable.NewUpdater(store, fetcher, rules, disposable.WithMetrics(m)),
		Store:     store,
		Rules:     rules,
		Auth:      auth.NewAuthManager(config.AuthConfig{AdminTokens: []string{adminToken}}),
		Metrics:   promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})
	return &testEnv{handler: srv.Handler(), store: mem, rules: rules, fetcher: fetcher}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	return e.doWithToken(t, "", method, path, body)
}

// admin sends the request with the configured admin bearer token.
func (e *testEnv) admin(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	return e.doWithToken(t, adminToken, method, path, body)
}

func (e *testEnv) doWithToken(t *testing.T, token, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, "a.com")

	rec := env.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/health/ready", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"domains":1`)
}

func TestHealthReady_StoreDown(t *testing.T) {
	env := newTestEnvWithStore(t, failingStore{err: errors.New("down")}, nil)

	rec := env.do(t, http.MethodGet, "/health/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCheckEmail(t *testing.T) {
	env := newTestEnv(t, "bad.com")

	rec := env.do(t, http.MethodGet, "/api/v1/check?email=user@fake@BAD.COM", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[CheckEmailResponse](t, rec)
	assert.Equal(t, CheckEmailResponse{Email: "user@fake@BAD.COM", Domain: "bad.com", Disposable: true}, got)

	rec = env.do(t, http.MethodGet, "/api/v1/check?email=user@good.com", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[CheckEmailResponse](t, rec).Disposable)

	rec = env.do(t, http.MethodGet, "/api/v1/check?email=not-an-email", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[CheckEmailResponse](t, rec).Disposable)

	rec = env.do(t, http.MethodGet, "/api/v1/check", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckEmail_StoreError(t *testing.T) {
	env := newTestEnvWithStore(t, failingStore{err: errors.New("connection refused")}, nil)

	rec := env.do(t, http.MethodGet, "/api/v1/check?email=user@bad.com", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestCheckDomain(t *testing.T) {
	env := newTestEnv(t, "mail.tempmail.com")

	rec := env.do(t, http.MethodGet, "/api/v1/check/domains/MAIL.tempmail.com", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, CheckDomainResponse{Domain: "mail.tempmail.com", Disposable: true}, decode[CheckDomainResponse](t, rec))

	rec = env.do(t, http.MethodGet, "/api/v1/check/domains/tempmail.com", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[CheckDomainResponse](t, rec).Disposable)
}

func TestValidate(t *testing.T) {
	env := newTestEnv(t, "bad.com")

	rec := env.do(t, http.MethodPost, "/api/v1/validate", `{"email":"user@good.com"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[ValidateResponse](t, rec).Valid)

	rec = env.do(t, http.MethodPost, "/api/v1/validate", `{"email":"user@bad.com"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, ValidateResponse{Valid: false, Error: domain.DefaultErrorMessage}, decode[ValidateResponse](t, rec))

	rec = env.do(t, http.MethodPost, "/api/v1/validate", `{"email":"user@bad.com","message":"nope"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "nope", decode[ValidateResponse](t, rec).Error)

	rec = env.do(t, http.MethodPost, "/api/v1/validate", `{"email":""}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/validate", `{"email":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestValidate_FailsClosed(t *testing.T) {
	env := newTestEnvWithStore(t, failingStore{err: errors.New("down")}, nil)

	rec := env.do(t, http.MethodPost, "/api/v1/validate", `{"email":"user@anything.com"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, disposable.FallbackMessage, decode[ValidateResponse](t, rec).Error)
}

func TestListDomains(t *testing.T) {
	env := newTestEnv(t, "d.com", "c.com", "b.com", "a.com")

	rec := env.do(t, http.MethodGet, "/api/v1/domains?limit=2&offset=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[ListDomainsResponse](t, rec)
	assert.Equal(t, 4, got.Total)
	require.Len(t, got.Domains, 2)
	assert.Equal(t, "b.com", got.Domains[0].Name)
	assert.Equal(t, "c.com", got.Domains[1].Name)

	rec = env.do(t, http.MethodGet, "/api/v1/domains?limit=5000", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, maxPageSize, decode[ListDomainsResponse](t, rec).Limit)

	for _, q := range []string{"limit=abc", "limit=0", "offset=-1"} {
		rec = env.do(t, http.MethodGet, "/api/v1/domains?"+q, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestRefresh(t *testing.T) {
	env := newTestEnv(t)

	rec := env.admin(t, http.MethodPost, "/api/v1/refresh", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[RefreshResponse](t, rec)
	assert.Equal(t, 2, got.Count)
	assert.NotEmpty(t, got.RunID)

	n, _ := env.store.Count(context.Background())
	assert.Equal(t, 2, n)
}

func TestRefresh_UpstreamFailure(t *testing.T) {
	env := newTestEnv(t, "old.com")

	env.fetcher.err = &blocklist.FetchError{Kind: blocklist.KindHTTPStatus, URL: "https://example.test", Code: 500}
	rec := env.admin(t, http.MethodPost, "/api/v1/refresh", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	env.fetcher.err = nil
	env.fetcher.body = "\n\n"
	rec = env.admin(t, http.MethodPost, "/api/v1/refresh", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	ok, _ := env.store.Contains(context.Background(), "old.com")
	assert.True(t, ok)
}

func TestRefresh_StorageFailure(t *testing.T) {
	env := newTestEnvWithStore(t, failingStore{err: errors.New("disk full")}, nil)

	rec := env.admin(t, http.MethodPost, "/api/v1/refresh", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

type lockedRefresher struct{}

func (lockedRefresher) Update(context.Context) (disposable.Result, error) {
	return disposable.Result{}, disposable.ErrRefreshInProgress
}

func TestRefresh_InProgress(t *testing.T) {
	store := memory.NewDomainStore()
	rules := disposable.NewRulesHolder(domain.DefaultRules())
	checker := disposable.NewChecker(store, rules, nil)
	h := NewHandlers(Deps{
		Checker:   checker,
		Validator: disposable.NewValidator(checker, rules, nil),
		Refresher: lockedRefresher{},
		Store:     store,
		Rules:     rules,
		Metrics:   http.NotFoundHandler(),
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/refresh", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	rec := httptest.NewRecorder()
	am := auth.NewAuthManager(config.AuthConfig{AdminTokens: []string{adminToken}})
	SetupRoutes(h, nil, am).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "refresh_in_progress")
}

func TestRules(t *testing.T) {
	env := newTestEnv(t, "bad.com")

	rec := env.do(t, http.MethodGet, "/api/v1/rules", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.DefaultRules(), decode[domain.Rules](t, rec))

	rec = env.admin(t, http.MethodPut, "/api/v1/rules", `{"error_message":"blocked","additional_domains":["extra.com"],"excluded_domains":["bad.com"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "blocked", env.rules.Load().ErrorMessage)

	rec = env.do(t, http.MethodGet, "/api/v1/check/domains/bad.com", "")
	assert.False(t, decode[CheckDomainResponse](t, rec).Disposable)
	rec = env.do(t, http.MethodGet, "/api/v1/check/domains/extra.com", "")
	assert.True(t, decode[CheckDomainResponse](t, rec).Disposable)

	rec = env.admin(t, http.MethodPut, "/api/v1/rules", `{}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.DefaultRules(), env.rules.Load())
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, "bad.com")
	env.do(t, http.MethodGet, "/api/v1/check/domains/bad.com", "")

	rec := env.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `nondisposable_lookups_total{result="disposable"} 1`)
}

func TestAdminRoutes_RequireToken(t *testing.T) {
	env := newTestEnv(t, "old.com")

	tests := []struct {
		method, path, body string
	}{
		{http.MethodPost, "/api/v1/refresh", ""},
		{http.MethodPut, "/api/v1/rules", `{"additional_domains":["gmail.com"]}`},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := env.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)

			rec = env.doWithToken(t, "wrong-token", tt.method, tt.path, tt.body)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)

			rec = env.admin(t, tt.method, tt.path, tt.body)
			assert.Equal(t, http.StatusOK, rec.Code)
		})
	}
}

func TestAdminRoutes_RejectedRulesChangeNothing(t *testing.T) {
	env := newTestEnv(t, "old.com")

	rec := env.do(t, http.MethodPut, "/api/v1/rules", `{"additional_domains":["gmail.com"]}`)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, env.rules.Load().AdditionalDomains)

	rec = env.do(t, http.MethodPost, "/api/v1/refresh", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	ok, _ := env.store.Contains(context.Background(), "old.com")
	assert.True(t, ok, "rejected refresh must not touch the store")
}

func TestPublicRoutes_NoTokenNeeded(t *testing.T) {
	env := newTestEnv(t, "bad.com")

	for _, path := range []string{"/health", "/api/v1/check?email=a@bad.com", "/api/v1/check/domains/bad.com", "/api/v1/domains", "/api/v1/rules"} {
		rec := env.do(t, http.MethodGet, path, "")
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
	rec := env.do(t, http.MethodPost, "/api/v1/validate", `{"email":"a@good.com"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminRoutes_NilAuthManagerRejects(t *testing.T) {
	store := memory.NewDomainStore()
	rules := disposable.NewRulesHolder(domain.DefaultRules())
	checker := disposable.NewChecker(store, rules, nil)
	h := NewHandlers(Deps{
		Checker:   checker,
		Validator: disposable.NewValidator(checker, rules, nil),
		Refresher: lockedRefresher{},
		Store:     store,
		Rules:     rules,
		Metrics:   http.NotFoundHandler(),
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/refresh", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	rec := httptest.NewRecorder()
	SetupRoutes(h, nil, nil).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
