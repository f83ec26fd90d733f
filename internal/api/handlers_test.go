package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/roas-attribution/internal/attribution"
	"github.com/ignite/roas-attribution/internal/domain"
	"github.com/ignite/roas-attribution/internal/keap"
	"github.com/ignite/roas-attribution/internal/pkg/distlock"
)

type fakeReportService struct {
	lastParams attribution.ReportParams
	report     domain.Report
	err        error
}

func (f *fakeReportService) Report(ctx context.Context, params attribution.ReportParams) (domain.Report, error) {
	f.lastParams = params
	if f.err != nil {
		return domain.EmptyReport(params.TenantID, params.Date), f.err
	}
	return f.report, nil
}

type fakeArchive struct {
	saved   []domain.Report
	stored  map[string]domain.Report
	loadErr error
}

func (f *fakeArchive) SaveReport(ctx context.Context, report domain.Report) error {
	f.saved = append(f.saved, report)
	return nil
}

func (f *fakeArchive) LoadReport(ctx context.Context, tenantID, date string) (domain.Report, bool, error) {
	if f.loadErr != nil {
		return domain.Report{}, false, f.loadErr
	}
	report, ok := f.stored[tenantID+"/"+date]
	return report, ok, nil
}

type fakeHookManager struct {
	hooks      []keap.Hook
	subscribed []string
}

func (f *fakeHookManager) ListHookEventKeys(ctx context.Context, tenantID string) ([]string, error) {
	return []string{"order.add", "order.edit"}, nil
}

func (f *fakeHookManager) VerifyHooks(ctx context.Context, tenantID string) ([]keap.Hook, error) {
	return f.hooks, nil
}

func (f *fakeHookManager) SubscribeHook(ctx context.Context, tenantID, hookName string) error {
	f.subscribed = append(f.subscribed, hookName)
	return nil
}

func (f *fakeHookManager) RelayHooks(hooks []keap.Hook) []keap.Hook {
	out := make([]keap.Hook, 0, len(hooks))
	for _, h := range hooks {
		if strings.HasPrefix(h.HookURL, "https://relay.example.com") {
			out = append(out, h)
		}
	}
	return out
}

func testReport() domain.Report {
	return domain.Report{
		TenantID: "42",
		Date:     "2024-03-01",
		Customers: map[string]domain.AttributionResult{
			"buyer@example.com": {
				LowerCaseEmail: "buyer@example.com",
				Stats:          domain.Stats{Sales: 1, Revenue: 29.95},
				Ads:            []domain.AdMetadata{{AdID: "ad-1", AdName: "Promo"}},
			},
		},
	}
}

func TestGetReport(t *testing.T) {
	svc := &fakeReportService{report: testReport()}
	router := SetupRoutes(NewHandlers(svc))

	req := httptest.NewRequest(http.MethodGet, "/api/reports/2024-03-01?tenant_id=42&ad_account_id=act_1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "42", svc.lastParams.TenantID)
	assert.Equal(t, "2024-03-01", svc.lastParams.Date)
	assert.Equal(t, "act_1", svc.lastParams.AdAccountID)

	var got domain.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Len(t, got.Customers, 1)
	assert.Equal(t, "ad-1", got.Customers["buyer@example.com"].Ads[0].AdID)
}

func TestGetReportMissingParameter(t *testing.T) {
	svc := &fakeReportService{err: &attribution.MissingParameterError{Field: "tenant_id"}}
	router := SetupRoutes(NewHandlers(svc))

	req := httptest.NewRequest(http.MethodGet, "/api/reports/2024-03-01", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "tenant_id")
}

func TestGetReportArchivesOnSuccess(t *testing.T) {
	svc := &fakeReportService{report: testReport()}
	handlers := NewHandlers(svc)
	archive := &fakeArchive{}
	handlers.SetArchive(archive)
	router := SetupRoutes(handlers)

	req := httptest.NewRequest(http.MethodGet, "/api/reports/2024-03-01?tenant_id=42&ad_account_id=act_1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, archive.saved, 1)
	assert.Equal(t, "2024-03-01", archive.saved[0].Date)
}

func TestGetArchivedReport(t *testing.T) {
	handlers := NewHandlers(&fakeReportService{})
	handlers.SetArchive(&fakeArchive{stored: map[string]domain.Report{
		"42/2024-03-01": testReport(),
	}})
	router := SetupRoutes(handlers)

	req := httptest.NewRequest(http.MethodGet, "/api/reports/2024-03-01/archived?tenant_id=42", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got domain.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "42", got.TenantID)
}

func TestGetArchivedReportNotFound(t *testing.T) {
	handlers := NewHandlers(&fakeReportService{})
	handlers.SetArchive(&fakeArchive{stored: map[string]domain.Report{}})
	router := SetupRoutes(handlers)

	req := httptest.NewRequest(http.MethodGet, "/api/reports/2024-03-01/archived?tenant_id=42", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetArchivedReportNotConfigured(t *testing.T) {
	router := SetupRoutes(NewHandlers(&fakeReportService{}))

	req := httptest.NewRequest(http.MethodGet, "/api/reports/2024-03-01/archived?tenant_id=42", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestVerifyHooksSubscribesMissing(t *testing.T) {
	handlers := NewHandlers(&fakeReportService{})
	hooks := &fakeHookManager{hooks: []keap.Hook{
		{Key: "order.add", HookURL: "https://relay.example.com/keap_webhook/42", Status: "Verified"},
		{Key: "order.edit", HookURL: "https://other.example.com/hook", Status: "Verified"},
	}}
	handlers.SetHookManager(hooks)
	router := SetupRoutes(handlers)

	req := httptest.NewRequest(http.MethodPost, "/api/hooks/verify?tenant_id=42", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	// order.add is already relay-registered; everything else gets subscribed,
	// including order.edit whose existing hook points elsewhere.
	assert.NotContains(t, hooks.subscribed, "order.add")
	assert.Contains(t, hooks.subscribed, "order.edit")
	assert.Contains(t, hooks.subscribed, "subscription.add")
}

type fakeLock struct {
	held     bool
	released bool
}

func (f *fakeLock) Acquire(ctx context.Context) (bool, error) { return !f.held, nil }
func (f *fakeLock) Release(ctx context.Context) error         { f.released = true; return nil }

func TestGetReportRejectsConcurrentRun(t *testing.T) {
	handlers := NewHandlers(&fakeReportService{report: testReport()})
	handlers.SetLockFactory(func(key string) distlock.DistLock {
		return &fakeLock{held: true}
	})
	router := SetupRoutes(handlers)

	req := httptest.NewRequest(http.MethodGet, "/api/reports/2024-03-01?tenant_id=42&ad_account_id=act_1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGetReportReleasesLock(t *testing.T) {
	lock := &fakeLock{}
	handlers := NewHandlers(&fakeReportService{report: testReport()})
	handlers.SetLockFactory(func(key string) distlock.DistLock { return lock })
	router := SetupRoutes(handlers)

	req := httptest.NewRequest(http.MethodGet, "/api/reports/2024-03-01?tenant_id=42&ad_account_id=act_1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, lock.released)
}

func TestHealthCheck(t *testing.T) {
	router := SetupRoutes(NewHandlers(&fakeReportService{}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}
