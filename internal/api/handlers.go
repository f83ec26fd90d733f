package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/roas-attribution/internal/attribution"
	"github.com/ignite/roas-attribution/internal/domain"
	"github.com/ignite/roas-attribution/internal/keap"
	"github.com/ignite/roas-attribution/internal/pkg/distlock"
	"github.com/ignite/roas-attribution/internal/pkg/httputil"
	"github.com/ignite/roas-attribution/internal/pkg/logger"
)

// ReportService produces a per-date attribution report.
type ReportService interface {
	Report(ctx context.Context, params attribution.ReportParams) (domain.Report, error)
}

// ReportArchive persists finished reports and serves prior runs.
type ReportArchive interface {
	SaveReport(ctx context.Context, report domain.Report) error
	LoadReport(ctx context.Context, tenantID, date string) (domain.Report, bool, error)
}

// ReportExporter pushes report rows into the warehouse.
type ReportExporter interface {
	ExportReport(ctx context.Context, report domain.Report) error
}

// HookManager manages the tenant's order-change webhook subscriptions.
type HookManager interface {
	ListHookEventKeys(ctx context.Context, tenantID string) ([]string, error)
	VerifyHooks(ctx context.Context, tenantID string) ([]keap.Hook, error)
	SubscribeHook(ctx context.Context, tenantID, hookName string) error
	RelayHooks(hooks []keap.Hook) []keap.Hook
}

// LockFactory builds a distributed lock for a key. Wired in production to
// redis (or PG advisory locks); nil disables run serialization.
type LockFactory func(key string) distlock.DistLock

// Handlers contains all HTTP handlers and their dependencies
type Handlers struct {
	reports  ReportService
	archive  ReportArchive
	exporter ReportExporter
	hooks    HookManager
	newLock  LockFactory
	log      *logger.Logger
}

// NewHandlers creates a new handlers instance
func NewHandlers(reports ReportService) *Handlers {
	return &Handlers{
		reports: reports,
		log:     logger.Default(),
	}
}

// SetArchive wires the optional S3 report archive.
func (h *Handlers) SetArchive(archive ReportArchive) {
	h.archive = archive
}

// SetExporter wires the optional warehouse exporter.
func (h *Handlers) SetExporter(exporter ReportExporter) {
	h.exporter = exporter
}

// SetHookManager wires the webhook subscription manager.
func (h *Handlers) SetHookManager(hooks HookManager) {
	h.hooks = hooks
}

// SetLockFactory wires the distributed lock used to serialize report runs.
func (h *Handlers) SetLockFactory(f LockFactory) {
	h.newLock = f
}

// HealthCheck returns server health status
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.JSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// GetReport runs the attribution pipeline for one date and returns the report.
// Query params: tenant_id (required), ad_account_id (required). Concurrent
// runs for the same tenant/date are rejected with 409.
func (h *Handlers) GetReport(w http.ResponseWriter, r *http.Request) {
	params := attribution.ReportParams{
		TenantID:    r.URL.Query().Get("tenant_id"),
		Date:        chi.URLParam(r, "date"),
		AdAccountID: r.URL.Query().Get("ad_account_id"),
	}

	if h.newLock != nil && params.TenantID != "" {
		lock := h.newLock("report:" + params.TenantID + ":" + params.Date)
		ok, err := lock.Acquire(r.Context())
		if err != nil {
			httputil.InternalError(w, err)
			return
		}
		if !ok {
			httputil.Conflict(w, "report run already in progress for this date")
			return
		}
		defer lock.Release(r.Context())
	}

	report, err := h.reports.Report(r.Context(), params)
	if err != nil {
		if attribution.IsMissingParameter(err) {
			httputil.BadRequest(w, err.Error())
			return
		}
		httputil.InternalError(w, err)
		return
	}

	h.persistReport(report)
	httputil.JSON(w, http.StatusOK, report)
}

// persistReport archives and exports the report when those sinks are wired.
// Failures are logged and never surface to the caller.
func (h *Handlers) persistReport(report domain.Report) {
	if h.archive == nil && h.exporter == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if h.archive != nil {
		if err := h.archive.SaveReport(ctx, report); err != nil {
			h.log.Warn("report archive failed",
				"tenant_id", report.TenantID, "date", report.Date, "error", err.Error())
		}
	}
	if h.exporter != nil {
		if err := h.exporter.ExportReport(ctx, report); err != nil {
			h.log.Warn("warehouse export failed",
				"tenant_id", report.TenantID, "date", report.Date, "error", err.Error())
		}
	}
}

// GetArchivedReport serves a previously archived report without re-running
// the pipeline.
func (h *Handlers) GetArchivedReport(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		httputil.Error(w, http.StatusNotImplemented, "report archive not configured")
		return
	}
	tenantID := r.URL.Query().Get("tenant_id")
	date := chi.URLParam(r, "date")
	if tenantID == "" {
		httputil.BadRequest(w, "tenant_id is required")
		return
	}

	report, ok, err := h.archive.LoadReport(r.Context(), tenantID, date)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	if !ok {
		httputil.NotFound(w, "no archived report for date")
		return
	}
	httputil.JSON(w, http.StatusOK, report)
}

// GetHookEventKeys lists the event keys the tenant's account can subscribe to.
func (h *Handlers) GetHookEventKeys(w http.ResponseWriter, r *http.Request) {
	if h.hooks == nil {
		httputil.Error(w, http.StatusNotImplemented, "hook management not configured")
		return
	}
	tenantID := r.URL.Query().Get("tenant_id")
	if tenantID == "" {
		httputil.BadRequest(w, "tenant_id is required")
		return
	}

	keys, err := h.hooks.ListHookEventKeys(r.Context(), tenantID)
	if err != nil {
		httputil.Error(w, http.StatusBadGateway, "event key lookup failed")
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]interface{}{"event_keys": keys})
}

// VerifyHooks checks the tenant's relay-pointed hook subscriptions and
// re-subscribes any missing order/subscription event.
func (h *Handlers) VerifyHooks(w http.ResponseWriter, r *http.Request) {
	if h.hooks == nil {
		httputil.Error(w, http.StatusNotImplemented, "hook management not configured")
		return
	}
	tenantID := r.URL.Query().Get("tenant_id")
	if tenantID == "" {
		httputil.BadRequest(w, "tenant_id is required")
		return
	}

	hooks, err := h.hooks.VerifyHooks(r.Context(), tenantID)
	if err != nil {
		httputil.Error(w, http.StatusBadGateway, "hook verification failed")
		return
	}

	registered := make(map[string]bool)
	for _, hook := range h.hooks.RelayHooks(hooks) {
		registered[hook.Key] = true
	}

	var subscribed []string
	for _, eventKey := range keap.SubscribableEvents {
		if registered[eventKey] {
			continue
		}
		if err := h.hooks.SubscribeHook(r.Context(), tenantID, eventKey); err != nil {
			h.log.Warn("hook subscribe failed",
				"tenant_id", tenantID, "event_key", eventKey, "error", err.Error())
			continue
		}
		subscribed = append(subscribed, eventKey)
	}

	httputil.JSON(w, http.StatusOK, map[string]interface{}{
		"hooks":      hooks,
		"subscribed": subscribed,
	})
}
