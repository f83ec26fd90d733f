package attribution

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/ignite/roas-attribution/internal/clickfunnels"
	"github.com/ignite/roas-attribution/internal/domain"
	"github.com/ignite/roas-attribution/internal/eventstore"
	"github.com/ignite/roas-attribution/internal/pkg/logger"
)

// OrderSource fetches a tenant's orders for a report date.
type OrderSource interface {
	ListOrders(ctx context.Context, tenantID, date string) ([]domain.Order, error)
}

// FunnelConnector is the funnel-tool surface the engine needs.
type FunnelConnector interface {
	EventsByEmail(ctx context.Context, tenantID, email string) ([]domain.FunnelEvent, error)
	UsersByIdentity(ctx context.Context, tenantID string, identities []string) ([]clickfunnels.UserRecord, error)
}

// AdResolver enriches ranked candidates with advertisement metadata.
// Implementations are best-effort and must never fail the batch.
type AdResolver interface {
	ResolveBatch(ctx context.Context, tenantID, accountID, date string, candidates []domain.Candidate) []domain.AdMetadata
}

// Service is the attribution engine. It coordinates the order source, the
// funnel connector, the site-event store, and the metadata resolver into
// per-customer attribution pipelines. Safe for concurrent use if its
// collaborators are.
type Service struct {
	orders   OrderSource
	funnel   FunnelConnector
	store    eventstore.Store
	resolver AdResolver

	// workers bounds the per-customer pipeline fan-out.
	workers int
	baseLog *logger.Logger
}

// NewService creates the attribution engine. workers bounds the customer
// fan-out (default 4).
func NewService(orders OrderSource, funnel FunnelConnector, store eventstore.Store, resolver AdResolver, workers int) *Service {
	if workers <= 0 {
		workers = 4
	}
	return &Service{
		orders:   orders,
		funnel:   funnel,
		store:    store,
		resolver: resolver,
		workers:  workers,
		baseLog:  logger.With(),
	}
}

func (s *Service) log(tenantID string) *logger.Logger {
	return s.baseLog.With("tenant_id", tenantID)
}

// ReportParams identifies one attribution run.
type ReportParams struct {
	TenantID    string `json:"tenant_id"`
	Date        string `json:"date"`
	AdAccountID string `json:"ad_account_id"`
}

// Report assembles the per-customer attribution report for one date.
//
// Parameter validation errors are returned to the caller; every other
// failure is absorbed so a report is always produced — the worst case is
// the default empty report. Customers whose evidence chain yields no
// resolvable ads are absent from the output.
func (s *Service) Report(ctx context.Context, p ReportParams) (domain.Report, error) {
	if p.TenantID == "" {
		return domain.EmptyReport(p.TenantID, p.Date), missingParam("tenant_id")
	}
	if p.Date == "" {
		return domain.EmptyReport(p.TenantID, p.Date), missingParam("date")
	}

	runLog := s.baseLog.With("tenant_id", p.TenantID, "date", p.Date, "run_id", uuid.New().String())

	orders, err := s.orders.ListOrders(ctx, p.TenantID, p.Date)
	if err != nil {
		runLog.Error("order fetch failed", "err", err)
		return domain.EmptyReport(p.TenantID, p.Date), nil
	}

	customers := domain.GroupCustomers(domain.FilterPaid(orders))
	runLog.Info("report run started", "orders", len(orders), "customers", len(customers))

	results := make([]domain.AttributionResult, len(customers))
	sem := make(chan struct{}, s.workers)
	var wg sync.WaitGroup
	for i, customer := range customers {
		wg.Add(1)
		go func(i int, customer domain.Customer) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = s.attributeCustomer(ctx, p, customer, runLog)
		}(i, customer)
	}
	wg.Wait()

	report := domain.EmptyReport(p.TenantID, p.Date)
	attributed := 0
	for _, res := range results {
		if len(res.Ads) == 0 {
			// No resolvable ads after all tiers: dropped from the report.
			continue
		}
		attributed++
		if existing, ok := report.Customers[res.LowerCaseEmail]; ok {
			report.Customers[res.LowerCaseEmail] = existing.Merge(res)
		} else {
			report.Customers[res.LowerCaseEmail] = res
		}
	}
	runLog.Info("report run finished", "attributed", attributed, "unattributed", len(customers)-attributed)
	return report, nil
}

// attributeCustomer runs the tiered evidence pipeline for one customer:
// expand identities, search the direct tier, fall back to the ip-correlated
// tier only when direct is empty, rank, then resolve metadata. Failures
// degrade to an ad-less result; they never escape the customer's pipeline.
func (s *Service) attributeCustomer(ctx context.Context, p ReportParams, customer domain.Customer, runLog *logger.Logger) domain.AttributionResult {
	result := domain.AttributionResult{
		Email:          customer.Email,
		LowerCaseEmail: customer.LowerCaseEmail,
		Cart:           customer.Cart,
		Stats:          customer.Stats,
	}
	custLog := runLog.With("customer", customer.LowerCaseEmail)

	ids, err := s.ExpandIdentities(ctx, p.TenantID, customer.Email, customer.LowerCaseEmail)
	if err != nil {
		custLog.Warn("identity expansion rejected", "err", err)
		return result
	}

	ranked := s.rankedCandidates(ctx, p.TenantID, ids, custLog)
	if len(ranked) == 0 {
		return result
	}

	result.Ads = s.resolver.ResolveBatch(ctx, p.TenantID, p.AdAccountID, p.Date, ranked)
	custLog.Debug("customer attributed", "candidates", len(ranked), "ads", len(result.Ads))
	return result
}

// rankedCandidates walks the evidence tiers in order, stopping at the first
// tier that produces ranked candidates.
func (s *Service) rankedCandidates(ctx context.Context, tenantID string, ids domain.IdentitySet, custLog *logger.Logger) []domain.Candidate {
	for _, tier := range []Tier{TierDirect, TierIPCorrelated} {
		candidates, err := s.MatchTier(ctx, tenantID, ids, tier)
		if err != nil {
			custLog.Warn("tier match rejected", "tier", string(tier), "err", err)
			return nil
		}
		if ranked := Rank(candidates); len(ranked) > 0 {
			return ranked
		}
	}
	return nil
}
