package attribution

import (
	"context"
	"sort"
	"sync"

	"github.com/ignite/roas-attribution/internal/domain"
	"github.com/ignite/roas-attribution/internal/eventstore"
)

// Tier identifies an ordered evidence source. Tiers are tried in sequence
// until one yields usable candidates; later tiers are never run
// speculatively, which bounds remote-call volume.
type Tier string

const (
	// TierDirect searches funnel-tool events recorded directly against the
	// customer's email identities.
	TierDirect Tier = "direct"
	// TierIPCorrelated searches the general site-event store by the IP
	// addresses observed in the customer's funnel events. Used only when
	// the direct tier is empty.
	TierIPCorrelated Tier = "ip_correlated"
)

// siteEventsCollection is the general website event log.
const siteEventsCollection = "events"

// MatchTier returns the candidate ad identifiers one evidence tier yields
// for an identity set. Within the tier, candidates are ordered by timestamp
// descending so deduplication favors the most recent occurrence. A failed
// lookup for one identity contributes an empty candidate list for that
// identity only.
func (s *Service) MatchTier(ctx context.Context, tenantID string, ids domain.IdentitySet, tier Tier) ([]domain.Candidate, error) {
	if tenantID == "" {
		return nil, missingParam("tenant_id")
	}

	var candidates []domain.Candidate
	switch tier {
	case TierDirect:
		candidates = s.matchDirect(ctx, tenantID, ids)
	case TierIPCorrelated:
		candidates = s.matchIPCorrelated(ctx, tenantID, ids)
	default:
		return nil, missingParam("tier")
	}

	sortByTimestampDesc(candidates)
	return candidates, nil
}

// matchDirect extracts candidates from the funnel events of every email
// identity.
func (s *Service) matchDirect(ctx context.Context, tenantID string, ids domain.IdentitySet) []domain.Candidate {
	var candidates []domain.Candidate
	for _, email := range ids.Emails {
		events, err := s.funnel.EventsByEmail(ctx, tenantID, email)
		if err != nil {
			s.log(tenantID).Warn("direct tier lookup failed", "email", email, "err", err)
			continue
		}
		for _, ev := range events {
			adID := ev.ExtractAdID()
			if adID == "" {
				continue
			}
			candidates = append(candidates, domain.Candidate{
				AdID:      adID,
				Timestamp: domain.ToUTCSeconds(ev.UpdatedAtUnix),
				IP:        ev.ExtractIP(),
			})
		}
	}
	return candidates
}

// matchIPCorrelated re-derives the IPs observed in the customer's funnel
// events, widens the set once through the site-event store (an event matched
// by one address contributes the others it saw), then extracts candidates
// from the site events of every address.
func (s *Service) matchIPCorrelated(ctx context.Context, tenantID string, ids domain.IdentitySet) []domain.Candidate {
	seedIPs := s.funnelIPs(ctx, tenantID, ids)

	var widened []string
	for _, ip := range seedIPs {
		widened = append(widened, ip)
		for _, ev := range s.siteEventsByIP(ctx, ip) {
			widened = append(widened, ev.IPs()...)
		}
	}
	widened = domain.Dedup(widened)

	var candidates []domain.Candidate
	for _, ip := range widened {
		for _, ev := range s.siteEventsByIP(ctx, ip) {
			adID := ev.ExtractAdID()
			if adID == "" {
				continue
			}
			candidates = append(candidates, domain.Candidate{
				AdID:      adID,
				Timestamp: ev.UTCTimestamp(),
				IP:        ip,
			})
		}
	}
	return candidates
}

// funnelIPs collects the deduplicated visitor IPs across the funnel events
// of every email identity, ignoring whether those events carried ad ids.
func (s *Service) funnelIPs(ctx context.Context, tenantID string, ids domain.IdentitySet) []string {
	var ips []string
	for _, email := range ids.Emails {
		events, err := s.funnel.EventsByEmail(ctx, tenantID, email)
		if err != nil {
			s.log(tenantID).Warn("ip derivation lookup failed", "email", email, "err", err)
			continue
		}
		for _, ev := range events {
			if ip := ev.ExtractIP(); ip != "" {
				ips = append(ips, ip)
			}
		}
	}
	return domain.Dedup(ips)
}

// siteEventsByIP queries the site-event store for events matching the
// address on either the ipv4 or ipv6 field. Both lookups are issued
// concurrently and joined; each branch absorbs its own failure so the join
// cannot stall.
func (s *Service) siteEventsByIP(ctx context.Context, ip string) []domain.SiteEvent {
	var (
		wg       sync.WaitGroup
		v4Events []domain.SiteEvent
		v6Events []domain.SiteEvent
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		events, err := eventstore.FindAs[domain.SiteEvent](ctx, s.store, siteEventsCollection, eventstore.Eq("ipv4", ip))
		if err != nil {
			s.baseLog.Warn("site event ipv4 lookup failed", "ip", ip, "err", err)
			return
		}
		v4Events = events
	}()
	go func() {
		defer wg.Done()
		events, err := eventstore.FindAs[domain.SiteEvent](ctx, s.store, siteEventsCollection, eventstore.Eq("ipv6", ip))
		if err != nil {
			s.baseLog.Warn("site event ipv6 lookup failed", "ip", ip, "err", err)
			return
		}
		v6Events = events
	}()
	wg.Wait()

	return append(v4Events, v6Events...)
}

// sortByTimestampDesc orders candidates newest-first; zero (unorderable)
// timestamps sort last. The sort is stable so equal stamps keep their
// extraction order.
func sortByTimestampDesc(candidates []domain.Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Timestamp > candidates[j].Timestamp
	})
}
