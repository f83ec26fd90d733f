package facebook

import (
	"context"
	"sync"

	"github.com/ignite/roas-attribution/internal/domain"
	"github.com/ignite/roas-attribution/internal/pkg/logger"
)

// Resolver turns candidate ad ids into enriched AdMetadata. Lookups are
// cache-first: the tenant's synced ad store is consulted before the platform
// API, and a remote hit joins the parent adset and campaign concurrently.
//
// Resolve is best-effort by contract: failures never propagate past this
// boundary. A failed lookup yields a sentinel record carrying the ad id and
// an error flag; a clean not-found yields an empty record. Callers filter
// both out downstream.
type Resolver struct {
	client      *Client
	cache       *AdCache
	concurrency int
}

// NewResolver creates a metadata resolver. concurrency bounds the batch
// fan-out (default 4).
func NewResolver(client *Client, cache *AdCache, concurrency int) *Resolver {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Resolver{client: client, cache: cache, concurrency: concurrency}
}

// Resolve resolves one ad id to enriched metadata for the given tenant and
// report date. It never returns an error; see the type comment.
func (r *Resolver) Resolve(ctx context.Context, tenantID, accountID, adID, date string) domain.AdMetadata {
	if adID == "" {
		return domain.AdMetadata{}
	}

	// Cache stage
	if cached, ok, err := r.cache.Get(ctx, tenantID, adID); err != nil {
		logger.Warn("ad cache lookup failed", "tenant_id", tenantID, "ad_id", adID, "err", err)
	} else if ok {
		return Normalize(cached)
	}

	// Remote stage
	ad, ok, err := r.client.GetAd(ctx, adID, date, accountID)
	if err != nil {
		logger.Warn("ad fetch failed", "tenant_id", tenantID, "ad_id", adID, "err", err)
		return Sentinel(adID)
	}
	if !ok {
		return domain.AdMetadata{}
	}

	adsetName, campaignName := r.fetchParents(ctx, ad, date, accountID)
	return MetadataFromRaw(ad, adsetName, campaignName)
}

// fetchParents resolves the ad's adset and campaign names concurrently.
// Each branch absorbs its own failure so the join cannot stall; a failed
// parent lookup degrades to an empty name.
func (r *Resolver) fetchParents(ctx context.Context, ad AdRaw, date, accountID string) (adsetName, campaignName string) {
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		group, err := r.client.GetAdGroup(ctx, ad.AdsetID, date, accountID)
		if err != nil {
			logger.Warn("adset fetch failed", "adset_id", ad.AdsetID, "err", err)
			return
		}
		adsetName = group.Name
	}()
	go func() {
		defer wg.Done()
		campaign, err := r.client.GetCampaign(ctx, ad.CampaignID, date, accountID)
		if err != nil {
			logger.Warn("campaign fetch failed", "campaign_id", ad.CampaignID, "err", err)
			return
		}
		campaignName = campaign.Name
	}()

	wg.Wait()
	return adsetName, campaignName
}

// ResolveBatch resolves a ranked candidate list with a bounded worker
// fan-out, preserving candidate order and silently dropping empty and
// sentinel results. Each kept record is stamped with its originating
// candidate's timestamp.
func (r *Resolver) ResolveBatch(ctx context.Context, tenantID, accountID, date string, candidates []domain.Candidate) []domain.AdMetadata {
	if len(candidates) == 0 {
		return nil
	}

	results := make([]domain.AdMetadata, len(candidates))
	sem := make(chan struct{}, r.concurrency)
	var wg sync.WaitGroup

	for i, cand := range candidates {
		wg.Add(1)
		go func(i int, cand domain.Candidate) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			meta := r.Resolve(ctx, tenantID, accountID, cand.AdID, date)
			meta.Timestamp = cand.Timestamp
			results[i] = meta
		}(i, cand)
	}
	wg.Wait()

	out := make([]domain.AdMetadata, 0, len(results))
	for _, meta := range results {
		if meta.Usable() {
			out = append(out, meta)
		}
	}
	return out
}
