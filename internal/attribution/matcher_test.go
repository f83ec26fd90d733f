package attribution

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/roas-attribution/internal/domain"
)

func TestMatchTierRequiresTenant(t *testing.T) {
	svc := newTestService(&fakeOrders{}, &fakeFunnel{}, &fakeStore{}, &fakeResolver{})

	_, err := svc.MatchTier(context.Background(), "", domain.IdentitySet{}, TierDirect)
	assert.True(t, IsMissingParameter(err))

	_, err = svc.MatchTier(context.Background(), "42", domain.IdentitySet{}, Tier("bogus"))
	assert.Error(t, err)
}

func TestMatchTierDirect(t *testing.T) {
	funnel := &fakeFunnel{eventsByEmail: map[string][]domain.FunnelEvent{
		"buyer@example.com": {
			{AdID: "a1", UpdatedAtUnix: 1700000000123, IP: "1.2.3.4"}, // milliseconds
			{FBID: "a2", UpdatedAtUnix: 1600000000, Contact: domain.FunnelContact{IP: "5.6.7.8"}},
			{AdID: domain.PlaceholderAdID, UpdatedAtUnix: 1800000000},
		},
	}}
	svc := newTestService(&fakeOrders{}, funnel, &fakeStore{}, &fakeResolver{})

	ids := domain.IdentitySet{Emails: []string{"buyer@example.com"}}
	candidates, err := svc.MatchTier(context.Background(), "42", ids, TierDirect)

	require.NoError(t, err)
	require.Len(t, candidates, 2, "placeholder-only events contribute nothing")
	assert.Equal(t, "a1", candidates[0].AdID)
	assert.Equal(t, int64(1700000000), candidates[0].Timestamp, "millisecond stamp normalized")
	assert.Equal(t, "1.2.3.4", candidates[0].IP)
	assert.Equal(t, "a2", candidates[1].AdID)
	assert.Equal(t, "5.6.7.8", candidates[1].IP, "nested contact ip used as fallback")
}

func TestMatchTierDirectLookupFailureIsPartial(t *testing.T) {
	funnel := &fakeFunnel{eventsErr: assert.AnError}
	svc := newTestService(&fakeOrders{}, funnel, &fakeStore{}, &fakeResolver{})

	ids := domain.IdentitySet{Emails: []string{"buyer@example.com"}}
	candidates, err := svc.MatchTier(context.Background(), "42", ids, TierDirect)

	require.NoError(t, err, "a failed identity lookup never fails the tier")
	assert.Empty(t, candidates)
}

func TestMatchTierIPCorrelated(t *testing.T) {
	funnel := &fakeFunnel{eventsByEmail: map[string][]domain.FunnelEvent{
		"buyer@example.com": {
			{IP: "1.2.3.4", UpdatedAtUnix: 1700000000}, // no ad id, still contributes its IP
		},
	}}
	store := &fakeStore{docs: []fakeDoc{
		{
			collection: "events",
			fields:     map[string]string{"ipv4": "1.2.3.4", "ipv6": "2001:db8::1"},
			raw:        domain.SiteEvent{IPv4: "1.2.3.4", IPv6: "2001:db8::1", AdID: "a9", CreatedAtUnix: 1700000000},
		},
		{
			collection: "events",
			fields:     map[string]string{"ipv6": "2001:db8::1"},
			raw:        domain.SiteEvent{IPv6: "2001:db8::1", FBAdID: "a10", UTCUnixTime: 1700005000},
		},
	}}
	svc := newTestService(&fakeOrders{}, funnel, store, &fakeResolver{})

	ids := domain.IdentitySet{Emails: []string{"buyer@example.com"}}
	candidates, err := svc.MatchTier(context.Background(), "42", ids, TierIPCorrelated)

	require.NoError(t, err)
	// The v6 address discovered through widening surfaces the second event.
	require.GreaterOrEqual(t, len(candidates), 2)
	assert.Equal(t, "a10", candidates[0].AdID, "newest site event first")

	ranked := Rank(candidates)
	require.Len(t, ranked, 2)
	assert.Equal(t, "a10", ranked[0].AdID)
	assert.Equal(t, "a9", ranked[1].AdID)
}
