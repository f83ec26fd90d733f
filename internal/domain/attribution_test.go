package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCandidateValid(t *testing.T) {
	assert.True(t, Candidate{AdID: "a1"}.Valid())
	assert.False(t, Candidate{}.Valid())
	assert.False(t, Candidate{AdID: PlaceholderAdID}.Valid())
}

func TestAdMetadataUsable(t *testing.T) {
	assert.True(t, AdMetadata{AdID: "a1", AdName: "Promo"}.Usable())
	assert.False(t, AdMetadata{}.Usable(), "not-found result")
	assert.False(t, AdMetadata{AdID: "a1", Err: true}.Usable(), "sentinel")
}

func TestAttributionResultMerge(t *testing.T) {
	base := AttributionResult{
		Email:          "Buyer@Example.com",
		LowerCaseEmail: "buyer@example.com",
		Stats:          Stats{Sales: 1, Revenue: 10},
		Ads:            []AdMetadata{{AdID: "a1"}, {AdID: "a2"}},
	}
	other := AttributionResult{
		Stats: Stats{Sales: 3, Revenue: 45},
		Ads:   []AdMetadata{{AdID: "a2", AdName: "dupe"}, {AdID: "a3"}},
	}

	merged := base.Merge(other)

	assert.Equal(t, "buyer@example.com", merged.LowerCaseEmail)
	assert.Equal(t, 3, merged.Stats.Sales)

	require.Len(t, merged.Ads, 3)
	assert.Equal(t, "a1", merged.Ads[0].AdID)
	assert.Equal(t, "a2", merged.Ads[1].AdID)
	assert.Empty(t, merged.Ads[1].AdName, "first occurrence wins")
	assert.Equal(t, "a3", merged.Ads[2].AdID)
}

func TestEmptyReport(t *testing.T) {
	r := EmptyReport("42", "2024-03-01")
	assert.NotNil(t, r.Customers)
	assert.Empty(t, r.Customers)
	assert.Equal(t, "42", r.TenantID)
	assert.Equal(t, "2024-03-01", r.Date)
}
