package domain

// Candidate is an extracted, not-yet-ranked advertisement identifier with
// its supporting timestamp and IP evidence.
type Candidate struct {
	AdID      string `json:"ad_id"`
	Timestamp int64  `json:"timestamp"`
	IP        string `json:"ip,omitempty"`
}

// Valid reports whether the candidate carries a usable ad id.
func (c Candidate) Valid() bool {
	return c.AdID != "" && c.AdID != PlaceholderAdID
}

// AdMetadata is the enriched ad/adset/campaign hierarchy for one ad.
// Two source shapes (the pre-joined cache shape and the raw platform shape)
// both normalize into this structure.
type AdMetadata struct {
	AccountID    string `json:"account_id,omitempty"`
	AdID         string `json:"ad_id"`
	AdName       string `json:"ad_name,omitempty"`
	AdsetID      string `json:"adset_id,omitempty"`
	AdsetName    string `json:"adset_name,omitempty"`
	CampaignID   string `json:"campaign_id,omitempty"`
	CampaignName string `json:"campaign_name,omitempty"`

	// Timestamp of the originating evidence event, stamped by the assembler.
	Timestamp int64 `json:"timestamp,omitempty"`

	// Err marks a sentinel record standing in for a failed lookup.
	// Sentinels are filtered out before the report is assembled.
	Err bool `json:"error,omitempty"`
}

// Empty reports whether the record carries no data (a not-found result).
func (m AdMetadata) Empty() bool {
	return m.AdID == "" && m.AdName == "" && m.CampaignID == "" && !m.Err
}

// Usable reports whether the record should appear in a customer's ads list.
func (m AdMetadata) Usable() bool { return !m.Empty() && !m.Err }

// AttributionResult is the per-customer unit persisted into the report.
type AttributionResult struct {
	Email          string       `json:"email"`
	LowerCaseEmail string       `json:"lower_case_email"`
	Cart           []LineItem   `json:"cart"`
	Stats          Stats        `json:"stats"`
	Ads            []AdMetadata `json:"ads"`
}

// Merge shallow-merges other into the result: non-zero scalar fields of
// other win, and other's ads are appended with ad ids kept unique
// (first occurrence wins).
func (r AttributionResult) Merge(other AttributionResult) AttributionResult {
	merged := r
	if other.Email != "" {
		merged.Email = other.Email
	}
	if other.LowerCaseEmail != "" {
		merged.LowerCaseEmail = other.LowerCaseEmail
	}
	if len(other.Cart) > 0 {
		merged.Cart = other.Cart
	}
	if other.Stats != (Stats{}) {
		merged.Stats = other.Stats
	}
	seen := make(map[string]bool, len(merged.Ads))
	for _, ad := range merged.Ads {
		seen[ad.AdID] = true
	}
	for _, ad := range other.Ads {
		if !seen[ad.AdID] {
			seen[ad.AdID] = true
			merged.Ads = append(merged.Ads, ad)
		}
	}
	return merged
}

// Report is the final per-date attribution output, keyed by normalized email.
// Customers with zero resolved ads are absent.
type Report struct {
	Customers map[string]AttributionResult `json:"customers"`
	Date      string                       `json:"date"`
	TenantID  string                       `json:"tenant_id"`
}

// EmptyReport returns the default report emitted when a pipeline fails
// before producing customers.
func EmptyReport(tenantID, date string) Report {
	return Report{Customers: map[string]AttributionResult{}, Date: date, TenantID: tenantID}
}
