package facebook

import "github.com/ignite/roas-attribution/internal/domain"

// Config holds advertisement platform API settings.
type Config struct {
	BaseURL     string `yaml:"base_url"`
	APIVersion  string `yaml:"api_version"`
	AccessToken string `yaml:"access_token"`
	TimeoutSecs int    `yaml:"timeout_seconds"`
	// Concurrency bounds the batch resolver's fan-out.
	Concurrency int `yaml:"concurrency"`
}

// AdRaw is the wire/cache shape of an advertisement. Cached ads carry a
// pre-joined Details block from the sync job; ads fetched live from the
// platform carry flat fields plus parent ids the resolver joins itself.
type AdRaw struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	AccountID    string     `json:"account_id"`
	AdsetID      string     `json:"adset_id"`
	AdsetName    string     `json:"adset_name"`
	CampaignID   string     `json:"campaign_id"`
	CampaignName string     `json:"campaign_name"`
	Details      *AdDetails `json:"details,omitempty"`
}

// AdDetails is the pre-joined hierarchy block present on synced cache
// records.
type AdDetails struct {
	AdID         string `json:"ad_id"`
	AdName       string `json:"ad_name"`
	AdsetID      string `json:"adset_id"`
	AdsetName    string `json:"adset_name"`
	CampaignID   string `json:"campaign_id"`
	CampaignName string `json:"campaign_name"`
}

// Empty reports whether the record holds no ad.
func (a AdRaw) Empty() bool { return a.ID == "" && a.Details == nil }

// AdGroupRaw is a fetched adset (ad group).
type AdGroupRaw struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CampaignRaw is a fetched campaign.
type CampaignRaw struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// MetadataFromDetails normalizes a pre-joined cache record into the
// canonical AdMetadata shape.
func MetadataFromDetails(accountID string, d AdDetails) domain.AdMetadata {
	return domain.AdMetadata{
		AccountID:    accountID,
		AdID:         d.AdID,
		AdName:       d.AdName,
		AdsetID:      d.AdsetID,
		AdsetName:    d.AdsetName,
		CampaignID:   d.CampaignID,
		CampaignName: d.CampaignName,
	}
}

// MetadataFromRaw normalizes a live platform record, joined with its parent
// adset and campaign names, into the canonical AdMetadata shape.
func MetadataFromRaw(ad AdRaw, adsetName, campaignName string) domain.AdMetadata {
	return domain.AdMetadata{
		AccountID:    ad.AccountID,
		AdID:         ad.ID,
		AdName:       ad.Name,
		AdsetID:      ad.AdsetID,
		AdsetName:    adsetName,
		CampaignID:   ad.CampaignID,
		CampaignName: campaignName,
	}
}

// Normalize maps either source shape to AdMetadata: records with a Details
// block use the pre-joined constructor, everything else the raw one.
func Normalize(ad AdRaw) domain.AdMetadata {
	if ad.Details != nil {
		return MetadataFromDetails(ad.AccountID, *ad.Details)
	}
	return MetadataFromRaw(ad, ad.AdsetName, ad.CampaignName)
}

// Sentinel builds the error marker record standing in for a failed lookup.
func Sentinel(adID string) domain.AdMetadata {
	return domain.AdMetadata{AdID: adID, Err: true}
}
