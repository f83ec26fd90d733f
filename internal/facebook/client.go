// Package facebook integrates with the advertisement platform: a wire client
// for ad/adset/campaign lookups, a redis-backed cache of synced ads, and the
// cache-first metadata resolver the attribution pipeline calls.
package facebook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ignite/roas-attribution/internal/pkg/httpretry"
)

// Client is the advertisement platform API client.
type Client struct {
	baseURL     string
	accessToken string
	httpClient  httpretry.HTTPDoer
}

// NewClient creates an advertisement platform client.
func NewClient(cfg Config) *Client {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://graph.facebook.com"
	}
	if cfg.APIVersion != "" {
		baseURL = strings.TrimRight(baseURL, "/") + "/" + cfg.APIVersion
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		accessToken: cfg.AccessToken,
		httpClient:  httpretry.New(&http.Client{Timeout: timeout}, 3),
	}
}

// SetHTTPClient sets a custom HTTP client (useful for testing).
func (c *Client) SetHTTPClient(client httpretry.HTTPDoer) { c.httpClient = client }

// doGet performs an authenticated GET and returns the raw body.
func (c *Client) doGet(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if params == nil {
		params = url.Values{}
	}
	if c.accessToken != "" {
		params.Set("access_token", c.accessToken)
	}
	reqURL := c.baseURL + path
	if encoded := params.Encode(); encoded != "" {
		reqURL += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("facebook: create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("facebook: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("facebook: read response: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("facebook: API error (status %d): %s", resp.StatusCode, string(body))
	}
	return body, nil
}

// decodeFirst parses a response that is either a single object or an
// id-keyed map of objects, returning the first value either way.
func decodeFirst[T any](body []byte) (T, bool, error) {
	var zero T
	if len(body) == 0 {
		return zero, false, nil
	}

	var keyed map[string]json.RawMessage
	if err := json.Unmarshal(body, &keyed); err != nil {
		return zero, false, fmt.Errorf("facebook: parse response: %w", err)
	}
	// Single-object responses have an "id" key; fall through to direct decode.
	if _, hasID := keyed["id"]; hasID || len(keyed) == 0 {
		var v T
		if err := json.Unmarshal(body, &v); err != nil {
			return zero, false, fmt.Errorf("facebook: parse response: %w", err)
		}
		return v, len(keyed) > 0, nil
	}
	for _, raw := range keyed {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return zero, false, fmt.Errorf("facebook: parse response: %w", err)
		}
		return v, true, nil
	}
	return zero, false, nil
}

// GetAd fetches an ad by id for the given date and account. A not-found
// returns a zero AdRaw and ok=false, not an error.
func (c *Client) GetAd(ctx context.Context, adID, date, accountID string) (AdRaw, bool, error) {
	if adID == "" {
		return AdRaw{}, false, fmt.Errorf("facebook: get ad: no ad id")
	}
	params := url.Values{}
	params.Set("date", date)
	params.Set("account_id", accountID)
	body, err := c.doGet(ctx, "/ads/"+url.PathEscape(adID), params)
	if err != nil {
		return AdRaw{}, false, err
	}
	ad, ok, err := decodeFirst[AdRaw](body)
	if err != nil || !ok {
		return AdRaw{}, false, err
	}
	return ad, ad.ID != "", nil
}

// GetAdGroup fetches an adset (ad group) by id.
func (c *Client) GetAdGroup(ctx context.Context, adsetID, date, accountID string) (AdGroupRaw, error) {
	if adsetID == "" {
		return AdGroupRaw{}, fmt.Errorf("facebook: get adset: no adset id")
	}
	params := url.Values{}
	params.Set("date", date)
	params.Set("account_id", accountID)
	body, err := c.doGet(ctx, "/adsets/"+url.PathEscape(adsetID), params)
	if err != nil {
		return AdGroupRaw{}, err
	}
	group, _, err := decodeFirst[AdGroupRaw](body)
	return group, err
}

// GetCampaign fetches a campaign by id.
func (c *Client) GetCampaign(ctx context.Context, campaignID, date, accountID string) (CampaignRaw, error) {
	if campaignID == "" {
		return CampaignRaw{}, fmt.Errorf("facebook: get campaign: no campaign id")
	}
	params := url.Values{}
	params.Set("date", date)
	params.Set("account_id", accountID)
	body, err := c.doGet(ctx, "/campaigns/"+url.PathEscape(campaignID), params)
	if err != nil {
		return CampaignRaw{}, err
	}
	campaign, _, err := decodeFirst[CampaignRaw](body)
	return campaign, err
}
