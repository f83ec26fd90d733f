// Package keap is the order-source connector for Keap (Infusionsoft).
// It resolves tenant OAuth credentials from the integration store, fetches
// purchase orders for an attribution window, and manages REST hook
// subscriptions through the platform webhook relay.
package keap

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/ignite/roas-attribution/internal/domain"
	"github.com/ignite/roas-attribution/internal/eventstore"
	"github.com/ignite/roas-attribution/internal/pkg/httpretry"
)

const integrationsGroup = "integrations"

// Client is the Keap REST API client.
type Client struct {
	baseURL      string
	hookRelayURL string
	store        eventstore.Store
	httpClient   httpretry.HTTPDoer
}

// NewClient creates a Keap client. Credentials are looked up per call from
// the integration store, so one client serves every tenant.
func NewClient(cfg Config, store eventstore.Store) *Client {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.infusionsoft.com/crm/rest/v1"
	}
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		hookRelayURL: strings.TrimRight(cfg.HookRelayURL, "/"),
		store:        store,
		httpClient:   httpretry.New(&http.Client{Timeout: timeout}, 3),
	}
}

// SetHTTPClient sets a custom HTTP client (useful for testing).
func (c *Client) SetHTTPClient(client httpretry.HTTPDoer) { c.httpClient = client }

// tokenSource resolves the tenant's most recently created stored Keap token.
func (c *Client) tokenSource(ctx context.Context, tenantID string) (oauth2.TokenSource, error) {
	docs, err := c.store.FindGroup(ctx, integrationsGroup,
		eventstore.Eq("account_name", "keap"),
		eventstore.Eq("user_id", tenantID),
	)
	if err != nil {
		return nil, fmt.Errorf("keap: token lookup: %w", err)
	}
	tokens := eventstore.Decode[integrationToken](docs)
	if len(tokens) == 0 {
		return nil, fmt.Errorf("keap: no stored token for tenant %s", tenantID)
	}
	sort.Slice(tokens, func(i, j int) bool { return tokens[i].CreatedAt > tokens[j].CreatedAt })
	return oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: tokens[0].AccessToken,
		TokenType:   "Bearer",
	}), nil
}

// doRequest performs an authenticated request against the Keap API.
func (c *Client) doRequest(ctx context.Context, ts oauth2.TokenSource, method, url string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("keap: create request: %w", err)
	}
	tok, err := ts.Token()
	if err != nil {
		return nil, fmt.Errorf("keap: token: %w", err)
	}
	tok.SetAuthHeader(req)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("keap: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("keap: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("keap: API error (status %d): %s", resp.StatusCode, string(respBody))
	}
	return respBody, nil
}

// attributionWindow returns the since/until bounds for a report date.
// The day boundary sits at 08:00Z (midnight Pacific), matching how the
// upstream platform buckets orders.
func attributionWindow(date string) (since, until string, err error) {
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return "", "", fmt.Errorf("keap: invalid date %q: %w", date, err)
	}
	since = day.Format("2006-01-02") + "T08:00:00.000Z"
	until = day.AddDate(0, 0, 1).Format("2006-01-02") + "T08:00:00.000Z"
	return since, until, nil
}

// ListOrders fetches the tenant's orders for the given report date
// (YYYY-MM-DD). Orders come back flattened and normalized: contact fields
// hoisted into the order, lower-case email computed, tenant id attached.
// Statuses are preserved; callers filter paid orders themselves.
func (c *Client) ListOrders(ctx context.Context, tenantID, date string) ([]domain.Order, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("keap: list orders: no tenant id")
	}
	since, until, err := attributionWindow(date)
	if err != nil {
		return nil, err
	}

	ts, err := c.tokenSource(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/orders?since=%s&until=%s", c.baseURL, since, until)
	respBody, err := c.doRequest(ctx, ts, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	var parsed ordersResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("keap: parse orders: %w", err)
	}

	orders := make([]domain.Order, 0, len(parsed.Orders))
	for _, o := range parsed.Orders {
		items := make([]domain.LineItem, 0, len(o.OrderItems))
		for _, item := range o.OrderItems {
			items = append(items, domain.LineItem{Name: item.Name, Price: item.Price})
		}
		orders = append(orders, domain.Order{
			Email:          o.Contact.Email,
			LowerCaseEmail: strings.ToLower(o.Contact.Email),
			FirstName:      o.Contact.FirstName,
			LastName:       o.Contact.LastName,
			TenantID:       tenantID,
			Status:         o.Status,
			LineItems:      items,
		})
	}
	return orders, nil
}
