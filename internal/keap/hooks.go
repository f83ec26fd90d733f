package keap

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// SubscribableEvents are the Keap REST hook event keys the platform
// subscribes to for order/subscription change notifications.
var SubscribableEvents = []string{
	"subscription.add", "subscription.delete", "subscription.edit",
	"order.add", "order.edit", "order.delete",
}

// ListHookEventKeys returns the hook event keys the tenant's Keap account
// can subscribe to.
func (c *Client) ListHookEventKeys(ctx context.Context, tenantID string) ([]string, error) {
	ts, err := c.tokenSource(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	respBody, err := c.doRequest(ctx, ts, http.MethodGet, c.baseURL+"/hooks/event_keys", nil)
	if err != nil {
		return nil, err
	}

	var parsed hookEventKeysResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		// Some account versions return a bare array
		var keys []string
		if err2 := json.Unmarshal(respBody, &keys); err2 == nil {
			return keys, nil
		}
		return nil, fmt.Errorf("keap: parse event keys: %w", err)
	}
	return parsed.EventKeys, nil
}

// SubscribeHook registers a hook subscription for the tenant through the
// platform webhook relay, which terminates Keap's callback verification.
func (c *Client) SubscribeHook(ctx context.Context, tenantID, hookName string) error {
	if hookName == "" {
		return fmt.Errorf("keap: subscribe hook: no hook name")
	}
	if c.hookRelayURL == "" {
		return fmt.Errorf("keap: subscribe hook: no hook relay configured")
	}
	ts, err := c.tokenSource(ctx, tenantID)
	if err != nil {
		return err
	}
	tok, err := ts.Token()
	if err != nil {
		return fmt.Errorf("keap: token: %w", err)
	}

	payload := map[string]string{
		"eventKey":              hookName,
		"hook_subscription_url": c.baseURL + "/hooks",
		"hook_url":              c.hookRelayURL + "/keap_webhook",
		"type":                  "subscribe",
		"user_id":               tenantID,
		"hook_name":             hookName,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("keap: marshal hook body: %w", err)
	}

	url := fmt.Sprintf("%s/keap_webhook/%s", c.hookRelayURL, tenantID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("keap: create hook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	tok.SetAuthHeader(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("keap: hook relay request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("keap: hook relay error (status %d)", resp.StatusCode)
	}
	return nil
}

// VerifyHooks returns the tenant's registered hook subscriptions.
func (c *Client) VerifyHooks(ctx context.Context, tenantID string) ([]Hook, error) {
	ts, err := c.tokenSource(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	respBody, err := c.doRequest(ctx, ts, http.MethodGet, c.baseURL+"/hooks", nil)
	if err != nil {
		return nil, err
	}

	var hooks []Hook
	if err := json.Unmarshal(respBody, &hooks); err != nil {
		return nil, fmt.Errorf("keap: parse hooks: %w", err)
	}
	return hooks, nil
}

// RelayHooks filters hooks down to those pointed at the configured relay.
func (c *Client) RelayHooks(hooks []Hook) []Hook {
	out := make([]Hook, 0, len(hooks))
	for _, h := range hooks {
		if c.hookRelayURL != "" && strings.HasPrefix(h.HookURL, c.hookRelayURL) {
			out = append(out, h)
		}
	}
	return out
}
