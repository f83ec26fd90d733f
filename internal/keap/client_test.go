package keap

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/roas-attribution/internal/eventstore"
)

// fakeStore serves stored integration tokens.
type fakeStore struct {
	docs []json.RawMessage
	err  error
}

func (f *fakeStore) Find(ctx context.Context, collection string, filters ...eventstore.Filter) ([]json.RawMessage, error) {
	return f.docs, f.err
}

func (f *fakeStore) FindGroup(ctx context.Context, group string, filters ...eventstore.Filter) ([]json.RawMessage, error) {
	return f.docs, f.err
}

func tokenDocs(tokens ...integrationToken) []json.RawMessage {
	var docs []json.RawMessage
	for _, tok := range tokens {
		raw, _ := json.Marshal(tok)
		docs = append(docs, raw)
	}
	return docs
}

func newTestClient(t *testing.T, store eventstore.Store, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient(Config{BaseURL: srv.URL, HookRelayURL: srv.URL + "/relay"}, store)
	c.SetHTTPClient(srv.Client())
	return c
}

func TestTokenSourcePicksMostRecent(t *testing.T) {
	store := &fakeStore{docs: tokenDocs(
		integrationToken{AccountName: "keap", TenantID: "42", AccessToken: "old", CreatedAt: 100},
		integrationToken{AccountName: "keap", TenantID: "42", AccessToken: "new", CreatedAt: 200},
	)}
	c := NewClient(Config{}, store)

	ts, err := c.tokenSource(context.Background(), "42")
	require.NoError(t, err)

	tok, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "new", tok.AccessToken)
}

func TestTokenSourceNoCredential(t *testing.T) {
	c := NewClient(Config{}, &fakeStore{})
	_, err := c.tokenSource(context.Background(), "42")
	assert.Error(t, err)
}

func TestAttributionWindow(t *testing.T) {
	since, until, err := attributionWindow("2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01T08:00:00.000Z", since)
	assert.Equal(t, "2024-03-02T08:00:00.000Z", until)

	_, _, err = attributionWindow("03/01/2024")
	assert.Error(t, err)
}

func TestListOrders(t *testing.T) {
	store := &fakeStore{docs: tokenDocs(
		integrationToken{AccountName: "keap", TenantID: "42", AccessToken: "tok", CreatedAt: 100},
	)}

	var gotAuth, gotQuery string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.RawQuery
		json.NewEncoder(w).Encode(map[string]any{
			"orders": []map[string]any{
				{
					"status": "PAID",
					"contact": map[string]any{
						"email":      "Buyer@Example.com",
						"first_name": "Pat",
						"last_name":  "Doe",
					},
					"order_items": []map[string]any{
						{"name": "Widget", "price": 10.5},
					},
				},
				{
					"status": "REFUNDED",
					"contact": map[string]any{"email": "Other@Example.com"},
				},
			},
		})
	})

	c := newTestClient(t, store, handler)
	orders, err := c.ListOrders(context.Background(), "42", "2024-03-01")

	require.NoError(t, err)
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Contains(t, gotQuery, "since=2024-03-01T08:00:00.000Z")
	assert.Contains(t, gotQuery, "until=2024-03-02T08:00:00.000Z")

	require.Len(t, orders, 2, "statuses preserved, callers filter paid")
	assert.Equal(t, "Buyer@Example.com", orders[0].Email)
	assert.Equal(t, "buyer@example.com", orders[0].LowerCaseEmail)
	assert.Equal(t, "42", orders[0].TenantID)
	require.Len(t, orders[0].LineItems, 1)
	assert.InDelta(t, 10.5, orders[0].LineItems[0].Price, 0.001)
	assert.Equal(t, "REFUNDED", orders[1].Status)
}

func TestListOrdersValidation(t *testing.T) {
	c := NewClient(Config{}, &fakeStore{})

	_, err := c.ListOrders(context.Background(), "", "2024-03-01")
	assert.Error(t, err)

	_, err = c.ListOrders(context.Background(), "42", "bogus")
	assert.Error(t, err)
}

func TestListHookEventKeysShapes(t *testing.T) {
	store := &fakeStore{docs: tokenDocs(
		integrationToken{AccountName: "keap", TenantID: "42", AccessToken: "tok"},
	)}

	t.Run("object envelope", func(t *testing.T) {
		c := newTestClient(t, store, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{"event_keys": []string{"order.add"}})
		}))
		keys, err := c.ListHookEventKeys(context.Background(), "42")
		require.NoError(t, err)
		assert.Equal(t, []string{"order.add"}, keys)
	})

	t.Run("bare array", func(t *testing.T) {
		c := newTestClient(t, store, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode([]string{"order.add", "order.edit"})
		}))
		keys, err := c.ListHookEventKeys(context.Background(), "42")
		require.NoError(t, err)
		assert.Len(t, keys, 2)
	})
}

func TestRelayHooks(t *testing.T) {
	c := NewClient(Config{HookRelayURL: "https://relay.example.com"}, &fakeStore{})

	hooks := []Hook{
		{Key: "order.add", HookURL: "https://relay.example.com/keap_webhook/42"},
		{Key: "order.edit", HookURL: "https://elsewhere.example.com/hook"},
	}
	kept := c.RelayHooks(hooks)

	require.Len(t, kept, 1)
	assert.Equal(t, "order.add", kept[0].Key)
}

func TestSubscribeHookValidation(t *testing.T) {
	c := NewClient(Config{}, &fakeStore{})

	err := c.SubscribeHook(context.Background(), "42", "")
	assert.Error(t, err)

	err = c.SubscribeHook(context.Background(), "42", "order.add")
	assert.Error(t, err, "no relay configured")
}
