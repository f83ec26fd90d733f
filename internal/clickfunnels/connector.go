// Package clickfunnels is the funnel-tool connector. It exposes the queries
// the attribution engine needs: funnel events by identity field and the user
// cross-reference registry used for identity expansion.
package clickfunnels

import (
	"context"
	"fmt"

	"github.com/ignite/roas-attribution/internal/domain"
	"github.com/ignite/roas-attribution/internal/eventstore"
)

const (
	eventsCollection = "clickfunnels"
	usersCollection  = "users"
)

// UserRecord is one row of the funnel tool's user cross-reference table.
// IDs holds every identity (email or IP) the tool has linked to the user.
type UserRecord struct {
	IDs []string `json:"ids"`
}

// Connector queries funnel-tool documents out of the event store.
type Connector struct {
	store eventstore.Store
}

// New creates a funnel-tool connector over the given document store.
func New(store eventstore.Store) *Connector { return &Connector{store: store} }

// EventsByEmail returns the tenant's funnel events recorded for an email.
// The lookup is case-sensitive; callers query seed variants themselves.
func (c *Connector) EventsByEmail(ctx context.Context, tenantID, email string) ([]domain.FunnelEvent, error) {
	if email == "" {
		return nil, fmt.Errorf("clickfunnels: events by email: no email")
	}
	if tenantID == "" {
		return nil, fmt.Errorf("clickfunnels: events by email: no tenant id")
	}
	return eventstore.FindAs[domain.FunnelEvent](ctx, c.store, eventsCollection,
		eventstore.Eq("user_id", tenantID),
		eventstore.Eq("email", email),
	)
}

// EventsByIP returns the tenant's funnel events recorded for a visitor IP.
func (c *Connector) EventsByIP(ctx context.Context, tenantID, ip string) ([]domain.FunnelEvent, error) {
	if ip == "" {
		return nil, fmt.Errorf("clickfunnels: events by ip: no ip")
	}
	if tenantID == "" {
		return nil, fmt.Errorf("clickfunnels: events by ip: no tenant id")
	}
	return eventstore.FindAs[domain.FunnelEvent](ctx, c.store, eventsCollection,
		eventstore.Eq("user_id", tenantID),
		eventstore.Eq("ip", ip),
	)
}

// UsersByIdentity returns every user record whose identity array contains
// any of the given identities. Identities are deduplicated before querying;
// an empty input degrades to an empty result, not an error.
func (c *Connector) UsersByIdentity(ctx context.Context, tenantID string, identities []string) ([]UserRecord, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("clickfunnels: users by identity: no tenant id")
	}
	var records []UserRecord
	for _, id := range domain.Dedup(identities) {
		found, err := eventstore.FindAs[UserRecord](ctx, c.store, usersCollection,
			eventstore.ArrayContains("ids", id),
		)
		if err != nil {
			return nil, err
		}
		records = append(records, found...)
	}
	return records, nil
}
