package facebook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// AdCache reads the tenant's locally synced advertisement records out of
// redis. The cache is populated by a separate sync job; this layer is
// strictly read-only.
type AdCache struct {
	rdb *redis.Client
}

// NewAdCache creates a cache reader over the given redis client.
func NewAdCache(rdb *redis.Client) *AdCache { return &AdCache{rdb: rdb} }

// cacheKey namespaces synced ads per tenant.
func cacheKey(tenantID, adID string) string {
	return fmt.Sprintf("fb:ads:%s:%s", tenantID, adID)
}

// Get looks up a synced ad by id. A miss returns ok=false and no error.
func (c *AdCache) Get(ctx context.Context, tenantID, adID string) (AdRaw, bool, error) {
	if c == nil || c.rdb == nil {
		return AdRaw{}, false, nil
	}
	raw, err := c.rdb.Get(ctx, cacheKey(tenantID, adID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return AdRaw{}, false, nil
	}
	if err != nil {
		return AdRaw{}, false, fmt.Errorf("facebook: cache get: %w", err)
	}
	var ad AdRaw
	if err := json.Unmarshal(raw, &ad); err != nil {
		return AdRaw{}, false, fmt.Errorf("facebook: cache decode: %w", err)
	}
	return ad, !ad.Empty(), nil
}
