// internal/accountlink/cache.go
package accountlink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/GreenfieldMC/GreenbotTwo-sub000/internal/verify"
)

const identityKeyPrefix = "greenbot:verified:"

// IdentityCache memoizes a verified-but-not-yet-linked identity per
// owner. Entries expire after the configured TTL; an expired entry is
// simply absent, never returned.
type IdentityCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewIdentityCache(rdb *redis.Client, ttl time.Duration) *IdentityCache {
	return &IdentityCache{rdb: rdb, ttl: ttl}
}

// Put stores the verified identity for an owner, replacing any previous
// memo and restarting the TTL.
func (c *IdentityCache) Put(ctx context.Context, ownerID string, identity verify.Identity) error {
	data, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("failed to marshal identity: %w", err)
	}
	if err := c.rdb.Set(ctx, identityKeyPrefix+ownerID, string(data), c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache identity: %w", err)
	}
	return nil
}

// Get returns the owner's memoized identity, or ok=false once the TTL
// elapsed or nothing was stored.
func (c *IdentityCache) Get(ctx context.Context, ownerID string) (*verify.Identity, bool, error) {
	data, err := c.rdb.Get(ctx, identityKeyPrefix+ownerID).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read identity cache: %w", err)
	}

	var identity verify.Identity
	if err := json.Unmarshal(data, &identity); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal cached identity: %w", err)
	}
	return &identity, true, nil
}

// Delete drops the memo, used once the link is durably recorded.
func (c *IdentityCache) Delete(ctx context.Context, ownerID string) error {
	return c.rdb.Del(ctx, identityKeyPrefix+ownerID).Err()
}
