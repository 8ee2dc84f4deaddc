// Package cache is the redis-backed profile view cache. Reads are best
// effort: a cache failure degrades to a store read, never to a request
// failure. Writes that change a profile's trust state invalidate explicitly.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"goodcompany/internal/profile/models"
	id "goodcompany/pkg/domain"
)

const keyPrefix = "goodcompany:profile:view:"

// ViewCache caches marshaled profile views with a TTL.
type ViewCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewViewCache(client *redis.Client, ttl time.Duration) *ViewCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &ViewCache{client: client, ttl: ttl}
}

func key(userID id.UserID) string {
	return keyPrefix + userID.String()
}

// Get returns the cached view and true on a hit.
func (c *ViewCache) Get(ctx context.Context, userID id.UserID) (*models.View, bool, error) {
	raw, err := c.client.Get(ctx, key(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("cache get: %w", err)
	}
	var view models.View
	if err := json.Unmarshal(raw, &view); err != nil {
		// A corrupt entry counts as a miss and gets overwritten by the
		// next Set.
		return nil, false, nil
	}
	return &view, true, nil
}

func (c *ViewCache) Set(ctx context.Context, userID id.UserID, view *models.View) error {
	raw, err := json.Marshal(view)
	if err != nil {
		return fmt.Errorf("cache marshal: %w", err)
	}
	if err := c.client.Set(ctx, key(userID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

func (c *ViewCache) Invalidate(ctx context.Context, userID id.UserID) error {
	if err := c.client.Del(ctx, key(userID)).Err(); err != nil {
		return fmt.Errorf("cache invalidate: %w", err)
	}
	return nil
}
