package permissions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"

	"github.com/pharmadesk/pharmadesk-backend/pkg/enums"
	pkgpermissions "github.com/pharmadesk/pharmadesk-backend/pkg/permissions"
)

type redisStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

type redisKeyer interface {
	PermissionCacheKey(userID, pharmacyID string) string
}

// RedisCache stores resolved Access values in Redis with a TTL so entries
// age out even when an invalidation is missed (e.g. a write from another
// instance).
type RedisCache struct {
	store redisStore
	keyer redisKeyer
	ttl   time.Duration
}

// NewRedisCache builds a Cache backed by the shared Redis client.
func NewRedisCache(store redisStore, keyer redisKeyer, ttl time.Duration) (*RedisCache, error) {
	if store == nil {
		return nil, fmt.Errorf("redis store is required")
	}
	if keyer == nil {
		return nil, fmt.Errorf("redis keyer is required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("cache ttl must be positive")
	}
	return &RedisCache{store: store, keyer: keyer, ttl: ttl}, nil
}

type cachedAccess struct {
	Role string   `json:"role"`
	Keys []string `json:"keys"`
}

// Get returns the cached access for the pair, if present.
func (c *RedisCache) Get(ctx context.Context, userID, pharmacyID uuid.UUID) (Access, bool, error) {
	raw, err := c.store.Get(ctx, c.keyer.PermissionCacheKey(userID.String(), pharmacyID.String()))
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return Access{}, false, nil
		}
		return Access{}, false, err
	}

	var payload cachedAccess
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return Access{}, false, fmt.Errorf("decode cached access: %w", err)
	}

	access := Access{Keys: make(map[pkgpermissions.Key]struct{}, len(payload.Keys))}
	if payload.Role != "" {
		role, err := enums.ParseStaffRole(payload.Role)
		if err != nil {
			return Access{}, false, err
		}
		access.Role = role
	}
	for _, raw := range payload.Keys {
		key, err := pkgpermissions.ParseKey(raw)
		if err != nil {
			continue
		}
		access.Keys[key] = struct{}{}
	}
	return access, true, nil
}

// Put stores the access for the pair with the configured TTL.
func (c *RedisCache) Put(ctx context.Context, userID, pharmacyID uuid.UUID, access Access) error {
	payload := cachedAccess{Role: string(access.Role)}
	for _, key := range access.KeyList() {
		payload.Keys = append(payload.Keys, string(key))
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode cached access: %w", err)
	}
	return c.store.Set(ctx, c.keyer.PermissionCacheKey(userID.String(), pharmacyID.String()), string(encoded), c.ttl)
}

// Invalidate drops the entry for the pair.
func (c *RedisCache) Invalidate(ctx context.Context, userID, pharmacyID uuid.UUID) error {
	return c.store.Del(ctx, c.keyer.PermissionCacheKey(userID.String(), pharmacyID.String()))
}
