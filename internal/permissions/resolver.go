package permissions

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pharmadesk/pharmadesk-backend/pkg/db/models"
	"github.com/pharmadesk/pharmadesk-backend/pkg/logger"
	"github.com/pharmadesk/pharmadesk-backend/pkg/metrics"
	pkgpermissions "github.com/pharmadesk/pharmadesk-backend/pkg/permissions"
)

type staffLookup interface {
	LookupActiveStaff(ctx context.Context, userID, pharmacyID uuid.UUID) (*models.StaffRecord, int64, error)
	ListGrants(ctx context.Context, staffID uuid.UUID) ([]models.PermissionGrant, error)
}

// Resolver computes the effective permission set for a (user, pharmacy)
// pair. Lookup failures degrade to an empty set (fail closed) instead of
// surfacing an error to the caller.
type Resolver struct {
	staff   staffLookup
	cache   Cache
	logg    *logger.Logger
	metrics *metrics.AuthzMetrics
}

// NewResolver builds a resolver with the provided staff lookup and cache.
func NewResolver(staff staffLookup, cache Cache, logg *logger.Logger, authz *metrics.AuthzMetrics) (*Resolver, error) {
	if staff == nil {
		return nil, fmt.Errorf("staff lookup is required")
	}
	if cache == nil {
		return nil, fmt.Errorf("cache is required")
	}
	return &Resolver{staff: staff, cache: cache, logg: logg, metrics: authz}, nil
}

// Resolve returns the effective access for the pair, consulting the cache
// first. Cache read failures count as a miss.
func (r *Resolver) Resolve(ctx context.Context, userID, pharmacyID uuid.UUID) Access {
	access, ok, err := r.cache.Get(ctx, userID, pharmacyID)
	if err != nil {
		r.logError(ctx, "permissions.cache.read_failed", err)
	} else if ok {
		r.metrics.IncCacheHit(cacheBackend(r.cache))
		return access
	}
	r.metrics.IncCacheMiss(cacheBackend(r.cache))

	return r.Refresh(ctx, userID, pharmacyID)
}

// Refresh recomputes the access from the datastore, bypassing the cache,
// and stores the result when resolution succeeded.
func (r *Resolver) Refresh(ctx context.Context, userID, pharmacyID uuid.UUID) Access {
	access, resolved := r.resolve(ctx, userID, pharmacyID)
	if resolved {
		if err := r.cache.Put(ctx, userID, pharmacyID, access); err != nil {
			r.logError(ctx, "permissions.cache.write_failed", err)
		}
	}
	return access
}

// Invalidate drops the cached entry for the pair. Called after every staff
// mutation and on logout so no stale set leaks into the next session.
func (r *Resolver) Invalidate(ctx context.Context, userID, pharmacyID uuid.UUID) {
	if err := r.cache.Invalidate(ctx, userID, pharmacyID); err != nil {
		r.logError(ctx, "permissions.cache.invalidate_failed", err)
	}
}

// resolve reports whether the result came from a successful resolution.
// Degraded results from lookup errors are returned but never cached, so a
// transient outage does not pin a user to an empty set.
func (r *Resolver) resolve(ctx context.Context, userID, pharmacyID uuid.UUID) (Access, bool) {
	record, activeCount, err := r.staff.LookupActiveStaff(ctx, userID, pharmacyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Access{}, true
		}
		r.logError(ctx, "permissions.staff_lookup_failed", err)
		return Access{}, false
	}

	if activeCount > 1 && r.logg != nil {
		fields := map[string]any{
			"user_id":      userID.String(),
			"pharmacy_id":  pharmacyID.String(),
			"active_count": activeCount,
		}
		r.logg.Warn(r.logg.WithFields(ctx, fields), "permissions.duplicate_active_staff")
	}

	if record.Role.IsPrivileged() {
		return fullAccess(record.Role), true
	}

	grants, err := r.staff.ListGrants(ctx, record.ID)
	if err != nil {
		r.logError(ctx, "permissions.grant_lookup_failed", err)
		return Access{Role: record.Role, Keys: map[pkgpermissions.Key]struct{}{}}, false
	}

	keys := make([]pkgpermissions.Key, 0, len(grants))
	for _, grant := range grants {
		if !grant.IsGranted {
			continue
		}
		key, err := pkgpermissions.ParseKey(grant.PermissionKey)
		if err != nil {
			// Unknown keys at the data boundary are dropped, not errors.
			continue
		}
		keys = append(keys, key)
	}
	return accessWithKeys(record.Role, keys), true
}

func (r *Resolver) logError(ctx context.Context, msg string, err error) {
	if r.logg == nil {
		return
	}
	r.logg.Error(ctx, msg, err)
}

func cacheBackend(cache Cache) string {
	switch cache.(type) {
	case *MemoryCache:
		return "memory"
	case *RedisCache:
		return "redis"
	default:
		return "unknown"
	}
}
