package auth

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/civic-report-service/internal/domain"
	"github.com/spec-kit/civic-report-service/internal/repository"
)

const roleKeyPrefix = "role/"

// CachedRole is a best-effort role lookup result. Stale means the value
// came from the cache and an authoritative refresh is still in flight.
type CachedRole struct {
	Role  domain.Role
	Stale bool
}

// RoleCache serves principal roles from Redis with a short TTL and
// reconciles them against the profiles table in the background. It
// replaces ambient "last known role" state with an explicit staleness
// contract.
type RoleCache struct {
	client   *redis.Client
	profiles repository.ProfileRepository
	ttl      time.Duration
	logger   *zap.Logger
}

// NewRoleCache constructs the cache.
func NewRoleCache(client *redis.Client, profiles repository.ProfileRepository, ttl time.Duration, logger *zap.Logger) *RoleCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RoleCache{client: client, profiles: profiles, ttl: ttl, logger: logger}
}

// Lookup returns the cached role for profileID, falling back to the
// provided role when the cache cannot answer. Cache hits are flagged
// stale and trigger a background refresh; misses resolve synchronously
// against storage.
func (rc *RoleCache) Lookup(ctx context.Context, profileID string, fallback domain.Role) CachedRole {
	if rc.client != nil {
		val, err := rc.client.Get(ctx, roleKeyPrefix+profileID).Result()
		if err == nil && domain.IsValidRole(domain.Role(val)) {
			go rc.refresh(profileID)
			return CachedRole{Role: domain.Role(val), Stale: true}
		}
		if err != nil && !errors.Is(err, redis.Nil) && rc.logger != nil {
			rc.logger.Warn("role cache read failed", zap.Error(err))
		}
	}

	profile, err := rc.profiles.GetByID(ctx, profileID)
	if err != nil {
		return CachedRole{Role: fallback, Stale: true}
	}
	rc.store(ctx, profileID, profile.Role)
	return CachedRole{Role: profile.Role, Stale: false}
}

// Invalidate drops the cached role, forcing the next lookup to storage.
func (rc *RoleCache) Invalidate(ctx context.Context, profileID string) {
	if rc.client == nil {
		return
	}
	if err := rc.client.Del(ctx, roleKeyPrefix+profileID).Err(); err != nil && rc.logger != nil {
		rc.logger.Warn("role cache invalidate failed", zap.Error(err))
	}
}

func (rc *RoleCache) refresh(profileID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	profile, err := rc.profiles.GetByID(ctx, profileID)
	if err != nil {
		if rc.logger != nil {
			rc.logger.Warn("role refresh failed", zap.String("profile_id", profileID), zap.Error(err))
		}
		return
	}
	rc.store(ctx, profileID, profile.Role)
}

func (rc *RoleCache) store(ctx context.Context, profileID string, role domain.Role) {
	if rc.client == nil {
		return
	}
	if err := rc.client.Set(ctx, roleKeyPrefix+profileID, string(role), rc.ttl).Err(); err != nil && rc.logger != nil {
		rc.logger.Warn("role cache write failed", zap.Error(err))
	}
}
