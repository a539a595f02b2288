package directory

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	displayNameKeyPrefix = "payment-web:display_name:"
	displayNameTTL       = 5 * time.Minute
)

// Resolver joins owner identities to display names for the ledger's read
// side, with a redis read-through cache in front of the directory store.
// A nil redis client disables caching; cache failures fall back to the store.
type Resolver struct {
	store Store
	redis *redis.Client
}

func NewResolver(store Store, redisClient *redis.Client) *Resolver {
	return &Resolver{store: store, redis: redisClient}
}

// ResolveDisplayName implements ledger.NameResolver.
func (r *Resolver) ResolveDisplayName(ctx context.Context, ownerID string) (string, error) {
	key := displayNameKeyPrefix + ownerID
	if r.redis != nil {
		if name, err := r.redis.Get(ctx, key).Result(); err == nil && name != "" {
			return name, nil
		}
	}

	user, err := r.store.UserByID(ctx, ownerID)
	if err != nil {
		return "", err
	}
	name := user.DisplayName()

	if r.redis != nil {
		// Cache write failures are non-fatal.
		_ = r.redis.Set(ctx, key, name, displayNameTTL).Err()
	}
	return name, nil
}

// Invalidate drops a cached display name, called after profile updates.
func (r *Resolver) Invalidate(ctx context.Context, ownerID string) {
	if r.redis == nil {
		return
	}
	_ = r.redis.Del(ctx, displayNameKeyPrefix+ownerID).Err()
}
