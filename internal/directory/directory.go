package directory

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// User is what the directory knows about a chat user.
type User struct {
	ID          string
	DisplayName string
	Email       string
}

// Resolver looks up a user by id.
type Resolver interface {
	ResolveUser(ctx context.Context, userID string) (User, error)
}

// CachedResolver memoizes successful lookups of another Resolver for a TTL.
// Failed lookups are not cached.
type CachedResolver struct {
	next  Resolver
	cache *cache.Cache
	ttl   time.Duration
}

// NewCachedResolver wraps next with a cache of the given TTL.
func NewCachedResolver(next Resolver, ttl time.Duration) *CachedResolver {
	return &CachedResolver{
		next:  next,
		cache: cache.New(ttl, 2*ttl),
		ttl:   ttl,
	}
}

// ResolveUser returns the cached entry or asks the wrapped resolver.
func (c *CachedResolver) ResolveUser(ctx context.Context, userID string) (User, error) {
	if u, found := c.cache.Get(userID); found {
		return u.(User), nil
	}

	u, err := c.next.ResolveUser(ctx, userID)
	if err != nil {
		return User{}, err
	}
	c.cache.Set(userID, u, c.ttl)
	return u, nil
}
