package cache

import (
	"context"
	"time"
)

// Cache stores JSON values under a namespace. Keys passed to it are
// relative to that namespace.
type Cache interface {
	GetJSON(ctx context.Context, key string, dst any) (hit bool, err error)
	SetJSON(ctx context.Context, key string, val any, ttl time.Duration) error
	// AddJSON stores val only if key is absent and reports whether it did.
	AddJSON(ctx context.Context, key string, val any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	// Key returns the backend key for key, for callers that need WATCH or
	// other raw commands.
	Key(key string) string
}
