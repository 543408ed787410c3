package cache

import "time"

// Cache is the backend behind the per-feed fetch cache. Entries carry their
// own TTL; a zero TTL never expires.
type Cache interface {
	Get(key string) (interface{}, bool)
	Set(key string, value interface{})
	SetWithTTL(key string, value interface{}, ttl time.Duration)
	Delete(key string)
	Clear()
}
