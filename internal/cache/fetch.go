package cache

import (
	"encoding/json"
	"time"
)

// GetOrFetch memoizes the result of fetch under key for ttl.
//
// Values cross the cache boundary as marshaled JSON, so typed payloads
// survive any backend: the memory cache holds the bytes as-is, Redis stores
// them verbatim, and a hit decodes back into T. A stored entry that no
// longer decodes into T counts as a miss and is refetched.
//
// A cached value younger than its TTL is returned without invoking fetch,
// which gives at most one fetch per TTL window for a given key. A ttl of
// zero (or less) bypasses the cache entirely: fetch runs every time and the
// result is not stored. Fetch failures are never cached, so a previous good
// entry stays readable until its own TTL expires.
//
// The boolean result reports whether the value came from the cache.
func GetOrFetch[T any](c Cache, key string, ttl time.Duration, force bool, fetch func() (T, error)) (T, bool, error) {
	if c != nil && ttl > 0 && !force {
		if v, ok := c.Get(key); ok {
			if data, ok := v.([]byte); ok {
				var out T
				if err := json.Unmarshal(data, &out); err == nil {
					return out, true, nil
				}
			}
		}
	}

	v, err := fetch()
	if err != nil {
		var zero T
		return zero, false, err
	}

	if c != nil && ttl > 0 {
		if data, err := json.Marshal(v); err == nil {
			c.SetWithTTL(key, data, ttl)
		}
	}
	return v, false, nil
}
