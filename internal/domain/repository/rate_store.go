package repository

import "time"

// RateStore is the expiring key-value store resolved rates are cached in.
// Values are opaque bytes; entries disappear once their TTL elapses.
type RateStore interface {
	// Get returns the value stored under key, or ok=false if the key is
	// absent or expired.
	Get(key string) ([]byte, bool, error)

	// Set stores value under key for the given TTL. A zero TTL keeps the
	// entry until it is overwritten.
	Set(key string, value []byte, ttl time.Duration) error
}
