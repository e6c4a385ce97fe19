// Package slot provides a small local key-value store. Each key holds one
// opaque string value that is replaced wholesale on every write.
package slot

import "errors"

// ErrQuotaExceeded is returned when a write would grow the store past its quota.
var ErrQuotaExceeded = errors.New("slot quota exceeded")

// Store is a local key-value slot store.
type Store interface {
	// Get returns the value for key and whether it was present.
	Get(key string) (string, bool, error)
	// Set replaces the value held under key.
	Set(key, value string) error
	// Remove deletes key. Removing a missing key is not an error.
	Remove(key string) error
	Close() error
}
