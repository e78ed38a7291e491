package storage

import "context"

const (
	// DefaultRecentLimit is the page size of Recent when the caller gives none.
	DefaultRecentLimit = 50
	// MaxRecentLimit caps Recent.
	MaxRecentLimit = 500
)

// Config - ...
type Config struct {
	DSN string
}

// AuditRepository - journal of mutating gateway operations
type AuditRepository interface {
	Record(ctx context.Context, entry *Entry) error
	Recent(ctx context.Context, limit int) ([]*Entry, error)
	CleanOldEntries(ctx context.Context, expiration int) (int, error)
	Close()
}

// ClampLimit keeps limit within 1..MaxRecentLimit, defaulting non-positive values.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultRecentLimit
	}
	if limit > MaxRecentLimit {
		return MaxRecentLimit
	}
	return limit
}
