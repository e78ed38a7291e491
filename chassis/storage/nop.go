package storage

import "context"

// NopRepository discards entries. Used when no DSN is configured.
type NopRepository struct{}

// Record ...
func (NopRepository) Record(context.Context, *Entry) error { return nil }

// Recent ...
func (NopRepository) Recent(context.Context, int) ([]*Entry, error) { return []*Entry{}, nil }

// CleanOldEntries ...
func (NopRepository) CleanOldEntries(context.Context, int) (int, error) { return 0, nil }

// Close ...
func (NopRepository) Close() {}
