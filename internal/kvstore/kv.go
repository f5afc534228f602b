// Package kvstore provides the key-value storage behind client state.
package kvstore

import (
	"context"
	"strings"
)

// KV is a flat byte store with prefix listing.
type KV interface {
	// Get returns the value and whether the key exists.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes keys. Missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error
	// Keys lists keys starting with prefix in lexical order.
	Keys(ctx context.Context, prefix string) ([]string, error)
	Close() error
}

// Open selects a backend by URL:
//
//	memory://              in-process map
//	redis://host:6379/0    redis
//	anything else          sqlite file path or DSN
func Open(url string) (KV, error) {
	switch {
	case url == "" || strings.HasPrefix(url, "memory://"):
		return NewMemory(), nil
	case strings.HasPrefix(url, "redis://"), strings.HasPrefix(url, "rediss://"):
		return NewRedis(url)
	default:
		return NewSQLite(url)
	}
}
