// Package storage persists small JSON documents (history, favorites, wallet)
// under a namespaced key. It is the server-side stand-in for browser local storage.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kickoff-ai/core/pkg/logger"
)

// Well-known keys, without namespace
const (
	KeyHistory    = "history"
	KeyFavorites  = "favorites"
	KeyBalance    = "balance"
	KeyBetHistory = "bet_history"
	KeyAnalysis   = "analysis_report"
)

// ErrNotFound is returned by Get when the key has never been written
var ErrNotFound = errors.New("storage: key not found")

// Store is a flat key-value store. Keys passed in are already namespaced.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

// Namespace prefixes every key before it reaches the underlying Store
type Namespace struct {
	store  Store
	prefix string
	logger *logger.Logger
}

// NewNamespace wraps store so that "history" is written as prefix+"history"
func NewNamespace(store Store, prefix string, log *logger.Logger) *Namespace {
	if log == nil {
		log = logger.Nop()
	}
	return &Namespace{store: store, prefix: prefix, logger: log}
}

func (n *Namespace) key(key string) string {
	return n.prefix + key
}

// Store returns the underlying driver
func (n *Namespace) Store() Store {
	return n.store
}

func (n *Namespace) Get(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()
	value, err := n.store.Get(ctx, n.key(key))
	if err != nil && !errors.Is(err, ErrNotFound) {
		n.logger.LogStoreOperation("get", n.key(key), time.Since(start), err)
	}
	return value, err
}

func (n *Namespace) Set(ctx context.Context, key string, value []byte) error {
	start := time.Now()
	err := n.store.Set(ctx, n.key(key), value)
	n.logger.LogStoreOperation("set", n.key(key), time.Since(start), err)
	return err
}

func (n *Namespace) Delete(ctx context.Context, key string) error {
	start := time.Now()
	err := n.store.Delete(ctx, n.key(key))
	n.logger.LogStoreOperation("delete", n.key(key), time.Since(start), err)
	return err
}

// GetJSON decodes the value at key into dst. A missing or corrupt value
// leaves dst untouched and reports false; corrupt data is logged, never returned.
func (n *Namespace) GetJSON(ctx context.Context, key string, dst interface{}) bool {
	data, err := n.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			n.logger.Warn().Err(err).Str("action", "store_read_failed").Str("key", key).Msg("Falling back to default value")
		}
		return false
	}

	if err := json.Unmarshal(data, dst); err != nil {
		n.logger.Warn().Err(err).Str("action", "store_corrupt_value").Str("key", key).Msg("Ignoring corrupt stored value")
		return false
	}
	return true
}

// SetJSON encodes value and writes it at key
func (n *Namespace) SetJSON(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	if err := n.Set(ctx, key, data); err != nil {
		return fmt.Errorf("failed to store %s: %w", key, err)
	}
	return nil
}
