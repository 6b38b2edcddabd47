// Package storage provides the durable key-value store used for state that
// must survive restarts but does not warrant its own table, such as the
// upstream session credential.
package storage

import (
	"context"
	"errors"
	"sync"

	"gorm.io/gorm"

	"github.com/example/tillpoint/internal/models"
)

var ErrNotFound = errors.New("storage: key not found")

// KV is a scoped durable key-value store.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

type gormKV struct {
	db    *gorm.DB
	scope string
}

// NewGormKV returns a KV backed by the kv_entries table, namespaced by scope.
func NewGormKV(db *gorm.DB, scope string) KV {
	return &gormKV{db: db, scope: scope}
}

func (s *gormKV) Get(ctx context.Context, key string) ([]byte, error) {
	var entry models.KVEntry
	err := s.db.WithContext(ctx).
		Where("scope = ? AND key = ?", s.scope, key).
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return entry.Value, nil
}

func (s *gormKV) Set(ctx context.Context, key string, value []byte) error {
	var entry models.KVEntry
	err := s.db.WithContext(ctx).
		Where("scope = ? AND key = ?", s.scope, key).
		First(&entry).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		entry = models.KVEntry{Scope: s.scope, Key: key, Value: value}
		return s.db.WithContext(ctx).Create(&entry).Error
	}

	entry.Value = value
	return s.db.WithContext(ctx).Save(&entry).Error
}

func (s *gormKV) Delete(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).
		Where("scope = ? AND key = ?", s.scope, key).
		Delete(&models.KVEntry{}).Error
}

// MemoryKV is an in-memory KV used in tests and when persistence is disabled.
type MemoryKV struct {
	mu     sync.RWMutex
	values map[string][]byte
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{values: make(map[string][]byte)}
}

func (s *MemoryKV) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	return value, nil
}

func (s *MemoryKV) Set(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = append([]byte(nil), value...)
	return nil
}

func (s *MemoryKV) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}
