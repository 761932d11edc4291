package cache

import (
	"fmt"

	"github.com/crm/dashboard/internal/domain/purchase"
	"github.com/crm/dashboard/internal/infrastructure/config"
	"go.uber.org/zap"
)

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// PurchaseStoreFactory creates purchase stores backed by Redis or memory
type PurchaseStoreFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// PurchaseStoreFactoryOption is a functional option for configuring the factory
type PurchaseStoreFactoryOption func(*PurchaseStoreFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) PurchaseStoreFactoryOption {
	return func(f *PurchaseStoreFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether CreateStore falls back to memory when Redis is unavailable
func WithInMemoryFallback(allow bool) PurchaseStoreFactoryOption {
	return func(f *PurchaseStoreFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewPurchaseStoreFactory creates a new factory
func NewPurchaseStoreFactory(cfg config.RedisConfig, opts ...PurchaseStoreFactoryOption) *PurchaseStoreFactory {
	f := &PurchaseStoreFactory{
		redisConfig: cfg,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateRedisStore creates a Redis-backed store
func (f *PurchaseStoreFactory) CreateRedisStore() (*RedisPurchaseStore, error) {
	store, err := NewRedisPurchaseStore(RedisConfig{
		Host:     f.redisConfig.Host,
		Port:     f.redisConfig.Port,
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis purchase store: %w", err)
	}
	return store, nil
}

// CreateInMemoryStore creates a process-local store
func (f *PurchaseStoreFactory) CreateInMemoryStore() *InMemoryPurchaseStore {
	return NewInMemoryPurchaseStore()
}

// CreateStore tries Redis first and, when allowed, falls back to memory
func (f *PurchaseStoreFactory) CreateStore() (purchase.Repository, error) {
	store, err := f.CreateRedisStore()
	if err == nil {
		f.logger.Info("Using Redis purchase store", zap.String("addr", f.redisConfig.Addr()))
		return store, nil
	}
	if !f.allowInMemoryFallback {
		return nil, err
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory purchase store", zap.Error(err))
	return f.CreateInMemoryStore(), nil
}
