package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/crm/dashboard/internal/domain/purchase"
	"github.com/crm/dashboard/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const defaultPurchaseKeyPrefix = "crm:purchases:"

// RedisPurchaseStore implements purchase.Repository on Redis.
// Each purchase is a JSON string key; a sorted set scored by creation time
// provides newest-first ordering.
type RedisPurchaseStore struct {
	client    *redis.Client
	keyPrefix string
}

// purchaseRecord is the JSON document stored per purchase
type purchaseRecord struct {
	ID          uuid.UUID       `json:"id"`
	Number      string          `json:"purchase_number"`
	Supplier    string          `json:"supplier"`
	ProductName string          `json:"product_name"`
	Quantity    int64           `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Currency    string          `json:"currency"`
	Status      string          `json:"status"`
	Notes       string          `json:"notes"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func recordFromDomain(p *purchase.Purchase) purchaseRecord {
	return purchaseRecord{
		ID:          p.ID,
		Number:      p.Number,
		Supplier:    p.Supplier,
		ProductName: p.ProductName,
		Quantity:    p.Quantity,
		UnitPrice:   p.UnitPrice,
		TotalAmount: p.TotalAmount,
		Currency:    p.Currency,
		Status:      p.Status.String(),
		Notes:       p.Notes,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func (r purchaseRecord) toDomain() *purchase.Purchase {
	return &purchase.Purchase{
		Entity: shared.Entity{
			ID:        r.ID,
			CreatedAt: r.CreatedAt,
			UpdatedAt: r.UpdatedAt,
		},
		Number:      r.Number,
		Supplier:    r.Supplier,
		ProductName: r.ProductName,
		Quantity:    r.Quantity,
		UnitPrice:   r.UnitPrice,
		TotalAmount: r.TotalAmount,
		Currency:    r.Currency,
		Status:      purchase.Status(r.Status),
		Notes:       r.Notes,
	}
}

// NewRedisPurchaseStore creates a store connected to cfg and verifies the connection
func NewRedisPurchaseStore(cfg RedisConfig) (*RedisPurchaseStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisPurchaseStoreWithClient(client, ""), nil
}

// NewRedisPurchaseStoreWithClient creates a store with an existing Redis client
func NewRedisPurchaseStoreWithClient(client *redis.Client, keyPrefix string) *RedisPurchaseStore {
	if keyPrefix == "" {
		keyPrefix = defaultPurchaseKeyPrefix
	}
	return &RedisPurchaseStore{client: client, keyPrefix: keyPrefix}
}

func (s *RedisPurchaseStore) itemKey(id uuid.UUID) string {
	return s.keyPrefix + "item:" + id.String()
}

func (s *RedisPurchaseStore) indexKey() string {
	return s.keyPrefix + "index"
}

// Save writes the document and index entry in one transaction
func (s *RedisPurchaseStore) Save(ctx context.Context, p *purchase.Purchase) error {
	data, err := json.Marshal(recordFromDomain(p))
	if err != nil {
		return fmt.Errorf("failed to encode purchase: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.itemKey(p.ID), data, 0)
		pipe.ZAdd(ctx, s.indexKey(), redis.Z{
			Score:  float64(p.CreatedAt.UnixNano()),
			Member: p.ID.String(),
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save purchase: %w", err)
	}
	return nil
}

// FindByID loads a single purchase
func (s *RedisPurchaseStore) FindByID(ctx context.Context, id uuid.UUID) (*purchase.Purchase, error) {
	data, err := s.client.Get(ctx, s.itemKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, purchase.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load purchase: %w", err)
	}
	return decodePurchase(data)
}

// maxUpdateAttempts bounds optimistic retries when the key changes under WATCH
const maxUpdateAttempts = 5

// Update runs fn between WATCH and MULTI/EXEC on the purchase key. A write by
// another client aborts the EXEC and the update is retried on fresh data.
func (s *RedisPurchaseStore) Update(ctx context.Context, id uuid.UUID, fn purchase.Mutation) (*purchase.Purchase, error) {
	key := s.itemKey(id)
	var result *purchase.Purchase

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return purchase.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to load purchase: %w", err)
		}
		p, err := decodePurchase(data)
		if err != nil {
			return err
		}

		changed, err := fn(p)
		if err != nil {
			return err
		}
		result = p
		if !changed {
			return nil
		}

		encoded, err := json.Marshal(recordFromDomain(p))
		if err != nil {
			return fmt.Errorf("failed to encode purchase: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, 0)
			return nil
		})
		return err
	}

	for range maxUpdateAttempts {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return result, nil
	}
	return nil, purchase.ErrConcurrentUpdate
}

func decodePurchase(data []byte) (*purchase.Purchase, error) {
	var rec purchaseRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode purchase: %w", err)
	}
	return rec.toDomain(), nil
}

// FindAll walks the index newest first and applies the filter
func (s *RedisPurchaseStore) FindAll(ctx context.Context, filter purchase.Filter) ([]*purchase.Purchase, error) {
	ids, err := s.client.ZRevRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read purchase index: %w", err)
	}
	if len(ids) == 0 {
		return []*purchase.Purchase{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.keyPrefix + "item:" + id
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load purchases: %w", err)
	}

	out := make([]*purchase.Purchase, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue // index entry without document
		}
		p, err := decodePurchase([]byte(raw))
		if err != nil {
			return nil, err
		}
		if !filter.Matches(p) {
			continue
		}
		out = append(out, p)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

// Ping checks the Redis connection
func (s *RedisPurchaseStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis client
func (s *RedisPurchaseStore) Close() error {
	return s.client.Close()
}

var _ purchase.Repository = (*RedisPurchaseStore)(nil)
