package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/crm/dashboard/internal/domain/purchase"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPurchase(t *testing.T, supplier string, created time.Time) *purchase.Purchase {
	t.Helper()
	p, err := purchase.NewPurchase(supplier, "Widget", 1, decimal.NewFromInt(100), "RUB", "")
	require.NoError(t, err)
	p.CreatedAt = created
	p.UpdatedAt = created
	return p
}

func TestInMemoryPurchaseStore_SaveAndFind(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryPurchaseStore()
	p := newPurchase(t, "Acme", time.Now())

	require.NoError(t, store.Save(ctx, p))

	got, err := store.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Number, got.Number)

	got.Supplier = "mutated"
	again, _ := store.FindByID(ctx, p.ID)
	assert.Equal(t, "Acme", again.Supplier)

	_, err = store.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, purchase.ErrNotFound)
}

func TestInMemoryPurchaseStore_FindAll(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryPurchaseStore()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	oldest := newPurchase(t, "A", base)
	middle := newPurchase(t, "B", base.Add(time.Hour))
	newest := newPurchase(t, "C", base.Add(2*time.Hour))
	_, err := middle.ChangeStatus(purchase.StatusApproved)
	require.NoError(t, err)
	for _, p := range []*purchase.Purchase{middle, oldest, newest} {
		require.NoError(t, store.Save(ctx, p))
	}

	all, err := store.FindAll(ctx, purchase.Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"C", "B", "A"}, []string{all[0].Supplier, all[1].Supplier, all[2].Supplier})

	approved, err := store.FindAll(ctx, purchase.Filter{Status: purchase.StatusApproved})
	require.NoError(t, err)
	require.Len(t, approved, 1)
	assert.Equal(t, middle.ID, approved[0].ID)

	limited, err := store.FindAll(ctx, purchase.Filter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestInMemoryPurchaseStore_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryPurchaseStore()

	items := make([]*purchase.Purchase, 50)
	for i := range items {
		items[i] = newPurchase(t, "Acme", time.Now())
	}

	var wg sync.WaitGroup
	for _, p := range items {
		wg.Add(2)
		go func(p *purchase.Purchase) {
			defer wg.Done()
			_ = store.Save(ctx, p)
		}(p)
		go func() {
			defer wg.Done()
			_, _ = store.FindAll(ctx, purchase.Filter{})
		}()
	}
	wg.Wait()

	all, err := store.FindAll(ctx, purchase.Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 50)
	assert.NoError(t, store.Ping(ctx))
}
