package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/crm/dashboard/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func TestSeeder_Seed(t *testing.T) {
	db := newSQLiteTestDatabase(t)
	ctx := context.Background()
	seeder := NewSeeder(db.DB, zap.NewNop())
	seeder.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }

	first, err := seeder.Seed(ctx, "admin123")
	require.NoError(t, err)
	assert.Equal(t, SeedResult{Users: 2, Products: 4, Orders: 3, OrderItems: 5, Expenses: 3, Purchases: 3}, first)

	var admin models.UserModel
	require.NoError(t, db.DB.Where("username = ?", "admin").First(&admin).Error)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte("admin123")))

	var order models.OrderModel
	require.NoError(t, db.DB.Preload("Items").Where("order_number = ?", "ORD-0001").First(&order).Error)
	assert.Len(t, order.Items, 2)
	assert.Equal(t, "52970", order.TotalAmount.String())

	t.Run("second run inserts nothing", func(t *testing.T) {
		second, err := seeder.Seed(ctx, "admin123")
		require.NoError(t, err)
		assert.Equal(t, SeedResult{}, second)

		var count int64
		require.NoError(t, db.DB.Model(&models.PurchaseModel{}).Count(&count).Error)
		assert.EqualValues(t, 3, count)
	})
}

func TestSeedID_Stable(t *testing.T) {
	assert.Equal(t, seedID("product", "SKU-1"), seedID("product", "SKU-1"))
	assert.NotEqual(t, seedID("product", "SKU-1"), seedID("order", "SKU-1"))
}
