package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/crm/dashboard/internal/domain/purchase"
	"github.com/crm/dashboard/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// seedNamespace derives stable IDs so repeated seeding hits the same rows
var seedNamespace = uuid.MustParse("6f1d8a52-4c1e-4f0b-9a57-2b7c1f0e8d31")

func seedID(kind, key string) uuid.UUID {
	return uuid.NewSHA1(seedNamespace, []byte(kind+":"+key))
}

// SeedResult counts rows inserted per table. Existing rows are skipped.
type SeedResult struct {
	Users      int64
	Products   int64
	Orders     int64
	OrderItems int64
	Expenses   int64
	Purchases  int64
}

// Seeder inserts demo data for local development and the mock backend
type Seeder struct {
	db     *gorm.DB
	logger *zap.Logger
	now    func() time.Time
}

// NewSeeder creates a Seeder
func NewSeeder(db *gorm.DB, logger *zap.Logger) *Seeder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Seeder{db: db, logger: logger.Named("seeder"), now: time.Now}
}

// Seed inserts all demo rows in one transaction with ON CONFLICT DO NOTHING
func (s *Seeder) Seed(ctx context.Context, adminPassword string) (SeedResult, error) {
	var result SeedResult

	hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		return result, fmt.Errorf("failed to hash admin password: %w", err)
	}

	now := s.now().UTC().Truncate(time.Second)
	users := seedUsers(string(hash), now)
	products := seedProducts(now)
	orders, items := seedOrders(products, now)
	expenses := seedExpenses(users[0].ID, now)
	purchases := seedPurchases(now)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		steps := []struct {
			name  string
			rows  any
			count *int64
		}{
			{"users", &users, &result.Users},
			{"products", &products, &result.Products},
			{"orders", &orders, &result.Orders},
			{"order_items", &items, &result.OrderItems},
			{"expenses", &expenses, &result.Expenses},
			{"purchases", &purchases, &result.Purchases},
		}
		for _, step := range steps {
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).Omit(clause.Associations).Create(step.rows)
			if res.Error != nil {
				return fmt.Errorf("failed to seed %s: %w", step.name, res.Error)
			}
			*step.count = res.RowsAffected
		}
		return nil
	})
	if err != nil {
		return SeedResult{}, err
	}

	s.logger.Info("Seed data applied",
		zap.Int64("users", result.Users),
		zap.Int64("products", result.Products),
		zap.Int64("orders", result.Orders),
		zap.Int64("expenses", result.Expenses),
		zap.Int64("purchases", result.Purchases),
	)
	return result, nil
}

func seedUsers(hash string, now time.Time) []models.UserModel {
	return []models.UserModel{
		{
			Row:          models.NewRow(seedID("user", "admin"), now),
			Username:     "admin",
			Email:        "admin@crm.local",
			PasswordHash: hash,
			Role:         "admin",
		},
		{
			Row:          models.NewRow(seedID("user", "manager"), now),
			Username:     "manager",
			Email:        "manager@crm.local",
			PasswordHash: hash,
			Role:         "manager",
		},
	}
}

func seedProducts(now time.Time) []models.ProductModel {
	type row struct {
		sku, name, price string
		stock            int64
	}
	rows := []row{
		{"SKU-1001", "Кофемашина Delonghi", "45990.00", 12},
		{"SKU-1002", "Чайник электрический", "3490.00", 40},
		{"SKU-1003", "Блендер погружной", "5990.00", 25},
		{"SKU-1004", "Тостер", "2790.00", 0},
	}
	out := make([]models.ProductModel, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.ProductModel{
			Row:      models.NewRow(seedID("product", r.sku), now),
			SKU:      r.sku,
			Name:     r.name,
			Price:    decimal.RequireFromString(r.price),
			Currency: "RUB",
			Stock:    r.stock,
		})
	}
	return out
}

func seedOrders(products []models.ProductModel, now time.Time) ([]models.OrderModel, []models.OrderItemModel) {
	type line struct {
		product int
		qty     int64
	}
	type row struct {
		number, customer, email, status string
		lines                           []line
	}
	rows := []row{
		{"ORD-0001", "Иван Петров", "ivan@example.com", "completed", []line{{0, 1}, {1, 2}}},
		{"ORD-0002", "Anna Smith", "anna@example.com", "pending", []line{{2, 1}}},
		{"ORD-0003", "ООО Ромашка", "buy@romashka.ru", "shipped", []line{{1, 5}, {3, 3}}},
	}

	var orders []models.OrderModel
	var items []models.OrderItemModel
	for i, r := range rows {
		orderID := seedID("order", r.number)
		total := decimal.Zero
		for j, l := range r.lines {
			p := products[l.product]
			total = total.Add(p.Price.Mul(decimal.NewFromInt(l.qty)))
			items = append(items, models.OrderItemModel{
				ID:        seedID("order_item", fmt.Sprintf("%s-%d", r.number, j)),
				OrderID:   orderID,
				ProductID: p.ID,
				Quantity:  l.qty,
				UnitPrice: p.Price,
			})
		}
		created := now.Add(-time.Duration(len(rows)-i) * 24 * time.Hour)
		orders = append(orders, models.OrderModel{
			Row:           models.NewRow(orderID, created),
			OrderNumber:   r.number,
			CustomerName:  r.customer,
			CustomerEmail: r.email,
			Status:        r.status,
			TotalAmount:   total,
			Currency:      "RUB",
		})
	}
	return orders, items
}

func seedExpenses(createdBy uuid.UUID, now time.Time) []models.ExpenseModel {
	type row struct {
		key, category, description, amount string
		daysAgo                            int
	}
	rows := []row{
		{"rent-1", "rent", "Аренда склада", "120000.00", 20},
		{"ads-1", "marketing", "Контекстная реклама", "35000.00", 10},
		{"delivery-1", "logistics", "Доставка заказов", "8700.50", 3},
	}
	out := make([]models.ExpenseModel, 0, len(rows))
	for _, r := range rows {
		by := createdBy
		out = append(out, models.ExpenseModel{
			ID:          seedID("expense", r.key),
			Category:    r.category,
			Description: r.description,
			Amount:      decimal.RequireFromString(r.amount),
			Currency:    "RUB",
			SpentAt:     now.Add(-time.Duration(r.daysAgo) * 24 * time.Hour),
			CreatedBy:   &by,
			CreatedAt:   now,
		})
	}
	return out
}

func seedPurchases(now time.Time) []models.PurchaseModel {
	type row struct {
		key, supplier, product, price string
		qty                           int64
		status                        purchase.Status
	}
	rows := []row{
		{"p1", "ООО ТехноПоставка", "Кофемашина Delonghi", "38000.00", 10, purchase.StatusReceived},
		{"p2", "Global Appliances Ltd", "Блендер погружной", "4100.00", 20, purchase.StatusOrdered},
		{"p3", "ИП Смирнов", "Тостер", "1900.00", 15, purchase.StatusPending},
	}
	out := make([]models.PurchaseModel, 0, len(rows))
	for i, r := range rows {
		id := seedID("purchase", r.key)
		created := now.Add(-time.Duration(len(rows)-i) * time.Hour)
		price := decimal.RequireFromString(r.price)
		out = append(out, models.PurchaseModel{
			Row:            models.NewRow(id, created),
			PurchaseNumber: purchase.GenerateNumber(created, id.String()),
			Supplier:       r.supplier,
			ProductName:    r.product,
			Quantity:       r.qty,
			UnitPrice:      price,
			TotalAmount:    price.Mul(decimal.NewFromInt(r.qty)),
			Currency:       "RUB",
			Status:         r.status.String(),
		})
	}
	return out
}
