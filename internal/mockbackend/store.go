// Package mockbackend is a stand-in for the backend origin the dashboard
// proxies to. It serves orders, products, expenses, currency rates and the
// analytics endpoints from a GORM database, normally in-memory SQLite.
package mockbackend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/crm/dashboard/internal/domain/shared"
	"github.com/crm/dashboard/internal/domain/shared/valueobject"
	"github.com/crm/dashboard/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrProductNotFound   = shared.ErrNotFound.WithMessage("Product not found")
	ErrDuplicateSKU      = shared.ErrAlreadyExists.WithMessage("Product with this SKU already exists")
	ErrInsufficientStock = shared.ErrInvalidState.WithMessage("Insufficient stock")
	ErrEmptyOrder        = shared.ErrInvalidInput.WithMessage("Order must contain at least one item")
)

// OrderItemInput is one line of a new order
type OrderItemInput struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  int64     `json:"quantity" binding:"required,gt=0"`
}

// CreateOrderInput is the POST /api/orders body
type CreateOrderInput struct {
	CustomerName  string           `json:"customer_name" binding:"required,max=255"`
	CustomerEmail string           `json:"customer_email" binding:"omitempty,email,max=255"`
	Items         []OrderItemInput `json:"items" binding:"required,min=1,dive"`
}

// CreateProductInput is the POST /api/products body
type CreateProductInput struct {
	SKU      string          `json:"sku" binding:"required,max=64"`
	Name     string          `json:"name" binding:"required,max=255"`
	Price    decimal.Decimal `json:"price"`
	Currency string          `json:"currency" binding:"omitempty,iso4217"`
	Stock    int64           `json:"stock" binding:"min=0"`
}

// CreateExpenseInput is the POST /api/expenses body
type CreateExpenseInput struct {
	Category    string          `json:"category" binding:"required,max=100"`
	Description string          `json:"description" binding:"max=2000"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency" binding:"omitempty,iso4217"`
	SpentAt     *time.Time      `json:"spent_at"`
}

// Summary is the aggregate computed by an analytics refresh
type Summary struct {
	Orders        int64           `json:"orders"`
	Revenue       decimal.Decimal `json:"revenue"`
	Products      int64           `json:"products"`
	OutOfStock    int64           `json:"out_of_stock"`
	Expenses      decimal.Decimal `json:"expenses"`
	OpenPurchases int64           `json:"open_purchases"`
}

// Store reads and writes the mock backend tables
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

// NewStore creates a Store over db
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// ListOrders returns orders newest first, optionally filtered by status
func (s *Store) ListOrders(ctx context.Context, status string, limit int) ([]models.OrderModel, error) {
	var orders []models.OrderModel
	q := s.db.WithContext(ctx).Preload("Items").Order("created_at DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// CreateOrder prices the items from the catalog and takes them out of stock
func (s *Store) CreateOrder(ctx context.Context, in CreateOrderInput) (*models.OrderModel, error) {
	if len(in.Items) == 0 {
		return nil, ErrEmptyOrder
	}

	now := s.now().UTC()
	order := &models.OrderModel{
		Row:           models.NewRow(uuid.New(), now),
		CustomerName:  in.CustomerName,
		CustomerEmail: in.CustomerEmail,
		Status:        "pending",
		TotalAmount:   decimal.Zero,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.OrderModel{}).Count(&count).Error; err != nil {
			return err
		}
		order.OrderNumber = fmt.Sprintf("ORD-%04d", count+1)

		for _, line := range in.Items {
			var p models.ProductModel
			if err := tx.First(&p, "id = ?", line.ProductID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrProductNotFound
				}
				return err
			}
			if p.Stock < line.Quantity {
				return ErrInsufficientStock.WithMessage(fmt.Sprintf("Insufficient stock for %s", p.SKU))
			}
			if order.Currency == "" {
				order.Currency = p.Currency
			}

			res := tx.Model(&models.ProductModel{}).
				Where("id = ? AND stock >= ?", p.ID, line.Quantity).
				Updates(map[string]any{"stock": gorm.Expr("stock - ?", line.Quantity), "updated_at": now})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrInsufficientStock
			}

			order.Items = append(order.Items, models.OrderItemModel{
				ID:        uuid.New(),
				OrderID:   order.ID,
				ProductID: p.ID,
				Quantity:  line.Quantity,
				UnitPrice: p.Price,
			})
			order.TotalAmount = order.TotalAmount.Add(p.Price.Mul(decimal.NewFromInt(line.Quantity)))
		}

		return tx.Create(order).Error
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// ListProducts returns the catalog ordered by SKU
func (s *Store) ListProducts(ctx context.Context) ([]models.ProductModel, error) {
	var products []models.ProductModel
	if err := s.db.WithContext(ctx).Order("sku").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

// CreateProduct adds a product; SKUs are unique
func (s *Store) CreateProduct(ctx context.Context, in CreateProductInput) (*models.ProductModel, error) {
	if in.Price.IsNegative() {
		return nil, shared.ErrInvalidInput.WithMessage("Price must not be negative")
	}
	currency, err := valueobject.ParseCurrency(in.Currency)
	if err != nil {
		return nil, shared.ErrInvalidInput.WithMessage("Currency must be an ISO 4217 code")
	}

	now := s.now().UTC()
	p := &models.ProductModel{
		Row:      models.NewRow(uuid.New(), now),
		SKU:      in.SKU,
		Name:     in.Name,
		Price:    in.Price,
		Currency: currency,
		Stock:    in.Stock,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.ProductModel{}).Where("sku = ?", in.SKU).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrDuplicateSKU
		}
		return tx.Create(p).Error
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// SetStock replaces a product's stock level
func (s *Store) SetStock(ctx context.Context, id uuid.UUID, quantity int64) (*models.ProductModel, error) {
	if quantity < 0 {
		return nil, shared.ErrInvalidInput.WithMessage("Quantity must not be negative")
	}

	var p models.ProductModel
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&p, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProductNotFound
			}
			return err
		}
		p.Stock = quantity
		p.UpdatedAt = s.now().UTC()
		return tx.Model(&p).Updates(map[string]any{"stock": p.Stock, "updated_at": p.UpdatedAt}).Error
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListExpenses returns expenses newest first, optionally filtered by category
func (s *Store) ListExpenses(ctx context.Context, category string) ([]models.ExpenseModel, error) {
	var expenses []models.ExpenseModel
	q := s.db.WithContext(ctx).Order("spent_at DESC")
	if category != "" {
		q = q.Where("category = ?", category)
	}
	if err := q.Find(&expenses).Error; err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	return expenses, nil
}

// CreateExpense records an expense; spent_at defaults to now
func (s *Store) CreateExpense(ctx context.Context, in CreateExpenseInput) (*models.ExpenseModel, error) {
	if !in.Amount.IsPositive() {
		return nil, shared.ErrInvalidInput.WithMessage("Amount must be positive")
	}
	currency, err := valueobject.ParseCurrency(in.Currency)
	if err != nil {
		return nil, shared.ErrInvalidInput.WithMessage("Currency must be an ISO 4217 code")
	}

	now := s.now().UTC()
	spentAt := now
	if in.SpentAt != nil {
		spentAt = in.SpentAt.UTC()
	}

	e := &models.ExpenseModel{
		ID:          uuid.New(),
		Category:    in.Category,
		Description: in.Description,
		Amount:      in.Amount,
		Currency:    currency,
		SpentAt:     spentAt,
		CreatedAt:   now,
	}
	if err := s.db.WithContext(ctx).Create(e).Error; err != nil {
		return nil, fmt.Errorf("failed to create expense: %w", err)
	}
	return e, nil
}

// Summarize computes the analytics aggregate over all tables
func (s *Store) Summarize(ctx context.Context) (Summary, error) {
	var sum Summary
	db := s.db.WithContext(ctx)

	var revenue, expenses struct{ Total decimal.NullDecimal }
	steps := []func() error{
		func() error { return db.Model(&models.OrderModel{}).Count(&sum.Orders).Error },
		func() error {
			return db.Model(&models.OrderModel{}).Select("SUM(total_amount) AS total").
				Where("status <> ?", "cancelled").Scan(&revenue).Error
		},
		func() error { return db.Model(&models.ProductModel{}).Count(&sum.Products).Error },
		func() error {
			return db.Model(&models.ProductModel{}).Where("stock = 0").Count(&sum.OutOfStock).Error
		},
		func() error {
			return db.Model(&models.ExpenseModel{}).Select("SUM(amount) AS total").Scan(&expenses).Error
		},
		func() error {
			return db.Model(&models.PurchaseModel{}).
				Where("status NOT IN ?", []string{"received", "cancelled"}).Count(&sum.OpenPurchases).Error
		},
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return Summary{}, fmt.Errorf("failed to summarize: %w", err)
		}
	}

	sum.Revenue = revenue.Total.Decimal.Round(2)
	sum.Expenses = expenses.Total.Decimal.Round(2)
	return sum, nil
}

// Ping checks the database connection
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
