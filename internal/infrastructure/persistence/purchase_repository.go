package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/crm/dashboard/internal/domain/purchase"
	"github.com/crm/dashboard/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPurchaseRepository implements purchase.Repository using GORM
type GormPurchaseRepository struct {
	db *gorm.DB
}

// NewGormPurchaseRepository creates a new GormPurchaseRepository
func NewGormPurchaseRepository(db *gorm.DB) *GormPurchaseRepository {
	return &GormPurchaseRepository{db: db}
}

// Save inserts the purchase or updates every column on id conflict
func (r *GormPurchaseRepository) Save(ctx context.Context, p *purchase.Purchase) error {
	model := models.PurchaseModelFromDomain(p)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(model).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return purchase.ErrDuplicateNumber.WithCause(err)
	}
	if err != nil {
		return fmt.Errorf("failed to save purchase: %w", err)
	}
	return nil
}

// maxUpdateAttempts bounds retries when another writer wins the race
const maxUpdateAttempts = 5

// Update applies fn and writes the result with a compare-and-set on the
// status and updated_at it was loaded with. Losing the race reloads and
// reapplies fn, so a mutation that is no longer valid fails instead of
// overwriting the winner.
func (r *GormPurchaseRepository) Update(ctx context.Context, id uuid.UUID, fn purchase.Mutation) (*purchase.Purchase, error) {
	for range maxUpdateAttempts {
		p, err := r.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		loadedStatus, loadedAt := p.Status, p.UpdatedAt

		changed, err := fn(p)
		if err != nil {
			return nil, err
		}
		if !changed {
			return p, nil
		}

		res := r.db.WithContext(ctx).
			Model(&models.PurchaseModel{}).
			Where("id = ? AND status = ? AND updated_at = ?", id, loadedStatus.String(), loadedAt).
			Updates(map[string]any{
				"supplier":     p.Supplier,
				"product_name": p.ProductName,
				"quantity":     p.Quantity,
				"unit_price":   p.UnitPrice,
				"total_amount": p.TotalAmount,
				"currency":     p.Currency,
				"status":       p.Status.String(),
				"notes":        p.Notes,
				"updated_at":   p.UpdatedAt,
			})
		if res.Error != nil {
			return nil, fmt.Errorf("failed to update purchase: %w", res.Error)
		}
		if res.RowsAffected == 1 {
			return p, nil
		}
	}
	return nil, purchase.ErrConcurrentUpdate
}

// FindByID finds a purchase by its ID
func (r *GormPurchaseRepository) FindByID(ctx context.Context, id uuid.UUID) (*purchase.Purchase, error) {
	var model models.PurchaseModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, purchase.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll lists purchases newest first
func (r *GormPurchaseRepository) FindAll(ctx context.Context, filter purchase.Filter) ([]*purchase.Purchase, error) {
	query := r.db.WithContext(ctx).Model(&models.PurchaseModel{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status.String())
	}
	query = query.Order("created_at DESC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var rows []models.PurchaseModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]*purchase.Purchase, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToDomain())
	}
	return out, nil
}

// Ping checks the underlying connection
func (r *GormPurchaseRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

var _ purchase.Repository = (*GormPurchaseRepository)(nil)
