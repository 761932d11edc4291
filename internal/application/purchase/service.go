package purchase

import (
	"context"

	"github.com/crm/dashboard/internal/domain/purchase"
	"github.com/crm/dashboard/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service handles purchase operations for the dashboard
type Service struct {
	repo           purchase.Repository
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewService creates a new purchase Service
func NewService(repo purchase.Repository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:   repo,
		logger: logger.Named("purchases"),
	}
}

// SetEventPublisher sets the publisher used for status change events
func (s *Service) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Create records a new pending purchase
func (s *Service) Create(ctx context.Context, req CreatePurchaseRequest) (*PurchaseResponse, error) {
	p, err := purchase.NewPurchase(req.Supplier, req.ProductName, req.Quantity, req.UnitPrice, req.Currency, req.Notes)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info("Purchase created",
		zap.String("purchase_id", p.ID.String()),
		zap.String("purchase_number", p.Number),
	)
	resp := ToPurchaseResponse(p)
	return &resp, nil
}

// List returns purchases newest first, optionally filtered by status
func (s *Service) List(ctx context.Context, query ListPurchasesQuery) ([]PurchaseResponse, error) {
	filter := purchase.Filter{Limit: query.Limit}
	if query.Status != "" {
		status, err := purchase.ParseStatus(query.Status)
		if err != nil {
			return nil, err
		}
		filter.Status = status
	}

	items, err := s.repo.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	return ToPurchaseResponses(items), nil
}

// GetByID returns a single purchase
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*PurchaseResponse, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToPurchaseResponse(p)
	return &resp, nil
}

// ChangeStatus moves a purchase to a new status and publishes the change.
// The check against the current status and the write happen atomically in
// the store, so a terminal status can never be overwritten by a racing
// request. A publish failure is logged; the stored status change stands.
func (s *Service) ChangeStatus(ctx context.Context, id uuid.UUID, req ChangeStatusRequest) (*PurchaseResponse, error) {
	target, err := purchase.ParseStatus(req.Status)
	if err != nil {
		return nil, err
	}

	p, err := s.repo.Update(ctx, id, func(p *purchase.Purchase) (bool, error) {
		return p.ChangeStatus(target)
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, p)

	resp := ToPurchaseResponse(p)
	return &resp, nil
}

// Ping checks the underlying store
func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

func (s *Service) publish(ctx context.Context, p *purchase.Purchase) {
	events := p.PullEvents()
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish purchase events",
			zap.String("purchase_id", p.ID.String()),
			zap.Error(err),
		)
	}
}
