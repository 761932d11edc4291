package event

import (
	"context"

	"github.com/crm/dashboard/internal/domain/shared"
	"go.uber.org/zap"
)

// LogPublisher is used when no broker is configured. Events are only logged.
type LogPublisher struct {
	logger *zap.Logger
}

// NewLogPublisher creates a publisher that writes events to the debug log
func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogPublisher{logger: logger}
}

// Publish logs each event and never fails
func (p *LogPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	for _, e := range events {
		p.logger.Debug("Domain event (not forwarded)",
			zap.String("event_type", e.EventType()),
			zap.String("event_id", e.EventID().String()),
			zap.String("aggregate_id", e.AggregateID().String()),
		)
	}
	return nil
}

var _ shared.EventPublisher = (*LogPublisher)(nil)
