package purchase

import (
	"context"

	"github.com/google/uuid"
)

// Filter narrows FindAll results
type Filter struct {
	Status Status // empty matches all
	Limit  int    // zero means no limit
}

// Matches reports whether p passes the filter's predicates
func (f Filter) Matches(p *Purchase) bool {
	return f.Status == "" || p.Status == f.Status
}

// Mutation changes a loaded purchase and reports whether it needs saving.
// It may run more than once when a store retries after a conflict.
type Mutation func(p *Purchase) (changed bool, err error)

// Repository persists purchases. FindAll returns newest first.
//
// Update loads the purchase, applies fn and stores the result atomically:
// no other write lands between the load and the store. It returns the
// purchase as fn left it, with its pending events.
type Repository interface {
	Save(ctx context.Context, p *Purchase) error
	Update(ctx context.Context, id uuid.UUID, fn Mutation) (*Purchase, error)
	FindByID(ctx context.Context, id uuid.UUID) (*Purchase, error)
	FindAll(ctx context.Context, filter Filter) ([]*Purchase, error)
	Ping(ctx context.Context) error
}
