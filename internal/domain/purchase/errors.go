package purchase

import "github.com/crm/dashboard/internal/domain/shared"

var (
	// ErrNotFound is returned when no purchase has the requested ID
	ErrNotFound = shared.NewDomainError("PURCHASE_NOT_FOUND", "Purchase not found")
	// ErrInvalidStatus is returned for status values outside the lifecycle
	ErrInvalidStatus = shared.NewDomainError("INVALID_STATUS", "Unknown purchase status")
	// ErrInvalidTransition is returned when the current status forbids the change
	ErrInvalidTransition = shared.NewDomainError("INVALID_TRANSITION", "Purchase status cannot be changed")
	// ErrInvalidPurchase is returned when creation input fails validation
	ErrInvalidPurchase = shared.NewDomainError("INVALID_INPUT", "Invalid purchase")
	// ErrConcurrentUpdate is returned when another writer kept changing the
	// purchase while an update was being applied
	ErrConcurrentUpdate = shared.NewDomainError("CONCURRENT_UPDATE", "Purchase was modified concurrently, retry")
	// ErrDuplicateNumber is returned when a purchase number is already taken
	ErrDuplicateNumber = shared.NewDomainError("ALREADY_EXISTS", "Purchase number already exists")
)
