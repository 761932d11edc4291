package purchase

import "strings"

// Status is the lifecycle state of a purchase
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusOrdered   Status = "ordered"
	StatusReceived  Status = "received"
	StatusCancelled Status = "cancelled"
)

// AllStatuses lists every valid status in lifecycle order
var AllStatuses = []Status{StatusPending, StatusApproved, StatusOrdered, StatusReceived, StatusCancelled}

// ParseStatus normalises s and validates it
func ParseStatus(s string) (Status, error) {
	status := Status(strings.ToLower(strings.TrimSpace(s)))
	if !status.IsValid() {
		return "", ErrInvalidStatus
	}
	return status, nil
}

// IsValid checks if the status is a known Status
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusOrdered, StatusReceived, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed
func (s Status) IsTerminal() bool {
	return s == StatusReceived || s == StatusCancelled
}

// CanTransitionTo checks if the status can move to target
func (s Status) CanTransitionTo(target Status) bool {
	if !target.IsValid() || s.IsTerminal() {
		return false
	}
	return true
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}
