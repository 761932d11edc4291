package purchase

import (
	"fmt"
	"strings"
	"time"

	"github.com/crm/dashboard/internal/domain/shared"
	"github.com/crm/dashboard/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// NumberPrefix starts every purchase number
const NumberPrefix = "PUR"

// Purchase is a supplier purchase tracked by the dashboard
type Purchase struct {
	shared.Entity
	Number      string
	Supplier    string
	ProductName string
	Quantity    int64
	UnitPrice   decimal.Decimal
	TotalAmount decimal.Decimal
	Currency    string
	Status      Status
	Notes       string

	events []shared.DomainEvent
}

// NewPurchase validates the input and creates a pending purchase
func NewPurchase(supplier, productName string, quantity int64, unitPrice decimal.Decimal, currency, notes string) (*Purchase, error) {
	return newPurchaseAt(time.Now(), supplier, productName, quantity, unitPrice, currency, notes)
}

func newPurchaseAt(now time.Time, supplier, productName string, quantity int64, unitPrice decimal.Decimal, currency, notes string) (*Purchase, error) {
	supplier = strings.TrimSpace(supplier)
	productName = strings.TrimSpace(productName)

	if supplier == "" {
		return nil, ErrInvalidPurchase.WithMessage("Supplier cannot be empty")
	}
	if productName == "" {
		return nil, ErrInvalidPurchase.WithMessage("Product name cannot be empty")
	}
	if quantity <= 0 {
		return nil, ErrInvalidPurchase.WithMessage("Quantity must be positive")
	}

	price, err := valueobject.NewMoney(unitPrice, currency)
	if err != nil {
		return nil, ErrInvalidPurchase.WithMessage("Currency must be an ISO 4217 code").WithCause(err)
	}
	if price.IsNegative() {
		return nil, ErrInvalidPurchase.WithMessage("Unit price cannot be negative")
	}

	p := &Purchase{
		Entity:      shared.NewEntity(now),
		Supplier:    supplier,
		ProductName: productName,
		Quantity:    quantity,
		UnitPrice:   price.Amount(),
		TotalAmount: price.MultiplyByInt(quantity).Amount(),
		Currency:    price.Currency(),
		Status:      StatusPending,
		Notes:       strings.TrimSpace(notes),
	}
	p.Number = GenerateNumber(now, p.ID.String())
	return p, nil
}

// numberSuffixLen hex characters of the seed end a purchase number
const numberSuffixLen = 10

// GenerateNumber builds a PUR-YYYYMMDD-XXXXXXXXXX number from the date and a unique seed
func GenerateNumber(at time.Time, seed string) string {
	suffix := strings.ToUpper(strings.ReplaceAll(seed, "-", ""))
	if len(suffix) > numberSuffixLen {
		suffix = suffix[:numberSuffixLen]
	}
	return fmt.Sprintf("%s-%s-%s", NumberPrefix, at.Format("20060102"), suffix)
}

// ChangeStatus moves the purchase to target. Setting the current status again
// is a no-op and reports changed=false.
func (p *Purchase) ChangeStatus(target Status) (changed bool, err error) {
	if !target.IsValid() {
		return false, ErrInvalidStatus
	}
	if p.Status == target {
		return false, nil
	}
	if !p.Status.CanTransitionTo(target) {
		return false, ErrInvalidTransition.WithMessage(
			fmt.Sprintf("Cannot change purchase from %s to %s", p.Status, target))
	}

	from := p.Status
	now := time.Now()
	p.Status = target
	p.Touch(now)
	p.events = append(p.events, NewStatusChangedEvent(p, from, now))
	return true, nil
}

// PullEvents returns and clears the pending domain events
func (p *Purchase) PullEvents() []shared.DomainEvent {
	events := p.events
	p.events = nil
	return events
}

// Clone returns a copy of p without pending events
func (p *Purchase) Clone() *Purchase {
	cp := *p
	cp.events = nil
	return &cp
}
