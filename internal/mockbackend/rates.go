package mockbackend

import (
	"time"

	"github.com/crm/dashboard/internal/domain/shared"
	"github.com/crm/dashboard/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// rubPerUnit is a fixed rate table quoted in roubles
var rubPerUnit = map[string]decimal.Decimal{
	"RUB": decimal.NewFromInt(1),
	"USD": decimal.RequireFromString("92.50"),
	"EUR": decimal.RequireFromString("100.10"),
	"CNY": decimal.RequireFromString("12.75"),
	"KZT": decimal.RequireFromString("0.1950"),
	"BYN": decimal.RequireFromString("28.30"),
	"TRY": decimal.RequireFromString("2.85"),
}

// ErrUnsupportedCurrency is returned for valid ISO codes missing from the table
var ErrUnsupportedCurrency = shared.ErrNotFound.WithMessage("Currency not supported")

// RateTable is the GET /api/currency/rates payload
type RateTable struct {
	Base  string                     `json:"base"`
	Date  string                     `json:"date"`
	Rates map[string]decimal.Decimal `json:"rates"`
}

// Rates returns how many units of each currency one unit of base buys.
// An empty base means RUB.
func Rates(base string, at time.Time) (*RateTable, error) {
	code, err := valueobject.ParseCurrency(base)
	if err != nil {
		return nil, shared.ErrInvalidInput.WithMessage("Invalid base currency")
	}
	rubPerBase, ok := rubPerUnit[code]
	if !ok {
		return nil, ErrUnsupportedCurrency
	}

	rates := make(map[string]decimal.Decimal, len(rubPerUnit)-1)
	for c, rub := range rubPerUnit {
		if c != code {
			rates[c] = rubPerBase.DivRound(rub, 6)
		}
	}

	return &RateTable{
		Base:  code,
		Date:  at.UTC().Format("2006-01-02"),
		Rates: rates,
	}, nil
}
