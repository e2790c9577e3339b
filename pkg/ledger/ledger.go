package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/sunkwolf/sistema-proteg-sub000/pkg/models"
	"github.com/sunkwolf/sistema-proteg-sub000/pkg/store"
)

// Rates carries the commission and deduction rules for a pay period.
// They are injected so a rule change never touches the calculators.
type Rates struct {
	Regular      decimal.Decimal // share of ordinary installment collections
	CashBasis    decimal.Decimal // share of full/advance payoff collections
	DeliveryFlat decimal.Decimal // flat amount per delivered policy/endorsement
	FuelShare    decimal.Decimal // reimbursed share of fuel expenses
}

// DefaultRates returns the standard payout rules.
func DefaultRates() Rates {
	return Rates{
		Regular:      decimal.RequireFromString("0.10"),
		CashBasis:    decimal.RequireFromString("0.05"),
		DeliveryFlat: decimal.RequireFromString("50"),
		FuelShare:    decimal.RequireFromString("0.5"),
	}
}

// Session identifies the employee performing an operation. It is
// passed explicitly so the engine never reads ambient auth state.
type Session struct {
	EmployeeID int64
	Role       models.Role
}

// Ledger handles the business logic for proposal review, cash
// custody and settlement computation.
type Ledger struct {
	storage store.Storage
	rates   Rates
}

// NewLedger creates a new Ledger with a given Storage implementation.
func NewLedger(s store.Storage, rates Rates) *Ledger {
	return &Ledger{storage: s, rates: rates}
}

// Rates returns the payout rules the engine was built with.
func (l *Ledger) Rates() Rates {
	return l.rates
}
