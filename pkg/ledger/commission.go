package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/sunkwolf/sistema-proteg-sub000/pkg/models"
)

// CommissionBreakdown is the result of the commission calculation for
// one employee and period.
type CommissionBreakdown struct {
	RegularBase   decimal.Decimal `json:"regular_base"`
	CashBase      decimal.Decimal `json:"cash_base"`
	DeliveryCount int             `json:"delivery_count"`

	Regular   decimal.Decimal `json:"regular"`
	CashBasis decimal.Decimal `json:"cash_basis"`
	Delivery  decimal.Decimal `json:"delivery"`
	Total     decimal.Decimal `json:"total"`
}

// CalculateCommission partitions the period's collection records into
// ordinary installments and full/advance payoffs, applies the rates,
// and adds the flat per-delivery component. Each component is rounded
// half-up to 2 decimals before the total is formed. Pure: identical
// inputs always yield identical output.
func CalculateCommission(records []*models.CollectionRecord, deliveryCount int, rates Rates) CommissionBreakdown {
	regularBase := decimal.Zero
	cashBase := decimal.Zero
	for _, r := range records {
		if r.CashBasis {
			cashBase = cashBase.Add(r.Amount)
		} else {
			regularBase = regularBase.Add(r.Amount)
		}
	}

	// Round(2) is half-away-from-zero, which is half-up for the
	// non-negative amounts handled here.
	regular := rates.Regular.Mul(regularBase).Round(2)
	cash := rates.CashBasis.Mul(cashBase).Round(2)
	delivery := rates.DeliveryFlat.Mul(decimal.NewFromInt(int64(deliveryCount))).Round(2)

	return CommissionBreakdown{
		RegularBase:   regularBase,
		CashBase:      cashBase,
		DeliveryCount: deliveryCount,
		Regular:       regular,
		CashBasis:     cash,
		Delivery:      delivery,
		Total:         regular.Add(cash).Add(delivery),
	}
}
