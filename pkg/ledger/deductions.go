package ledger

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sunkwolf/sistema-proteg-sub000/pkg/apperr"
	"github.com/sunkwolf/sistema-proteg-sub000/pkg/models"
)

// DeductionBreakdown aggregates the four deduction categories for one
// employee and period. Fuel and loan components are computed live
// from the fuel log and active loans; shortage and manual components
// come from persisted deduction items. Items materialized at payout
// (those carrying both a settlement link and a fuel/loan type) are
// excluded from the sums so a recomputation never double-counts.
type DeductionBreakdown struct {
	Fuel     decimal.Decimal `json:"fuel"`
	Loan     decimal.Decimal `json:"loan"`
	Shortage decimal.Decimal `json:"shortage"`
	Manual   decimal.Decimal `json:"manual"`
	Total    decimal.Decimal `json:"total"`

	Items []*models.DeductionItem `json:"items"`

	// UnacknowledgedShortage is true when any shortage in the period
	// has not been acknowledged by a manager.
	UnacknowledgedShortage bool `json:"unacknowledged_shortage"`
}

// AggregateDeductions computes the deduction breakdown for an
// employee and period. Totals are never floored at zero; the
// resulting net settlement may be negative.
func (l *Ledger) AggregateDeductions(employeeID int64, period models.Period) (*DeductionBreakdown, error) {
	b := &DeductionBreakdown{
		Fuel:     decimal.Zero,
		Loan:     decimal.Zero,
		Shortage: decimal.Zero,
		Manual:   decimal.Zero,
	}

	fuelEntries, err := l.storage.ListFuelEntries(employeeID, period)
	if err != nil {
		return nil, err
	}
	fuelTotal := decimal.Zero
	for _, f := range fuelEntries {
		fuelTotal = fuelTotal.Add(f.Amount)
	}
	b.Fuel = l.rates.FuelShare.Mul(fuelTotal).Round(2)

	loans, err := l.storage.ListActiveLoans(employeeID)
	if err != nil {
		return nil, err
	}
	for _, loan := range loans {
		b.Loan = b.Loan.Add(loanInstallment(loan))
	}

	items, err := l.storage.ListDeductionItems(employeeID, period)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		b.Items = append(b.Items, item)
		switch item.Type {
		case models.DeductionShortage:
			b.Shortage = b.Shortage.Add(item.Amount)
			if !item.Acknowledged {
				b.UnacknowledgedShortage = true
			}
		case models.DeductionManual:
			b.Manual = b.Manual.Add(item.Amount)
		}
		// fuel/loan items are payout materializations of the live
		// computation above, kept for audit only
	}

	b.Total = b.Fuel.Add(b.Loan).Add(b.Shortage).Add(b.Manual)
	return b, nil
}

// loanInstallment is the charge for one period: the fixed installment,
// capped at the remaining balance on the final one.
func loanInstallment(loan *models.EmployeeLoan) decimal.Decimal {
	if loan.Balance.LessThan(loan.InstallmentAmount) {
		return loan.Balance
	}
	return loan.InstallmentAmount
}

// AddManualDeduction attaches an ad hoc charge to a pending
// settlement. Paid settlements are immutable.
func (l *Ledger) AddManualDeduction(sess Session, settlementID int64, dtype models.DeductionType, concept string, amount decimal.Decimal) (*DeductionBreakdown, error) {
	if sess.Role != models.RoleManager {
		return nil, apperr.Validation("manual deductions require a manager session")
	}
	if dtype == "" {
		dtype = models.DeductionManual
	}
	if dtype != models.DeductionManual {
		return nil, apperr.Validation("only manual deductions can be attached directly, got %q", dtype)
	}
	if strings.TrimSpace(concept) == "" {
		return nil, apperr.Validation("deduction concept is required")
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, apperr.Validation("deduction amount must be positive")
	}

	st, err := l.storage.GetSettlement(settlementID)
	if err != nil {
		return nil, err
	}
	if st.Status != models.SettlementPending {
		return nil, apperr.InvalidState("settlement %d is %s, deductions can only be added while pending", st.ID, st.Status)
	}

	item := &models.DeductionItem{
		EmployeeID:   st.EmployeeID,
		Type:         models.DeductionManual,
		Concept:      strings.TrimSpace(concept),
		Amount:       amount,
		SettlementID: &st.ID,
		PeriodStart:  st.PeriodStart,
		PeriodEnd:    st.PeriodEnd,
		CreatedAt:    time.Now().UTC(),
	}
	if err := l.storage.CreateDeductionItem(item); err != nil {
		return nil, err
	}

	return l.AggregateDeductions(st.EmployeeID, models.Period{Start: st.PeriodStart, End: st.PeriodEnd})
}
