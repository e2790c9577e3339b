package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/sunkwolf/sistema-proteg-sub000/pkg/models"
)

var hundred = decimal.NewFromInt(100)

// BuildPreview recomputes the settlement projection for one employee
// and period. It is a pure function of the stored inputs: calling it
// twice against unchanged data yields an identical preview, which the
// batch processor relies on for its preview-then-commit pattern.
func (l *Ledger) BuildPreview(employeeID int64, period models.Period) (*models.SettlementPreview, error) {
	emp, err := l.storage.GetEmployee(employeeID)
	if err != nil {
		return nil, err
	}

	records, err := l.storage.ListCollections(employeeID, period)
	if err != nil {
		return nil, err
	}
	deliveries, err := l.storage.CountDeliveries(employeeID, period)
	if err != nil {
		return nil, err
	}
	commission := CalculateCommission(records, deliveries, l.rates)

	deductions, err := l.AggregateDeductions(employeeID, period)
	if err != nil {
		return nil, err
	}

	// The collection goal tracks ordinary installment collections;
	// full/advance payoffs are commissioned separately and do not
	// count toward it.
	totalCollected := commission.RegularBase

	var alerts []string
	goalPct := decimal.Zero
	if emp.GoalAmount.IsZero() {
		alerts = append(alerts, "no goal configured")
	} else {
		goalPct = totalCollected.Div(emp.GoalAmount).Mul(hundred).Round(0)
	}
	if deductions.UnacknowledgedShortage {
		alerts = append(alerts, "unresolved cash shortage")
	}

	net := commission.Total.Sub(deductions.Total)

	// First match wins: a negative net always dominates alerts.
	status := models.PreviewReady
	switch {
	case net.IsNegative():
		status = models.PreviewNegative
	case len(alerts) > 0:
		status = models.PreviewAlert
	}

	return &models.SettlementPreview{
		EmployeeID:     emp.ID,
		EmployeeName:   emp.Name,
		PeriodStart:    period.Start,
		PeriodEnd:      period.End,
		GoalAmount:     emp.GoalAmount,
		TotalCollected: totalCollected,
		GoalPercentage: goalPct,

		RegularCommission:  commission.Regular,
		CashCommission:     commission.CashBasis,
		DeliveryCommission: commission.Delivery,
		TotalCommission:    commission.Total,

		FuelDeductions:     deductions.Fuel,
		LoanDeductions:     deductions.Loan,
		ShortageDeductions: deductions.Shortage,
		ManualDeductions:   deductions.Manual,
		TotalDeductions:    deductions.Total,

		NetAmount:    net,
		Status:       status,
		ExceededGoal: !emp.GoalAmount.IsZero() && totalCollected.GreaterThanOrEqual(emp.GoalAmount),
		Alerts:       alerts,
	}, nil
}

// BuildAllPreviews computes previews for every active collector.
func (l *Ledger) BuildAllPreviews(period models.Period) ([]*models.SettlementPreview, error) {
	employees, err := l.storage.ListEmployees(true)
	if err != nil {
		return nil, err
	}

	previews := make([]*models.SettlementPreview, 0, len(employees))
	for _, emp := range employees {
		if emp.Role != models.RoleCollector {
			continue
		}
		p, err := l.BuildPreview(emp.ID, period)
		if err != nil {
			return nil, err
		}
		previews = append(previews, p)
	}
	return previews, nil
}
