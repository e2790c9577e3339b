package ledger

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sunkwolf/sistema-proteg-sub000/pkg/apperr"
	"github.com/sunkwolf/sistema-proteg-sub000/pkg/models"
)

// BatchItemResult is the per-employee outcome of a batch payout.
// A batch never fails as a whole; callers must inspect each item.
type BatchItemResult struct {
	EmployeeID int64              `json:"employee_id"`
	Settlement *models.Settlement `json:"settlement,omitempty"`
	Error      string             `json:"error,omitempty"`
	ErrorKind  string             `json:"error_kind,omitempty"`
}

func classifyError(err error) string {
	switch {
	case apperr.IsValidation(err):
		return "validation"
	case apperr.IsInvalidState(err):
		return "invalid_state"
	case apperr.IsNotFound(err):
		return "not_found"
	default:
		return "internal"
	}
}

// EnsurePendingSettlement returns the employee's pending settlement
// for the period, creating one when none exists. Pending settlements
// anchor manual deductions added before payout.
func (l *Ledger) EnsurePendingSettlement(employeeID int64, period models.Period) (*models.Settlement, error) {
	if _, err := l.storage.GetEmployee(employeeID); err != nil {
		return nil, err
	}
	if paid, err := l.storage.GetSettlementByPeriod(employeeID, period, models.SettlementPaid); err != nil {
		return nil, err
	} else if paid != nil {
		return nil, apperr.InvalidState("employee %d is already paid for period starting %s", employeeID, period.Start.Format("2006-01-02"))
	}

	pending, err := l.storage.GetSettlementByPeriod(employeeID, period, models.SettlementPending)
	if err != nil {
		return nil, err
	}
	if pending != nil {
		return pending, nil
	}

	pending = &models.Settlement{
		EmployeeID:  employeeID,
		Reference:   uuid.New(),
		PeriodStart: period.Start,
		PeriodEnd:   period.End,
		NetAmount:   decimal.Zero,
		AmountPaid:  decimal.Zero,
		Status:      models.SettlementPending,
		CreatedAt:   time.Now().UTC(),
	}
	if err := l.storage.CreateSettlement(pending); err != nil {
		return nil, err
	}
	return pending, nil
}

// CreateSettlement pays out one employee for a period. The preview is
// always recomputed; an optional override replaces the amount actually
// paid while the computed net is kept for the record.
func (l *Ledger) CreateSettlement(employeeID int64, period models.Period, method models.PaymentMethod, override *decimal.Decimal, notes string) (*models.Settlement, error) {
	if !validMethod(method) {
		return nil, apperr.Validation("unknown payment method %q", method)
	}
	return l.paySettlement(employeeID, period, method, override, notes)
}

// PayBatch pays out a set of employees for a period. Each employee is
// processed independently: one failure never aborts the others, and
// the result list carries a confirmation or a typed failure per id.
func (l *Ledger) PayBatch(employeeIDs []int64, period models.Period, method models.PaymentMethod) []BatchItemResult {
	results := make([]BatchItemResult, 0, len(employeeIDs))
	for _, id := range employeeIDs {
		st, err := l.CreateSettlement(id, period, method, nil, "")
		if err != nil {
			log.Printf("Batch settlement: employee %d failed: %v", id, err)
			results = append(results, BatchItemResult{
				EmployeeID: id,
				Error:      err.Error(),
				ErrorKind:  classifyError(err),
			})
			continue
		}
		results = append(results, BatchItemResult{EmployeeID: id, Settlement: st})
	}
	return results
}

func (l *Ledger) paySettlement(employeeID int64, period models.Period, method models.PaymentMethod, override *decimal.Decimal, notes string) (*models.Settlement, error) {
	// Never trust a caller-supplied preview: recompute from storage.
	preview, err := l.BuildPreview(employeeID, period)
	if err != nil {
		return nil, err
	}

	if paid, err := l.storage.GetSettlementByPeriod(employeeID, period, models.SettlementPaid); err != nil {
		return nil, err
	} else if paid != nil {
		return nil, apperr.InvalidState("employee %d is already paid for period starting %s", employeeID, period.Start.Format("2006-01-02"))
	}

	now := time.Now().UTC()
	amountPaid := preview.NetAmount
	if override != nil {
		amountPaid = *override
	}

	pending, err := l.storage.GetSettlementByPeriod(employeeID, period, models.SettlementPending)
	if err != nil {
		return nil, err
	}

	var settlement *models.Settlement
	if pending != nil {
		pending.NetAmount = preview.NetAmount
		pending.AmountPaid = amountPaid
		pending.Method = method
		if notes != "" {
			pending.Notes = notes
		}
		pending.PaidAt = &now
		moved, err := l.storage.MarkSettlementPaid(pending)
		if err != nil {
			return nil, err
		}
		if !moved {
			return nil, apperr.InvalidState("settlement %d was already paid", pending.ID)
		}
		pending.Status = models.SettlementPaid
		settlement = pending
	} else {
		settlement = &models.Settlement{
			EmployeeID:  employeeID,
			Reference:   uuid.New(),
			PeriodStart: period.Start,
			PeriodEnd:   period.End,
			NetAmount:   preview.NetAmount,
			AmountPaid:  amountPaid,
			Method:      method,
			Notes:       notes,
			Status:      models.SettlementPaid,
			PaidAt:      &now,
			CreatedAt:   now,
		}
		// The partial unique index on paid settlements rejects the
		// loser of a concurrent double-pay; the store reports that
		// specific violation as an invalid-state error.
		if err := l.storage.CreateSettlement(settlement); err != nil {
			return nil, err
		}
	}

	if err := l.materializeDeductions(preview, settlement); err != nil {
		return nil, err
	}
	return settlement, nil
}

// materializeDeductions persists the fuel and loan components that
// were computed live for the preview, and applies loan installments
// to the loan balances. This is the only path that makes a period's
// deductions immutable.
func (l *Ledger) materializeDeductions(preview *models.SettlementPreview, settlement *models.Settlement) error {
	now := time.Now().UTC()

	if preview.FuelDeductions.GreaterThan(decimal.Zero) {
		item := &models.DeductionItem{
			EmployeeID:   settlement.EmployeeID,
			Type:         models.DeductionFuel,
			Concept:      "fuel reimbursement share",
			Amount:       preview.FuelDeductions,
			SettlementID: &settlement.ID,
			PeriodStart:  settlement.PeriodStart,
			PeriodEnd:    settlement.PeriodEnd,
			CreatedAt:    now,
		}
		if err := l.storage.CreateDeductionItem(item); err != nil {
			return fmt.Errorf("failed to record fuel deduction for settlement %d: %w", settlement.ID, err)
		}
	}

	loans, err := l.storage.ListActiveLoans(settlement.EmployeeID)
	if err != nil {
		return err
	}
	for _, loan := range loans {
		installment := loanInstallment(loan)
		if installment.IsZero() {
			continue
		}
		item := &models.DeductionItem{
			EmployeeID:   settlement.EmployeeID,
			Type:         models.DeductionLoan,
			Concept:      fmt.Sprintf("loan %d installment", loan.ID),
			Amount:       installment,
			LoanID:       &loan.ID,
			SettlementID: &settlement.ID,
			PeriodStart:  settlement.PeriodStart,
			PeriodEnd:    settlement.PeriodEnd,
			CreatedAt:    now,
		}
		if err := l.storage.CreateDeductionItem(item); err != nil {
			return fmt.Errorf("failed to record loan deduction for settlement %d: %w", settlement.ID, err)
		}

		loan.Balance = loan.Balance.Sub(installment)
		loan.UpdatedAt = now
		// Close the loan once the balance hits zero
		if loan.Balance.LessThanOrEqual(decimal.Zero) {
			loan.Balance = decimal.Zero
			loan.Status = models.LoanClosed
		}
		if err := l.storage.UpdateEmployeeLoan(loan); err != nil {
			return fmt.Errorf("failed to apply installment to loan %d: %w", loan.ID, err)
		}
	}
	return nil
}

// SettlementHistory returns an employee's most recent settlements and
// the lifetime total actually paid out.
func (l *Ledger) SettlementHistory(employeeID int64, limit int) ([]*models.Settlement, decimal.Decimal, error) {
	if _, err := l.storage.GetEmployee(employeeID); err != nil {
		return nil, decimal.Zero, err
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	settlements, err := l.storage.ListSettlements(employeeID, limit)
	if err != nil {
		return nil, decimal.Zero, err
	}
	total, err := l.storage.LifetimePaidTotal(employeeID)
	if err != nil {
		return nil, decimal.Zero, err
	}
	return settlements, total, nil
}
