package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sunkwolf/sistema-proteg-sub000/pkg/apperr"
	"github.com/sunkwolf/sistema-proteg-sub000/pkg/models"
)

// CashPendingSummary is one collector's unsurrendered cash: the open
// batch, its unconfirmed items and the expected total.
type CashPendingSummary struct {
	CollectorID   int64                      `json:"collector_id"`
	CollectorName string                     `json:"collector_name"`
	BatchID       int64                      `json:"batch_id"`
	Reference     uuid.UUID                  `json:"reference"`
	Items         []*models.CollectionRecord `json:"items"`
	ExpectedTotal decimal.Decimal            `json:"expected_total"`
}

// openCustodyBatch returns the collector's open batch, creating one
// when no cash is currently in custody.
func (l *Ledger) openCustodyBatch(collectorID int64) (*models.CashCustodyBatch, error) {
	batch, err := l.storage.GetOpenCustodyBatch(collectorID)
	if err != nil {
		return nil, err
	}
	if batch != nil {
		return batch, nil
	}

	batch = &models.CashCustodyBatch{
		CollectorID: collectorID,
		Reference:   uuid.New(),
		Expected:    decimal.Zero,
		Received:    decimal.Zero,
		Difference:  decimal.Zero,
		CreatedAt:   time.Now().UTC(),
	}
	if err := l.storage.CreateCustodyBatch(batch); err != nil {
		return nil, fmt.Errorf("failed to open custody batch for collector %d: %w", collectorID, err)
	}
	return batch, nil
}

// ensureRecordInOpenBatch reattaches a cash record whose batch was
// confirmed between the attach decision and the write. The record was
// never counted into the confirmed batch's expected total, so it moves
// to the collector's next open batch instead of silently leaving its
// cash unreconciled.
func (l *Ledger) ensureRecordInOpenBatch(record *models.CollectionRecord) error {
	for {
		batch, err := l.storage.GetCustodyBatch(*record.CustodyBatchID)
		if err != nil {
			return err
		}
		if !batch.Confirmed {
			return nil
		}
		next, err := l.openCustodyBatch(record.CollectorID)
		if err != nil {
			return err
		}
		if err := l.storage.UpdateCollectionRecordBatch(record.ID, next.ID); err != nil {
			return err
		}
		record.CustodyBatchID = &next.ID
	}
}

// ComputeExpected sums the unconfirmed cash collections in a batch.
// Deterministic, no side effects.
func (l *Ledger) ComputeExpected(batchID int64) (decimal.Decimal, error) {
	records, err := l.storage.ListBatchCollections(batchID, true)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, r := range records {
		total = total.Add(r.Amount)
	}
	return total, nil
}

// ListCashToConfirm returns, per collector with an open batch, the
// unconfirmed cash items and their expected total. collectorID 0
// means all collectors.
func (l *Ledger) ListCashToConfirm(collectorID int64) ([]CashPendingSummary, error) {
	batches, err := l.storage.ListOpenCustodyBatches(collectorID)
	if err != nil {
		return nil, err
	}

	summaries := make([]CashPendingSummary, 0, len(batches))
	for _, b := range batches {
		items, err := l.storage.ListBatchCollections(b.ID, true)
		if err != nil {
			return nil, err
		}
		total := decimal.Zero
		for _, r := range items {
			total = total.Add(r.Amount)
		}
		emp, err := l.storage.GetEmployee(b.CollectorID)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, CashPendingSummary{
			CollectorID:   b.CollectorID,
			CollectorName: emp.Name,
			BatchID:       b.ID,
			Reference:     b.Reference,
			Items:         items,
			ExpectedTotal: total,
		})
	}
	return summaries, nil
}

// ConfirmCash closes a collector's open cash batch against the amount
// physically received. A shortfall becomes a shortage deduction in the
// period containing the confirmation date; the underlying collection
// records are untouched either way, since the client's payment is
// recognized at full expected amount regardless of a collector-side
// shortage.
func (l *Ledger) ConfirmCash(sess Session, collectorID int64, received decimal.Decimal) (*models.CashConfirmationResult, error) {
	if sess.Role != models.RoleManager {
		return nil, apperr.Validation("cash confirmation requires a manager session")
	}
	if received.IsNegative() {
		return nil, apperr.Validation("received amount cannot be negative")
	}

	batch, err := l.storage.GetOpenCustodyBatch(collectorID)
	if err != nil {
		return nil, err
	}
	if batch == nil {
		return nil, apperr.NotFound("open custody batch for collector", collectorID)
	}

	records, err := l.storage.ListBatchCollections(batch.ID, true)
	if err != nil {
		return nil, err
	}
	expected := decimal.Zero
	counted := make([]int64, 0, len(records))
	for _, r := range records {
		expected = expected.Add(r.Amount)
		counted = append(counted, r.ID)
	}

	now := time.Now().UTC()
	batch.Expected = expected
	batch.Received = received
	batch.Difference = received.Sub(expected)
	batch.ConfirmedBy = sess.EmployeeID
	batch.ConfirmedAt = &now

	// Only the records that were summed into the expected total get
	// confirmed; anything attached to the batch afterwards stays
	// unconfirmed and shows up in the next reconciliation.
	closed, err := l.storage.ConfirmCustodyBatch(batch, counted)
	if err != nil {
		return nil, err
	}
	if !closed {
		return nil, apperr.InvalidState("custody batch %d is already confirmed", batch.ID)
	}

	hasDebt := batch.Difference.IsNegative()
	if hasDebt {
		period := models.PeriodForDate(now)
		shortage := &models.DeductionItem{
			EmployeeID:     collectorID,
			Type:           models.DeductionShortage,
			Concept:        fmt.Sprintf("cash shortage on batch %s", batch.Reference),
			Amount:         batch.Difference.Abs(),
			CustodyBatchID: &batch.ID,
			PeriodStart:    period.Start,
			PeriodEnd:      period.End,
			CreatedAt:      now,
		}
		if err := l.storage.CreateDeductionItem(shortage); err != nil {
			return nil, fmt.Errorf("failed to record shortage for batch %d: %w", batch.ID, err)
		}
	}

	return &models.CashConfirmationResult{
		BatchID:    batch.ID,
		Expected:   expected,
		Received:   received,
		Difference: batch.Difference,
		HasDebt:    hasDebt,
	}, nil
}

// AcknowledgeShortage marks a shortage deduction as reviewed by a
// manager. The deduction amount remains; only the preview alert for
// its period is silenced.
func (l *Ledger) AcknowledgeShortage(sess Session, deductionID int64) error {
	if sess.Role != models.RoleManager {
		return apperr.Validation("shortage acknowledgment requires a manager session")
	}
	item, err := l.storage.GetDeductionItem(deductionID)
	if err != nil {
		return err
	}
	if item.Type != models.DeductionShortage {
		return apperr.Validation("deduction %d is %s, only shortages need acknowledgment", item.ID, item.Type)
	}
	acked, err := l.storage.AcknowledgeDeduction(item.ID)
	if err != nil {
		return err
	}
	if !acked {
		return apperr.InvalidState("shortage %d is already acknowledged", item.ID)
	}
	return nil
}
