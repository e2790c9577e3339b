package store

import (
	"github.com/shopspring/decimal"
	"github.com/sunkwolf/sistema-proteg-sub000/pkg/models"
)

// Storage defines the persistence operations the ledger engine needs.
// Get* methods return apperr.NotFoundError when the row is missing.
// Lookup methods documented as "nil when absent" return (nil, nil)
// instead, since absence is a normal outcome for them.
type Storage interface {
	// Employees.
	CreateEmployee(e *models.Employee) error
	GetEmployee(id int64) (*models.Employee, error)
	ListEmployees(activeOnly bool) ([]*models.Employee, error)

	// Proposals. RecordReviewDecision applies a manager decision
	// atomically: the status compare-and-set out of pending, the
	// review row, and the collection record when the decision
	// produces one all commit together. A false result means another
	// reviewer got there first and nothing was written.
	CreateProposal(p *models.Proposal) error
	GetProposal(id int64) (*models.Proposal, error)
	ListPendingProposals(collectorID int64, limit, offset int) ([]*models.Proposal, error)
	RecordReviewDecision(r *models.ProposalReview, target models.ProposalStatus, record *models.CollectionRecord) (bool, error)

	// Collection records. UpdateCollectionRecordBatch moves a record
	// into another custody batch.
	CreateCollectionRecord(r *models.CollectionRecord) error
	ListCollections(employeeID int64, period models.Period) ([]*models.CollectionRecord, error)
	ListBatchCollections(batchID int64, unconfirmedOnly bool) ([]*models.CollectionRecord, error)
	UpdateCollectionRecordBatch(recordID, batchID int64) error

	// Cash custody batches. GetOpenCustodyBatch is nil when absent.
	// ConfirmCustodyBatch is a compare-and-set on the confirmed flag
	// and, in the same transaction, confirms exactly the records
	// whose ids were counted into the expected total.
	CreateCustodyBatch(b *models.CashCustodyBatch) error
	GetCustodyBatch(id int64) (*models.CashCustodyBatch, error)
	GetOpenCustodyBatch(collectorID int64) (*models.CashCustodyBatch, error)
	ListOpenCustodyBatches(collectorID int64) ([]*models.CashCustodyBatch, error)
	ConfirmCustodyBatch(b *models.CashCustodyBatch, recordIDs []int64) (bool, error)

	// Deduction items. AcknowledgeDeduction reports whether the row
	// existed and was not already acknowledged.
	CreateDeductionItem(d *models.DeductionItem) error
	GetDeductionItem(id int64) (*models.DeductionItem, error)
	ListDeductionItems(employeeID int64, period models.Period) ([]*models.DeductionItem, error)
	AcknowledgeDeduction(id int64) (bool, error)

	// Fuel expense log.
	CreateFuelEntry(f *models.FuelEntry) error
	ListFuelEntries(employeeID int64, period models.Period) ([]*models.FuelEntry, error)

	// Payroll loans.
	CreateEmployeeLoan(l *models.EmployeeLoan) error
	ListActiveLoans(employeeID int64) ([]*models.EmployeeLoan, error)
	UpdateEmployeeLoan(l *models.EmployeeLoan) error

	// Policy/endorsement deliveries.
	CreateDeliveryEvent(d *models.DeliveryEvent) error
	CountDeliveries(collectorID int64, period models.Period) (int, error)

	// Settlements. GetSettlementByPeriod is nil when absent.
	// MarkSettlementPaid is a compare-and-set pending -> paid.
	// CreateSettlement reports a second paid settlement for the same
	// employee and period as apperr.InvalidStateError.
	CreateSettlement(s *models.Settlement) error
	GetSettlement(id int64) (*models.Settlement, error)
	GetSettlementByPeriod(employeeID int64, period models.Period, status models.SettlementStatus) (*models.Settlement, error)
	MarkSettlementPaid(s *models.Settlement) (bool, error)
	ListSettlements(employeeID int64, limit int) ([]*models.Settlement, error)
	LifetimePaidTotal(employeeID int64) (decimal.Decimal, error)

	Close() error
}
