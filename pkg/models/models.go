package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Role string

const (
	RoleCollector Role = "collector"
	RoleManager   Role = "manager"
)

// Employee is a collector or manager. GoalAmount is the collection
// goal assigned for a pay period; zero means no goal configured.
type Employee struct {
	ID         int64           `json:"id"`
	Name       string          `json:"name"`
	Role       Role            `json:"role"`
	GoalAmount decimal.Decimal `json:"goal_amount"`
	Active     bool            `json:"active"`
	CreatedAt  time.Time       `json:"created_at"`
}

type PaymentMethod string

const (
	MethodCash        PaymentMethod = "cash"
	MethodBankDeposit PaymentMethod = "bank_deposit"
	MethodTransfer    PaymentMethod = "transfer"
)

type ProposalStatus string

const (
	ProposalPending  ProposalStatus = "pending"
	ProposalApproved ProposalStatus = "approved"
	ProposalRejected ProposalStatus = "rejected"
)

// Proposal is a collector's claim that a payment was received.
// Once reviewed it is immutable; a rejected proposal is resubmitted
// as a new proposal with SupersedesID pointing at the old one.
type Proposal struct {
	ID                int64           `json:"id"`
	CollectorID       int64           `json:"collector_id"`
	Folio             string          `json:"folio"`
	InstallmentNumber int             `json:"installment_number"`
	Amount            decimal.Decimal `json:"amount"`
	ExpectedAmount    decimal.Decimal `json:"expected_amount"`
	Method            PaymentMethod   `json:"method"`
	ReceiptNumber     string          `json:"receipt_number"`
	ReceiptPhotoRef   string          `json:"receipt_photo_ref,omitempty"`
	Latitude          float64         `json:"latitude"`
	Longitude         float64         `json:"longitude"`
	Partial           bool            `json:"partial"`
	PartialSeq        int             `json:"partial_seq"`
	CashBasis         bool            `json:"cash_basis"` // pago de contado (full/advance payoff)
	Status            ProposalStatus  `json:"status"`
	SupersedesID      *int64          `json:"supersedes_id,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}

type ReviewDecision string

const (
	DecisionApprove        ReviewDecision = "approve"
	DecisionCorrectApprove ReviewDecision = "correct_approve"
	DecisionReject         ReviewDecision = "reject"
)

// ProposalReview is the immutable record of a manager decision.
type ProposalReview struct {
	ID             int64          `json:"id"`
	ProposalID     int64          `json:"proposal_id"`
	ReviewerID     int64          `json:"reviewer_id"`
	Decision       ReviewDecision `json:"decision"`
	CorrectedField string         `json:"corrected_field,omitempty"`
	CorrectedValue string         `json:"corrected_value,omitempty"`
	Reason         string         `json:"reason,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// CollectionRecord is the read-only projection created the moment a
// proposal is approved. It is the unit commissions are computed from.
type CollectionRecord struct {
	ID             int64           `json:"id"`
	ProposalID     int64           `json:"proposal_id"`
	CollectorID    int64           `json:"collector_id"`
	Folio          string          `json:"folio"`
	Amount         decimal.Decimal `json:"amount"`
	Method         PaymentMethod   `json:"method"`
	CashBasis      bool            `json:"cash_basis"`
	CustodyBatchID *int64          `json:"custody_batch_id,omitempty"`
	CashConfirmed  bool            `json:"cash_confirmed"`
	CollectedAt    time.Time       `json:"collected_at"`
}

// CashCustodyBatch groups a collector's cash-method collections not
// yet physically surrendered. Closing it records the received amount
// and the difference against the expected total.
type CashCustodyBatch struct {
	ID          int64           `json:"id"`
	CollectorID int64           `json:"collector_id"`
	Reference   uuid.UUID       `json:"reference"`
	Expected    decimal.Decimal `json:"expected"`
	Received    decimal.Decimal `json:"received"`
	Difference  decimal.Decimal `json:"difference"`
	Confirmed   bool            `json:"confirmed"`
	ConfirmedBy int64           `json:"confirmed_by,omitempty"`
	ConfirmedAt *time.Time      `json:"confirmed_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// CashConfirmationResult is returned when a custody batch is closed.
type CashConfirmationResult struct {
	BatchID    int64           `json:"batch_id"`
	Expected   decimal.Decimal `json:"expected"`
	Received   decimal.Decimal `json:"received"`
	Difference decimal.Decimal `json:"difference"`
	HasDebt    bool            `json:"has_debt"`
}

type DeductionType string

const (
	DeductionFuel     DeductionType = "fuel"
	DeductionLoan     DeductionType = "loan"
	DeductionShortage DeductionType = "shortage"
	DeductionManual   DeductionType = "manual"
)

// DeductionItem is a single charge against an employee's settlement
// for a period. Manual items anchor to a pending settlement; shortage
// items link back to the custody batch that produced them.
type DeductionItem struct {
	ID             int64           `json:"id"`
	EmployeeID     int64           `json:"employee_id"`
	Type           DeductionType   `json:"type"`
	Concept        string          `json:"concept"`
	Amount         decimal.Decimal `json:"amount"`
	LoanID         *int64          `json:"loan_id,omitempty"`
	CustodyBatchID *int64          `json:"custody_batch_id,omitempty"`
	SettlementID   *int64          `json:"settlement_id,omitempty"`
	PeriodStart    time.Time       `json:"period_start"`
	PeriodEnd      time.Time       `json:"period_end"`
	Acknowledged   bool            `json:"acknowledged"`
	CreatedAt      time.Time       `json:"created_at"`
}

// FuelEntry is a raw fuel expense logged by a collector. A configured
// share of the period's entries is deducted at settlement.
type FuelEntry struct {
	ID         int64           `json:"id"`
	EmployeeID int64           `json:"employee_id"`
	Amount     decimal.Decimal `json:"amount"`
	LoggedAt   time.Time       `json:"logged_at"`
}

type LoanStatus string

const (
	LoanActive LoanStatus = "active"
	LoanClosed LoanStatus = "closed"
)

// EmployeeLoan is a payroll loan. While active, one fixed installment
// is deducted per pay period; the deducted installment is applied to
// the balance when the settlement is paid.
type EmployeeLoan struct {
	ID                int64           `json:"id"`
	EmployeeID        int64           `json:"employee_id"`
	Principal         decimal.Decimal `json:"principal"`
	Balance           decimal.Decimal `json:"balance"`
	InstallmentAmount decimal.Decimal `json:"installment_amount"`
	Status            LoanStatus      `json:"status"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// DeliveryEvent records a physical policy or endorsement handed to a
// client. Commissioned flat per event, independent of cash collected.
type DeliveryEvent struct {
	ID          int64     `json:"id"`
	CollectorID int64     `json:"collector_id"`
	Folio       string    `json:"folio"`
	DeliveredAt time.Time `json:"delivered_at"`
}

type SettlementStatus string

const (
	SettlementPending SettlementStatus = "pending"
	SettlementPaid    SettlementStatus = "paid"
)

// Settlement is the payout to a collector for a pay period. At most
// one paid settlement may exist per (employee, period).
type Settlement struct {
	ID          int64            `json:"id"`
	EmployeeID  int64            `json:"employee_id"`
	Reference   uuid.UUID        `json:"reference"`
	PeriodStart time.Time        `json:"period_start"`
	PeriodEnd   time.Time        `json:"period_end"`
	NetAmount   decimal.Decimal  `json:"net_amount"`
	AmountPaid  decimal.Decimal  `json:"amount_paid"`
	Method      PaymentMethod    `json:"method"`
	Notes       string           `json:"notes,omitempty"`
	Status      SettlementStatus `json:"status"`
	PaidAt      *time.Time       `json:"paid_at,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

type PreviewStatus string

const (
	PreviewNegative PreviewStatus = "negative"
	PreviewAlert    PreviewStatus = "alert"
	PreviewReady    PreviewStatus = "ready"
)

// SettlementPreview is the on-demand projection of what an employee
// would be paid for a period. It is never persisted; the batch
// processor recomputes it before committing.
type SettlementPreview struct {
	EmployeeID     int64           `json:"employee_id"`
	EmployeeName   string          `json:"employee_name"`
	PeriodStart    time.Time       `json:"period_start"`
	PeriodEnd      time.Time       `json:"period_end"`
	GoalAmount     decimal.Decimal `json:"goal_amount"`
	TotalCollected decimal.Decimal `json:"total_collected"`
	GoalPercentage decimal.Decimal `json:"goal_percentage"`

	RegularCommission  decimal.Decimal `json:"regular_commission"`
	CashCommission     decimal.Decimal `json:"cash_commission"`
	DeliveryCommission decimal.Decimal `json:"delivery_commission"`
	TotalCommission    decimal.Decimal `json:"total_commission"`

	FuelDeductions     decimal.Decimal `json:"fuel_deductions"`
	LoanDeductions     decimal.Decimal `json:"loan_deductions"`
	ShortageDeductions decimal.Decimal `json:"shortage_deductions"`
	ManualDeductions   decimal.Decimal `json:"manual_deductions"`
	TotalDeductions    decimal.Decimal `json:"total_deductions"`

	NetAmount    decimal.Decimal `json:"net_amount"`
	Status       PreviewStatus   `json:"status"`
	ExceededGoal bool            `json:"exceeded_goal"`
	Alerts       []string        `json:"alerts,omitempty"`
}
