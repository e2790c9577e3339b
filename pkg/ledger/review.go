package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sunkwolf/sistema-proteg-sub000/pkg/apperr"
	"github.com/sunkwolf/sistema-proteg-sub000/pkg/models"
)

// ProposalSummary is a pending proposal plus the advisory flags a
// reviewer sees. Neither flag ever blocks a decision.
type ProposalSummary struct {
	models.Proposal
	AmountsMatch bool `json:"amounts_match"`
	ReceiptValid bool `json:"receipt_valid"`
}

func validMethod(m models.PaymentMethod) bool {
	switch m {
	case models.MethodCash, models.MethodBankDeposit, models.MethodTransfer:
		return true
	}
	return false
}

// SubmitProposal registers a collector's payment claim in pending state.
func (l *Ledger) SubmitProposal(p *models.Proposal) error {
	if p.Amount.LessThanOrEqual(decimal.Zero) {
		return apperr.Validation("proposal amount must be positive")
	}
	if !validMethod(p.Method) {
		return apperr.Validation("unknown payment method %q", p.Method)
	}
	if strings.TrimSpace(p.Folio) == "" {
		return apperr.Validation("folio is required")
	}
	if p.Partial && p.ExpectedAmount.GreaterThan(decimal.Zero) && p.Amount.GreaterThan(p.ExpectedAmount) {
		return apperr.Validation("partial payment %s exceeds remaining balance %s", p.Amount, p.ExpectedAmount)
	}
	if _, err := l.storage.GetEmployee(p.CollectorID); err != nil {
		return err
	}

	p.Status = models.ProposalPending
	p.CreatedAt = time.Now().UTC()
	return l.storage.CreateProposal(p)
}

// ListPendingProposals returns pending proposals with advisory flags.
// collectorID 0 means all collectors.
func (l *Ledger) ListPendingProposals(collectorID int64, page, pageSize int) ([]ProposalSummary, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	proposals, err := l.storage.ListPendingProposals(collectorID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}

	summaries := make([]ProposalSummary, 0, len(proposals))
	for _, p := range proposals {
		summaries = append(summaries, ProposalSummary{
			Proposal:     *p,
			AmountsMatch: p.ExpectedAmount.IsZero() || p.Amount.Equal(p.ExpectedAmount),
			ReceiptValid: strings.TrimSpace(p.ReceiptNumber) != "",
		})
	}
	return summaries, nil
}

// ApproveProposal approves a pending proposal as submitted and
// projects it into a collection record.
func (l *Ledger) ApproveProposal(sess Session, proposalID int64) error {
	return l.reviewProposal(sess, proposalID, models.DecisionApprove, "", "", "")
}

// CorrectAndApproveProposal approves a pending proposal with one field
// corrected. When the corrected field is the amount, the collection
// record carries the corrected value, never the submitted one.
func (l *Ledger) CorrectAndApproveProposal(sess Session, proposalID int64, field, value string) error {
	if strings.TrimSpace(field) == "" {
		return apperr.Validation("corrected field is required")
	}
	return l.reviewProposal(sess, proposalID, models.DecisionCorrectApprove, field, value, "")
}

// RejectProposal rejects a pending proposal. A reason is mandatory.
func (l *Ledger) RejectProposal(sess Session, proposalID int64, reason string) error {
	if strings.TrimSpace(reason) == "" {
		return apperr.Validation("rejection reason is required")
	}
	return l.reviewProposal(sess, proposalID, models.DecisionReject, "", "", reason)
}

func (l *Ledger) reviewProposal(sess Session, proposalID int64, decision models.ReviewDecision, field, value, reason string) error {
	if sess.Role != models.RoleManager {
		return apperr.Validation("proposal review requires a manager session")
	}

	p, err := l.storage.GetProposal(proposalID)
	if err != nil {
		return err
	}
	if p.Status != models.ProposalPending {
		return apperr.InvalidState("proposal %d is already %s", p.ID, p.Status)
	}

	amount := p.Amount
	if decision == models.DecisionCorrectApprove && field == "amount" {
		corrected, err := decimal.NewFromString(value)
		if err != nil {
			return apperr.Validation("corrected amount %q is not a valid number", value)
		}
		if corrected.LessThanOrEqual(decimal.Zero) {
			return apperr.Validation("corrected amount must be positive")
		}
		amount = corrected
	}

	target := models.ProposalApproved
	if decision == models.DecisionReject {
		target = models.ProposalRejected
	}

	review := &models.ProposalReview{
		ProposalID:     p.ID,
		ReviewerID:     sess.EmployeeID,
		Decision:       decision,
		CorrectedField: field,
		CorrectedValue: value,
		Reason:         reason,
		CreatedAt:      time.Now().UTC(),
	}

	var record *models.CollectionRecord
	if target == models.ProposalApproved {
		record = &models.CollectionRecord{
			ProposalID:  p.ID,
			CollectorID: p.CollectorID,
			Folio:       p.Folio,
			Amount:      amount,
			Method:      p.Method,
			CashBasis:   p.CashBasis,
			CollectedAt: time.Now().UTC(),
		}
		if p.Method == models.MethodCash {
			batch, err := l.openCustodyBatch(p.CollectorID)
			if err != nil {
				return err
			}
			record.CustodyBatchID = &batch.ID
		}
	}

	// The compare-and-set on status is the concurrency control: once
	// a decision lands the proposal is immutable. Status, review and
	// record land in one transaction so a crash cannot leave a
	// reviewed proposal without its paper trail.
	moved, err := l.storage.RecordReviewDecision(review, target, record)
	if err != nil {
		return fmt.Errorf("failed to record decision for proposal %d: %w", p.ID, err)
	}
	if !moved {
		return apperr.InvalidState("proposal %d was already reviewed", p.ID)
	}

	// The batch may have been confirmed while the decision was being
	// written; the record would then sit in a closed batch uncounted.
	if record != nil && record.CustodyBatchID != nil {
		return l.ensureRecordInOpenBatch(record)
	}
	return nil
}

// ResubmitProposal creates a new pending proposal superseding a
// rejected one. The rejected proposal itself is never mutated back.
func (l *Ledger) ResubmitProposal(rejectedID int64, updated *models.Proposal) (*models.Proposal, error) {
	old, err := l.storage.GetProposal(rejectedID)
	if err != nil {
		return nil, err
	}
	if old.Status != models.ProposalRejected {
		return nil, apperr.InvalidState("proposal %d is %s, only rejected proposals can be resubmitted", old.ID, old.Status)
	}

	updated.CollectorID = old.CollectorID
	updated.SupersedesID = &old.ID
	if err := l.SubmitProposal(updated); err != nil {
		return nil, err
	}
	return updated, nil
}
