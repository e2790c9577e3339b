package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunkwolf/sistema-proteg-sub000/pkg/apperr"
	"github.com/sunkwolf/sistema-proteg-sub000/pkg/models"
)

func TestSubmitProposal(t *testing.T) {
	l, m := newTestLedger()
	collector := seedCollector(m, "Ana", "17000")

	p := validProposal(collector.ID)
	require.NoError(t, l.SubmitProposal(p))

	assert.Equal(t, models.ProposalPending, p.Status)
	assert.NotZero(t, p.ID)
	assert.False(t, p.CreatedAt.IsZero())
}

func TestSubmitProposalValidation(t *testing.T) {
	l, m := newTestLedger()
	collector := seedCollector(m, "Ana", "17000")

	tests := []struct {
		name   string
		mutate func(p *models.Proposal)
	}{
		{"zero amount", func(p *models.Proposal) { p.Amount = dec("0") }},
		{"negative amount", func(p *models.Proposal) { p.Amount = dec("-50") }},
		{"unknown method", func(p *models.Proposal) { p.Method = "check" }},
		{"missing folio", func(p *models.Proposal) { p.Folio = "  " }},
		{"partial above balance", func(p *models.Proposal) {
			p.Partial = true
			p.ExpectedAmount = dec("1000")
			p.Amount = dec("1500")
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validProposal(collector.ID)
			tt.mutate(p)
			err := l.SubmitProposal(p)
			assert.True(t, apperr.IsValidation(err), "expected validation error, got %v", err)
		})
	}
}

func TestSubmitProposalUnknownCollector(t *testing.T) {
	l, _ := newTestLedger()

	err := l.SubmitProposal(validProposal(99))
	assert.True(t, apperr.IsNotFound(err))
}

func TestListPendingProposalsFlags(t *testing.T) {
	l, m := newTestLedger()
	collector := seedCollector(m, "Ana", "17000")

	clean := validProposal(collector.ID)
	require.NoError(t, l.SubmitProposal(clean))

	mismatched := validProposal(collector.ID)
	mismatched.Amount = dec("1500")
	mismatched.ReceiptNumber = ""
	require.NoError(t, l.SubmitProposal(mismatched))

	summaries, err := l.ListPendingProposals(collector.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	assert.True(t, summaries[0].AmountsMatch)
	assert.True(t, summaries[0].ReceiptValid)
	assert.False(t, summaries[1].AmountsMatch)
	assert.False(t, summaries[1].ReceiptValid)
}

func TestListPendingProposalsPagination(t *testing.T) {
	l, m := newTestLedger()
	collector := seedCollector(m, "Ana", "17000")
	for i := 0; i < 3; i++ {
		require.NoError(t, l.SubmitProposal(validProposal(collector.ID)))
	}

	page1, err := l.ListPendingProposals(collector.ID, 1, 2)
	require.NoError(t, err)
	page2, err := l.ListPendingProposals(collector.ID, 2, 2)
	require.NoError(t, err)

	assert.Len(t, page1, 2)
	assert.Len(t, page2, 1)
	assert.NotEqual(t, page1[0].ID, page2[0].ID)
}

func TestApproveProposalCreatesRecord(t *testing.T) {
	l, m := newTestLedger()
	collector := seedCollector(m, "Ana", "17000")
	manager := seedManager(m, "Marta")

	p := validProposal(collector.ID)
	require.NoError(t, l.SubmitProposal(p))
	require.NoError(t, l.ApproveProposal(manager, p.ID))

	stored, err := m.GetProposal(p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProposalApproved, stored.Status)

	require.Len(t, m.records, 1)
	record := m.records[0]
	assert.Equal(t, p.ID, record.ProposalID)
	assert.True(t, record.Amount.Equal(p.Amount))
	// cash goes into an open custody batch
	require.NotNil(t, record.CustodyBatchID)
	assert.False(t, record.CashConfirmed)

	require.Len(t, m.reviews, 1)
	assert.Equal(t, models.DecisionApprove, m.reviews[0].Decision)
	assert.Equal(t, manager.EmployeeID, m.reviews[0].ReviewerID)
}

func TestApproveNonCashSkipsCustody(t *testing.T) {
	l, m := newTestLedger()
	collector := seedCollector(m, "Ana", "17000")
	manager := seedManager(m, "Marta")

	p := validProposal(collector.ID)
	p.Method = models.MethodTransfer
	require.NoError(t, l.SubmitProposal(p))
	require.NoError(t, l.ApproveProposal(manager, p.ID))

	require.Len(t, m.records, 1)
	assert.Nil(t, m.records[0].CustodyBatchID)
	assert.Empty(t, m.batches)
}

func TestApproveRequiresManager(t *testing.T) {
	l, m := newTestLedger()
	collector := seedCollector(m, "Ana", "17000")

	p := validProposal(collector.ID)
	require.NoError(t, l.SubmitProposal(p))

	err := l.ApproveProposal(Session{EmployeeID: collector.ID, Role: collector.Role}, p.ID)
	assert.True(t, apperr.IsValidation(err))
}

func TestReviewTwiceRejected(t *testing.T) {
	l, m := newTestLedger()
	collector := seedCollector(m, "Ana", "17000")
	manager := seedManager(m, "Marta")

	p := validProposal(collector.ID)
	require.NoError(t, l.SubmitProposal(p))
	require.NoError(t, l.ApproveProposal(manager, p.ID))

	err := l.ApproveProposal(manager, p.ID)
	assert.True(t, apperr.IsInvalidState(err))

	err = l.RejectProposal(manager, p.ID, "duplicate")
	assert.True(t, apperr.IsInvalidState(err))
}

func TestCorrectAndApproveAmount(t *testing.T) {
	l, m := newTestLedger()
	collector := seedCollector(m, "Ana", "17000")
	manager := seedManager(m, "Marta")

	p := validProposal(collector.ID)
	require.NoError(t, l.SubmitProposal(p))
	require.NoError(t, l.CorrectAndApproveProposal(manager, p.ID, "amount", "1750"))

	// the collection record carries the corrected amount, not the
	// submitted one
	require.Len(t, m.records, 1)
	assert.True(t, m.records[0].Amount.Equal(dec("1750")))

	require.Len(t, m.reviews, 1)
	assert.Equal(t, models.DecisionCorrectApprove, m.reviews[0].Decision)
	assert.Equal(t, "amount", m.reviews[0].CorrectedField)
	assert.Equal(t, "1750", m.reviews[0].CorrectedValue)
}

func TestCorrectAndApproveInvalidAmount(t *testing.T) {
	l, m := newTestLedger()
	collector := seedCollector(m, "Ana", "17000")
	manager := seedManager(m, "Marta")

	p := validProposal(collector.ID)
	require.NoError(t, l.SubmitProposal(p))

	err := l.CorrectAndApproveProposal(manager, p.ID, "amount", "abc")
	assert.True(t, apperr.IsValidation(err))

	err = l.CorrectAndApproveProposal(manager, p.ID, "amount", "-10")
	assert.True(t, apperr.IsValidation(err))

	err = l.CorrectAndApproveProposal(manager, p.ID, "", "1750")
	assert.True(t, apperr.IsValidation(err))
}

func TestRejectRequiresReason(t *testing.T) {
	l, m := newTestLedger()
	collector := seedCollector(m, "Ana", "17000")
	manager := seedManager(m, "Marta")

	p := validProposal(collector.ID)
	require.NoError(t, l.SubmitProposal(p))

	err := l.RejectProposal(manager, p.ID, "   ")
	assert.True(t, apperr.IsValidation(err))
}

func TestResubmitRejectedProposal(t *testing.T) {
	l, m := newTestLedger()
	collector := seedCollector(m, "Ana", "17000")
	manager := seedManager(m, "Marta")

	p := validProposal(collector.ID)
	require.NoError(t, l.SubmitProposal(p))
	require.NoError(t, l.RejectProposal(manager, p.ID, "wrong folio"))

	updated := validProposal(collector.ID)
	updated.Folio = "POL-1002"
	resubmitted, err := l.ResubmitProposal(p.ID, updated)
	require.NoError(t, err)

	assert.Equal(t, models.ProposalPending, resubmitted.Status)
	require.NotNil(t, resubmitted.SupersedesID)
	assert.Equal(t, p.ID, *resubmitted.SupersedesID)
	assert.Equal(t, collector.ID, resubmitted.CollectorID)

	// the rejected original is never mutated back
	old, err := m.GetProposal(p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProposalRejected, old.Status)
}

func TestResubmitOnlyRejected(t *testing.T) {
	l, m := newTestLedger()
	collector := seedCollector(m, "Ana", "17000")

	p := validProposal(collector.ID)
	require.NoError(t, l.SubmitProposal(p))

	_, err := l.ResubmitProposal(p.ID, validProposal(collector.ID))
	assert.True(t, apperr.IsInvalidState(err))
}
