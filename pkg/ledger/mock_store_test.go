package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/sunkwolf/sistema-proteg-sub000/pkg/apperr"
	"github.com/sunkwolf/sistema-proteg-sub000/pkg/models"
)

// MockStore is a simple in-memory implementation of the Storage
// interface for testing. It mirrors the SQLite store's guarded
// updates so the engine's compare-and-set paths behave the same.
type MockStore struct {
	employees   map[int64]*models.Employee
	proposals   map[int64]*models.Proposal
	reviews     []*models.ProposalReview
	records     []*models.CollectionRecord
	batches     map[int64]*models.CashCustodyBatch
	deductions  map[int64]*models.DeductionItem
	fuel        []*models.FuelEntry
	loans       map[int64]*models.EmployeeLoan
	deliveries  []*models.DeliveryEvent
	settlements map[int64]*models.Settlement
	nextID      int64
}

func NewMockStore() *MockStore {
	return &MockStore{
		employees:   make(map[int64]*models.Employee),
		proposals:   make(map[int64]*models.Proposal),
		batches:     make(map[int64]*models.CashCustodyBatch),
		deductions:  make(map[int64]*models.DeductionItem),
		loans:       make(map[int64]*models.EmployeeLoan),
		settlements: make(map[int64]*models.Settlement),
	}
}

func (m *MockStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *MockStore) CreateEmployee(e *models.Employee) error {
	e.ID = m.id()
	m.employees[e.ID] = e
	return nil
}

func (m *MockStore) GetEmployee(id int64) (*models.Employee, error) {
	e, ok := m.employees[id]
	if !ok {
		return nil, apperr.NotFound("employee", id)
	}
	return e, nil
}

func (m *MockStore) ListEmployees(activeOnly bool) ([]*models.Employee, error) {
	var out []*models.Employee
	for id := int64(1); id <= m.nextID; id++ {
		if e, ok := m.employees[id]; ok && (!activeOnly || e.Active) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *MockStore) CreateProposal(p *models.Proposal) error {
	p.ID = m.id()
	m.proposals[p.ID] = p
	return nil
}

func (m *MockStore) GetProposal(id int64) (*models.Proposal, error) {
	p, ok := m.proposals[id]
	if !ok {
		return nil, apperr.NotFound("proposal", id)
	}
	return p, nil
}

func (m *MockStore) ListPendingProposals(collectorID int64, limit, offset int) ([]*models.Proposal, error) {
	var out []*models.Proposal
	for id := int64(1); id <= m.nextID; id++ {
		p, ok := m.proposals[id]
		if !ok || p.Status != models.ProposalPending {
			continue
		}
		if collectorID != 0 && p.CollectorID != collectorID {
			continue
		}
		out = append(out, p)
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockStore) RecordReviewDecision(r *models.ProposalReview, target models.ProposalStatus, record *models.CollectionRecord) (bool, error) {
	p, ok := m.proposals[r.ProposalID]
	if !ok || p.Status != models.ProposalPending {
		return false, nil
	}
	p.Status = target
	r.ID = m.id()
	m.reviews = append(m.reviews, r)
	if record != nil {
		record.ID = m.id()
		m.records = append(m.records, record)
	}
	return true, nil
}

func (m *MockStore) CreateCollectionRecord(r *models.CollectionRecord) error {
	r.ID = m.id()
	m.records = append(m.records, r)
	return nil
}

func (m *MockStore) ListCollections(employeeID int64, period models.Period) ([]*models.CollectionRecord, error) {
	var out []*models.CollectionRecord
	for _, r := range m.records {
		if r.CollectorID == employeeID && period.Contains(r.CollectedAt) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *MockStore) ListBatchCollections(batchID int64, unconfirmedOnly bool) ([]*models.CollectionRecord, error) {
	var out []*models.CollectionRecord
	for _, r := range m.records {
		if r.CustodyBatchID == nil || *r.CustodyBatchID != batchID {
			continue
		}
		if unconfirmedOnly && r.CashConfirmed {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (m *MockStore) UpdateCollectionRecordBatch(recordID, batchID int64) error {
	for _, r := range m.records {
		if r.ID == recordID {
			r.CustodyBatchID = &batchID
			return nil
		}
	}
	return apperr.NotFound("collection record", recordID)
}

func (m *MockStore) CreateCustodyBatch(b *models.CashCustodyBatch) error {
	b.ID = m.id()
	m.batches[b.ID] = b
	return nil
}

func (m *MockStore) GetCustodyBatch(id int64) (*models.CashCustodyBatch, error) {
	b, ok := m.batches[id]
	if !ok {
		return nil, apperr.NotFound("custody batch", id)
	}
	return b, nil
}

func (m *MockStore) GetOpenCustodyBatch(collectorID int64) (*models.CashCustodyBatch, error) {
	for id := int64(1); id <= m.nextID; id++ {
		if b, ok := m.batches[id]; ok && b.CollectorID == collectorID && !b.Confirmed {
			return b, nil
		}
	}
	return nil, nil
}

func (m *MockStore) ListOpenCustodyBatches(collectorID int64) ([]*models.CashCustodyBatch, error) {
	var out []*models.CashCustodyBatch
	for id := int64(1); id <= m.nextID; id++ {
		b, ok := m.batches[id]
		if !ok || b.Confirmed {
			continue
		}
		if collectorID != 0 && b.CollectorID != collectorID {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (m *MockStore) ConfirmCustodyBatch(b *models.CashCustodyBatch, recordIDs []int64) (bool, error) {
	stored, ok := m.batches[b.ID]
	if !ok || stored.Confirmed {
		return false, nil
	}
	b.Confirmed = true
	m.batches[b.ID] = b
	counted := make(map[int64]bool, len(recordIDs))
	for _, id := range recordIDs {
		counted[id] = true
	}
	for _, r := range m.records {
		if r.CustodyBatchID != nil && *r.CustodyBatchID == b.ID && counted[r.ID] {
			r.CashConfirmed = true
		}
	}
	return true, nil
}

func (m *MockStore) CreateDeductionItem(d *models.DeductionItem) error {
	d.ID = m.id()
	m.deductions[d.ID] = d
	return nil
}

func (m *MockStore) GetDeductionItem(id int64) (*models.DeductionItem, error) {
	d, ok := m.deductions[id]
	if !ok {
		return nil, apperr.NotFound("deduction item", id)
	}
	return d, nil
}

func (m *MockStore) ListDeductionItems(employeeID int64, period models.Period) ([]*models.DeductionItem, error) {
	var out []*models.DeductionItem
	for id := int64(1); id <= m.nextID; id++ {
		d, ok := m.deductions[id]
		if !ok || d.EmployeeID != employeeID {
			continue
		}
		if !period.Contains(d.PeriodStart) {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func (m *MockStore) AcknowledgeDeduction(id int64) (bool, error) {
	d, ok := m.deductions[id]
	if !ok || d.Acknowledged {
		return false, nil
	}
	d.Acknowledged = true
	return true, nil
}

func (m *MockStore) CreateFuelEntry(f *models.FuelEntry) error {
	f.ID = m.id()
	m.fuel = append(m.fuel, f)
	return nil
}

func (m *MockStore) ListFuelEntries(employeeID int64, period models.Period) ([]*models.FuelEntry, error) {
	var out []*models.FuelEntry
	for _, f := range m.fuel {
		if f.EmployeeID == employeeID && period.Contains(f.LoggedAt) {
			out = append(out, f)
		}
	}
	return out, nil
}

func (m *MockStore) CreateEmployeeLoan(l *models.EmployeeLoan) error {
	l.ID = m.id()
	m.loans[l.ID] = l
	return nil
}

func (m *MockStore) ListActiveLoans(employeeID int64) ([]*models.EmployeeLoan, error) {
	var out []*models.EmployeeLoan
	for id := int64(1); id <= m.nextID; id++ {
		if l, ok := m.loans[id]; ok && l.EmployeeID == employeeID && l.Status == models.LoanActive {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *MockStore) UpdateEmployeeLoan(l *models.EmployeeLoan) error {
	if _, ok := m.loans[l.ID]; !ok {
		return apperr.NotFound("employee loan", l.ID)
	}
	m.loans[l.ID] = l
	return nil
}

func (m *MockStore) CreateDeliveryEvent(d *models.DeliveryEvent) error {
	d.ID = m.id()
	m.deliveries = append(m.deliveries, d)
	return nil
}

func (m *MockStore) CountDeliveries(collectorID int64, period models.Period) (int, error) {
	count := 0
	for _, d := range m.deliveries {
		if d.CollectorID == collectorID && period.Contains(d.DeliveredAt) {
			count++
		}
	}
	return count, nil
}

func (m *MockStore) CreateSettlement(s *models.Settlement) error {
	// mirror the partial unique index on paid settlements
	if s.Status == models.SettlementPaid {
		for _, other := range m.settlements {
			if other.EmployeeID == s.EmployeeID && other.Status == models.SettlementPaid && other.PeriodStart.Equal(s.PeriodStart) {
				return apperr.InvalidState("paid settlement already exists for employee %d", s.EmployeeID)
			}
		}
	}
	s.ID = m.id()
	m.settlements[s.ID] = s
	return nil
}

func (m *MockStore) GetSettlement(id int64) (*models.Settlement, error) {
	s, ok := m.settlements[id]
	if !ok {
		return nil, apperr.NotFound("settlement", id)
	}
	return s, nil
}

func (m *MockStore) GetSettlementByPeriod(employeeID int64, period models.Period, status models.SettlementStatus) (*models.Settlement, error) {
	for id := int64(1); id <= m.nextID; id++ {
		s, ok := m.settlements[id]
		if ok && s.EmployeeID == employeeID && s.Status == status && period.Contains(s.PeriodStart) {
			return s, nil
		}
	}
	return nil, nil
}

func (m *MockStore) MarkSettlementPaid(s *models.Settlement) (bool, error) {
	stored, ok := m.settlements[s.ID]
	if !ok || stored.Status != models.SettlementPending {
		return false, nil
	}
	s.Status = models.SettlementPaid
	m.settlements[s.ID] = s
	return true, nil
}

func (m *MockStore) ListSettlements(employeeID int64, limit int) ([]*models.Settlement, error) {
	var out []*models.Settlement
	for id := m.nextID; id >= 1; id-- {
		if s, ok := m.settlements[id]; ok && s.EmployeeID == employeeID {
			out = append(out, s)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (m *MockStore) LifetimePaidTotal(employeeID int64) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, s := range m.settlements {
		if s.EmployeeID == employeeID && s.Status == models.SettlementPaid {
			total = total.Add(s.AmountPaid)
		}
	}
	return total, nil
}

func (m *MockStore) Close() error {
	return nil
}
