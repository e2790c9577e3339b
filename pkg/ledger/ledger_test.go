package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/sunkwolf/sistema-proteg-sub000/pkg/models"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestLedger() (*Ledger, *MockStore) {
	m := NewMockStore()
	return NewLedger(m, DefaultRates()), m
}

func seedCollector(m *MockStore, name, goal string) *models.Employee {
	emp := &models.Employee{
		Name:       name,
		Role:       models.RoleCollector,
		GoalAmount: dec(goal),
		Active:     true,
		CreatedAt:  time.Now().UTC(),
	}
	m.CreateEmployee(emp)
	return emp
}

func seedManager(m *MockStore, name string) Session {
	emp := &models.Employee{
		Name:      name,
		Role:      models.RoleManager,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	m.CreateEmployee(emp)
	return Session{EmployeeID: emp.ID, Role: emp.Role}
}

func seedRecord(m *MockStore, collectorID int64, amount string, cashBasis bool, at time.Time) *models.CollectionRecord {
	r := &models.CollectionRecord{
		CollectorID: collectorID,
		Folio:       "POL-1001",
		Amount:      dec(amount),
		Method:      models.MethodCash,
		CashBasis:   cashBasis,
		CollectedAt: at,
	}
	m.CreateCollectionRecord(r)
	return r
}

func seedDelivery(m *MockStore, collectorID int64, at time.Time) {
	m.CreateDeliveryEvent(&models.DeliveryEvent{
		CollectorID: collectorID,
		Folio:       "POL-2001",
		DeliveredAt: at,
	})
}

func seedFuel(m *MockStore, employeeID int64, amount string, at time.Time) {
	m.CreateFuelEntry(&models.FuelEntry{
		EmployeeID: employeeID,
		Amount:     dec(amount),
		LoggedAt:   at,
	})
}

func seedLoan(m *MockStore, employeeID int64, balance, installment string) *models.EmployeeLoan {
	now := time.Now().UTC()
	loan := &models.EmployeeLoan{
		EmployeeID:        employeeID,
		Principal:         dec(balance),
		Balance:           dec(balance),
		InstallmentAmount: dec(installment),
		Status:            models.LoanActive,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	m.CreateEmployeeLoan(loan)
	return loan
}

func validProposal(collectorID int64) *models.Proposal {
	return &models.Proposal{
		CollectorID:       collectorID,
		Folio:             "POL-1001",
		InstallmentNumber: 3,
		Amount:            dec("1800"),
		ExpectedAmount:    dec("1800"),
		Method:            models.MethodCash,
		ReceiptNumber:     "R-445",
	}
}
