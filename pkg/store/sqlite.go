package store

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/sunkwolf/sistema-proteg-sub000/pkg/apperr"
	"github.com/sunkwolf/sistema-proteg-sub000/pkg/models"
)

// SQLiteStore manages the database connection and operations for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLiteStore and initializes the database.
func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}

	// Manually enable foreign keys and WAL mode
	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("could not connect to database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("could not initialize schema: %w", err)
	}
	log.Println("Database connection established and schema initialized.")
	return s, nil
}

// initSchema creates the tables if they don't already exist.
// We use TEXT for decimal fields in SQLite to ensure no precision is lost.
func (s *SQLiteStore) initSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS employees (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		role TEXT NOT NULL,
		goal_amount TEXT NOT NULL DEFAULT '0',
		active INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL
	);
	CREATE TABLE IF NOT EXISTS proposals (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		collector_id INTEGER NOT NULL,
		folio TEXT NOT NULL,
		installment_number INTEGER NOT NULL DEFAULT 0,
		amount TEXT NOT NULL,
		expected_amount TEXT NOT NULL DEFAULT '0',
		method TEXT NOT NULL,
		receipt_number TEXT NOT NULL DEFAULT '',
		receipt_photo_ref TEXT NOT NULL DEFAULT '',
		latitude REAL NOT NULL DEFAULT 0,
		longitude REAL NOT NULL DEFAULT 0,
		partial INTEGER NOT NULL DEFAULT 0,
		partial_seq INTEGER NOT NULL DEFAULT 0,
		cash_basis INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		supersedes_id INTEGER,
		created_at DATETIME NOT NULL,
		FOREIGN KEY(collector_id) REFERENCES employees(id)
	);
	CREATE TABLE IF NOT EXISTS proposal_reviews (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		proposal_id INTEGER NOT NULL,
		reviewer_id INTEGER NOT NULL,
		decision TEXT NOT NULL,
		corrected_field TEXT NOT NULL DEFAULT '',
		corrected_value TEXT NOT NULL DEFAULT '',
		reason TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		FOREIGN KEY(proposal_id) REFERENCES proposals(id)
	);
	CREATE TABLE IF NOT EXISTS collection_records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		proposal_id INTEGER NOT NULL,
		collector_id INTEGER NOT NULL,
		folio TEXT NOT NULL,
		amount TEXT NOT NULL,
		method TEXT NOT NULL,
		cash_basis INTEGER NOT NULL DEFAULT 0,
		custody_batch_id INTEGER,
		cash_confirmed INTEGER NOT NULL DEFAULT 0,
		collected_at DATETIME NOT NULL,
		FOREIGN KEY(proposal_id) REFERENCES proposals(id)
	);
	CREATE TABLE IF NOT EXISTS custody_batches (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		collector_id INTEGER NOT NULL,
		reference TEXT NOT NULL,
		expected TEXT NOT NULL DEFAULT '0',
		received TEXT NOT NULL DEFAULT '0',
		difference TEXT NOT NULL DEFAULT '0',
		confirmed INTEGER NOT NULL DEFAULT 0,
		confirmed_by INTEGER NOT NULL DEFAULT 0,
		confirmed_at DATETIME,
		created_at DATETIME NOT NULL,
		FOREIGN KEY(collector_id) REFERENCES employees(id)
	);
	CREATE TABLE IF NOT EXISTS deduction_items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		employee_id INTEGER NOT NULL,
		type TEXT NOT NULL,
		concept TEXT NOT NULL DEFAULT '',
		amount TEXT NOT NULL,
		loan_id INTEGER,
		custody_batch_id INTEGER,
		settlement_id INTEGER,
		period_start DATETIME NOT NULL,
		period_end DATETIME NOT NULL,
		acknowledged INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		FOREIGN KEY(employee_id) REFERENCES employees(id)
	);
	CREATE TABLE IF NOT EXISTS fuel_entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		employee_id INTEGER NOT NULL,
		amount TEXT NOT NULL,
		logged_at DATETIME NOT NULL,
		FOREIGN KEY(employee_id) REFERENCES employees(id)
	);
	CREATE TABLE IF NOT EXISTS employee_loans (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		employee_id INTEGER NOT NULL,
		principal TEXT NOT NULL,
		balance TEXT NOT NULL,
		installment_amount TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		FOREIGN KEY(employee_id) REFERENCES employees(id)
	);
	CREATE TABLE IF NOT EXISTS delivery_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		collector_id INTEGER NOT NULL,
		folio TEXT NOT NULL,
		delivered_at DATETIME NOT NULL,
		FOREIGN KEY(collector_id) REFERENCES employees(id)
	);
	CREATE TABLE IF NOT EXISTS settlements (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		employee_id INTEGER NOT NULL,
		reference TEXT NOT NULL,
		period_start DATETIME NOT NULL,
		period_end DATETIME NOT NULL,
		net_amount TEXT NOT NULL DEFAULT '0',
		amount_paid TEXT NOT NULL DEFAULT '0',
		method TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		paid_at DATETIME,
		created_at DATETIME NOT NULL,
		FOREIGN KEY(employee_id) REFERENCES employees(id)
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_settlements_one_paid
		ON settlements(employee_id, period_start) WHERE status = 'paid';
	CREATE INDEX IF NOT EXISTS idx_proposals_status ON proposals(status, collector_id);
	CREATE INDEX IF NOT EXISTS idx_collections_collector ON collection_records(collector_id, collected_at);
	CREATE INDEX IF NOT EXISTS idx_deductions_employee ON deduction_items(employee_id, period_start);
	`
	_, err := s.db.Exec(schema)
	return err
}

// ---- employees ----

func (s *SQLiteStore) CreateEmployee(e *models.Employee) error {
	res, err := s.db.Exec(
		`INSERT INTO employees (name, role, goal_amount, active, created_at) VALUES (?, ?, ?, ?, ?)`,
		e.Name, e.Role, e.GoalAmount, e.Active, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create employee: %w", err)
	}
	e.ID, err = res.LastInsertId()
	return err
}

func (s *SQLiteStore) GetEmployee(id int64) (*models.Employee, error) {
	var e models.Employee
	row := s.db.QueryRow(`SELECT id, name, role, goal_amount, active, created_at FROM employees WHERE id = ?`, id)
	err := row.Scan(&e.ID, &e.Name, &e.Role, &e.GoalAmount, &e.Active, &e.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperr.NotFound("employee", id)
		}
		return nil, fmt.Errorf("failed to get employee: %w", err)
	}
	return &e, nil
}

func (s *SQLiteStore) ListEmployees(activeOnly bool) ([]*models.Employee, error) {
	query := `SELECT id, name, role, goal_amount, active, created_at FROM employees`
	if activeOnly {
		query += ` WHERE active = 1`
	}
	rows, err := s.db.Query(query + ` ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	defer rows.Close()

	var employees []*models.Employee
	for rows.Next() {
		var e models.Employee
		if err := rows.Scan(&e.ID, &e.Name, &e.Role, &e.GoalAmount, &e.Active, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan employee row: %w", err)
		}
		employees = append(employees, &e)
	}
	return employees, rows.Err()
}

// ---- proposals ----

func (s *SQLiteStore) CreateProposal(p *models.Proposal) error {
	res, err := s.db.Exec(
		`INSERT INTO proposals (collector_id, folio, installment_number, amount, expected_amount, method,
			receipt_number, receipt_photo_ref, latitude, longitude, partial, partial_seq, cash_basis,
			status, supersedes_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.CollectorID, p.Folio, p.InstallmentNumber, p.Amount, p.ExpectedAmount, p.Method,
		p.ReceiptNumber, p.ReceiptPhotoRef, p.Latitude, p.Longitude, p.Partial, p.PartialSeq, p.CashBasis,
		p.Status, nullableID(p.SupersedesID), p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create proposal: %w", err)
	}
	p.ID, err = res.LastInsertId()
	return err
}

const proposalColumns = `id, collector_id, folio, installment_number, amount, expected_amount, method,
	receipt_number, receipt_photo_ref, latitude, longitude, partial, partial_seq, cash_basis,
	status, supersedes_id, created_at`

func scanProposal(row interface{ Scan(...any) error }) (*models.Proposal, error) {
	var p models.Proposal
	var supersedes sql.NullInt64
	err := row.Scan(&p.ID, &p.CollectorID, &p.Folio, &p.InstallmentNumber, &p.Amount, &p.ExpectedAmount,
		&p.Method, &p.ReceiptNumber, &p.ReceiptPhotoRef, &p.Latitude, &p.Longitude, &p.Partial,
		&p.PartialSeq, &p.CashBasis, &p.Status, &supersedes, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	if supersedes.Valid {
		p.SupersedesID = &supersedes.Int64
	}
	return &p, nil
}

func (s *SQLiteStore) GetProposal(id int64) (*models.Proposal, error) {
	row := s.db.QueryRow(`SELECT `+proposalColumns+` FROM proposals WHERE id = ?`, id)
	p, err := scanProposal(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperr.NotFound("proposal", id)
		}
		return nil, fmt.Errorf("failed to get proposal: %w", err)
	}
	return p, nil
}

func (s *SQLiteStore) ListPendingProposals(collectorID int64, limit, offset int) ([]*models.Proposal, error) {
	query := `SELECT ` + proposalColumns + ` FROM proposals WHERE status = 'pending'`
	args := []any{}
	if collectorID != 0 {
		query += ` AND collector_id = ?`
		args = append(args, collectorID)
	}
	query += ` ORDER BY created_at ASC, id ASC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending proposals: %w", err)
	}
	defer rows.Close()

	var proposals []*models.Proposal
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan proposal row: %w", err)
		}
		proposals = append(proposals, p)
	}
	return proposals, rows.Err()
}

// RecordReviewDecision applies a manager decision in one transaction:
// the compare-and-set out of pending, the review row, and the
// collection record the decision produces. Zero rows affected on the
// status update means another reviewer decided first; the transaction
// rolls back and nothing is written.
func (s *SQLiteStore) RecordReviewDecision(r *models.ProposalReview, target models.ProposalStatus, record *models.CollectionRecord) (bool, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return false, fmt.Errorf("failed to begin review transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`UPDATE proposals SET status = ? WHERE id = ? AND status = 'pending'`, target, r.ProposalID)
	if err != nil {
		return false, fmt.Errorf("failed to transition proposal: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected != 1 {
		return false, nil
	}

	reviewRes, err := tx.Exec(
		`INSERT INTO proposal_reviews (proposal_id, reviewer_id, decision, corrected_field, corrected_value, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ProposalID, r.ReviewerID, r.Decision, r.CorrectedField, r.CorrectedValue, r.Reason, r.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to create review: %w", err)
	}
	if r.ID, err = reviewRes.LastInsertId(); err != nil {
		return false, err
	}

	if record != nil {
		recordRes, err := tx.Exec(
			`INSERT INTO collection_records (proposal_id, collector_id, folio, amount, method, cash_basis, custody_batch_id, cash_confirmed, collected_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			record.ProposalID, record.CollectorID, record.Folio, record.Amount, record.Method, record.CashBasis,
			nullableID(record.CustodyBatchID), record.CashConfirmed, record.CollectedAt,
		)
		if err != nil {
			return false, fmt.Errorf("failed to create collection record: %w", err)
		}
		if record.ID, err = recordRes.LastInsertId(); err != nil {
			return false, err
		}
	}
	return true, tx.Commit()
}

// ---- collection records ----

func (s *SQLiteStore) CreateCollectionRecord(r *models.CollectionRecord) error {
	res, err := s.db.Exec(
		`INSERT INTO collection_records (proposal_id, collector_id, folio, amount, method, cash_basis, custody_batch_id, cash_confirmed, collected_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ProposalID, r.CollectorID, r.Folio, r.Amount, r.Method, r.CashBasis, nullableID(r.CustodyBatchID), r.CashConfirmed, r.CollectedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create collection record: %w", err)
	}
	r.ID, err = res.LastInsertId()
	return err
}

const collectionColumns = `id, proposal_id, collector_id, folio, amount, method, cash_basis, custody_batch_id, cash_confirmed, collected_at`

func (s *SQLiteStore) scanCollections(rows *sql.Rows) ([]*models.CollectionRecord, error) {
	var records []*models.CollectionRecord
	for rows.Next() {
		var r models.CollectionRecord
		var batchID sql.NullInt64
		if err := rows.Scan(&r.ID, &r.ProposalID, &r.CollectorID, &r.Folio, &r.Amount, &r.Method,
			&r.CashBasis, &batchID, &r.CashConfirmed, &r.CollectedAt); err != nil {
			return nil, fmt.Errorf("failed to scan collection row: %w", err)
		}
		if batchID.Valid {
			r.CustodyBatchID = &batchID.Int64
		}
		records = append(records, &r)
	}
	return records, rows.Err()
}

func (s *SQLiteStore) ListCollections(employeeID int64, period models.Period) ([]*models.CollectionRecord, error) {
	rows, err := s.db.Query(
		`SELECT `+collectionColumns+` FROM collection_records
		WHERE collector_id = ? AND collected_at >= ? AND collected_at < ? ORDER BY collected_at ASC, id ASC`,
		employeeID, period.Start, period.End,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	defer rows.Close()
	return s.scanCollections(rows)
}

func (s *SQLiteStore) ListBatchCollections(batchID int64, unconfirmedOnly bool) ([]*models.CollectionRecord, error) {
	query := `SELECT ` + collectionColumns + ` FROM collection_records WHERE custody_batch_id = ?`
	if unconfirmedOnly {
		query += ` AND cash_confirmed = 0`
	}
	rows, err := s.db.Query(query+` ORDER BY collected_at ASC, id ASC`, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list batch collections: %w", err)
	}
	defer rows.Close()
	return s.scanCollections(rows)
}

func (s *SQLiteStore) UpdateCollectionRecordBatch(recordID, batchID int64) error {
	res, err := s.db.Exec(`UPDATE collection_records SET custody_batch_id = ? WHERE id = ?`, batchID, recordID)
	if err != nil {
		return fmt.Errorf("failed to move collection record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return apperr.NotFound("collection record", recordID)
	}
	return nil
}

// ---- custody batches ----

func (s *SQLiteStore) CreateCustodyBatch(b *models.CashCustodyBatch) error {
	res, err := s.db.Exec(
		`INSERT INTO custody_batches (collector_id, reference, expected, received, difference, confirmed, confirmed_by, confirmed_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.CollectorID, b.Reference.String(), b.Expected, b.Received, b.Difference, b.Confirmed, b.ConfirmedBy, b.ConfirmedAt, b.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create custody batch: %w", err)
	}
	b.ID, err = res.LastInsertId()
	return err
}

const batchColumns = `id, collector_id, reference, expected, received, difference, confirmed, confirmed_by, confirmed_at, created_at`

func scanBatch(row interface{ Scan(...any) error }) (*models.CashCustodyBatch, error) {
	var b models.CashCustodyBatch
	var refStr string
	var confirmedAt sql.NullTime
	err := row.Scan(&b.ID, &b.CollectorID, &refStr, &b.Expected, &b.Received, &b.Difference,
		&b.Confirmed, &b.ConfirmedBy, &confirmedAt, &b.CreatedAt)
	if err != nil {
		return nil, err
	}
	b.Reference = uuid.MustParse(refStr)
	if confirmedAt.Valid {
		b.ConfirmedAt = &confirmedAt.Time
	}
	return &b, nil
}

func (s *SQLiteStore) GetCustodyBatch(id int64) (*models.CashCustodyBatch, error) {
	row := s.db.QueryRow(`SELECT `+batchColumns+` FROM custody_batches WHERE id = ?`, id)
	b, err := scanBatch(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperr.NotFound("custody batch", id)
		}
		return nil, fmt.Errorf("failed to get custody batch: %w", err)
	}
	return b, nil
}

func (s *SQLiteStore) GetOpenCustodyBatch(collectorID int64) (*models.CashCustodyBatch, error) {
	row := s.db.QueryRow(`SELECT `+batchColumns+` FROM custody_batches WHERE collector_id = ? AND confirmed = 0 ORDER BY id ASC LIMIT 1`, collectorID)
	b, err := scanBatch(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get open custody batch: %w", err)
	}
	return b, nil
}

func (s *SQLiteStore) ListOpenCustodyBatches(collectorID int64) ([]*models.CashCustodyBatch, error) {
	query := `SELECT ` + batchColumns + ` FROM custody_batches WHERE confirmed = 0`
	args := []any{}
	if collectorID != 0 {
		query += ` AND collector_id = ?`
		args = append(args, collectorID)
	}
	rows, err := s.db.Query(query+` ORDER BY collector_id ASC, id ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list open custody batches: %w", err)
	}
	defer rows.Close()

	var batches []*models.CashCustodyBatch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan custody batch row: %w", err)
		}
		batches = append(batches, b)
	}
	return batches, rows.Err()
}

// ConfirmCustodyBatch closes the batch only if it is still open and,
// in the same transaction, confirms exactly the records that were
// counted into the expected total. A record landing in the batch
// after the count stays unconfirmed so its cash is still
// reconcilable. Zero rows affected means the batch was already
// confirmed; nothing is written in that case.
func (s *SQLiteStore) ConfirmCustodyBatch(b *models.CashCustodyBatch, recordIDs []int64) (bool, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return false, fmt.Errorf("failed to begin confirmation transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`UPDATE custody_batches SET expected = ?, received = ?, difference = ?, confirmed = 1, confirmed_by = ?, confirmed_at = ?
		WHERE id = ? AND confirmed = 0`,
		b.Expected, b.Received, b.Difference, b.ConfirmedBy, b.ConfirmedAt, b.ID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to confirm custody batch: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected != 1 {
		return false, nil
	}

	if len(recordIDs) > 0 {
		query := `UPDATE collection_records SET cash_confirmed = 1 WHERE custody_batch_id = ? AND id IN (?` +
			strings.Repeat(", ?", len(recordIDs)-1) + `)`
		args := make([]any, 0, len(recordIDs)+1)
		args = append(args, b.ID)
		for _, id := range recordIDs {
			args = append(args, id)
		}
		if _, err := tx.Exec(query, args...); err != nil {
			return false, fmt.Errorf("failed to confirm counted records: %w", err)
		}
	}
	return true, tx.Commit()
}

// ---- deduction items ----

func (s *SQLiteStore) CreateDeductionItem(d *models.DeductionItem) error {
	res, err := s.db.Exec(
		`INSERT INTO deduction_items (employee_id, type, concept, amount, loan_id, custody_batch_id, settlement_id, period_start, period_end, acknowledged, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.EmployeeID, d.Type, d.Concept, d.Amount, nullableID(d.LoanID), nullableID(d.CustodyBatchID), nullableID(d.SettlementID),
		d.PeriodStart, d.PeriodEnd, d.Acknowledged, d.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create deduction item: %w", err)
	}
	d.ID, err = res.LastInsertId()
	return err
}

const deductionColumns = `id, employee_id, type, concept, amount, loan_id, custody_batch_id, settlement_id, period_start, period_end, acknowledged, created_at`

func scanDeduction(row interface{ Scan(...any) error }) (*models.DeductionItem, error) {
	var d models.DeductionItem
	var loanID, batchID, settlementID sql.NullInt64
	err := row.Scan(&d.ID, &d.EmployeeID, &d.Type, &d.Concept, &d.Amount, &loanID, &batchID, &settlementID,
		&d.PeriodStart, &d.PeriodEnd, &d.Acknowledged, &d.CreatedAt)
	if err != nil {
		return nil, err
	}
	if loanID.Valid {
		d.LoanID = &loanID.Int64
	}
	if batchID.Valid {
		d.CustodyBatchID = &batchID.Int64
	}
	if settlementID.Valid {
		d.SettlementID = &settlementID.Int64
	}
	return &d, nil
}

func (s *SQLiteStore) GetDeductionItem(id int64) (*models.DeductionItem, error) {
	row := s.db.QueryRow(`SELECT `+deductionColumns+` FROM deduction_items WHERE id = ?`, id)
	d, err := scanDeduction(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperr.NotFound("deduction item", id)
		}
		return nil, fmt.Errorf("failed to get deduction item: %w", err)
	}
	return d, nil
}

func (s *SQLiteStore) ListDeductionItems(employeeID int64, period models.Period) ([]*models.DeductionItem, error) {
	rows, err := s.db.Query(
		`SELECT `+deductionColumns+` FROM deduction_items
		WHERE employee_id = ? AND period_start >= ? AND period_start < ? ORDER BY id ASC`,
		employeeID, period.Start, period.End,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list deduction items: %w", err)
	}
	defer rows.Close()

	var items []*models.DeductionItem
	for rows.Next() {
		d, err := scanDeduction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan deduction row: %w", err)
		}
		items = append(items, d)
	}
	return items, rows.Err()
}

func (s *SQLiteStore) AcknowledgeDeduction(id int64) (bool, error) {
	res, err := s.db.Exec(`UPDATE deduction_items SET acknowledged = 1 WHERE id = ? AND acknowledged = 0`, id)
	if err != nil {
		return false, fmt.Errorf("failed to acknowledge deduction: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected: %w", err)
	}
	return affected == 1, nil
}

// ---- fuel entries ----

func (s *SQLiteStore) CreateFuelEntry(f *models.FuelEntry) error {
	res, err := s.db.Exec(
		`INSERT INTO fuel_entries (employee_id, amount, logged_at) VALUES (?, ?, ?)`,
		f.EmployeeID, f.Amount, f.LoggedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create fuel entry: %w", err)
	}
	f.ID, err = res.LastInsertId()
	return err
}

func (s *SQLiteStore) ListFuelEntries(employeeID int64, period models.Period) ([]*models.FuelEntry, error) {
	rows, err := s.db.Query(
		`SELECT id, employee_id, amount, logged_at FROM fuel_entries
		WHERE employee_id = ? AND logged_at >= ? AND logged_at < ? ORDER BY logged_at ASC, id ASC`,
		employeeID, period.Start, period.End,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list fuel entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.FuelEntry
	for rows.Next() {
		var f models.FuelEntry
		if err := rows.Scan(&f.ID, &f.EmployeeID, &f.Amount, &f.LoggedAt); err != nil {
			return nil, fmt.Errorf("failed to scan fuel entry row: %w", err)
		}
		entries = append(entries, &f)
	}
	return entries, rows.Err()
}

// ---- employee loans ----

func (s *SQLiteStore) CreateEmployeeLoan(l *models.EmployeeLoan) error {
	res, err := s.db.Exec(
		`INSERT INTO employee_loans (employee_id, principal, balance, installment_amount, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		l.EmployeeID, l.Principal, l.Balance, l.InstallmentAmount, l.Status, l.CreatedAt, l.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create employee loan: %w", err)
	}
	l.ID, err = res.LastInsertId()
	return err
}

func (s *SQLiteStore) ListActiveLoans(employeeID int64) ([]*models.EmployeeLoan, error) {
	rows, err := s.db.Query(
		`SELECT id, employee_id, principal, balance, installment_amount, status, created_at, updated_at
		FROM employee_loans WHERE employee_id = ? AND status = 'active' ORDER BY id ASC`,
		employeeID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list active loans: %w", err)
	}
	defer rows.Close()

	var loans []*models.EmployeeLoan
	for rows.Next() {
		var l models.EmployeeLoan
		if err := rows.Scan(&l.ID, &l.EmployeeID, &l.Principal, &l.Balance, &l.InstallmentAmount, &l.Status, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan loan row: %w", err)
		}
		loans = append(loans, &l)
	}
	return loans, rows.Err()
}

func (s *SQLiteStore) UpdateEmployeeLoan(l *models.EmployeeLoan) error {
	res, err := s.db.Exec(
		`UPDATE employee_loans SET balance = ?, installment_amount = ?, status = ?, updated_at = ? WHERE id = ?`,
		l.Balance, l.InstallmentAmount, l.Status, l.UpdatedAt, l.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update employee loan: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return apperr.NotFound("employee loan", l.ID)
	}
	return nil
}

// ---- delivery events ----

func (s *SQLiteStore) CreateDeliveryEvent(d *models.DeliveryEvent) error {
	res, err := s.db.Exec(
		`INSERT INTO delivery_events (collector_id, folio, delivered_at) VALUES (?, ?, ?)`,
		d.CollectorID, d.Folio, d.DeliveredAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create delivery event: %w", err)
	}
	d.ID, err = res.LastInsertId()
	return err
}

func (s *SQLiteStore) CountDeliveries(collectorID int64, period models.Period) (int, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM delivery_events WHERE collector_id = ? AND delivered_at >= ? AND delivered_at < ?`,
		collectorID, period.Start, period.End,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count deliveries: %w", err)
	}
	return count, nil
}

// ---- settlements ----

func (s *SQLiteStore) CreateSettlement(st *models.Settlement) error {
	res, err := s.db.Exec(
		`INSERT INTO settlements (employee_id, reference, period_start, period_end, net_amount, amount_paid, method, notes, status, paid_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		st.EmployeeID, st.Reference.String(), st.PeriodStart, st.PeriodEnd, st.NetAmount, st.AmountPaid,
		st.Method, st.Notes, st.Status, st.PaidAt, st.CreatedAt,
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return apperr.InvalidState("employee %d is already paid for period starting %s",
				st.EmployeeID, st.PeriodStart.Format("2006-01-02"))
		}
		return fmt.Errorf("failed to create settlement: %w", err)
	}
	st.ID, err = res.LastInsertId()
	return err
}

const settlementColumns = `id, employee_id, reference, period_start, period_end, net_amount, amount_paid, method, notes, status, paid_at, created_at`

func scanSettlement(row interface{ Scan(...any) error }) (*models.Settlement, error) {
	var st models.Settlement
	var refStr string
	var paidAt sql.NullTime
	err := row.Scan(&st.ID, &st.EmployeeID, &refStr, &st.PeriodStart, &st.PeriodEnd, &st.NetAmount,
		&st.AmountPaid, &st.Method, &st.Notes, &st.Status, &paidAt, &st.CreatedAt)
	if err != nil {
		return nil, err
	}
	st.Reference = uuid.MustParse(refStr)
	if paidAt.Valid {
		st.PaidAt = &paidAt.Time
	}
	return &st, nil
}

func (s *SQLiteStore) GetSettlement(id int64) (*models.Settlement, error) {
	row := s.db.QueryRow(`SELECT `+settlementColumns+` FROM settlements WHERE id = ?`, id)
	st, err := scanSettlement(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperr.NotFound("settlement", id)
		}
		return nil, fmt.Errorf("failed to get settlement: %w", err)
	}
	return st, nil
}

func (s *SQLiteStore) GetSettlementByPeriod(employeeID int64, period models.Period, status models.SettlementStatus) (*models.Settlement, error) {
	row := s.db.QueryRow(
		`SELECT `+settlementColumns+` FROM settlements
		WHERE employee_id = ? AND period_start >= ? AND period_start < ? AND status = ? LIMIT 1`,
		employeeID, period.Start, period.End, status,
	)
	st, err := scanSettlement(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get settlement by period: %w", err)
	}
	return st, nil
}

// MarkSettlementPaid promotes a pending settlement to paid only if it
// is still pending. Zero rows affected means it was already paid.
func (s *SQLiteStore) MarkSettlementPaid(st *models.Settlement) (bool, error) {
	res, err := s.db.Exec(
		`UPDATE settlements SET net_amount = ?, amount_paid = ?, method = ?, notes = ?, status = 'paid', paid_at = ?
		WHERE id = ? AND status = 'pending'`,
		st.NetAmount, st.AmountPaid, st.Method, st.Notes, st.PaidAt, st.ID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark settlement paid: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected: %w", err)
	}
	return affected == 1, nil
}

func (s *SQLiteStore) ListSettlements(employeeID int64, limit int) ([]*models.Settlement, error) {
	rows, err := s.db.Query(
		`SELECT `+settlementColumns+` FROM settlements WHERE employee_id = ? ORDER BY period_start DESC, id DESC LIMIT ?`,
		employeeID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list settlements: %w", err)
	}
	defer rows.Close()

	var settlements []*models.Settlement
	for rows.Next() {
		st, err := scanSettlement(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan settlement row: %w", err)
		}
		settlements = append(settlements, st)
	}
	return settlements, rows.Err()
}

func (s *SQLiteStore) LifetimePaidTotal(employeeID int64) (decimal.Decimal, error) {
	rows, err := s.db.Query(`SELECT amount_paid FROM settlements WHERE employee_id = ? AND status = 'paid'`, employeeID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to total paid settlements: %w", err)
	}
	defer rows.Close()

	// Summed in Go: amounts live in TEXT columns, SQL SUM would go
	// through floating point.
	total := decimal.Zero
	for rows.Next() {
		var amount decimal.Decimal
		if err := rows.Scan(&amount); err != nil {
			return decimal.Zero, fmt.Errorf("failed to scan paid amount: %w", err)
		}
		total = total.Add(amount)
	}
	return total, rows.Err()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func nullableID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}
