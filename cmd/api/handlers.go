package main

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/sunkwolf/sistema-proteg-sub000/pkg/apperr"
	"github.com/sunkwolf/sistema-proteg-sub000/pkg/ledger"
	"github.com/sunkwolf/sistema-proteg-sub000/pkg/models"
	"github.com/sunkwolf/sistema-proteg-sub000/pkg/store"
)

// Server holds the ledger instance.
type Server struct {
	ledger  *ledger.Ledger
	storage store.Storage // Keep a reference to the storage to close it
}

func NewServer(s store.Storage, rates ledger.Rates) *Server {
	return &Server{
		ledger:  ledger.NewLedger(s, rates),
		storage: s,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps the business error taxonomy onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case apperr.IsValidation(err):
		status = http.StatusBadRequest
	case apperr.IsNotFound(err):
		status = http.StatusNotFound
	case apperr.IsInvalidState(err):
		status = http.StatusConflict
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// sessionFor resolves an employee id into the explicit session object
// the engine expects.
func (s *Server) sessionFor(employeeID int64) (ledger.Session, error) {
	emp, err := s.storage.GetEmployee(employeeID)
	if err != nil {
		return ledger.Session{}, err
	}
	return ledger.Session{EmployeeID: emp.ID, Role: emp.Role}, nil
}

func pathID(r *http.Request) (int64, error) {
	idStr := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation("invalid id %q", idStr)
	}
	return id, nil
}

func queryInt64(r *http.Request, key string) int64 {
	v, _ := strconv.ParseInt(r.URL.Query().Get(key), 10, 64)
	return v
}

func queryInt(r *http.Request, key string) int {
	v, _ := strconv.Atoi(r.URL.Query().Get(key))
	return v
}

// queryPeriod derives the quincena from a ?date=YYYY-MM-DD parameter,
// defaulting to the current one.
func queryPeriod(r *http.Request) (models.Period, error) {
	dateStr := r.URL.Query().Get("date")
	if dateStr == "" {
		return models.PeriodForDate(time.Now().UTC()), nil
	}
	t, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return models.Period{}, apperr.Validation("invalid date %q, expected YYYY-MM-DD", dateStr)
	}
	return models.PeriodForDate(t), nil
}

func bodyPeriod(dateStr string) (models.Period, error) {
	if dateStr == "" {
		return models.PeriodForDate(time.Now().UTC()), nil
	}
	t, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return models.Period{}, apperr.Validation("invalid date %q, expected YYYY-MM-DD", dateStr)
	}
	return models.PeriodForDate(t), nil
}

// ---- proposals ----

type proposalRequest struct {
	CollectorID       int64           `json:"collector_id"`
	Folio             string          `json:"folio"`
	InstallmentNumber int             `json:"installment_number"`
	Amount            decimal.Decimal `json:"amount"`
	ExpectedAmount    decimal.Decimal `json:"expected_amount"`
	Method            string          `json:"method"`
	ReceiptNumber     string          `json:"receipt_number"`
	ReceiptPhotoRef   string          `json:"receipt_photo_ref"`
	Latitude          float64         `json:"latitude"`
	Longitude         float64         `json:"longitude"`
	Partial           bool            `json:"partial"`
	PartialSeq        int             `json:"partial_seq"`
	CashBasis         bool            `json:"cash_basis"`
}

func (req *proposalRequest) toModel() *models.Proposal {
	return &models.Proposal{
		CollectorID:       req.CollectorID,
		Folio:             req.Folio,
		InstallmentNumber: req.InstallmentNumber,
		Amount:            req.Amount,
		ExpectedAmount:    req.ExpectedAmount,
		Method:            models.PaymentMethod(req.Method),
		ReceiptNumber:     req.ReceiptNumber,
		ReceiptPhotoRef:   req.ReceiptPhotoRef,
		Latitude:          req.Latitude,
		Longitude:         req.Longitude,
		Partial:           req.Partial,
		PartialSeq:        req.PartialSeq,
		CashBasis:         req.CashBasis,
	}
}

func (s *Server) submitProposalHandler(w http.ResponseWriter, r *http.Request) {
	var req proposalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	p := req.toModel()
	if err := s.ledger.SubmitProposal(p); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) listPendingProposalsHandler(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.ledger.ListPendingProposals(queryInt64(r, "collector_id"), queryInt(r, "page"), queryInt(r, "page_size"))
	if err != nil {
		writeError(w, err)
		return
	}
	if summaries == nil {
		summaries = []ledger.ProposalSummary{}
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (s *Server) reviewProposalHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req struct {
		ReviewerID     int64  `json:"reviewer_id"`
		Decision       string `json:"decision"`
		CorrectedField string `json:"corrected_field"`
		CorrectedValue string `json:"corrected_value"`
		Reason         string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	sess, err := s.sessionFor(req.ReviewerID)
	if err != nil {
		writeError(w, err)
		return
	}

	switch models.ReviewDecision(req.Decision) {
	case models.DecisionApprove:
		err = s.ledger.ApproveProposal(sess, id)
	case models.DecisionCorrectApprove:
		err = s.ledger.CorrectAndApproveProposal(sess, id, req.CorrectedField, req.CorrectedValue)
	case models.DecisionReject:
		err = s.ledger.RejectProposal(sess, id, req.Reason)
	default:
		err = apperr.Validation("unknown decision %q", req.Decision)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) resubmitProposalHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req proposalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	p, err := s.ledger.ResubmitProposal(id, req.toModel())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// ---- cash custody ----

func (s *Server) listCashPendingHandler(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.ledger.ListCashToConfirm(queryInt64(r, "collector_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if summaries == nil {
		summaries = []ledger.CashPendingSummary{}
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (s *Server) confirmCashHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ManagerID      int64           `json:"manager_id"`
		CollectorID    int64           `json:"collector_id"`
		ReceivedAmount decimal.Decimal `json:"received_amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	sess, err := s.sessionFor(req.ManagerID)
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := s.ledger.ConfirmCash(sess, req.CollectorID, req.ReceivedAmount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) acknowledgeShortageHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req struct {
		ManagerID int64 `json:"manager_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	sess, err := s.sessionFor(req.ManagerID)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.ledger.AcknowledgeShortage(sess, id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---- settlements ----

func (s *Server) listPreviewsHandler(w http.ResponseWriter, r *http.Request) {
	period, err := queryPeriod(r)
	if err != nil {
		writeError(w, err)
		return
	}
	previews, err := s.ledger.BuildAllPreviews(period)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, previews)
}

func (s *Server) getPreviewHandler(w http.ResponseWriter, r *http.Request) {
	period, err := queryPeriod(r)
	if err != nil {
		writeError(w, err)
		return
	}
	employeeID := queryInt64(r, "employee_id")
	if employeeID == 0 {
		writeError(w, apperr.Validation("employee_id is required"))
		return
	}
	preview, err := s.ledger.BuildPreview(employeeID, period)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

func (s *Server) createSettlementHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EmployeeID     int64            `json:"employee_id"`
		Date           string           `json:"date"`
		Method         string           `json:"method"`
		OverrideAmount *decimal.Decimal `json:"override_amount"`
		Notes          string           `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	period, err := bodyPeriod(req.Date)
	if err != nil {
		writeError(w, err)
		return
	}

	st, err := s.ledger.CreateSettlement(req.EmployeeID, period, models.PaymentMethod(req.Method), req.OverrideAmount, req.Notes)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

func (s *Server) createPendingSettlementHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EmployeeID int64  `json:"employee_id"`
		Date       string `json:"date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	period, err := bodyPeriod(req.Date)
	if err != nil {
		writeError(w, err)
		return
	}

	st, err := s.ledger.EnsurePendingSettlement(req.EmployeeID, period)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

func (s *Server) batchSettlementHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EmployeeIDs []int64 `json:"employee_ids"`
		Date        string  `json:"date"`
		Method      string  `json:"method"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(req.EmployeeIDs) == 0 {
		writeError(w, apperr.Validation("employee_ids is required"))
		return
	}

	period, err := bodyPeriod(req.Date)
	if err != nil {
		writeError(w, err)
		return
	}

	results := s.ledger.PayBatch(req.EmployeeIDs, period, models.PaymentMethod(req.Method))
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) addManualDeductionHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req struct {
		ManagerID int64           `json:"manager_id"`
		Type      string          `json:"type"`
		Concept   string          `json:"concept"`
		Amount    decimal.Decimal `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	sess, err := s.sessionFor(req.ManagerID)
	if err != nil {
		writeError(w, err)
		return
	}

	breakdown, err := s.ledger.AddManualDeduction(sess, id, models.DeductionType(req.Type), req.Concept, req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, breakdown)
}

func (s *Server) settlementHistoryHandler(w http.ResponseWriter, r *http.Request) {
	employeeID := queryInt64(r, "employee_id")
	if employeeID == 0 {
		writeError(w, apperr.Validation("employee_id is required"))
		return
	}

	settlements, total, err := s.ledger.SettlementHistory(employeeID, queryInt(r, "limit"))
	if err != nil {
		writeError(w, err)
		return
	}
	if settlements == nil {
		settlements = []*models.Settlement{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"settlements":         settlements,
		"lifetime_paid_total": total,
	})
}

// ---- supporting data entry ----

func (s *Server) createEmployeeHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name       string          `json:"name"`
		Role       string          `json:"role"`
		GoalAmount decimal.Decimal `json:"goal_amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		writeError(w, apperr.Validation("name is required"))
		return
	}
	role := models.Role(req.Role)
	if role != models.RoleCollector && role != models.RoleManager {
		writeError(w, apperr.Validation("unknown role %q", req.Role))
		return
	}

	emp := &models.Employee{
		Name:       req.Name,
		Role:       role,
		GoalAmount: req.GoalAmount,
		Active:     true,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.storage.CreateEmployee(emp); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, emp)
}

func (s *Server) createFuelEntryHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EmployeeID int64           `json:"employee_id"`
		Amount     decimal.Decimal `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		writeError(w, apperr.Validation("fuel amount must be positive"))
		return
	}
	if _, err := s.storage.GetEmployee(req.EmployeeID); err != nil {
		writeError(w, err)
		return
	}

	entry := &models.FuelEntry{
		EmployeeID: req.EmployeeID,
		Amount:     req.Amount,
		LoggedAt:   time.Now().UTC(),
	}
	if err := s.storage.CreateFuelEntry(entry); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) createLoanHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EmployeeID        int64           `json:"employee_id"`
		Principal         decimal.Decimal `json:"principal"`
		InstallmentAmount decimal.Decimal `json:"installment_amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Principal.LessThanOrEqual(decimal.Zero) || req.InstallmentAmount.LessThanOrEqual(decimal.Zero) {
		writeError(w, apperr.Validation("principal and installment must be positive"))
		return
	}
	if _, err := s.storage.GetEmployee(req.EmployeeID); err != nil {
		writeError(w, err)
		return
	}

	now := time.Now().UTC()
	loan := &models.EmployeeLoan{
		EmployeeID:        req.EmployeeID,
		Principal:         req.Principal,
		Balance:           req.Principal,
		InstallmentAmount: req.InstallmentAmount,
		Status:            models.LoanActive,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.storage.CreateEmployeeLoan(loan); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, loan)
}

func (s *Server) createDeliveryHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CollectorID int64  `json:"collector_id"`
		Folio       string `json:"folio"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Folio == "" {
		writeError(w, apperr.Validation("folio is required"))
		return
	}
	if _, err := s.storage.GetEmployee(req.CollectorID); err != nil {
		writeError(w, err)
		return
	}

	event := &models.DeliveryEvent{
		CollectorID: req.CollectorID,
		Folio:       req.Folio,
		DeliveredAt: time.Now().UTC(),
	}
	if err := s.storage.CreateDeliveryEvent(event); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}
