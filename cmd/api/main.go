package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/sunkwolf/sistema-proteg-sub000/pkg/config"
	"github.com/sunkwolf/sistema-proteg-sub000/pkg/ledger"
	"github.com/sunkwolf/sistema-proteg-sub000/pkg/store"
)

func ratesFromConfig(c config.CommissionConfig) (ledger.Rates, error) {
	var rates ledger.Rates
	var err error
	if rates.Regular, err = decimal.NewFromString(c.RegularRate); err != nil {
		return rates, fmt.Errorf("invalid regular_rate %q: %w", c.RegularRate, err)
	}
	if rates.CashBasis, err = decimal.NewFromString(c.CashRate); err != nil {
		return rates, fmt.Errorf("invalid cash_rate %q: %w", c.CashRate, err)
	}
	if rates.DeliveryFlat, err = decimal.NewFromString(c.DeliveryFlat); err != nil {
		return rates, fmt.Errorf("invalid delivery_flat %q: %w", c.DeliveryFlat, err)
	}
	if rates.FuelShare, err = decimal.NewFromString(c.FuelShare); err != nil {
		return rates, fmt.Errorf("invalid fuel_share %q: %w", c.FuelShare, err)
	}
	return rates, nil
}

func newRouter(server *Server) *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/employees", server.createEmployeeHandler).Methods("POST")
	router.HandleFunc("/fuel-entries", server.createFuelEntryHandler).Methods("POST")
	router.HandleFunc("/loans", server.createLoanHandler).Methods("POST")
	router.HandleFunc("/deliveries", server.createDeliveryHandler).Methods("POST")

	router.HandleFunc("/proposals", server.submitProposalHandler).Methods("POST")
	router.HandleFunc("/proposals/pending", server.listPendingProposalsHandler).Methods("GET")
	router.HandleFunc("/proposals/{id}/review", server.reviewProposalHandler).Methods("POST")
	router.HandleFunc("/proposals/{id}/resubmit", server.resubmitProposalHandler).Methods("POST")

	router.HandleFunc("/cash/pending", server.listCashPendingHandler).Methods("GET")
	router.HandleFunc("/cash/confirm", server.confirmCashHandler).Methods("POST")
	router.HandleFunc("/deductions/{id}/acknowledge", server.acknowledgeShortageHandler).Methods("POST")

	router.HandleFunc("/settlements/previews", server.listPreviewsHandler).Methods("GET")
	router.HandleFunc("/settlements/preview", server.getPreviewHandler).Methods("GET")
	router.HandleFunc("/settlements/history", server.settlementHistoryHandler).Methods("GET")
	router.HandleFunc("/settlements/pending", server.createPendingSettlementHandler).Methods("POST")
	router.HandleFunc("/settlements/batch", server.batchSettlementHandler).Methods("POST")
	router.HandleFunc("/settlements", server.createSettlementHandler).Methods("POST")
	router.HandleFunc("/settlements/{id}/deductions", server.addManualDeductionHandler).Methods("POST")

	return router
}

func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	rates, err := ratesFromConfig(cfg.Commission)
	if err != nil {
		log.Fatalf("Invalid commission configuration: %v", err)
	}

	sqliteStore, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize SQLite store: %v", err)
	}
	defer sqliteStore.Close()

	server := NewServer(sqliteStore, rates)
	router := newRouter(server)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Address, cfg.Server.Port)
	log.Printf("Server starting on %s", addr)
	log.Fatal(http.ListenAndServe(addr, router))
}
