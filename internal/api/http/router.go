package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"equiploan-backend/internal/events"
	"equiploan-backend/internal/security"
	"equiploan-backend/internal/service"
)

// Server exposes the transactional core over HTTP.
type Server struct {
	services     *service.Services
	broadcaster  *events.Broadcaster
	tokenManager *security.TokenManager
}

func NewServer(services *service.Services, broadcaster *events.Broadcaster, tokenManager *security.TokenManager) *Server {
	return &Server{
		services:     services,
		broadcaster:  broadcaster,
		tokenManager: tokenManager,
	}
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(authMiddleware(s.tokenManager))

	// Borrowing lifecycle
	api.HandleFunc("/borrowings", s.handleCreateBorrowing).Methods(http.MethodPost)
	api.HandleFunc("/borrowings", s.handleListBorrowings).Methods(http.MethodGet)
	api.HandleFunc("/borrowings/{id}", s.handleGetBorrowing).Methods(http.MethodGet)
	api.HandleFunc("/borrowings/{id}/approve", s.handleApproveBorrowing).Methods(http.MethodPost)
	api.HandleFunc("/borrowings/{id}/reject", s.handleRejectBorrowing).Methods(http.MethodPost)
	api.HandleFunc("/borrowings/{id}/cancel", s.handleCancelBorrowing).Methods(http.MethodPost)
	api.HandleFunc("/borrowings/{id}/handover", s.handleHandOverBorrowing).Methods(http.MethodPost)
	api.HandleFunc("/borrowings/{id}/return", s.handleReturnBorrowing).Methods(http.MethodPost)

	// Disbursement lifecycle
	api.HandleFunc("/disbursements", s.handleCreateDisbursement).Methods(http.MethodPost)
	api.HandleFunc("/disbursements", s.handleListDisbursements).Methods(http.MethodGet)
	api.HandleFunc("/disbursements/{id}", s.handleGetDisbursement).Methods(http.MethodGet)
	api.HandleFunc("/disbursements/{id}/approve", s.handleApproveDisbursement).Methods(http.MethodPost)
	api.HandleFunc("/disbursements/{id}/reject", s.handleRejectDisbursement).Methods(http.MethodPost)
	api.HandleFunc("/disbursements/{id}/cancel", s.handleCancelDisbursement).Methods(http.MethodPost)

	// Credit ledger
	api.HandleFunc("/credits/balance", s.handleCreditBalance).Methods(http.MethodGet)
	api.HandleFunc("/credits/transactions", s.handleListCreditTransactions).Methods(http.MethodGet)
	api.HandleFunc("/credits/adjust", s.handleAdjustCredit).Methods(http.MethodPost)

	// Catalog administration
	api.HandleFunc("/equipment-types", s.handleCreateEquipmentType).Methods(http.MethodPost)
	api.HandleFunc("/equipment-types", s.handleListEquipmentTypes).Methods(http.MethodGet)
	api.HandleFunc("/equipment-types/{id}", s.handleDeleteEquipmentType).Methods(http.MethodDelete)
	api.HandleFunc("/equipment", s.handleCreateEquipment).Methods(http.MethodPost)
	api.HandleFunc("/equipment", s.handleListEquipment).Methods(http.MethodGet)
	api.HandleFunc("/equipment/{id}", s.handleGetEquipment).Methods(http.MethodGet)
	api.HandleFunc("/equipment/{id}", s.handleUpdateEquipment).Methods(http.MethodPut)
	api.HandleFunc("/equipment/{id}/items", s.handleAddEquipmentItem).Methods(http.MethodPost)
	api.HandleFunc("/equipment/{id}/items", s.handleListEquipmentItems).Methods(http.MethodGet)
	api.HandleFunc("/items/{id}/status", s.handleSetItemStatus).Methods(http.MethodPut)

	// System settings
	api.HandleFunc("/settings", s.handleListSettings).Methods(http.MethodGet)
	api.HandleFunc("/settings/{key}", s.handleGetSetting).Methods(http.MethodGet)
	api.HandleFunc("/settings/{key}", s.handleSetSetting).Methods(http.MethodPut)
	api.HandleFunc("/settings/{key}", s.handleDeleteSetting).Methods(http.MethodDelete)

	// Server-sent events
	api.HandleFunc("/events", s.handleEvents).Methods(http.MethodGet)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
