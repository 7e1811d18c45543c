package httpapi

import (
	"net/http"
)

func (s *Server) handleCreateDisbursement(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	var req struct {
		EquipmentID int32 `json:"equipment_id"`
		Quantity    int32 `json:"quantity"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	dt, err := s.services.Disbursement.CreateDisbursementRequest(r.Context(), claims.UserID, req.EquipmentID, req.Quantity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, dt)
}

func (s *Server) handleListDisbursements(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	memberID := claims.UserID
	if claims.IsAdmin() {
		memberID = queryInt32(r, "member_id", claims.UserID)
	}
	page := queryInt32(r, "page", 1)
	pageSize := queryInt32(r, "page_size", 20)

	items, total, err := s.services.Disbursement.ListDisbursements(r.Context(), memberID, r.URL.Query().Get("status"), page, pageSize)
	if err != nil {
		writeError(w, err)
		return
	}
	writePage(w, items, total, page, pageSize)
}

func (s *Server) handleGetDisbursement(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	dt, err := s.services.Disbursement.GetDisbursement(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	claims := claimsFrom(r)
	if !claims.IsAdmin() && dt.MemberID != claims.UserID {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": map[string]any{"kind": "NOT_FOUND", "message": "disbursement not found"}})
		return
	}
	writeJSON(w, http.StatusOK, dt)
}

func (s *Server) handleApproveDisbursement(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireAdmin(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	dt, err := s.services.Disbursement.ApproveDisbursement(r.Context(), claims.UserID, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dt)
}

func (s *Server) handleRejectDisbursement(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireAdmin(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	dt, err := s.services.Disbursement.RejectDisbursement(r.Context(), claims.UserID, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dt)
}

func (s *Server) handleCancelDisbursement(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	dt, err := s.services.Disbursement.CancelDisbursement(r.Context(), claims.UserID, claims.IsAdmin(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dt)
}
