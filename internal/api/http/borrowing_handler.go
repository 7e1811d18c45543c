package httpapi

import (
	"net/http"
	"time"
)

func (s *Server) handleCreateBorrowing(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	var req struct {
		EquipmentID        int32     `json:"equipment_id"`
		Quantity           int32     `json:"quantity"`
		ExpectedReturnDate time.Time `json:"expected_return_date"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	bt, err := s.services.Borrowing.CreateBorrowRequest(r.Context(), claims.UserID, req.EquipmentID, req.Quantity, req.ExpectedReturnDate)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, bt)
}

func (s *Server) handleListBorrowings(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	memberID := claims.UserID
	if claims.IsAdmin() {
		memberID = queryInt32(r, "member_id", claims.UserID)
	}
	page := queryInt32(r, "page", 1)
	pageSize := queryInt32(r, "page_size", 20)

	items, total, err := s.services.Borrowing.ListBorrowings(r.Context(), memberID, r.URL.Query().Get("status"), page, pageSize)
	if err != nil {
		writeError(w, err)
		return
	}
	writePage(w, items, total, page, pageSize)
}

func (s *Server) handleGetBorrowing(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	bt, err := s.services.Borrowing.GetBorrowing(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	claims := claimsFrom(r)
	if !claims.IsAdmin() && bt.MemberID != claims.UserID {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": map[string]any{"kind": "NOT_FOUND", "message": "borrowing not found"}})
		return
	}
	writeJSON(w, http.StatusOK, bt)
}

func (s *Server) handleApproveBorrowing(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireAdmin(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	bt, err := s.services.Borrowing.ApproveBorrow(r.Context(), claims.UserID, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bt)
}

func (s *Server) handleRejectBorrowing(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireAdmin(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	bt, err := s.services.Borrowing.RejectBorrow(r.Context(), claims.UserID, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bt)
}

func (s *Server) handleCancelBorrowing(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	bt, err := s.services.Borrowing.CancelBorrow(r.Context(), claims.UserID, claims.IsAdmin(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bt)
}

func (s *Server) handleHandOverBorrowing(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireAdmin(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	bt, err := s.services.Borrowing.MarkHandedOver(r.Context(), claims.UserID, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bt)
}

func (s *Server) handleReturnBorrowing(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		Quantity   int32  `json:"quantity"`
		DamageNote string `json:"damage_note"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	bt, err := s.services.Borrowing.ReturnEquipment(r.Context(), id, req.Quantity, req.DamageNote)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bt)
}
