package httpapi

import (
	"net/http"
)

func (s *Server) handleCreditBalance(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	memberID := claims.UserID
	if claims.IsAdmin() {
		memberID = queryInt32(r, "member_id", claims.UserID)
	}

	balance, err := s.services.Credit.CurrentBalance(r.Context(), memberID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"member_id": memberID,
		"balance":   balance,
	})
}

func (s *Server) handleListCreditTransactions(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	memberID := claims.UserID
	if claims.IsAdmin() {
		memberID = queryInt32(r, "member_id", claims.UserID)
	}
	page := queryInt32(r, "page", 1)
	pageSize := queryInt32(r, "page_size", 20)

	items, total, err := s.services.Credit.ListTransactions(r.Context(), memberID, page, pageSize)
	if err != nil {
		writeError(w, err)
		return
	}
	writePage(w, items, total, page, pageSize)
}

func (s *Server) handleAdjustCredit(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireAdmin(w, r)
	if !ok {
		return
	}
	var req struct {
		MemberID int32  `json:"member_id"`
		Amount   int64  `json:"amount"`
		Reason   string `json:"reason"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	tx, err := s.services.Credit.AdjustCredit(r.Context(), claims.UserID, req.MemberID, req.Amount, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}
