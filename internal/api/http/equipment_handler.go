package httpapi

import (
	"net/http"

	"equiploan-backend/internal/domain"
)

func (s *Server) handleCreateEquipmentType(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}
	var req struct {
		Name       string `json:"name"`
		Discipline string `json:"discipline"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	et, err := s.services.Equipment.CreateEquipmentType(r.Context(), req.Name, domain.UsageDiscipline(req.Discipline))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, et)
}

func (s *Server) handleListEquipmentTypes(w http.ResponseWriter, r *http.Request) {
	types, err := s.services.Equipment.ListEquipmentTypes(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if types == nil {
		types = []domain.EquipmentType{}
	}
	writeJSON(w, http.StatusOK, types)
}

func (s *Server) handleDeleteEquipmentType(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.services.Equipment.DeleteEquipmentType(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleCreateEquipment(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}
	var req struct {
		TypeID        int32  `json:"type_id"`
		Name          string `json:"name"`
		QuantityTotal int32  `json:"quantity_total"`
		CreditCost    int64  `json:"credit_cost"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	eq, err := s.services.Equipment.CreateEquipment(r.Context(), &domain.Equipment{
		TypeID:        req.TypeID,
		Name:          req.Name,
		QuantityTotal: req.QuantityTotal,
		CreditCost:    req.CreditCost,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, eq)
}

func (s *Server) handleListEquipment(w http.ResponseWriter, r *http.Request) {
	page := queryInt32(r, "page", 1)
	pageSize := queryInt32(r, "page_size", 20)

	items, total, err := s.services.Equipment.ListEquipment(r.Context(), page, pageSize)
	if err != nil {
		writeError(w, err)
		return
	}
	writePage(w, items, total, page, pageSize)
}

func (s *Server) handleGetEquipment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	eq, err := s.services.Equipment.GetEquipment(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, eq)
}

func (s *Server) handleUpdateEquipment(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		Name          string `json:"name"`
		QuantityTotal int32  `json:"quantity_total"`
		CreditCost    int64  `json:"credit_cost"`
		Status        string `json:"status"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	eq, err := s.services.Equipment.UpdateEquipment(r.Context(), &domain.Equipment{
		ID:            id,
		Name:          req.Name,
		QuantityTotal: req.QuantityTotal,
		CreditCost:    req.CreditCost,
		Status:        domain.EquipmentStatus(req.Status),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, eq)
}

func (s *Server) handleAddEquipmentItem(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}
	equipmentID, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		SerialNo string `json:"serial_no"`
		Note     string `json:"note"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	item, err := s.services.Equipment.AddEquipmentItem(r.Context(), &domain.EquipmentItem{
		EquipmentID: equipmentID,
		SerialNo:    req.SerialNo,
		Note:        req.Note,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (s *Server) handleListEquipmentItems(w http.ResponseWriter, r *http.Request) {
	equipmentID, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	items, err := s.services.Equipment.ListItems(r.Context(), equipmentID)
	if err != nil {
		writeError(w, err)
		return
	}
	if items == nil {
		items = []domain.EquipmentItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleSetItemStatus(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}
	itemID, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		Status string `json:"status"`
		Note   string `json:"note"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	item, err := s.services.Equipment.SetItemStatus(r.Context(), itemID, domain.EquipmentStatus(req.Status), req.Note)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}
