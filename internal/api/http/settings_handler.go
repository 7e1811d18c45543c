package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"equiploan-backend/internal/domain"
)

func (s *Server) handleListSettings(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}
	settings, err := s.services.Settings.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if settings == nil {
		settings = []domain.SystemSetting{}
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handleGetSetting(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}
	setting, err := s.services.Settings.Get(r.Context(), mux.Vars(r)["key"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, setting)
}

func (s *Server) handleSetSetting(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}
	var req struct {
		Value string `json:"value"`
		Type  string `json:"type"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	setting, err := s.services.Settings.Set(r.Context(), mux.Vars(r)["key"], req.Value, domain.SettingType(req.Type))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, setting)
}

func (s *Server) handleDeleteSetting(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}
	if err := s.services.Settings.Delete(r.Context(), mux.Vars(r)["key"]); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}
