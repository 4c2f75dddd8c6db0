package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Simplici0/panelpro/internal/rates"
)

// handleListRates returns rates grouped by category, or a flat list for one
// category when ?category= is set.
func (s *server) handleListRates(w http.ResponseWriter, r *http.Request) {
	if c := rates.Category(r.URL.Query().Get("category")); c != "" {
		if !c.Valid() {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "unknown category " + string(c)})
			return
		}
		list, err := s.rates.ByCategory(r.Context(), c)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
		return
	}

	grouped, err := s.rates.Grouped(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, grouped)
}

func (s *server) handleRateCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.rates.Categories(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

func (s *server) handleGetRate(w http.ResponseWriter, r *http.Request) {
	rate, err := s.rates.Get(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rate)
}

func (s *server) handleCreateRate(w http.ResponseWriter, r *http.Request) {
	var in rates.NewRate
	if !s.decode(w, r, &in) {
		return
	}
	rate, err := s.rates.Create(r.Context(), in, adminEmail(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rate)
}

func (s *server) handleUpdateRate(w http.ResponseWriter, r *http.Request) {
	var change rates.Change
	if !s.decode(w, r, &change) {
		return
	}
	change.Key = chi.URLParam(r, "key")

	rate, err := s.rates.Update(r.Context(), change, adminEmail(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rate)
}

type bulkUpdateRequest struct {
	Updates []rates.Change `json:"updates"`
}

type bulkUpdateResponse struct {
	Updated []string `json:"updated"`
}

func (s *server) handleBulkUpdateRates(w http.ResponseWriter, r *http.Request) {
	var req bulkUpdateRequest
	if !s.decode(w, r, &req) {
		return
	}
	updated, err := s.rates.BulkUpdate(r.Context(), req.Updates, adminEmail(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if updated == nil {
		updated = []string{}
	}
	writeJSON(w, http.StatusOK, bulkUpdateResponse{Updated: updated})
}

func (s *server) handleRateHistory(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(r, "limit")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid limit"})
		return
	}
	history, err := s.rates.History(r.Context(), r.URL.Query().Get("key"), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if history == nil {
		history = []rates.HistoryEntry{}
	}
	writeJSON(w, http.StatusOK, history)
}
