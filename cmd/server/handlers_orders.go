package main

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Simplici0/panelpro/internal/orders"
)

func (s *server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var in orders.CreateInput
	if !s.decode(w, r, &in) {
		return
	}
	o, err := s.orders.Create(r.Context(), in)
	if err != nil {
		s.writePricingError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

// handleGetOrder serves customers, who must prove ownership with ?email=, and
// admins with a session.
func (s *server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := s.orders.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !o.OwnedBy(r.URL.Query().Get("email")) && !s.isAdmin(r) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: orders.ErrNotFound.Error()})
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (s *server) isAdmin(r *http.Request) bool {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return false
	}
	_, ok := s.auth.verifySessionValue(cookie.Value)
	return ok
}

type cancelRequest struct {
	Email string `json:"email"`
}

func (s *server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if !s.decode(w, r, &req) {
		return
	}
	o, err := s.orders.Cancel(r.Context(), chi.URLParam(r, "id"), req.Email)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (s *server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := orders.Filter{
		Status:        orders.Status(strings.ToUpper(q.Get("status"))),
		CustomerEmail: q.Get("email"),
		Search:        q.Get("search"),
	}
	if f.Status != "" && !f.Status.Valid() {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "unknown status " + string(f.Status)})
		return
	}

	var okLimit, okOffset bool
	f.Limit, okLimit = queryInt(r, "limit")
	f.Offset, okOffset = queryInt(r, "offset")
	if !okLimit || !okOffset {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid query parameter"})
		return
	}

	list, total, err := s.orders.List(r.Context(), f)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listBody[orders.Order]{Items: list, Total: total})
}

func (s *server) handleOrderStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.orders.Stats(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

type statusRequest struct {
	Status orders.Status `json:"status"`
}

func (s *server) handleUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if !s.decode(w, r, &req) {
		return
	}
	o, err := s.orders.UpdateStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (s *server) handleRepriceOrder(w http.ResponseWriter, r *http.Request) {
	o, err := s.orders.Reprice(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writePricingError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}
