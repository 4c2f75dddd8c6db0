package main

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/Simplici0/panelpro/internal/catalog"
)

func queryThickness(r *http.Request) (decimal.NullDecimal, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get("thickness"))
	if raw == "" {
		return decimal.NullDecimal{}, true
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.NullDecimal{}, false
	}
	return decimal.NewNullDecimal(v), true
}

func (s *server) handleListPanels(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := catalog.PanelFilter{
		Material: catalog.PanelMaterial(q.Get("material")),
		Supplier: q.Get("supplier"),
		Search:   q.Get("search"),
	}

	var ok [4]bool
	f.Thickness, ok[0] = queryThickness(r)
	f.Active, ok[1] = queryBool(r, "active")
	f.Limit, ok[2] = queryInt(r, "limit")
	f.Offset, ok[3] = queryInt(r, "offset")
	if ok != [4]bool{true, true, true, true} {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid query parameter"})
		return
	}

	panels, total, err := s.catalog.ListPanels(r.Context(), f)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listBody[catalog.Panel]{Items: panels, Total: total})
}

func (s *server) handleGetPanel(w http.ResponseWriter, r *http.Request) {
	panel, err := s.catalog.GetPanel(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, panel)
}

func (s *server) handlePanelSuppliers(w http.ResponseWriter, r *http.Request) {
	suppliers, err := s.catalog.Suppliers(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, suppliers)
}

func (s *server) handlePanelThicknesses(w http.ResponseWriter, r *http.Request) {
	thicknesses, err := s.catalog.Thicknesses(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, thicknesses)
}

func (s *server) handleCreatePanel(w http.ResponseWriter, r *http.Request) {
	var in catalog.PanelInput
	if !s.decode(w, r, &in) {
		return
	}
	panel, err := s.catalog.CreatePanel(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, panel)
}

func (s *server) handleUpdatePanel(w http.ResponseWriter, r *http.Request) {
	var in catalog.PanelInput
	if !s.decode(w, r, &in) {
		return
	}
	panel, err := s.catalog.UpdatePanel(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, panel)
}

func (s *server) handleDeactivatePanel(w http.ResponseWriter, r *http.Request) {
	if err := s.catalog.DeactivatePanel(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type linkEdgeRequest struct {
	EdgeID    string `json:"edgeId"`
	IsDefault bool   `json:"isDefault"`
}

func (s *server) handleLinkEdge(w http.ResponseWriter, r *http.Request) {
	var req linkEdgeRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.catalog.LinkEdge(r.Context(), chi.URLParam(r, "id"), req.EdgeID, req.IsDefault); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleListEdges(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := catalog.EdgeFilter{
		Material: catalog.EdgeMaterial(q.Get("material")),
		Search:   q.Get("search"),
		PanelID:  q.Get("panelId"),
	}

	var ok [3]bool
	f.Thickness, ok[0] = queryThickness(r)
	f.Active, ok[1] = queryBool(r, "active")
	f.Limit, ok[2] = queryInt(r, "limit")
	if ok != [3]bool{true, true, true} {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid query parameter"})
		return
	}

	edges, err := s.catalog.ListEdges(r.Context(), f)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listBody[catalog.CompatibleEdge]{Items: edges, Total: len(edges)})
}

func (s *server) handleGetEdge(w http.ResponseWriter, r *http.Request) {
	edge, err := s.catalog.GetEdge(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, edge)
}

func (s *server) handleEdgeMaterials(w http.ResponseWriter, r *http.Request) {
	materials, err := s.catalog.EdgeMaterials(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, materials)
}

func (s *server) handleCreateEdge(w http.ResponseWriter, r *http.Request) {
	var in catalog.EdgeInput
	if !s.decode(w, r, &in) {
		return
	}
	edge, err := s.catalog.CreateEdge(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, edge)
}

func (s *server) handleUpdateEdge(w http.ResponseWriter, r *http.Request) {
	var in catalog.EdgeInput
	if !s.decode(w, r, &in) {
		return
	}
	edge, err := s.catalog.UpdateEdge(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, edge)
}

func (s *server) handleDeactivateEdge(w http.ResponseWriter, r *http.Request) {
	if err := s.catalog.DeactivateEdge(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
