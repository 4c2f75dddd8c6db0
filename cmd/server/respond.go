package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/Simplici0/panelpro/internal/catalog"
	"github.com/Simplici0/panelpro/internal/orders"
	"github.com/Simplici0/panelpro/internal/pricing"
	"github.com/Simplici0/panelpro/internal/rates"
)

const maxBodyBytes = 1 << 20

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
	Step  int    `json:"step,omitempty"`
}

type priceMismatchBody struct {
	Error           string            `json:"error"`
	PartIndex       int               `json:"partIndex"`
	Reference       string            `json:"reference"`
	SubmittedPrice  string            `json:"submittedPrice"`
	ServerBreakdown pricing.Breakdown `json:"serverBreakdown"`
}

type listBody[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON body: " + err.Error()})
		return false
	}
	return true
}

// writeError maps domain errors to HTTP statuses. Anything unrecognised is a 500
// and is logged; its message is not sent to the client.
func (s *server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var validation *pricing.ValidationError
	var mismatch *orders.PriceMismatchError

	switch {
	case errors.As(err, &mismatch):
		writeJSON(w, http.StatusConflict, priceMismatchBody{
			Error:           err.Error(),
			PartIndex:       mismatch.Index,
			Reference:       mismatch.Reference,
			SubmittedPrice:  mismatch.Submitted.StringFixed(2),
			ServerBreakdown: mismatch.Server,
		})
	case errors.As(err, &validation):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error(), Field: validation.Field, Step: int(validation.Step)})
	case errors.Is(err, pricing.ErrInvalidPart),
		errors.Is(err, orders.ErrInvalidOrder),
		errors.Is(err, catalog.ErrInvalidInput),
		errors.Is(err, rates.ErrInvalidRate):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	case errors.Is(err, orders.ErrForbidden):
		writeJSON(w, http.StatusForbidden, errorBody{Error: err.Error()})
	case errors.Is(err, orders.ErrNotFound),
		errors.Is(err, rates.ErrNotFound),
		errors.Is(err, catalog.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
	case errors.Is(err, orders.ErrInvalidTransition),
		errors.Is(err, orders.ErrConflict),
		errors.Is(err, catalog.ErrDuplicateRef),
		errors.Is(err, rates.ErrDuplicateKey):
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error()})
	default:
		s.log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

// writePricingError is writeError for endpoints that price parts: references to
// missing catalog entries are unprocessable input rather than missing resources.
func (s *server) writePricingError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, catalog.ErrNotFound) || errors.Is(err, pricing.ErrUnknownEdge) {
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: err.Error()})
		return
	}
	s.writeError(w, r, err)
}

func queryInt(r *http.Request, name string) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	return v, err == nil
}

func queryBool(r *http.Request, name string) (*bool, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, false
	}
	return &v, true
}
