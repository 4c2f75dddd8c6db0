package main

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Simplici0/panelpro/internal/pricing"
)

func (s *server) handleQuote(w http.ResponseWriter, r *http.Request) {
	var part pricing.Part
	if !s.decode(w, r, &part) {
		return
	}
	b, err := s.quotes.Quote(r.Context(), part)
	if err != nil {
		s.writePricingError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

type validateResponse struct {
	Valid          bool   `json:"valid"`
	Step           int    `json:"step"`
	Field          string `json:"field,omitempty"`
	Error          string `json:"error,omitempty"`
	IncompleteStep int    `json:"incompleteStep,omitempty"`
}

// handleValidatePart checks a part for leaving wizard step ?step=N, or for
// submission when no step is given. Failures are reported in the body with 200.
func (s *server) handleValidatePart(w http.ResponseWriter, r *http.Request) {
	var part pricing.Part
	if !s.decode(w, r, &part) {
		return
	}

	var err error
	resp := validateResponse{}
	if raw := r.URL.Query().Get("step"); raw != "" {
		n, convErr := strconv.Atoi(raw)
		if convErr != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid step"})
			return
		}
		resp.Step = n
		err = pricing.CheckStep(part, pricing.Step(n))
	} else {
		err = pricing.Validate(part)
	}

	resp.Valid = err == nil
	resp.IncompleteStep = int(pricing.FirstIncompleteStep(part))
	var ve *pricing.ValidationError
	if errors.As(err, &ve) {
		resp.Field = ve.Field
		resp.Error = ve.Message
		resp.Step = int(ve.Step)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) handleDuplicatePart(w http.ResponseWriter, r *http.Request) {
	var part pricing.Part
	if !s.decode(w, r, &part) {
		return
	}
	writeJSON(w, http.StatusOK, part.Duplicate())
}
