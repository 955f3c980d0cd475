// Package handler exposes the resolver over HTTP with a uniform envelope.
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/matiasroldan/ars-rate-service/internal/domain/apperr"
	"github.com/matiasroldan/ars-rate-service/internal/domain/entity"
	"github.com/matiasroldan/ars-rate-service/internal/infrastructure/middleware"
)

const dayFormat = "2006-01-02"

// RateResolver is the application surface the HTTP layer depends on.
type RateResolver interface {
	FetchRate(ctx context.Context, from, to string, date time.Time) (*entity.Rate, error)
	FetchRates(ctx context.Context, from, to string, start, end time.Time) ([]entity.Rate, error)
	Healthy(ctx context.Context) bool
}

// Envelope is the uniform success/failure wrapper every endpoint returns.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
}

// ErrorBody carries the error kind and human-readable message.
type ErrorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// RateResponse is the wire form of a resolved rate.
type RateResponse struct {
	Date string  `json:"date"`
	From string  `json:"from"`
	To   string  `json:"to"`
	Rate float64 `json:"rate"`
}

// RateHandler handles HTTP requests for rate resolution.
type RateHandler struct {
	resolver RateResolver
	log      *logrus.Logger
}

// NewRateHandler creates a new rate handler.
func NewRateHandler(resolver RateResolver, log *logrus.Logger) *RateHandler {
	if log == nil {
		log = logrus.New()
	}
	return &RateHandler{resolver: resolver, log: log}
}

// GetRate handles single-date rate queries. The date parameter defaults to
// the current day.
func (h *RateHandler) GetRate(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	from := strings.ToUpper(vars["from"])
	to := strings.ToUpper(vars["to"])

	date := time.Now().UTC()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse(dayFormat, raw)
		if err != nil {
			h.writeError(w, r, apperr.Validation("invalid date %q: expected YYYY-MM-DD", raw))
			return
		}
		date = parsed
	}

	rate, err := h.resolver.FetchRate(r.Context(), from, to, date)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeData(w, http.StatusOK, toRateResponse(*rate))
}

// GetRateHistory handles range queries. Both start and end are required.
func (h *RateHandler) GetRateHistory(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	from := strings.ToUpper(vars["from"])
	to := strings.ToUpper(vars["to"])

	start, err := parseDayParam(r, "start")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	end, err := parseDayParam(r, "end")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	rates, err := h.resolver.FetchRates(r.Context(), from, to, start, end)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := make([]RateResponse, 0, len(rates))
	for _, rate := range rates {
		resp = append(resp, toRateResponse(rate))
	}

	h.writeData(w, http.StatusOK, resp)
}

// Health reports whether the upstream quote endpoint is serving.
func (h *RateHandler) Health(w http.ResponseWriter, r *http.Request) {
	if !h.resolver.Healthy(r.Context()) {
		h.writeJSON(w, http.StatusServiceUnavailable, Envelope{
			Success: false,
			Error:   &ErrorBody{Kind: string(apperr.KindUpstream), Message: "rate source unavailable"},
		})
		return
	}

	h.writeData(w, http.StatusOK, map[string]string{"status": "ok"})
}

// RegisterRoutes registers the rate handler routes.
func (h *RateHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/rates/{from}/{to}", h.GetRate).Methods("GET")
	router.HandleFunc("/rates/{from}/{to}/history", h.GetRateHistory).Methods("GET")
	router.HandleFunc("/health", h.Health).Methods("GET")
}

func toRateResponse(rate entity.Rate) RateResponse {
	return RateResponse{
		Date: rate.Date.Format(dayFormat),
		From: rate.From,
		To:   rate.To,
		Rate: rate.Rate,
	}
}

func parseDayParam(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, apperr.Validation("missing required parameter %q", name)
	}
	parsed, err := time.Parse(dayFormat, raw)
	if err != nil {
		return time.Time{}, apperr.Validation("invalid %s %q: expected YYYY-MM-DD", name, raw)
	}
	return parsed, nil
}

func (h *RateHandler) writeData(w http.ResponseWriter, status int, data interface{}) {
	h.writeJSON(w, status, Envelope{Success: true, Data: data})
}

func (h *RateHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)

	status := http.StatusInternalServerError
	switch kind {
	case apperr.KindValidation:
		status = http.StatusBadRequest
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindUpstream:
		status = http.StatusBadGateway
	default:
		kind = "internal"
	}

	h.log.WithFields(logrus.Fields{
		"request_id": middleware.GetRequestID(r.Context()),
		"kind":       string(kind),
		"status":     status,
		"error":      err.Error(),
	}).Warn("Request failed")

	h.writeJSON(w, status, Envelope{
		Success: false,
		Error:   &ErrorBody{Kind: string(kind), Message: err.Error()},
	})
}

func (h *RateHandler) writeJSON(w http.ResponseWriter, status int, body Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log.WithError(err).Error("Failed to encode response")
	}
}
