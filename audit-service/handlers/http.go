package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/draftea/order-flow/audit-service/application"
	"github.com/draftea/order-flow/audit-service/domain"
	"github.com/draftea/order-flow/shared/models"
	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
)

type errorResponse struct {
	Error string `json:"error"`
}

type anomaliesResponse struct {
	Anomalies []domain.Anomaly `json:"anomalies"`
}

// FlowHandlers contains flow audit HTTP handlers
type FlowHandlers struct {
	getFlow       *application.GetFlow
	listAnomalies *application.ListAnomalies
	logger        *slog.Logger
}

// NewFlowHandlers creates new flow handlers
func NewFlowHandlers(getFlow *application.GetFlow, listAnomalies *application.ListAnomalies, logger *slog.Logger) *FlowHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &FlowHandlers{
		getFlow:       getFlow,
		listAnomalies: listAnomalies,
		logger:        logger,
	}
}

// GetFlow handles flow lookups by correlation id
func (h *FlowHandlers) GetFlow(w http.ResponseWriter, r *http.Request) {
	correlationID, err := models.ParseCorrelationID(chi.URLParam(r, "correlationId"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	f, err := h.getFlow.Execute(r.Context(), correlationID)
	if err != nil {
		if errors.Is(err, domain.ErrFlowNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "Flow not found"})
			return
		}
		h.logger.ErrorContext(r.Context(), "failed to get flow", "correlation_id", correlationID.String(), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, f)
}

// ListAnomalies handles anomaly reports, optionally bounded by older_than and lookback
func (h *FlowHandlers) ListAnomalies(w http.ResponseWriter, r *http.Request) {
	var query application.ListAnomaliesQuery
	for param, target := range map[string]*time.Duration{
		"older_than": &query.HungAfter,
		"lookback":   &query.Lookback,
	} {
		raw := r.URL.Query().Get(param)
		if raw == "" {
			continue
		}
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid " + param})
			return
		}
		*target = d
	}

	anomalies, err := h.listAnomalies.Execute(r.Context(), query)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list anomalies", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, anomaliesResponse{Anomalies: anomalies})
}

// RegisterRoutes registers flow routes
func (h *FlowHandlers) RegisterRoutes(r chi.Router) {
	r.Route("/flows", func(r chi.Router) {
		r.Get("/anomalies", h.ListAnomalies)
		r.Get("/{correlationId}", h.GetFlow)
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
