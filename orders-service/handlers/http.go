package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/draftea/order-flow/orders-service/application"
	"github.com/draftea/order-flow/orders-service/domain"
	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// placeOrderRequest accepts the amount as a JSON number or string
type placeOrderRequest struct {
	Amount         decimal.Decimal `json:"amount"`
	ProductID      string          `json:"productId"`
	ProductIDSnake string          `json:"product_id"`
}

func (r placeOrderRequest) productID() string {
	if r.ProductID != "" {
		return r.ProductID
	}
	return r.ProductIDSnake
}

type errorResponse struct {
	Error string `json:"error"`
}

// OrderHandlers contains order HTTP handlers
type OrderHandlers struct {
	placeOrder *application.PlaceOrder
	logger     *slog.Logger
}

// NewOrderHandlers creates new order handlers
func NewOrderHandlers(placeOrder *application.PlaceOrder, logger *slog.Logger) *OrderHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &OrderHandlers{
		placeOrder: placeOrder,
		logger:     logger,
	}
}

// PlaceOrder handles order intake requests
func (h *OrderHandlers) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body"})
		return
	}

	response, err := h.placeOrder.Execute(r.Context(), &application.PlaceOrderCommand{
		Amount:    req.Amount,
		ProductID: req.productID(),
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidOrder):
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		case errors.Is(err, application.ErrPublishFailed):
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "order could not be handed to payment"})
		default:
			h.logger.ErrorContext(r.Context(), "failed to place order", slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		}
		return
	}

	writeJSON(w, http.StatusOK, response)
}

// RegisterRoutes registers order routes
func (h *OrderHandlers) RegisterRoutes(r chi.Router) {
	r.Post("/orders", h.PlaceOrder)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
