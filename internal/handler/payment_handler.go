package handler

import (
	"net/http"

	"foodkart/internal/model"
	"foodkart/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// PaymentHandler serves the sandbox payment-link provider.
type PaymentHandler struct {
	service service.PaymentLinkService
	logger  zerolog.Logger
}

// NewPaymentHandler creates a new payment handler.
func NewPaymentHandler(service service.PaymentLinkService, logger zerolog.Logger) *PaymentHandler {
	return &PaymentHandler{
		service: service,
		logger:  logger.With().Str("handler", "payment").Logger(),
	}
}

type markPaidRequest struct {
	Method string `json:"method"`
}

// CreateLink handles POST /api/payment/links requests.
func (h *PaymentHandler) CreateLink(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}

	var req model.CreateLinkRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	link, err := h.service.CreateLink(r.Context(), userID, req)
	if err != nil {
		writeServiceError(w, err, "failed to create payment link", h.logger)
		return
	}
	writeJSON(w, http.StatusCreated, link)
}

// GetStatus handles GET /api/payment/links/{id} requests.
func (h *PaymentHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.GetStatus(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err, "failed to retrieve payment link", h.logger)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// MarkPaid handles POST /api/payment/links/{id}/pay requests.
func (h *PaymentHandler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	req := markPaidRequest{Method: string(model.PaymentUPI)}
	if r.ContentLength != 0 && !decodeJSON(w, r, &req, h.logger) {
		return
	}
	if req.Method == "" {
		req.Method = string(model.PaymentUPI)
	}

	report, err := h.service.MarkPaid(r.Context(), chi.URLParam(r, "id"), req.Method)
	if err != nil {
		writeServiceError(w, err, "failed to pay payment link", h.logger)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
