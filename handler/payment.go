package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/onwards-ai/xboard-payments/infra/logger"
	"github.com/onwards-ai/xboard-payments/infra/middle"
	"github.com/onwards-ai/xboard-payments/infra/response"
	"github.com/onwards-ai/xboard-payments/provider"
)

const (
	requestTimeout  = 30 * time.Second
	maxNotifyBody   = 1 << 20
	notifyAccepted  = "success"
	notifyRejected  = "fail"
	requestIDHeader = response.RequestIDHeader
)

// PaymentServiceInterface defines the payment operations used by the HTTP layer
type PaymentServiceInterface interface {
	Pay(ctx context.Context, name provider.Name, order provider.OrderRequest) (*provider.PaymentInstruction, error)
	Notify(ctx context.Context, name provider.Name, event provider.WebhookEvent) (provider.ReconciliationResult, bool)
}

// PaymentHandler handles payment related HTTP requests
type PaymentHandler struct {
	paymentService PaymentServiceInterface
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(paymentService PaymentServiceInterface) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
	}
}

// ProcessPayment starts a payment with the provider named in the path
func (h *PaymentHandler) ProcessPayment(w http.ResponseWriter, r *http.Request) {
	name, err := provider.ParseName(chi.URLParam(r, "provider"))
	if err != nil {
		response.Error(w, http.StatusNotFound, "Unknown provider", err)
		return
	}

	ctx, cancel := context.WithTimeout(withRequestID(w, r), requestTimeout)
	defer cancel()

	var order provider.OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&order); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if order.ClientIP == "" {
		if ip := middle.GetClientIP(r); net.ParseIP(ip) != nil {
			order.ClientIP = ip
		}
	}

	instruction, err := h.paymentService.Pay(ctx, name, order)
	if err != nil {
		response.Fail(w, statusForError(err), "Payment failed", string(provider.KindOf(err)), errors.New(provider.MessageOf(err)))
		return
	}

	response.Success(w, http.StatusOK, "Payment initiated", instruction)
}

// HandleNotify verifies an inbound gateway callback and acknowledges it in plain text
func (h *PaymentHandler) HandleNotify(w http.ResponseWriter, r *http.Request) {
	name, err := provider.ParseName(chi.URLParam(r, "provider"))
	if err != nil {
		response.Text(w, http.StatusBadRequest, notifyRejected)
		return
	}

	ctx, cancel := context.WithTimeout(withRequestID(w, r), requestTimeout)
	defer cancel()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxNotifyBody))
	if err != nil {
		logger.WithProvider(string(name)).Warn("failed to read callback body: " + err.Error())
		response.Text(w, http.StatusBadRequest, notifyRejected)
		return
	}

	event := provider.NewWebhookEvent(body, r.Header, notifyParams(r, body))
	if _, ok := h.paymentService.Notify(ctx, name, event); !ok {
		response.Text(w, http.StatusBadRequest, notifyRejected)
		return
	}

	response.Text(w, http.StatusOK, notifyAccepted)
}

// notifyParams merges query parameters with a form encoded body; body values win
func notifyParams(r *http.Request, body []byte) url.Values {
	params := r.URL.Query()
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/x-www-form-urlencoded" || len(body) == 0 {
		return params
	}

	form, err := url.ParseQuery(string(body))
	if err != nil {
		return params
	}
	for k, v := range form {
		params[k] = v
	}
	return params
}

func withRequestID(w http.ResponseWriter, r *http.Request) context.Context {
	requestID := r.Header.Get(requestIDHeader)
	if requestID == "" {
		requestID = uuid.New().String()
	}
	w.Header().Set(requestIDHeader, requestID)
	return provider.WithRequestID(r.Context(), requestID)
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, provider.ErrUnknownProvider):
		return http.StatusNotFound
	case errors.Is(err, provider.ErrInvalidOrder):
		return http.StatusBadRequest
	case errors.Is(err, provider.ErrConfiguration):
		return http.StatusInternalServerError
	default:
		return http.StatusBadGateway
	}
}
