package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/bookcourier/bookcourier/internal/cache"
	"github.com/bookcourier/bookcourier/internal/stripe"
)

// stripeWebhookIdempotencyTTL is how long webhook event IDs are kept
// for deduplication.
const stripeWebhookIdempotencyTTL = 24 * time.Hour

type createCheckoutRequest struct {
	OrderID uuid.UUID `json:"order_id"`
}

// CreateCheckoutSession opens a hosted payment page for an order and
// returns its URL.
func (h *Handlers) CreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	var req createCheckoutRequest
	if err := h.decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.OrderID == uuid.Nil {
		h.writeError(w, r, http.StatusBadRequest, "order_id is required")
		return
	}

	url, err := h.orderService.CreateCheckout(r.Context(), identity, req.OrderID)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, map[string]string{"url": url})
}

type paymentSuccessRequest struct {
	SessionID string `json:"sessionId"`
}

// PaymentSuccess reconciles a checkout session after the customer is
// redirected back. Safe to call repeatedly for the same session.
func (h *Handlers) PaymentSuccess(w http.ResponseWriter, r *http.Request) {
	var req paymentSuccessRequest
	if err := h.decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.SessionID == "" {
		h.writeError(w, r, http.StatusBadRequest, "sessionId is required")
		return
	}

	order, err := h.orderService.ConfirmPayment(r.Context(), req.SessionID)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, order)
}

// StripeWebhook is the provider-push counterpart of PaymentSuccess:
// signature-verified and deduplicated by event ID, so redeliveries are
// acknowledged without touching the order again.
func (h *Handlers) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)
	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes)

	event, err := stripe.ReadWebhookEvent(r, h.config.StripeWebhookSecret)
	if err != nil {
		logger.Error("failed to read stripe webhook payload", "error", err)
		h.writeError(w, r, http.StatusBadRequest, "invalid webhook")
		return
	}
	if event.ID == "" {
		logger.Error("missing stripe event id")
		h.writeError(w, r, http.StatusBadRequest, "missing event id")
		return
	}

	cacheKey := cache.WebhookKey("stripe", event.ID)
	if _, err := h.cacheProvider.Get(ctx, cacheKey); err == nil {
		logger.Info("webhook already processed", "event_id", event.ID)
		w.WriteHeader(http.StatusOK)
		return
	}

	if event.Type != "checkout.session.completed" {
		logger.Debug("ignoring stripe event", "type", event.Type)
		w.WriteHeader(http.StatusOK)
		return
	}

	sessionID, _ := event.Data.Object["id"].(string)
	if sessionID == "" {
		logger.Error("stripe event carries no session id", "event_id", event.ID)
		h.writeError(w, r, http.StatusBadRequest, "missing session id")
		return
	}

	if _, err := h.orderService.ConfirmPayment(ctx, sessionID); err != nil {
		logger.Error("failed to process stripe webhook", "error", err, "event_id", event.ID)
		h.writeError(w, r, http.StatusInternalServerError, "processing failed")
		return
	}

	if err := h.cacheProvider.Set(ctx, cacheKey, "processed", stripeWebhookIdempotencyTTL); err != nil {
		logger.Error("failed to mark webhook as processed in cache", "error", err)
	}
	w.WriteHeader(http.StatusOK)
}
