package billing

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/dmitrymomot/replykit/handler"
	billingsvc "github.com/dmitrymomot/replykit/pkg/billing"
	"github.com/dmitrymomot/replykit/pkg/jwt"
	"github.com/dmitrymomot/replykit/pkg/logger"
)

// webhookBodyLimit caps webhook payloads well above any real event size.
const webhookBodyLimit = 1 << 16

// handleWebhook ingests processor webhook deliveries.
//
// The delivery is acknowledged with {"received": true} on every outcome
// except signature or payload failure: the processor retries on non-2xx, and
// retries only help transient failures. Downstream reconciliation errors are
// logged instead of re-signaled.
func (m *Module) handleWebhook(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, webhookBodyLimit)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		handler.Render(w, r, handler.JSONError(handler.ErrBadRequest))
		return
	}

	event, err := m.provider.ParseWebhook(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		m.log.WarnContext(r.Context(), "webhook delivery rejected", logger.Error(err))
		handler.Render(w, r, handler.JSONError(
			handler.NewHTTPError(http.StatusBadRequest, "invalid_webhook", "webhook verification failed")))
		return
	}

	if err := m.processor.HandleEvent(r.Context(), event); err != nil {
		m.log.ErrorContext(r.Context(), "webhook event not reconciled",
			logger.Error(err), logger.EventType(string(event.Type)))
	}

	handler.Render(w, r, handler.JSON(map[string]bool{"received": true}))
}

type checkoutRequest struct {
	Type       string `json:"type"`
	PlanID     string `json:"plan_id"`
	ItemID     string `json:"item_id"`
	SuccessURL string `json:"success_url"`
	CancelURL  string `json:"cancel_url"`
}

type checkoutResponse struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

func (m *Module) handleCreateCheckout(w http.ResponseWriter, r *http.Request) {
	userID, ok := jwt.GetUserID(r.Context())
	if !ok {
		handler.Render(w, r, handler.JSONError(handler.ErrUnauthorized))
		return
	}

	var req checkoutRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.Render(w, r, handler.JSONError(err))
		return
	}
	if req.SuccessURL == "" || req.CancelURL == "" {
		handler.Render(w, r, handler.JSONError(
			handler.NewHTTPError(http.StatusBadRequest, "missing_redirect_urls", "success_url and cancel_url are required")))
		return
	}

	result, err := m.svc.CreateCheckout(r.Context(), userID, billingsvc.CheckoutRequest{
		Type:       billingsvc.CheckoutType(req.Type),
		PlanID:     req.PlanID,
		ItemID:     req.ItemID,
		SuccessURL: req.SuccessURL,
		CancelURL:  req.CancelURL,
	})
	if err != nil {
		handler.Render(w, r, m.errorResponse(err))
		return
	}

	handler.Render(w, r, handler.JSON(checkoutResponse{
		SessionID: result.SessionID,
		URL:       result.URL,
	}))
}

type purchaseStatusResponse struct {
	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status"`
	CustomerEmail string `json:"customer_email,omitempty"`
	Type          string `json:"type"`
	AmountTotal   int64  `json:"amount_total"`
	Currency      string `json:"currency,omitempty"`
}

func (m *Module) handlePurchaseStatus(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		handler.Render(w, r, handler.JSONError(
			handler.NewHTTPError(http.StatusBadRequest, "missing_session_id", "session_id query parameter is required")))
		return
	}

	status, err := m.svc.PurchaseStatus(r.Context(), sessionID)
	if err != nil {
		handler.Render(w, r, m.errorResponse(err))
		return
	}

	handler.Render(w, r, handler.JSON(purchaseStatusResponse{
		Status:        status.Status,
		PaymentStatus: status.PaymentStatus,
		CustomerEmail: status.CustomerEmail,
		Type:          string(status.Mode),
		AmountTotal:   status.AmountTotal,
		Currency:      status.Currency,
	}))
}

type cancelResponse struct {
	Success  bool       `json:"success"`
	Message  string     `json:"message"`
	CancelAt *time.Time `json:"cancel_at,omitempty"`
}

func (m *Module) handleCancelSubscription(w http.ResponseWriter, r *http.Request) {
	userID, ok := jwt.GetUserID(r.Context())
	if !ok {
		handler.Render(w, r, handler.JSONError(handler.ErrUnauthorized))
		return
	}

	result, err := m.svc.CancelSubscription(r.Context(), userID)
	if err != nil {
		handler.Render(w, r, m.errorResponse(err))
		return
	}

	resp := cancelResponse{
		Success: true,
		Message: "Subscription will be canceled at the end of the current billing period.",
	}
	if !result.CancelAt.IsZero() {
		resp.CancelAt = &result.CancelAt
	}
	handler.Render(w, r, handler.JSON(resp))
}

type purchaseItemRequest struct {
	ItemID string `json:"item_id"`
}

func (m *Module) handlePurchaseItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := jwt.GetUserID(r.Context())
	if !ok {
		handler.Render(w, r, handler.JSONError(handler.ErrUnauthorized))
		return
	}

	var req purchaseItemRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.Render(w, r, handler.JSONError(err))
		return
	}

	row, err := m.svc.PurchaseItem(r.Context(), userID, req.ItemID)
	if err != nil {
		handler.Render(w, r, m.errorResponse(err))
		return
	}

	handler.Render(w, r, handler.JSON(map[string]any{
		"success":  true,
		"purchase": row,
	}))
}

func (m *Module) handleHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := jwt.GetUserID(r.Context())
	if !ok {
		handler.Render(w, r, handler.JSONError(handler.ErrUnauthorized))
		return
	}

	records, err := m.svc.History(r.Context(), userID)
	if err != nil {
		handler.Render(w, r, m.errorResponse(err))
		return
	}

	handler.Render(w, r, handler.JSON(map[string]any{"purchases": records}))
}

// errorResponse maps service sentinels to client-facing HTTP errors.
// Anything unmapped is logged and surfaces as an opaque 500.
func (m *Module) errorResponse(err error) handler.Response {
	switch {
	case errors.Is(err, billingsvc.ErrUnknownPlan):
		return handler.JSONError(handler.NewHTTPError(http.StatusBadRequest, "unknown_plan", "unknown plan id"))
	case errors.Is(err, billingsvc.ErrUnknownItem):
		return handler.JSONError(handler.NewHTTPError(http.StatusBadRequest, "unknown_item", "unknown item id"))
	case errors.Is(err, billingsvc.ErrAlreadyPurchased):
		return handler.JSONError(handler.NewHTTPError(http.StatusBadRequest, "already_purchased", "item already purchased"))
	case errors.Is(err, billingsvc.ErrSubscriptionNotFound):
		return handler.JSONError(handler.NewHTTPError(http.StatusBadRequest, "no_subscription", "no active subscription found"))
	default:
		m.log.Error("billing request failed", logger.Error(err))
		return handler.JSONError(handler.ErrInternalServerError)
	}
}
