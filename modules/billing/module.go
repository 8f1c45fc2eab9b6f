package billing

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	billingsvc "github.com/dmitrymomot/replykit/pkg/billing"
)

// Module bundles the billing HTTP surface: the unauthenticated webhook
// endpoint and the authenticated client-facing API.
type Module struct {
	svc       *billingsvc.Service
	processor *billingsvc.Processor
	provider  billingsvc.Provider
	log       *slog.Logger
}

// NewModule wires the billing HTTP handlers.
func NewModule(
	svc *billingsvc.Service,
	processor *billingsvc.Processor,
	provider billingsvc.Provider,
	log *slog.Logger,
) *Module {
	return &Module{
		svc:       svc,
		processor: processor,
		provider:  provider,
		log:       log,
	}
}

// Router returns the authenticated billing API.
// The caller mounts it behind the auth middleware; the webhook handler is
// exposed separately because the processor authenticates it by signature.
func (m *Module) Router() chi.Router {
	r := chi.NewRouter()

	r.Post("/checkout", m.handleCreateCheckout)
	r.Get("/purchase-status", m.handlePurchaseStatus)
	r.Post("/cancel-subscription", m.handleCancelSubscription)
	r.Post("/purchase-item", m.handlePurchaseItem)
	r.Get("/history", m.handleHistory)

	return r
}

// Webhook returns the processor webhook endpoint handler.
func (m *Module) Webhook() http.HandlerFunc {
	return m.handleWebhook
}
