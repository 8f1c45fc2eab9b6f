package usage

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/replykit/handler"
	"github.com/dmitrymomot/replykit/pkg/jwt"
	"github.com/dmitrymomot/replykit/pkg/logger"
	"github.com/dmitrymomot/replykit/pkg/quota"
)

// Module exposes the usage quota over HTTP.
type Module struct {
	quota *quota.Service
	log   *slog.Logger
}

// NewModule wires the usage HTTP handlers.
func NewModule(q *quota.Service, log *slog.Logger) *Module {
	return &Module{quota: q, log: log}
}

// Router returns the authenticated usage API.
func (m *Module) Router() chi.Router {
	r := chi.NewRouter()

	r.Get("/limit", m.handleLimit)
	r.Post("/increment", m.handleIncrement)

	return r
}

// handleLimit reports the user's current allowance.
// The quota service degrades internally on storage failure, so this endpoint
// never errors on the read path.
func (m *Module) handleLimit(w http.ResponseWriter, r *http.Request) {
	userID, ok := jwt.GetUserID(r.Context())
	if !ok {
		handler.Render(w, r, handler.JSONError(handler.ErrUnauthorized))
		return
	}

	result := m.quota.Check(r.Context(), userID)
	handler.Render(w, r, handler.JSON(result))
}

type incrementResponse struct {
	Success       bool   `json:"success"`
	RemainingUses int    `json:"remaining_uses"`
	TotalUses     int    `json:"total_uses"`
	Plan          string `json:"plan"`
}

// handleIncrement consumes one use.
func (m *Module) handleIncrement(w http.ResponseWriter, r *http.Request) {
	userID, ok := jwt.GetUserID(r.Context())
	if !ok {
		handler.Render(w, r, handler.JSONError(handler.ErrUnauthorized))
		return
	}

	result, err := m.quota.Increment(r.Context(), userID)
	if err != nil {
		if errors.Is(err, quota.ErrQuotaExceeded) {
			handler.Render(w, r, handler.JSONError(
				handler.NewHTTPError(http.StatusForbidden, "usage_limit_reached",
					"Monthly usage limit reached. Upgrade to premium for unlimited use.")))
			return
		}
		m.log.ErrorContext(r.Context(), "usage increment failed",
			logger.Error(err), logger.UserID(userID))
		handler.Render(w, r, handler.JSONError(handler.ErrInternalServerError))
		return
	}

	handler.Render(w, r, handler.JSON(incrementResponse{
		Success:       true,
		RemainingUses: result.RemainingUses,
		TotalUses:     result.TotalUses,
		Plan:          string(result.Plan),
	}))
}
