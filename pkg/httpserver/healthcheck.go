package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/replykit/pkg/logger"
)

// HealthCheckHandler serves liveness and readiness from one route. Without
// checks it answers ALIVE. With checks it runs each one in order and
// answers READY, or NOT_READY with a 500 on the first failure.
func HealthCheckHandler(ctx context.Context, log *slog.Logger, checks ...func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if len(checks) == 0 {
			fmt.Fprint(w, "ALIVE")
			return
		}

		for _, check := range checks {
			if err := check(ctx); err != nil {
				log.ErrorContext(r.Context(), "readiness check failed", logger.Error(err))
				w.WriteHeader(http.StatusInternalServerError)
				fmt.Fprint(w, "NOT_READY")
				return
			}
		}

		fmt.Fprint(w, "READY")
	}
}
