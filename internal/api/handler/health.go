package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/kiranshivaraju/reelgen/internal/api/response"
)

// Pinger is anything with a connectivity check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewHealthHandler reports the remote service and the history backend. The
// local API itself stays up when the service is down, so the response is
// always 200 with a degraded status.
func NewHealthHandler(service, history Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		status := "ok"
		serviceStatus := "ok"
		if err := service.Ping(ctx); err != nil {
			serviceStatus = "unreachable"
			status = "degraded"
		}
		historyStatus := "ok"
		if history != nil {
			if err := history.Ping(ctx); err != nil {
				historyStatus = "error"
				status = "degraded"
			}
		}

		response.JSON(w, map[string]string{
			"status":  status,
			"service": serviceStatus,
			"history": historyStatus,
		})
	}
}
