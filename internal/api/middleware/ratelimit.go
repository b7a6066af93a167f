package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/kiranshivaraju/reelgen/internal/api/response"
	"github.com/kiranshivaraju/reelgen/internal/cache"
)

// quotaWindow is the span each client's submission counter lives for.
const quotaWindow = 60 * time.Second

// RateLimit holds each API client to a fixed number of calls per quota
// window, counted in the shared cache so several reelgen API processes
// agree. A zero quota turns it off.
type RateLimit struct {
	counters cache.Cache
	quota    int
}

func NewRateLimit(c cache.Cache, requestsPerMin int) *RateLimit {
	return &RateLimit{counters: c, quota: requestsPerMin}
}

// Limit must sit behind Authenticate; requests without a client id pass.
func (rl *RateLimit) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client, ok := ClientID(r)
		if !ok || rl.quota <= 0 {
			next.ServeHTTP(w, r)
			return
		}

		used, err := rl.counters.IncrWithExpiry(r.Context(), cache.RateLimitKey(client), quotaWindow)
		if err != nil {
			slog.Warn("quota counter unavailable, admitting request",
				"client", client,
				"error", err,
			)
			next.ServeHTTP(w, r)
			return
		}

		rl.writeQuota(w.Header(), used)
		if used > int64(rl.quota) {
			w.Header().Set("Retry-After", strconv.Itoa(int(quotaWindow/time.Second)))
			response.Error(w, http.StatusTooManyRequests,
				"RATE_LIMIT_EXCEEDED", "Too many generation requests", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimit) writeQuota(h http.Header, used int64) {
	left := max(int64(rl.quota)-used, 0)
	h.Set("X-RateLimit-Limit", strconv.Itoa(rl.quota))
	h.Set("X-RateLimit-Remaining", strconv.FormatInt(left, 10))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(quotaWindow).Unix(), 10))
}
