package middleware

import (
	"log/slog"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// responseMeter remembers what a handler sent back.
type responseMeter struct {
	http.ResponseWriter
	code    int
	written int
}

func (m *responseMeter) WriteHeader(code int) {
	m.code = code
	m.ResponseWriter.WriteHeader(code)
}

func (m *responseMeter) Write(b []byte) (int, error) {
	n, err := m.ResponseWriter.Write(b)
	m.written += n
	return n, err
}

// Logger records each job API call once it has been answered. Server-side
// failures log at error level so they stand out from routine polling.
// Mount it after chi's RequestID.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		began := time.Now()
		meter := &responseMeter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(meter, r)

		level := slog.LevelInfo
		if meter.code >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		slog.Log(r.Context(), level, "job api call",
			"route", r.Method+" "+r.URL.Path,
			"status", meter.code,
			"bytes", meter.written,
			"took_ms", time.Since(began).Milliseconds(),
			"peer", r.RemoteAddr,
			"request_id", chimw.GetReqID(r.Context()),
		)
	})
}
