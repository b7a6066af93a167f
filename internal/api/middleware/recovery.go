package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/kiranshivaraju/reelgen/internal/api/response"
)

// Recovery keeps a crashing job handler from taking the API down. The
// client gets the standard error envelope with a 500; aborted handlers
// still abort.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			v := recover()
			if v == nil {
				return
			}
			if v == http.ErrAbortHandler {
				panic(v)
			}
			logPanic(r, v)
			response.Error(w, http.StatusInternalServerError,
				"INTERNAL_ERROR", "The job API failed while handling this request", nil)
		}()
		next.ServeHTTP(w, r)
	})
}

func logPanic(r *http.Request, v any) {
	slog.Error("job api handler crashed",
		"panic", v,
		"route", r.Method+" "+r.URL.Path,
		"request_id", chimw.GetReqID(r.Context()),
		"stack", string(debug.Stack()),
	)
}
