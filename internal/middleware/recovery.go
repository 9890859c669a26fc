package middleware

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/parisxmas/OxiDB/OxiSubmit/internal/logging"
)

// Recovery turns a handler panic into a 500 response.
func Recovery(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logging.FromContext(r.Context(), logger).Error("panic recovered",
					zap.String("panic", fmt.Sprint(rec)),
					zap.Stack("stack"),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"message":"Server error","error":"internal error"}` + "\n"))
			}()
			next.ServeHTTP(w, r)
		})
	}
}
