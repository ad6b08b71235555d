package httpserver

import (
	"net/http"
	"runtime/debug"

	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/YaganovValera/analytics-system/stream-connector/common/logger"
)

// Middleware wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// RecoverMiddleware turns handler panics into 500s.
func RecoverMiddleware(log *logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rcv := recover(); rcv != nil {
					log.Error("http: panic recovered",
						zap.Any("panic", rcv),
						zap.String("path", r.URL.Path),
						zap.ByteString("stack", debug.Stack()),
					)
					http.Error(w, "internal server error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// CORSMiddleware returns a permissive CORS policy for the probe endpoints.
func CORSMiddleware() Middleware {
	return cors.AllowAll().Handler
}
