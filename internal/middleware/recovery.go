package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/ahsanfayaz52/noteboard/internal/logger"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Recovery turns a handler panic into a 500 and logs the stack.
func Recovery(log *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.Error("recovered from panic",
						zap.String(logger.FieldMethod, r.Method),
						zap.String(logger.FieldPath, r.URL.Path),
						zap.String("panic", fmt.Sprintf("%v", err)),
						zap.String("stack", string(debug.Stack())),
					)
					http.Error(w, "Internal server error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
