package middleware

import (
	"net/http"
	"time"

	"github.com/ahsanfayaz52/noteboard/internal/logger"
	"github.com/ahsanfayaz52/noteboard/internal/metrics"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// AccessLog logs every request and counts it by route template.
func AccessLog(log *zap.Logger, m *metrics.Metrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			route := routeTemplate(r)
			m.ObserveHTTP(r.Method, route, rec.status)
			log.Info(route,
				zap.String(logger.FieldMethod, r.Method),
				zap.String(logger.FieldPath, r.URL.Path),
				zap.Int(logger.FieldStatus, rec.status),
				zap.Duration(logger.FieldDuration, time.Since(start)),
				zap.String(logger.FieldRemote, r.RemoteAddr),
				zap.String("user-agent", r.UserAgent()),
			)
		})
	}
}

// routeTemplate keeps metric labels bounded: /notes/delete/{id} rather than
// one series per note.
func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}
