package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/forbill/whatsapp-vtu/internal/handler"
	"github.com/forbill/whatsapp-vtu/internal/infrastructure/auth"
	"github.com/forbill/whatsapp-vtu/internal/infrastructure/observability"
	"github.com/forbill/whatsapp-vtu/internal/infrastructure/redis"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

const requestIDHeader = "X-Request-ID"

// SetupRouter mounts the webhook, admin and health routes. metrics is served
// on /metrics when non-nil.
func SetupRouter(h *handler.Handler, redisClient redis.RedisClient, jwtSecret string, metrics http.Handler) *mux.Router {
	r := mux.NewRouter()
	r.Use(requestIDMiddleware, metricsMiddleware)

	h.RegisterPublicRoutes(r)

	admin := r.PathPrefix("/admin").Subrouter()
	admin.Use(auth.AuthMiddleware(redisClient, jwtSecret))
	h.RegisterProtectedRoutes(admin)

	if metrics != nil {
		r.Handle("/metrics", metrics).Methods("GET")
	}
	return r
}

// requestIDMiddleware propagates or assigns X-Request-ID and stores a logger
// carrying it in the request context.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
			r.Header.Set(requestIDHeader, id)
		}
		w.Header().Set(requestIDHeader, id)

		logger := slog.Default().With("request_id", id)
		next.ServeHTTP(w, r.WithContext(observability.WithLogger(r.Context(), logger)))
	})
}

func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(recorder, r)

		// Route templates keep label cardinality bounded.
		route := "unmatched"
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		if recorder.status == 0 {
			recorder.status = http.StatusOK
		}

		observability.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(recorder.status)).Inc()
		observability.HTTPDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		observability.WithContext(r.Context()).Info("http request",
			"method", r.Method,
			"route", route,
			"status", recorder.status,
			"duration_ms", time.Since(start).Milliseconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}
