package handlers

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"

	"familytasks/internal/logger"
	"familytasks/internal/models"
	"familytasks/internal/security"
	"familytasks/internal/service"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	IdentityContextKey ContextKey = "identity"
	LoggerContextKey   ContextKey = "logger"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.3, 1, 3},
		},
		[]string{"method", "route"},
	)

	inFlightRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_in_flight_requests",
			Help: "Current number of in-flight HTTP requests",
		},
	)
)

// Middleware holds dependencies for middleware functions
type Middleware struct {
	authService *service.AuthService
	limiter     *security.RateLimiter
	clientIPs   *security.ClientIPResolver
}

// NewMiddleware creates a new middleware instance. A nil clientIPs
// attributes every request to its RemoteAddr.
func NewMiddleware(authService *service.AuthService, limiter *security.RateLimiter, clientIPs *security.ClientIPResolver) *Middleware {
	return &Middleware{
		authService: authService,
		limiter:     limiter,
		clientIPs:   clientIPs,
	}
}

// bearerToken extracts the token from an Authorization header
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// authenticate resolves the request's bearer token
func (m *Middleware) authenticate(r *http.Request) (*service.Identity, error) {
	token, ok := bearerToken(r)
	if !ok {
		return nil, service.ErrUnauthorized
	}
	return m.authService.Authenticate(r.Context(), token)
}

// RequireAuth is middleware that requires a valid bearer token
func (m *Middleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, err := m.authenticate(r)
		if err != nil {
			if errors.Is(err, service.ErrUnauthorized) {
				respondWithError(w, r, http.StatusUnauthorized, ErrUnauthorized, "", nil)
				return
			}
			respondWithError(w, r, http.StatusInternalServerError, ErrInternalServerError, "authentication failed", err)
			return
		}

		next(w, withIdentity(r, identity))
	}
}

// withIdentity stores the authenticated caller on the request
func withIdentity(r *http.Request, identity *service.Identity) *http.Request {
	ctx := context.WithValue(r.Context(), IdentityContextKey, identity)
	ctx = withLogger(ctx, LoggerFromContext(ctx).WithField("user_id", identity.User.ID))
	return r.WithContext(ctx)
}

// RateLimit rejects clients that exceed the configured request rate
func (m *Middleware) RateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if m.limiter != nil && !m.limiter.Allow(m.clientIPs.ClientIP(r)) {
			respondWithError(w, r, http.StatusTooManyRequests, ErrTooManyRequests, "", nil)
			return
		}
		next(w, r)
	}
}

// GetIdentityFromContext retrieves the authenticated caller from the request context
func GetIdentityFromContext(ctx context.Context) *service.Identity {
	identity, ok := ctx.Value(IdentityContextKey).(*service.Identity)
	if !ok {
		return nil
	}
	return identity
}

// GetUserFromContext retrieves the user from the request context
func GetUserFromContext(ctx context.Context) *models.User {
	if identity := GetIdentityFromContext(ctx); identity != nil {
		return identity.User
	}
	return nil
}

func withLogger(ctx context.Context, log *logrus.Entry) context.Context {
	return context.WithValue(ctx, LoggerContextKey, log)
}

// LoggerFromContext returns the request-scoped logger, or the standard
// logger outside a request
func LoggerFromContext(ctx context.Context) *logrus.Entry {
	if log, ok := ctx.Value(LoggerContextKey).(*logrus.Entry); ok {
		return log
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

// RequestID tags each request with an ID, reusing the caller's X-Request-ID
// when present, and attaches a request-scoped logger
func RequestID(log *logrus.Entry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if id == "" || len(id) > 128 {
				id = uuid.New().String()
			}
			w.Header().Set(RequestIDHeader, id)
			ctx := withLogger(r.Context(), logger.WithRequestID(log, id))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// statusRecorder captures the status code written by a handler
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Logging middleware logs HTTP requests
func (m *Middleware) Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		LoggerFromContext(r.Context()).WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      wrapped.statusCode,
			"duration_ms": time.Since(start).Milliseconds(),
			"remote_ip":   m.clientIPs.ClientIP(r),
		}).Info("request completed")
	})
}

// Metrics records request counts and latency per route pattern
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inFlightRequests.Inc()
		defer inFlightRequests.Dec()

		start := time.Now()
		wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		// The mux fills in Pattern on the way through
		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		requestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(wrapped.statusCode)).Inc()
		requestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// SecurityHeaders sets conservative headers on every response
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		if security.IsSecureRequest(r) {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		next.ServeHTTP(w, r)
	})
}

// CORS allows browser clients from allowedOrigins and answers preflights
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && (slices.Contains(allowedOrigins, origin) || slices.Contains(allowedOrigins, "*")) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
				w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, "+RequestIDHeader)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Max-Age", "600")
			}
			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
