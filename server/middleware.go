package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"VidTube/cache"
	"VidTube/core/apperr"
	"VidTube/logger"
	"VidTube/model"
)

type contextKey string

const (
	userIDKey    contextKey = "userID"
	userKey      contextKey = "user"
	requestIDKey contextKey = "requestID"
)

// responseWriter captures the status code written by a handler.
type responseWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func wrapResponseWriter(w http.ResponseWriter) *responseWriter {
	if rw, ok := w.(*responseWriter); ok {
		return rw
	}
	return &responseWriter{ResponseWriter: w, status: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	if rw.wroteHeader {
		return
	}
	rw.status = code
	rw.wroteHeader = true
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}

// RequestIDFromContext returns the request id, or "" outside a request.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// RequestID reuses an incoming X-Request-ID or generates one.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

// AccessLog writes one line per request.
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := wrapResponseWriter(w)

		next.ServeHTTP(wrapped, r)

		logger.Info("http request",
			logger.String("requestID", RequestIDFromContext(r.Context())),
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Int("status", wrapped.status),
			logger.Duration("duration", time.Since(start)),
			logger.String("remoteIP", clientIP(r, false)),
			logger.String("forwardedFor", r.Header.Get("X-Forwarded-For")),
		)
	})
}

// Recoverer turns a handler panic into a 500 envelope.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.Error("panic in handler",
					logger.String("path", r.URL.Path),
					logger.Any("panic", rec),
					logger.String("stack", string(debug.Stack())))
				writeError(w, r, apperr.Internal("Internal server error", fmt.Errorf("panic: %v", rec)))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// clientIP returns the socket peer. Behind a trusted proxy it prefers the first
// X-Forwarded-For hop, then X-Real-IP.
func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if forwarded := forwardedIP(r); forwarded != "" {
			return forwarded
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func forwardedIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if first := strings.TrimSpace(strings.Split(xff, ",")[0]); first != "" {
			return first
		}
	}
	return strings.TrimSpace(r.Header.Get("X-Real-IP"))
}

// RateLimit wraps a handler in the per-IP limiter. A nil limiter disables it.
// Forwarded headers only pick the key when trustProxy is set.
func RateLimit(limiter *cache.RateLimiter, metrics *Metrics, trustProxy bool) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		if limiter == nil {
			return next
		}
		return func(w http.ResponseWriter, r *http.Request) {
			decision, err := limiter.Allow(r.Context(), clientIP(r, trustProxy))
			if err != nil {
				logger.Warn("rate limiter unavailable, allowing request",
					logger.String("path", r.URL.Path),
					logger.ErrorField(err))
				next(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
			if !decision.Allowed {
				if metrics != nil {
					metrics.rateLimitedTotal.Inc()
				}
				retry := int(decision.RetryAfter.Round(time.Second).Seconds())
				if retry < 1 {
					retry = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				respond(w, http.StatusTooManyRequests, nil, "Too many requests, please try again later")
				return
			}
			next(w, r)
		}
	}
}

// AuthMiddleware verifies the access token and loads the caller into the request context.
func (h *APIHandler) AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := accessTokenFromRequest(r)
		if token == "" {
			writeError(w, r, apperr.Auth("Unauthorized request"))
			return
		}

		claims, err := h.tokens.VerifyAccessToken(token)
		if err != nil {
			logger.Warn("[Auth] access token rejected", logger.String("path", r.URL.Path))
			writeError(w, r, apperr.Auth("Invalid Access Token"))
			return
		}

		user, err := h.sessions.CurrentUser(r.Context(), claims.UserID)
		if err != nil {
			if apperr.From(err).Kind == apperr.KindNotFound {
				writeError(w, r, apperr.Auth("Invalid Access Token"))
				return
			}
			writeError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, user.ID)
		ctx = context.WithValue(ctx, userKey, user)
		next(w, r.WithContext(ctx))
	}
}

func accessTokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(accessTokenCookie); err == nil && c.Value != "" {
		return c.Value
	}
	authHeader := r.Header.Get("Authorization")
	if after, ok := strings.CutPrefix(authHeader, "Bearer "); ok {
		return strings.TrimSpace(after)
	}
	return ""
}

// GetUserIDFromContext returns the id stored by AuthMiddleware.
func GetUserIDFromContext(ctx context.Context) (string, error) {
	id, ok := ctx.Value(userIDKey).(string)
	if !ok || id == "" {
		return "", apperr.Auth("Unauthorized request")
	}
	return id, nil
}

// GetUserFromContext returns the sanitized caller stored by AuthMiddleware.
func GetUserFromContext(ctx context.Context) (*model.PublicUser, bool) {
	user, ok := ctx.Value(userKey).(*model.PublicUser)
	return user, ok && user != nil
}
