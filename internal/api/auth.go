package api

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/ShalomGure/actors-api/internal/metrics"
	"github.com/ShalomGure/actors-api/internal/ratelimit"
)

type apiKeyKey struct{}

const bearerPrefix = "bearer "

// bearerAuthMiddleware accepts "Authorization: Bearer <token>" where token
// exactly matches one of keys. The scheme is case-insensitive; the token is not.
func bearerAuthMiddleware(keys []string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		allowed[k] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				w.Header().Set("WWW-Authenticate", `Bearer realm="actors-api"`)
				writeError(w, http.StatusUnauthorized, "Missing or malformed Authorization header.")
				return
			}
			if _, known := allowed[token]; !known {
				w.Header().Set("WWW-Authenticate", `Bearer realm="actors-api", error="invalid_token"`)
				writeError(w, http.StatusUnauthorized, "Invalid API key.")
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), apiKeyKey{}, token)))
		})
	}
}

// rateLimitMiddleware throttles each authenticated API key independently.
// It must run after bearerAuthMiddleware.
func rateLimitMiddleware(limiter *ratelimit.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, _ := r.Context().Value(apiKeyKey{}).(string)
			if !limiter.Allow(key) {
				metrics.ObserveRateLimited()
				secs := int(math.Ceil(limiter.RetryAfter(key).Seconds()))
				w.Header().Set("Retry-After", strconv.Itoa(max(secs, 1)))
				writeError(w, http.StatusTooManyRequests, "Too many requests.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(header string) (string, bool) {
	if len(header) < len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])
	return token, token != ""
}
