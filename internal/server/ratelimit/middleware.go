// Provides HTTP middleware and response writers for rate limiting.

package ratelimit

import (
	"net/http"
	"strconv"
)

// WriteHeaders writes rate limit headers to the response.
// Headers are written on all responses (both success and 429).
func WriteHeaders(w http.ResponseWriter, result Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
	if !result.Allowed {
		w.Header().Set("Retry-After", strconv.Itoa(int(result.RetryAfter.Seconds())))
	}
}

// KeyFunc derives the bucket key from a request.
type KeyFunc func(*http.Request) string

// Rejecter writes the response for a throttled request.
type Rejecter func(w http.ResponseWriter, r *http.Request, result Result)

// Middleware throttles requests per key. Paths listed in skip bypass the limiter.
func Middleware(l *Limiter, key KeyFunc, reject Rejecter, skip ...string) func(http.Handler) http.Handler {
	exempt := make(map[string]struct{}, len(skip))
	for _, p := range skip {
		exempt[p] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := exempt[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}
			result := l.Allow(BuildKey(r.Method, key(r)))
			WriteHeaders(w, result)
			if !result.Allowed {
				reject(w, r, result)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// BuildKey creates a bucket key from the caller identifier and the method class.
func BuildKey(method, identifier string) string {
	class := "read"
	if method != http.MethodGet && method != http.MethodHead {
		class = "write"
	}
	return "ip:" + identifier + ":" + class
}
