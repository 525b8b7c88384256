package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/nikhilmehra04/stylehub-backend/api/responses"
	pkgerrors "github.com/nikhilmehra04/stylehub-backend/pkg/errors"
	"github.com/nikhilmehra04/stylehub-backend/pkg/logger"
)

// RateLimiter counts requests in a fixed window and reports whether the
// caller is still under the cap.
type RateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// RateLimit caps requests per user on the wrapped routes. A nil limiter
// disables the cap; limiter failures let the request through so the
// counter store cannot take the endpoint down with it.
func RateLimit(limiter RateLimiter, limit int64, window time.Duration, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil || limit <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			scope := strconv.FormatUint(uint64(UserIDFromContext(r.Context())), 10) + ":" + r.Method + ":" + r.URL.Path
			allowed, count, err := limiter.FixedWindowAllow(r.Context(), scope, limit, window)
			if err != nil {
				if logg != nil {
					logg.Error(r.Context(), "rate limit check failed", err)
				}
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeRateLimited,
					"request limit reached, retry later").
					WithDetails(map[string]any{"limit": limit, "count": count}))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
