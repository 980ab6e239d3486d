package middleware

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"vericred/internal/platform/metrics"
	"vericred/internal/ratelimit"
	dErrors "vericred/pkg/domain-errors"
	httpErrors "vericred/pkg/http-errors"
)

// RateLimit gates requests through a multi-tier limiter. The identify
// function maps the request onto tier identifiers; a *RateLimitError
// rejection answers 429 with a Retry-After hint. Metrics are optional.
func RateLimit(limiter *ratelimit.MultiTier, identify func(*http.Request) map[string]string, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			err := limiter.CheckLimit(r.Context(), identify(r), 1)
			if err == nil {
				if m != nil {
					m.AdmissionsAllowed.Inc()
				}
				next.ServeHTTP(w, r)
				return
			}

			var rejection *ratelimit.RateLimitError
			if errors.As(err, &rejection) {
				if m != nil {
					m.AdmissionsRejected.WithLabelValues(rejection.Tier).Inc()
				}
				seconds := int(math.Ceil(rejection.RetryAfter.Seconds()))
				if seconds < 1 {
					seconds = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(seconds))
				err = dErrors.Wrap(err, dErrors.CodeRateLimited, rejection.Error())
			}
			httpErrors.Write(w, err)
		})
	}
}
