package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"vericred/internal/platform/health"
	"vericred/internal/platform/metrics"
	"vericred/internal/platform/middleware"
	"vericred/internal/ratelimit"
)

// NewRouter wires all public endpoints with the shared middleware stack.
// The limiter gates only the credential status path; operational endpoints
// stay unthrottled so a saturated verifier cannot lock out its operator.
func NewRouter(h *Handler, probes *health.Handler, logger *slog.Logger, limiter *ratelimit.MultiTier, m *metrics.Metrics) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Timeout(30 * time.Second))

	probes.Register(r)
	r.Get("/status", h.handleStatus)
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/sync", h.handleSync)
	r.Post("/sync/force", h.handleForceSync)

	r.Get("/revocation-list", h.handleRevocationList)
	r.Post("/credentials/validate", h.handleValidate)

	r.Route("/credentials/{id}", func(r chi.Router) {
		if limiter != nil {
			r.Use(middleware.RateLimit(limiter, admissionIdentifiers, m))
		}
		r.Get("/status", h.handleCredentialStatus)
		r.Post("/sync", h.handleCredentialSync)
	})

	return r
}

// admissionIdentifiers maps a request onto the limiter tiers: one shared
// global key, the caller's verifier ID, and the credential being checked.
func admissionIdentifiers(r *http.Request) map[string]string {
	verifier := r.Header.Get("X-Verifier-ID")
	if verifier == "" {
		verifier = "anonymous"
	}
	// The tiers share one bucket storage; prefixes keep their key spaces apart.
	return map[string]string{
		"global":     "global",
		"verifier":   "verifier:" + verifier,
		"credential": "vc:" + chi.URLParam(r, "id"),
	}
}
