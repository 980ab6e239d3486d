package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the SDK.
type Metrics struct {
	// Sync metrics
	SyncPasses         *prometheus.CounterVec
	SyncErrors         *prometheus.CounterVec
	CredentialsSynced  prometheus.Counter
	CredentialsUpdated prometheus.Counter
	StaleRemoved       prometheus.Counter
	SyncDuration       prometheus.Histogram

	// Rate limit metrics
	AdmissionsAllowed  prometheus.Counter
	AdmissionsRejected *prometheus.CounterVec
}

// New creates and registers all metrics on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers all metrics on the given registerer. Tests pass a fresh
// registry so repeated construction does not collide.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SyncPasses: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vericred_sync_passes_total",
			Help: "Total sync passes by outcome",
		}, []string{"outcome"}),
		SyncErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vericred_sync_errors_total",
			Help: "Total errors collected during sync passes, by type",
		}, []string{"type"}),
		CredentialsSynced: factory.NewCounter(prometheus.CounterOpts{
			Name: "vericred_credentials_synced_total",
			Help: "Total cached credentials checked against the chain",
		}),
		CredentialsUpdated: factory.NewCounter(prometheus.CounterOpts{
			Name: "vericred_credentials_updated_total",
			Help: "Total cached credentials whose revocation status changed",
		}),
		StaleRemoved: factory.NewCounter(prometheus.CounterOpts{
			Name: "vericred_stale_credentials_removed_total",
			Help: "Total stale cache entries removed",
		}),
		SyncDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "vericred_sync_duration_seconds",
			Help:    "Duration of sync passes in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		AdmissionsAllowed: factory.NewCounter(prometheus.CounterOpts{
			Name: "vericred_admissions_allowed_total",
			Help: "Verification requests admitted through every tier",
		}),
		AdmissionsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vericred_admissions_rejected_total",
			Help: "Verification requests rejected, by tier",
		}, []string{"tier"}),
	}
}
