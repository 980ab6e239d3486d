// Package syncengine reconciles the local credential cache against
// authoritative chain state. It owns the sync state machine, the auto-sync
// scheduler, and the partial-failure semantics of a reconciliation pass.
package syncengine

import (
	"time"
)

// ErrorType buckets a SyncError for retry policy and observability.
type ErrorType string

const (
	ErrorTypeNetwork    ErrorType = "network"
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeStorage    ErrorType = "storage"
	ErrorTypeRevocation ErrorType = "revocation"
	ErrorTypeUnknown    ErrorType = "unknown"
)

// SyncError is one failure collected during a bulk sync pass.
type SyncError struct {
	Type        ErrorType `json:"type"`
	Message     string    `json:"message"`
	VCID        string    `json:"vc_id,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	Recoverable bool      `json:"recoverable"`
}

// Stats carries per-pass counters for observability.
type Stats struct {
	CredentialsChecked int           `json:"credentials_checked"`
	CredentialsUpdated int           `json:"credentials_updated"`
	Duration           time.Duration `json:"duration"`
}

// Result reports one attempted sync pass. Success is strictly "no errors
// were collected": a pass that processed every credential but hit one
// transient failure still reports false, and callers schedule retries off
// that bit.
type Result struct {
	Success               bool        `json:"success"`
	CredentialsSynced     int         `json:"credentials_synced"`
	RevocationListUpdated bool        `json:"revocation_list_updated"`
	LastSyncTime          time.Time   `json:"last_sync_time"`
	Errors                []SyncError `json:"errors"`
	Stats                 *Stats      `json:"stats,omitempty"`
}

// AutoSyncConfig tunes the background scheduler. One config lives from
// StartAutoSync to StopAutoSync.
type AutoSyncConfig struct {
	Enabled       bool          `json:"enabled"`
	Interval      time.Duration `json:"interval"`
	WiFiOnly      bool          `json:"wifi_only,omitempty"`
	SyncOnStartup bool          `json:"sync_on_startup,omitempty"`
	MaxRetries    int           `json:"max_retries,omitempty"`
	RetryBackoff  float64       `json:"retry_backoff,omitempty"`
}

// AutoSyncStatus is the only observable surface of the scheduler; ticks
// that exhaust their retries surface here, never as an exception.
type AutoSyncStatus struct {
	Enabled    bool          `json:"enabled"`
	Interval   time.Duration `json:"interval"`
	LastRunAt  time.Time     `json:"last_run_at,omitzero"`
	LastResult *Result       `json:"last_result,omitempty"`
}
