package syncengine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"vericred/internal/cache"
	"vericred/internal/platform/metrics"
	dErrors "vericred/pkg/domain-errors"
	"vericred/pkg/vc"
)

// Engine states. The machine is cyclic: Idle -> Syncing -> Idle.
const (
	stateIdle int32 = iota
	stateSyncing
)

// defaultCacheTTL is assigned to newly cached credentials whose source
// provides no expiry of its own.
const defaultCacheTTL = time.Hour

// validateConcurrency bounds the fan-out of ValidateCachedCredentials.
const validateConcurrency = 8

// Engine reconciles the credential cache with the chain client. At most one
// bulk pass runs at a time; overlapping Sync calls are rejected, and only
// ForceSync overrides the guard.
type Engine struct {
	client       ChainClient
	cache        cache.Store
	connectivity Connectivity
	logger       *slog.Logger
	metrics      *metrics.Metrics
	tracer       trace.Tracer
	now          func() time.Time

	state atomic.Int32

	auto   autoSync
	status struct {
		mu         sync.Mutex
		cfg        AutoSyncConfig
		lastRunAt  time.Time
		lastResult *Result
	}
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMetrics attaches Prometheus metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithConnectivity attaches a network-class checker for WiFi-only ticks.
func WithConnectivity(c Connectivity) Option {
	return func(e *Engine) {
		e.connectivity = c
	}
}

// WithTracer injects a custom OpenTelemetry tracer.
func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) {
		e.tracer = t
	}
}

// New creates an Engine over the given chain client and cache store.
func New(client ChainClient, store cache.Store, opts ...Option) (*Engine, error) {
	if client == nil {
		return nil, dErrors.New(dErrors.CodeConfiguration, "chain client is required")
	}
	if store == nil {
		return nil, dErrors.New(dErrors.CodeConfiguration, "cache store is required")
	}

	e := &Engine{
		client: client,
		cache:  store,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.tracer == nil {
		e.tracer = otel.Tracer("vericred/syncengine")
	}
	return e, nil
}

// Sync runs one bulk reconciliation pass. If a pass is already running the
// call returns immediately with a single "already in progress" error and
// touches nothing else.
//
// A pass never aborts on per-credential failures: errors are collected,
// the loop continues, and the cache's last-sync timestamp is updated
// regardless of how the pass went.
func (e *Engine) Sync(ctx context.Context) *Result {
	if !e.state.CompareAndSwap(stateIdle, stateSyncing) {
		now := e.now()
		return &Result{
			Success:      false,
			LastSyncTime: now,
			Errors: []SyncError{{
				Type:        ErrorTypeUnknown,
				Message:     "Sync already in progress",
				Timestamp:   now,
				Recoverable: true,
			}},
		}
	}
	defer e.state.Store(stateIdle)

	return e.runPass(ctx)
}

// ForceSync clears the single-flight guard and runs a pass. This is an
// operator escape hatch: it deliberately permits overlapping executions,
// which is a documented risk, not a bug.
func (e *Engine) ForceSync(ctx context.Context) *Result {
	e.state.Store(stateIdle)
	return e.Sync(ctx)
}

func (e *Engine) runPass(ctx context.Context) *Result {
	started := e.now()
	passID := uuid.NewString()
	ctx, span := e.tracer.Start(ctx, "sync.pass",
		trace.WithAttributes(attribute.String("pass_id", passID)))
	defer span.End()

	log := e.logger.With("pass_id", passID)
	result := &Result{}
	stats := &Stats{}

	// Step 1: refresh the authoritative revocation list. Failure is one
	// recoverable error; the rest of the pass still runs.
	list, err := e.client.GetRevocationList(ctx)
	if err != nil {
		result.Errors = append(result.Errors, e.syncError(ErrorTypeRevocation, "", "fetch revocation list: %v", err))
		list = nil
	} else if verr := list.Validate(); verr != nil {
		result.Errors = append(result.Errors, e.syncError(ErrorTypeRevocation, "", "revocation list rejected: %v", verr))
		list = nil
	} else if perr := e.cache.SetRevocationList(ctx, list); perr != nil {
		result.Errors = append(result.Errors, e.syncError(ErrorTypeRevocation, "", "persist revocation list: %v", perr))
	} else {
		result.RevocationListUpdated = true
	}

	// Step 2: snapshot the cached IDs. Mutations after this point are not
	// observed until the next pass.
	ids, err := e.cache.AllCredentialIDs(ctx)
	if err != nil {
		result.Errors = append(result.Errors, e.syncError(ErrorTypeStorage, "", "list cached credentials: %v", err))
	}

	// Step 3: reconcile each cached credential, continuing past failures.
	for _, id := range ids {
		entry, err := e.cache.Get(ctx, id)
		if err != nil {
			if dErrors.HasCode(err, dErrors.CodeNotFound) {
				continue // vanished since the snapshot
			}
			result.Errors = append(result.Errors, e.syncError(ErrorTypeStorage, id, "load cached credential: %v", err))
			continue
		}

		revoked, err := e.client.IsCredentialRevoked(ctx, id)
		if err != nil {
			result.Errors = append(result.Errors, e.syncError(ErrorTypeNetwork, id, "revocation status check: %v", err))
			continue
		}

		if revoked != entry.RevocationStatus.IsRevoked {
			entry.RevocationStatus.IsRevoked = revoked
			entry.RevocationStatus.CheckedAt = e.now()
			if list != nil {
				entry.RevocationStatus.MerkleRoot = list.MerkleRoot
			}
			if err := e.cache.Set(ctx, entry); err != nil {
				result.Errors = append(result.Errors, e.syncError(ErrorTypeStorage, id, "persist cached credential: %v", err))
				continue
			}
			stats.CredentialsUpdated++
		}
		result.CredentialsSynced++
	}

	// Step 5: the last-sync timestamp moves even for a failed pass, so
	// schedulers measure attempts, not successes.
	finished := e.now()
	if err := e.cache.UpdateSyncTime(ctx, finished); err != nil {
		result.Errors = append(result.Errors, e.syncError(ErrorTypeStorage, "", "update sync time: %v", err))
	}

	stats.CredentialsChecked = len(ids)
	stats.Duration = finished.Sub(started)
	result.Stats = stats
	result.LastSyncTime = finished
	result.Success = len(result.Errors) == 0

	e.observePass(result)
	log.Info("sync pass finished",
		"success", result.Success,
		"credentials_synced", result.CredentialsSynced,
		"credentials_updated", stats.CredentialsUpdated,
		"revocation_list_updated", result.RevocationListUpdated,
		"errors", len(result.Errors),
		"duration", stats.Duration,
	)
	span.SetAttributes(
		attribute.Bool("success", result.Success),
		attribute.Int("credentials_synced", result.CredentialsSynced),
		attribute.Int("errors", len(result.Errors)),
	)
	return result
}

// SyncCredentialStatus reconciles specific credentials by ID. An ID absent
// from the cache is fetched in full and inserted; a present ID gets a
// revocation-only refresh.
//
// Unlike Sync, failures here propagate instead of accumulating. That
// asymmetry between bulk and targeted sync is intentional: a caller naming
// exact credentials wants to know which one failed, immediately.
func (e *Engine) SyncCredentialStatus(ctx context.Context, vcIDs ...string) error {
	for _, id := range vcIDs {
		entry, err := e.cache.Get(ctx, id)
		switch {
		case err == nil:
			if err := e.refreshRevocation(ctx, entry); err != nil {
				return err
			}
		case dErrors.HasCode(err, dErrors.CodeNotFound):
			if err := e.fetchAndCache(ctx, id); err != nil {
				return err
			}
		default:
			return dErrors.Wrap(err, dErrors.CodeStorage, "sync credential "+id+": load cache entry")
		}
	}
	return nil
}

// SyncSingleCredential reconciles one credential by ID.
func (e *Engine) SyncSingleCredential(ctx context.Context, vcID string) error {
	return e.SyncCredentialStatus(ctx, vcID)
}

func (e *Engine) refreshRevocation(ctx context.Context, entry *cache.CachedCredential) error {
	revoked, err := e.client.IsCredentialRevoked(ctx, entry.VCID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeNetwork, "sync credential "+entry.VCID+": revocation status")
	}
	entry.RevocationStatus.IsRevoked = revoked
	entry.RevocationStatus.CheckedAt = e.now()
	if err := e.cache.Set(ctx, entry); err != nil {
		return dErrors.Wrap(err, dErrors.CodeStorage, "sync credential "+entry.VCID+": persist")
	}
	return nil
}

func (e *Engine) fetchAndCache(ctx context.Context, vcID string) error {
	cred, err := e.client.GetCredential(ctx, vcID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeNetwork, "sync credential "+vcID+": fetch")
	}
	revoked, err := e.client.IsCredentialRevoked(ctx, vcID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeNetwork, "sync credential "+vcID+": revocation status")
	}

	now := e.now()
	expiresAt := now.Add(defaultCacheTTL)
	if cred.ExpiresAt != nil && cred.ExpiresAt.Before(expiresAt) {
		expiresAt = *cred.ExpiresAt
	}

	entry := &cache.CachedCredential{
		VCID:       vcID,
		Credential: *cred,
		HolderDID:  cred.Holder,
		IssuerDID:  cred.Issuer,
		RevocationStatus: cache.RevocationStatus{
			IsRevoked: revoked,
			CheckedAt: now,
		},
		Metadata: cache.Metadata{
			CachedAt:            now,
			ExpiresAt:           expiresAt,
			IssuedAt:            cred.IssuedAt,
			CredentialExpiresAt: cred.ExpiresAt,
		},
	}
	if err := e.cache.Set(ctx, entry); err != nil {
		return dErrors.Wrap(err, dErrors.CodeStorage, "sync credential "+vcID+": persist")
	}
	return nil
}

// RemoveStaleCredentials deletes entries cached longer than maxAge and
// returns the removed count.
func (e *Engine) RemoveStaleCredentials(ctx context.Context, maxAge time.Duration) (int, error) {
	ids, err := e.cache.AllCredentialIDs(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeStorage, "remove stale: list cached credentials")
	}

	now := e.now()
	removed := 0
	for _, id := range ids {
		entry, err := e.cache.Get(ctx, id)
		if err != nil {
			continue
		}
		if now.Sub(entry.Metadata.CachedAt) <= maxAge {
			continue
		}
		if err := e.cache.Delete(ctx, id); err != nil {
			return removed, dErrors.Wrap(err, dErrors.CodeStorage, "remove stale: delete "+id)
		}
		removed++
	}

	if e.metrics != nil {
		e.metrics.StaleRemoved.Add(float64(removed))
	}
	return removed, nil
}

// ValidateCachedCredentials re-verifies every cached credential against the
// chain and returns the IDs that failed. Lookup failures count as invalid:
// a credential we cannot verify is fail-closed, never presumed good.
func (e *Engine) ValidateCachedCredentials(ctx context.Context) ([]string, error) {
	ids, err := e.cache.AllCredentialIDs(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeStorage, "validate: list cached credentials")
	}

	var (
		mu      sync.Mutex
		invalid []string
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(validateConcurrency)

	for _, id := range ids {
		g.Go(func() error {
			res, err := e.client.VerifyCredential(ctx, id)
			valid := err == nil && res != nil && res.Verified
			if !valid {
				mu.Lock()
				invalid = append(invalid, id)
				mu.Unlock()
			}
			e.recordVerification(ctx, id, res, err)
			return nil
		})
	}
	_ = g.Wait() // closures never return an error

	sort.Strings(invalid)
	return invalid, nil
}

// recordVerification stamps the verification outcome onto the cache entry,
// best effort.
func (e *Engine) recordVerification(ctx context.Context, vcID string, res *vc.VerificationResult, verr error) {
	entry, err := e.cache.Get(ctx, vcID)
	if err != nil {
		return
	}
	record := &cache.VerificationRecord{VerifiedAt: e.now()}
	switch {
	case verr != nil:
		record.Errors = []string{verr.Error()}
	case res != nil:
		record.Verified = res.Verified
		record.Errors = res.Errors
	}
	entry.LastVerification = record
	if err := e.cache.Set(ctx, entry); err != nil {
		e.logger.Warn("failed to record verification outcome", "vc_id", vcID, "error", err)
	}
}

func (e *Engine) syncError(t ErrorType, vcID, format string, args ...any) SyncError {
	return SyncError{
		Type:        t,
		Message:     fmt.Sprintf(format, args...),
		VCID:        vcID,
		Timestamp:   e.now(),
		Recoverable: true,
	}
}

func (e *Engine) observePass(result *Result) {
	if e.metrics == nil {
		return
	}
	outcome := "success"
	if !result.Success {
		outcome = "failure"
	}
	e.metrics.SyncPasses.WithLabelValues(outcome).Inc()
	e.metrics.CredentialsSynced.Add(float64(result.CredentialsSynced))
	if result.Stats != nil {
		e.metrics.CredentialsUpdated.Add(float64(result.Stats.CredentialsUpdated))
		e.metrics.SyncDuration.Observe(result.Stats.Duration.Seconds())
	}
	for _, se := range result.Errors {
		e.metrics.SyncErrors.WithLabelValues(string(se.Type)).Inc()
	}
}
