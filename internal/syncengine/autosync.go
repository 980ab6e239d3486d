package syncengine

import (
	"context"
	"math"
	"sync"
	"time"
)

// autoSync holds scheduler lifecycle state. The lifecycle mutex is separate
// from the status mutex so StopAutoSync can wait for the loop to drain
// while a tick is still publishing its result.
type autoSync struct {
	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// StartAutoSync schedules background sync passes every interval. Any
// existing scheduler is replaced. When cfg.SyncOnStartup is set the first
// pass runs immediately rather than waiting one interval.
func (e *Engine) StartAutoSync(interval time.Duration, cfg AutoSyncConfig) {
	if interval <= 0 {
		interval = time.Minute
	}
	cfg.Interval = interval
	cfg.Enabled = true
	if cfg.RetryBackoff < 1 {
		cfg.RetryBackoff = 2
	}

	e.auto.mu.Lock()
	defer e.auto.mu.Unlock()
	e.stopLocked()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	e.auto.cancel = cancel
	e.auto.done = done

	e.status.mu.Lock()
	e.status.cfg = cfg
	e.status.mu.Unlock()

	go e.runScheduler(ctx, cfg, done)

	e.logger.Info("auto-sync started",
		"interval", interval,
		"sync_on_startup", cfg.SyncOnStartup,
		"wifi_only", cfg.WiFiOnly,
		"max_retries", cfg.MaxRetries,
	)
}

// StopAutoSync cancels the scheduler and waits for it to drain: once it
// returns, no further scheduled pass will fire. Calling it twice is safe.
func (e *Engine) StopAutoSync() {
	e.auto.mu.Lock()
	defer e.auto.mu.Unlock()
	e.stopLocked()
}

func (e *Engine) stopLocked() {
	if e.auto.cancel == nil {
		return
	}
	e.auto.cancel()
	<-e.auto.done
	e.auto.cancel = nil
	e.auto.done = nil

	e.status.mu.Lock()
	e.status.cfg.Enabled = false
	e.status.mu.Unlock()

	e.logger.Info("auto-sync stopped")
}

// AutoSyncStatus reports the scheduler's observable state. This, plus
// logs, is the entire failure surface of auto-sync: exhausted ticks are
// visible here and nowhere else.
func (e *Engine) AutoSyncStatus() AutoSyncStatus {
	e.status.mu.Lock()
	defer e.status.mu.Unlock()

	s := AutoSyncStatus{
		Enabled:   e.status.cfg.Enabled,
		Interval:  e.status.cfg.Interval,
		LastRunAt: e.status.lastRunAt,
	}
	if e.status.lastResult != nil {
		copied := *e.status.lastResult
		s.LastResult = &copied
	}
	return s
}

func (e *Engine) runScheduler(ctx context.Context, cfg AutoSyncConfig, done chan struct{}) {
	defer close(done)

	if cfg.SyncOnStartup {
		e.tick(ctx, cfg)
	}

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.tick(ctx, cfg)
		}
	}
}

// tick runs one scheduled attempt with bounded retries and exponential
// backoff. Exhausting the retries is silent by design: nothing is thrown
// back into the scheduler, and the outcome is observable only through
// AutoSyncStatus and the log line below.
func (e *Engine) tick(ctx context.Context, cfg AutoSyncConfig) {
	if cfg.WiFiOnly && e.connectivity != nil && !e.connectivity.IsWiFi(ctx) {
		// Skipped entirely; a skip is not a retry.
		e.logger.Debug("auto-sync tick skipped, not on WiFi")
		return
	}

	for attempt := 0; ; attempt++ {
		result := e.Sync(ctx)

		e.status.mu.Lock()
		e.status.lastRunAt = e.now()
		e.status.lastResult = result
		e.status.mu.Unlock()

		if result.Success {
			return
		}
		if attempt >= cfg.MaxRetries {
			e.logger.Warn("auto-sync exhausted retries",
				"attempts", attempt+1,
				"errors", len(result.Errors),
			)
			return
		}

		delay := time.Duration(math.Pow(cfg.RetryBackoff, float64(attempt)) * float64(time.Second))
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}
