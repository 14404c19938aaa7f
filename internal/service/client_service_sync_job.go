package service

import (
	"context"
	"time"

	"github.com/MKhiriev/go-practice-sync/internal/config"
	"github.com/MKhiriev/go-practice-sync/internal/logger"

	"github.com/sethvargo/go-retry"
)

const (
	defaultSyncInterval = 1 * time.Minute
	defaultRetryWaitMin = 2 * time.Second
	defaultRetryWaitMax = 1 * time.Minute

	// defaultRetryJitterPercent spreads retry waits ±20% so devices that
	// lost the same server do not come back in lockstep.
	defaultRetryJitterPercent = 20

	// maxSyncAttempts bounds the in-tick retries so a long outage does not
	// pile cycles on top of the next tick. The outbox survives either way.
	maxSyncAttempts = 3
)

// retryBackoff builds the wait sequence shared by the sync workers:
// exponential growth from waitMin, jittered by ±jitterPercent, with waitMax
// as a hard ceiling. The base is capped before the jitter so the waits keep
// varying after the exponential saturates; the outer cap clamps the upward
// half of the jitter.
func retryBackoff(waitMin, waitMax time.Duration, jitterPercent uint64) retry.Backoff {
	backoff := retry.NewExponential(waitMin)
	backoff = retry.WithCappedDuration(waitMax, backoff)
	backoff = retry.WithJitterPercent(jitterPercent, backoff)
	backoff = retry.WithCappedDuration(waitMax, backoff)
	return backoff
}

// syncJob periodically drains the outbox and pulls remote changes. It is
// the device's safety net: even if the realtime channel is down for hours,
// the job keeps the device converging at its own pace.
type syncJob struct {
	syncService ClientSyncService

	interval           time.Duration
	retryWaitMin       time.Duration
	retryWaitMax       time.Duration
	retryJitterPercent uint64

	logger *logger.Logger
}

// NewSyncJob constructs the periodic sync worker. Zero config values fall
// back to built-in defaults.
func NewSyncJob(syncService ClientSyncService, cfg config.ClientWorkers, logger *logger.Logger) *syncJob {
	interval := cfg.SyncInterval
	if interval <= 0 {
		interval = defaultSyncInterval
	}

	retryWaitMin := cfg.RetryWaitMin
	if retryWaitMin <= 0 {
		retryWaitMin = defaultRetryWaitMin
	}

	retryWaitMax := cfg.RetryWaitMax
	if retryWaitMax <= 0 {
		retryWaitMax = defaultRetryWaitMax
	}

	retryJitterPercent := cfg.RetryJitterPercent
	if retryJitterPercent == 0 {
		retryJitterPercent = defaultRetryJitterPercent
	}

	return &syncJob{
		syncService:        syncService,
		interval:           interval,
		retryWaitMin:       retryWaitMin,
		retryWaitMax:       retryWaitMax,
		retryJitterPercent: retryJitterPercent,
		logger:             logger,
	}
}

// Run blocks until ctx is cancelled, running one sync cycle per interval.
// The first cycle fires immediately: a device that was offline for a long
// time should not wait a full interval to catch up.
func (j *syncJob) Run(ctx context.Context) {
	j.syncWithRetry(ctx)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.logger.Debug().Msg("sync job stopped")
			return
		case <-ticker.C:
			j.syncWithRetry(ctx)
		}
	}
}

// syncWithRetry runs one cycle, retrying transient failures with capped
// exponential backoff. Non-transient failures are not retried: the outbox
// keeps the data safe and the operator gets a log line to act on.
func (j *syncJob) syncWithRetry(ctx context.Context) {
	backoff := retryBackoff(j.retryWaitMin, j.retryWaitMax, j.retryJitterPercent)
	backoff = retry.WithMaxRetries(maxSyncAttempts, backoff)

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := j.syncService.SyncOnce(ctx); err != nil {
			if isTransientSyncError(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		return nil
	})
	if err == nil || ctx.Err() != nil {
		return
	}

	if isTransientSyncError(err) {
		j.logger.Info().Err(err).Msg("server unreachable, outbox kept for the next cycle")
		return
	}
	j.logger.Error().Err(err).Msg("sync cycle failed")
}
