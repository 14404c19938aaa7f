package service

import (
	"context"
	"errors"
	"net"

	"github.com/MKhiriev/go-practice-sync/internal/adapter"
)

// isTransientSyncError reports whether a failed sync cycle may be retried
// blindly. Transient failures leave the outbox and checkpoint untouched, and
// change ids keep a replayed push idempotent on the server, so retrying is
// always safe. Everything else (validation rejects, auth failures, local
// storage errors) needs intervention and must not be hammered.
func isTransientSyncError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, adapter.ErrServerUnavailable) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	// ошибки транспорта: connection refused, обрыв, таймаут dial'а
	var netErr net.Error
	return errors.As(err, &netErr)
}
