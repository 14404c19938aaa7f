package service

import (
	"context"

	"github.com/MKhiriev/go-practice-sync/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/service_mock.go -package=mock

// SyncService is the server-side core of the engine: it reconciles pushed
// change batches against authoritative state and serves incremental pulls.
type SyncService interface {

	// Push processes one batch of changes for the authenticated owner.
	// Every change ends up accepted, conflicted or rejected; the batch as
	// a whole fails only on storage errors, oversized input
	// (ErrBatchTooLarge) or an undecodable checkpoint (ErrCheckpointUnknown).
	// sessionID names the pushing device session so fan-out can skip it.
	Push(ctx context.Context, ownerID int64, sessionID string, request models.PushRequest) (models.PushResponse, error)

	// Pull returns a page of the owner's entities changed after the
	// request checkpoint, soft-deletes included, in stream order.
	Pull(ctx context.Context, ownerID int64, request models.PullRequest) (models.PullResponse, error)
}

// AppInfoService exposes build metadata of the running server.
type AppInfoService interface {
	GetAppVersion(ctx context.Context) string
}

// OwnerActor serializes work per owner and fans events out to the owner's
// live sessions. Implemented by the broadcast hub; every push routes
// through it so that an owner's writes are processed one at a time and
// their events reach other sessions in commit order.
type OwnerActor interface {

	// Execute runs task on ownerID's actor goroutine. Events returned by
	// the task are delivered to every live session of the owner except
	// originSessionID before the actor takes its next command.
	Execute(ctx context.Context, ownerID int64, originSessionID string, task func(ctx context.Context) ([]models.Event, error)) error
}
