package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/MKhiriev/go-practice-sync/internal/config"
	"github.com/MKhiriev/go-practice-sync/internal/logger"
	"github.com/MKhiriev/go-practice-sync/internal/resolve"
	"github.com/MKhiriev/go-practice-sync/internal/store"
	"github.com/MKhiriev/go-practice-sync/internal/validators"
	"github.com/MKhiriev/go-practice-sync/models"
)

const (
	defaultMaxBatchSize  = 500
	defaultPullPageLimit = 100
)

// syncService is the concrete implementation of SyncService.
//
// All mutation processing for one owner runs inside that owner's actor
// turn (see [OwnerActor]): Push hands the heavy lifting to the actor as a
// task, which also gives the fan-out events their commit order for free.
// Pull is read-only and runs concurrently without the actor.
//
// The service additionally owns the server-assigned stream clock: every
// accepted change receives an updated_at strictly greater than anything
// previously assigned to the same owner, so the (updated_at, id) pull
// cursor never runs backwards even when the wall clock steps.
type syncService struct {
	syncRepository store.SyncRepository
	actor          OwnerActor
	validator      validators.Validator

	maxBatchSize  int
	pullPageLimit int

	logger *logger.Logger

	// clock is indirected for tests; production always ticks time.Now.
	clock func() time.Time

	mu           sync.Mutex
	lastAssigned map[int64]time.Time
}

// NewSyncService constructs the server-side sync core. Zero config values
// fall back to built-in limits.
func NewSyncService(syncRepository store.SyncRepository, actor OwnerActor, validator validators.Validator, cfg config.Sync, logger *logger.Logger) SyncService {
	maxBatchSize := cfg.MaxBatchSize
	if maxBatchSize <= 0 {
		maxBatchSize = defaultMaxBatchSize
	}

	pullPageLimit := cfg.PullPageLimit
	if pullPageLimit <= 0 {
		pullPageLimit = defaultPullPageLimit
	}

	return &syncService{
		syncRepository: syncRepository,
		actor:          actor,
		validator:      validator,
		maxBatchSize:   maxBatchSize,
		pullPageLimit:  pullPageLimit,
		logger:         logger,
		clock:          time.Now,
		lastAssigned:   make(map[int64]time.Time),
	}
}

// Push implements SyncService.
//
// Batch-level refusals happen before the actor is involved: an empty
// batch (ErrInvalidRequest), an oversized one (ErrBatchTooLarge, the batch
// is never truncated) or an undecodable checkpoint (ErrCheckpointUnknown).
// Everything else runs serialized on the owner's actor; the returned
// events are fanned out to the owner's other sessions by the actor itself.
func (s *syncService) Push(ctx context.Context, ownerID int64, sessionID string, request models.PushRequest) (models.PushResponse, error) {
	log := logger.FromContext(ctx)

	if len(request.Changes) == 0 {
		return models.PushResponse{}, fmt.Errorf("%w: %w", ErrInvalidRequest, validators.ErrEmptyChanges)
	}

	if len(request.Changes) > s.maxBatchSize {
		log.Warn().
			Str("func", "syncService.Push").
			Int64("owner_id", ownerID).
			Int("batch_size", len(request.Changes)).
			Int("max_batch_size", s.maxBatchSize).
			Msg("refusing oversized push batch")
		return models.PushResponse{}, fmt.Errorf("%w: %d changes, limit is %d", ErrBatchTooLarge, len(request.Changes), s.maxBatchSize)
	}

	sincePos, err := request.Since.Position()
	if err != nil {
		log.Warn().
			Str("func", "syncService.Push").
			Int64("owner_id", ownerID).
			Msg("push with unrecognized checkpoint")
		return models.PushResponse{}, fmt.Errorf("%w: %w", ErrCheckpointUnknown, err)
	}

	var response models.PushResponse

	err = s.actor.Execute(ctx, ownerID, sessionID, func(taskCtx context.Context) ([]models.Event, error) {
		processed, events, processErr := s.processPush(taskCtx, ownerID, sincePos, request)
		if processErr != nil {
			return nil, processErr
		}

		response = processed
		return events, nil
	})
	if err != nil {
		return models.PushResponse{}, err
	}

	log.Info().
		Str("func", "syncService.Push").
		Int64("owner_id", ownerID).
		Int("accepted", len(response.Accepted)).
		Int("conflicts", len(response.Conflicts)).
		Int("rejected", len(response.Rejected)).
		Msg("push batch processed")

	return response, nil
}

// processPush runs inside the owner's actor turn and gives every change in
// the batch exactly one verdict: accepted, conflict or rejected.
//
// Verdict precedence per change:
//  1. In-batch duplicate of an already-verdicted change id → first verdict
//     stands, the duplicate is skipped. Changes without an id are never
//     deduplicated against each other; each one is rejected on its own.
//  2. Change id present in the ledger → replay; the recorded verdict is
//     returned with no side effects.
//  3. Shape validation failure → rejected (terminal for this change only,
//     siblings continue).
//  4. No current row, or baseSyncVersion equals the current syncVersion →
//     accepted without resolution.
//  5. baseSyncVersion equals the version the entity had before this batch
//     and the batch itself has advanced the entity since → accepted on top
//     of the sibling's write. Edits queued offline against one entity can
//     all carry the version the device last saw; without this rule every
//     edit after the first would resolve against its own predecessor and
//     lose to the predecessor's server-assigned timestamp.
//  6. Otherwise the shared resolver decides; the loser of a conflict is
//     reported together with the winning server state.
//
// Accepted changes become visible to later changes of the same batch
// through the in-memory current map, so a device pushing two edits of one
// entity in order gets both accepted with consecutive versions.
func (s *syncService) processPush(ctx context.Context, ownerID int64, sincePos models.StreamPosition, request models.PushRequest) (models.PushResponse, []models.Event, error) {
	log := logger.FromContext(ctx)

	changeIDs := make([]string, 0, len(request.Changes))
	entityIDs := make([]string, 0, len(request.Changes))
	seenChangeIDs := make(map[string]struct{}, len(request.Changes))
	seenEntityIDs := make(map[string]struct{}, len(request.Changes))

	for _, change := range request.Changes {
		if _, seen := seenChangeIDs[change.ChangeID]; !seen && change.ChangeID != "" {
			seenChangeIDs[change.ChangeID] = struct{}{}
			changeIDs = append(changeIDs, change.ChangeID)
		}
		if _, seen := seenEntityIDs[change.EntityID]; !seen && change.EntityID != "" {
			seenEntityIDs[change.EntityID] = struct{}{}
			entityIDs = append(entityIDs, change.EntityID)
		}
	}

	recorded, err := s.syncRepository.GetChangeOutcomes(ctx, ownerID, changeIDs)
	if err != nil {
		return models.PushResponse{}, nil, err
	}
	ledger := make(map[string]models.ChangeOutcome, len(recorded))
	for _, outcome := range recorded {
		ledger[outcome.ChangeID] = outcome
	}

	existing, err := s.syncRepository.GetEntities(ctx, ownerID, entityIDs)
	if err != nil {
		return models.PushResponse{}, nil, err
	}
	current := make(map[string]models.SyncedEntity, len(existing))
	// baseline holds the pre-batch versions; an entity missing here had no
	// row before this batch, which reads as version 0.
	baseline := make(map[string]int64, len(existing))
	for _, entity := range existing {
		current[entity.ID] = entity
		baseline[entity.ID] = entity.SyncVersion
	}

	// Captured before the batch writes anything: decides below whether the
	// response checkpoint may move past the batch's own rows.
	maxPos, err := s.syncRepository.MaxStreamPosition(ctx, ownerID)
	if err != nil {
		return models.PushResponse{}, nil, err
	}

	var (
		toWrite     []models.SyncedEntity
		outcomes    []models.ChangeOutcome
		events      []models.Event
		lastWritten models.StreamPosition
	)

	response := models.PushResponse{Accepted: make([]string, 0, len(request.Changes))}
	verdicted := make(map[string]struct{}, len(request.Changes))

	accept := func(change models.Change, currentVersion int64) {
		entity := s.buildAcceptedEntity(ownerID, change, currentVersion, maxPos.UpdatedAt)

		current[entity.ID] = entity
		toWrite = append(toWrite, entity)
		outcomes = append(outcomes, models.ChangeOutcome{
			OwnerID:     ownerID,
			ChangeID:    change.ChangeID,
			EntityID:    change.EntityID,
			Outcome:     models.OutcomeAccepted,
			SyncVersion: entity.SyncVersion,
		})
		response.Accepted = append(response.Accepted, change.ChangeID)
		events = append(events, models.NewEntityEvent(entity))
		lastWritten = models.StreamPosition{UpdatedAt: entity.UpdatedAt, ID: entity.ID}
	}

	conflict := func(change models.Change, winner models.SyncedEntity) {
		outcomes = append(outcomes, models.ChangeOutcome{
			OwnerID:     ownerID,
			ChangeID:    change.ChangeID,
			EntityID:    change.EntityID,
			Outcome:     models.OutcomeConflict,
			SyncVersion: winner.SyncVersion,
		})
		response.Conflicts = append(response.Conflicts, models.ConflictEntry{
			ChangeID:     change.ChangeID,
			ServerEntity: winner,
		})
	}

	// ── Verdict pass: one outcome per change, in batch order ────────────────
	for _, change := range request.Changes {
		if err := ctx.Err(); err != nil {
			return models.PushResponse{}, nil, err
		}

		if change.ChangeID != "" {
			if _, done := verdicted[change.ChangeID]; done {
				log.Debug().
					Str("func", "syncService.processPush").
					Str("change_id", change.ChangeID).
					Msg("skipping in-batch duplicate change id")
				continue
			}
			verdicted[change.ChangeID] = struct{}{}
		}

		if outcome, replayed := ledger[change.ChangeID]; replayed {
			// Replay: return the recorded verdict, touch nothing.
			switch outcome.Outcome {
			case models.OutcomeConflict:
				response.Conflicts = append(response.Conflicts, models.ConflictEntry{
					ChangeID:     change.ChangeID,
					ServerEntity: current[outcome.EntityID],
				})
			default:
				response.Accepted = append(response.Accepted, change.ChangeID)
			}
			continue
		}

		if validationErr := s.validator.Validate(ctx, change); validationErr != nil {
			response.Rejected = append(response.Rejected, models.RejectedChange{
				ChangeID: change.ChangeID,
				Reason:   validationErr.Error(),
			})
			continue
		}

		serverEntity, exists := current[change.EntityID]

		switch {
		case !exists:
			// First write for this entity id, nothing to conflict with.
			// A delete for an id the server never saw creates the
			// tombstone, so other devices still learn about it.
			accept(change, 0)

		case change.BaseSyncVersion == serverEntity.SyncVersion:
			// The change was based on the entity's current version.
			accept(change, serverEntity.SyncVersion)

		case serverEntity.SyncVersion > baseline[change.EntityID] && change.BaseSyncVersion == baseline[change.EntityID]:
			// The entity moved, but only by this batch's own writes, and
			// the change is based on the pre-batch version: a later edit
			// from the same queue. Fast-forward onto the sibling's write
			// instead of resolving against it.
			accept(change, serverEntity.SyncVersion)

		default:
			// Concurrent history: both sides wrote since the change's
			// base version. The shared resolver decides.
			if resolve.Resolve(change, serverEntity) == resolve.WinnerLocal {
				accept(change, serverEntity.SyncVersion)
			} else {
				conflict(change, serverEntity)
			}
		}
	}

	if err := s.syncRepository.ApplyChanges(ctx, ownerID, toWrite, outcomes); err != nil {
		return models.PushResponse{}, nil, err
	}

	// ── Checkpoint advancement ──────────────────────────────────────────────
	// Advance past the batch's own writes only when the owner's stream held
	// nothing beyond the client's checkpoint; otherwise echo Since so the
	// client pulls first. Rows are never skipped either way.
	response.NewCheckpoint = request.Since
	if !maxPos.After(sincePos) && !lastWritten.Zero() {
		response.NewCheckpoint = models.NewSyncCheckpoint(lastWritten)
	}

	return response, events, nil
}

// Pull implements SyncService. Read-only; runs outside the owner actor.
func (s *syncService) Pull(ctx context.Context, ownerID int64, request models.PullRequest) (models.PullResponse, error) {
	log := logger.FromContext(ctx)

	if err := s.validator.Validate(ctx, request); err != nil {
		return models.PullResponse{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	sincePos, err := request.Since.Position()
	if err != nil {
		log.Warn().
			Str("func", "syncService.Pull").
			Int64("owner_id", ownerID).
			Msg("pull with unrecognized checkpoint")
		return models.PullResponse{}, fmt.Errorf("%w: %w", ErrCheckpointUnknown, err)
	}

	limit := s.pullPageLimit
	if request.Limit > 0 && request.Limit < limit {
		limit = request.Limit
	}

	entities, err := s.syncRepository.ListEntitiesSince(ctx, ownerID, sincePos, request.EntityTypes, limit)
	if err != nil {
		return models.PullResponse{}, err
	}

	response := models.PullResponse{
		Entities:      entities,
		NewCheckpoint: request.Since,
		Length:        len(entities),
	}

	// An empty page keeps the cursor in place; otherwise it addresses the
	// last returned row so the next pull resumes exactly there.
	if len(entities) > 0 {
		last := entities[len(entities)-1]
		response.NewCheckpoint = models.NewSyncCheckpoint(models.StreamPosition{
			UpdatedAt: last.UpdatedAt,
			ID:        last.ID,
		})
	}

	log.Debug().
		Str("func", "syncService.Pull").
		Int64("owner_id", ownerID).
		Int("entities", len(entities)).
		Int("limit", limit).
		Msg("pull page served")

	return response, nil
}

// buildAcceptedEntity materializes the server state an accepted change
// produces. The entity receives the owner's next stream timestamp and the
// incremented version; a delete clears the payload and stamps DeletedAt
// with the same assigned timestamp.
func (s *syncService) buildAcceptedEntity(ownerID int64, change models.Change, currentVersion int64, floor time.Time) models.SyncedEntity {
	assignedAt := s.nextTimestamp(ownerID, floor)

	entity := models.SyncedEntity{
		ID:          change.EntityID,
		EntityType:  change.EntityType,
		OwnerID:     ownerID,
		UpdatedAt:   assignedAt,
		SyncVersion: currentVersion + 1,
		ChangeID:    change.ChangeID,
	}

	if change.Op == models.OpDelete {
		entity.DeletedAt = &assignedAt
	} else {
		entity.Payload = change.Payload
	}

	return entity
}

// nextTimestamp hands out the owner's next server-assigned stream
// timestamp: strictly after everything this process assigned to the owner
// so far and strictly after floor (the owner's persisted stream maximum).
// Truncated to microseconds to match the database column resolution, so
// the value read back by a pull equals the value assigned here.
func (s *syncService) nextTimestamp(ownerID int64, floor time.Time) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	candidate := s.clock().UTC().Truncate(time.Microsecond)

	if last, ok := s.lastAssigned[ownerID]; ok && !candidate.After(last) {
		candidate = last.Add(time.Microsecond)
	}
	if !candidate.After(floor) {
		candidate = floor.Add(time.Microsecond)
	}

	s.lastAssigned[ownerID] = candidate
	return candidate
}
