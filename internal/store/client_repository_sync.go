package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/MKhiriev/go-practice-sync/internal/logger"
	"github.com/MKhiriev/go-practice-sync/models"
)

type localSyncRepository struct {
	*DB
	logger *logger.Logger
}

func NewLocalSyncRepository(db *DB, logger *logger.Logger) LocalSyncRepository {
	return &localSyncRepository{
		DB:     db,
		logger: logger,
	}
}

func (l *localSyncRepository) ApplyChange(ctx context.Context, entity models.SyncedEntity, change models.Change) error {
	log := logger.FromContext(ctx)

	tx, err := l.DB.BeginTx(ctx, nil)
	if err != nil {
		log.Err(err).
			Str("func", "localSyncRepository.ApplyChange").
			Str("change_id", change.ChangeID).
			Msg("failed to begin local transaction")
		return fmt.Errorf("failed to begin local transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, upsertLocalEntity,
		entity.ID,
		entity.EntityType,
		[]byte(entity.Payload),
		entity.UpdatedAt,
		entity.SyncVersion,
		entity.DeletedAt,
		entity.ChangeID,
	)
	if err != nil {
		log.Err(err).
			Str("func", "localSyncRepository.ApplyChange").
			Str("entity_id", entity.ID).
			Msg("failed to upsert local entity")
		return fmt.Errorf("failed to upsert local entity (id=%s): %w", entity.ID, err)
	}

	_, err = tx.ExecContext(ctx, enqueueOutboxChange,
		change.ChangeID,
		change.EntityID,
		change.EntityType,
		change.Op,
		[]byte(change.Payload),
		change.ClientTimestamp,
		change.BaseSyncVersion,
	)
	if err != nil {
		log.Err(err).
			Str("func", "localSyncRepository.ApplyChange").
			Str("change_id", change.ChangeID).
			Msg("failed to enqueue outbox change")
		return fmt.Errorf("failed to enqueue outbox change (change_id=%s): %w", change.ChangeID, err)
	}

	if commitErr := tx.Commit(); commitErr != nil {
		log.Err(commitErr).
			Str("func", "localSyncRepository.ApplyChange").
			Str("change_id", change.ChangeID).
			Msg("failed to commit local transaction")
		return fmt.Errorf("failed to commit local transaction: %w", commitErr)
	}

	return nil
}

func (l *localSyncRepository) ApplyServerEntity(ctx context.Context, entity models.SyncedEntity) error {
	log := logger.FromContext(ctx)

	_, err := l.DB.ExecContext(ctx, upsertLocalEntity,
		entity.ID,
		entity.EntityType,
		[]byte(entity.Payload),
		entity.UpdatedAt,
		entity.SyncVersion,
		entity.DeletedAt,
		entity.ChangeID,
	)
	if err != nil {
		log.Err(err).
			Str("func", "localSyncRepository.ApplyServerEntity").
			Str("entity_id", entity.ID).
			Msg("failed to apply server entity")
		return fmt.Errorf("failed to apply server entity (id=%s): %w", entity.ID, err)
	}

	return nil
}

func (l *localSyncRepository) GetEntity(ctx context.Context, entityID string) (models.EntitySnapshot, error) {
	log := logger.FromContext(ctx)

	row := l.DB.QueryRowContext(ctx, getLocalEntity, entityID)
	if row.Err() != nil {
		err := row.Err()
		log.Err(err).
			Str("func", "localSyncRepository.GetEntity").
			Str("entity_id", entityID).
			Msg("failed to execute query for getting local entity")
		return models.EntitySnapshot{}, fmt.Errorf("failed to query local entity: %w", err)
	}

	var snapshot models.EntitySnapshot
	var payload []byte

	scanErr := row.Scan(
		&snapshot.ID,
		&snapshot.EntityType,
		&payload,
		&snapshot.UpdatedAt,
		&snapshot.SyncVersion,
		&snapshot.DeletedAt,
		&snapshot.ChangeID,
		&snapshot.Pending,
	)
	if scanErr != nil {
		if errors.Is(scanErr, sql.ErrNoRows) {
			return models.EntitySnapshot{}, ErrEntityNotFound
		}

		log.Err(scanErr).
			Str("func", "localSyncRepository.GetEntity").
			Str("entity_id", entityID).
			Msg("failed to scan local entity row")
		return models.EntitySnapshot{}, fmt.Errorf("failed to scan local entity row: %w", scanErr)
	}

	snapshot.Payload = payload

	return snapshot, nil
}

func (l *localSyncRepository) ListEntities(ctx context.Context, filter models.ReadFilter) ([]models.EntitySnapshot, error) {
	log := logger.FromContext(ctx)

	query, args := buildListLocalEntitiesQuery(filter)

	rows, err := l.DB.QueryContext(ctx, query, args...)
	if err != nil {
		log.Err(err).
			Str("func", "localSyncRepository.ListEntities").
			Msg("failed to execute query for listing local entities")
		return nil, fmt.Errorf("failed to query local entities: %w", err)
	}
	defer rows.Close()

	var snapshots []models.EntitySnapshot

	for rows.Next() {
		var snapshot models.EntitySnapshot
		var payload []byte

		scanErr := rows.Scan(
			&snapshot.ID,
			&snapshot.EntityType,
			&payload,
			&snapshot.UpdatedAt,
			&snapshot.SyncVersion,
			&snapshot.DeletedAt,
			&snapshot.ChangeID,
			&snapshot.Pending,
		)
		if scanErr != nil {
			log.Err(scanErr).
				Str("func", "localSyncRepository.ListEntities").
				Msg("failed to scan local entity row")
			return nil, fmt.Errorf("failed to scan local entity row: %w", scanErr)
		}

		snapshot.Payload = payload
		snapshots = append(snapshots, snapshot)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		log.Err(rowsErr).
			Str("func", "localSyncRepository.ListEntities").
			Msg("error occurred during rows iteration")
		return nil, fmt.Errorf("error iterating local entity rows: %w", rowsErr)
	}

	return snapshots, nil
}

func (l *localSyncRepository) ListPendingChanges(ctx context.Context, entityID string) ([]models.Change, error) {
	log := logger.FromContext(ctx)

	rows, err := l.DB.QueryContext(ctx, getPendingChangesForEntity, entityID)
	if err != nil {
		log.Err(err).
			Str("func", "localSyncRepository.ListPendingChanges").
			Str("entity_id", entityID).
			Msg("failed to execute query for listing pending changes")
		return nil, fmt.Errorf("failed to query pending changes: %w", err)
	}
	defer rows.Close()

	return scanOutboxChanges(log, rows)
}

func (l *localSyncRepository) NextOutboxBatch(ctx context.Context, limit int) ([]models.Change, error) {
	log := logger.FromContext(ctx)

	rows, err := l.DB.QueryContext(ctx, getNextOutboxBatch, limit)
	if err != nil {
		log.Err(err).
			Str("func", "localSyncRepository.NextOutboxBatch").
			Int("limit", limit).
			Msg("failed to execute query for next outbox batch")
		return nil, fmt.Errorf("failed to query next outbox batch: %w", err)
	}
	defer rows.Close()

	return scanOutboxChanges(log, rows)
}

func (l *localSyncRepository) RemoveOutboxChanges(ctx context.Context, changeIDs []string) error {
	log := logger.FromContext(ctx)

	if len(changeIDs) == 0 {
		return nil
	}

	query, args := buildRemoveOutboxChangesQuery(changeIDs)

	result, err := l.DB.ExecContext(ctx, query, args...)
	if err != nil {
		log.Err(err).
			Str("func", "localSyncRepository.RemoveOutboxChanges").
			Int("change ids count", len(changeIDs)).
			Msg("failed to execute delete for acknowledged changes")
		return fmt.Errorf("failed to remove outbox changes: %w", err)
	}

	removed, _ := result.RowsAffected()
	log.Debug().
		Str("func", "localSyncRepository.RemoveOutboxChanges").
		Int("requested", len(changeIDs)).
		Int64("removed", removed).
		Msg("removed acknowledged changes from outbox")

	return nil
}

func (l *localSyncRepository) OutboxLen(ctx context.Context) (int, error) {
	log := logger.FromContext(ctx)

	var count int
	if err := l.DB.QueryRowContext(ctx, countOutboxChanges).Scan(&count); err != nil {
		log.Err(err).
			Str("func", "localSyncRepository.OutboxLen").
			Msg("failed to count outbox changes")
		return 0, fmt.Errorf("failed to count outbox changes: %w", err)
	}

	return count, nil
}

func (l *localSyncRepository) GetCheckpoint(ctx context.Context) (models.SyncCheckpoint, error) {
	log := logger.FromContext(ctx)

	var checkpoint string
	if err := l.DB.QueryRowContext(ctx, getLocalCheckpoint).Scan(&checkpoint); err != nil {
		// a missing singleton row behaves like a device that never synced
		if errors.Is(err, sql.ErrNoRows) {
			log.Warn().
				Str("func", "localSyncRepository.GetCheckpoint").
				Msg("sync_state row is missing, treating checkpoint as empty")
			return "", nil
		}

		log.Err(err).
			Str("func", "localSyncRepository.GetCheckpoint").
			Msg("failed to read checkpoint")
		return "", fmt.Errorf("failed to read checkpoint: %w", err)
	}

	return models.SyncCheckpoint(checkpoint), nil
}

func (l *localSyncRepository) SetCheckpoint(ctx context.Context, checkpoint models.SyncCheckpoint) error {
	log := logger.FromContext(ctx)

	result, err := l.DB.ExecContext(ctx, setLocalCheckpoint, checkpoint.String())
	if err != nil {
		log.Err(err).
			Str("func", "localSyncRepository.SetCheckpoint").
			Str("checkpoint", checkpoint.String()).
			Msg("failed to execute checkpoint update")
		return fmt.Errorf("failed to update checkpoint: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		log.Err(err).
			Str("func", "localSyncRepository.SetCheckpoint").
			Msg("failed to get rows affected after checkpoint update")
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		log.Warn().
			Str("func", "localSyncRepository.SetCheckpoint").
			Msg("no rows affected during checkpoint update: sync_state row not found")
		return ErrCheckpointNotSaved
	}

	return nil
}

// scanOutboxChanges reads outbox rows in the shared column order. The
// payload goes through a plain byte slice so that a NULL column (a delete
// recorded without a body) scans cleanly.
func scanOutboxChanges(log *logger.Logger, rows *sql.Rows) ([]models.Change, error) {
	var changes []models.Change

	for rows.Next() {
		var change models.Change
		var payload []byte

		scanErr := rows.Scan(
			&change.ChangeID,
			&change.EntityID,
			&change.EntityType,
			&change.Op,
			&payload,
			&change.ClientTimestamp,
			&change.BaseSyncVersion,
		)
		if scanErr != nil {
			log.Err(scanErr).
				Str("func", "scanOutboxChanges").
				Msg("failed to scan outbox row")
			return nil, fmt.Errorf("failed to scan outbox row: %w", scanErr)
		}

		change.Payload = payload
		changes = append(changes, change)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		log.Err(rowsErr).
			Str("func", "scanOutboxChanges").
			Msg("error occurred during rows iteration")
		return nil, fmt.Errorf("error iterating outbox rows: %w", rowsErr)
	}

	return changes, nil
}
