package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/MKhiriev/go-practice-sync/internal/logger"
	"github.com/MKhiriev/go-practice-sync/models"
)

// syncRepository is the PostgreSQL-backed implementation of [SyncRepository].
// It executes all entity and ledger operations directly against the
// "sync_entities" and "sync_changes" tables using the embedded [*DB]
// connection.
//
// Every public method obtains a context-scoped logger via
// [logger.FromContext] so that all database interactions are traced
// with structured fields (owner_id, change_id, iteration index, etc.).
type syncRepository struct {
	*DB
	logger *logger.Logger
}

// NewSyncRepository constructs a [SyncRepository] backed by the provided
// database connection and logger.
//
// The logger parameter is stored for fallback logging; most methods prefer
// the context-scoped logger obtained via [logger.FromContext].
func NewSyncRepository(db *DB, logger *logger.Logger) SyncRepository {
	return &syncRepository{
		DB:     db,
		logger: logger,
	}
}

// dbError wraps err with the given sentinel. When the driver classifier
// marks err as transient, [ErrStorageUnavailable] is layered on top so that
// callers can translate the failure into a retryable response.
func (r *syncRepository) dbError(sentinel, err error) error {
	wrapped := fmt.Errorf("%w: %w", sentinel, err)
	if r.IsRetryable(err) {
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, wrapped)
	}
	return wrapped
}

// GetEntities retrieves the current rows for the given entity ids owned by
// ownerID. Ids without a matching row are silently absent from the result;
// an empty id slice short-circuits to an empty result without touching the
// database.
func (r *syncRepository) GetEntities(ctx context.Context, ownerID int64, entityIDs []string) ([]models.SyncedEntity, error) {
	log := logger.FromContext(ctx)

	if len(entityIDs) == 0 {
		return []models.SyncedEntity{}, nil
	}

	query, args, err := buildGetEntitiesQuery(ctx, ownerID, entityIDs)
	if err != nil {
		log.Err(err).
			Str("func", "syncRepository.GetEntities").
			Int64("owner_id", ownerID).
			Msg("failed to create query")
		return nil, err
	}

	rows, queryErr := r.DB.QueryContext(ctx, query, args...)
	if queryErr != nil {
		log.Err(queryErr).
			Str("func", "syncRepository.GetEntities").
			Int64("owner_id", ownerID).
			Int("entity ids count", len(entityIDs)).
			Msg("failed to execute query for getting requested entities")
		return nil, r.dbError(ErrExecutingQuery, queryErr)
	}
	defer rows.Close()

	results := make([]models.SyncedEntity, 0, 50)

	for rows.Next() {
		entity, scanErr := scanSyncedEntity(rows)
		if scanErr != nil {
			log.Err(scanErr).
				Str("func", "syncRepository.GetEntities").
				Int64("owner_id", ownerID).
				Msg("failed to scan entity row")
			return nil, fmt.Errorf("%w: %w", ErrScanningRow, scanErr)
		}

		results = append(results, entity)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		log.Err(rowsErr).
			Str("func", "syncRepository.GetEntities").
			Int64("owner_id", ownerID).
			Msg("error occurred during rows iteration")
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, rowsErr)
	}

	return results, nil
}

// ListEntitiesSince returns a page of the owner's update stream strictly
// after the given position, ordered by (updated_at, id). Soft-deleted rows
// travel with the page so that offline devices learn about deletions.
func (r *syncRepository) ListEntitiesSince(ctx context.Context, ownerID int64, since models.StreamPosition, entityTypes []string, limit int) ([]models.SyncedEntity, error) {
	log := logger.FromContext(ctx)

	query, args, err := buildListEntitiesSinceQuery(ctx, ownerID, since, entityTypes, limit)
	if err != nil {
		log.Err(err).
			Str("func", "syncRepository.ListEntitiesSince").
			Int64("owner_id", ownerID).
			Msg("failed to create query")
		return nil, err
	}

	rows, queryErr := r.DB.QueryContext(ctx, query, args...)
	if queryErr != nil {
		log.Err(queryErr).
			Str("func", "syncRepository.ListEntitiesSince").
			Int64("owner_id", ownerID).
			Time("since_updated_at", since.UpdatedAt).
			Str("since_id", since.ID).
			Msg("failed to execute query for listing entities since position")
		return nil, r.dbError(ErrExecutingQuery, queryErr)
	}
	defer rows.Close()

	results := make([]models.SyncedEntity, 0, 50)

	for rows.Next() {
		entity, scanErr := scanSyncedEntity(rows)
		if scanErr != nil {
			log.Err(scanErr).
				Str("func", "syncRepository.ListEntitiesSince").
				Int64("owner_id", ownerID).
				Msg("failed to scan entity row")
			return nil, fmt.Errorf("%w: %w", ErrScanningRow, scanErr)
		}

		results = append(results, entity)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		log.Err(rowsErr).
			Str("func", "syncRepository.ListEntitiesSince").
			Int64("owner_id", ownerID).
			Msg("error occurred during rows iteration")
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, rowsErr)
	}

	return results, nil
}

// MaxStreamPosition returns the (updated_at, id) position of the owner's
// most recently updated row. An owner with no rows yet gets the zero
// position and no error.
func (r *syncRepository) MaxStreamPosition(ctx context.Context, ownerID int64) (models.StreamPosition, error) {
	log := logger.FromContext(ctx)

	row := r.DB.QueryRowContext(ctx, getMaxStreamPositionQuery, ownerID)
	if err := row.Err(); err != nil {
		log.Err(err).
			Str("func", "syncRepository.MaxStreamPosition").
			Int64("owner_id", ownerID).
			Str("pg_code", postgresError(err)).
			Msg("failed to execute max stream position query")
		return models.StreamPosition{}, r.dbError(ErrExecutingQuery, err)
	}

	var pos models.StreamPosition
	if err := row.Scan(&pos.UpdatedAt, &pos.ID); err != nil {
		// an empty stream is a normal state for a fresh owner
		if errors.Is(err, sql.ErrNoRows) {
			return models.StreamPosition{}, nil
		}

		log.Err(err).
			Str("func", "syncRepository.MaxStreamPosition").
			Int64("owner_id", ownerID).
			Msg("failed to scan max stream position row")
		return models.StreamPosition{}, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}

	return pos, nil
}

// GetChangeOutcomes retrieves ledger rows for the given change ids. Change
// ids the server has never processed are absent from the result; an empty
// id slice short-circuits to an empty result.
func (r *syncRepository) GetChangeOutcomes(ctx context.Context, ownerID int64, changeIDs []string) ([]models.ChangeOutcome, error) {
	log := logger.FromContext(ctx)

	if len(changeIDs) == 0 {
		return []models.ChangeOutcome{}, nil
	}

	query, args, err := buildGetChangeOutcomesQuery(ctx, ownerID, changeIDs)
	if err != nil {
		log.Err(err).
			Str("func", "syncRepository.GetChangeOutcomes").
			Int64("owner_id", ownerID).
			Msg("failed to create query")
		return nil, err
	}

	rows, queryErr := r.DB.QueryContext(ctx, query, args...)
	if queryErr != nil {
		log.Err(queryErr).
			Str("func", "syncRepository.GetChangeOutcomes").
			Int64("owner_id", ownerID).
			Int("change ids count", len(changeIDs)).
			Msg("failed to execute query for getting change outcomes")
		return nil, r.dbError(ErrExecutingQuery, queryErr)
	}
	defer rows.Close()

	results := make([]models.ChangeOutcome, 0, 50)

	for rows.Next() {
		var outcome models.ChangeOutcome

		scanErr := rows.Scan(
			&outcome.OwnerID,
			&outcome.ChangeID,
			&outcome.EntityID,
			&outcome.Outcome,
			&outcome.SyncVersion,
			&outcome.RecordedAt,
		)
		if scanErr != nil {
			log.Err(scanErr).
				Str("func", "syncRepository.GetChangeOutcomes").
				Int64("owner_id", ownerID).
				Msg("failed to scan change outcome row")
			return nil, fmt.Errorf("%w: %w", ErrScanningRow, scanErr)
		}

		results = append(results, outcome)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		log.Err(rowsErr).
			Str("func", "syncRepository.GetChangeOutcomes").
			Int64("owner_id", ownerID).
			Msg("error occurred during rows iteration")
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, rowsErr)
	}

	return results, nil
}

// ApplyChanges persists the results of one processed push batch: the entity
// rows that won resolution and the ledger rows recording every verdict.
//
// Routing strategy:
//   - Nothing to write → no-op (returns nil with a warning log).
//   - Exactly one accepted change → [applySingleChange] (a single CTE
//     statement, no transaction overhead).
//   - Exactly one conflict verdict and no entity writes → [recordSingleOutcome].
//   - Anything else → [applyChangeBatch] (wrapped in a transaction with
//     prepared statements).
//
// Ledger inserts never overwrite an existing verdict: a change id already
// present in the ledger keeps its original row.
func (r *syncRepository) ApplyChanges(ctx context.Context, ownerID int64, entities []models.SyncedEntity, outcomes []models.ChangeOutcome) error {
	log := logger.FromContext(ctx)

	if len(entities) == 0 && len(outcomes) == 0 {
		log.Warn().
			Str("func", "syncRepository.ApplyChanges").
			Int64("owner_id", ownerID).
			Msg("nothing to apply")
		return nil
	}

	if len(entities) == 1 && len(outcomes) == 1 &&
		outcomes[0].ChangeID == entities[0].ChangeID &&
		outcomes[0].Outcome == models.OutcomeAccepted {
		return r.applySingleChange(ctx, ownerID, entities[0], outcomes[0])
	}

	if len(entities) == 0 && len(outcomes) == 1 {
		return r.recordSingleOutcome(ctx, ownerID, outcomes[0])
	}

	return r.applyChangeBatch(ctx, ownerID, entities, outcomes)
}

// applySingleChange persists one accepted change without opening a
// transaction: the CTE statement upserts the entity row and records the
// ledger verdict atomically.
func (r *syncRepository) applySingleChange(ctx context.Context, ownerID int64, entity models.SyncedEntity, outcome models.ChangeOutcome) error {
	log := logger.FromContext(ctx)

	log.Debug().
		Str("func", "syncRepository.applySingleChange").
		Int64("owner_id", ownerID).
		Str("entity_id", entity.ID).
		Str("change_id", entity.ChangeID).
		Msg("applying single accepted change")

	res, execErr := r.DB.ExecContext(ctx, applySingleChangeQuery,
		entity.ID,
		entity.EntityType,
		ownerID,
		[]byte(entity.Payload),
		entity.UpdatedAt,
		entity.SyncVersion,
		entity.DeletedAt,
		entity.ChangeID,
		outcome.Outcome,
	)
	if execErr != nil {
		log.Err(execErr).
			Str("func", "syncRepository.applySingleChange").
			Str("entity_id", entity.ID).
			Str("change_id", entity.ChangeID).
			Str("pg_code", postgresError(execErr)).
			Msg("failed to execute apply change query")
		return r.dbError(ErrExecutingQuery, execErr)
	}

	if affected, _ := res.RowsAffected(); affected == 0 {
		// the ledger already held this change id, the verdict stands
		log.Warn().
			Str("func", "syncRepository.applySingleChange").
			Str("change_id", entity.ChangeID).
			Msg("change already recorded in ledger")
	}

	return nil
}

// recordSingleOutcome records one ledger verdict that carries no entity
// write, i.e. a conflict whose losing change left server state untouched.
func (r *syncRepository) recordSingleOutcome(ctx context.Context, ownerID int64, outcome models.ChangeOutcome) error {
	log := logger.FromContext(ctx)

	log.Debug().
		Str("func", "syncRepository.recordSingleOutcome").
		Int64("owner_id", ownerID).
		Str("change_id", outcome.ChangeID).
		Str("outcome", outcome.Outcome).
		Msg("recording single change outcome")

	res, execErr := r.DB.ExecContext(ctx, insertChangeOutcomeQuery,
		ownerID,
		outcome.ChangeID,
		outcome.EntityID,
		outcome.Outcome,
		outcome.SyncVersion,
	)
	if execErr != nil {
		log.Err(execErr).
			Str("func", "syncRepository.recordSingleOutcome").
			Str("change_id", outcome.ChangeID).
			Str("pg_code", postgresError(execErr)).
			Msg("failed to execute outcome insert")
		return r.dbError(ErrExecutingStatement, execErr)
	}

	if affected, _ := res.RowsAffected(); affected == 0 {
		log.Warn().
			Str("func", "syncRepository.recordSingleOutcome").
			Str("change_id", outcome.ChangeID).
			Msg("change already recorded in ledger")
	}

	return nil
}

// applyChangeBatch persists two or more writes inside a single database
// transaction using prepared statements for efficiency.
//
// The two statements are prepared once ([upsertEntityQuery] and
// [insertChangeOutcomeQuery]) and reused for every row. The transaction is
// rolled back automatically (via defer) if any individual write fails; the
// commit is attempted only after all rows succeed, so a batch is either
// fully visible to pulls or not at all.
func (r *syncRepository) applyChangeBatch(ctx context.Context, ownerID int64, entities []models.SyncedEntity, outcomes []models.ChangeOutcome) error {
	log := logger.FromContext(ctx)

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		log.Err(err).
			Str("func", "syncRepository.applyChangeBatch").
			Int("entities_count", len(entities)).
			Int("outcomes_count", len(outcomes)).
			Msg("failed to begin transaction")
		return r.dbError(ErrBeginningTransaction, err)
	}
	defer tx.Rollback()

	entityStmt, err := tx.PrepareContext(ctx, upsertEntityQuery)
	if err != nil {
		log.Err(err).
			Str("func", "syncRepository.applyChangeBatch").
			Int("entities_count", len(entities)).
			Msg("failed to prepare entity upsert statement")
		return fmt.Errorf("%w: %w", ErrPreparingStatement, err)
	}
	defer entityStmt.Close()

	outcomeStmt, err := tx.PrepareContext(ctx, insertChangeOutcomeQuery)
	if err != nil {
		log.Err(err).
			Str("func", "syncRepository.applyChangeBatch").
			Int("outcomes_count", len(outcomes)).
			Msg("failed to prepare outcome insert statement")
		return fmt.Errorf("%w: %w", ErrPreparingStatement, err)
	}
	defer outcomeStmt.Close()

	for idx, entity := range entities {
		log.Debug().
			Str("func", "syncRepository.applyChangeBatch").
			Int("iteration", idx+1).
			Int("total", len(entities)).
			Str("entity_id", entity.ID).
			Msg("upserting entity in transaction")

		_, execErr := entityStmt.ExecContext(ctx,
			entity.ID,
			entity.EntityType,
			ownerID,
			[]byte(entity.Payload),
			entity.UpdatedAt,
			entity.SyncVersion,
			entity.DeletedAt,
			entity.ChangeID,
		)
		if execErr != nil {
			log.Err(execErr).
				Str("func", "syncRepository.applyChangeBatch").
				Int("iteration", idx+1).
				Str("entity_id", entity.ID).
				Str("pg_code", postgresError(execErr)).
				Msg("failed to upsert entity")
			return r.dbError(ErrExecutingStatement, execErr)
		}
	}

	for idx, outcome := range outcomes {
		log.Debug().
			Str("func", "syncRepository.applyChangeBatch").
			Int("iteration", idx+1).
			Int("total", len(outcomes)).
			Str("change_id", outcome.ChangeID).
			Str("outcome", outcome.Outcome).
			Msg("recording change outcome in transaction")

		_, execErr := outcomeStmt.ExecContext(ctx,
			ownerID,
			outcome.ChangeID,
			outcome.EntityID,
			outcome.Outcome,
			outcome.SyncVersion,
		)
		if execErr != nil {
			log.Err(execErr).
				Str("func", "syncRepository.applyChangeBatch").
				Int("iteration", idx+1).
				Str("change_id", outcome.ChangeID).
				Str("pg_code", postgresError(execErr)).
				Msg("failed to record change outcome")
			return r.dbError(ErrExecutingStatement, execErr)
		}
	}

	if commitErr := tx.Commit(); commitErr != nil {
		log.Err(commitErr).
			Str("func", "syncRepository.applyChangeBatch").
			Int("entities_count", len(entities)).
			Int("outcomes_count", len(outcomes)).
			Msg("failed to commit transaction")
		return r.dbError(ErrCommitingTransaction, commitErr)
	}

	log.Info().
		Str("func", "syncRepository.applyChangeBatch").
		Int64("owner_id", ownerID).
		Int("entities_count", len(entities)).
		Int("outcomes_count", len(outcomes)).
		Msg("successfully applied change batch")

	return nil
}

// Ping reports whether the underlying database is reachable.
func (r *syncRepository) Ping(ctx context.Context) error {
	return r.DB.PingContext(ctx)
}

// scanSyncedEntity reads one entity row in [syncEntityColumns] order. The
// payload goes through a plain byte slice so that a NULL column (a delete
// recorded without a body) scans cleanly into an empty document.
func scanSyncedEntity(rows *sql.Rows) (models.SyncedEntity, error) {
	var entity models.SyncedEntity
	var payload []byte

	scanErr := rows.Scan(
		&entity.ID,
		&entity.EntityType,
		&entity.OwnerID,
		&payload,
		&entity.UpdatedAt,
		&entity.SyncVersion,
		&entity.DeletedAt,
		&entity.ChangeID,
	)
	if scanErr != nil {
		return models.SyncedEntity{}, scanErr
	}

	entity.Payload = payload

	return entity, nil
}
