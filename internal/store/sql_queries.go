package store

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/MKhiriev/go-practice-sync/internal/logger"
	"github.com/MKhiriev/go-practice-sync/models"
)

const (
	// applySingleChangeQuery handles the common push shape (one accepted
	// change) in a single statement: the entity upsert and the ledger insert
	// run atomically without an explicit transaction. Parameters are shared
	// between the two inserts: $3 is the owner, $8 the change id and $6 the
	// assigned version.
	applySingleChangeQuery = `WITH upserted_entity AS (
		INSERT INTO sync_entities (
			id,
			entity_type,
			owner_id,
			payload,
			updated_at,
			sync_version,
			deleted_at,
			change_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (owner_id, id) DO UPDATE SET
			entity_type  = EXCLUDED.entity_type,
			payload      = EXCLUDED.payload,
			updated_at   = EXCLUDED.updated_at,
			sync_version = EXCLUDED.sync_version,
			deleted_at   = EXCLUDED.deleted_at,
			change_id    = EXCLUDED.change_id
		RETURNING id
	)
	INSERT INTO sync_changes (owner_id, change_id, entity_id, outcome, sync_version)
	SELECT $3, $8, id, $9, $6 FROM upserted_entity
	ON CONFLICT (owner_id, change_id) DO NOTHING;`

	upsertEntityQuery = `INSERT INTO sync_entities (
			id,
			entity_type,
			owner_id,
			payload,
			updated_at,
			sync_version,
			deleted_at,
			change_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (owner_id, id) DO UPDATE SET
			entity_type  = EXCLUDED.entity_type,
			payload      = EXCLUDED.payload,
			updated_at   = EXCLUDED.updated_at,
			sync_version = EXCLUDED.sync_version,
			deleted_at   = EXCLUDED.deleted_at,
			change_id    = EXCLUDED.change_id;`

	insertChangeOutcomeQuery = `INSERT INTO sync_changes (
			owner_id,
			change_id,
			entity_id,
			outcome,
			sync_version
		) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (owner_id, change_id) DO NOTHING;`

	getMaxStreamPositionQuery = `SELECT updated_at, id
		FROM sync_entities
		WHERE owner_id = $1
		ORDER BY updated_at DESC, id DESC
		LIMIT 1;`
)

// syncEntityColumns is the column order every entity SELECT and row scan in
// this package agrees on.
var syncEntityColumns = []string{
	"id",
	"entity_type",
	"owner_id",
	"payload",
	"updated_at",
	"sync_version",
	"deleted_at",
	"change_id",
}

// buildGetEntitiesQuery builds a SELECT of the owner's entity rows limited to
// the given ids. An empty id slice produces no id filter; callers that need
// "nothing" semantics for an empty batch short-circuit before building.
func buildGetEntitiesQuery(ctx context.Context, ownerID int64, entityIDs []string) (string, []any, error) {
	builder := sq.Select(syncEntityColumns...).
		From("sync_entities").
		Where(sq.Eq{"owner_id": ownerID}).
		PlaceholderFormat(sq.Dollar)

	if len(entityIDs) > 0 {
		builder = builder.Where(sq.Eq{"id": entityIDs})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		logger.FromContext(ctx).Err(err).Str("func", "buildGetEntitiesQuery").Msg("error building sql query")
		return "", nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	return query, args, nil
}

// buildListEntitiesSinceQuery builds the pull page SELECT: the owner's update
// stream strictly after the given position, ordered by (updated_at, id). The
// cursor predicate uses a row comparison so that rows sharing the boundary
// timestamp are not skipped.
func buildListEntitiesSinceQuery(ctx context.Context, ownerID int64, since models.StreamPosition, entityTypes []string, limit int) (string, []any, error) {
	builder := sq.Select(syncEntityColumns...).
		From("sync_entities").
		Where(sq.Eq{"owner_id": ownerID}).
		OrderBy("updated_at", "id").
		PlaceholderFormat(sq.Dollar)

	if !since.Zero() {
		builder = builder.Where(sq.Expr("(updated_at, id) > (?, ?)", since.UpdatedAt, since.ID))
	}
	if len(entityTypes) > 0 {
		builder = builder.Where(sq.Eq{"entity_type": entityTypes})
	}
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		logger.FromContext(ctx).Err(err).Str("func", "buildListEntitiesSinceQuery").Msg("error building sql query")
		return "", nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	return query, args, nil
}

// buildGetChangeOutcomesQuery builds a SELECT of ledger rows for the given
// change ids.
func buildGetChangeOutcomesQuery(ctx context.Context, ownerID int64, changeIDs []string) (string, []any, error) {
	builder := sq.Select("owner_id", "change_id", "entity_id", "outcome", "sync_version", "recorded_at").
		From("sync_changes").
		Where(sq.Eq{"owner_id": ownerID}).
		Where(sq.Eq{"change_id": changeIDs}).
		PlaceholderFormat(sq.Dollar)

	query, args, err := builder.ToSql()
	if err != nil {
		logger.FromContext(ctx).Err(err).Str("func", "buildGetChangeOutcomesQuery").Msg("error building sql query")
		return "", nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	return query, args, nil
}
