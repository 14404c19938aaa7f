// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"fmt"
	"strings"

	"github.com/MKhiriev/go-practice-sync/models"
)

const (
	upsertLocalEntity = `
		INSERT INTO entities (
			id,
			entity_type,
			payload,
			updated_at,
			sync_version,
			deleted_at,
			change_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			entity_type  = excluded.entity_type,
			payload      = excluded.payload,
			updated_at   = excluded.updated_at,
			sync_version = excluded.sync_version,
			deleted_at   = excluded.deleted_at,
			change_id    = excluded.change_id;`

	// повтор того же change_id после краша — no-op, не ошибка
	enqueueOutboxChange = `
		INSERT INTO outbox (
			change_id,
			entity_id,
			entity_type,
			op,
			payload,
			client_timestamp,
			base_sync_version
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (change_id) DO NOTHING;`

	getLocalEntity = `
		SELECT
			e.id,
			e.entity_type,
			e.payload,
			e.updated_at,
			e.sync_version,
			e.deleted_at,
			e.change_id,
			EXISTS (SELECT 1 FROM outbox o WHERE o.entity_id = e.id) AS pending
		FROM entities e
		WHERE e.id = $1;`

	listLocalEntitiesBase = `
		SELECT
			e.id,
			e.entity_type,
			e.payload,
			e.updated_at,
			e.sync_version,
			e.deleted_at,
			e.change_id,
			EXISTS (SELECT 1 FROM outbox o WHERE o.entity_id = e.id) AS pending
		FROM entities e`

	getPendingChangesForEntity = `
		SELECT
			change_id,
			entity_id,
			entity_type,
			op,
			payload,
			client_timestamp,
			base_sync_version
		FROM outbox
		WHERE entity_id = $1
		ORDER BY seq;`

	getNextOutboxBatch = `
		SELECT
			change_id,
			entity_id,
			entity_type,
			op,
			payload,
			client_timestamp,
			base_sync_version
		FROM outbox
		ORDER BY seq
		LIMIT $1;`

	countOutboxChanges = `SELECT COUNT(*) FROM outbox;`

	getLocalCheckpoint = `SELECT checkpoint FROM sync_state WHERE id = 1;`

	setLocalCheckpoint = `
		UPDATE sync_state SET
			checkpoint = $1,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = 1;`
)

// buildListLocalEntitiesQuery dynamically builds the local read query
func buildListLocalEntitiesQuery(filter models.ReadFilter) (string, []any) {
	queryBuilder := new(strings.Builder)
	queryBuilder.WriteString(listLocalEntitiesBase)

	args := make([]any, 0, len(filter.EntityTypes)+1)
	whereClauses := make([]string, 0, 2)
	argIndex := 1

	// Добавляем фильтр по типам
	if len(filter.EntityTypes) > 0 {
		placeholders := make([]string, 0, len(filter.EntityTypes))
		for _, entityType := range filter.EntityTypes {
			placeholders = append(placeholders, fmt.Sprintf("$%d", argIndex))
			args = append(args, entityType)
			argIndex++
		}
		whereClauses = append(whereClauses, "e.entity_type IN ("+strings.Join(placeholders, ", ")+")")
	}

	// Скрываем удалённые записи, если не запрошено обратное
	if !filter.IncludeDeleted {
		whereClauses = append(whereClauses, "e.deleted_at IS NULL")
	}

	if len(whereClauses) > 0 {
		queryBuilder.WriteString(" WHERE ")
		queryBuilder.WriteString(strings.Join(whereClauses, " AND "))
	}

	queryBuilder.WriteString(" ORDER BY e.updated_at DESC, e.id")

	if filter.Limit > 0 {
		queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d", argIndex))
		args = append(args, filter.Limit)
	}

	return queryBuilder.String(), args
}

// buildRemoveOutboxChangesQuery dynamically builds the DELETE query for
// acknowledged changes
func buildRemoveOutboxChangesQuery(changeIDs []string) (string, []any) {
	queryBuilder := new(strings.Builder)
	queryBuilder.WriteString("DELETE FROM outbox WHERE change_id IN (")

	args := make([]any, 0, len(changeIDs))

	for idx, changeID := range changeIDs {
		if idx > 0 {
			queryBuilder.WriteString(", ")
		}
		queryBuilder.WriteString(fmt.Sprintf("$%d", idx+1))
		args = append(args, changeID)
	}

	queryBuilder.WriteString(")")

	return queryBuilder.String(), args
}
