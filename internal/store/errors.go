package store

import "errors"

// Sentinel errors returned by repository methods to signal well-known failure
// conditions. Callers should use [errors.Is] to match against these values.
var (
	// ErrEntityNotFound is returned when a query targets a synced entity
	// (identified by owner_id and id) that does not exist in the database.
	ErrEntityNotFound = errors.New("sync entity was not found")

	// ErrEntityNotSaved is returned when a write of one or more entities
	// completes without error but the number of affected rows is zero,
	// indicating that nothing was actually persisted.
	ErrEntityNotSaved = errors.New("sync entity was not saved")

	// ErrCheckpointNotSaved is returned when persisting the device's
	// checkpoint affects zero rows, meaning the sync_state singleton is
	// missing and the local schema was not migrated.
	ErrCheckpointNotSaved = errors.New("sync checkpoint was not saved")

	// ErrStorageUnavailable wraps failures the [ErrorClassificator] deems
	// transient, e.g. a dropped connection or a deadlock rollback. Handlers
	// translate it into a retryable response so clients back off and try
	// the same batch again.
	ErrStorageUnavailable = errors.New("storage temporarily unavailable")
)

// Low-level database operation errors. These are returned (or wrapped) by
// repository methods when a SQL-level operation fails before any domain logic
// can be applied.
var (
	// ErrBuildingSQLQuery is returned when constructing a parameterised SQL
	// query fails (e.g. invalid argument count or unsupported type).
	ErrBuildingSQLQuery = errors.New("error building sql query")

	// ErrExecutingQuery is returned when executing a SELECT or similar
	// read-only query against the database fails.
	ErrExecutingQuery = errors.New("error executing sql query")

	// ErrBeginningTransaction is returned when the database driver cannot
	// start a new transaction.
	ErrBeginningTransaction = errors.New("failed to begin transaction")

	// ErrCommitingTransaction is returned when committing an open transaction
	// fails. The transaction is considered rolled back at this point.
	ErrCommitingTransaction = errors.New("failed to commit transaction")

	// ErrPreparingStatement is returned when a SQL statement cannot be
	// prepared (e.g. syntax error or connection issue).
	ErrPreparingStatement = errors.New("failed to prepare statement")

	// ErrExecutingStatement is returned when executing a prepared DML
	// statement (INSERT, UPDATE, DELETE) fails.
	ErrExecutingStatement = errors.New("failed to execute statement")

	// ErrScanningRow is returned when scanning column values from a single
	// result row into a destination struct fails.
	ErrScanningRow = errors.New("failed to scan entity row")

	// ErrScanningRows is returned when scanning column values during
	// multi-row iteration fails, typically mid-result-set.
	ErrScanningRows = errors.New("failed to scan entity rows")
)
