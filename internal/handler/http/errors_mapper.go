package http

import (
	"errors"
	"net/http"

	"github.com/MKhiriev/go-practice-sync/internal/broadcast"
	"github.com/MKhiriev/go-practice-sync/internal/service"
	"github.com/MKhiriev/go-practice-sync/internal/store"
	"github.com/MKhiriev/go-practice-sync/internal/utils"
	"github.com/MKhiriev/go-practice-sync/models"
)

// errorStatuses is matched top to bottom and the first hit wins. Order
// carries meaning: the repository wraps a retryable failure with both
// [store.ErrStorageUnavailable] and the query-level sentinel, and such a
// chain must always map to 503 so the client knows to back off and replay.
var errorStatuses = []struct {
	target error
	status int
}{
	// retryable conditions: the client backs off and replays the batch
	{store.ErrStorageUnavailable, http.StatusServiceUnavailable},
	{broadcast.ErrHubClosed, http.StatusServiceUnavailable},

	// request-level refusals
	{service.ErrInvalidRequest, http.StatusBadRequest},
	{service.ErrBatchTooLarge, http.StatusRequestEntityTooLarge},
	{service.ErrCheckpointUnknown, http.StatusUnprocessableEntity},

	// a checkpoint that never came from this server
	{models.ErrMalformedCheckpoint, http.StatusUnprocessableEntity},

	{store.ErrEntityNotFound, http.StatusNotFound},

	{store.ErrEntityNotSaved, http.StatusInternalServerError},
	{store.ErrBuildingSQLQuery, http.StatusInternalServerError},
	{store.ErrExecutingQuery, http.StatusInternalServerError},
	{store.ErrBeginningTransaction, http.StatusInternalServerError},
	{store.ErrCommitingTransaction, http.StatusInternalServerError},
	{store.ErrPreparingStatement, http.StatusInternalServerError},
	{store.ErrExecutingStatement, http.StatusInternalServerError},
	{store.ErrScanningRow, http.StatusInternalServerError},
	{store.ErrScanningRows, http.StatusInternalServerError},
}

func statusFromError(err error) int {
	for _, entry := range errorStatuses {
		if errors.Is(err, entry.target) {
			return entry.status
		}
	}
	return http.StatusInternalServerError
}

// writeError sends the standard JSON error body with the given status.
func writeError(w http.ResponseWriter, message string, statusCode int) {
	utils.WriteJSON(w, models.ErrorResponse{Error: message}, statusCode)
}
