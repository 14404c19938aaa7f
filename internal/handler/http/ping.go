package http

import (
	"net/http"

	"github.com/MKhiriev/go-practice-sync/internal/app"
	"github.com/MKhiriev/go-practice-sync/internal/logger"
)

// ping reports whether the database behind the sync store is reachable.
// Load balancers and the device agent's connectivity probe use it.
func (h *Handler) ping(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)

	if err := h.pinger.Ping(r.Context()); err != nil {
		log.Err(err).Str("func", "*Handler.ping").Msg("database is not reachable")
		writeError(w, app.MsgStorageNotReachable, http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}
