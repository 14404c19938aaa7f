package http

import (
	"encoding/json"
	"net/http"

	"github.com/MKhiriev/go-practice-sync/internal/app"
	"github.com/MKhiriev/go-practice-sync/internal/logger"
	"github.com/MKhiriev/go-practice-sync/internal/utils"
	"github.com/MKhiriev/go-practice-sync/models"
)

func (h *Handler) push(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	ownerID, found := utils.GetOwnerIDFromContext(ctx)
	if !found {
		log.Error().Str("func", "*Handler.push").Msg("no owner ID in request context")
		writeError(w, app.MsgUnauthorized, http.StatusUnauthorized)
		return
	}
	sessionID, _ := utils.GetSessionIDFromContext(ctx)

	var request models.PushRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		log.Err(err).Str("func", "*Handler.push").Msg("invalid JSON was passed")
		writeError(w, app.MsgInvalidJSONProvided, http.StatusBadRequest)
		return
	}

	response, err := h.services.SyncService.Push(ctx, ownerID, sessionID, request)
	if err != nil {
		log.Err(err).Str("func", "*Handler.push").
			Int("changes", len(request.Changes)).
			Msg("push batch refused")
		writeError(w, err.Error(), statusFromError(err))
		return
	}

	utils.WriteJSON(w, response, http.StatusOK)
}

func (h *Handler) pull(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	ownerID, found := utils.GetOwnerIDFromContext(ctx)
	if !found {
		log.Error().Str("func", "*Handler.pull").Msg("no owner ID in request context")
		writeError(w, app.MsgUnauthorized, http.StatusUnauthorized)
		return
	}

	var request models.PullRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		log.Err(err).Str("func", "*Handler.pull").Msg("invalid JSON was passed")
		writeError(w, app.MsgInvalidJSONProvided, http.StatusBadRequest)
		return
	}

	// Checkpoints issued for a type-filtered pull address the filtered
	// stream only; replaying one on an unfiltered pull skips rows. The
	// bundled agent always pulls unfiltered.
	response, err := h.services.SyncService.Pull(ctx, ownerID, request)
	if err != nil {
		log.Err(err).Str("func", "*Handler.pull").Msg("pull refused")
		writeError(w, err.Error(), statusFromError(err))
		return
	}

	utils.WriteJSON(w, response, http.StatusOK)
}
