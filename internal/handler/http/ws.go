// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package http

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"

	"github.com/MKhiriev/go-practice-sync/internal/app"
	"github.com/MKhiriev/go-practice-sync/internal/broadcast"
	"github.com/MKhiriev/go-practice-sync/internal/logger"
	"github.com/MKhiriev/go-practice-sync/internal/utils"
	"github.com/MKhiriev/go-practice-sync/models"
)

// eventWriteTimeout bounds a single frame write so one stalled connection
// cannot pin the write pump forever.
const eventWriteTimeout = 10 * time.Second

// realtime upgrades the request to a websocket and attaches the session to
// the owner's fan-out actor. Events flow server→client; the client sends
// SYNC_REQUEST frames and keepalive pings only. A reconnect with the same
// session id supersedes the previous connection.
func (h *Handler) realtime(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)

	ownerID, found := utils.GetOwnerIDFromContext(r.Context())
	if !found {
		log.Error().Str("func", "*Handler.realtime").Msg("no owner ID in request context")
		writeError(w, app.MsgUnauthorized, http.StatusUnauthorized)
		return
	}

	sessionID, _ := utils.GetSessionIDFromContext(r.Context())
	if sessionID == "" {
		// сессия без имени всё равно слушает, но не может быть инициатором
		sessionID = uuid.NewString()
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Err(err).Str("func", "*Handler.realtime").Msg("websocket upgrade failed")
		return
	}
	defer conn.CloseNow()

	session, err := h.hub.Subscribe(ownerID, sessionID)
	if err != nil {
		conn.Close(websocket.StatusTryAgainLater, "server is shutting down")
		return
	}
	defer h.hub.Unsubscribe(session)

	log.Debug().Str("func", "*Handler.realtime").
		Int64("owner_id", ownerID).
		Str("session_id", sessionID).
		Msg("realtime session connected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go func() {
		defer cancel()
		h.pumpEvents(ctx, conn, session)
	}()

	h.readFrames(ctx, conn, session)

	log.Debug().Str("func", "*Handler.realtime").
		Int64("owner_id", ownerID).
		Str("session_id", sessionID).
		Msg("realtime session closed")
}

// pumpEvents forwards the session's event stream to the connection until
// the session is released or the connection dies.
func (h *Handler) pumpEvents(ctx context.Context, conn *websocket.Conn, session *broadcast.Session) {
	for {
		select {
		case event := <-session.Events():
			writeCtx, cancel := context.WithTimeout(ctx, eventWriteTimeout)
			err := wsjson.Write(writeCtx, conn, event)
			cancel()
			if err != nil {
				return
			}
		case <-session.Done():
			conn.Close(websocket.StatusGoingAway, "session superseded")
			return
		case <-ctx.Done():
			return
		}
	}
}

// readFrames consumes client frames. Anything that is not a SYNC_REQUEST
// is ignored; ping/pong control frames are answered inside Read.
func (h *Handler) readFrames(ctx context.Context, conn *websocket.Conn, session *broadcast.Session) {
	for {
		var frame models.Event
		if err := wsjson.Read(ctx, conn, &frame); err != nil {
			return
		}

		if frame.Type != models.EventSyncRequest {
			continue
		}
		if err := h.hub.SyncRequest(session, frame.Since); err != nil {
			return
		}
	}
}
