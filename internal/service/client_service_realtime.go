// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/sethvargo/go-retry"

	"github.com/MKhiriev/go-practice-sync/internal/adapter"
	"github.com/MKhiriev/go-practice-sync/internal/config"
	"github.com/MKhiriev/go-practice-sync/internal/logger"
	"github.com/MKhiriev/go-practice-sync/models"
)

const (
	dialTimeout       = 10 * time.Second
	frameWriteTimeout = 10 * time.Second

	keepaliveInterval = 30 * time.Second
	keepaliveTimeout  = 10 * time.Second
)

// realtimeState names the connection lifecycle phases, mostly for logs and
// tests. Transitions: disconnected → connecting → connected, then
// reconnecting ↔ connected until the context ends.
type realtimeState string

const (
	stateDisconnected realtimeState = "disconnected"
	stateConnecting   realtimeState = "connecting"
	stateConnected    realtimeState = "connected"
	stateReconnecting realtimeState = "reconnecting"
)

type dialFunc func(ctx context.Context, u string, opts *websocket.DialOptions) (*websocket.Conn, *http.Response, error)

// realtimeService keeps a live websocket to the server so remote changes
// land on the device within moments instead of waiting for the next
// periodic cycle. The channel is an accelerator only: every piece of state
// it delivers is also reachable through pull, so losing the connection
// never loses data.
type realtimeService struct {
	adapter     adapter.ServerAdapter
	localStore  LocalStoreService
	syncService ClientSyncService

	retryWaitMin       time.Duration
	retryWaitMax       time.Duration
	retryJitterPercent uint64

	logger *logger.Logger

	// dial is indirected for tests; production always dials websocket.Dial.
	dial dialFunc

	mu    sync.RWMutex
	state realtimeState
}

// NewRealtimeService constructs the realtime channel worker. Zero backoff
// config falls back to the same defaults as the periodic job.
func NewRealtimeService(serverAdapter adapter.ServerAdapter, localStore LocalStoreService, syncService ClientSyncService, cfg config.ClientWorkers, logger *logger.Logger) *realtimeService {
	retryWaitMin := cfg.RetryWaitMin
	if retryWaitMin <= 0 {
		retryWaitMin = defaultRetryWaitMin
	}

	retryWaitMax := cfg.RetryWaitMax
	if retryWaitMax <= 0 {
		retryWaitMax = defaultRetryWaitMax
	}

	retryJitterPercent := cfg.RetryJitterPercent
	if retryJitterPercent == 0 {
		retryJitterPercent = defaultRetryJitterPercent
	}

	return &realtimeService{
		adapter:            serverAdapter,
		localStore:         localStore,
		syncService:        syncService,
		retryWaitMin:       retryWaitMin,
		retryWaitMax:       retryWaitMax,
		retryJitterPercent: retryJitterPercent,
		logger:             logger,
		dial:               websocket.Dial,
		state:              stateDisconnected,
	}
}

// Run blocks until ctx is cancelled, keeping the connection alive through
// dial failures and drops with capped exponential backoff.
func (s *realtimeService) Run(ctx context.Context) {
	defer s.setState(stateDisconnected)

	first := true
	for ctx.Err() == nil {
		if first {
			s.setState(stateConnecting)
		} else {
			s.setState(stateReconnecting)
		}

		conn, err := s.dialWithBackoff(ctx)
		if err != nil {
			// бэкофф прерывается только отменой контекста
			return
		}
		s.setState(stateConnected)
		s.logger.Debug().Msg("realtime channel connected")

		s.catchUp(ctx, conn, first)
		first = false

		s.serve(ctx, conn)
		_ = conn.CloseNow()
	}
}

// State reports the current connection phase.
func (s *realtimeService) State() realtimeState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *realtimeService) setState(state realtimeState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// dialWithBackoff retries the dial until it succeeds or ctx is cancelled.
func (s *realtimeService) dialWithBackoff(ctx context.Context) (*websocket.Conn, error) {
	backoff := retryBackoff(s.retryWaitMin, s.retryWaitMax, s.retryJitterPercent)

	var conn *websocket.Conn
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		dialed, err := s.connect(ctx)
		if err != nil {
			s.logger.Debug().Err(err).Msg("realtime dial failed, backing off")
			return retry.RetryableError(err)
		}
		conn = dialed
		return nil
	})
	if err != nil {
		return nil, err
	}

	return conn, nil
}

func (s *realtimeService) connect(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	if token := s.adapter.Token(); token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	if sessionID := s.adapter.SessionID(); sessionID != "" {
		header.Set("X-Session-ID", sessionID)
	}

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	conn, _, err := s.dial(dialCtx, s.adapter.RealtimeEndpoint(), &websocket.DialOptions{HTTPHeader: header})
	return conn, err
}

// catchUp closes the gap between the stored checkpoint and the events the
// fresh connection will deliver. The first connection of the process runs a
// paged pull over HTTP, which handles a backlog of any size. Reconnects ask
// the server to replay the gap over the socket instead; the closing ack
// advances the checkpoint.
func (s *realtimeService) catchUp(ctx context.Context, conn *websocket.Conn, first bool) {
	if first {
		if err := s.syncService.PullChanges(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("initial catch-up pull failed, periodic sync will cover")
		}
		return
	}

	since, err := s.localStore.Checkpoint(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("cannot load checkpoint for replay request")
		return
	}

	writeCtx, cancel := context.WithTimeout(ctx, frameWriteTimeout)
	defer cancel()
	if err := wsjson.Write(writeCtx, conn, models.Event{Type: models.EventSyncRequest, Since: since}); err != nil {
		s.logger.Warn().Err(err).Msg("replay request failed, periodic sync will cover")
	}
}

// serve consumes frames until the connection dies or ctx ends. A keepalive
// pinger runs alongside so half-dead connections are noticed within a ping
// interval instead of a TCP timeout.
func (s *realtimeService) serve(ctx context.Context, conn *websocket.Conn) {
	pingCtx, stopPing := context.WithCancel(ctx)
	defer stopPing()
	go s.keepalive(pingCtx, conn)

	for {
		var event models.Event
		if err := wsjson.Read(ctx, conn, &event); err != nil {
			if ctx.Err() != nil {
				return
			}
			if websocket.CloseStatus(err) == websocket.StatusGoingAway {
				s.logger.Warn().Msg("realtime session superseded by another connection")
			} else {
				s.logger.Debug().Err(err).Msg("realtime connection lost")
			}
			return
		}

		s.handleEvent(ctx, event)
	}
}

func (s *realtimeService) keepalive(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(keepaliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, keepaliveTimeout)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				// обрыв заметит и read loop, просто перестаём пинговать
				return
			}
		}
	}
}

// handleEvent folds one server frame into local state. Live events never
// advance the checkpoint: the cursor only moves through pull pages and
// replay acks, both of which guarantee nothing in between was skipped.
func (s *realtimeService) handleEvent(ctx context.Context, event models.Event) {
	switch event.Type {
	case models.EventEntityUpserted:
		if event.Entity == nil {
			return
		}
		if err := s.localStore.Reconcile(ctx, []models.SyncedEntity{*event.Entity}, ""); err != nil {
			s.logger.Warn().Err(err).Str("entity_id", event.Entity.ID).Msg("cannot reconcile live upsert")
		}

	case models.EventEntityDeleted:
		// кадр несёт только идентификаторы — настоящий tombstone забираем pull'ом
		if err := s.syncService.PullChanges(ctx); err != nil {
			s.logger.Warn().Err(err).Str("entity_id", event.EntityID).Msg("cannot pull tombstone for live delete")
		}

	case models.EventSyncRequestAck:
		if err := s.localStore.Reconcile(ctx, nil, event.Checkpoint); err != nil {
			s.logger.Warn().Err(err).Msg("cannot store replayed checkpoint")
		}

	default:
		s.logger.Debug().Str("type", string(event.Type)).Msg("ignoring unexpected realtime frame")
	}
}
