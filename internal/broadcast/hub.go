// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package broadcast serializes every owner's writes through a per-owner
// actor and fans accepted changes out to the owner's other live sessions.
//
// One goroutine per owner, spawned lazily on first use, processing its
// mailbox in order: push tasks, session subscribe/unsubscribe, checkpoint
// replays. Between two commands of one owner nothing interleaves, which is
// what makes the server's version checks and timestamp assignment safe
// without row locks. Different owners run fully in parallel. Actors with
// no queued work and no sessions retire after an idle period.
package broadcast

import (
	"context"
	"sync"
	"time"

	"github.com/MKhiriev/go-practice-sync/internal/config"
	"github.com/MKhiriev/go-practice-sync/internal/logger"
	"github.com/MKhiriev/go-practice-sync/models"
)

const (
	defaultSendBuffer = 32
	defaultIdleAfter  = 5 * time.Minute

	// replayPageLimit is the page size used when answering SYNC_REQUEST.
	replayPageLimit = 100
)

// StreamSource reads an owner's update stream for SYNC_REQUEST replays.
// The server-side sync repository satisfies it.
type StreamSource interface {
	ListEntitiesSince(ctx context.Context, ownerID int64, since models.StreamPosition, entityTypes []string, limit int) ([]models.SyncedEntity, error)
}

// Hub owns the per-owner actors. It implements the sync service's
// OwnerActor seam through [Hub.Execute] and carries the realtime session
// registry for the websocket handler.
type Hub struct {
	source StreamSource

	sendBuffer int
	idleAfter  time.Duration

	logger *logger.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	actors map[int64]*ownerActor
	closed bool
}

// NewHub constructs the hub. Zero config values fall back to built-in
// defaults.
func NewHub(source StreamSource, cfg config.Broadcast, logger *logger.Logger) *Hub {
	sendBuffer := cfg.SendBuffer
	if sendBuffer <= 0 {
		sendBuffer = defaultSendBuffer
	}

	idleAfter := cfg.ActorIdleAfter
	if idleAfter <= 0 {
		idleAfter = defaultIdleAfter
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Hub{
		source:     source,
		sendBuffer: sendBuffer,
		idleAfter:  idleAfter,
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
		actors:     make(map[int64]*ownerActor),
	}
}

// Execute runs task on the owner's actor goroutine and blocks until the
// task has finished. Events the task returns are delivered to every live
// session of the owner except originSessionID before the actor picks up
// its next command.
//
// When ctx expires while the task is still queued or running, Execute
// returns early with ctx's error; the task itself observes the same ctx
// and is expected to abort on its own.
func (h *Hub) Execute(ctx context.Context, ownerID int64, originSessionID string, task func(ctx context.Context) ([]models.Event, error)) error {
	m := &executeMsg{
		ctx:    ctx,
		origin: originSessionID,
		task:   task,
		done:   make(chan error, 1),
	}

	if err := h.post(ownerID, m); err != nil {
		return err
	}

	select {
	case err := <-m.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe registers a realtime session with the owner's actor and
// returns it. A second subscription with the same session id supersedes
// the first, releasing it through its Done channel.
func (h *Hub) Subscribe(ownerID int64, sessionID string) (*Session, error) {
	session := &Session{
		id:      sessionID,
		ownerID: ownerID,
		events:  make(chan models.Event, h.sendBuffer),
		done:    make(chan struct{}),
	}

	if err := h.post(ownerID, &subscribeMsg{session: session}); err != nil {
		return nil, err
	}
	return session, nil
}

// Unsubscribe removes the session from its owner's actor. Safe to call
// after the session was already superseded; only the exact registered
// session is removed.
func (h *Hub) Unsubscribe(session *Session) {
	// после Shutdown актор сам закрыл все сессии, ошибку глушим
	_ = h.post(session.ownerID, &unsubscribeMsg{session: session})
}

// SyncRequest asks the owner's actor to replay every entity changed after
// the given checkpoint to this one session, closing with a
// SYNC_REQUEST_ACK frame.
func (h *Hub) SyncRequest(session *Session, since models.SyncCheckpoint) error {
	return h.post(session.ownerID, &syncRequestMsg{session: session, since: since})
}

// Shutdown stops accepting work, retires every actor and releases every
// session. It blocks until all actor goroutines have exited or ctx
// expires.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	h.mu.Unlock()

	h.cancel()

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.logger.Info().Str("func", "Hub.Shutdown").Msg("broadcast hub stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// post appends a message to the owner's mailbox, spawning the actor when
// needed. Enqueueing and actor retirement share h.mu, so a message can
// never land in a mailbox nobody reads.
func (h *Hub) post(ownerID int64, msg any) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrHubClosed
	}

	a, ok := h.actors[ownerID]
	if !ok {
		a = &ownerActor{
			ownerID:  ownerID,
			hub:      h,
			wake:     make(chan struct{}, 1),
			sessions: make(map[string]*Session),
		}
		h.actors[ownerID] = a
		h.wg.Add(1)
		go a.run()
	}

	a.queue = append(a.queue, msg)
	select {
	case a.wake <- struct{}{}:
	default:
	}
	return nil
}

// tryRetire removes an idle actor from the registry. It refuses when work
// raced in or sessions are still attached.
func (h *Hub) tryRetire(a *ownerActor) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(a.queue) > 0 || len(a.sessions) > 0 {
		return false
	}
	delete(h.actors, a.ownerID)
	return true
}

// ── Mailbox messages ─────────────────────────────────────────────────────

type executeMsg struct {
	ctx    context.Context
	origin string
	task   func(ctx context.Context) ([]models.Event, error)
	done   chan error
}

type subscribeMsg struct {
	session *Session
}

type unsubscribeMsg struct {
	session *Session
}

type syncRequestMsg struct {
	session *Session
	since   models.SyncCheckpoint
}

// ── Owner actor ──────────────────────────────────────────────────────────

// ownerActor is the single goroutine all of one owner's mutations and
// session bookkeeping run on. The queue is guarded by the hub's mutex;
// sessions belong to the actor goroutine alone.
type ownerActor struct {
	ownerID int64
	hub     *Hub

	wake     chan struct{}
	sessions map[string]*Session

	// queue is guarded by hub.mu.
	queue []any
}

func (a *ownerActor) run() {
	defer a.hub.wg.Done()

	idle := time.NewTimer(a.hub.idleAfter)
	defer idle.Stop()

	for {
		if batch := a.take(); len(batch) > 0 {
			for _, msg := range batch {
				a.dispatch(msg)
			}
			idle.Reset(a.hub.idleAfter)
			continue
		}

		select {
		case <-a.wake:
		case <-a.hub.ctx.Done():
			a.terminate()
			return
		case <-idle.C:
			if a.hub.tryRetire(a) {
				a.hub.logger.Debug().
					Str("func", "ownerActor.run").
					Int64("owner_id", a.ownerID).
					Msg("idle actor retired")
				return
			}
			idle.Reset(a.hub.idleAfter)
		}
	}
}

// take swaps out the queued batch under the hub lock.
func (a *ownerActor) take() []any {
	a.hub.mu.Lock()
	defer a.hub.mu.Unlock()

	batch := a.queue
	a.queue = nil
	return batch
}

// terminate answers everything still queued with ErrHubClosed and
// releases the remaining sessions. Runs on hub shutdown only.
func (a *ownerActor) terminate() {
	a.hub.mu.Lock()
	delete(a.hub.actors, a.ownerID)
	batch := a.queue
	a.queue = nil
	a.hub.mu.Unlock()

	for _, msg := range batch {
		switch m := msg.(type) {
		case *executeMsg:
			m.done <- ErrHubClosed
		case *subscribeMsg:
			// сессия принята до закрытия, но до актора не дошла
			close(m.session.done)
		}
	}
	for _, session := range a.sessions {
		close(session.done)
	}
}

func (a *ownerActor) dispatch(msg any) {
	switch m := msg.(type) {
	case *executeMsg:
		a.execute(m)
	case *subscribeMsg:
		a.subscribe(m.session)
	case *unsubscribeMsg:
		a.unsubscribe(m.session)
	case *syncRequestMsg:
		a.replay(m.session, m.since)
	}
}

// execute runs one push task and fans its events out. This is the owner's
// serialization point: nothing else of this owner runs concurrently.
func (a *ownerActor) execute(m *executeMsg) {
	events, err := m.task(m.ctx)
	if err != nil {
		m.done <- err
		return
	}

	a.fanOut(events, m.origin)
	m.done <- nil
}

// fanOut delivers events to every session except the originator, in
// commit order. Full session buffers drop events.
func (a *ownerActor) fanOut(events []models.Event, origin string) {
	if len(events) == 0 || len(a.sessions) == 0 {
		return
	}

	for id, session := range a.sessions {
		if id == origin {
			continue
		}

		dropped := 0
		for _, event := range events {
			if !session.deliver(event) {
				dropped++
			}
		}
		if dropped > 0 {
			a.hub.logger.Warn().
				Str("func", "ownerActor.fanOut").
				Int64("owner_id", a.ownerID).
				Str("session_id", id).
				Int("dropped", dropped).
				Msg("session buffer full, events dropped")
		}
	}
}

func (a *ownerActor) subscribe(session *Session) {
	if old, ok := a.sessions[session.id]; ok {
		// переподключение с тем же session id вытесняет старую сессию
		close(old.done)
	}
	a.sessions[session.id] = session

	a.hub.logger.Debug().
		Str("func", "ownerActor.subscribe").
		Int64("owner_id", a.ownerID).
		Str("session_id", session.id).
		Int("sessions", len(a.sessions)).
		Msg("session subscribed")
}

func (a *ownerActor) unsubscribe(session *Session) {
	if a.sessions[session.id] != session {
		return
	}
	delete(a.sessions, session.id)
	close(session.done)

	a.hub.logger.Debug().
		Str("func", "ownerActor.unsubscribe").
		Int64("owner_id", a.ownerID).
		Str("session_id", session.id).
		Int("sessions", len(a.sessions)).
		Msg("session unsubscribed")
}

// replay streams every entity changed after since into the requesting
// session, then closes with SYNC_REQUEST_ACK carrying the caught-up
// checkpoint. When any event is dropped on the way the ack is withheld,
// so the session never persists a checkpoint it has not fully seen.
func (a *ownerActor) replay(session *Session, since models.SyncCheckpoint) {
	log := a.hub.logger.With().
		Str("func", "ownerActor.replay").
		Int64("owner_id", a.ownerID).
		Str("session_id", session.id).
		Logger()

	if a.sessions[session.id] != session {
		// сессию уже вытеснили, ответ никому не нужен
		return
	}

	pos, err := since.Position()
	if err != nil {
		log.Warn().Err(err).Msg("sync request with unrecognized checkpoint, ignoring")
		return
	}

	complete := true
	replayed := 0

	for {
		entities, err := a.hub.source.ListEntitiesSince(a.hub.ctx, a.ownerID, pos, nil, replayPageLimit)
		if err != nil {
			log.Warn().Err(err).Msg("replay aborted, stream read failed")
			return
		}

		for i := range entities {
			if !session.deliver(models.NewEntityEvent(entities[i])) {
				complete = false
			}
		}
		replayed += len(entities)

		if len(entities) > 0 {
			tail := entities[len(entities)-1]
			pos = models.StreamPosition{UpdatedAt: tail.UpdatedAt, ID: tail.ID}
		}
		if len(entities) < replayPageLimit {
			break
		}
	}

	if !complete {
		log.Warn().Int("replayed", replayed).Msg("replay dropped events, ack withheld")
		return
	}

	session.deliver(models.Event{
		Type:       models.EventSyncRequestAck,
		Checkpoint: models.NewSyncCheckpoint(pos),
	})

	log.Debug().Int("replayed", replayed).Msg("sync request replayed")
}
