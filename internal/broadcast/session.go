package broadcast

import (
	"github.com/MKhiriev/go-practice-sync/models"
)

// Session is one live realtime connection of an owner. The hub delivers
// events into the session's buffered channel; the websocket handler drains
// it and writes frames. A session that stops draining loses events once
// the buffer fills — the pull endpoint stays the durable path.
type Session struct {
	id      string
	ownerID int64

	events chan models.Event
	done   chan struct{}
}

// ID returns the session identifier supplied by the connecting device.
func (s *Session) ID() string {
	return s.id
}

// OwnerID returns the owner the session belongs to.
func (s *Session) OwnerID() int64 {
	return s.ownerID
}

// Events returns the channel the hub delivers frames into. The channel is
// never closed; consumers must also watch [Session.Done].
func (s *Session) Events() <-chan models.Event {
	return s.events
}

// Done is closed when the hub lets go of the session: after Unsubscribe,
// after a reconnect with the same session id supersedes it, or on hub
// shutdown.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// deliver queues an event without blocking. It reports false when the
// session's buffer is full and the event was dropped.
func (s *Session) deliver(event models.Event) bool {
	select {
	case s.events <- event:
		return true
	default:
		return false
	}
}
