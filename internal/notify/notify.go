// Package notify delivers simulation events to players and operators.
// Emit never blocks and never fails the caller: a full queue drops the
// event and logs it. Nothing downstream of a committed transaction can
// roll it back.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Event is one notification.
type Event struct {
	ID        string         `json:"id"`
	Kind      string         `json:"kind"`
	UserID    int64          `json:"user_id,omitempty"`
	CompanyID int64          `json:"company_id,omitempty"`
	At        time.Time      `json:"at"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// NewEvent creates an event with a fresh ID.
func NewEvent(kind string, at time.Time, payload map[string]any) Event {
	return Event{
		ID:      uuid.NewString(),
		Kind:    kind,
		At:      at,
		Payload: payload,
	}
}

// ForCompany sets the owning user and company.
func (e Event) ForCompany(userID, companyID int64) Event {
	e.UserID = userID
	e.CompanyID = companyID
	return e
}

// Emitter accepts events for delivery.
type Emitter interface {
	Emit(ev Event)
}

// Nop discards every event.
type Nop struct{}

// Emit implements Emitter.
func (Nop) Emit(Event) {}

// Log writes every event to the global logger.
type Log struct{}

// Emit implements Emitter.
func (Log) Emit(ev Event) {
	log.Info().
		Str("event_id", ev.ID).
		Str("kind", ev.Kind).
		Int64("user_id", ev.UserID).
		Int64("company_id", ev.CompanyID).
		Interface("payload", ev.Payload).
		Msg("Event emitted")
}

// Multi fans an event out to several emitters.
type Multi []Emitter

// Emit implements Emitter.
func (m Multi) Emit(ev Event) {
	for _, e := range m {
		e.Emit(ev)
	}
}

// Recorder keeps every event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Emit implements Emitter.
func (r *Recorder) Emit(ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// OfKind returns the recorded events of kind.
func (r *Recorder) OfKind(kind string) []Event {
	var out []Event
	for _, ev := range r.Events() {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

// Reset forgets every recorded event.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

// dropped logs an event a full queue could not take.
func dropped(sink string, ev Event) {
	log.Warn().
		Str("sink", sink).
		Str("event_id", ev.ID).
		Str("kind", ev.Kind).
		Msg("Notification queue full, event dropped")
}
