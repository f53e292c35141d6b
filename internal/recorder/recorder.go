// Package recorder keeps the append-only timeline of a terminal session and
// serializes it for offline playback.
package recorder

import (
	"sync"
	"time"

	"github.com/dshills/ptyagent/internal/terminal"
)

// Origin identifies who asked for a turn.
type Origin string

const (
	// OriginAgent marks turns requested through the agent tool.
	OriginAgent Origin = "agent"
	// OriginOperator marks turns sent by the operator, bypassing approval.
	OriginOperator Origin = "operator"
)

// Outcome is the approval decision for a turn.
type Outcome string

const (
	OutcomeApproved     Outcome = "approved"
	OutcomeDenied       Outcome = "denied"
	OutcomeAutoApproved Outcome = "auto-approved"
)

// Sent reports whether the turn's bytes were written to the terminal.
func (o Outcome) Sent() bool {
	return o == OutcomeApproved || o == OutcomeAutoApproved
}

// Turn is one recorded tool invocation. A Turn never shares memory with the
// live screen.
type Turn struct {
	Index     int               `json:"index"`
	SessionID string            `json:"session_id"`
	Time      time.Time         `json:"time"`
	Origin    Origin            `json:"origin"`
	Input     []byte            `json:"input"`
	Delay     time.Duration     `json:"delay"`
	Outcome   Outcome           `json:"outcome"`
	Snapshot  terminal.Snapshot `json:"snapshot"`
}

// EventKind is the type of a free-form timeline event.
type EventKind string

const (
	// EventUserInput is a line typed by the operator.
	EventUserInput EventKind = "user_input"
	// EventAssistant is a final response from the agent, in markdown.
	EventAssistant EventKind = "assistant"
)

// Event is a timeline entry that is not a terminal turn.
type Event struct {
	Kind EventKind `json:"kind"`
	Time time.Time `json:"time"`
	Text string    `json:"text"`

	// AfterTurn is the number of turns recorded before this event; it places
	// the event in the merged timeline.
	AfterTurn int `json:"after_turn"`
}

// Recorder is an append-only log of turns and events. It is safe for
// concurrent use.
type Recorder struct {
	mu        sync.Mutex
	sessionID string
	startedAt time.Time
	turns     []Turn
	events    []Event
	now       func() time.Time
}

// New creates an empty recorder for sessionID.
func New(sessionID string) *Recorder {
	r := &Recorder{
		sessionID: sessionID,
		now:       time.Now,
	}
	r.startedAt = r.timestamp()
	return r
}

// timestamp returns the current time without a monotonic reading so that
// values survive serialization unchanged.
func (r *Recorder) timestamp() time.Time {
	return r.now().UTC()
}

// SessionID returns the id turns are currently recorded against.
func (r *Recorder) SessionID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessionID
}

// StartedAt returns when the current session started recording.
func (r *Recorder) StartedAt() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.startedAt
}

// Record appends a turn and returns it. input and snap are copied.
func (r *Recorder) Record(origin Origin, input []byte, delay time.Duration, outcome Outcome, snap terminal.Snapshot) Turn {
	r.mu.Lock()
	defer r.mu.Unlock()

	turn := Turn{
		Index:     len(r.turns),
		SessionID: r.sessionID,
		Time:      r.timestamp(),
		Origin:    origin,
		Input:     append([]byte(nil), input...),
		Delay:     delay,
		Outcome:   outcome,
		Snapshot:  snap.Clone(),
	}
	r.turns = append(r.turns, turn)
	return cloneTurn(turn)
}

// RecordEvent appends a free-form event.
func (r *Recorder) RecordEvent(kind EventKind, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, Event{
		Kind:      kind,
		Time:      r.timestamp(),
		Text:      text,
		AfterTurn: len(r.turns),
	})
}

// Len returns the number of recorded turns.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.turns)
}

// Turns returns copies of all recorded turns in order.
func (r *Recorder) Turns() []Turn {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Turn, len(r.turns))
	for i, t := range r.turns {
		out[i] = cloneTurn(t)
	}
	return out
}

// Events returns copies of all recorded events in order.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Reset discards every turn and event and starts recording against sessionID
// from now.
func (r *Recorder) Reset(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessionID = sessionID
	r.startedAt = r.timestamp()
	r.turns = nil
	r.events = nil
}

// Document returns the full serializable timeline. final may be nil.
func (r *Recorder) Document(final *terminal.Snapshot) Document {
	r.mu.Lock()
	doc := Document{
		Version:   DocumentVersion,
		StartedAt: r.startedAt,
		SessionID: r.sessionID,
		Turns:     make([]Turn, len(r.turns)),
		Events:    append([]Event{}, r.events...),
	}
	for i, t := range r.turns {
		doc.Turns[i] = cloneTurn(t)
	}
	r.mu.Unlock()

	if final != nil {
		f := final.Clone()
		doc.Final = &f
	}
	return doc
}

func cloneTurn(t Turn) Turn {
	t.Input = append([]byte(nil), t.Input...)
	t.Snapshot = t.Snapshot.Clone()
	return t
}
