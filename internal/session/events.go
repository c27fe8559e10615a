package session

import (
	"time"

	"github.com/medvox/voice-command-gateway/internal/voice"
)

// EventType discriminates session events
type EventType string

const (
	EventStatus     EventType = "status"
	EventTranscript EventType = "transcript"
	EventIntent     EventType = "intent"
	EventResponse   EventType = "response"
	EventTurnEnd    EventType = "turn_end"
)

// Result is how a turn ended
type Result string

const (
	ResultCompleted Result = "completed"
	ResultCancelled Result = "cancelled"
	ResultError     Result = "error"
	ResultDiscarded Result = "discarded"
)

// Outcome summarizes a finished turn
type Outcome struct {
	TurnID string
	Result Result

	// ErrorCode is voice.Code of Err, empty on success
	ErrorCode string
	Err       error

	Transcript string
	Intent     *voice.ResolvedIntent
	Response   string
	Duration   time.Duration
}

// Event is published on Session.Events. Only the fields relevant to Type
// are set.
type Event struct {
	Type   EventType
	TurnID string

	Status    voice.TurnStatus
	Utterance *voice.Utterance
	Intent    *voice.ResolvedIntent
	Response  string
	Outcome   *Outcome
}
