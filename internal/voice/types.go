// Package voice holds the data model shared by every stage of a voice turn:
// utterances, resolved intents, turn status and the operator-supplied
// provider configuration.
package voice

import (
	"time"
)

// CaptureMode identifies a capture backend
type CaptureMode string

const (
	// CaptureOnDevice is continuous recognition that streams interim and final text
	CaptureOnDevice CaptureMode = "on-device"
	// CaptureRemote records a bounded clip and uploads it to a transcription provider
	CaptureRemote CaptureMode = "remote"
)

// SynthesisMode identifies a synthesis backend
type SynthesisMode string

const (
	SynthesisRemote SynthesisMode = "remote"
	SynthesisLocal  SynthesisMode = "local"
)

// Utterance is one piece of recognized speech
type Utterance struct {
	// Text is the recognized text
	Text string

	// Final is false while the recognizer may still revise Text
	Final bool

	// Backend is the capture backend that produced the utterance
	Backend CaptureMode

	// ReceivedAt is when the utterance reached the capture adapter
	ReceivedAt time.Time
}

// IntentKind is the classified purpose of an utterance
type IntentKind string

const (
	IntentUnknown IntentKind = "Unknown"

	// Emergency
	IntentEmergencyAlert IntentKind = "EmergencyAlert"
	IntentStopProcedure  IntentKind = "StopProcedure"

	// Procedural
	IntentSetTorque      IntentKind = "SetTorque"
	IntentSetSpeed       IntentKind = "SetSpeed"
	IntentNextStep       IntentKind = "NextStep"
	IntentStartProcedure IntentKind = "StartProcedure"
	IntentRecordNote     IntentKind = "RecordNote"

	// Informational
	IntentFindPatient    IntentKind = "FindPatient"
	IntentShowSchedule   IntentKind = "ShowSchedule"
	IntentPatientHistory IntentKind = "PatientHistory"
	IntentCheckInventory IntentKind = "CheckInventory"
	IntentCurrentTime    IntentKind = "CurrentTime"

	// Operational
	IntentScheduleAppointment IntentKind = "ScheduleAppointment"
	IntentCancelAppointment   IntentKind = "CancelAppointment"
	IntentGenerateReport      IntentKind = "GenerateReport"
	IntentOrderSupplies       IntentKind = "OrderSupplies"
)

// ResolvedIntent is the structured result of matching an utterance
// against the pattern catalog. Exactly one Kind per value.
type ResolvedIntent struct {
	Kind       IntentKind        `json:"kind"`
	Params     map[string]string `json:"params"`
	Confidence float64           `json:"confidence"`
	RawText    string            `json:"raw_text"`

	// Rule is the name of the catalog rule that matched, empty for Unknown
	Rule string `json:"rule,omitempty"`
}

// IsUnknown reports whether no catalog rule matched
func (r ResolvedIntent) IsUnknown() bool {
	return r.Kind == IntentUnknown || r.Kind == ""
}

// TurnStatus is the state of the session state machine
type TurnStatus int

const (
	StatusIdle TurnStatus = iota
	StatusListening
	StatusTranscribing
	StatusResolving
	StatusDispatching
	StatusSpeaking
	StatusCancelled
	StatusError
)

func (s TurnStatus) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusListening:
		return "listening"
	case StatusTranscribing:
		return "transcribing"
	case StatusResolving:
		return "resolving"
	case StatusDispatching:
		return "dispatching"
	case StatusSpeaking:
		return "speaking"
	case StatusCancelled:
		return "cancelled"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// VoiceTurn is the unit of work processed by the session. It is created
// when listening starts and discarded when the turn reaches a terminal
// status; only the session goroutine running the turn may mutate it.
type VoiceTurn struct {
	ID        string
	Status    TurnStatus
	Utterance *Utterance
	Intent    *ResolvedIntent
	Response  *string
	StartedAt time.Time
	Err       error
}
