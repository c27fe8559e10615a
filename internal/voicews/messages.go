package voicews

import (
	"github.com/medvox/voice-command-gateway/internal/session"
	"github.com/medvox/voice-command-gateway/internal/voice"
)

// Control message types sent by the client as text frames
const (
	ControlStart  = "start"
	ControlStop   = "stop"
	ControlCancel = "cancel"
)

// Server message types
const (
	MessageStatus     = "status"
	MessageTranscript = "transcript"
	MessageIntent     = "intent"
	MessageResponse   = "response"
	MessageTurnEnd    = "turn_end"
	MessageAudioStart = "audio_start"
	MessageAudioEnd   = "audio_end"
	MessageError      = "error"
)

// Audio encodings accepted in the encoding query parameter
const (
	EncodingPCM16 = "pcm16"
	EncodingMulaw = "mulaw"
)

// ControlMessage is a client command
type ControlMessage struct {
	Type string `json:"type"`
}

// Message is a JSON event sent to the client. Only the fields relevant to
// Type are set.
type Message struct {
	Type   string `json:"type"`
	TurnID string `json:"turn_id,omitempty"`

	Status string `json:"status,omitempty"`

	Text  string `json:"text,omitempty"`
	Final bool   `json:"final,omitempty"`

	Intent   *voice.ResolvedIntent `json:"intent,omitempty"`
	Response string                `json:"response,omitempty"`

	Result     string `json:"result,omitempty"`
	DurationMs int64  `json:"duration_ms,omitempty"`

	// Code is a voice.Code value on turn_end and error messages
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`

	SampleRate int    `json:"sample_rate,omitempty"`
	Encoding   string `json:"encoding,omitempty"`
}

// fromEvent converts a session event to its wire form
func fromEvent(ev session.Event) Message {
	msg := Message{TurnID: ev.TurnID}

	switch ev.Type {
	case session.EventStatus:
		msg.Type = MessageStatus
		msg.Status = ev.Status.String()
	case session.EventTranscript:
		msg.Type = MessageTranscript
		if ev.Utterance != nil {
			msg.Text = ev.Utterance.Text
			msg.Final = ev.Utterance.Final
		}
	case session.EventIntent:
		msg.Type = MessageIntent
		msg.Intent = ev.Intent
	case session.EventResponse:
		msg.Type = MessageResponse
		msg.Response = ev.Response
	case session.EventTurnEnd:
		msg.Type = MessageTurnEnd
		if o := ev.Outcome; o != nil {
			msg.Result = string(o.Result)
			msg.Code = o.ErrorCode
			msg.Text = o.Transcript
			msg.Intent = o.Intent
			msg.Response = o.Response
			msg.DurationMs = o.Duration.Milliseconds()
		}
	}
	return msg
}

func errorMessage(err error) Message {
	return Message{Type: MessageError, Code: voice.Code(err), Message: err.Error()}
}
