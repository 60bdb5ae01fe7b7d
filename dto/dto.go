package dto

import (
	"github.com/google/uuid"

	"worker-scribe/constant"
)

type TranscribeMessage struct {
	RecordingId uuid.UUID `json:"recordingId"`
	UserId      uuid.UUID `json:"userId"`
}

type SummarizeMessage struct {
	RecordingId uuid.UUID `json:"recordingId"`
}

// StatusEvent is pushed to watchers whenever a recording changes state.
// Transcript is only populated on the transition to completed.
type StatusEvent struct {
	RecordingId  uuid.UUID                `json:"recordingId"`
	Status       constant.RecordingStatus `json:"status"`
	ErrorMessage string                   `json:"errorMessage,omitempty"`
	Transcript   string                   `json:"transcript,omitempty"`
}

type SweepResult struct {
	RecordingId uuid.UUID `json:"recordingId"`
	Dispatched  bool      `json:"dispatched"`
	Error       string    `json:"error,omitempty"`
}
