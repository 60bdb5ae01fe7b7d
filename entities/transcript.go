package entities

import (
	"time"

	"github.com/google/uuid"

	"worker-scribe/constant"
)

// Transcript is the text output of a successful transcription. At most one
// row exists per recording; the row is only ever inserted whole.
type Transcript struct {
	ID          uuid.UUID                 `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	RecordingId uuid.UUID                 `json:"recording_id" gorm:"type:uuid;not null;uniqueIndex:unique_transcript_recording"`
	Content     string                    `json:"content" gorm:"type:text;not null"`
	Status      constant.TranscriptStatus `json:"status" gorm:"type:varchar(20);not null;default:'completed'"`
	CreatedAt   time.Time                 `json:"created_at" gorm:"type:timestamptz;not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time                 `json:"updated_at" gorm:"type:timestamptz;not null;default:CURRENT_TIMESTAMP"`
}

func (Transcript) TableName() string {
	return "transcriptions"
}
