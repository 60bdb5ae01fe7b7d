package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Summary is a structured extraction derived from a transcript. There is no
// uniqueness constraint on recording_id: re-summarization inserts a new row.
type Summary struct {
	ID           uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	RecordingId  uuid.UUID      `json:"recording_id" gorm:"type:uuid;not null;index:idx_summaries_recording_id"`
	Title        string         `json:"title" gorm:"type:varchar(255);not null"`
	MainPoints   pq.StringArray `json:"main_points" gorm:"type:text[]"`
	NextSteps    pq.StringArray `json:"next_steps" gorm:"type:text[]"`
	Participants pq.StringArray `json:"participants" gorm:"type:text[]"`
	GeneralNotes string         `json:"general_notes" gorm:"type:text"`
	CreatedAt    time.Time      `json:"created_at" gorm:"type:timestamptz;not null;default:CURRENT_TIMESTAMP"`
}

func (Summary) TableName() string {
	return "summaries"
}
