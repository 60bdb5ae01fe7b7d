package entities

import (
	"time"

	"github.com/google/uuid"

	"worker-scribe/constant"
)

type Recording struct {
	ID           uuid.UUID                `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	UserId       uuid.UUID                `json:"user_id" gorm:"type:uuid;not null;index:idx_recordings_user_id"`
	FileName     string                   `json:"file_name" gorm:"type:varchar(255);not null"`
	FileType     string                   `json:"file_type" gorm:"type:varchar(100);not null"`
	FileSize     int64                    `json:"file_size" gorm:"type:bigint;not null"`
	FilePath     string                   `json:"file_path" gorm:"type:varchar(500);not null"`
	Status       constant.RecordingStatus `json:"status" gorm:"type:varchar(20);not null;default:'pending';index:idx_recordings_status"`
	ErrorMessage *string                  `json:"error_message" gorm:"type:text"`
	CreatedAt    time.Time                `json:"created_at" gorm:"type:timestamptz;not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time                `json:"updated_at" gorm:"type:timestamptz;not null;default:CURRENT_TIMESTAMP"`
}

func (Recording) TableName() string {
	return "recordings"
}
