package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"worker-scribe/constant"
	"worker-scribe/entities"
)

type RecordingRepository interface {
	FindRecordingById(ctx context.Context, id, userId uuid.UUID) (*entities.Recording, error)
	ListRecordingsByUser(ctx context.Context, userId uuid.UUID) ([]*entities.Recording, error)
	ListUnprocessedRecordings(ctx context.Context, limit int) ([]*entities.Recording, error)
	InsertRecording(ctx context.Context, recording *entities.Recording) error
	DeleteRecording(ctx context.Context, id, userId uuid.UUID) error
	UpdateRecordingStatus(ctx context.Context, status constant.RecordingStatus, id uuid.UUID) error
	MarkRecordingFailed(ctx context.Context, id uuid.UUID, message string) error
	ClaimRecording(ctx context.Context, id uuid.UUID) (bool, error)
	InsertTranscript(ctx context.Context, transcript *entities.Transcript) error
	FindTranscriptByRecordingId(ctx context.Context, recordingId uuid.UUID) (*entities.Transcript, error)
	InsertSummary(ctx context.Context, summary *entities.Summary) error
	ListSummariesByRecordingId(ctx context.Context, recordingId uuid.UUID) ([]*entities.Summary, error)
}

type repo struct {
	db *gorm.DB
}

func NewRepo(db *sql.DB) RecordingRepository {
	gormDB, _ := gorm.Open(postgres.New(postgres.Config{
		Conn: db}),
		&gorm.Config{
			Logger: logger.Default.LogMode(logger.Warn),
		},
	)
	return &repo{
		db: gormDB,
	}
}

func (r *repo) FindRecordingById(ctx context.Context, id, userId uuid.UUID) (*entities.Recording, error) {
	recording := &entities.Recording{}
	err := r.db.WithContext(ctx).First(recording, "id = ? AND user_id = ?", id, userId).Error
	if err != nil {
		return nil, err
	}

	return recording, nil
}

func (r *repo) ListRecordingsByUser(ctx context.Context, userId uuid.UUID) ([]*entities.Recording, error) {
	var recordings []*entities.Recording
	err := r.db.WithContext(ctx).Where("user_id = ?", userId).Order("created_at DESC").Find(&recordings).Error
	if err != nil {
		return nil, err
	}
	return recordings, nil
}

func (r *repo) ListUnprocessedRecordings(ctx context.Context, limit int) ([]*entities.Recording, error) {
	var recordings []*entities.Recording
	statuses := []constant.RecordingStatus{constant.RecordingStatusPending, constant.RecordingStatusProcessing}
	err := r.db.WithContext(ctx).Where("status IN ?", statuses).Order("created_at ASC").Limit(limit).Find(&recordings).Error
	if err != nil {
		return nil, err
	}
	return recordings, nil
}

func (r *repo) InsertRecording(ctx context.Context, recording *entities.Recording) error {
	return r.db.WithContext(ctx).Create(recording).Error
}

func (r *repo) DeleteRecording(ctx context.Context, id, userId uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userId).Delete(&entities.Recording{}).Error
}

func (r *repo) UpdateRecordingStatus(ctx context.Context, status constant.RecordingStatus, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&entities.Recording{}).Where("id = ?", id).Update("status", status).Error
}

// MarkRecordingFailed records a terminal failure together with its cause. If
// writing the message fails (schema drift on error_message has been seen in
// the wild), the status-only update is retried so the recording never stays
// in a non-terminal state.
func (r *repo) MarkRecordingFailed(ctx context.Context, id uuid.UUID, message string) error {
	err := r.db.WithContext(ctx).Model(&entities.Recording{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":        constant.RecordingStatusFailed,
		"error_message": message,
	}).Error
	if err == nil {
		return nil
	}

	zerolog.Ctx(ctx).Warn().Err(err).Str("recording_id", id.String()).Msg("failed to write error_message, retrying status-only update")
	return r.UpdateRecordingStatus(ctx, constant.RecordingStatusFailed, id)
}

// ClaimRecording atomically moves a recording into transcribing. The
// compare-and-swap guards against two concurrent transcription attempts on
// the same recording: only the caller that flipped the status wins the claim.
// A failed recording may be claimed again, re-entering transcribing.
func (r *repo) ClaimRecording(ctx context.Context, id uuid.UUID) (bool, error) {
	claimable := []constant.RecordingStatus{
		constant.RecordingStatusPending,
		constant.RecordingStatusProcessing,
		constant.RecordingStatusFailed,
	}
	result := r.db.WithContext(ctx).Model(&entities.Recording{}).
		Where("id = ? AND status IN ?", id, claimable).
		Update("status", constant.RecordingStatusTranscribing)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) InsertTranscript(ctx context.Context, transcript *entities.Transcript) error {
	return r.db.WithContext(ctx).Create(transcript).Error
}

func (r *repo) FindTranscriptByRecordingId(ctx context.Context, recordingId uuid.UUID) (*entities.Transcript, error) {
	transcript := &entities.Transcript{}
	err := r.db.WithContext(ctx).First(transcript, "recording_id = ?", recordingId).Error
	if err != nil {
		return nil, err
	}
	return transcript, nil
}

func (r *repo) InsertSummary(ctx context.Context, summary *entities.Summary) error {
	return r.db.WithContext(ctx).Create(summary).Error
}

func (r *repo) ListSummariesByRecordingId(ctx context.Context, recordingId uuid.UUID) ([]*entities.Summary, error) {
	var summaries []*entities.Summary
	err := r.db.WithContext(ctx).Where("recording_id = ?", recordingId).Order("created_at DESC").Find(&summaries).Error
	if err != nil {
		return nil, err
	}
	return summaries, nil
}
