package service

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"worker-scribe/constant"
	"worker-scribe/dto"
	"worker-scribe/entities"
	"worker-scribe/pkg/metrics"
	"worker-scribe/pkg/rabbitmq"
	"worker-scribe/pkg/storage"
	"worker-scribe/repository"
)

// UploadService owns the upload side of the pipeline: it moves the file into
// object storage, registers the recording at processing, and dispatches the
// transcription job. The storage object's lifetime is tied to the recording
// row, so Delete removes both.
type UploadService interface {
	Store(ctx context.Context, userId uuid.UUID, fileName, fileType string, data []byte, progress func(int)) (*entities.Recording, error)
	Delete(ctx context.Context, userId, recordingId uuid.UUID) error
}

type uploadService struct {
	repo        repository.RecordingRepository
	transfer    *storage.Transfer
	store       storage.ObjectStore
	publisher   rabbitmq.JobPublisher
	maxFileSize int64
}

func NewUploadService(repo repository.RecordingRepository, transfer *storage.Transfer, store storage.ObjectStore, publisher rabbitmq.JobPublisher, maxFileSize int64) UploadService {
	return &uploadService{
		repo:        repo,
		transfer:    transfer,
		store:       store,
		publisher:   publisher,
		maxFileSize: maxFileSize,
	}
}

func (s *uploadService) Store(ctx context.Context, userId uuid.UUID, fileName, fileType string, data []byte, progress func(int)) (*entities.Recording, error) {
	if userId == uuid.Nil || fileName == "" {
		return nil, fmt.Errorf("%w: user id and file name are required", ErrValidation)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrValidation)
	}
	if int64(len(data)) > s.maxFileSize {
		return nil, fmt.Errorf("%w: file exceeds maximum size of %d bytes", ErrValidation, s.maxFileSize)
	}

	path := fmt.Sprintf("recordings/%s/%d%s", userId, time.Now().UnixNano(), filepath.Ext(fileName))
	if err := s.transfer.Store(ctx, path, data, fileType, progress); err != nil {
		return nil, err
	}

	recording := &entities.Recording{
		ID:       uuid.New(),
		UserId:   userId,
		FileName: fileName,
		FileType: fileType,
		FileSize: int64(len(data)),
		FilePath: path,
		Status:   constant.RecordingStatusProcessing,
	}
	if err := s.repo.InsertRecording(ctx, recording); err != nil {
		return nil, fmt.Errorf("register recording: %w", err)
	}

	// Dispatch failure is not fatal: the sweep driver picks up any recording
	// left in processing.
	msg := dto.TranscribeMessage{RecordingId: recording.ID, UserId: userId}
	if err := s.publisher.PublishTranscribe(ctx, msg); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("recording_id", recording.ID.String()).Msg("failed to dispatch transcription job")
	}

	metrics.UploadsCompleted.Inc()
	zerolog.Ctx(ctx).Info().Str("recording_id", recording.ID.String()).Str("path", path).Msg("recording stored")
	return recording, nil
}

func (s *uploadService) Delete(ctx context.Context, userId, recordingId uuid.UUID) error {
	recording, err := s.repo.FindRecordingById(ctx, recordingId, userId)
	if err != nil {
		return fmt.Errorf("%w: recording %s", ErrNotFound, recordingId)
	}

	if err := s.store.Remove(ctx, recording.FilePath); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("path", recording.FilePath).Msg("failed to remove backing object")
	}

	return s.repo.DeleteRecording(ctx, recordingId, userId)
}
