package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"worker-scribe/constant"
	"worker-scribe/dto"
	"worker-scribe/entities"
	"worker-scribe/pkg/metrics"
	"worker-scribe/pkg/notify"
	"worker-scribe/pkg/storage"
	"worker-scribe/repository"
)

const signedURLExpiry = 5 * time.Minute

// SpeechEngine converts raw audio bytes into transcript text.
type SpeechEngine interface {
	Transcribe(ctx context.Context, audio []byte, contentType string) (string, error)
}

type TranscriptionService interface {
	Process(ctx context.Context, message dto.TranscribeMessage) error
}

type transcriptionService struct {
	repo       repository.RecordingRepository
	store      storage.ObjectStore
	engine     SpeechEngine
	notifier   notify.Notifier
	httpClient *http.Client
}

type TranscriptionOption func(*transcriptionService)

// WithHTTPClient overrides the client used to fetch the recording through its
// signed URL.
func WithHTTPClient(client *http.Client) TranscriptionOption {
	return func(s *transcriptionService) {
		s.httpClient = client
	}
}

func NewTranscriptionService(repo repository.RecordingRepository, store storage.ObjectStore, engine SpeechEngine, notifier notify.Notifier, opts ...TranscriptionOption) TranscriptionService {
	s := &transcriptionService{
		repo:       repo,
		store:      store,
		engine:     engine,
		notifier:   notifier,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Process runs one transcription attempt end to end. The status only
// advances to completed after the transcript row is durably persisted; any
// earlier failure moves the recording to failed with the triggering error
// recorded. A concurrent duplicate trigger loses the claim and does nothing.
func (s *transcriptionService) Process(ctx context.Context, message dto.TranscribeMessage) (err error) {
	zerolog.Ctx(ctx).Info().Str("recording_id", message.RecordingId.String()).Msg("processing transcription job")

	recording, err := s.repo.FindRecordingById(ctx, message.RecordingId, message.UserId)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: recording %s", ErrNotFound, message.RecordingId)
		}
		return err
	}

	defer func() {
		if err == nil || errors.Is(err, ErrAlreadyClaimed) {
			return
		}
		s.fail(ctx, recording.ID, err)
	}()

	fileURL, err := s.store.PresignedGet(ctx, recording.FilePath, signedURLExpiry)
	if err != nil {
		return fmt.Errorf("presign recording file: %w", err)
	}

	claimed, err := s.repo.ClaimRecording(ctx, recording.ID)
	if err != nil {
		return fmt.Errorf("claim recording: %w", err)
	}
	if !claimed {
		zerolog.Ctx(ctx).Info().Str("recording_id", recording.ID.String()).Msg("recording not claimable, skipping")
		return ErrAlreadyClaimed
	}
	s.notifier.Publish(ctx, dto.StatusEvent{
		RecordingId: recording.ID,
		Status:      constant.RecordingStatusTranscribing,
	})

	audio, err := storage.FetchURL(ctx, s.httpClient, fileURL)
	if err != nil {
		return fmt.Errorf("fetch recording file: %w", err)
	}

	transcript, err := s.engine.Transcribe(ctx, audio, recording.FileType)
	if err != nil {
		return fmt.Errorf("transcribe recording: %w", err)
	}

	row := &entities.Transcript{
		ID:          uuid.New(),
		RecordingId: recording.ID,
		Content:     transcript,
		Status:      constant.TranscriptStatusCompleted,
	}
	if err = s.repo.InsertTranscript(ctx, row); err != nil {
		return fmt.Errorf("persist transcript: %w", err)
	}

	if updateErr := s.repo.UpdateRecordingStatus(ctx, constant.RecordingStatusCompleted, recording.ID); updateErr != nil {
		// The transcript is already durable. Completed work is never
		// discarded over a secondary write, so the row stays and the
		// stuck status is left to operator follow-up.
		zerolog.Ctx(ctx).Error().Err(updateErr).
			Str("recording_id", recording.ID.String()).
			Msg("transcript persisted but status update failed, recording left in transcribing")
		return nil
	}

	metrics.TranscriptionsCompleted.Inc()
	s.notifier.Publish(ctx, dto.StatusEvent{
		RecordingId: recording.ID,
		Status:      constant.RecordingStatusCompleted,
		Transcript:  transcript,
	})
	zerolog.Ctx(ctx).Info().Str("recording_id", recording.ID.String()).Msg("transcription completed")

	return nil
}

func (s *transcriptionService) fail(ctx context.Context, id uuid.UUID, cause error) {
	metrics.TranscriptionsFailed.Inc()
	if err := s.repo.MarkRecordingFailed(ctx, id, cause.Error()); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("recording_id", id.String()).Msg("failed to mark recording failed")
		return
	}
	s.notifier.Publish(ctx, dto.StatusEvent{
		RecordingId:  id,
		Status:       constant.RecordingStatusFailed,
		ErrorMessage: cause.Error(),
	})
}
