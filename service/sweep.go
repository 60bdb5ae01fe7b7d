package service

import (
	"context"

	"github.com/rs/zerolog"

	"worker-scribe/dto"
	"worker-scribe/pkg/metrics"
	"worker-scribe/pkg/rabbitmq"
	"worker-scribe/repository"
)

const sweepBatchSize = 10

// SweepService is the scheduled safety net: it lists recordings stuck in a
// non-terminal pre-transcription state and re-dispatches each one, covering
// the case where the client-triggered advancement never happened.
type SweepService interface {
	Run(ctx context.Context) ([]dto.SweepResult, error)
}

type sweepService struct {
	repo      repository.RecordingRepository
	publisher rabbitmq.JobPublisher
}

func NewSweepService(repo repository.RecordingRepository, publisher rabbitmq.JobPublisher) SweepService {
	return &sweepService{
		repo:      repo,
		publisher: publisher,
	}
}

func (s *sweepService) Run(ctx context.Context) ([]dto.SweepResult, error) {
	recordings, err := s.repo.ListUnprocessedRecordings(ctx, sweepBatchSize)
	if err != nil {
		return nil, err
	}

	results := make([]dto.SweepResult, 0, len(recordings))
	for _, recording := range recordings {
		result := dto.SweepResult{RecordingId: recording.ID}
		msg := dto.TranscribeMessage{RecordingId: recording.ID, UserId: recording.UserId}
		if err := s.publisher.PublishTranscribe(ctx, msg); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Str("recording_id", recording.ID.String()).Msg("sweep dispatch failed")
			result.Error = err.Error()
		} else {
			result.Dispatched = true
			metrics.SweepDispatches.Inc()
		}
		results = append(results, result)
	}

	zerolog.Ctx(ctx).Info().Int("count", len(results)).Msg("sweep run finished")
	return results, nil
}
