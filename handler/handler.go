package handler

import (
	"context"
	"encoding/json"
	"errors"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"worker-scribe/dto"
	"worker-scribe/service"
)

type ServiceDependencies struct {
	TranscriptionService service.TranscriptionService
	SummarizationService service.SummarizationService
}

func TranscribeHandler(ctx context.Context, msg amqp.Delivery, deps ServiceDependencies) error {
	var job dto.TranscribeMessage
	if err := json.Unmarshal(msg.Body, &job); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to unmarshal transcribe message")
		return err
	}

	err := deps.TranscriptionService.Process(ctx, job)
	if errors.Is(err, service.ErrAlreadyClaimed) {
		// A duplicate trigger for the same recording; the winning claim is
		// already doing the work.
		return nil
	}

	return err
}

func SummarizeHandler(ctx context.Context, msg amqp.Delivery, deps ServiceDependencies) error {
	var job dto.SummarizeMessage
	if err := json.Unmarshal(msg.Body, &job); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to unmarshal summarize message")
		return err
	}

	_, err := deps.SummarizationService.Summarize(ctx, job.RecordingId)
	var parseErr *service.ParseError
	if errors.As(err, &parseErr) {
		zerolog.Ctx(ctx).Error().
			Str("recording_id", job.RecordingId.String()).
			Str("raw", parseErr.Raw).
			Msg("model response was not valid JSON")
	}

	return err
}
