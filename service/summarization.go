package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"worker-scribe/entities"
	"worker-scribe/pkg/metrics"
	"worker-scribe/repository"
)

const summarySystemPrompt = "You summarize meeting transcripts."

const summaryPromptTemplate = `You are an AI assistant that summarizes meeting transcripts. Extract four sections: "Key Points", "Action Items", "Participants", and "General Notes".

Transcript:
%s

Respond as JSON with keys: main_points (array of strings), next_steps (array of strings), participants (array of strings), general_notes (string).`

// LanguageModel produces a completion from a system instruction and a user
// prompt.
type LanguageModel interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// SummarizationService derives a structured summary from a persisted
// transcript. It is layered on top of a completed recording and never
// touches the recording's own lifecycle status; re-summarization inserts a
// new summary row.
type SummarizationService interface {
	Summarize(ctx context.Context, recordingId uuid.UUID) (*entities.Summary, error)
	ListSummaries(ctx context.Context, userId, recordingId uuid.UUID) ([]*entities.Summary, error)
}

type summarizationService struct {
	repo  repository.RecordingRepository
	model LanguageModel
}

func NewSummarizationService(repo repository.RecordingRepository, model LanguageModel) SummarizationService {
	return &summarizationService{
		repo:  repo,
		model: model,
	}
}

func (s *summarizationService) Summarize(ctx context.Context, recordingId uuid.UUID) (*entities.Summary, error) {
	if recordingId == uuid.Nil {
		return nil, fmt.Errorf("%w: recording id is required", ErrValidation)
	}

	transcript, err := s.repo.FindTranscriptByRecordingId(ctx, recordingId)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: no transcript for recording %s", ErrNotFound, recordingId)
		}
		return nil, err
	}

	raw, err := s.model.Complete(ctx, summarySystemPrompt, fmt.Sprintf(summaryPromptTemplate, transcript.Content))
	if err != nil {
		return nil, fmt.Errorf("summarization model: %w", err)
	}

	fields, err := extractSummaryJSON(raw)
	if err != nil {
		metrics.SummaryParseFailures.Inc()
		return nil, err
	}

	summary := &entities.Summary{
		ID:           uuid.New(),
		RecordingId:  recordingId,
		Title:        "Meeting Summary",
		MainPoints:   fields.MainPoints,
		NextSteps:    fields.NextSteps,
		Participants: fields.Participants,
		GeneralNotes: fields.GeneralNotes,
	}
	if err := s.repo.InsertSummary(ctx, summary); err != nil {
		return nil, fmt.Errorf("persist summary: %w", err)
	}

	metrics.SummariesCreated.Inc()
	zerolog.Ctx(ctx).Info().Str("recording_id", recordingId.String()).Msg("summary created")
	return summary, nil
}

// ListSummaries returns every summary generated for the recording, newest
// first. The recording must belong to the caller.
func (s *summarizationService) ListSummaries(ctx context.Context, userId, recordingId uuid.UUID) ([]*entities.Summary, error) {
	if _, err := s.repo.FindRecordingById(ctx, recordingId, userId); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: recording %s", ErrNotFound, recordingId)
		}
		return nil, err
	}

	return s.repo.ListSummariesByRecordingId(ctx, recordingId)
}

type summaryFields struct {
	MainPoints   []string `json:"main_points"`
	NextSteps    []string `json:"next_steps"`
	Participants []string `json:"participants"`
	GeneralNotes string   `json:"general_notes"`
}

// extractSummaryJSON slices the response to the span between the first '{'
// and the last '}' before parsing, tolerating models that wrap their JSON in
// prose or markdown fences.
func extractSummaryJSON(raw string) (*summaryFields, error) {
	trimmed := strings.TrimSpace(raw)
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start < 0 || end <= start {
		return nil, &ParseError{Raw: raw, Err: errors.New("no JSON object in model response")}
	}

	var fields summaryFields
	if err := json.Unmarshal([]byte(trimmed[start:end+1]), &fields); err != nil {
		return nil, &ParseError{Raw: raw, Err: err}
	}

	return &fields, nil
}
