package handler

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worker-scribe/dto"
	"worker-scribe/entities"
	"worker-scribe/service"
)

type stubTranscription struct {
	err  error
	msgs []dto.TranscribeMessage
}

func (s *stubTranscription) Process(_ context.Context, msg dto.TranscribeMessage) error {
	s.msgs = append(s.msgs, msg)
	return s.err
}

type stubSummarization struct {
	err error
	ids []uuid.UUID
}

func (s *stubSummarization) Summarize(_ context.Context, id uuid.UUID) (*entities.Summary, error) {
	s.ids = append(s.ids, id)
	return &entities.Summary{RecordingId: id}, s.err
}

func (s *stubSummarization) ListSummaries(context.Context, uuid.UUID, uuid.UUID) ([]*entities.Summary, error) {
	return nil, nil
}

func delivery(t *testing.T, payload any) amqp.Delivery {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	return amqp.Delivery{Body: body}
}

func TestTranscribeHandler(t *testing.T) {
	svc := &stubTranscription{}
	deps := ServiceDependencies{TranscriptionService: svc}

	msg := dto.TranscribeMessage{RecordingId: uuid.New(), UserId: uuid.New()}
	require.NoError(t, TranscribeHandler(context.Background(), delivery(t, msg), deps))
	require.Len(t, svc.msgs, 1)
	assert.Equal(t, msg, svc.msgs[0])
}

func TestTranscribeHandlerSwallowsDuplicateClaim(t *testing.T) {
	svc := &stubTranscription{err: service.ErrAlreadyClaimed}
	deps := ServiceDependencies{TranscriptionService: svc}

	msg := dto.TranscribeMessage{RecordingId: uuid.New(), UserId: uuid.New()}
	assert.NoError(t, TranscribeHandler(context.Background(), delivery(t, msg), deps))
}

func TestTranscribeHandlerBadPayload(t *testing.T) {
	deps := ServiceDependencies{TranscriptionService: &stubTranscription{}}
	err := TranscribeHandler(context.Background(), amqp.Delivery{Body: []byte("not json")}, deps)
	assert.Error(t, err)
}

func TestSummarizeHandler(t *testing.T) {
	svc := &stubSummarization{}
	deps := ServiceDependencies{SummarizationService: svc}

	msg := dto.SummarizeMessage{RecordingId: uuid.New()}
	require.NoError(t, SummarizeHandler(context.Background(), delivery(t, msg), deps))
	require.Len(t, svc.ids, 1)
	assert.Equal(t, msg.RecordingId, svc.ids[0])
}

func TestSummarizeHandlerPropagatesParseError(t *testing.T) {
	svc := &stubSummarization{err: &service.ParseError{Raw: "not json"}}
	deps := ServiceDependencies{SummarizationService: svc}

	err := SummarizeHandler(context.Background(), delivery(t, dto.SummarizeMessage{RecordingId: uuid.New()}), deps)
	var parseErr *service.ParseError
	assert.ErrorAs(t, err, &parseErr)
}
