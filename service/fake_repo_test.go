package service

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"worker-scribe/constant"
	"worker-scribe/entities"
)

// fakeRepo is an in-memory RecordingRepository for service tests.
type fakeRepo struct {
	mu          sync.Mutex
	recordings  map[uuid.UUID]*entities.Recording
	transcripts map[uuid.UUID]*entities.Transcript
	summaries   []*entities.Summary

	statusUpdates []constant.RecordingStatus

	failCompletedUpdate  bool
	failTranscriptInsert bool
	failMessageWrite     bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		recordings:  make(map[uuid.UUID]*entities.Recording),
		transcripts: make(map[uuid.UUID]*entities.Transcript),
	}
}

func (f *fakeRepo) FindRecordingById(_ context.Context, id, userId uuid.UUID) (*entities.Recording, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	recording, ok := f.recordings[id]
	if !ok || recording.UserId != userId {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *recording
	return &copied, nil
}

func (f *fakeRepo) ListRecordingsByUser(_ context.Context, userId uuid.UUID) ([]*entities.Recording, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entities.Recording
	for _, recording := range f.recordings {
		if recording.UserId == userId {
			out = append(out, recording)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListUnprocessedRecordings(_ context.Context, limit int) ([]*entities.Recording, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entities.Recording
	for _, recording := range f.recordings {
		if len(out) == limit {
			break
		}
		if recording.Status == constant.RecordingStatusPending || recording.Status == constant.RecordingStatusProcessing {
			out = append(out, recording)
		}
	}
	return out, nil
}

func (f *fakeRepo) InsertRecording(_ context.Context, recording *entities.Recording) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recordings[recording.ID] = recording
	return nil
}

func (f *fakeRepo) DeleteRecording(_ context.Context, id, userId uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	recording, ok := f.recordings[id]
	if !ok || recording.UserId != userId {
		return gorm.ErrRecordNotFound
	}
	delete(f.recordings, id)
	return nil
}

func (f *fakeRepo) UpdateRecordingStatus(_ context.Context, status constant.RecordingStatus, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCompletedUpdate && status == constant.RecordingStatusCompleted {
		return errors.New("status update failed")
	}
	recording, ok := f.recordings[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	recording.Status = status
	f.statusUpdates = append(f.statusUpdates, status)
	return nil
}

func (f *fakeRepo) MarkRecordingFailed(ctx context.Context, id uuid.UUID, message string) error {
	f.mu.Lock()
	if f.failMessageWrite {
		f.mu.Unlock()
		return f.UpdateRecordingStatus(ctx, constant.RecordingStatusFailed, id)
	}
	defer f.mu.Unlock()
	recording, ok := f.recordings[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	recording.Status = constant.RecordingStatusFailed
	recording.ErrorMessage = &message
	f.statusUpdates = append(f.statusUpdates, constant.RecordingStatusFailed)
	return nil
}

func (f *fakeRepo) ClaimRecording(_ context.Context, id uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	recording, ok := f.recordings[id]
	if !ok {
		return false, nil
	}
	switch recording.Status {
	case constant.RecordingStatusPending, constant.RecordingStatusProcessing, constant.RecordingStatusFailed:
		recording.Status = constant.RecordingStatusTranscribing
		f.statusUpdates = append(f.statusUpdates, constant.RecordingStatusTranscribing)
		return true, nil
	}
	return false, nil
}

func (f *fakeRepo) InsertTranscript(_ context.Context, transcript *entities.Transcript) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failTranscriptInsert {
		return errors.New("transcript insert failed")
	}
	if _, exists := f.transcripts[transcript.RecordingId]; exists {
		return errors.New("duplicate transcript")
	}
	f.transcripts[transcript.RecordingId] = transcript
	return nil
}

func (f *fakeRepo) FindTranscriptByRecordingId(_ context.Context, recordingId uuid.UUID) (*entities.Transcript, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	transcript, ok := f.transcripts[recordingId]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return transcript, nil
}

func (f *fakeRepo) InsertSummary(_ context.Context, summary *entities.Summary) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.summaries = append(f.summaries, summary)
	return nil
}

func (f *fakeRepo) ListSummariesByRecordingId(_ context.Context, recordingId uuid.UUID) ([]*entities.Summary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entities.Summary
	for _, summary := range f.summaries {
		if summary.RecordingId == recordingId {
			out = append(out, summary)
		}
	}
	return out, nil
}

func (f *fakeRepo) recording(id uuid.UUID) *entities.Recording {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.recordings[id]
}
