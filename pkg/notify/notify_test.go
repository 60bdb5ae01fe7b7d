package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worker-scribe/constant"
	"worker-scribe/dto"
)

type fakeSource struct {
	mu    sync.Mutex
	event dto.StatusEvent
	err   error
}

func (f *fakeSource) Current(_ context.Context, _ uuid.UUID) (dto.StatusEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.event, f.err
}

func (f *fakeSource) set(event dto.StatusEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.event = event
	f.err = nil
}

func receiveEvent(t *testing.T, events <-chan dto.StatusEvent) dto.StatusEvent {
	t.Helper()
	select {
	case event, ok := <-events:
		require.True(t, ok, "event stream closed unexpectedly")
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for status event")
		return dto.StatusEvent{}
	}
}

func expectClosed(t *testing.T, events <-chan dto.StatusEvent) {
	t.Helper()
	select {
	case _, ok := <-events:
		assert.False(t, ok, "expected stream to be closed")
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for stream to close")
	}
}

func TestWatcherDeliversTransitionsViaPolling(t *testing.T) {
	id := uuid.New()
	source := &fakeSource{event: dto.StatusEvent{RecordingId: id, Status: constant.RecordingStatusProcessing}}
	watcher := NewWatcher(nil, source, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := watcher.Watch(ctx, id)

	assert.Equal(t, constant.RecordingStatusProcessing, receiveEvent(t, events).Status)

	source.set(dto.StatusEvent{RecordingId: id, Status: constant.RecordingStatusTranscribing})
	assert.Equal(t, constant.RecordingStatusTranscribing, receiveEvent(t, events).Status)

	source.set(dto.StatusEvent{RecordingId: id, Status: constant.RecordingStatusCompleted, Transcript: "all done"})
	final := receiveEvent(t, events)
	assert.Equal(t, constant.RecordingStatusCompleted, final.Status)
	assert.Equal(t, "all done", final.Transcript)

	// Terminal status ends the subscription.
	expectClosed(t, events)
}

func TestWatcherDeduplicatesUnchangedStatus(t *testing.T) {
	id := uuid.New()
	source := &fakeSource{event: dto.StatusEvent{RecordingId: id, Status: constant.RecordingStatusTranscribing}}
	watcher := NewWatcher(nil, source, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := watcher.Watch(ctx, id)

	receiveEvent(t, events)

	// Many poll ticks with no transition: no further deliveries.
	select {
	case event := <-events:
		t.Fatalf("unexpected duplicate delivery: %+v", event)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestWatcherClosesAfterFailedStatus(t *testing.T) {
	id := uuid.New()
	source := &fakeSource{event: dto.StatusEvent{
		RecordingId:  id,
		Status:       constant.RecordingStatusFailed,
		ErrorMessage: "speech-to-text engine returned status 500",
	}}
	watcher := NewWatcher(nil, source, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := watcher.Watch(ctx, id)

	event := receiveEvent(t, events)
	assert.Equal(t, constant.RecordingStatusFailed, event.Status)
	assert.NotEmpty(t, event.ErrorMessage)
	expectClosed(t, events)
}

func TestWatcherSurvivesPollErrors(t *testing.T) {
	id := uuid.New()
	source := &fakeSource{err: assert.AnError}
	watcher := NewWatcher(nil, source, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := watcher.Watch(ctx, id)

	// Polls fail for a while, then the source recovers.
	time.Sleep(20 * time.Millisecond)
	source.set(dto.StatusEvent{RecordingId: id, Status: constant.RecordingStatusCompleted})

	assert.Equal(t, constant.RecordingStatusCompleted, receiveEvent(t, events).Status)
}

func TestWatcherStopsOnCancel(t *testing.T) {
	id := uuid.New()
	source := &fakeSource{event: dto.StatusEvent{RecordingId: id, Status: constant.RecordingStatusProcessing}}
	watcher := NewWatcher(nil, source, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	events := watcher.Watch(ctx, id)
	receiveEvent(t, events)

	cancel()
	expectClosed(t, events)
}
