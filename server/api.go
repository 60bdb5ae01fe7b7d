package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"worker-scribe/constant"
	"worker-scribe/dto"
	"worker-scribe/pkg/notify"
	"worker-scribe/pkg/rabbitmq"
	"worker-scribe/repository"
	"worker-scribe/service"
)

type api struct {
	repo         repository.RecordingRepository
	uploads      service.UploadService
	summaries    service.SummarizationService
	sweeper      service.SweepService
	publisher    rabbitmq.JobPublisher
	rdb          *redis.Client
	pollInterval time.Duration
	upgrader     websocket.Upgrader
}

func newAPI(repo repository.RecordingRepository, uploads service.UploadService, summaries service.SummarizationService, sweeper service.SweepService, publisher rabbitmq.JobPublisher, rdb *redis.Client) *api {
	return &api{
		repo:         repo,
		uploads:      uploads,
		summaries:    summaries,
		sweeper:      sweeper,
		publisher:    publisher,
		rdb:          rdb,
		pollInterval: notify.DefaultPollInterval,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (a *api) register(r *gin.Engine) {
	r.POST("/recordings", a.uploadRecording)
	r.GET("/recordings", a.listRecordings)
	r.DELETE("/recordings/:id", a.deleteRecording)
	r.POST("/recordings/:id/transcribe", a.triggerTranscription)
	r.POST("/recordings/:id/summarize", a.summarizeRecording)
	r.GET("/recordings/:id/summaries", a.listSummaries)
	r.GET("/recordings/:id/status", a.recordingStatus)
	r.GET("/recordings/:id/watch", a.watchRecording)
	r.GET("/internal/sweep", a.sweep)
}

// Authentication is handled by the fronting application; it forwards the
// authenticated user's id in a header.
func ownerID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.GetHeader("X-User-ID"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid user id"})
		return uuid.Nil, false
	}
	return id, true
}

func recordingID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid recording id"})
		return uuid.Nil, false
	}
	return id, true
}

func (a *api) uploadRecording(c *gin.Context) {
	userId, ok := ownerID(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read file"})
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read file"})
		return
	}

	recording, err := a.uploads.Store(c.Request.Context(), userId, fileHeader.Filename, fileHeader.Header.Get("Content-Type"), data, nil)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("upload failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store recording"})
		return
	}

	c.JSON(http.StatusCreated, recording)
}

func (a *api) listRecordings(c *gin.Context) {
	userId, ok := ownerID(c)
	if !ok {
		return
	}

	recordings, err := a.repo.ListRecordingsByUser(c.Request.Context(), userId)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list recordings"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"recordings": recordings})
}

func (a *api) deleteRecording(c *gin.Context) {
	userId, ok := ownerID(c)
	if !ok {
		return
	}
	id, ok := recordingID(c)
	if !ok {
		return
	}

	if err := a.uploads.Delete(c.Request.Context(), userId, id); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "recording not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete recording"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

func (a *api) triggerTranscription(c *gin.Context) {
	userId, ok := ownerID(c)
	if !ok {
		return
	}
	id, ok := recordingID(c)
	if !ok {
		return
	}

	if _, err := a.repo.FindRecordingById(c.Request.Context(), id, userId); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "recording not found"})
		return
	}

	msg := dto.TranscribeMessage{RecordingId: id, UserId: userId}
	if err := a.publisher.PublishTranscribe(c.Request.Context(), msg); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start transcription"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"message": "transcription started", "recordingId": id})
}

func (a *api) summarizeRecording(c *gin.Context) {
	if _, ok := ownerID(c); !ok {
		return
	}
	id, ok := recordingID(c)
	if !ok {
		return
	}

	summary, err := a.summaries.Summarize(c.Request.Context(), id)
	if err != nil {
		var parseErr *service.ParseError
		switch {
		case errors.Is(err, service.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "transcription not found"})
		case errors.As(err, &parseErr):
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to parse summary JSON", "raw": parseErr.Raw})
		default:
			zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("summarization failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "summarization failed"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "summary": summary})
}

func (a *api) listSummaries(c *gin.Context) {
	userId, ok := ownerID(c)
	if !ok {
		return
	}
	id, ok := recordingID(c)
	if !ok {
		return
	}

	summaries, err := a.summaries.ListSummaries(c.Request.Context(), userId, id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "recording not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list summaries"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"summaries": summaries})
}

func (a *api) recordingStatus(c *gin.Context) {
	userId, ok := ownerID(c)
	if !ok {
		return
	}
	id, ok := recordingID(c)
	if !ok {
		return
	}

	source := &statusSource{repo: a.repo, userId: userId}
	event, err := source.Current(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "recording not found"})
		return
	}

	var transcription any
	if event.Transcript != "" {
		transcription = gin.H{"content": event.Transcript}
	}
	c.JSON(http.StatusOK, gin.H{
		"recording": gin.H{
			"id":     id,
			"status": event.Status,
			"error":  event.ErrorMessage,
		},
		"transcription": transcription,
		"timestamp":     time.Now().UTC(),
	})
}

// watchRecording streams status events over a websocket until the recording
// reaches a terminal state or the client goes away.
func (a *api) watchRecording(c *gin.Context) {
	userId, ok := ownerID(c)
	if !ok {
		return
	}
	id, ok := recordingID(c)
	if !ok {
		return
	}

	// Reject unknown or foreign recordings before committing a socket to them.
	if _, err := a.repo.FindRecordingById(c.Request.Context(), id, userId); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "recording not found"})
		return
	}

	conn, err := a.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// Drain reads so client close frames are noticed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	source := &statusSource{repo: a.repo, userId: userId}
	watcher := notify.NewWatcher(a.rdb, source, a.pollInterval)
	for event := range watcher.Watch(ctx, id) {
		if err := conn.WriteJSON(event); err != nil {
			return
		}
	}
}

func (a *api) sweep(c *gin.Context) {
	results, err := a.sweeper.Run(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if len(results) == 0 {
		c.JSON(http.StatusOK, gin.H{"message": "no pending recordings found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"processed": results})
}

// statusSource adapts the repository to the watcher, scoped to the owner who
// opened the subscription.
type statusSource struct {
	repo   repository.RecordingRepository
	userId uuid.UUID
}

func (s *statusSource) Current(ctx context.Context, id uuid.UUID) (dto.StatusEvent, error) {
	recording, err := s.repo.FindRecordingById(ctx, id, s.userId)
	if err != nil {
		return dto.StatusEvent{}, err
	}

	event := dto.StatusEvent{
		RecordingId: recording.ID,
		Status:      recording.Status,
	}
	if recording.ErrorMessage != nil {
		event.ErrorMessage = *recording.ErrorMessage
	}
	if recording.Status == constant.RecordingStatusCompleted {
		transcript, err := s.repo.FindTranscriptByRecordingId(ctx, id)
		if err == nil {
			event.Transcript = transcript.Content
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.StatusEvent{}, err
		}
	}

	return event, nil
}
