package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"worker-scribe/config"
	"worker-scribe/constant"
	jobHandler "worker-scribe/handler"
	"worker-scribe/pkg/deepgram"
	"worker-scribe/pkg/notify"
	"worker-scribe/pkg/rabbitmq"
	"worker-scribe/pkg/storage"
	"worker-scribe/pkg/summarizer"
	"worker-scribe/repository"
	"worker-scribe/service"
)

func RunHttp(cfg *config.Config) {
	ctx, cancel := signal.NotifyContext(setupLogger(cfg), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.Ctx(ctx).Info().Str("env", cfg.App.Environment).Bool("isProduction", cfg.App.Environment == constant.EnvironmentProduction.String()).Send()
	if cfg.App.Environment == constant.EnvironmentProduction.String() {
		gin.SetMode(gin.ReleaseMode)
	}

	conn, err := config.NewRabbitMQConn(ctx, cfg.Queue)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("NewRabbitMQConn")
		return
	}

	repo := repository.NewRepo(cfg.DB)
	store := storage.NewMinioStore(cfg.Storage, cfg.MinIOBucket)
	transfer := storage.NewTransfer(store, cfg.Upload.ChunkSize, cfg.Upload.ChunkThreshold, cfg.Upload.MaxParallel)
	engine := deepgram.NewClient(cfg.Deepgram.URL, cfg.Deepgram.APIKey, cfg.Deepgram.RetryWait)
	model := summarizer.NewClient(cfg.Summarizer.URL, cfg.Summarizer.APIKey, cfg.Summarizer.Model, cfg.Summarizer.Temperature)
	notifier := notify.NewNotifier(cfg.Redis)
	publisher := rabbitmq.NewPublisher(conn, cfg.Queue)

	transcriptionService := service.NewTranscriptionService(repo, store, engine, notifier)
	summarizationService := service.NewSummarizationService(repo, model)
	uploadService := service.NewUploadService(repo, transfer, store, publisher, cfg.Upload.MaxFileSize)
	sweepService := service.NewSweepService(repo, publisher)

	serviceDeps := jobHandler.ServiceDependencies{
		TranscriptionService: transcriptionService,
		SummarizationService: summarizationService,
	}

	transcribeConsumer := rabbitmq.NewConsumer(conn, cfg.Queue, rabbitmq.Binding{
		Exchange:   rabbitmq.TranscribeExchange,
		Queue:      rabbitmq.TranscribeQueue,
		RoutingKey: rabbitmq.TranscribeRoutingKey,
	}, cfg.Server.Workers, jobHandler.TranscribeHandler)
	go func() {
		if err := transcribeConsumer.Consume(ctx, serviceDeps); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Msg("transcribe consumer error")
		}
	}()

	summarizeConsumer := rabbitmq.NewConsumer(conn, cfg.Queue, rabbitmq.Binding{
		Exchange:   rabbitmq.SummarizeExchange,
		Queue:      rabbitmq.SummarizeQueue,
		RoutingKey: rabbitmq.SummarizeRoutingKey,
	}, cfg.Server.Workers, jobHandler.SummarizeHandler)
	go func() {
		if err := summarizeConsumer.Consume(ctx, serviceDeps); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Msg("summarize consumer error")
		}
	}()

	r := gin.Default()
	addHealth(r)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	newAPI(repo, uploadService, summarizationService, sweepService, publisher, cfg.Redis).register(r)

	handler := http.Server{
		Handler:           r,
		Addr:              fmt.Sprintf(":%s", cfg.Server.HttpPort),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zerolog.Ctx(ctx).Info().Str("env", cfg.App.Environment).Msg("start http server")
		if err := handler.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zerolog.Ctx(ctx).Error().Str("env", cfg.App.Environment).Msg(err.Error())
		}
	}()

	<-ctx.Done()
	zerolog.Ctx(ctx).Info().Msg("shutting down server")
	if err := handler.Shutdown(ctx); err != nil {
		zerolog.Ctx(ctx).Error().Str("env", cfg.App.Environment).Msg(err.Error())
	}

	zerolog.Ctx(ctx).Info().Str("env", cfg.App.Environment).Msg("server shutdown")
}

func addHealth(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})
}

func setupLogger(cfg *config.Config) context.Context {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if cfg.App.Environment == constant.EnvironmentDevelop.String() {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	// Log to standard output
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	ctx := logger.WithContext(context.Background())

	return ctx
}
