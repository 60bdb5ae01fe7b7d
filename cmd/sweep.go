package cmd

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"worker-scribe/config"
	"worker-scribe/pkg/rabbitmq"
	"worker-scribe/repository"
	"worker-scribe/service"
)

// sweep runs one batch of the safety-net driver from the command line,
// re-dispatching recordings stuck before transcription.
func sweep(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "dispatch stuck recordings once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
			ctx := logger.WithContext(context.Background())

			conn, err := config.NewRabbitMQConn(ctx, cfg.Queue)
			if err != nil {
				return err
			}
			defer conn.Close()

			repo := repository.NewRepo(cfg.DB)
			publisher := rabbitmq.NewPublisher(conn, cfg.Queue)

			results, err := service.NewSweepService(repo, publisher).Run(ctx)
			if err != nil {
				return err
			}

			for _, result := range results {
				logger.Info().
					Str("recording_id", result.RecordingId.String()).
					Bool("dispatched", result.Dispatched).
					Str("error", result.Error).
					Send()
			}
			return nil
		},
	}
}
