package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"newsbot/api"
	"newsbot/orchestrator"
	"newsbot/shared/kafka"
	"newsbot/types"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the admin API, run scheduled cycles and consume ingest events",
	Long: `Start the long-running service:

  - the admin HTTP API on $PORT
  - scheduled cycles (07:30, 13:30 and 18:00 Taipei time unless SCHEDULE is set)
  - a Kafka consumer on articles.ingested that runs a pass per event (when KAFKA_BROKERS is set)`,
	RunE: func(cmd *cobra.Command, args []string) error {
		noSchedule, _ := cmd.Flags().GetBool("no-schedule")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		rt, err := newRuntime(ctx, cfg, runtimeOptions{ingest: true})
		if err != nil {
			return err
		}
		defer rt.Close()

		if !noSchedule {
			scheduler, err := orchestrator.NewScheduler(rt.runner, cfg.Schedule)
			if err != nil {
				return err
			}
			scheduler.Start()
			defer func() { <-scheduler.Stop().Done() }()
		}

		if cfg.KafkaEnabled() {
			consumer, err := startIngestConsumer(ctx, rt)
			if err != nil {
				log.Warn().Err(err).Msg("Warning: failed to start Kafka consumer (event-driven passes disabled)")
			} else {
				defer consumer.Close()
			}
		}

		gin.SetMode(gin.ReleaseMode)
		deps := api.Dependencies{Runner: rt.runner, Articles: rt.store}
		if rt.archiver != nil {
			deps.Archive = rt.archiver
		}
		srv := &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           api.NewRouter(deps),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			log.Info().Str("addr", srv.Addr).Msg("Starting API server")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("server error: %w", err)
			}
		case <-ctx.Done():
			log.Info().Msg("shutting down")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func startIngestConsumer(ctx context.Context, rt *runtime) (*kafka.Consumer, error) {
	handler := &kafka.TypedMessageHandler[types.IngestEvent]{
		Validate: func(ev *types.IngestEvent) bool { return ev.Inserted > 0 },
		Process: func(ctx context.Context, ev *types.IngestEvent) error {
			log.Info().Int("inserted", ev.Inserted).Msg("ingest event received; running pass")
			_, err := rt.runner.RunPass(ctx, nil)
			if errors.Is(err, orchestrator.ErrBusy) {
				// the running cycle already covers these articles
				return nil
			}
			return err
		},
		AlwaysMark: true,
	}

	consumer, err := kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers: cfg.KafkaBrokers,
		Topic:   kafka.TopicIngested,
		GroupID: cfg.KafkaGroupID,
		Handler: handler,
	})
	if err != nil {
		return nil, err
	}

	if err := consumer.Start(ctx); err != nil {
		consumer.Close()
		return nil, err
	}
	return consumer, nil
}

func init() {
	serveCmd.Flags().Bool("no-schedule", false, "Disable scheduled cycles")
	rootCmd.AddCommand(serveCmd)
}
