package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	httpadapter "github.com/couchcryptid/location-search/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/location-search/internal/adapter/kafka"
	"github.com/couchcryptid/location-search/internal/domain"
	"github.com/couchcryptid/location-search/internal/publish"
	"github.com/couchcryptid/location-search/internal/search"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP search service",
	Long: `Serves /v1/suggestions and /v1/locations plus /healthz, /readyz and
/metrics on HTTP_ADDR. With KAFKA_ENABLED=true every resolved location is
published to KAFKA_LOCATION_TOPIC.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(parent context.Context) error {
	// The service logs to stdout; the shared logger also becomes slog's default.
	a, err := newApp(sharedobs.NewLogger, sharedCacheSize)
	if err != nil {
		return err
	}
	logger := a.logger

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		ctrl     *search.Controller
		pub      *publish.Publisher
		writer   *kafkaadapter.Writer
		handlers search.Handlers
		checks   []sharedobs.ReadinessChecker
	)
	if a.cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(a.cfg, logger)
		pub = publish.New(writer, logger, a.metrics, a.cfg.BatchSize, a.cfg.BatchFlushInterval)
		handlers.SetLocation = func(loc domain.Location) {
			rec := domain.SelectedLocation{Location: loc, SessionID: ctrl.ID(), ResolvedAt: domain.Now()}
			if err := pub.Publish(ctx, rec); err != nil {
				logger.Warn("location not published", "place_id", loc.PlaceID, "error", err)
			}
		}
		checks = append(checks, pub)
		logger.Info("location publishing enabled", "topic", a.cfg.KafkaLocationTopic, "brokers", a.cfg.KafkaBrokers)
	} else {
		logger.Info("location publishing disabled")
	}

	ctrl = a.newController(handlers)
	checks = append(checks, ctrl)
	srv := httpadapter.NewServer(a.cfg.HTTPAddr, ctrl, httpadapter.AllReady(checks...), logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if pub != nil {
		g.Go(func() error {
			return pub.Run(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
		ctrl.Close()
		return nil
	})

	err = g.Wait()
	if writer != nil {
		if cerr := writer.Close(); cerr != nil {
			logger.Error("kafka writer close error", "error", cerr)
		}
	}
	logger.Info("shutdown complete")
	return err
}
