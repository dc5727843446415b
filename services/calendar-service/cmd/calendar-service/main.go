package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/slotwise/slotwise/libs/config"
	"github.com/slotwise/slotwise/libs/db"
	"github.com/slotwise/slotwise/libs/httpx"
	"github.com/slotwise/slotwise/libs/kafkax"
	otelx "github.com/slotwise/slotwise/libs/otel"
	"github.com/slotwise/slotwise/libs/runtime"
	"github.com/slotwise/slotwise/services/calendar-service/internal/consumer"
	"github.com/slotwise/slotwise/services/calendar-service/internal/gcal"
	"github.com/slotwise/slotwise/services/calendar-service/internal/handlers"
	"github.com/slotwise/slotwise/services/calendar-service/internal/inbox"
	"github.com/slotwise/slotwise/services/calendar-service/internal/outbox"
	"github.com/slotwise/slotwise/services/calendar-service/internal/pull"
	"github.com/slotwise/slotwise/services/calendar-service/internal/storage"
	"github.com/slotwise/slotwise/services/calendar-service/internal/sync"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	service := config.String("SERVICE_NAME", "calendar-service")
	port, err := config.Port("PORT", "8083")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	jwtSecret, err := config.RequiredString("JWT_SECRET")
	if err != nil {
		panic(err)
	}
	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	repo := storage.NewRepository(pool)
	remote := gcal.NewClient(
		config.String("GOOGLE_CLIENT_ID", ""),
		config.String("GOOGLE_CLIENT_SECRET", ""),
		repo,
	)
	syncer := sync.NewSyncer(repo, remote, logger)
	outboxRepo := outbox.NewRepository(pool)

	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: config.Duration("OUTBOX_POLL_INTERVAL", 2*time.Second),
		BatchSize: config.Int("OUTBOX_BATCH_SIZE", 50),
	})
	go outboxPublisher.Run(ctx)

	if brokers := config.String("KAFKA_BROKERS", ""); strings.TrimSpace(brokers) != "" {
		lifecycleConsumer := consumer.New(logger, inbox.NewRepository(pool), consumer.Config{
			Brokers: brokers,
			GroupID: config.String("KAFKA_GROUP_ID", "calendar-service"),
			Topics:  consumer.LifecycleTopics(),
		}, consumer.LifecycleHandler(syncer, logger))
		go lifecycleConsumer.Run(ctx)
	} else {
		logger.Warn("kafka brokers not configured; lifecycle consumer disabled")
	}

	poller := pull.NewPoller(pool, repo, remote, outboxRepo, logger, pull.PollerConfig{
		Interval: config.Duration("PULL_INTERVAL", 15*time.Minute),
		Horizon:  config.Duration("PULL_HORIZON", 14*24*time.Hour),
	})
	go poller.Run(ctx)

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(config.String("KAFKA_BROKERS", ""))},
	)

	bindingHandler := handlers.NewBindingHandler(repo, logger)
	admin := handlers.RequireMaster(jwtSecret)
	mux.Handle("/api/v1/admin/calendar/binding", admin(http.HandlerFunc(bindingHandler.Binding)))

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "calendar")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
