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
	"github.com/slotwise/slotwise/services/reminder-service/internal/consumer"
	"github.com/slotwise/slotwise/services/reminder-service/internal/inbox"
	"github.com/slotwise/slotwise/services/reminder-service/internal/notify"
	"github.com/slotwise/slotwise/services/reminder-service/internal/reminders"
	"github.com/slotwise/slotwise/services/reminder-service/internal/storage"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	service := config.String("SERVICE_NAME", "reminder-service")
	port, err := config.Port("PORT", "8082")
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
	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	repo := storage.NewRepository(pool)

	var sender notify.Sender
	if url := strings.TrimSpace(config.String("CHAT_WEBHOOK_URL", "")); url != "" {
		sender = notify.NewWebhookSender(url, config.String("CHAT_WEBHOOK_TOKEN", ""))
	} else {
		sender = notify.NewNoopSender()
		logger.Warn("chat webhook not configured; reminders are dropped")
	}
	logger.Info("notification sender ready", "provider", sender.ProviderID())

	worker := reminders.NewWorker(repo, sender, logger, reminders.WorkerConfig{
		Interval: config.Duration("WORKER_INTERVAL", time.Minute),
	})
	go worker.Run(ctx)

	if brokers := config.String("KAFKA_BROKERS", ""); strings.TrimSpace(brokers) != "" {
		lifecycleConsumer := consumer.New(logger, inbox.NewRepository(pool), consumer.Config{
			Brokers: brokers,
			GroupID: config.String("KAFKA_GROUP_ID", "reminder-service"),
			Topics:  consumer.LifecycleTopics(),
		}, consumer.LifecycleHandler(repo, logger))
		go lifecycleConsumer.Run(ctx)
	} else {
		logger.Warn("kafka brokers not configured; lifecycle consumer disabled")
	}

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(config.String("KAFKA_BROKERS", ""))},
	)
	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "reminder")
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
