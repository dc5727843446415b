package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/slotwise/slotwise/libs/config"
	"github.com/slotwise/slotwise/libs/db"
	"github.com/slotwise/slotwise/libs/httpx"
	"github.com/slotwise/slotwise/libs/kafkax"
	otelx "github.com/slotwise/slotwise/libs/otel"
	"github.com/slotwise/slotwise/libs/runtime"
	"github.com/slotwise/slotwise/services/booking-service/internal/consumer"
	"github.com/slotwise/slotwise/services/booking-service/internal/handlers"
	"github.com/slotwise/slotwise/services/booking-service/internal/inbox"
	"github.com/slotwise/slotwise/services/booking-service/internal/outbox"
	"github.com/slotwise/slotwise/services/booking-service/internal/storage"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	service := config.String("SERVICE_NAME", "booking-service")
	port, err := config.Port("PORT", "8081")
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

	jwtSecret, err := config.RequiredString("JWT_SECRET")
	if err != nil {
		panic(err)
	}

	catalogRepo := storage.NewCatalogRepository(pool)
	availabilityRepo := storage.NewAvailabilityRepository(pool)
	bookingRepo := storage.NewBookingRepository(pool)
	outboxRepo := outbox.NewRepository(pool)

	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: config.Duration("OUTBOX_POLL_INTERVAL", 2*time.Second),
		BatchSize: config.Int("OUTBOX_BATCH_SIZE", 50),
	})
	go outboxPublisher.Run(ctx)

	if brokers := config.String("KAFKA_BROKERS", ""); strings.TrimSpace(brokers) != "" {
		eventsConsumer := consumer.New(logger, inbox.NewRepository(pool), consumer.Config{
			Brokers: brokers,
			GroupID: config.String("KAFKA_GROUP_ID", "booking-service"),
			Topics:  []string{consumer.TopicBusyImported, consumer.TopicMasterRegistered},
		}, consumer.Dispatch(map[string]consumer.Handler{
			consumer.TopicBusyImported:     consumer.BusyImportHandler(availabilityRepo, logger),
			consumer.TopicMasterRegistered: consumer.MasterRegisteredHandler(catalogRepo, logger),
		}))
		go eventsConsumer.Run(ctx)
	}

	slotsHandler := handlers.NewSlotsHandler(catalogRepo, availabilityRepo, bookingRepo, logger)
	bookingHandler := handlers.NewBookingHandler(catalogRepo, availabilityRepo, bookingRepo, outboxRepo, logger)
	availabilityHandler := handlers.NewAvailabilityHandler(availabilityRepo, logger)
	catalogHandler := handlers.NewCatalogHandler(catalogRepo, logger)

	var rateLimitMW httpx.Middleware
	if addr := strings.TrimSpace(config.String("REDIS_ADDR", "")); addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.String("REDIS_PASSWORD", ""),
			DB:       config.Int("REDIS_DB", 0),
		})
		defer func() { _ = rdb.Close() }()

		rl := httpx.NewRedisRateLimiter(rdb, config.Int("RATE_LIMIT_PER_MINUTE", 60), time.Minute, config.String("RATE_LIMIT_PREFIX", "rl"))
		rateLimitMW = rl.Middleware(logger, config.String("RATE_LIMIT_FAIL_OPEN", "true") == "true")
		logger.Info("rate limiting enabled (redis)", "redis_addr", addr)
	} else {
		rl := httpx.NewRateLimiter(config.Int("RATE_LIMIT_PER_MINUTE", 60), time.Minute)
		rateLimitMW = rl.Middleware()
		logger.Info("rate limiting enabled (in-memory)")
	}

	public := func(h http.HandlerFunc) http.Handler {
		return httpx.Chain(h, rateLimitMW)
	}
	adminMW := handlers.RequireMaster(jwtSecret)
	admin := func(h http.HandlerFunc) http.Handler {
		return adminMW(h)
	}

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(config.String("KAFKA_BROKERS", ""))},
	)
	mux.Handle("/api/v1/public/slots", public(slotsHandler.List))
	mux.Handle("/api/v1/public/bookings", public(bookingHandler.Create))
	mux.Handle("/api/v1/public/bookings/get", public(bookingHandler.Get))
	mux.Handle("/api/v1/public/bookings/reschedule", public(bookingHandler.Reschedule))
	mux.Handle("/api/v1/public/bookings/cancel", public(bookingHandler.Cancel))

	mux.Handle("/api/v1/admin/availability/rules", admin(availabilityHandler.Rules))
	mux.Handle("/api/v1/admin/availability/windows", admin(availabilityHandler.Windows))
	mux.Handle("/api/v1/admin/availability/exclusions", admin(availabilityHandler.Exclusions))
	mux.Handle("/api/v1/admin/availability/blocks", admin(availabilityHandler.Blocks))
	mux.Handle("/api/v1/admin/services", admin(catalogHandler.Services))
	mux.Handle("/api/v1/admin/settings", admin(catalogHandler.Settings))
	mux.Handle("/api/v1/admin/bookings", admin(bookingHandler.List))
	mux.Handle("/api/v1/admin/bookings/create", admin(bookingHandler.AdminCreate))
	mux.Handle("/api/v1/admin/bookings/confirm", admin(bookingHandler.Confirm))
	mux.Handle("/api/v1/admin/bookings/complete", admin(bookingHandler.Complete))
	mux.Handle("/api/v1/admin/bookings/cancel", admin(bookingHandler.Cancel))
	mux.Handle("/api/v1/admin/bookings/reschedule", admin(bookingHandler.Reschedule))

	httpHandler := httpx.Chain(mux,
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: splitList(config.String("CORS_ALLOWED_ORIGINS", "")),
			AllowedMethods: splitList(config.String("CORS_ALLOWED_METHODS", "GET,POST,PUT,DELETE,OPTIONS")),
			AllowedHeaders: splitList(config.String("CORS_ALLOWED_HEADERS", "Authorization,Content-Type,X-Request-Id")),
			MaxAge:         config.Duration("CORS_MAX_AGE", 10*time.Minute),
		}),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(1<<20),
		httpx.WithTimeout(config.Duration("REQUEST_TIMEOUT", 30*time.Second)),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "booking")
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

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
