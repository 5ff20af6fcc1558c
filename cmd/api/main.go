package main

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/xavierca1/ligue-leads/internal/config"
	"github.com/xavierca1/ligue-leads/internal/infra/database"
	"github.com/xavierca1/ligue-leads/internal/infra/dispatch"
	"github.com/xavierca1/ligue-leads/internal/infra/http/handlers"
	"github.com/xavierca1/ligue-leads/internal/infra/http/middleware"
	"github.com/xavierca1/ligue-leads/internal/infra/mail"
	"github.com/xavierca1/ligue-leads/internal/infra/queue"
	"github.com/xavierca1/ligue-leads/internal/infra/ratelimit"
	"github.com/xavierca1/ligue-leads/internal/infra/worker"
	"github.com/xavierca1/ligue-leads/internal/usecase"
)

func main() {
	godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()

	db, err := database.NewDBConnection(cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		log.Fatal(err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	defer redisClient.Close()

	rabbitMQ, err := queue.NewRabbitMQ(cfg.RabbitDSN())
	if err != nil {
		log.Fatal(err)
	}
	defer rabbitMQ.Conn.Close()
	defer rabbitMQ.Ch.Close()

	// 1. Repositórios
	leadRepo := database.NewLeadRepository(db)
	attemptRepo := database.NewAttemptRepository(db)

	// 2. Spam guard sobre o contador compartilhado
	counter := ratelimit.NewRedisCounter(redisClient, cfg.RateLimitBucket, cfg.RateLimitBuckets)
	guard := usecase.NewSpamGuard(counter, usecase.SpamGuardConfig{
		HoneypotField: cfg.HoneypotField,
		MinFillTime:   cfg.MinFillTime,
		Threshold:     cfg.RateLimitThreshold,
	})

	// 3. Fan-out assíncrono e dispatcher de webhook
	producer := queue.NewProducer(rabbitMQ.Conn, rabbitMQ.Ch)
	sender := dispatch.NewHTTPWebhookSender(cfg.WebhookURL, cfg.WebhookSecret, cfg.WebhookTimeout)
	dispatcher := dispatch.NewDispatcher(leadRepo, attemptRepo, sender,
		cfg.MaxAttempts, cfg.BackoffBase, cfg.BackoffMax)

	if cfg.MailHost != "" && cfg.AlertEmail != "" {
		mailSender := mail.NewEmailSender(cfg.MailHost, cfg.MailPort, cfg.MailUser, cfg.MailPass, cfg.AlertEmail)
		dispatcher.WithAlerts(mailSender)
	}

	// 4. Workers: consumer da fila, poller de retry, limpeza por TTL
	queueWorker := queue.NewWorker(rabbitMQ.Ch, dispatcher)
	go queueWorker.Start(queue.QueueName)

	retryWorker := worker.NewRetryWorker(dispatcher, cfg.RetryPoll, cfg.MaxInFlight)
	go retryWorker.Start(ctx)

	ttlWorker := worker.NewTTLWorker(leadRepo)
	go ttlWorker.Start(ctx)

	// 5. UseCases
	validation := usecase.ValidationConfig{
		CustomFields:      cfg.CustomFields,
		MaxCustomFields:   cfg.MaxCustomFields,
		MaxCustomValueLen: cfg.MaxCustomValueLen,
	}
	captureUC := usecase.NewCaptureLeadUseCase(leadRepo, guard, producer, validation,
		cfg.IdempotencyBucket, cfg.LeadTTL)
	listUC := usecase.NewListLeadsUseCase(leadRepo, cfg.MaxPageSize)
	exportUC := usecase.NewExportLeadsUseCase(leadRepo, listUC)
	redriveUC := usecase.NewRedriveLeadUseCase(leadRepo, producer)

	// 6. Handlers
	leadHandler := handlers.NewLeadHandler(captureUC)
	listHandler := handlers.NewListHandler(listUC)
	exportHandler := handlers.NewExportHandler(exportUC)
	redriveHandler := handlers.NewRedriveHandler(redriveUC)
	healthHandler := handlers.NewHealthHandler(db, rabbitMQ.Conn, redisClient, cfg.WebhookURL)

	// 7. Router
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(middleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", middleware.APIKeyHeader},
	}))

	r.Post("/leads", leadHandler.Capture)

	r.Group(func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(cfg.APIKeys))
		r.Get("/leads", listHandler.Handle)
		r.Get("/leads/export", exportHandler.Handle)
		r.Post("/leads/{id}/redrive", redriveHandler.Handle)
	})

	r.Get("/health", healthHandler.Handle)
	r.Handle("/metrics", promhttp.Handler())

	port := ":" + cfg.Port
	log.Printf("🔥 Lead Capture API rodando na porta %s", port)
	http.ListenAndServe(port, r)
}
