// Package main is the entry point for the API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/tenantworks/platform/internal/broadcast"
	"github.com/tenantworks/platform/internal/config"
	"github.com/tenantworks/platform/internal/handler"
	"github.com/tenantworks/platform/internal/middleware"
	"github.com/tenantworks/platform/internal/presence"
	"github.com/tenantworks/platform/internal/service"
	"github.com/tenantworks/platform/internal/store"
	"github.com/tenantworks/platform/pkg/logger"
	"github.com/tenantworks/platform/pkg/tracing"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("starting API server")

	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "platform-api", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Postgres
	db, err := store.Connect(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns, cfg.DatabaseConnLifetime)
	if err != nil {
		log.Error("failed to connect to database", zap.Error(err))
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Bootstrap(ctx); err != nil {
		log.Error("failed to bootstrap schema", zap.Error(err))
		os.Exit(1)
	}

	// Redis (typing presence)
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer rdb.Close()
	typingStore := presence.New(rdb, cfg.TypingTTL)

	// NATS (broadcast fabric)
	natsClient, err := broadcast.Connect(ctx, broadcast.Config{
		URL:      cfg.NATSURL,
		CAFile:   cfg.NATSCAFile,
		CertFile: cfg.NATSCertFile,
		KeyFile:  cfg.NATSKeyFile,
		Token:    cfg.NATSToken,
	}, log)
	if err != nil {
		log.Error("failed to connect to NATS", zap.Error(err))
		os.Exit(1)
	}
	defer natsClient.Close()

	publisher := broadcast.NewPublisher(natsClient)
	if err := publisher.EnsureStream(ctx); err != nil {
		log.Error("failed to ensure event stream", zap.Error(err))
		os.Exit(1)
	}

	// Stores
	conversationStore := store.NewConversationStore(db)
	messageStore := store.NewMessageStore(db)
	navigationStore := store.NewNavigationStore(db)
	permissionStore := store.NewPermissionStore(db)

	authorizer := broadcast.NewAuthorizer(conversationStore)

	// Services
	conversationSvc := service.NewConversationService(conversationStore, publisher, log)
	messageSvc := service.NewMessageService(conversationStore, messageStore, typingStore, publisher, log)
	navigationSvc := service.NewNavigationService(navigationStore, permissionStore, log)

	// Handlers
	healthHandler := handler.NewHealthHandler(db, natsClient, typingStore)
	conversationHandler := handler.NewConversationHandler(conversationSvc, log)
	messageHandler := handler.NewMessageHandler(messageSvc, log)
	navigationHandler := handler.NewNavigationHandler(navigationSvc, log)
	streamHandler := handler.NewStreamHandler(publisher, authorizer, log)

	// Router
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"Link", "X-Correlation-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Route("/conversations", func(r chi.Router) {
			r.Post("/", conversationHandler.Create)
			r.Get("/", conversationHandler.List)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", conversationHandler.Get)
				r.Delete("/", conversationHandler.Delete)

				r.Post("/participants", conversationHandler.AddParticipant)
				r.Delete("/participants/me", conversationHandler.Leave)
				r.Post("/read", conversationHandler.MarkRead)

				r.Get("/messages", messageHandler.List)
				r.Post("/messages", messageHandler.Send)
				r.Put("/messages/{messageID}", messageHandler.Edit)

				r.Post("/typing", messageHandler.Typing)
				r.Get("/typing", messageHandler.TypingUsers)
			})
		})

		r.Route("/navigation", func(r chi.Router) {
			r.Get("/current", navigationHandler.Current)
			r.Get("/items", navigationHandler.Items)

			r.Route("/configurations", func(r chi.Router) {
				r.Post("/", navigationHandler.Save)
				r.Get("/", navigationHandler.List)
				r.Get("/{id}", navigationHandler.Get)
				r.Delete("/{id}", navigationHandler.Delete)
				r.Post("/{id}/activate", navigationHandler.Activate)
			})
		})

		r.Get("/events", streamHandler.Events)
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}
