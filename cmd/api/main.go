package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"

	"github.com/omnicart/api/internal/di"
	"github.com/omnicart/api/internal/handlers"
	"github.com/omnicart/api/internal/platform/auth"
	"github.com/omnicart/api/internal/platform/config"
	pfirestore "github.com/omnicart/api/internal/platform/firestore"
	"github.com/omnicart/api/internal/platform/jobs"
	"github.com/omnicart/api/internal/platform/observability"
	firestoreRepo "github.com/omnicart/api/internal/repositories/firestore"
	"github.com/omnicart/api/internal/services"
)

func main() {
	ctx := context.Background()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("api")
	ctx = observability.WithLogger(ctx, logger)

	cfg, err := config.Load()
	if err != nil {
		var validation *config.ValidationError
		if errors.As(err, &validation) {
			logger.Fatal("invalid configuration", zap.Strings("fields", validation.Fields()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	firestoreProvider := pfirestore.NewProvider(cfg.Firestore)
	firestoreClient, err := firestoreProvider.Client(ctx)
	if err != nil {
		logger.Fatal("failed to initialise firestore client", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := firestoreProvider.Close(closeCtx); err != nil {
			logger.Warn("firestore close error", zap.Error(err))
		}
	}()

	registry, err := firestoreRepo.NewRegistry(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise repositories", zap.Error(err))
	}

	var publisher services.NotificationEventPublisher
	var pubsubClient *pubsub.Client
	if cfg.PubSub.ProjectID != "" && cfg.PubSub.NotificationTopic != "" {
		pubsubClient, err = pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			logger.Fatal("failed to initialise pubsub client", zap.Error(err))
		}
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logger.Warn("pubsub close error", zap.Error(err))
			}
		}()

		topic := pubsubClient.Topic(cfg.PubSub.NotificationTopic)
		publisher, err = jobs.NewPubSubNotificationPublisher(topic)
		if err != nil {
			logger.Fatal("failed to initialise notification publisher", zap.Error(err))
		}
	} else {
		logger.Info("notification publishing disabled; pubsub topic not configured")
	}

	serviceLogger := newServiceEventLogger(logger.Named("services"))

	container, err := di.NewContainer(ctx, cfg, registry, di.ContainerOptions{
		Publisher: publisher,
		Logger:    serviceLogger,
	})
	if err != nil {
		logger.Fatal("failed to build service container", zap.Error(err))
	}

	var authenticator *auth.Authenticator
	if cfg.Firebase.ProjectID != "" {
		verifier, err := auth.NewFirebaseVerifier(ctx, cfg.Firebase)
		if err != nil {
			logger.Fatal("failed to initialise firebase verifier", zap.Error(err))
		}
		authenticator = auth.NewAuthenticator(verifier)
	} else {
		logger.Warn("firebase project not configured; requests will be rejected as unauthenticated")
	}

	middlewares := []func(http.Handler) http.Handler{
		observability.InjectLoggerMiddleware(logger.Named("http")),
		observability.TraceMiddleware(cfg.Firestore.ProjectID),
		observability.RecoveryMiddleware(logger.Named("http")),
		observability.RequestLoggerMiddleware(cfg.Firestore.ProjectID),
	}

	healthOpts := []handlers.HealthOption{
		handlers.WithReadinessProbe("firestore", firestorePing(firestoreClient)),
	}
	if pubsubClient != nil {
		topicName := cfg.PubSub.NotificationTopic
		client := pubsubClient
		healthOpts = append(healthOpts, handlers.WithReadinessProbe("pubsub", func(ctx context.Context) error {
			ok, err := client.Topic(topicName).Exists(ctx)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("topic %s does not exist", topicName)
			}
			return nil
		}))
	}

	orderHandlers := handlers.NewOrderHandlers(authenticator, container.Services.Orders, container.Services.Cancellations)
	vendorHandlers := handlers.NewVendorHandlers(authenticator, container.Services.Orders, container.Services.Stock)
	csrHandlers := handlers.NewCSRHandlers(authenticator, container.Services.Orders, container.Services.Cancellations)
	adminHandlers := handlers.NewAdminHandlers(authenticator, container.Services.Orders)
	notificationHandlers := handlers.NewNotificationHandlers(authenticator, container.Services.Notifications)

	router := handlers.NewRouter(
		handlers.WithMiddlewares(middlewares...),
		handlers.WithHealthHandlers(handlers.NewHealthHandlers(healthOpts...)),
		handlers.WithOrderRoutes(orderHandlers.Routes),
		handlers.WithVendorRoutes(vendorHandlers.Routes),
		handlers.WithCSRRoutes(csrHandlers.Routes),
		handlers.WithAdminRoutes(adminHandlers.Routes),
		handlers.WithNotificationRoutes(notificationHandlers.Routes),
		handlers.WithAdditionalRoutes(orderHandlers.RegisterStandaloneRoutes),
	)

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("omnicart api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}

	if err := container.Close(shutdownCtx); err != nil {
		logger.Warn("container close error", zap.Error(err))
	}
}

// firestorePing lists a single collection to confirm the client can reach the backend.
func firestorePing(client *firestore.Client) handlers.ReadinessProbe {
	return func(ctx context.Context) error {
		if client == nil {
			return errors.New("firestore client not initialised")
		}
		pingCtx, cancel := context.WithTimeout(ctx, 1500*time.Millisecond)
		defer cancel()
		iter := client.Collections(pingCtx)
		if _, err := iter.Next(); err != nil && !errors.Is(err, iterator.Done) {
			return err
		}
		return nil
	}
}

// newServiceEventLogger adapts the zap logger to the service layer's event callback.
func newServiceEventLogger(logger *zap.Logger) func(ctx context.Context, event string, fields map[string]any) {
	return func(ctx context.Context, event string, fields map[string]any) {
		if logger == nil || strings.TrimSpace(event) == "" {
			return
		}
		zapFields := make([]zap.Field, 0, len(fields))
		for key, value := range fields {
			zapFields = append(zapFields, zap.Any(key, value))
		}
		logger.Info(event, zapFields...)
	}
}
