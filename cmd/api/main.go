package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-order-dashboard/internal/auth"
	"github.com/imrishuroy/go-order-dashboard/internal/aws"
	"github.com/imrishuroy/go-order-dashboard/internal/config"
	"github.com/imrishuroy/go-order-dashboard/internal/dashboard"
	orderevents "github.com/imrishuroy/go-order-dashboard/internal/events"
	"github.com/imrishuroy/go-order-dashboard/internal/handlers"
	"github.com/imrishuroy/go-order-dashboard/internal/logging"
	"github.com/imrishuroy/go-order-dashboard/internal/metrics"
	"github.com/imrishuroy/go-order-dashboard/internal/orders"
	"github.com/imrishuroy/go-order-dashboard/internal/sanity"
	"github.com/imrishuroy/go-order-dashboard/internal/session"
	"github.com/imrishuroy/go-order-dashboard/internal/view"
)

const shutdownTimeout = 5 * time.Second

func setupRouter(logger *zap.Logger, cfg handlers.HandlerConfig) *gin.Engine {
	r := gin.New()
	r.Use(logging.RequestID())
	r.Use(logging.GinMiddleware(logger))
	r.Use(logging.Recovery(logger))

	handlers.RegisterHealthRoutes(r)
	handlers.RegisterDashboardRoutes(r, cfg)

	return r
}

// needsAWS reports whether any configured component talks to AWS.
func needsAWS(cfg *config.Config) bool {
	return cfg.StoreBackend == config.BackendDynamoDB ||
		cfg.OrderEventsQueueURL != "" ||
		cfg.MetricsNamespace != ""
}

func newOrderStore(cfg *config.Config, clients *aws.AWSClients) (orders.Store, error) {
	if cfg.StoreBackend == config.BackendDynamoDB {
		return orders.NewDynamoStore(clients.DynamoDB, cfg.Dynamo.OrdersTable, cfg.Dynamo.ProductsTable), nil
	}
	client, err := sanity.NewClient(sanity.Config{
		ProjectID:  cfg.Sanity.ProjectID,
		Dataset:    cfg.Sanity.Dataset,
		APIVersion: cfg.Sanity.APIVersion,
		Token:      cfg.Sanity.Token,
		Timeout:    cfg.Sanity.Timeout,
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}

func newStateStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (dashboard.StateStore, func(), error) {
	if cfg.Redis.Addr == "" {
		logger.Info("using in-memory dashboard state")
		return dashboard.NewMemoryStateStore(), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	logger.Info("using redis dashboard state", zap.String("addr", cfg.Redis.Addr))
	return session.NewRedisStore(client, cfg.Redis.SessionTTL), func() { _ = client.Close() }, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()

	var clients *aws.AWSClients
	if needsAWS(cfg) {
		clients, err = aws.NewAWSClients(ctx)
		if err != nil {
			logger.Fatal("failed to init aws clients", zap.Error(err))
		}
	}

	store, err := newOrderStore(cfg, clients)
	if err != nil {
		logger.Fatal("failed to create order store", zap.Error(err))
	}

	states, closeStates, err := newStateStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer closeStates()

	opts := dashboard.Options{SerializeMutations: cfg.SerializeMutations}
	if cfg.OrderEventsQueueURL != "" {
		opts.Events = orderevents.NewSQSPublisher(aws.NewPublisher(clients.SQS, cfg.OrderEventsQueueURL))
	}
	if cfg.MetricsNamespace != "" {
		opts.Metrics = metrics.NewCloudWatchRecorder(clients.CloudWatch, cfg.MetricsNamespace, logger)
	}

	var images view.ImageResolver = view.Passthrough{}
	if cfg.Sanity.ProjectID != "" && cfg.Sanity.Dataset != "" {
		images = sanity.NewImageURLBuilder(cfg.Sanity.ProjectID, cfg.Sanity.Dataset)
	}

	templates, err := view.Templates()
	if err != nil {
		logger.Fatal("failed to parse templates", zap.Error(err))
	}

	r := setupRouter(logger, handlers.HandlerConfig{
		Service:   dashboard.NewService(store, states, opts),
		Views:     view.NewBuilder(images),
		Templates: templates,
		Guard:     auth.NewGuard(cfg.Auth.JWTSecret, cfg.Auth.Issuer),
	})

	logger.Info("dashboard configured",
		zap.String("store_backend", cfg.StoreBackend),
		zap.Bool("events", cfg.OrderEventsQueueURL != ""),
		zap.Bool("metrics", cfg.MetricsNamespace != ""),
		zap.Bool("serialize_mutations", cfg.SerializeMutations))

	// RUN_LOCAL serves plain HTTP for development instead of the Lambda runtime.
	if cfg.RunLocal {
		runLocal(r, cfg.HTTPAddr, logger)
		return
	}

	adapter := ginadapter.New(r)

	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (interface{}, error) {
		return adapter.ProxyWithContext(ctx, req)
	})
}

func runLocal(r *gin.Engine, addr string, logger *zap.Logger) {
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("running local server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("local server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down local server")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
}
