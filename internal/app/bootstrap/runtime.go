package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"github.com/vendora/marketplace-ledger/internal/adapters/cache"
	eventadapter "github.com/vendora/marketplace-ledger/internal/adapters/events"
	"github.com/vendora/marketplace-ledger/internal/adapters/gateway"
	grpcadapter "github.com/vendora/marketplace-ledger/internal/adapters/grpc"
	httpadapter "github.com/vendora/marketplace-ledger/internal/adapters/http"
	"github.com/vendora/marketplace-ledger/internal/adapters/memory"
	"github.com/vendora/marketplace-ledger/internal/adapters/postgres"
	"github.com/vendora/marketplace-ledger/internal/application"
	"github.com/vendora/marketplace-ledger/internal/ports"
)

type Runtime struct {
	cfg        Config
	logger     *slog.Logger
	httpServer *http.Server
	grpcServer *grpc.Server
	grpcLis    net.Listener
	outbox     *eventadapter.OutboxWorker
	consumer   *eventadapter.ConsumerWorker
	retries    *eventadapter.RetryWorker
	cleanupFn  func(context.Context)
}

func NewRuntime(ctx context.Context, configPath string) (*Runtime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})).With("service", cfg.ServiceID)
	slog.SetDefault(logger)

	var closers []io.Closer
	cleanup := func(context.Context) {
		for _, closer := range closers {
			_ = closer.Close()
		}
	}

	deps := application.Dependencies{
		Config: application.Config{
			ServiceName:          cfg.ServiceID,
			DefaultCurrency:      cfg.DefaultCurrency,
			IdempotencyTTL:       cfg.IdempotencyTTL,
			EventDedupTTL:        cfg.EventDedupTTL,
			OutboxFlushBatchSize: cfg.OutboxFlushBatchSize,
			GatewayTimeout:       cfg.GatewayTimeout,
			PayoutMaxRetries:     cfg.PayoutMaxRetries,
		},
	}

	if cfg.DatabaseURL != "" {
		db, dbErr := postgres.Connect(ctx, cfg.DatabaseURL, cfg.MaxDBConns)
		if dbErr != nil {
			return nil, dbErr
		}
		sqlDB, sqlErr := db.DB()
		if sqlErr != nil {
			return nil, sqlErr
		}
		closers = append(closers, sqlDB)
		if migErr := postgres.RunMigrations(ctx, db); migErr != nil {
			cleanup(ctx)
			return nil, migErr
		}
		repos := postgres.NewRepositories(db)
		deps.Escrows = repos.Escrows
		deps.Ledger = repos.Ledger
		deps.Rules = repos.Rules
		deps.Payouts = repos.Payouts
		deps.Settlements = repos.Settlements
		deps.Refunds = repos.Refunds
		deps.Invoices = repos.Invoices
		deps.Idempotency = repos.Idempotency
		deps.EventDedup = repos.EventDedup
		deps.Outbox = repos.Outbox
	} else {
		logger.WarnContext(ctx, "database_url not configured, using in-memory repositories")
		repos := memory.NewRepositories()
		deps.Escrows = repos.Escrows
		deps.Ledger = repos.Ledger
		deps.Rules = repos.Rules
		deps.Payouts = repos.Payouts
		deps.Settlements = repos.Settlements
		deps.Refunds = repos.Refunds
		deps.Invoices = repos.Invoices
		deps.Idempotency = repos.Idempotency
		deps.EventDedup = repos.EventDedup
		deps.Outbox = repos.Outbox
	}

	if cfg.RedisURL != "" {
		redisClient, redisErr := cache.Connect(ctx, cfg.RedisURL)
		if redisErr != nil {
			cleanup(ctx)
			return nil, redisErr
		}
		closers = append(closers, redisClient)
		deps.Locks = cache.NewRedisPaymentLocker(redisClient, cfg.LockLease)
	} else {
		deps.Locks = memory.NewPaymentLocker()
	}

	if cfg.PaymentGatewayURL != "" {
		deps.PaymentGateway = gateway.NewHTTPPaymentGateway(cfg.PaymentGatewayURL, cfg.PaymentGatewayKey, cfg.GatewayTimeout)
	} else {
		logger.WarnContext(ctx, "payment gateway not configured, using stub gateway")
		deps.PaymentGateway = gateway.NewStubPaymentGateway()
	}
	if cfg.PayoutGatewayURL != "" {
		deps.PayoutGateway = gateway.NewHTTPPayoutGateway(cfg.PayoutGatewayURL, cfg.PayoutGatewayKey, cfg.GatewayTimeout)
	} else {
		logger.WarnContext(ctx, "payout gateway not configured, using stub gateway")
		deps.PayoutGateway = gateway.NewStubPayoutGateway()
	}

	var consumerAdapter ports.EventConsumer = eventadapter.NewMemoryConsumer()
	var dlqPublisher ports.DLQPublisher = eventadapter.NewMemoryDLQPublisher()
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher, pubErr := eventadapter.NewKafkaPublisher(cfg.KafkaBrokers, cfg.TopicLedgerEvents, cfg.TopicLedgerAnalytics, cfg.DLQTopic)
		if pubErr != nil {
			cleanup(ctx)
			return nil, pubErr
		}
		closers = append(closers, kafkaPublisher)
		deps.DomainEvents = kafkaPublisher
		deps.Analytics = kafkaPublisher
		dlqPublisher = kafkaPublisher

		kafkaConsumer, conErr := eventadapter.NewKafkaConsumer(
			cfg.KafkaBrokers,
			cfg.KafkaConsumerGroup,
			[]string{cfg.TopicOrderPaymentConfirmed, cfg.TopicShipmentDelivered},
		)
		if conErr != nil {
			cleanup(ctx)
			return nil, conErr
		}
		closers = append(closers, kafkaConsumer)
		consumerAdapter = kafkaConsumer
	} else {
		logger.WarnContext(ctx, "kafka brokers not configured, using in-memory event adapters")
		deps.DomainEvents = eventadapter.NewMemoryDomainPublisher()
		deps.Analytics = eventadapter.NewMemoryAnalyticsPublisher()
	}
	deps.DLQ = dlqPublisher

	service := application.NewService(deps)

	handler := httpadapter.NewHandler(service)
	router := httpadapter.NewRouter(handler)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer := grpc.NewServer()
	grpcadapter.Register(grpcServer, grpcadapter.NewLedgerInternalServer(service))
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPCPort))
	if err != nil {
		cleanup(ctx)
		return nil, err
	}

	return &Runtime{
		cfg:        cfg,
		logger:     logger,
		httpServer: httpServer,
		grpcServer: grpcServer,
		grpcLis:    lis,
		outbox:     eventadapter.NewOutboxWorker(logger, service, cfg.OutboxPollInterval),
		consumer:   eventadapter.NewConsumerWorker(logger, consumerAdapter, dlqPublisher, service, cfg.ConsumerPollInterval),
		retries:    eventadapter.NewRetryWorker(logger, service, cfg.RetrySweepInterval),
		cleanupFn:  cleanup,
	}, nil
}

func (r *Runtime) RunAPI(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	errCh := make(chan error, 2)

	go func() {
		if err := r.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	go func() {
		if err := r.grpcServer.Serve(r.grpcLis); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		r.logger.ErrorContext(ctx, "runtime failure", "error", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = r.httpServer.Shutdown(shutdownCtx)
	r.grpcServer.GracefulStop()
	r.cleanupFn(shutdownCtx)
	return nil
}

func (r *Runtime) RunWorker(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	errCh := make(chan error, 3)

	go func() {
		if err := r.outbox.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- err
		}
	}()
	go func() {
		if err := r.consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- err
		}
	}()
	go func() {
		if err := r.retries.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		r.cleanupFn(context.Background())
		return nil
	case err := <-errCh:
		r.cleanupFn(context.Background())
		return err
	}
}
