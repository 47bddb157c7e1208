package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ovomonie/banking-service/internal/adapters/paystack"
	"github.com/ovomonie/banking-service/internal/adapters/postgres"
	"github.com/ovomonie/banking-service/internal/adapters/rabbitmq"
	"github.com/ovomonie/banking-service/internal/adapters/vfd"
	"github.com/ovomonie/banking-service/internal/auth"
	"github.com/ovomonie/banking-service/internal/config"
	"github.com/ovomonie/banking-service/internal/domain/ports"
	"github.com/ovomonie/banking-service/internal/handlers"
	"github.com/ovomonie/banking-service/internal/ledger"
	"github.com/ovomonie/banking-service/internal/services"
	"github.com/ovomonie/banking-service/pkg/observability"
)

func main() {
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.Load(".")
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("connect postgres", zap.Error(err))
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logger.Fatal("ping postgres", zap.Error(err))
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal("parse redis url", zap.Error(err))
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable at startup", zap.Error(err))
		}
	}

	var publisher ports.EventPublisher
	if cfg.RabbitMQURL != "" {
		producer, err := rabbitmq.NewEventProducer(cfg.RabbitMQURL, logger)
		if err != nil {
			logger.Warn("rabbitmq unavailable, events will be dropped", zap.Error(err))
			publisher = &rabbitmq.FallbackPublisher{Logger: logger}
		} else {
			publisher = producer
		}
	} else {
		publisher = &rabbitmq.FallbackPublisher{Logger: logger}
	}
	defer publisher.Close()

	db := postgres.NewDBExecutor(pool)
	accounts := postgres.NewAccountRepository(db)
	store := postgres.NewLedgerStore(db)
	settles := postgres.NewSettlementRepository(db)
	cardRepo := postgres.NewCardRepository(db)
	loanRepo := postgres.NewLoanRepository(db)
	payrollRepo := postgres.NewPayrollRepository(db)
	invoiceRepo := postgres.NewInvoiceRepository(db)
	notifRepo := postgres.NewNotificationRepository(db)
	securityRepo := postgres.NewSecurityQuestionRepository(db)
	subscriptionRepo := postgres.NewSubscriptionRepository(db)
	mandateRepo := postgres.NewMandateRepository(db)

	vendor := vfd.NewClient(vfd.Config{
		WalletBaseURL:  cfg.VFDWalletBaseURL,
		CardsBaseURL:   cfg.VFDCardsBaseURL,
		BillsBaseURL:   cfg.VFDBillsBaseURL,
		MandateBaseURL: cfg.VFDMandateBaseURL,
		TokenURL:       cfg.VFDTokenURL,
		StaticToken:    cfg.VFDStaticToken,
		ConsumerKey:    cfg.VFDConsumerKey,
		ConsumerSecret: cfg.VFDConsumerSecret,
		RequestTimeout: cfg.VFDTimeout(),
	}, logger)
	wallet := vfd.NewWalletAdapter(vendor)
	cardGW := vfd.NewCardsAdapter(vendor)
	billsGW := vfd.NewBillsAdapter(vendor)
	mandateGW := vfd.NewMandateAdapter(vendor)
	paymentGW := paystack.NewClient(paystack.Config{
		BaseURL:        cfg.PaystackBaseURL,
		SecretKey:      cfg.PaystackSecretKey,
		RequestTimeout: cfg.VFDTimeout(),
	}, logger)

	tokens := auth.NewTokenIssuer(cfg.TokenSecret, cfg.TokenTTL())
	var limiterClient redis.UniversalClient
	if redisClient != nil {
		limiterClient = redisClient
	}
	limiter := auth.NewRedisAttemptLimiter(limiterClient, cfg.RateLimitPrefix)

	notifications := services.NewNotificationService(notifRepo, publisher, logger)
	engine := ledger.NewEngine(store, notifications, logger)

	accountSvc := services.NewAccountService(accounts, store, tokens, limiter, logger)
	transferSvc := services.NewTransferService(engine, accounts, store, settles, wallet, accountSvc, logger)
	fundingSvc := services.NewFundingService(engine, settles, cardGW, paymentGW, notifications, logger)
	cardSvc := services.NewCardService(engine, cardRepo, settles, cardGW, accountSvc, notifications, logger)
	billsSvc := services.NewBillsService(engine, accounts, settles, billsGW, accountSvc, logger)
	loanSvc := services.NewLoanService(engine, loanRepo, accounts, accountSvc, logger)
	payrollSvc := services.NewPayrollService(engine, payrollRepo, accounts, accountSvc, logger)
	invoiceSvc := services.NewInvoiceService(engine, invoiceRepo, accounts, transferSvc, logger)
	securitySvc := services.NewSecurityService(securityRepo, limiter, logger)
	subscriptionSvc := services.NewSubscriptionService(subscriptionRepo, logger)
	mandateSvc := services.NewMandateService(mandateRepo, mandateGW, logger)

	router := handlers.NewRouter(handlers.Deps{
		Tokens:        tokens,
		Limiter:       limiter,
		Accounts:      handlers.NewAccountHandlers(accountSvc, logger),
		Transfers:     handlers.NewTransferHandlers(transferSvc, logger),
		Funding:       handlers.NewFundingHandlers(fundingSvc, accountSvc, logger),
		Bills:         handlers.NewBillsHandlers(billsSvc, logger),
		Cards:         handlers.NewCardHandlers(cardSvc, accountSvc, logger),
		Loans:         handlers.NewLoanHandlers(loanSvc, logger),
		Payroll:       handlers.NewPayrollHandlers(payrollSvc, logger),
		Invoices:      handlers.NewInvoiceHandlers(invoiceSvc, logger),
		Security:      handlers.NewSecurityHandlers(securitySvc, logger),
		Subscriptions: handlers.NewSubscriptionHandlers(subscriptionSvc, logger),
		Mandates:      handlers.NewMandateHandlers(mandateSvc, logger),
		Notifications: handlers.NewNotificationHandlers(notifications, logger),
		Webhooks:      handlers.NewWebhookHandlers(cfg.WebhookSecret, fundingSvc, cardSvc, logger),
		Logger:        logger,
	})

	health := observability.NewHealthChecker(pool, redisClient)
	metricsServer := observability.StartMetricsServer(cfg.MetricsPort, health, logger)

	apiServer := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("api server listening", zap.String("port", cfg.ServerPort))
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("api server shutdown", zap.Error(err))
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", zap.Error(err))
	}
	logger.Info("stopped")
}
