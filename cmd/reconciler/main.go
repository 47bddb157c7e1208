// The reconciler sweeps pending settlements whose vendor outcome never
// arrived and audits account balances against the ledger. It runs on a cron
// schedule alongside the API servers; every step it takes is idempotent, so
// overlapping or repeated sweeps are safe.
package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/ovomonie/banking-service/internal/adapters/paystack"
	"github.com/ovomonie/banking-service/internal/adapters/postgres"
	"github.com/ovomonie/banking-service/internal/adapters/rabbitmq"
	"github.com/ovomonie/banking-service/internal/adapters/vfd"
	"github.com/ovomonie/banking-service/internal/auth"
	"github.com/ovomonie/banking-service/internal/config"
	"github.com/ovomonie/banking-service/internal/ledger"
	"github.com/ovomonie/banking-service/internal/services"
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

	db := postgres.NewDBExecutor(pool)
	accounts := postgres.NewAccountRepository(db)
	store := postgres.NewLedgerStore(db)
	settles := postgres.NewSettlementRepository(db)
	cardRepo := postgres.NewCardRepository(db)
	notifRepo := postgres.NewNotificationRepository(db)

	vendor := vfd.NewClient(vfd.Config{
		WalletBaseURL:  cfg.VFDWalletBaseURL,
		CardsBaseURL:   cfg.VFDCardsBaseURL,
		BillsBaseURL:   cfg.VFDBillsBaseURL,
		TokenURL:       cfg.VFDTokenURL,
		StaticToken:    cfg.VFDStaticToken,
		ConsumerKey:    cfg.VFDConsumerKey,
		ConsumerSecret: cfg.VFDConsumerSecret,
		RequestTimeout: cfg.VFDTimeout(),
	}, logger)
	wallet := vfd.NewWalletAdapter(vendor)
	cardGW := vfd.NewCardsAdapter(vendor)
	billsGW := vfd.NewBillsAdapter(vendor)
	paymentGW := paystack.NewClient(paystack.Config{
		BaseURL:        cfg.PaystackBaseURL,
		SecretKey:      cfg.PaystackSecretKey,
		RequestTimeout: cfg.VFDTimeout(),
	}, logger)

	publisher := &rabbitmq.FallbackPublisher{Logger: logger}
	notifications := services.NewNotificationService(notifRepo, publisher, logger)
	engine := ledger.NewEngine(store, notifications, logger)

	// PIN checks never run here; the account service only satisfies the
	// card service's constructor.
	tokens := auth.NewTokenIssuer(cfg.TokenSecret, cfg.TokenTTL())
	var limiterClient redis.UniversalClient
	limiter := auth.NewRedisAttemptLimiter(limiterClient, cfg.RateLimitPrefix)
	accountSvc := services.NewAccountService(accounts, store, tokens, limiter, logger)

	fundingSvc := services.NewFundingService(engine, settles, cardGW, paymentGW, notifications, logger)
	cardSvc := services.NewCardService(engine, cardRepo, settles, cardGW, accountSvc, notifications, logger)

	reconciler := services.NewReconcilerService(
		engine, settles, accounts, store,
		wallet, cardGW, billsGW, paymentGW,
		fundingSvc, cardSvc, notifications, logger,
	)
	reconciler.StaleAfterMinutes = cfg.ReconcileStaleMinutes
	reconciler.BatchSize = cfg.ReconcileBatchSize

	scheduler := cron.New()
	_, err = scheduler.AddFunc(cfg.ReconcileSchedule, func() {
		if err := reconciler.Run(context.Background()); err != nil {
			logger.Error("reconcile sweep failed", zap.Error(err))
		}
	})
	if err != nil {
		logger.Fatal("invalid reconcile schedule",
			zap.String("schedule", cfg.ReconcileSchedule), zap.Error(err))
	}

	logger.Info("reconciler started", zap.String("schedule", cfg.ReconcileSchedule))
	scheduler.Start()

	<-ctx.Done()
	logger.Info("shutting down")
	<-scheduler.Stop().Done()
	logger.Info("stopped")
}
