// Package worker implements the long-running sweep daemon.
package worker

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"paysweep/internal/application/payment/usecases"
	"paysweep/internal/infrastructure/cache"
	"paysweep/internal/infrastructure/config"
	"paysweep/internal/infrastructure/database"
	"paysweep/internal/infrastructure/email"
	"paysweep/internal/infrastructure/gateway"
	"paysweep/internal/infrastructure/repository"
	"paysweep/internal/infrastructure/scheduler"
	"paysweep/internal/shared/db"
	"paysweep/internal/shared/logger"
)

var env string

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Start the scheduled reconciliation worker",
		Long: `Start the worker that runs the fast, deep and audit sweeps, the
daily track maintenance and the sweep health check on their schedules.`,
		RunE: run,
	}

	cmd.Flags().StringVarP(&env, "env", "e", "development", "Environment (development, test, production)")

	return cmd
}

// variantParams derives the per-variant sweep parameters from the configured
// fast-sweep baseline.
func variantParams(base usecases.SweepParams) (fast, deep, audit usecases.SweepParams) {
	fast = base

	// The deep sweep recovers orders the fast sweep gave up on: it includes
	// cancelled orders, tolerates more inquiry failures and reaches further
	// back. Refunds are not age-gated because everything it sees is old.
	deep = base
	deep.CheckCancelled = true
	deep.RefundAfter = 0
	deep.MaxInquiryFails = base.MaxInquiryFails + 2
	deep.LookBack = 48 * time.Hour

	// The audit sweep re-checks even refunded orders over the widest window
	// to surface double-settlement candidates.
	audit = deep
	audit.CheckExpired = true
	audit.LookBack = 72 * time.Hour
	return fast, deep, audit
}

func run(cmd *cobra.Command, args []string) error {
	if envVar := os.Getenv("ENV"); envVar != "" {
		env = envVar
	}

	cfg, err := config.Load(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(&cfg.Logger); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	log := logger.NewLogger()
	log.Infow("starting reconciliation worker", "environment", env)

	if err := database.Init(&cfg.Database); err != nil {
		log.Fatalw("failed to initialize database", "error", err)
	}
	defer database.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.GetAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(cmd.Context()).Err(); err != nil {
		log.Fatalw("failed to connect to redis", "error", err)
	}
	log.Infow("redis connection established", "address", cfg.Redis.GetAddr())

	gormDB := database.Get()

	orderRepo := repository.NewOrderRepository(gormDB)
	trackRepo := repository.NewTrackRepository(gormDB)
	userRepo := repository.NewUserRepository(gormDB)
	stateStore := cache.NewPaymentStateStore(redisClient)
	gw := gateway.NewZibalGateway(cfg.Gateway, log)
	tm := db.NewTransactionManager(gormDB)

	var notifier *email.AlertNotifier
	if cfg.Email.AdminAddress != "" {
		notifier = email.NewAlertNotifier(cfg.Email, log)
	}

	refundUC := usecases.NewRefundToWalletUseCase(orderRepo, userRepo, trackRepo, stateStore, tm, log)
	if notifier != nil {
		refundUC.SetNotifier(notifier)
	}
	verifyUC := usecases.NewVerifyPaymentUseCase(orderRepo, trackRepo, stateStore, gw, log)
	reconcileUC := usecases.NewReconcilePaymentsUseCase(orderRepo, trackRepo, stateStore, gw, refundUC, verifyUC, log)
	expireTracksUC := usecases.NewExpireTracksUseCase(trackRepo, log)
	cleanupTracksUC := usecases.NewCleanupTracksUseCase(trackRepo, log)

	locker := redsync.New(goredis.NewPool(redisClient))

	manager, err := scheduler.NewSchedulerManager(locker, stateStore, log)
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}
	if notifier != nil {
		manager.SetNotifier(notifier)
	}

	fastParams, deepParams, auditParams := variantParams(usecases.ParamsFromConfig(cfg.Sweep))

	if err := manager.RegisterSweepJobs(reconcileUC, fastParams, deepParams, auditParams); err != nil {
		return fmt.Errorf("failed to register sweep jobs: %w", err)
	}
	if err := manager.RegisterTrackMaintenanceJobs(
		expireTracksUC,
		cleanupTracksUC,
		time.Duration(cfg.Sweep.TrackExpireHours)*time.Hour,
		time.Duration(cfg.Sweep.TrackCleanupHours)*time.Hour,
	); err != nil {
		return fmt.Errorf("failed to register track maintenance jobs: %w", err)
	}
	if err := manager.RegisterHealthCheckJob(); err != nil {
		return fmt.Errorf("failed to register health check job: %w", err)
	}

	manager.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Infow("received signal, shutting down", "signal", sig)

	if err := manager.Stop(); err != nil {
		log.Errorw("scheduler shutdown failed", "error", err)
		return err
	}

	log.Infow("reconciliation worker stopped")
	return nil
}
