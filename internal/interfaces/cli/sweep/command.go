// Package sweep implements the one-shot reconciliation command used by
// operators and external cron.
package sweep

import (
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"paysweep/internal/application/payment/usecases"
	"paysweep/internal/infrastructure/cache"
	"paysweep/internal/infrastructure/config"
	"paysweep/internal/infrastructure/database"
	"paysweep/internal/infrastructure/email"
	"paysweep/internal/infrastructure/gateway"
	"paysweep/internal/infrastructure/repository"
	"paysweep/internal/shared/db"
	"paysweep/internal/shared/logger"
)

var (
	env             string
	refundAfter     int
	checkInterval   int
	expireAfter     int
	lookBackHours   int
	maxInquiryFails int
	checkCancelled  bool
	checkExpired    bool
	debug           bool
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check-pending",
		Short: "Run one reconciliation pass over candidate orders",
		Long: `Run one reconciliation pass: inquire every candidate order at the
gateway and settle it according to the reported status. Flags override the
configured sweep thresholds for this invocation only.`,
		RunE: run,
	}

	cmd.Flags().StringVarP(&env, "env", "e", "development", "Environment (development, test, production)")
	cmd.Flags().IntVar(&refundAfter, "refund-after", 0, "Minimum order age in minutes before a refund is allowed")
	cmd.Flags().IntVar(&checkInterval, "check-interval", 0, "Minimum minutes between gateway inquiries per order")
	cmd.Flags().IntVar(&expireAfter, "expire-after", 0, "Order age in minutes after which an uncharged order is cancelled")
	cmd.Flags().IntVar(&lookBackHours, "hours", 0, "Candidate look-back window in hours")
	cmd.Flags().IntVar(&maxInquiryFails, "max-inquiry-fails", 0, "Consecutive inquiry failures before the refund path opens")
	cmd.Flags().BoolVar(&checkCancelled, "check-cancelled", false, "Include cancelled orders (paid-after-cancel recovery)")
	cmd.Flags().BoolVar(&checkExpired, "check-expired", false, "Re-check already refunded orders")
	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging")

	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	if envVar := os.Getenv("ENV"); envVar != "" {
		env = envVar
	}

	cfg, err := config.Load(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if debug {
		cfg.Logger.Level = "debug"
	}
	if err := logger.Init(&cfg.Logger); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	sweepCfg := cfg.Sweep
	if cmd.Flags().Changed("refund-after") {
		sweepCfg.RefundAfterMinutes = refundAfter
	}
	if cmd.Flags().Changed("check-interval") {
		sweepCfg.CheckIntervalMinutes = checkInterval
	}
	if cmd.Flags().Changed("expire-after") {
		sweepCfg.ExpireAfterMinutes = expireAfter
	}
	if cmd.Flags().Changed("hours") {
		sweepCfg.LookBackHours = lookBackHours
	}
	if cmd.Flags().Changed("max-inquiry-fails") {
		sweepCfg.MaxInquiryFails = maxInquiryFails
	}
	if cmd.Flags().Changed("check-cancelled") {
		sweepCfg.CheckCancelled = checkCancelled
	}
	if cmd.Flags().Changed("check-expired") {
		sweepCfg.CheckExpired = checkExpired
	}
	params := usecases.ParamsFromConfig(sweepCfg)

	if err := database.Init(&cfg.Database); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.GetAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	ctx := cmd.Context()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}

	log := logger.NewLogger()
	gormDB := database.Get()

	orderRepo := repository.NewOrderRepository(gormDB)
	trackRepo := repository.NewTrackRepository(gormDB)
	userRepo := repository.NewUserRepository(gormDB)
	stateStore := cache.NewPaymentStateStore(redisClient)
	gw := gateway.NewZibalGateway(cfg.Gateway, log)
	tm := db.NewTransactionManager(gormDB)

	refundUC := usecases.NewRefundToWalletUseCase(orderRepo, userRepo, trackRepo, stateStore, tm, log)
	if cfg.Email.AdminAddress != "" {
		refundUC.SetNotifier(email.NewAlertNotifier(cfg.Email, log))
	}
	verifyUC := usecases.NewVerifyPaymentUseCase(orderRepo, trackRepo, stateStore, gw, log)
	reconcileUC := usecases.NewReconcilePaymentsUseCase(orderRepo, trackRepo, stateStore, gw, refundUC, verifyUC, log)

	stats, err := reconcileUC.Execute(ctx, params)
	if err != nil {
		return fmt.Errorf("reconciliation pass failed: %w", err)
	}

	fmt.Printf("checked=%d verified=%d refunded=%d expired=%d cancelled=%d failed=%d skipped=%d\n",
		stats.Checked, stats.Verified, stats.Refunded, stats.Expired,
		stats.Cancelled, stats.Failed, stats.Skipped)

	return nil
}
