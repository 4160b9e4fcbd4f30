// Package scheduler provides unified scheduler management using gocron v2.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/go-redsync/redsync/v4"

	"paysweep/internal/application/payment"
	"paysweep/internal/application/payment/usecases"
	"paysweep/internal/shared/biztime"
	"paysweep/internal/shared/logger"
)

// Sweep variant names. They key the distributed run-locks and the heartbeat
// entries the health check reads.
const (
	VariantFast  = "fast"
	VariantDeep  = "deep"
	VariantAudit = "audit"
)

const (
	fastInterval        = 5 * time.Minute
	deepInterval        = time.Hour
	healthCheckInterval = 10 * time.Minute

	// A fast sweep that has not even started for this long means the worker
	// is down or wedged.
	notRunningThreshold = 15 * time.Minute
	// A sweep that runs but never completes points at a systemic failure
	// (gateway, database) rather than a dead worker.
	neverSucceedingThreshold = time.Hour

	sweepTimeout       = 10 * time.Minute
	maintenanceTimeout = 10 * time.Minute

	runLockPrefix = "paysweep:run:"
)

// SweepJob runs one reconciliation pass over candidate orders.
type SweepJob interface {
	Execute(ctx context.Context, params usecases.SweepParams) (usecases.SweepStats, error)
}

// TrackMaintenanceJob processes tracks older than the given age and returns
// the number of rows touched.
type TrackMaintenanceJob interface {
	Execute(ctx context.Context, olderThan time.Duration) (int, error)
}

// SchedulerManager manages all scheduled jobs using gocron v2. Each sweep
// variant runs under a Redis run-lock so overlapping deployments cannot
// reconcile the same orders concurrently, and records heartbeats the health
// check job inspects.
type SchedulerManager struct {
	scheduler gocron.Scheduler
	locker    *redsync.Redsync
	state     payment.StateStore
	notifier  usecases.OperatorNotifier
	logger    logger.Interface

	started   bool
	startedMu sync.RWMutex
}

func NewSchedulerManager(
	locker *redsync.Redsync,
	state payment.StateStore,
	log logger.Interface,
) (*SchedulerManager, error) {
	scheduler, err := gocron.NewScheduler(
		gocron.WithLocation(biztime.Location()),
	)
	if err != nil {
		return nil, err
	}

	return &SchedulerManager{
		scheduler: scheduler,
		locker:    locker,
		state:     state,
		logger:    log,
	}, nil
}

// SetNotifier wires the optional operator alert channel used by the health
// check job.
func (m *SchedulerManager) SetNotifier(n usecases.OperatorNotifier) {
	m.notifier = n
}

// RegisterSweepJobs registers the three reconciliation variants:
//   - fast: every 5 minutes, pending orders only, short look-back
//   - deep: hourly, includes cancelled orders for paid-after-cancel recovery
//   - audit: daily at 09:00 business time, widest look-back
func (m *SchedulerManager) RegisterSweepJobs(
	sweep SweepJob,
	fastParams, deepParams, auditParams usecases.SweepParams,
) error {
	_, err := m.scheduler.NewJob(
		gocron.DurationJob(fastInterval),
		gocron.NewTask(func() {
			m.runSweep(VariantFast, sweep, fastParams)
		}),
		gocron.WithStartAt(gocron.WithStartImmediately()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithTags("sweep", VariantFast),
		gocron.WithName("sweep-fast"),
	)
	if err != nil {
		return err
	}

	_, err = m.scheduler.NewJob(
		gocron.DurationJob(deepInterval),
		gocron.NewTask(func() {
			m.runSweep(VariantDeep, sweep, deepParams)
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithTags("sweep", VariantDeep),
		gocron.WithName("sweep-deep"),
	)
	if err != nil {
		return err
	}

	_, err = m.scheduler.NewJob(
		gocron.CronJob("0 9 * * *", false),
		gocron.NewTask(func() {
			m.runSweep(VariantAudit, sweep, auditParams)
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithTags("sweep", VariantAudit),
		gocron.WithName("sweep-audit"),
	)
	if err != nil {
		return err
	}

	m.logger.Infow("registered sweep jobs",
		"fast_interval", fastInterval,
		"deep_interval", deepInterval,
		"audit_cron", "0 9 * * *",
	)
	return nil
}

// RegisterTrackMaintenanceJobs registers the daily track housekeeping:
//   - 02:00 expire unused tracks past the retention window
//   - 03:00 delete tracks past the cleanup window
func (m *SchedulerManager) RegisterTrackMaintenanceJobs(
	expireJob TrackMaintenanceJob,
	cleanupJob TrackMaintenanceJob,
	expireAfter time.Duration,
	cleanupAfter time.Duration,
) error {
	_, err := m.scheduler.NewJob(
		gocron.CronJob("0 2 * * *", false),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), maintenanceTimeout)
			defer cancel()
			m.runTrackMaintenance(ctx, "track-expire", expireJob, expireAfter)
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithTags("track", "expire"),
		gocron.WithName("track-expire"),
	)
	if err != nil {
		return err
	}

	_, err = m.scheduler.NewJob(
		gocron.CronJob("0 3 * * *", false),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), maintenanceTimeout)
			defer cancel()
			m.runTrackMaintenance(ctx, "track-cleanup", cleanupJob, cleanupAfter)
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithTags("track", "cleanup"),
		gocron.WithName("track-cleanup"),
	)
	if err != nil {
		return err
	}

	m.logger.Infow("registered track maintenance jobs",
		"expire_after", expireAfter,
		"cleanup_after", cleanupAfter,
	)
	return nil
}

// RegisterHealthCheckJob registers the watchdog that inspects the fast
// sweep's heartbeats every 10 minutes.
func (m *SchedulerManager) RegisterHealthCheckJob() error {
	_, err := m.scheduler.NewJob(
		gocron.DurationJob(healthCheckInterval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			m.checkSweepHealth(ctx)
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithTags("health"),
		gocron.WithName("sweep-health-check"),
	)
	if err != nil {
		return err
	}

	m.logger.Infow("registered sweep health check", "interval", healthCheckInterval)
	return nil
}

func (m *SchedulerManager) runSweep(variant string, sweep SweepJob, params usecases.SweepParams) {
	// The lock expiry outlives the job timeout so a live holder is never
	// stolen from.
	mutex := m.locker.NewMutex(
		runLockPrefix+variant,
		redsync.WithExpiry(sweepTimeout+time.Minute),
		redsync.WithTries(1),
	)
	if err := mutex.Lock(); err != nil {
		m.logger.Debugw("sweep already running elsewhere, skipping",
			"variant", variant,
			"error", err,
		)
		return
	}
	defer func() {
		if _, err := mutex.Unlock(); err != nil {
			m.logger.Warnw("failed to release sweep run lock",
				"variant", variant,
				"error", err,
			)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	if err := m.state.SetLastRun(ctx, variant); err != nil {
		m.logger.Warnw("failed to record sweep heartbeat",
			"variant", variant,
			"error", err,
		)
	}

	startTime := biztime.NowUTC()
	stats, err := sweep.Execute(ctx, params)
	if err != nil {
		m.logger.Errorw("sweep failed",
			"variant", variant,
			"error", err,
			"duration", time.Since(startTime),
		)
		return
	}

	if err := m.state.SetLastSuccess(ctx, variant); err != nil {
		m.logger.Warnw("failed to record sweep success heartbeat",
			"variant", variant,
			"error", err,
		)
	}

	m.logger.Infow("sweep completed",
		"variant", variant,
		"checked", stats.Checked,
		"verified", stats.Verified,
		"refunded", stats.Refunded,
		"expired", stats.Expired,
		"cancelled", stats.Cancelled,
		"failed", stats.Failed,
		"skipped", stats.Skipped,
		"duration", time.Since(startTime),
	)
}

func (m *SchedulerManager) runTrackMaintenance(ctx context.Context, name string, job TrackMaintenanceJob, olderThan time.Duration) {
	startTime := biztime.NowUTC()

	count, err := job.Execute(ctx, olderThan)
	if err != nil {
		m.logger.Errorw("track maintenance failed",
			"job", name,
			"error", err,
			"duration", time.Since(startTime),
		)
		return
	}

	if count > 0 {
		m.logger.Infow("track maintenance completed",
			"job", name,
			"count", count,
			"duration", time.Since(startTime),
		)
	} else {
		m.logger.Debugw("no tracks to process",
			"job", name,
			"duration", time.Since(startTime),
		)
	}
}

// checkSweepHealth distinguishes a sweep that is not running at all from one
// that runs but never finishes. The first means the worker is down; the
// second means every pass is erroring out mid-flight.
func (m *SchedulerManager) checkSweepHealth(ctx context.Context) {
	now := biztime.NowUTC()

	lastRun, hasRun, err := m.state.LastRun(ctx, VariantFast)
	if err != nil {
		m.logger.Warnw("failed to read sweep heartbeat", "error", err)
		return
	}

	if hasRun && now.Sub(lastRun) > notRunningThreshold {
		detail := "fast sweep has not started since " + lastRun.Format(time.RFC3339)
		m.logger.Errorw("sweep not running",
			"variant", VariantFast,
			"last_run", lastRun,
		)
		m.alert(ctx, VariantFast, detail)
		return
	}

	lastSuccess, hasSuccess, err := m.state.LastSuccess(ctx, VariantFast)
	if err != nil {
		m.logger.Warnw("failed to read sweep success heartbeat", "error", err)
		return
	}

	// Running but never finishing is reported less aggressively; a single
	// slow gateway window should not page anyone.
	if hasRun && (!hasSuccess || now.Sub(lastSuccess) > neverSucceedingThreshold) {
		m.logger.Warnw("sweep running but not succeeding",
			"variant", VariantFast,
			"last_run", lastRun,
			"last_success", lastSuccess,
		)
		m.alert(ctx, VariantFast, "fast sweep runs but has not succeeded within the last hour")
	}
}

func (m *SchedulerManager) alert(ctx context.Context, variant, detail string) {
	if m.notifier == nil {
		return
	}
	if err := m.notifier.NotifySweepUnhealthy(ctx, variant, detail); err != nil {
		m.logger.Warnw("failed to send sweep health alert",
			"variant", variant,
			"error", err,
		)
	}
}

// Start starts the scheduler and all registered jobs.
func (m *SchedulerManager) Start() {
	m.startedMu.Lock()
	defer m.startedMu.Unlock()

	if m.started {
		return
	}

	m.scheduler.Start()
	m.started = true
	m.logger.Infow("scheduler manager started", "job_count", len(m.scheduler.Jobs()))
}

// Stop gracefully stops the scheduler.
// It waits for all running jobs to complete before returning.
func (m *SchedulerManager) Stop() error {
	m.startedMu.Lock()
	defer m.startedMu.Unlock()

	if !m.started {
		return nil
	}

	m.logger.Infow("stopping scheduler manager")

	err := m.scheduler.Shutdown()
	m.started = false

	if err != nil {
		m.logger.Errorw("scheduler manager shutdown with error", "error", err)
		return err
	}

	m.logger.Infow("scheduler manager stopped")
	return nil
}

// IsStarted returns whether the scheduler is running.
func (m *SchedulerManager) IsStarted() bool {
	m.startedMu.RLock()
	defer m.startedMu.RUnlock()
	return m.started
}
