package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/mpcredit/financing-engine/internal/config"
	"github.com/mpcredit/financing-engine/internal/database"
	"github.com/mpcredit/financing-engine/internal/lock"
	"github.com/mpcredit/financing-engine/internal/logger"
	"github.com/mpcredit/financing-engine/internal/repository"
	"github.com/mpcredit/financing-engine/internal/service"
)

// reminderWindow is how far ahead the weekly reminder job looks for due dates.
const reminderWindow = 3 * 24 * time.Hour

const jobTimeout = 10 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	log := logger.New(cfg.Logging)
	log.Info("Starting financing scheduler...")

	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	// The scheduler shares contract locks with the API servers, so the
	// in-process mutex is only safe when both run in a single process.
	var locker lock.Locker = lock.NewRedisLocker(redisClient, cfg.Business.LockTTL, cfg.Business.LockWait)
	if cfg.Business.LockBackend == config.LockBackendMemory {
		locker = lock.NewKeyedMutex()
	}

	financingService := service.NewFinancingService(
		repository.NewPlanRepository(db),
		repository.NewContractRepository(db),
		repository.NewPaymentRepository(db),
		repository.NewRedisContractCache(redisClient, cfg.Business.CacheTTL),
		locker,
		nil, // the scheduler exposes no metrics endpoint
		log,
	)

	c := cron.New(
		cron.WithSeconds(),
		cron.WithLocation(cfg.GetSchedulerLocation()),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)

	if err := setupCronJobs(c, cfg, financingService, log); err != nil {
		log.Fatalf("Failed to schedule jobs: %v", err)
	}

	c.Start()
	log.Info("Scheduler started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down scheduler...")
	<-c.Stop().Done()
	log.Info("Scheduler stopped")
}

func setupCronJobs(c *cron.Cron, cfg *config.Config, svc *service.FinancingService, log *logrus.Logger) error {
	if _, err := c.AddFunc(cfg.Scheduler.OverdueSpec, func() {
		markOverdueContracts(svc, log)
	}); err != nil {
		return err
	}

	if _, err := c.AddFunc(cfg.Scheduler.ReminderSpec, func() {
		sendPaymentReminders(svc, log)
	}); err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"overdue_spec":  cfg.Scheduler.OverdueSpec,
		"reminder_spec": cfg.Scheduler.ReminderSpec,
		"timezone":      cfg.Scheduler.Timezone,
	}).Info("Cron jobs scheduled successfully")

	return nil
}

func markOverdueContracts(svc *service.FinancingService, log *logrus.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	log.Info("Running daily overdue contract job...")
	marked, err := svc.MarkOverdueContracts(ctx, time.Now().UTC())
	if err != nil {
		logger.LogError(log, "scheduler", "markOverdueContracts", "mark overdue contracts", nil, err)
		return
	}
	log.WithField("marked", marked).Info("Overdue contract job finished")
}

// sendPaymentReminders logs every contract falling due soon; delivery to the
// customer is left to whatever consumes these log lines.
func sendPaymentReminders(svc *service.FinancingService, log *logrus.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	log.Info("Running weekly payment reminder job...")
	contracts, err := svc.UpcomingDue(ctx, time.Now().UTC(), reminderWindow)
	if err != nil {
		logger.LogError(log, "scheduler", "sendPaymentReminders", "list upcoming due contracts", nil, err)
		return
	}

	for _, contract := range contracts {
		log.WithFields(logrus.Fields{
			"contract_id":        contract.ID,
			"customer_id":        contract.CustomerID,
			"due_date":           contract.NextDueDate,
			"weekly_installment": contract.WeeklyInstallment,
			"remaining_balance":  contract.RemainingBalance,
		}).Info("payment reminder")
	}
	log.WithField("reminders", len(contracts)).Info("Payment reminder job finished")
}
