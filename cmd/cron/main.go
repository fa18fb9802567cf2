package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jamesmaccoy/yocogoogle-sub002/internal/conf"

	"github.com/robfig/cron/v3"
	_ "go.uber.org/automaxprocs"
)

var (
	flagconf string
)

func init() {
	flag.StringVar(&flagconf, "conf", "configs/config.yaml", "config path, eg: -conf config.yaml")
}

func main() {
	flag.Parse()

	bc, err := conf.Load(flagconf)
	if err != nil {
		panic(err)
	}
	if err := bc.Validate(); err != nil {
		panic(fmt.Sprintf("config validation failed: %v", err))
	}

	app, cleanup, err := wireApp(bc)
	if err != nil {
		panic(err)
	}
	defer cleanup()

	cronScheduler := cron.New(cron.WithSeconds())

	// 1. Expired subscription sweep, every day at 02:00. The sweep is also
	// reachable through the queue; running it here directly keeps the
	// downgrade guarantee even when the worker is down. The redsync lock
	// inside DowngradeExpired keeps the two paths from overlapping.
	_, err = cronScheduler.AddFunc("0 0 2 * * *", func() {
		log.Println("[CRON] Starting expired subscription sweep...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		count, uids, err := app.subscriptionUsecase.DowngradeExpired(ctx)
		if err != nil {
			log.Printf("[CRON] Error sweeping expired subscriptions: %v", err)
		} else {
			log.Printf("[CRON] Downgraded %d expired subscriptions: %v", count, uids)
			log.Println("[CRON] Finished expired subscription sweep")
		}
	})
	if err != nil {
		log.Printf("Failed to add expiration sweep job: %v", err)
	}

	// 2. Renewal reminder, every day at 10:00.
	reminderDays := bc.ReminderDaysBefore()
	_, err = cronScheduler.AddFunc("0 0 10 * * *", func() {
		log.Println("[CRON] Starting renewal reminder check...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		transactions, total, err := app.subscriptionUsecase.GetExpiringTransactions(ctx, reminderDays, 1, 100)
		if err != nil {
			log.Printf("[CRON] Error getting expiring subscriptions: %v", err)
			return
		}

		log.Printf("[CRON] Found %d subscriptions expiring within %d days", total, reminderDays)
		for _, txn := range transactions {
			// TODO: send renewal reminder emails once the notification
			// channel is decided.
			log.Printf("[CRON] Reminder: User %s subscription (plan: %s) expires at %s",
				txn.UID, txn.PlanID, txn.ExpiresAt.Format("2006-01-02 15:04:05"))
		}
		log.Println("[CRON] Finished renewal reminder check")
	})
	if err != nil {
		log.Printf("Failed to add renewal reminder job: %v", err)
	}

	cronScheduler.Start()
	log.Println("========================================")
	log.Println("Cron jobs started successfully")
	log.Println("Scheduled jobs:")
	log.Println("  - Expiration sweep:  Every day at 02:00")
	log.Println("  - Renewal reminder:  Every day at 10:00")
	log.Println("========================================")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down gracefully...")

	ctx := cronScheduler.Stop()
	select {
	case <-ctx.Done():
		log.Println("Cron jobs stopped gracefully")
	case <-time.After(5 * time.Second):
		log.Println("Cron jobs forced to stop after timeout")
	}
}
