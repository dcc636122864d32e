package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"

	"academy/internal/attendance"
	"academy/internal/batch"
	"academy/internal/clock"
	"academy/internal/config"
	"academy/internal/metrics"
	"academy/internal/queue"
	"academy/internal/store"
)

// Worker runs the daily token issuance schedule and consumes attendance
// events published by the API.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "academy:attendance")
	}

	clk := clock.System{}
	dir := batch.NewPGDirectory(db.Client)
	repo := attendance.NewRepository(db.Client)
	issuer := attendance.NewIssuer(repo, dir, clk, cfg.TokenValidityHours)

	// The scheduler guarantees at most one run at a time; SkipIfStillRunning
	// drops an overlapping trigger instead of queueing it.
	scheduler := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	_, err = scheduler.AddFunc(cfg.IssueCron, func() {
		issued, err := issuer.RunDaily(ctx)
		if err != nil {
			log.Printf("daily issuance run failed: %v", err)
			return
		}
		metrics.TokensIssued.Add(float64(issued))
		log.Printf("daily issuance run complete: %d token(s) issued", issued)
	})
	if err != nil {
		log.Fatalf("invalid ISSUE_CRON %q: %v", cfg.IssueCron, err)
	}
	scheduler.Start()
	defer scheduler.Stop()
	log.Printf("issuance scheduled: %s", cfg.IssueCron)

	events, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("worker started, waiting for events...")
	for evt := range events {
		if evt.Type != queue.EventAttendanceMarked {
			continue
		}
		// Notification delivery lives in the academy backend; the worker
		// acknowledges the event so delivery can hook in here later.
		metrics.EventsProcessed.Inc()
		log.Printf("attendance marked: student=%s batch=%s record=%s at=%s",
			evt.StudentID, evt.BatchID, evt.RecordID, evt.MarkedAt.Format("2006-01-02 15:04:05"))
	}

	log.Println("worker stopped")
}
