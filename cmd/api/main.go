package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sparrow/internal/config"
	"sparrow/internal/plaid"
	"sparrow/internal/scheduler"
	"sparrow/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Initialize telemetry
	shutdownTelemetry, err := telemetry.Init(context.Background(), telemetry.Config{
		ServiceName:  "sparrow-api",
		Environment:  cfg.Plaid.Environment,
		OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
		MetricsPort:  cfg.Telemetry.MetricsPort,
	})
	if err != nil {
		log.Printf("Warning: telemetry init failed: %v", err)
	}

	// Worker pool is shared by webhook-driven, on-demand and scheduled syncs
	pool := scheduler.NewWorkerPool(
		cfg.Scheduler.WorkerCount,
		cfg.Scheduler.JobDelay,
		cfg.Scheduler.QueueSize,
	)

	deps, err := NewDependencies(cfg, pool)
	if err != nil {
		return err
	}
	defer deps.Close()

	// Initialize scheduler (if enabled)
	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		log.Println("Initializing scheduler...")

		jobProvider := func(ctx context.Context) ([]scheduler.Job, error) {
			items, err := deps.ItemRepo.ListActive(ctx)
			if err != nil {
				return nil, err
			}
			jobs := make([]scheduler.Job, 0, len(items))
			for _, item := range items {
				jobs = append(jobs, plaid.NewSyncJob(item.ID, deps.SyncService))
			}
			return jobs, nil
		}

		sched, err = scheduler.New(scheduler.Config{
			ScheduleTimes: cfg.Scheduler.ScheduleTimes,
			WorkerPool:    pool,
			RunOnStartup:  cfg.Scheduler.RunOnStartup,
			JobProvider:   jobProvider,
		})
		if err != nil {
			return err
		}

		sched.Start()
		log.Printf("Scheduler started with times: %v", cfg.Scheduler.ScheduleTimes)
	} else {
		log.Println("Scheduler is disabled")
		pool.Start()
	}

	handler := SetupRoutes(deps)
	srv := StartServer(cfg.Server.Host+":"+cfg.Server.Port, handler)

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	GracefulShutdown(srv, sched, 30*time.Second)
	if sched == nil {
		pool.ShutdownWithTimeout(30 * time.Second)
	}

	if shutdownTelemetry != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := shutdownTelemetry(ctx); err != nil {
			log.Printf("Error shutting down telemetry: %v", err)
		}
	}

	return nil
}
