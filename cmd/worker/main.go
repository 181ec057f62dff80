package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/studyspark/scheduler-api/internal/config"
	"github.com/studyspark/scheduler-api/internal/database"
	"github.com/studyspark/scheduler-api/internal/logger"
	"github.com/studyspark/scheduler-api/internal/queue"
	"github.com/studyspark/scheduler-api/internal/scheduling"
	"github.com/studyspark/scheduler-api/internal/workers"
	"go.uber.org/zap"
)

func main() {
	// Parse command-line flags
	debugFlag := flag.Bool("debug", false, "Enable debug mode for verbose logging")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Override debug mode if flag is set
	debugMode := cfg.WorkerDebugMode || *debugFlag

	// Initialize logger
	zapLogger, err := logger.NewProductionLogger(debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		if syncErr := zapLogger.Sync(); syncErr != nil {
			// Ignore sync errors in production
			_ = syncErr
		}
	}()

	zapLogger.Info("starting_worker",
		zap.Bool("debug_mode", debugMode),
		zap.String("sweep_schedule", cfg.SweepSchedule),
		zap.Duration("profile_max_age", cfg.ProfileMaxAge),
	)

	// Initialize database connection
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			zapLogger.Warn("failed_to_close_database_connection", zap.Error(err))
		}
	}()

	zapLogger.Info("connected_to_database")

	// Initialize repositories
	taskRepo := database.NewTaskRepository(db)
	patternRepo := database.NewPatternRepository(db)
	scheduleRepo := database.NewScheduleRepository(db)
	timetableRepo := database.NewTimetableRepository(db)
	preferencesRepo := database.NewPreferencesRepository(db)
	activityRepo := database.NewUserActivityRepository(db)

	// Initialize RabbitMQ queue
	jobQueue, err := queue.NewRabbitMQQueue(cfg.RabbitMQURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_rabbitmq", zap.Error(err))
	}
	defer func() {
		if err := jobQueue.Close(); err != nil {
			zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
		}
	}()

	zapLogger.Info("connected_to_rabbitmq",
		zap.Int("prefetch", cfg.RabbitMQPrefetch),
	)

	// Create job processors
	analyzer := scheduling.NewAnalyzer()
	generator := scheduling.NewGenerator()
	refresher := workers.NewPatternRefresher(taskRepo, patternRepo, preferencesRepo, activityRepo, analyzer, zapLogger)
	rebuilder := workers.NewScheduleRebuilder(taskRepo, patternRepo, preferencesRepo, timetableRepo, scheduleRepo, analyzer, generator, zapLogger)
	dispatcher := workers.NewDispatcher(refresher, rebuilder, jobQueue, zapLogger)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Periodic sweep: pause idle users and queue refreshes for stale profiles
	sweeper := workers.NewSweeper(patternRepo, activityRepo, jobQueue, cfg.ProfileMaxAge, cfg.IdlePauseAfter, zapLogger)
	cronRunner := cron.New()
	if _, err := cronRunner.AddFunc(cfg.SweepSchedule, func() {
		if err := sweeper.Sweep(ctx); err != nil {
			zapLogger.Error("sweep_failed", zap.Error(err))
		}
	}); err != nil {
		zapLogger.Fatal("invalid_sweep_schedule",
			zap.String("schedule", cfg.SweepSchedule),
			zap.Error(err),
		)
	}
	cronRunner.Start()
	defer cronRunner.Stop()

	// DLQ garbage collector
	if dlqPurger, ok := any(jobQueue).(queue.DLQPurger); ok {
		dlqGC := queue.NewGarbageCollector(dlqPurger, cfg.DLQGCInterval, cfg.DLQRetention)
		go func() {
			if err := dlqGC.Start(ctx); err != nil && err != context.Canceled {
				zapLogger.Error("dlq_garbage_collector_stopped_with_error", zap.Error(err))
			}
		}()
		zapLogger.Info("started_dlq_garbage_collector",
			zap.Duration("interval", cfg.DLQGCInterval),
			zap.Duration("retention", cfg.DLQRetention),
		)
	}

	// Start consuming messages
	msgChan, errChan, err := jobQueue.Consume(ctx, cfg.RabbitMQPrefetch)
	if err != nil {
		zapLogger.Fatal("failed_to_start_consuming_messages", zap.Error(err))
	}

	zapLogger.Info("worker_started_consuming_messages")

	// Process messages
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgChan:
				if !ok {
					zapLogger.Info("message_channel_closed")
					return
				}

				if err := dispatcher.ProcessMessage(ctx, msg); err != nil {
					zapLogger.Error("failed_to_process_job",
						zap.Error(err),
						zap.String("job_id", msg.Job.ID.String()),
						zap.String("job_type", string(msg.Job.Type)),
					)
				}
			}
		}
	}()

	// Handle errors
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case err, ok := <-errChan:
				if !ok {
					return
				}
				zapLogger.Error("queue_error", zap.Error(err))
			}
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	zapLogger.Info("shutdown_signal_received_stopping_worker")

	// Cancel context to stop processing
	cancel()

	zapLogger.Info("worker_stopped")
}
