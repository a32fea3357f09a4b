package cron

import (
	"context"
	"encoding/json"
	"time"

	"servana/config"
	notificationRepo "servana/database/repository/notification"
	"servana/models"
	notificationSvc "servana/services/notification"
	"servana/utils"

	"github.com/hibiken/asynq"
	cronv3 "github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// InitNotificationWorker runs the async dispatch worker in the background.
func InitNotificationWorker(repo notificationRepo.NotificationRepository) {
	logger := utils.GetLogger()

	redisOpts := asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	}

	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(notificationSvc.TypeNotificationDispatch, handleDispatchTask(repo))

	go func() {
		logger.Info("starting notification worker")
		const maxAttempts = 5

		for attempt := 1; attempt <= maxAttempts; attempt++ {
			if err := srv.Run(mux); err != nil {
				logger.Error("notification worker failed to start",
					zap.Int("attempt", attempt), zap.Error(err))

				if attempt == maxAttempts {
					logger.Fatal("notification worker exhausted retries")
				}
				time.Sleep(time.Duration(attempt*2) * time.Second)
			} else {
				break
			}
		}
	}()
}

func handleDispatchTask(repo notificationRepo.NotificationRepository) asynq.HandlerFunc {
	logger := utils.GetLogger()
	return func(ctx context.Context, task *asynq.Task) error {
		var n models.Notification
		if err := json.Unmarshal(task.Payload(), &n); err != nil {
			logger.Error("invalid dispatch payload", zap.Error(err))
			return err
		}

		// Delivery channels (push, email) hang off here; the engine only
		// records that the event left the queue.
		logger.Info("dispatching notification",
			zap.String("notification", n.ID),
			zap.String("user", n.UserID),
			zap.String("type", n.Type))

		return repo.MarkSent(ctx, n.ID)
	}
}

// StartScheduler wires the periodic tasks onto an in-binary cron. Returns the
// scheduler so main can stop it on shutdown.
func StartScheduler(runner *TaskRunner) *cronv3.Cron {
	logger := utils.GetLogger()
	c := cronv3.New(cronv3.WithLocation(time.UTC))

	schedule := map[string]string{
		TaskEscrow:        "*/10 * * * *",
		TaskBookings:      "*/5 * * * *",
		TaskNotifications: "*/15 * * * *",
		TaskReminders:     "0 * * * *",
		TaskRatings:       "30 * * * *",
	}

	for name, spec := range schedule {
		task := name
		_, err := c.AddFunc(spec, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()
			if err := runner.Run(ctx, task); err != nil {
				logger.Error("scheduled task failed",
					zap.String("task", task), zap.Error(err))
			}
		})
		if err != nil {
			logger.Fatal("invalid cron schedule",
				zap.String("task", name), zap.Error(err))
		}
	}

	c.Start()
	logger.Info("task scheduler started", zap.Int("tasks", len(schedule)))
	return c
}
