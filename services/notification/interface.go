package notification

import (
	"context"

	notificationRepo "servana/database/repository/notification"
	"servana/models"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// NotificationService records abstract notification events and enqueues them
// for dispatch. The delivery channel is an external collaborator; a dispatch
// failure never affects domain state.
type NotificationService interface {
	Notify(ctx context.Context, userID, ntype, title, message string, data map[string]string) error
	ListForUser(ctx context.Context, userID string, limit int64) ([]models.Notification, error)
	RedeliverUnsent(ctx context.Context, limit int64) (int, error)
}

// DefaultNotificationService is the production implementation.
type DefaultNotificationService struct {
	Repo   notificationRepo.NotificationRepository
	Queue  *asynq.Client
	Logger *zap.Logger
}

// NewDefaultNotificationService wires the repository and asynq client.
func NewDefaultNotificationService(repo notificationRepo.NotificationRepository, queue *asynq.Client, logger *zap.Logger) *DefaultNotificationService {
	return &DefaultNotificationService{Repo: repo, Queue: queue, Logger: logger}
}
