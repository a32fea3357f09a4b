package notificationRepo

import (
	"context"

	"servana/database"
	"servana/models"

	"go.mongodb.org/mongo-driver/mongo"
)

// NotificationRepository persists emitted notification events. Delivery is a
// collaborator concern; this is the user-visible inbox and the redelivery
// source for the notifications task.
type NotificationRepository interface {
	Insert(ctx context.Context, n *models.Notification) error
	MarkSent(ctx context.Context, notificationID string) error
	ListByUser(ctx context.Context, userID string, limit int64) ([]models.Notification, error)
	ListUnsent(ctx context.Context, limit int64) ([]models.Notification, error)
}

type mongoNotificationRepo struct {
	coll *mongo.Collection
}

// NewMongoNotificationRepo constructs a new MongoDB NotificationRepository.
func NewMongoNotificationRepo() NotificationRepository {
	db := database.MongoClient.Database("servana")
	return &mongoNotificationRepo{
		coll: db.Collection("notifications"),
	}
}
