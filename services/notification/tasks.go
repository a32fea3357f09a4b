package notification

import (
	"encoding/json"
	"time"

	"servana/models"

	"github.com/hibiken/asynq"
)

// TypeNotificationDispatch is the asynq task kind for outbound notifications.
const TypeNotificationDispatch = "notification:dispatch"

// NewDispatchTask packages a notification event for the async worker.
func NewDispatchTask(n *models.Notification) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(n)
	if err != nil {
		return nil, nil, err
	}
	opts := []asynq.Option{
		asynq.MaxRetry(5),
		asynq.Timeout(30 * time.Second),
		asynq.TaskID(n.ID),
	}
	return asynq.NewTask(TypeNotificationDispatch, b), opts, nil
}
