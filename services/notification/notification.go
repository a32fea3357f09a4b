package notification

import (
	"context"
	"time"

	"servana/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func (s *DefaultNotificationService) Notify(ctx context.Context, userID, ntype, title, message string, data map[string]string) error {
	n := &models.Notification{
		ID:        uuid.New().String(),
		UserID:    userID,
		Type:      ntype,
		Title:     title,
		Message:   message,
		Data:      data,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.Repo.Insert(ctx, n); err != nil {
		return err
	}

	s.enqueue(n)
	return nil
}

// enqueue hands the event to the dispatch queue. Queue errors are logged and
// swallowed: the event is persisted and the notifications task redelivers.
func (s *DefaultNotificationService) enqueue(n *models.Notification) {
	if s.Queue == nil {
		return
	}
	task, opts, err := NewDispatchTask(n)
	if err != nil {
		s.Logger.Error("failed to build dispatch task", zap.Error(err))
		return
	}
	if _, err := s.Queue.Enqueue(task, opts...); err != nil {
		s.Logger.Warn("failed to enqueue notification, will redeliver",
			zap.String("notification", n.ID), zap.Error(err))
	}
}

func (s *DefaultNotificationService) ListForUser(ctx context.Context, userID string, limit int64) ([]models.Notification, error) {
	return s.Repo.ListByUser(ctx, userID, limit)
}

// RedeliverUnsent re-enqueues persisted notifications that never made it to
// the queue. Driven by the periodic notifications task.
func (s *DefaultNotificationService) RedeliverUnsent(ctx context.Context, limit int64) (int, error) {
	pending, err := s.Repo.ListUnsent(ctx, limit)
	if err != nil {
		return 0, err
	}
	for i := range pending {
		s.enqueue(&pending[i])
	}
	return len(pending), nil
}
