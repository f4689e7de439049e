package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/task-service/internal/events"
)

// NotificationService reacts to domain events: it tells assignees about new
// work and forwards every event to the external broker when one is configured.
type NotificationService struct {
	dispatcher events.Dispatcher
	publisher  events.Publisher
	logger     *zap.Logger
}

// NewNotificationService creates the service. publisher may be nil.
func NewNotificationService(dispatcher events.Dispatcher, publisher events.Publisher, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		publisher:  publisher,
		logger:     logger,
	}
}

var forwardedEvents = []events.EventType{
	events.EventUserRegistered,
	events.EventTaskCreated,
	events.EventTaskUpdated,
	events.EventTaskAssigned,
	events.EventTaskDeleted,
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTaskAssigned, n.handleTaskAssigned)
	if n.publisher == nil {
		return
	}
	for _, eventType := range forwardedEvents {
		n.dispatcher.Subscribe(eventType, n.forward)
	}
}

func (n *NotificationService) handleTaskAssigned(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TaskAssignedPayload)
	if !ok {
		return nil
	}
	n.logger.Info("TaskAssigned",
		zap.String("task_id", event.SubjectID),
		zap.String("assignee_id", payload.AssigneeID),
		zap.String("assigned_by", event.ActorID),
		zap.String("title", payload.Title))
	return nil
}

func (n *NotificationService) forward(ctx context.Context, event events.Event) error {
	if err := n.publisher.Publish(ctx, event); err != nil {
		n.logger.Warn("event forward failed",
			zap.String("event_type", string(event.Type)),
			zap.String("event_id", event.ID),
			zap.Error(err))
		return err
	}
	return nil
}
