package events

import (
	"time"

	"github.com/spec-kit/task-service/internal/domain"
)

// EventType enumerates supported event identifiers. Values double as AMQP routing keys.
type EventType string

const (
	EventUserRegistered EventType = "user.registered"
	EventTaskCreated    EventType = "task.created"
	EventTaskUpdated    EventType = "task.updated"
	EventTaskAssigned   EventType = "task.assigned"
	EventTaskDeleted    EventType = "task.deleted"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	ActorID   string      `json:"actor_id"`
	SubjectID string      `json:"subject_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// UserRegisteredPayload payload.
type UserRegisteredPayload struct {
	Email string      `json:"email"`
	Role  domain.Role `json:"role"`
}

// TaskCreatedPayload payload.
type TaskCreatedPayload struct {
	Title      string              `json:"title"`
	Status     domain.TaskStatus   `json:"status"`
	Priority   domain.TaskPriority `json:"priority"`
	AssignedTo *string             `json:"assigned_to,omitempty"`
}

// TaskUpdatedPayload lists the fields a patch touched.
type TaskUpdatedPayload struct {
	Fields []string `json:"fields"`
}

// TaskAssignedPayload payload.
type TaskAssignedPayload struct {
	Title      string  `json:"title"`
	AssigneeID string  `json:"assignee_id"`
	Previous   *string `json:"previous_assignee_id,omitempty"`
}

// TaskDeletedPayload payload.
type TaskDeletedPayload struct {
	Title string `json:"title"`
}
