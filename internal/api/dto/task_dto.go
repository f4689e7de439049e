package dto

import (
	"time"

	"github.com/spec-kit/task-service/internal/domain"
)

// TaskResponse is the public view of a task with references expanded.
type TaskResponse struct {
	ID          string               `json:"_id"`
	Title       string               `json:"title"`
	Description string               `json:"description"`
	Status      domain.TaskStatus    `json:"status"`
	Priority    domain.TaskPriority  `json:"priority"`
	AssignedTo  *UserSummaryResponse `json:"assignedTo"`
	CreatedBy   *UserSummaryResponse `json:"createdBy"`
	DueDate     *time.Time           `json:"dueDate"`
	CreatedAt   time.Time            `json:"createdAt"`
	UpdatedAt   time.Time            `json:"updatedAt"`
}

// TaskEnvelope wraps a single task.
type TaskEnvelope struct {
	Task TaskResponse `json:"task"`
}

// TaskListEnvelope wraps a task listing.
type TaskListEnvelope struct {
	Tasks []TaskResponse `json:"tasks"`
	Count int            `json:"count"`
}

// NewTaskResponse maps expanded task details.
func NewTaskResponse(t *domain.TaskDetails) TaskResponse {
	return TaskResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		Priority:    t.Priority,
		AssignedTo:  NewUserSummaryResponse(t.Assignee),
		CreatedBy:   NewUserSummaryResponse(t.Creator),
		DueDate:     t.DueDate,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// NewTaskListEnvelope maps a listing and its count.
func NewTaskListEnvelope(tasks []domain.TaskDetails) TaskListEnvelope {
	items := make([]TaskResponse, 0, len(tasks))
	for i := range tasks {
		items = append(items, NewTaskResponse(&tasks[i]))
	}
	return TaskListEnvelope{Tasks: items, Count: len(items)}
}
