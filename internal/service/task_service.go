package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/task-service/internal/domain"
	"github.com/spec-kit/task-service/internal/events"
	"github.com/spec-kit/task-service/internal/repository"
	apperrors "github.com/spec-kit/task-service/pkg/util/errorutil"
)

// TaskService coordinates task workflows and enforces ownership.
type TaskService struct {
	tasks      repository.TaskRepository
	users      repository.UserRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// TaskDependencies bundles repositories for task service.
type TaskDependencies struct {
	TaskRepo   repository.TaskRepository
	UserRepo   repository.UserRepository
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// TaskCreateInput describes task creation payload.
type TaskCreateInput struct {
	Title       string
	Description string
	Status      domain.TaskStatus
	Priority    domain.TaskPriority
	AssignedTo  *string
	DueDate     *time.Time
}

// TaskPatch is a partial update. Nil pointers leave fields untouched; the
// *Set flags distinguish "clear" from "leave alone" for nullable fields.
type TaskPatch struct {
	Title         *string
	Description   *string
	Status        *domain.TaskStatus
	Priority      *domain.TaskPriority
	AssignedToSet bool
	AssignedTo    *string
	DueDateSet    bool
	DueDate       *time.Time
}

// TaskListFilter optionally narrows listing to tasks a user created or is assigned.
type TaskListFilter struct {
	InvolvingUserID *string
}

// NewTaskService constructs the service.
func NewTaskService(deps TaskDependencies) *TaskService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TaskService{
		tasks:      deps.TaskRepo,
		users:      deps.UserRepo,
		dispatcher: deps.Dispatcher,
		logger:     logger,
	}
}

// Create persists a task owned by creatorID.
func (s *TaskService) Create(ctx context.Context, creatorID string, input TaskCreateInput) (*domain.TaskDetails, error) {
	task := &domain.Task{
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		Status:      input.Status,
		Priority:    input.Priority,
		AssignedTo:  normalizeRef(input.AssignedTo),
		CreatedBy:   creatorID,
		DueDate:     input.DueDate,
	}
	if task.Status == "" {
		task.Status = domain.TaskStatusTodo
	}
	if task.Priority == "" {
		task.Priority = domain.TaskPriorityMedium
	}
	if err := validateEnums(task); err != nil {
		return nil, err
	}
	if err := s.ensureAssignee(ctx, task.AssignedTo); err != nil {
		return nil, err
	}

	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, err
	}

	s.logger.Info("task created", zap.String("task_id", task.ID), zap.String("created_by", creatorID))
	publishEvent(ctx, s.dispatcher, events.Event{
		Type:      events.EventTaskCreated,
		ActorID:   creatorID,
		SubjectID: task.ID,
		Payload: events.TaskCreatedPayload{
			Title:      task.Title,
			Status:     task.Status,
			Priority:   task.Priority,
			AssignedTo: task.AssignedTo,
		},
	})
	if task.AssignedTo != nil {
		s.publishAssigned(ctx, creatorID, task, nil)
	}
	return s.expandOne(ctx, task)
}

// List returns tasks newest first with creator and assignee expanded.
func (s *TaskService) List(ctx context.Context, filter TaskListFilter) ([]domain.TaskDetails, error) {
	tasks, err := s.tasks.List(ctx, repository.TaskFilter{InvolvingUserID: filter.InvolvingUserID})
	if err != nil {
		return nil, err
	}
	return s.expand(ctx, tasks)
}

// GetByID returns a single expanded task.
func (s *TaskService) GetByID(ctx context.Context, taskID string) (*domain.TaskDetails, error) {
	task, err := s.load(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return s.expandOne(ctx, task)
}

// Update applies patch when callerID owns the task. Concurrent updates are
// last-write-wins.
func (s *TaskService) Update(ctx context.Context, taskID, callerID string, patch TaskPatch) (*domain.TaskDetails, error) {
	task, err := s.load(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !task.IsOwnedBy(callerID) {
		s.logger.Warn("task update denied", zap.String("task_id", task.ID), zap.String("caller_id", callerID))
		return nil, apperrors.NewForbidden("Not authorized to update this task")
	}

	previousAssignee := task.AssignedTo
	changed := applyPatch(task, patch)
	if err := validateEnums(task); err != nil {
		return nil, err
	}
	if patch.AssignedToSet && !sameRef(previousAssignee, task.AssignedTo) {
		if err := s.ensureAssignee(ctx, task.AssignedTo); err != nil {
			return nil, err
		}
	}

	if err := s.tasks.Update(ctx, task); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("Task", nil)
		}
		return nil, err
	}

	s.logger.Info("task updated", zap.String("task_id", task.ID), zap.Strings("fields", changed))
	publishEvent(ctx, s.dispatcher, events.Event{
		Type:      events.EventTaskUpdated,
		ActorID:   callerID,
		SubjectID: task.ID,
		Payload:   events.TaskUpdatedPayload{Fields: changed},
	})
	if task.AssignedTo != nil && !sameRef(previousAssignee, task.AssignedTo) {
		s.publishAssigned(ctx, callerID, task, previousAssignee)
	}
	return s.expandOne(ctx, task)
}

// Delete removes the task permanently when callerID owns it.
func (s *TaskService) Delete(ctx context.Context, taskID, callerID string) error {
	task, err := s.load(ctx, taskID)
	if err != nil {
		return err
	}
	if !task.IsOwnedBy(callerID) {
		s.logger.Warn("task delete denied", zap.String("task_id", task.ID), zap.String("caller_id", callerID))
		return apperrors.NewForbidden("Not authorized to delete this task")
	}
	if err := s.tasks.Delete(ctx, task.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewNotFound("Task", nil)
		}
		return err
	}

	s.logger.Info("task deleted", zap.String("task_id", task.ID))
	publishEvent(ctx, s.dispatcher, events.Event{
		Type:      events.EventTaskDeleted,
		ActorID:   callerID,
		SubjectID: task.ID,
		Payload:   events.TaskDeletedPayload{Title: task.Title},
	})
	return nil
}

func (s *TaskService) load(ctx context.Context, taskID string) (*domain.Task, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("Task", nil)
		}
		return nil, err
	}
	return task, nil
}

func (s *TaskService) ensureAssignee(ctx context.Context, assigneeID *string) error {
	if assigneeID == nil {
		return nil
	}
	if _, err := s.users.GetByID(ctx, *assigneeID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewValidationError("Assigned user not found", map[string]any{"field": "assignedTo"})
		}
		return err
	}
	return nil
}

func (s *TaskService) expandOne(ctx context.Context, task *domain.Task) (*domain.TaskDetails, error) {
	details, err := s.expand(ctx, []domain.Task{*task})
	if err != nil {
		return nil, err
	}
	return &details[0], nil
}

// expand resolves creator and assignee ids to summaries with one batched lookup.
func (s *TaskService) expand(ctx context.Context, tasks []domain.Task) ([]domain.TaskDetails, error) {
	ids := make([]string, 0, len(tasks)*2)
	for _, task := range tasks {
		ids = append(ids, task.CreatedBy)
		if task.AssignedTo != nil {
			ids = append(ids, *task.AssignedTo)
		}
	}

	summaries := map[string]*domain.UserSummary{}
	if len(ids) > 0 {
		users, err := s.users.GetByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		for _, u := range users {
			summaries[u.ID] = u.Summary()
		}
	}

	result := make([]domain.TaskDetails, 0, len(tasks))
	for _, task := range tasks {
		details := domain.TaskDetails{Task: task, Creator: summaries[task.CreatedBy]}
		if task.AssignedTo != nil {
			details.Assignee = summaries[*task.AssignedTo]
		}
		result = append(result, details)
	}
	return result, nil
}

func (s *TaskService) publishAssigned(ctx context.Context, actorID string, task *domain.Task, previous *string) {
	publishEvent(ctx, s.dispatcher, events.Event{
		Type:      events.EventTaskAssigned,
		ActorID:   actorID,
		SubjectID: task.ID,
		Payload: events.TaskAssignedPayload{
			Title:      task.Title,
			AssigneeID: *task.AssignedTo,
			Previous:   previous,
		},
	})
}

func applyPatch(task *domain.Task, patch TaskPatch) []string {
	changed := []string{}
	if patch.Title != nil {
		task.Title = strings.TrimSpace(*patch.Title)
		changed = append(changed, "title")
	}
	if patch.Description != nil {
		task.Description = strings.TrimSpace(*patch.Description)
		changed = append(changed, "description")
	}
	if patch.Status != nil {
		task.Status = *patch.Status
		changed = append(changed, "status")
	}
	if patch.Priority != nil {
		task.Priority = *patch.Priority
		changed = append(changed, "priority")
	}
	if patch.AssignedToSet {
		task.AssignedTo = normalizeRef(patch.AssignedTo)
		changed = append(changed, "assignedTo")
	}
	if patch.DueDateSet {
		task.DueDate = patch.DueDate
		changed = append(changed, "dueDate")
	}
	return changed
}

func validateEnums(task *domain.Task) error {
	if !task.Status.Valid() {
		return apperrors.NewValidationError("status must be one of [todo, in-progress, completed]", nil)
	}
	if !task.Priority.Valid() {
		return apperrors.NewValidationError("priority must be one of [low, medium, high]", nil)
	}
	return nil
}

func normalizeRef(ref *string) *string {
	if ref == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*ref)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func sameRef(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func publishEvent(ctx context.Context, dispatcher events.Dispatcher, event events.Event) {
	if dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	_ = dispatcher.Publish(ctx, event)
}
