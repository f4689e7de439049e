package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/task-service/internal/api/dto"
	"github.com/spec-kit/task-service/internal/auth"
	"github.com/spec-kit/task-service/internal/domain"
	"github.com/spec-kit/task-service/internal/service"
	"github.com/spec-kit/task-service/internal/validation"
	apperrors "github.com/spec-kit/task-service/pkg/util/errorutil"
)

// TasksHandler manages task endpoints.
type TasksHandler struct {
	service *service.TaskService
}

// NewTasksHandler constructs handler.
func NewTasksHandler(taskService *service.TaskService) *TasksHandler {
	return &TasksHandler{service: taskService}
}

// ListTasks GET /api/tasks.
func (h *TasksHandler) ListTasks(c *fiber.Ctx) error {
	tasks, err := h.service.List(c.UserContext(), service.TaskListFilter{})
	if err != nil {
		return apperrors.AsBadRequest(err)
	}
	return c.JSON(dto.OK(dto.NewTaskListEnvelope(tasks)))
}

// CreateTask POST /api/tasks.
func (h *TasksHandler) CreateTask(c *fiber.Ctx) error {
	caller, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized(auth.NotAuthorizedMessage)
	}
	payload := BodyPayload(c)

	title, _ := payload.String("title")
	description, _ := payload.String("description")
	status, _ := payload.String("status")
	priority, _ := payload.String("priority")
	assignedTo, _ := payload.NullableString("assignedTo")
	dueDate, _ := payload.NullableTime("dueDate")

	task, err := h.service.Create(c.UserContext(), caller.ID, service.TaskCreateInput{
		Title:       title,
		Description: description,
		Status:      domain.TaskStatus(status),
		Priority:    domain.TaskPriority(priority),
		AssignedTo:  assignedTo,
		DueDate:     dueDate,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(dto.OK(dto.TaskEnvelope{Task: dto.NewTaskResponse(task)}))
}

// GetTask GET /api/tasks/:id.
func (h *TasksHandler) GetTask(c *fiber.Ctx) error {
	task, err := h.service.GetByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(dto.OK(dto.TaskEnvelope{Task: dto.NewTaskResponse(task)}))
}

// UpdateTask PUT /api/tasks/:id. Every client failure answers 400.
func (h *TasksHandler) UpdateTask(c *fiber.Ctx) error {
	caller, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized(auth.NotAuthorizedMessage)
	}
	task, err := h.service.Update(c.UserContext(), c.Params("id"), caller.ID, patchFromPayload(BodyPayload(c)))
	if err != nil {
		return apperrors.AsBadRequest(err)
	}
	return c.JSON(dto.OK(dto.TaskEnvelope{Task: dto.NewTaskResponse(task)}))
}

// DeleteTask DELETE /api/tasks/:id. Every client failure answers 400.
func (h *TasksHandler) DeleteTask(c *fiber.Ctx) error {
	caller, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized(auth.NotAuthorizedMessage)
	}
	if err := h.service.Delete(c.UserContext(), c.Params("id"), caller.ID); err != nil {
		return apperrors.AsBadRequest(err)
	}
	return c.JSON(dto.OK(fiber.Map{}))
}

func patchFromPayload(payload validation.Payload) service.TaskPatch {
	var patch service.TaskPatch
	if v, ok := payload.String("title"); ok {
		patch.Title = &v
	}
	if v, ok := payload.String("description"); ok {
		patch.Description = &v
	}
	if v, ok := payload.String("status"); ok {
		status := domain.TaskStatus(v)
		patch.Status = &status
	}
	if v, ok := payload.String("priority"); ok {
		priority := domain.TaskPriority(v)
		patch.Priority = &priority
	}
	patch.AssignedTo, patch.AssignedToSet = payload.NullableString("assignedTo")
	patch.DueDate, patch.DueDateSet = payload.NullableTime("dueDate")
	return patch
}
