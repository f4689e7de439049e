package validation

import "github.com/spec-kit/task-service/internal/domain"

// Request schemas for the public API.
var (
	RegisterSchema = Schema{
		Name: "register",
		Fields: []Field{
			{Name: "name", Required: true, Trim: true, Rules: "min=2,max=50"},
			{Name: "email", Required: true, Trim: true, Lowercase: true, Rules: "email"},
			{Name: "password", Required: true, Rules: "min=6"},
			{Name: "role", Rules: "oneof=admin member", Default: string(domain.RoleMember)},
		},
	}

	LoginSchema = Schema{
		Name: "login",
		Fields: []Field{
			{Name: "email", Required: true, Trim: true, Lowercase: true, Rules: "email"},
			{Name: "password", Required: true},
		},
	}

	CreateTaskSchema = Schema{
		Name: "createTask",
		Fields: []Field{
			{Name: "title", Required: true, Trim: true, Rules: "min=1,max=100"},
			{Name: "description", Required: true, Trim: true, Rules: "min=1,max=500"},
			{Name: "status", Rules: "oneof=todo in-progress completed", Default: string(domain.TaskStatusTodo)},
			{Name: "priority", Rules: "oneof=low medium high", Default: string(domain.TaskPriorityMedium)},
			{Name: "assignedTo", Nullable: true, Trim: true},
			{Name: "dueDate", Kind: KindDate, Nullable: true, Trim: true},
		},
	}

	UpdateTaskSchema = Schema{
		Name: "updateTask",
		Fields: []Field{
			{Name: "title", Trim: true, Rules: "min=1,max=100"},
			{Name: "description", Trim: true, Rules: "min=1,max=500"},
			{Name: "status", Rules: "oneof=todo in-progress completed"},
			{Name: "priority", Rules: "oneof=low medium high"},
			{Name: "assignedTo", Nullable: true, Trim: true},
			{Name: "dueDate", Kind: KindDate, Nullable: true, Trim: true},
		},
	}
)
