package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/task-service/internal/config"
	"github.com/spec-kit/task-service/internal/domain"
	"github.com/spec-kit/task-service/internal/events"
	"github.com/spec-kit/task-service/internal/repository/memory"
	apperrors "github.com/spec-kit/task-service/pkg/util/errorutil"
)

type fixture struct {
	users  *memory.UserRepository
	tasks  *memory.TaskRepository
	events []events.Event

	auth      *AuthService
	task      *TaskService
	directory *UserService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		users: memory.NewUserRepository(),
		tasks: memory.NewTaskRepository(),
	}
	dispatcher := events.NewInMemoryDispatcher(zap.NewNop())
	for _, et := range []events.EventType{
		events.EventUserRegistered, events.EventTaskCreated, events.EventTaskUpdated,
		events.EventTaskAssigned, events.EventTaskDeleted,
	} {
		dispatcher.Subscribe(et, func(_ context.Context, e events.Event) error {
			f.events = append(f.events, e)
			return nil
		})
	}

	authSvc, err := NewAuthService(config.AuthConfig{
		JWTSecret:             "test-secret",
		AccessTokenTTLMinutes: 60,
		BcryptCost:            4,
	}, AuthDependencies{UserRepo: f.users, Dispatcher: dispatcher})
	require.NoError(t, err)

	f.auth = authSvc
	f.task = NewTaskService(TaskDependencies{TaskRepo: f.tasks, UserRepo: f.users, Dispatcher: dispatcher})
	f.directory = NewUserService(f.users)
	return f
}

func (f *fixture) register(t *testing.T, name, email string) *domain.User {
	t.Helper()
	res, err := f.auth.Register(context.Background(), RegisterInput{Name: name, Email: email, Password: "secret1"})
	require.NoError(t, err)
	return res.User
}

func (f *fixture) eventTypes() []events.EventType {
	out := make([]events.EventType, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.Type)
	}
	return out
}

func requireDomainError(t *testing.T, err error, code string, status int, message string) {
	t.Helper()
	require.Error(t, err)
	de := apperrors.ToDomainError(err)
	require.Equal(t, code, de.Code)
	require.Equal(t, status, de.HTTPStatus)
	if message != "" {
		require.Equal(t, message, de.Message)
	}
}

func strPtr(s string) *string { return &s }
