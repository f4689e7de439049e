package http_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/task-service/internal/api/http"
	"github.com/spec-kit/task-service/internal/api/http/handlers"
	"github.com/spec-kit/task-service/internal/auth"
	"github.com/spec-kit/task-service/internal/config"
	"github.com/spec-kit/task-service/internal/events"
	"github.com/spec-kit/task-service/internal/observability"
	"github.com/spec-kit/task-service/internal/repository/memory"
	"github.com/spec-kit/task-service/internal/service"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Errors  []struct {
		Field   string `json:"field"`
		Message string `json:"message"`
	} `json:"errors"`
}

type userJSON struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type taskJSON struct {
	ID          string    `json:"_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	Priority    string    `json:"priority"`
	AssignedTo  *userJSON `json:"assignedTo"`
	CreatedBy   *userJSON `json:"createdBy"`
	DueDate     *string   `json:"dueDate"`
	CreatedAt   string    `json:"createdAt"`
	UpdatedAt   string    `json:"updatedAt"`
}

type testServer struct {
	app *fiber.App
}

func newTestServer(t *testing.T, limiter *httptransport.RateLimiter) *testServer {
	t.Helper()
	logger := zap.NewNop()
	users := memory.NewUserRepository()
	tasks := memory.NewTaskRepository()
	dispatcher := events.NewInMemoryDispatcher(logger)

	authService, err := service.NewAuthService(config.AuthConfig{
		JWTSecret:             "router-test-secret",
		AccessTokenTTLMinutes: 60,
		BcryptCost:            4,
	}, service.AuthDependencies{UserRepo: users, Dispatcher: dispatcher, Logger: logger})
	require.NoError(t, err)
	taskService := service.NewTaskService(service.TaskDependencies{TaskRepo: tasks, UserRepo: users, Dispatcher: dispatcher, Logger: logger})

	metrics := observability.NewMetrics("test")
	app := fiber.New(fiber.Config{ErrorHandler: httptransport.ErrorHandler(logger)})
	httptransport.RegisterMiddlewares(app, httptransport.MiddlewareConfig{Logger: logger, Metrics: metrics, Timeout: 5 * time.Second})
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler("task-service", "test", nil, logger),
		Auth:           handlers.NewAuthHandler(authService),
		Tasks:          handlers.NewTasksHandler(taskService),
		Users:          handlers.NewUsersHandler(service.NewUserService(users)),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), users, logger),
		RateLimiter:    limiter,
		Metrics:        metrics,
	})
	return &testServer{app: app}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, envelope) {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp.StatusCode, env
}

func (s *testServer) register(t *testing.T, name, email string) (userJSON, string) {
	t.Helper()
	status, env := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]any{
		"name": name, "email": email, "password": "secret1",
	})
	require.Equal(t, http.StatusCreated, status, env.Error)
	var data struct {
		User  userJSON `json:"user"`
		Token string   `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	return data.User, data.Token
}

func decodeTask(t *testing.T, env envelope) taskJSON {
	t.Helper()
	var data struct {
		Task taskJSON `json:"task"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	return data.Task
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)
	status, env := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, env.Success)
	assert.Equal(t, "Server is running", env.Message)

	status, env = s.do(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, env.Success)
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t, nil)
	status, env := s.do(t, http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.False(t, env.Success)
	assert.Equal(t, "Route not found", env.Error)
}

func TestRegisterLoginMe(t *testing.T) {
	s := newTestServer(t, nil)
	user, token := s.register(t, "Ann", "Ann@Example.com")
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "ann@example.com", user.Email)
	assert.Equal(t, "member", user.Role)
	assert.NotEmpty(t, token)

	status, env := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]any{
		"name": "Ann", "email": "ann@example.com", "password": "secret1",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "User already exists", env.Error)

	status, env = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]any{"email": "ann@example.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), `"token"`)
	assert.NotContains(t, string(env.Data), "password")

	status, env = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]any{"email": "ann@example.com", "password": "wrong!"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Invalid credentials", env.Error)

	status, env = s.do(t, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, status)
	var me struct {
		User userJSON `json:"user"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Equal(t, user.ID, me.User.ID)
}

func TestRegisterValidation(t *testing.T) {
	s := newTestServer(t, nil)
	status, env := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]any{
		"name": "A", "email": "bad", "password": "123",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.False(t, env.Success)
	require.Len(t, env.Errors, 3)
	assert.Equal(t, "name", env.Errors[0].Field)
	assert.Contains(t, env.Error, "name must be at least 2 characters long")

	status, env = s.do(t, http.MethodPost, "/api/auth/register", "", "{not json")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Invalid JSON body", env.Error)
}

func TestRegisterLongPassword(t *testing.T) {
	s := newTestServer(t, nil)
	password := strings.Repeat("p", 80)
	status, env := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]any{
		"name": "Ann", "email": "ann@example.com", "password": password,
	})
	require.Equal(t, http.StatusCreated, status, env.Error)

	status, env = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]any{"email": "ann@example.com", "password": password})
	require.Equal(t, http.StatusOK, status, env.Error)
	assert.Contains(t, string(env.Data), `"token"`)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t, nil)
	for _, path := range []string{"/api/tasks", "/api/users", "/api/auth/me"} {
		status, env := s.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, status, path)
		assert.Equal(t, auth.NotAuthorizedMessage, env.Error, path)
	}
	status, _ := s.do(t, http.MethodGet, "/api/tasks", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestTaskLifecycle(t *testing.T) {
	s := newTestServer(t, nil)
	ann, annToken := s.register(t, "Ann", "ann@example.com")
	bob, bobToken := s.register(t, "Bob", "bob@example.com")

	status, env := s.do(t, http.MethodPost, "/api/tasks", annToken, map[string]any{
		"title": "Write docs", "description": "API reference",
	})
	require.Equal(t, http.StatusCreated, status, env.Error)
	task := decodeTask(t, env)
	assert.Equal(t, "todo", task.Status)
	assert.Equal(t, "medium", task.Priority)
	assert.Nil(t, task.AssignedTo)
	require.NotNil(t, task.CreatedBy)
	assert.Equal(t, ann.ID, task.CreatedBy.ID)
	assert.Equal(t, "Ann", task.CreatedBy.Name)

	status, env = s.do(t, http.MethodPut, "/api/tasks/"+task.ID, annToken, map[string]any{"assignedTo": bob.ID})
	require.Equal(t, http.StatusOK, status, env.Error)
	updated := decodeTask(t, env)
	require.NotNil(t, updated.AssignedTo)
	assert.Equal(t, "Bob", updated.AssignedTo.Name)
	assert.Equal(t, "bob@example.com", updated.AssignedTo.Email)

	status, env = s.do(t, http.MethodPut, "/api/tasks/"+task.ID, bobToken, map[string]any{"title": "mine now"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Not authorized to update this task", env.Error)

	status, env = s.do(t, http.MethodPut, "/api/tasks/"+task.ID, annToken, map[string]any{"assignedTo": "", "dueDate": ""})
	require.Equal(t, http.StatusOK, status, env.Error)
	cleared := decodeTask(t, env)
	assert.Nil(t, cleared.AssignedTo)
	assert.Nil(t, cleared.DueDate)

	status, env = s.do(t, http.MethodGet, "/api/tasks/"+task.ID, bobToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, task.ID, decodeTask(t, env).ID)

	status, env = s.do(t, http.MethodDelete, "/api/tasks/"+task.ID, bobToken, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Not authorized to delete this task", env.Error)

	status, env = s.do(t, http.MethodDelete, "/api/tasks/"+task.ID, annToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, env.Success)
	assert.JSONEq(t, `{}`, string(env.Data))

	status, env = s.do(t, http.MethodGet, "/api/tasks/"+task.ID, annToken, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Task not found", env.Error)

	status, env = s.do(t, http.MethodPut, "/api/tasks/"+task.ID, annToken, map[string]any{"title": "x"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Task not found", env.Error)

	status, env = s.do(t, http.MethodDelete, "/api/tasks/not-a-uuid", annToken, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Task not found", env.Error)
}

func TestCreateTaskValidation(t *testing.T) {
	s := newTestServer(t, nil)
	_, token := s.register(t, "Ann", "ann@example.com")

	status, env := s.do(t, http.MethodPost, "/api/tasks", token, map[string]any{
		"title": strings.Repeat("a", 101), "description": "d",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	require.Len(t, env.Errors, 1)
	assert.Equal(t, "title", env.Errors[0].Field)

	status, env = s.do(t, http.MethodPost, "/api/tasks", token, map[string]any{
		"title": "t", "description": "d", "status": "done",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "status", env.Errors[0].Field)

	status, env = s.do(t, http.MethodPost, "/api/tasks", token, map[string]any{
		"title": "t", "description": "d", "assignedTo": "00000000-0000-0000-0000-000000000000",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Assigned user not found", env.Error)

	status, env = s.do(t, http.MethodPost, "/api/tasks", token, map[string]any{
		"title": "t", "description": "d", "dueDate": "2025-03-01",
	})
	require.Equal(t, http.StatusCreated, status)
	task := decodeTask(t, env)
	require.NotNil(t, task.DueDate)
	assert.True(t, strings.HasPrefix(*task.DueDate, "2025-03-01"))
}

func TestListTasksNewestFirst(t *testing.T) {
	s := newTestServer(t, nil)
	_, annToken := s.register(t, "Ann", "ann@example.com")
	_, bobToken := s.register(t, "Bob", "bob@example.com")

	for i, token := range []string{annToken, bobToken, annToken} {
		status, _ := s.do(t, http.MethodPost, "/api/tasks", token, map[string]any{
			"title": []string{"first", "second", "third"}[i], "description": "d",
		})
		require.Equal(t, http.StatusCreated, status)
	}

	status, env := s.do(t, http.MethodGet, "/api/tasks", bobToken, nil)
	require.Equal(t, http.StatusOK, status)
	var data struct {
		Tasks []taskJSON `json:"tasks"`
		Count int        `json:"count"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, 3, data.Count)
	require.Len(t, data.Tasks, 3)
	assert.Equal(t, []string{"third", "second", "first"}, []string{data.Tasks[0].Title, data.Tasks[1].Title, data.Tasks[2].Title})
}

func TestListUsers(t *testing.T) {
	s := newTestServer(t, nil)
	s.register(t, "Bob", "bob@example.com")
	_, token := s.register(t, "Ann", "ann@example.com")

	status, env := s.do(t, http.MethodGet, "/api/users", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.NotContains(t, string(env.Data), "password")
	var data struct {
		Users []userJSON `json:"users"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Len(t, data.Users, 2)
	assert.Equal(t, "Ann", data.Users[0].Name)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	s.do(t, http.MethodGet, "/health", "", nil)

	resp, err := s.app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "test_http_requests_total")
}

func TestAuthRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	s := newTestServer(t, httptransport.NewRateLimiter(client, 2, time.Minute, zap.NewNop()))
	body := map[string]any{"email": "nobody@example.com", "password": "secret1"}

	for i := 0; i < 2; i++ {
		status, _ := s.do(t, http.MethodPost, "/api/auth/login", "", body)
		assert.Equal(t, http.StatusUnauthorized, status)
	}
	status, env := s.do(t, http.MethodPost, "/api/auth/login", "", body)
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.False(t, env.Success)

	mr.FastForward(time.Minute + time.Second)
	status, _ = s.do(t, http.MethodPost, "/api/auth/login", "", body)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestAuthRateLimitFailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	s := newTestServer(t, httptransport.NewRateLimiter(client, 1, time.Minute, zap.NewNop()))
	for i := 0; i < 3; i++ {
		status, _ := s.do(t, http.MethodPost, "/api/auth/login", "", map[string]any{"email": "x@example.com", "password": "secret1"})
		assert.Equal(t, http.StatusUnauthorized, status)
	}
}
