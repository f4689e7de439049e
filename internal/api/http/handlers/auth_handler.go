package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/task-service/internal/api/dto"
	"github.com/spec-kit/task-service/internal/auth"
	"github.com/spec-kit/task-service/internal/domain"
	"github.com/spec-kit/task-service/internal/service"
	apperrors "github.com/spec-kit/task-service/pkg/util/errorutil"
)

// AuthHandler exposes registration, login and the current-user endpoint.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	payload := BodyPayload(c)
	name, _ := payload.String("name")
	email, _ := payload.String("email")
	password, _ := payload.String("password")
	role, _ := payload.String("role")

	result, err := h.auth.Register(c.UserContext(), service.RegisterInput{
		Name:     name,
		Email:    email,
		Password: password,
		Role:     domain.Role(role),
	})
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(dto.OK(dto.AuthResponse{
		User:  dto.NewUserResponse(result.User),
		Token: result.Token,
	}))
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	payload := BodyPayload(c)
	email, _ := payload.String("email")
	password, _ := payload.String("password")

	result, err := h.auth.Login(c.UserContext(), email, password)
	if err != nil {
		return err
	}

	return c.JSON(dto.OK(dto.AuthResponse{
		User:  dto.NewUserResponse(result.User),
		Token: result.Token,
	}))
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	caller, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized(auth.NotAuthorizedMessage)
	}
	user, err := h.auth.GetByID(c.UserContext(), caller.ID)
	if err != nil {
		return err
	}
	return c.JSON(dto.OK(dto.UserEnvelope{User: dto.NewUserResponse(user)}))
}
