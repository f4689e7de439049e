package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/task-service/internal/domain"
	"github.com/spec-kit/task-service/internal/repository"
	apperrors "github.com/spec-kit/task-service/pkg/util/errorutil"
)

const (
	userKey      = "auth_user"
	bearerPrefix = "Bearer "
)

// NotAuthorizedMessage is the only message clients see for authentication failures.
const NotAuthorizedMessage = "Not authorized to access this route"

// AuthMiddleware validates bearer tokens and loads the calling user.
type AuthMiddleware struct {
	tokens *TokenManager
	users  repository.UserRepository
	logger *zap.Logger
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, users repository.UserRepository, logger *zap.Logger) *AuthMiddleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthMiddleware{tokens: tokens, users: users, logger: logger}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	token, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
	if !ok {
		return m.reject(c, "missing or malformed authorization header", nil)
	}

	claims, err := m.tokens.ParseToken(token)
	if err != nil {
		return m.reject(c, "token verification failed", err)
	}

	user, err := m.users.GetByID(c.UserContext(), claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return m.reject(c, "token subject no longer exists", nil)
		}
		return apperrors.NewInternalError(err)
	}

	c.Locals(userKey, user.Sanitized())
	return c.Next()
}

func (m *AuthMiddleware) reject(c *fiber.Ctx, reason string, err error) error {
	m.logger.Debug("authentication rejected",
		zap.String("reason", reason),
		zap.String("path", c.Path()),
		zap.Error(err))
	return apperrors.NewUnauthorized(NotAuthorizedMessage)
}

// bearerToken extracts the token from an exact "Bearer <token>" header.
func bearerToken(header string) (string, bool) {
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", false
	}
	token := header[len(bearerPrefix):]
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", false
	}
	return token, true
}

// UserFromContext retrieves the authenticated user for this request.
func UserFromContext(c *fiber.Ctx) (*domain.User, bool) {
	val := c.Locals(userKey)
	if val == nil {
		return nil, false
	}
	user, ok := val.(*domain.User)
	return user, ok && user != nil
}
