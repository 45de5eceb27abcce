package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-core/internal/domain"
	"github.com/spec-kit/helpdesk-core/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-core/pkg/util"
)

const principalKey = "auth_principal"

// Middleware verifies bearer tokens and resolves the calling user.
type Middleware struct {
	tokens *TokenManager
	users  repository.UserRepository
	logger *zap.Logger
}

// NewMiddleware constructs the auth middleware.
func NewMiddleware(tokens *TokenManager, users repository.UserRepository, logger *zap.Logger) *Middleware {
	return &Middleware{tokens: tokens, users: users, logger: logger}
}

// Authenticate parses the Authorization header, loads the user and stores it
// as the request principal. Inactive or unknown users are rejected.
func (m *Middleware) Authenticate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			return apperrors.NewUnauthorized("missing bearer token")
		}

		claims, err := m.tokens.Parse(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			return apperrors.NewUnauthorized("invalid bearer token")
		}

		user, err := m.users.GetByID(c.UserContext(), claims.UserID)
		if err != nil {
			m.logger.Debug("principal lookup failed", zap.String("user_id", claims.UserID), zap.Error(err))
			return apperrors.NewUnauthorized("unknown principal")
		}
		if !user.Active {
			return apperrors.NewUnauthorized("account deactivated")
		}

		c.Locals(principalKey, user)
		return c.Next()
	}
}

// PrincipalFromContext returns the authenticated user stored by Authenticate.
func PrincipalFromContext(c *fiber.Ctx) *domain.User {
	user, _ := c.Locals(principalKey).(*domain.User)
	return user
}
