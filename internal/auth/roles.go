package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/dispatch-service/internal/domain"
	apperrors "github.com/spec-kit/dispatch-service/pkg/util/errorutil"
)

// RequireRoles ensures the principal holds one of the allowed roles.
func RequireRoles(allowed ...domain.Role) fiber.Handler {
	allowedSet := make(map[domain.Role]struct{}, len(allowed))
	names := make([]string, 0, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
		names = append(names, string(role))
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if _, exists := allowedSet[principal.Role]; !exists {
			return apperrors.NewDomainError(apperrors.CodeForbidden, "insufficient role", fiber.StatusForbidden, map[string]any{
				"role":     string(principal.Role),
				"required": names,
			})
		}
		return c.Next()
	}
}

// RequireAnyRole ensures caller is authenticated with a recognized role.
func RequireAnyRole() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if !principal.Role.Valid() {
			return apperrors.NewForbidden("unknown role")
		}
		return c.Next()
	}
}
