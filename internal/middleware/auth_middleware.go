package middleware

import (
	"strings"

	"bakery-backoffice/internal/model"
	"bakery-backoffice/internal/repository"
	"bakery-backoffice/pkg/jwt"

	"github.com/gofiber/fiber/v2"
)

// RequireAuth validates the bearer token, checks the account is still active
// and stores the caller in the request locals.
func RequireAuth(tokens *jwt.Manager, userRepo repository.UserRepository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(401).JSON(fiber.Map{"error": "Missing authorization token"})
		}

		// "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			return c.Status(401).JSON(fiber.Map{"error": "Invalid authorization format. Use: Bearer <token>"})
		}

		claims, err := tokens.Validate(parts[1])
		if err != nil {
			return c.Status(401).JSON(fiber.Map{"error": "Invalid or expired token"})
		}

		user, err := userRepo.FindByID(claims.UserID)
		if err != nil {
			return c.Status(401).JSON(fiber.Map{"error": "User not found"})
		}
		if !user.IsActive {
			return c.Status(401).JSON(fiber.Map{"error": "User account is inactive"})
		}

		// the stored role wins over the one in the token
		c.Locals("user_id", user.ID.String())
		c.Locals("user_email", user.Email)
		c.Locals("user_name", user.FullName)
		c.Locals("user_role", string(user.Role))

		return c.Next()
	}
}

// RequireRole lets the request through only for one of the given roles.
func RequireRole(roles ...model.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, _ := c.Locals("user_role").(string)
		for _, r := range roles {
			if model.Role(role) == r {
				return c.Next()
			}
		}

		names := make([]string, len(roles))
		for i, r := range roles {
			names[i] = string(r)
		}
		return c.Status(403).JSON(fiber.Map{
			"error": "Forbidden: requires one of " + strings.Join(names, ", ") + " roles",
		})
	}
}

// RequireSupervisor is RequireRole for either supervisor level.
func RequireSupervisor() fiber.Handler {
	return RequireRole(model.RoleSupervisorJunior, model.RoleSupervisorSenior)
}
