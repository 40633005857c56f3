package middleware

import (
	"errors"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/voicelift/voicelift/app/models"
	"github.com/voicelift/voicelift/app/repository"
	"github.com/voicelift/voicelift/internal/pkg/identity"
	"github.com/voicelift/voicelift/internal/pkg/usercontext"
)

// AuthMiddleware authenticates requests carrying a bearer token issued by the
// identity provider. On first sight of a verified uid a free-plan account
// record is provisioned, so every authenticated request is backed by a record.
func AuthMiddleware(provider identity.Provider) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := extractBearerToken(c)
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing bearer token"})
		}

		ident, err := provider.VerifyToken(c.UserContext(), token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Invalid token"})
		}

		repo := repository.GetGlobalFactory().GetAccountRepository()
		account, err := repo.GetByID(c.UserContext(), ident.UID)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				log.Printf("auth middleware: account lookup failed: %v", err)
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Account lookup failed"})
			}
			account = models.NewAccount(ident.UID, ident.Email, ident.Name)
			if err := repo.Create(c.UserContext(), account); err != nil {
				log.Printf("auth middleware: account provisioning failed: %v", err)
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Account provisioning failed"})
			}
		}

		usercontext.SetUserContext(c, usercontext.UserContext{
			UserID:     account.ID,
			Email:      account.Email,
			Name:       account.Name,
			Plan:       account.Plan,
			IsLoggedIn: true,
		})

		return c.Next()
	}
}

func extractBearerToken(c *fiber.Ctx) string {
	auth := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
