package usercontext

import "github.com/gofiber/fiber/v2"

// UserContext represents the authenticated actor for a request
type UserContext struct {
	UserID     string `json:"user_id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	Plan       string `json:"plan"`
	IsLoggedIn bool   `json:"is_logged_in"`
}

// GetUserContext retrieves the user context from fiber context
// Returns a default anonymous context if none is set
func GetUserContext(c *fiber.Ctx) UserContext {
	if ctx := c.Locals(ContextKey); ctx != nil {
		if uc, ok := ctx.(UserContext); ok {
			return uc
		}
	}
	return UserContext{IsLoggedIn: false}
}

// SetUserContext stores the user context on the fiber context
func SetUserContext(c *fiber.Ctx, uc UserContext) {
	c.Locals(ContextKey, uc)
	c.Locals(KeyUserID, uc.UserID)
	c.Locals(KeyEmail, uc.Email)
	c.Locals(KeyPlan, uc.Plan)
}

// IsLoggedIn checks if the current user is logged in
func IsLoggedIn(c *fiber.Ctx) bool {
	return GetUserContext(c).IsLoggedIn
}

// GetUserID returns the current user's ID, or empty string if not logged in
func GetUserID(c *fiber.Ctx) string {
	return GetUserContext(c).UserID
}
