package controllers

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/voicelift/voicelift/internal/pkg/billing"
	"github.com/voicelift/voicelift/internal/pkg/deletion"
)

var deletionGuard *deletion.Guard

// SetupDeletion injects the deletion guard used by the account handlers.
func SetupDeletion(guard *deletion.Guard) {
	deletionGuard = guard
}

type accountDeleteRequest struct {
	UserID string `json:"userId"`
}

// HandleAccountDelete removes the authenticated user's account. The guard
// cancels any live subscription at the processor before the record goes; a
// processor failure aborts the whole request and nothing is deleted.
func HandleAccountDelete(c *fiber.Ctx) error {
	var req accountDeleteRequest
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid request body"})
	}
	userCtx, ok := requireActor(c, req.UserID)
	if !ok {
		return nil
	}

	if err := deletionGuard.Delete(c.UserContext(), userCtx.UserID); err != nil {
		if refusal, isRefusal := billing.AsRefusal(err); isRefusal {
			return writeRefusal(c, refusal)
		}
		log.Printf("account deletion for %s failed: %v", userCtx.UserID, err)
		return writeDomainError(c, err)
	}

	return c.JSON(fiber.Map{"status": "deleted"})
}
