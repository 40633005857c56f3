package controllers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"github.com/voicelift/voicelift/internal/pkg/billing"
	"github.com/voicelift/voicelift/internal/pkg/realtime"
)

// HandleSubscriptionEvents streams lifecycle snapshots for the authenticated
// user over server-sent events. The first frame is the current snapshot; each
// record mutation pushes a fresh one, so clients never poll for changes.
func HandleSubscriptionEvents(c *fiber.Ctx) error {
	userCtx, ok := requireActor(c, c.Query("userId"))
	if !ok {
		return nil
	}
	userID := userCtx.UserID

	snapshot, err := billingService.Status(c.UserContext(), userID)
	if err != nil {
		log.Printf("subscription events for %s: initial snapshot failed: %v", userID, err)
		return writeDomainError(c, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	updates, unsubscribe, err := realtime.Subscribe(ctx, userID)
	if err != nil {
		cancel()
		log.Printf("subscription events for %s: subscribe failed: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Subscription stream unavailable"})
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer cancel()
		defer unsubscribe()

		if err := writeSnapshotEvent(w, snapshot); err != nil {
			return
		}
		for account := range updates {
			if err := writeSnapshotEvent(w, billing.SnapshotFor(&account)); err != nil {
				return
			}
		}
	}))

	return nil
}

func writeSnapshotEvent(w *bufio.Writer, snapshot *billing.StatusSnapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: subscription\ndata: %s\n\n", payload); err != nil {
		return err
	}
	return w.Flush()
}
