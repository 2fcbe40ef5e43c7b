package controller

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// AdminPresence lists connection counts per online user.
func (h *Controller) AdminPresence(c *fiber.Ctx) error {
	snapshot := h.Presence.Snapshot()

	users := make([]fiber.Map, 0, len(snapshot))
	for _, id := range h.Presence.Online() {
		n, ok := snapshot[id]
		if !ok {
			continue
		}
		users = append(users, fiber.Map{
			"userId":      id,
			"connections": n,
		})
	}
	return success(c, fiber.Map{
		"online": len(users),
		"users":  users,
	})
}

func (h *Controller) Health(c *fiber.Ctx) error {
	if h.HealthCheck != nil {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := h.HealthCheck(ctx); err != nil {
			return failure(c, fiber.StatusServiceUnavailable, "Unavailable")
		}
	}
	return success(c, fiber.Map{"ok": true})
}
