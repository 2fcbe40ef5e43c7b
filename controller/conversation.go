package controller

import (
	"github.com/gofiber/fiber/v2"
)

type ConversationCreateInput struct {
	Email string `json:"email"`
}

func (h *Controller) ConversationList(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return failure(c, fiber.StatusUnauthorized, "Invalid or expired JWT")
	}

	list, err := h.Service.ListConversations(c.UserContext(), userID)
	if err != nil {
		return serviceError(c, err)
	}
	return success(c, list)
}

// ConversationCreate opens or revives the conversation with the owner of the given email.
func (h *Controller) ConversationCreate(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return failure(c, fiber.StatusUnauthorized, "Invalid or expired JWT")
	}
	input := new(ConversationCreateInput)
	if ok, err := bind(c, input); !ok {
		return err
	}

	summary, err := h.Service.CreateOrRevive(c.UserContext(), userID, input.Email)
	if err != nil {
		return serviceError(c, err)
	}
	if h.Hub != nil {
		h.Hub.ConversationOpened(userID, summary)
	}
	return created(c, summary)
}

func (h *Controller) ConversationMarkRead(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return failure(c, fiber.StatusUnauthorized, "Invalid or expired JWT")
	}
	id, ok := paramID(c, "id")
	if !ok {
		return failure(c, fiber.StatusBadRequest, "Invalid conversation id.")
	}

	if _, err := h.Service.MarkRead(c.UserContext(), id, userID); err != nil {
		return serviceError(c, err)
	}
	if h.Hub != nil {
		h.Hub.ConversationRead(c.UserContext(), id, userID)
	}
	return success(c, fiber.Map{"id": id})
}

func (h *Controller) ConversationDelete(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return failure(c, fiber.StatusUnauthorized, "Invalid or expired JWT")
	}
	id, ok := paramID(c, "id")
	if !ok {
		return failure(c, fiber.StatusBadRequest, "Invalid conversation id.")
	}

	if err := h.Service.SoftDelete(c.UserContext(), id, userID); err != nil {
		return serviceError(c, err)
	}
	if h.Hub != nil {
		h.Hub.ConversationHidden(userID, id)
	}
	return success(c, fiber.Map{"id": id})
}
