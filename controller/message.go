package controller

import (
	"direct-messenger/model"
	"direct-messenger/service"

	"github.com/gofiber/fiber/v2"
)

type MessageSendInput struct {
	Content  string `json:"content" validate:"max=10000"`
	FileURL  string `json:"fileUrl" validate:"max=2048"`
	FileName string `json:"fileName" validate:"max=255"`
	FileType string `json:"fileType" validate:"max=255"`
}

// MessageList returns the history oldest first. ?limit= and ?before= page backwards from the newest.
func (h *Controller) MessageList(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return failure(c, fiber.StatusUnauthorized, "Invalid or expired JWT")
	}
	id, ok := paramID(c, "conversationId")
	if !ok {
		return failure(c, fiber.StatusBadRequest, "Invalid conversation id.")
	}

	before := c.QueryInt("before", 0)
	if before < 0 {
		return failure(c, fiber.StatusBadRequest, "Before must not be negative.")
	}
	page := model.Page{
		Limit:    c.QueryInt("limit", 0),
		BeforeID: uint(before),
	}

	messages, err := h.Service.ListMessagesPage(c.UserContext(), id, userID, page)
	if err != nil {
		return serviceError(c, err)
	}
	return success(c, messages)
}

func (h *Controller) MessageSend(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return failure(c, fiber.StatusUnauthorized, "Invalid or expired JWT")
	}
	id, ok := paramID(c, "conversationId")
	if !ok {
		return failure(c, fiber.StatusBadRequest, "Invalid conversation id.")
	}
	input := new(MessageSendInput)
	if ok, err := bind(c, input); !ok {
		return err
	}

	in := service.SendMessageInput{
		ConversationID: id,
		SenderID:       userID,
		Content:        input.Content,
	}
	if input.FileURL != "" {
		in.File = &service.FileDescriptor{
			URL:      input.FileURL,
			Name:     input.FileName,
			MimeType: input.FileType,
		}
	}

	sent, err := h.Service.SendMessage(c.UserContext(), in)
	if err != nil {
		return serviceError(c, err)
	}
	if h.Hub != nil {
		h.Hub.MessageSent(c.UserContext(), sent)
	}
	return created(c, sent.Message)
}
