package controller

import (
	"errors"

	"direct-messenger/storage"

	"github.com/gofiber/fiber/v2"
)

// Upload stores one multipart "file" and returns the descriptor a message can reference.
func (h *Controller) Upload(c *fiber.Ctx) error {
	header, err := c.FormFile("file")
	if err != nil {
		return failure(c, fiber.StatusBadRequest, "No file uploaded.")
	}
	if header.Size > h.Uploader.MaxBytes() {
		return failure(c, fiber.StatusRequestEntityTooLarge, "File exceeds the 5 MB limit.")
	}

	f, err := header.Open()
	if err != nil {
		return internalError(c, err)
	}
	defer f.Close()

	file, err := h.Uploader.Accept(c.UserContext(), header.Filename, f)
	switch {
	case errors.Is(err, storage.ErrTooLarge):
		return failure(c, fiber.StatusRequestEntityTooLarge, "File exceeds the 5 MB limit.")
	case errors.Is(err, storage.ErrUnsupportedType):
		return failure(c, fiber.StatusBadRequest, "Only PNG, JPEG, PDF and DOCX files are allowed.")
	case errors.Is(err, storage.ErrEmpty):
		return failure(c, fiber.StatusBadRequest, "No file uploaded.")
	case err != nil:
		return internalError(c, err)
	}

	return created(c, file)
}
