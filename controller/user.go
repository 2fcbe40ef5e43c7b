package controller

import (
	"errors"
	"strings"

	"direct-messenger/model"

	"github.com/gofiber/fiber/v2"
)

type UserPreferencesInput struct {
	Theme         *string `json:"theme" validate:"omitempty,oneof=dark light"`
	BackgroundURL *string `json:"backgroundUrl" validate:"omitempty,max=2048"`
}

func profile(user *model.User) fiber.Map {
	return fiber.Map{
		"id":            user.ID,
		"created":       user.CreatedAt.Unix(),
		"username":      user.Username,
		"displayName":   user.DisplayName,
		"email":         user.Email,
		"role":          user.Role,
		"otp":           user.Otp_enabled,
		"theme":         user.Theme,
		"backgroundUrl": user.BackgroundURL,
		"lastSeen":      user.LastSeen,
	}
}

func (h *Controller) UserProfile(c *fiber.Ctx) error {
	user, err := h.currentUser(c)
	if errors.Is(err, model.ErrNotFound) {
		return failure(c, fiber.StatusNotFound, "User not found.")
	}
	if err != nil {
		return internalError(c, err)
	}
	return success(c, profile(user))
}

// UserPreferences updates theme and background. An empty backgroundUrl clears it.
func (h *Controller) UserPreferences(c *fiber.Ctx) error {
	input := new(UserPreferencesInput)
	if ok, err := bind(c, input); !ok {
		return err
	}

	user, err := h.currentUser(c)
	if errors.Is(err, model.ErrNotFound) {
		return failure(c, fiber.StatusNotFound, "User not found.")
	}
	if err != nil {
		return internalError(c, err)
	}

	if input.Theme != nil {
		user.Theme = *input.Theme
	}
	if input.BackgroundURL != nil {
		if bg := strings.TrimSpace(*input.BackgroundURL); bg == "" {
			user.BackgroundURL = nil
		} else {
			user.BackgroundURL = &bg
		}
	}

	if err := h.Accounts.SaveUser(c.UserContext(), user); err != nil {
		return internalError(c, err)
	}
	return success(c, profile(user))
}
