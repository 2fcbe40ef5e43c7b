package router

import (
	"direct-messenger/controller"
	"direct-messenger/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
)

func Rest(app *fiber.App, h *controller.Controller, enforcer middleware.Enforcer) {
	app.Get("/health", h.Health)

	api := app.Group("/v1", logger.New())

	// Auth
	auth := api.Group("/auth")
	auth.Post("/signup", h.AuthSignup)
	auth.Post("/signin", h.AuthSignin)
	auth.Post("/token/renew", h.AuthTokenRenew)
	auth.Post("/signout", middleware.JWT(), h.AuthSignout)
	auth.Post("/2fa/secret", middleware.JWT(), middleware.OTP(), h.AuthOtpSecret)
	auth.Post("/2fa/verify", middleware.JWT(), middleware.OTP(), h.AuthOtpVerify)
	auth.Post("/2fa/validate", middleware.JWT(), h.AuthOtpValidate)
	auth.Post("/2fa/disable", middleware.JWT(), middleware.OTP(), h.AuthOtpDisable)

	// User
	user := api.Group("/user", middleware.JWT(), middleware.OTP())
	user.Get("/profile", h.UserProfile)
	user.Patch("/preferences", h.UserPreferences)

	// Conversations
	conversations := api.Group("/conversations", middleware.JWT(), middleware.OTP())
	conversations.Get("", h.ConversationList)
	conversations.Post("", h.ConversationCreate)
	conversations.Patch("/:id/mark-read", h.ConversationMarkRead)
	conversations.Delete("/:id", h.ConversationDelete)

	// Messages
	messages := api.Group("/messages", middleware.JWT(), middleware.OTP())
	messages.Get("/:conversationId", h.MessageList)
	messages.Post("/:conversationId", h.MessageSend)

	// Upload
	api.Post("/upload", middleware.JWT(), middleware.OTP(), h.Upload)

	// Admin
	admin := api.Group("/admin", middleware.JWT(), middleware.OTP(), middleware.RBAC(enforcer))
	admin.Get("/presence", h.AdminPresence)
}
