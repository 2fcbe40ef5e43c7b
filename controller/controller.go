package controller

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"direct-messenger/hub"
	"direct-messenger/model"
	"direct-messenger/presence"
	"direct-messenger/service"
	"direct-messenger/storage"
	"direct-messenger/utils"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

var validate = validator.New()

// Accounts is the identity directory used by the auth and user endpoints.
type Accounts interface {
	UserByID(ctx context.Context, id uint) (*model.User, error)
	UserByEmail(ctx context.Context, email string) (*model.User, error)
	UserByUsername(ctx context.Context, username string) (*model.User, error)
	CreateUser(ctx context.Context, user *model.User) error
	SaveUser(ctx context.Context, user *model.User) error
}

type Tokens interface {
	SaveRefresh(ctx context.Context, userID, token string, ttl time.Duration) error
	RefreshMatches(ctx context.Context, userID, token string) (bool, error)
	Revoke(ctx context.Context, userID string) error
}

// Policies receives the role binding of every new account.
type Policies interface {
	AddGroupingPolicy(params ...interface{}) (bool, error)
}

type Config struct {
	Accounts    Accounts
	Tokens      Tokens
	Policies    Policies
	Service     *service.Conversations
	Hub         *hub.Hub
	Presence    *presence.Registry
	Uploader    *storage.Uploader
	HealthCheck func(ctx context.Context) error
	BcryptCost  int
}

type Controller struct {
	Config
}

func New(cfg Config) *Controller {
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 14
	}
	return &Controller{Config: cfg}
}

func success(c *fiber.Ctx, data any) error {
	return c.JSON(fiber.Map{
		"status":  "success",
		"message": nil,
		"data":    data,
	})
}

func created(c *fiber.Ctx, data any) error {
	c.Status(fiber.StatusCreated)
	return success(c, data)
}

func failure(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"status":  "error",
		"message": message,
		"data":    nil,
	})
}

func internalError(c *fiber.Ctx, err error) error {
	log.Printf("%s %s: %v", c.Method(), c.Path(), err)
	return failure(c, fiber.StatusInternalServerError, "Internal server error")
}

// serviceError maps a service error kind to its HTTP status.
func serviceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return failure(c, fiber.StatusNotFound, service.Message(err))
	case errors.Is(err, service.ErrForbidden):
		return failure(c, fiber.StatusForbidden, service.Message(err))
	case errors.Is(err, service.ErrInvalidArgument):
		return failure(c, fiber.StatusBadRequest, service.Message(err))
	case errors.Is(err, service.ErrConflict):
		return failure(c, fiber.StatusConflict, service.Message(err))
	}
	return internalError(c, err)
}

// bind decodes and validates the request body into input. When it reports false
// the error response has already been written and err is the write result.
func bind(c *fiber.Ctx, input any) (ok bool, err error) {
	if err := c.BodyParser(input); err != nil {
		return false, failure(c, fiber.StatusBadRequest, "Review your input")
	}
	if err := validate.Struct(input); err != nil {
		return false, failure(c, fiber.StatusBadRequest, validationMessage(err))
	}
	return true, nil
}

func validationMessage(err error) string {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return "Review your input"
	}
	fields := make([]string, 0, len(errs))
	for _, e := range errs {
		fields = append(fields, e.Field())
	}
	return "Invalid fields: " + strings.Join(fields, ", ")
}

// currentUserID reads the caller from the token placed by the JWT middleware.
func currentUserID(c *fiber.Ctx) (uint, bool) {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok {
		return 0, false
	}
	id, err := utils.ClaimsUserID(token)
	if err != nil {
		return 0, false
	}
	return id, true
}

func paramID(c *fiber.Ctx, name string) (uint, bool) {
	id, err := c.ParamsInt(name)
	if err != nil || id <= 0 {
		return 0, false
	}
	return uint(id), true
}
