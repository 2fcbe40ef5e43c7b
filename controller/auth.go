package controller

import (
	"errors"
	"fmt"
	"log"
	"net/mail"
	"strconv"
	"strings"

	"direct-messenger/config"
	"direct-messenger/model"
	"direct-messenger/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"
)

type AuthSignupInput struct {
	Username    string `json:"username" validate:"required,min=3,max=32"`
	DisplayName string `json:"displayName" validate:"max=64"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=6,max=72"`
}

type AuthLoginInput struct {
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type AuthRenewTokenInput struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type AuthOtpSecretInput struct {
	Password string `json:"password" validate:"required"`
}

type AuthOtpVerifyInput struct {
	Token string `json:"token" validate:"required"`
}

type AuthOtpValidateInput struct {
	Token string `json:"token" validate:"required"`
}

type AuthOtpDisableInput struct {
	Password string `json:"password" validate:"required"`
	Token    string `json:"token" validate:"required"`
}

func (h *Controller) AuthSignup(c *fiber.Ctx) error {
	input := new(AuthSignupInput)
	if ok, err := bind(c, input); !ok {
		return err
	}
	email := strings.ToLower(strings.TrimSpace(input.Email))
	username := strings.TrimSpace(input.Username)

	// If existed email is found, return error
	if _, err := h.Accounts.UserByEmail(c.UserContext(), email); err == nil {
		return failure(c, fiber.StatusBadRequest, "Email is already registered")
	} else if !errors.Is(err, model.ErrNotFound) {
		return internalError(c, err)
	}

	// If existed username is found, return error
	if _, err := h.Accounts.UserByUsername(c.UserContext(), username); err == nil {
		return failure(c, fiber.StatusBadRequest, "Username is already registered")
	} else if !errors.Is(err, model.ErrNotFound) {
		return internalError(c, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), h.BcryptCost)
	if err != nil {
		return internalError(c, err)
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      config.ConfigDefault("OTP_ISSUER", "direct-messenger"),
		AccountName: email,
		SecretSize:  15,
	})
	if err != nil {
		return internalError(c, err)
	}

	displayName := strings.TrimSpace(input.DisplayName)
	if displayName == "" {
		displayName = username
	}

	user := &model.User{
		Username:    username,
		DisplayName: displayName,
		Email:       email,
		Password:    string(hash),
		Role:        "user",
		Theme:       model.ThemeDark,
		Otp_secret:  key.Secret(),
	}
	if err := h.Accounts.CreateUser(c.UserContext(), user); err != nil {
		return internalError(c, err)
	}

	if h.Policies != nil {
		if _, err := h.Policies.AddGroupingPolicy(fmt.Sprint(user.ID), user.Role); err != nil {
			log.Printf("add role binding for user %d: %v", user.ID, err)
		}
	}

	return success(c, fiber.Map{
		"id": user.ID,
	})
}

func (h *Controller) AuthSignin(c *fiber.Ctx) error {
	input := new(AuthLoginInput)
	if ok, err := bind(c, input); !ok {
		return err
	}

	var (
		user *model.User
		err  error
	)
	login := strings.TrimSpace(input.Login)
	if _, errParse := mail.ParseAddress(login); errParse == nil {
		user, err = h.Accounts.UserByEmail(c.UserContext(), strings.ToLower(login))
	} else {
		user, err = h.Accounts.UserByUsername(c.UserContext(), login)
	}
	if errors.Is(err, model.ErrNotFound) {
		return failure(c, fiber.StatusUnauthorized, "Invalid login or password")
	}
	if err != nil {
		return internalError(c, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)); err != nil {
		return failure(c, fiber.StatusUnauthorized, "Invalid login or password")
	}

	return h.issueTokens(c, strconv.FormatUint(uint64(user.ID), 10), user.Otp_enabled)
}

func (h *Controller) AuthTokenRenew(c *fiber.Ctx) error {
	input := new(AuthRenewTokenInput)
	if ok, err := bind(c, input); !ok {
		return err
	}

	claims, err := utils.CheckAndExtractTokenMetadata(input.RefreshToken, utils.RefreshKey)
	if err != nil {
		return failure(c, fiber.StatusUnauthorized, "Invalid token")
	}

	matches, err := h.Tokens.RefreshMatches(c.UserContext(), claims.Id, input.RefreshToken)
	if err != nil {
		return internalError(c, err)
	}
	if !matches {
		return failure(c, fiber.StatusUnauthorized, "Unauthorized, your refresh token was already used")
	}

	return h.issueTokens(c, claims.Id, claims.Otp)
}

// AuthSignout drops the stored refresh token so it can no longer be renewed.
func (h *Controller) AuthSignout(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return failure(c, fiber.StatusUnauthorized, "Invalid or expired JWT")
	}
	if err := h.Tokens.Revoke(c.UserContext(), strconv.FormatUint(uint64(userID), 10)); err != nil {
		return internalError(c, err)
	}
	return success(c, nil)
}

// issueTokens rotates the refresh token and returns the new pair.
func (h *Controller) issueTokens(c *fiber.Ctx, id string, otpPending bool) error {
	tokens, err := utils.GenerateTokens(id, otpPending)
	if err != nil {
		return internalError(c, err)
	}
	if err := h.Tokens.SaveRefresh(c.UserContext(), id, tokens.Refresh, utils.RefreshTTL()); err != nil {
		return internalError(c, err)
	}

	return success(c, fiber.Map{
		"access":  tokens.Access,
		"refresh": tokens.Refresh,
		"2fa":     otpPending,
	})
}

// currentUser loads the account behind the request token.
func (h *Controller) currentUser(c *fiber.Ctx) (*model.User, error) {
	id, ok := currentUserID(c)
	if !ok {
		return nil, model.ErrNotFound
	}
	return h.Accounts.UserByID(c.UserContext(), id)
}

func (h *Controller) AuthOtpSecret(c *fiber.Ctx) error {
	input := new(AuthOtpSecretInput)
	if ok, err := bind(c, input); !ok {
		return err
	}

	user, err := h.currentUser(c)
	if err != nil {
		return internalError(c, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)); err != nil {
		return failure(c, fiber.StatusUnauthorized, "Invalid password")
	}

	issuer := config.ConfigDefault("OTP_ISSUER", "direct-messenger")
	return success(c, fiber.Map{
		"secret": user.Otp_secret,
		"url": fmt.Sprintf("otpauth://totp/%s:%s?algorithm=SHA1&digits=6&issuer=%s&period=30&secret=%s",
			issuer,
			user.Email,
			issuer,
			user.Otp_secret,
		),
	})
}

func (h *Controller) AuthOtpVerify(c *fiber.Ctx) error {
	input := new(AuthOtpVerifyInput)
	if ok, err := bind(c, input); !ok {
		return err
	}

	user, err := h.currentUser(c)
	if err != nil {
		return internalError(c, err)
	}

	if user.Otp_enabled {
		return failure(c, fiber.StatusBadRequest, "Verification has already been performed earlier")
	}
	if !totp.Validate(input.Token, user.Otp_secret) {
		return failure(c, fiber.StatusUnauthorized, "Invalid token")
	}

	user.Otp_enabled = true
	if err := h.Accounts.SaveUser(c.UserContext(), user); err != nil {
		return internalError(c, err)
	}
	return success(c, nil)
}

// AuthOtpValidate trades a pending token plus a valid code for a full token pair.
func (h *Controller) AuthOtpValidate(c *fiber.Ctx) error {
	input := new(AuthOtpValidateInput)
	if ok, err := bind(c, input); !ok {
		return err
	}

	user, err := h.currentUser(c)
	if err != nil {
		return internalError(c, err)
	}

	if !user.Otp_enabled {
		return failure(c, fiber.StatusBadRequest, "2FA has been disabled")
	}
	if !totp.Validate(input.Token, user.Otp_secret) {
		return failure(c, fiber.StatusUnauthorized, "Invalid token")
	}

	return h.issueTokens(c, strconv.FormatUint(uint64(user.ID), 10), false)
}

func (h *Controller) AuthOtpDisable(c *fiber.Ctx) error {
	input := new(AuthOtpDisableInput)
	if ok, err := bind(c, input); !ok {
		return err
	}

	user, err := h.currentUser(c)
	if err != nil {
		return internalError(c, err)
	}

	if !user.Otp_enabled {
		return failure(c, fiber.StatusBadRequest, "2fa not enabled")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)); err != nil {
		return failure(c, fiber.StatusUnauthorized, "Invalid password")
	}
	if !totp.Validate(input.Token, user.Otp_secret) {
		return failure(c, fiber.StatusUnauthorized, "Invalid token")
	}

	user.Otp_enabled = false
	if err := h.Accounts.SaveUser(c.UserContext(), user); err != nil {
		return internalError(c, err)
	}
	return success(c, nil)
}
