package api

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/fathima-sithara/tours-service/internal/apperror"
	"github.com/fathima-sithara/tours-service/internal/domain"
	"github.com/fathima-sithara/tours-service/internal/service"
)

type authHandler struct {
	svc          *service.AuthService
	cookieExpiry time.Duration
	development  bool
}

// sendToken writes the bearer token both in the body and as an http-only
// cookie.
func (h *authHandler) sendToken(c *fiber.Ctx, status int, token string, user *domain.User) error {
	c.Cookie(&fiber.Cookie{
		Name:     "jwt",
		Value:    token,
		Expires:  time.Now().Add(h.cookieExpiry),
		HTTPOnly: true,
		Secure:   !h.development,
	})

	body := fiber.Map{"status": "success", "token": token}
	if user != nil {
		body["data"] = fiber.Map{"user": user}
	}
	return c.Status(status).JSON(body)
}

func (h *authHandler) signup(c *fiber.Ctx) error {
	var in service.RegisterInput
	if err := c.BodyParser(&in); err != nil {
		return apperror.BadRequest("invalid request body")
	}
	user, token, err := h.svc.Register(c.Context(), in)
	if err != nil {
		return err
	}
	return h.sendToken(c, fiber.StatusCreated, token, user)
}

func (h *authHandler) login(c *fiber.Ctx) error {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&in); err != nil {
		return apperror.BadRequest("invalid request body")
	}
	_, token, err := h.svc.Login(c.Context(), in.Email, in.Password)
	if err != nil {
		return err
	}
	return h.sendToken(c, fiber.StatusOK, token, nil)
}

func (h *authHandler) forgotPassword(c *fiber.Ctx) error {
	var in struct {
		Email string `json:"email"`
	}
	if err := c.BodyParser(&in); err != nil || in.Email == "" {
		return apperror.BadRequest("please provide your email address")
	}

	resetURL := fmt.Sprintf("%s://%s/api/v1/users/resetPassword", c.Protocol(), c.Hostname())
	if err := h.svc.RequestPasswordReset(c.Context(), in.Email, resetURL); err != nil {
		return err
	}
	// Identical answer whether or not the address exists.
	return c.JSON(fiber.Map{
		"status":  "success",
		"message": "if that email exists, a reset token has been sent",
	})
}

func (h *authHandler) resetPassword(c *fiber.Ctx) error {
	var in struct {
		Password        string `json:"password"`
		PasswordConfirm string `json:"passwordConfirm"`
	}
	if err := c.BodyParser(&in); err != nil {
		return apperror.BadRequest("invalid request body")
	}
	_, token, err := h.svc.ResetPassword(c.Context(), c.Params("token"), in.Password, in.PasswordConfirm)
	if err != nil {
		return err
	}
	return h.sendToken(c, fiber.StatusOK, token, nil)
}

func (h *authHandler) updateMyPassword(c *fiber.Ctx) error {
	var in struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
		PasswordConfirm string `json:"passwordConfirm"`
	}
	if err := c.BodyParser(&in); err != nil {
		return apperror.BadRequest("invalid request body")
	}
	user := CurrentUser(c)
	token, err := h.svc.ChangePassword(c.Context(), user.ID.Hex(), in.CurrentPassword, in.NewPassword, in.PasswordConfirm)
	if err != nil {
		return err
	}
	return h.sendToken(c, fiber.StatusOK, token, nil)
}
