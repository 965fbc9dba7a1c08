package httpapi

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"homevault/auth"
)

// AuthHandler exposes registration, login and the current-user lookup.
type AuthHandler struct {
	svc *auth.Service
	log *zap.Logger
}

func NewAuthHandler(svc *auth.Service, log *zap.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, log: log}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req auth.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	user, err := h.svc.Register(c.Context(), req)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.Status(fiber.StatusCreated).JSON(toUserResponse(*user))
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req auth.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	result, err := h.svc.Login(c.Context(), req)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(fiber.Map{
		"token": result.Token,
		"user":  toUserResponse(result.User),
	})
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	claims := callerClaims(c)

	user, err := h.svc.GetUserByID(c.Context(), claims.UserID)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(toUserResponse(*user))
}
