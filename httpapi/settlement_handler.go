package httpapi

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"homevault/settlement"
)

// SettlementHandler exposes checkout intent creation and the confirmation
// callback the payment gateway redirects back to.
type SettlementHandler struct {
	svc *settlement.Service
	log *zap.Logger
}

func NewSettlementHandler(svc *settlement.Service, log *zap.Logger) *SettlementHandler {
	return &SettlementHandler{svc: svc, log: log}
}

type createIntentRequest struct {
	OfferID string `json:"offer_id"`
}

func (h *SettlementHandler) CreateIntent(c *fiber.Ctx) error {
	var req createIntentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	intent, err := h.svc.CreateIntent(c.Context(), req.OfferID, callerClaims(c).UserID)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"session_id": intent.SessionID,
		"url":        intent.RedirectURL,
	})
}

// Confirm may be hit any number of times for the same session; repeated calls
// return the settled offer without rewriting the payment reference.
func (h *SettlementHandler) Confirm(c *fiber.Ctx) error {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "session_id is required"})
	}

	settled, err := h.svc.Confirm(c.Context(), sessionID)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(toOfferResponse(settled))
}
