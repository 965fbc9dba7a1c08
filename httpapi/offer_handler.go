package httpapi

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"homevault/offer"
)

// OfferHandler exposes the buyer's submission surface and the agent's
// decision surface.
type OfferHandler struct {
	submissions *offer.SubmissionService
	decisions   *offer.DecisionService
	log         *zap.Logger
}

func NewOfferHandler(submissions *offer.SubmissionService, decisions *offer.DecisionService, log *zap.Logger) *OfferHandler {
	return &OfferHandler{submissions: submissions, decisions: decisions, log: log}
}

type submitOfferRequest struct {
	PropertyID string `json:"property_id"`
	Amount     int64  `json:"amount"`
	BuyingDate string `json:"buying_date"`
}

func (h *OfferHandler) Submit(c *fiber.Ctx) error {
	var req submitOfferRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	var buyingDate *time.Time
	if req.BuyingDate != "" {
		d, err := time.Parse("2006-01-02", req.BuyingDate)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "buying_date must be YYYY-MM-DD"})
		}
		buyingDate = &d
	}

	off, err := h.submissions.Submit(c.Context(), offer.SubmitParams{
		BuyerID:    callerClaims(c).UserID,
		PropertyID: req.PropertyID,
		Amount:     req.Amount,
		BuyingDate: buyingDate,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.Status(fiber.StatusCreated).JSON(toOfferResponse(off))
}

func (h *OfferHandler) ListMine(c *fiber.Ctx) error {
	offers, err := h.submissions.ListMine(c.Context(), callerClaims(c).UserID)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(toOfferResponses(offers))
}

func (h *OfferHandler) GetMineForProperty(c *fiber.Ctx) error {
	off, err := h.submissions.GetMineForProperty(c.Context(), callerClaims(c).UserID, c.Params("propertyID"))
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(toOfferResponse(off))
}

type decideRequest struct {
	Decision offer.Decision `json:"decision"`
}

func (h *OfferHandler) Decide(c *fiber.Ctx) error {
	var req decideRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	result, err := h.decisions.Decide(c.Context(), c.Params("id"), callerClaims(c).UserID, req.Decision)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(fiber.Map{
		"offer":             toOfferResponse(result.Offer),
		"siblings_rejected": result.SiblingsRejected,
	})
}

func (h *OfferHandler) ListForAgent(c *fiber.Ctx) error {
	offers, err := h.decisions.ListForAgent(c.Context(), callerClaims(c).UserID)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(toOfferResponses(offers))
}

func (h *OfferHandler) ListSold(c *fiber.Ctx) error {
	sold, err := h.decisions.ListSold(c.Context(), callerClaims(c).UserID)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(toSoldOfferResponses(sold))
}
