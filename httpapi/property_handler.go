package httpapi

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"homevault/property"
)

// PropertyHandler exposes listing creation, browsing and admin moderation.
type PropertyHandler struct {
	svc *property.Service
	log *zap.Logger
}

func NewPropertyHandler(svc *property.Service, log *zap.Logger) *PropertyHandler {
	return &PropertyHandler{svc: svc, log: log}
}

type createPropertyRequest struct {
	Title    string  `json:"title"`
	Location string  `json:"location"`
	ImageURL *string `json:"image_url"`
	MinPrice int64   `json:"min_price"`
	MaxPrice int64   `json:"max_price"`
}

func (h *PropertyHandler) Create(c *fiber.Ctx) error {
	var req createPropertyRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	prop, err := h.svc.Create(c.Context(), property.CreateParams{
		AgentID:  callerClaims(c).UserID,
		Title:    req.Title,
		Location: req.Location,
		ImageURL: req.ImageURL,
		MinPrice: req.MinPrice,
		MaxPrice: req.MaxPrice,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.Status(fiber.StatusCreated).JSON(toPropertyResponse(prop))
}

func (h *PropertyHandler) List(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)

	props, err := h.svc.ListVerified(c.Context(), limit)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(toPropertyResponses(props))
}

func (h *PropertyHandler) Get(c *fiber.Ctx) error {
	prop, err := h.svc.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(toPropertyResponse(prop))
}

func (h *PropertyHandler) ListMine(c *fiber.Ctx) error {
	props, err := h.svc.ListMine(c.Context(), callerClaims(c).UserID)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(toPropertyResponses(props))
}

type moderateRequest struct {
	Decision property.VerificationStatus `json:"decision"`
}

func (h *PropertyHandler) Moderate(c *fiber.Ctx) error {
	var req moderateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	prop, err := h.svc.Moderate(c.Context(), c.Params("id"), req.Decision)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(toPropertyResponse(prop))
}
