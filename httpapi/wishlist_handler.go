package httpapi

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"homevault/wishlist"
)

// WishlistHandler exposes the buyer's saved-property list.
type WishlistHandler struct {
	svc *wishlist.Service
	log *zap.Logger
}

func NewWishlistHandler(svc *wishlist.Service, log *zap.Logger) *WishlistHandler {
	return &WishlistHandler{svc: svc, log: log}
}

type addWishlistRequest struct {
	PropertyID string `json:"property_id"`
}

func (h *WishlistHandler) Add(c *fiber.Ctx) error {
	var req addWishlistRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.PropertyID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "property_id is required"})
	}

	entry, err := h.svc.Add(c.Context(), callerClaims(c).UserID, req.PropertyID)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.Status(fiber.StatusCreated).JSON(wishlistEntryResponse{
		ID:         entry.ID,
		PropertyID: entry.PropertyID,
		CreatedAt:  entry.CreatedAt,
	})
}

func (h *WishlistHandler) Remove(c *fiber.Ctx) error {
	if err := h.svc.Remove(c.Context(), callerClaims(c).UserID, c.Params("propertyID")); err != nil {
		return respondError(c, h.log, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *WishlistHandler) List(c *fiber.Ctx) error {
	entries, err := h.svc.List(c.Context(), callerClaims(c).UserID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(toWishlistResponses(entries))
}
