package httpapi

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"homevault/auth"
	"homevault/offer"
	"homevault/property"
	"homevault/settlement"
	"homevault/wishlist"
)

// respondError maps domain sentinels onto HTTP statuses. The error text is
// forwarded so the UI can show which precondition failed.
func respondError(c *fiber.Ctx, log *zap.Logger, err error) error {
	status := fiber.StatusInternalServerError

	switch {
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken):
		status = fiber.StatusUnauthorized

	case errors.Is(err, offer.ErrForbidden),
		errors.Is(err, property.ErrForbidden),
		errors.Is(err, settlement.ErrForbidden):
		status = fiber.StatusForbidden

	case errors.Is(err, offer.ErrNotFound),
		errors.Is(err, offer.ErrPropertyNotFound),
		errors.Is(err, property.ErrNotFound),
		errors.Is(err, auth.ErrUserNotFound):
		status = fiber.StatusNotFound

	case errors.Is(err, offer.ErrDuplicate),
		errors.Is(err, offer.ErrPropertyUnderContract),
		errors.Is(err, property.ErrDealStatusConflict),
		errors.Is(err, auth.ErrDuplicateEmail),
		errors.Is(err, wishlist.ErrDuplicateEntry):
		status = fiber.StatusConflict

	case errors.Is(err, offer.ErrAmountOutOfRange),
		errors.Is(err, offer.ErrInvalidDecision),
		errors.Is(err, offer.ErrNotPending),
		errors.Is(err, property.ErrInvalidPriceRange),
		errors.Is(err, property.ErrAlreadyModerated),
		errors.Is(err, settlement.ErrNotAccepted),
		errors.Is(err, settlement.ErrPaymentIncomplete),
		errors.Is(err, settlement.ErrSessionUnlinked),
		errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, auth.ErrRoleNotAllowed):
		status = fiber.StatusBadRequest

	case errors.Is(err, settlement.ErrProviderUnavailable):
		status = fiber.StatusBadGateway
	}

	if status == fiber.StatusInternalServerError {
		log.Error("request failed", zap.Error(err))
		return c.Status(status).JSON(fiber.Map{"error": "internal server error"})
	}

	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
