package httpapi

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"homevault/auth"
	"homevault/offer"
	"homevault/property"
	"homevault/settlement"
	"homevault/wishlist"
)

// Services bundles everything the HTTP layer dispatches into.
type Services struct {
	Auth        *auth.Service
	Properties  *property.Service
	Submissions *offer.SubmissionService
	Decisions   *offer.DecisionService
	Settlement  *settlement.Service
	Wishlist    *wishlist.Service
}

// NewApp builds the fiber application with every route mounted.
func NewApp(svcs Services, log *zap.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "homevault",
		DisableStartupMessage: true,
	})

	app.Use(RequestID())
	app.Use(RequestLogger(log))

	authH := NewAuthHandler(svcs.Auth, log)
	propertyH := NewPropertyHandler(svcs.Properties, log)
	offerH := NewOfferHandler(svcs.Submissions, svcs.Decisions, log)
	settlementH := NewSettlementHandler(svcs.Settlement, log)
	wishlistH := NewWishlistHandler(svcs.Wishlist, log)

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api/v1")

	api.Post("/auth/register", authH.Register)
	api.Post("/auth/login", authH.Login)
	api.Get("/auth/me", RequireAuth(svcs.Auth), authH.Me)

	// Settlement confirmation is the gateway's redirect target; it carries no
	// bearer token, only the session id.
	api.Get("/payments/confirm", settlementH.Confirm)

	api.Get("/properties", propertyH.List)
	api.Get("/properties/:id", propertyH.Get)

	authed := api.Group("", RequireAuth(svcs.Auth))

	agent := authed.Group("", RequireRole(auth.RoleAgent))
	agent.Post("/properties", propertyH.Create)
	agent.Get("/agent/properties", propertyH.ListMine)
	agent.Get("/agent/offers", offerH.ListForAgent)
	agent.Get("/agent/sold", offerH.ListSold)
	agent.Post("/offers/:id/decision", offerH.Decide)

	admin := authed.Group("", RequireRole(auth.RoleAdmin))
	admin.Post("/admin/properties/:id/moderate", propertyH.Moderate)

	buyer := authed.Group("", RequireRole(auth.RoleBuyer))
	buyer.Post("/offers", offerH.Submit)
	buyer.Get("/offers", offerH.ListMine)
	buyer.Get("/offers/property/:propertyID", offerH.GetMineForProperty)
	buyer.Post("/payments/intent", settlementH.CreateIntent)
	buyer.Post("/wishlist", wishlistH.Add)
	buyer.Get("/wishlist", wishlistH.List)
	buyer.Delete("/wishlist/:propertyID", wishlistH.Remove)

	return app
}
