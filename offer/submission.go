package offer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"homevault/events"
	"homevault/property"
)

var (
	// ErrPropertyNotFound signals the offered property does not exist.
	ErrPropertyNotFound = errors.New("offer: property not found")
	// ErrAmountOutOfRange signals the amount falls outside the listing's price range.
	ErrAmountOutOfRange = errors.New("offer: amount outside allowed range")
)

// PropertyCatalog is the read capability the submission service needs from
// the property store.
type PropertyCatalog interface {
	GetByID(ctx context.Context, id string) (property.Property, error)
}

// WishlistCleaner removes a property from a buyer's wishlist once they have
// committed to an offer. Failures are non-fatal for submission.
type WishlistCleaner interface {
	Remove(ctx context.Context, userID, propertyID string) error
}

// SubmitParams carries a buyer's offer on a property.
type SubmitParams struct {
	BuyerID    string
	PropertyID string
	Amount     int64
	BuyingDate *time.Time
}

// SubmissionService validates and records new offers.
type SubmissionService struct {
	repo       Repository
	properties PropertyCatalog
	wishlist   WishlistCleaner
	publisher  events.Publisher
	log        *zap.Logger
}

func NewSubmissionService(repo Repository, properties PropertyCatalog, wishlist WishlistCleaner, publisher events.Publisher, log *zap.Logger) *SubmissionService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &SubmissionService{
		repo:       repo,
		properties: properties,
		wishlist:   wishlist,
		publisher:  publisher,
		log:        log,
	}
}

// Submit records a pending offer after checking, in order: the property
// exists, the buyer has never offered on it, and the amount sits inside the
// listing's price range. The wishlist removal afterwards is best-effort.
func (s *SubmissionService) Submit(ctx context.Context, params SubmitParams) (Offer, error) {
	if params.BuyerID == "" || params.PropertyID == "" {
		return Offer{}, fmt.Errorf("offer: buyer id and property id are required")
	}

	prop, err := s.properties.GetByID(ctx, params.PropertyID)
	if err != nil {
		if errors.Is(err, property.ErrNotFound) {
			return Offer{}, ErrPropertyNotFound
		}
		return Offer{}, fmt.Errorf("offer: resolve property: %w", err)
	}

	if _, err := s.repo.GetByBuyerAndProperty(ctx, params.BuyerID, params.PropertyID); err == nil {
		return Offer{}, ErrDuplicate
	} else if !errors.Is(err, ErrNotFound) {
		return Offer{}, fmt.Errorf("offer: check duplicate: %w", err)
	}

	if params.Amount < prop.MinPrice || params.Amount > prop.MaxPrice {
		return Offer{}, fmt.Errorf("%w: must be between %d and %d", ErrAmountOutOfRange, prop.MinPrice, prop.MaxPrice)
	}

	// The unique index on (property_id, buyer_id) backstops the duplicate
	// check under concurrent submits; Create maps it to ErrDuplicate.
	off, err := s.repo.Create(ctx, CreateParams{
		PropertyID: params.PropertyID,
		BuyerID:    params.BuyerID,
		AgentID:    prop.AgentID,
		Amount:     params.Amount,
		BuyingDate: params.BuyingDate,
	})
	if err != nil {
		return Offer{}, err
	}

	if err := s.wishlist.Remove(ctx, params.BuyerID, params.PropertyID); err != nil {
		s.log.Warn("wishlist cleanup after offer failed",
			zap.String("buyer_id", params.BuyerID),
			zap.String("property_id", params.PropertyID),
			zap.Error(err),
		)
	}

	_ = s.publisher.Publish(ctx, events.StreamOffers, events.Event{
		Type: events.EventOfferSubmitted,
		Payload: map[string]any{
			"offer_id":    off.ID,
			"property_id": off.PropertyID,
			"buyer_id":    off.BuyerID,
			"amount":      off.Amount,
		},
	})

	return off, nil
}

// ListMine returns the buyer's offers, newest first.
func (s *SubmissionService) ListMine(ctx context.Context, buyerID string) ([]Offer, error) {
	return s.repo.ListByBuyer(ctx, buyerID)
}

// GetMineForProperty returns the buyer's offer on a property, if any.
func (s *SubmissionService) GetMineForProperty(ctx context.Context, buyerID, propertyID string) (Offer, error) {
	return s.repo.GetByBuyerAndProperty(ctx, buyerID, propertyID)
}
