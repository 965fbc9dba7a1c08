package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"homevault/events"
	"homevault/offer"
	"homevault/property"
)

var (
	// ErrForbidden signals a requester who is not the offer's buyer.
	ErrForbidden = errors.New("settlement: requester is not the buyer")
	// ErrNotAccepted signals an intent or confirmation on an offer that is not accepted.
	ErrNotAccepted = errors.New("settlement: offer not accepted")
	// ErrPaymentIncomplete signals a confirmation for a session the provider
	// has not marked paid. Nothing is mutated.
	ErrPaymentIncomplete = errors.New("settlement: payment not completed")
	// ErrSessionUnlinked signals a provider session without offer metadata.
	ErrSessionUnlinked = errors.New("settlement: session carries no offer id")
)

// OfferStore is the offer capability the settlement service needs.
type OfferStore interface {
	GetByID(ctx context.Context, offerID string) (offer.Offer, error)
	MarkBought(ctx context.Context, offerID string, ref offer.PaymentRef) (offer.Offer, error)
}

// PropertyStore is the property capability the settlement service needs.
type PropertyStore interface {
	SetDealStatus(ctx context.Context, id string, next property.DealStatus, expectedPrior *property.DealStatus) error
}

// Intent is the redirect handle returned to the buyer.
type Intent struct {
	SessionID   string
	RedirectURL string
}

// Options carries checkout presentation knobs from config.
type Options struct {
	SuccessURL string
	CancelURL  string
	Currency   string
	// Timeout bounds each provider call.
	Timeout time.Duration
}

// Service drives an accepted offer through payment capture. Confirmation is
// re-invocable: the offer's accepted -> bought CAS commits the settlement and
// the property flip afterwards converges on retry.
type Service struct {
	offers     OfferStore
	properties PropertyStore
	provider   Provider
	publisher  events.Publisher
	opts       Options
	log        *zap.Logger
	now        func() time.Time
}

func NewService(offers OfferStore, properties PropertyStore, provider Provider, publisher events.Publisher, opts Options, log *zap.Logger) *Service {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	return &Service{
		offers:     offers,
		properties: properties,
		provider:   provider,
		publisher:  publisher,
		opts:       opts,
		log:        log,
		now:        time.Now,
	}
}

// WithClock overrides the settlement timestamp source for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// CreateIntent opens a provider checkout session for an accepted offer. It
// performs no local mutation, so a timed-out or failed call may be retried
// freely by the buyer.
func (s *Service) CreateIntent(ctx context.Context, offerID, requesterID string) (Intent, error) {
	off, err := s.offers.GetByID(ctx, offerID)
	if err != nil {
		return Intent{}, err
	}
	if off.BuyerID != requesterID {
		return Intent{}, ErrForbidden
	}
	if off.Status != offer.StatusAccepted {
		return Intent{}, fmt.Errorf("%w: currently %s", ErrNotAccepted, off.Status)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	session, err := s.provider.CreateCheckoutSession(callCtx, CheckoutParams{
		Amount:      off.Amount,
		Currency:    s.opts.Currency,
		ProductName: "Property purchase",
		SuccessURL:  s.opts.SuccessURL,
		CancelURL:   s.opts.CancelURL,
		Metadata: map[string]string{
			"offer_id":    off.ID,
			"buyer_id":    off.BuyerID,
			"property_id": off.PropertyID,
		},
	})
	if err != nil {
		return Intent{}, err
	}

	return Intent{SessionID: session.ID, RedirectURL: session.RedirectURL}, nil
}

// Confirm settles the offer tied to a paid provider session. It is safe to
// call any number of times with the same session id: once the offer is
// bought, further calls only re-converge the property flip and return the
// settled offer.
func (s *Service) Confirm(ctx context.Context, sessionID string) (offer.Offer, error) {
	if sessionID == "" {
		return offer.Offer{}, fmt.Errorf("settlement: session id required")
	}

	callCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	session, err := s.provider.GetSession(callCtx, sessionID)
	if err != nil {
		return offer.Offer{}, err
	}
	if !session.Paid {
		return offer.Offer{}, ErrPaymentIncomplete
	}

	offerID := session.Metadata["offer_id"]
	if offerID == "" {
		return offer.Offer{}, ErrSessionUnlinked
	}

	off, err := s.offers.GetByID(ctx, offerID)
	if err != nil {
		return offer.Offer{}, err
	}

	switch off.Status {
	case offer.StatusBought:
		// Duplicate or late confirmation: paymentRef stays as written by the
		// first confirmation. Re-converge the property flip and report success.
		if err := s.convergeSold(ctx, off.PropertyID); err != nil {
			return offer.Offer{}, err
		}
		return off, nil
	case offer.StatusAccepted:
		// proceed
	default:
		return offer.Offer{}, fmt.Errorf("%w: currently %s", ErrNotAccepted, off.Status)
	}

	if session.Amount != off.Amount {
		s.log.Warn("captured amount differs from offer amount",
			zap.String("offer_id", off.ID),
			zap.Int64("offer_amount", off.Amount),
			zap.Int64("captured_amount", session.Amount),
		)
	}

	settled, err := s.offers.MarkBought(ctx, off.ID, offer.PaymentRef{
		TransactionID: session.TransactionID,
		Amount:        session.Amount,
		SessionID:     sessionID,
		SettledAt:     s.now(),
	})
	if err != nil {
		if errors.Is(err, offer.ErrNotAccepted) {
			// Lost the CAS. If a concurrent confirmation settled the offer,
			// this call is a no-op success.
			current, readErr := s.offers.GetByID(ctx, off.ID)
			if readErr != nil {
				return offer.Offer{}, readErr
			}
			if current.Status == offer.StatusBought {
				if convErr := s.convergeSold(ctx, current.PropertyID); convErr != nil {
					return offer.Offer{}, convErr
				}
				return current, nil
			}
			return offer.Offer{}, fmt.Errorf("%w: currently %s", ErrNotAccepted, current.Status)
		}
		return offer.Offer{}, err
	}

	if err := s.convergeSold(ctx, settled.PropertyID); err != nil {
		// The offer is already bought; the property flip converges on the
		// next confirmation call. Surface the failure so the caller retries.
		return offer.Offer{}, err
	}

	_ = s.publisher.Publish(ctx, events.StreamOffers, events.Event{
		Type:    events.EventPropertySold,
		Payload: map[string]any{"property_id": settled.PropertyID},
	})
	_ = s.publisher.Publish(ctx, events.StreamOffers, events.Event{
		Type: events.EventOfferSettled,
		Payload: map[string]any{
			"offer_id":       settled.ID,
			"property_id":    settled.PropertyID,
			"buyer_id":       settled.BuyerID,
			"transaction_id": session.TransactionID,
		},
	})

	return settled, nil
}

const convergeAttempts = 3

// convergeSold marks the property sold, expecting it to be in accepted. The
// write is idempotent (already-sold reads as success) so it can be retried
// both here and across confirmation calls.
func (s *Service) convergeSold(ctx context.Context, propertyID string) error {
	accepted := property.DealStatusAccepted

	var err error
	for attempt := 1; attempt <= convergeAttempts; attempt++ {
		err = s.properties.SetDealStatus(ctx, propertyID, property.DealStatusSold, &accepted)
		if err == nil {
			return nil
		}
		if errors.Is(err, property.ErrNotFound) || errors.Is(err, property.ErrDealStatusConflict) {
			return err
		}
		s.log.Warn("mark property sold failed, retrying",
			zap.String("property_id", propertyID),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
	return fmt.Errorf("settlement: mark property sold: %w", err)
}
