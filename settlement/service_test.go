package settlement

import (
	"context"
	"errors"
	"testing"
	"time"

	"homevault/events"
	"homevault/offer"
	"homevault/property"
)

type fakeProvider struct {
	created  []CheckoutParams
	sessions map[string]SessionStatus
	err      error
}

func (f *fakeProvider) CreateCheckoutSession(_ context.Context, params CheckoutParams) (CheckoutSession, error) {
	if f.err != nil {
		return CheckoutSession{}, f.err
	}
	f.created = append(f.created, params)
	return CheckoutSession{ID: "cs_1", RedirectURL: "https://pay.example/cs_1"}, nil
}

func (f *fakeProvider) GetSession(_ context.Context, sessionID string) (SessionStatus, error) {
	if f.err != nil {
		return SessionStatus{}, f.err
	}
	status, ok := f.sessions[sessionID]
	if !ok {
		return SessionStatus{}, errors.New("fake: unknown session")
	}
	return status, nil
}

type fakeOfferStore struct {
	offers map[string]*offer.Offer
}

func (f *fakeOfferStore) GetByID(_ context.Context, offerID string) (offer.Offer, error) {
	off, ok := f.offers[offerID]
	if !ok {
		return offer.Offer{}, offer.ErrNotFound
	}
	return *off, nil
}

func (f *fakeOfferStore) MarkBought(_ context.Context, offerID string, ref offer.PaymentRef) (offer.Offer, error) {
	off, ok := f.offers[offerID]
	if !ok {
		return offer.Offer{}, offer.ErrNotFound
	}
	if off.Status != offer.StatusAccepted {
		return offer.Offer{}, offer.ErrNotAccepted
	}
	off.Status = offer.StatusBought
	refCopy := ref
	off.Payment = &refCopy
	return *off, nil
}

type fakePropertyStore struct {
	deals map[string]*property.DealStatus
	calls int
	err   error
}

func (f *fakePropertyStore) SetDealStatus(_ context.Context, id string, next property.DealStatus, expectedPrior *property.DealStatus) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	current := f.deals[id]
	same := func(a, b *property.DealStatus) bool {
		if a == nil || b == nil {
			return a == nil && b == nil
		}
		return *a == *b
	}
	if !same(current, expectedPrior) {
		if current != nil && *current == next {
			return nil
		}
		return property.ErrDealStatusConflict
	}
	f.deals[id] = &next
	return nil
}

type recordingPublisher struct {
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, event events.Event) error {
	p.events = append(p.events, event)
	return nil
}

func acceptedOffer(id string) *offer.Offer {
	return &offer.Offer{
		ID:         id,
		PropertyID: "prop-1",
		BuyerID:    "buyer-1",
		AgentID:    "agent-1",
		Amount:     150_000,
		Status:     offer.StatusAccepted,
	}
}

func acceptedDeal() map[string]*property.DealStatus {
	accepted := property.DealStatusAccepted
	return map[string]*property.DealStatus{"prop-1": &accepted}
}

func newTestService(offers *fakeOfferStore, props *fakePropertyStore, provider *fakeProvider, pub events.Publisher) *Service {
	return NewService(offers, props, provider, pub, Options{
		SuccessURL: "https://app.example/success",
		CancelURL:  "https://app.example/cancel",
		Currency:   "bdt",
	}, nil)
}

func TestCreateIntent(t *testing.T) {
	ctx := context.Background()

	provider := &fakeProvider{}
	offers := &fakeOfferStore{offers: map[string]*offer.Offer{"offer-1": acceptedOffer("offer-1")}}
	svc := newTestService(offers, &fakePropertyStore{deals: acceptedDeal()}, provider, nil)

	intent, err := svc.CreateIntent(ctx, "offer-1", "buyer-1")
	if err != nil {
		t.Fatalf("CreateIntent: %v", err)
	}
	if intent.SessionID != "cs_1" || intent.RedirectURL == "" {
		t.Errorf("intent = %+v, want session cs_1 with redirect", intent)
	}

	if len(provider.created) != 1 {
		t.Fatalf("provider calls = %d, want 1", len(provider.created))
	}
	params := provider.created[0]
	if params.Amount != 150_000 || params.Currency != "bdt" {
		t.Errorf("checkout params = %+v", params)
	}
	if params.Metadata["offer_id"] != "offer-1" || params.Metadata["property_id"] != "prop-1" || params.Metadata["buyer_id"] != "buyer-1" {
		t.Errorf("checkout metadata = %v", params.Metadata)
	}

	// The offer is untouched until the payment is confirmed.
	off, _ := offers.GetByID(ctx, "offer-1")
	if off.Status != offer.StatusAccepted {
		t.Errorf("offer status after intent = %s, want accepted", off.Status)
	}
}

func TestCreateIntentGuards(t *testing.T) {
	ctx := context.Background()

	pending := acceptedOffer("offer-2")
	pending.Status = offer.StatusPending
	offers := &fakeOfferStore{offers: map[string]*offer.Offer{
		"offer-1": acceptedOffer("offer-1"),
		"offer-2": pending,
	}}
	svc := newTestService(offers, &fakePropertyStore{deals: acceptedDeal()}, &fakeProvider{}, nil)

	if _, err := svc.CreateIntent(ctx, "offer-1", "buyer-9"); !errors.Is(err, ErrForbidden) {
		t.Errorf("foreign buyer error = %v, want ErrForbidden", err)
	}
	if _, err := svc.CreateIntent(ctx, "offer-2", "buyer-1"); !errors.Is(err, ErrNotAccepted) {
		t.Errorf("pending offer error = %v, want ErrNotAccepted", err)
	}
	if _, err := svc.CreateIntent(ctx, "ghost", "buyer-1"); !errors.Is(err, offer.ErrNotFound) {
		t.Errorf("missing offer error = %v, want offer.ErrNotFound", err)
	}
}

func TestConfirm(t *testing.T) {
	ctx := context.Background()

	provider := &fakeProvider{sessions: map[string]SessionStatus{
		"cs_1": {
			Paid:          true,
			TransactionID: "pi_1",
			Amount:        150_000,
			Metadata:      map[string]string{"offer_id": "offer-1"},
		},
	}}
	offers := &fakeOfferStore{offers: map[string]*offer.Offer{"offer-1": acceptedOffer("offer-1")}}
	props := &fakePropertyStore{deals: acceptedDeal()}
	pub := &recordingPublisher{}

	settledAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(offers, props, provider, pub).WithClock(func() time.Time { return settledAt })

	settled, err := svc.Confirm(ctx, "cs_1")
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if settled.Status != offer.StatusBought {
		t.Errorf("status = %s, want bought", settled.Status)
	}
	if settled.Payment == nil {
		t.Fatal("payment ref not written")
	}
	if settled.Payment.TransactionID != "pi_1" || settled.Payment.SessionID != "cs_1" || !settled.Payment.SettledAt.Equal(settledAt) {
		t.Errorf("payment ref = %+v", settled.Payment)
	}

	if deal := props.deals["prop-1"]; deal == nil || *deal != property.DealStatusSold {
		t.Errorf("property deal status = %v, want sold", deal)
	}

	if len(pub.events) != 2 || pub.events[0].Type != events.EventPropertySold || pub.events[1].Type != events.EventOfferSettled {
		t.Errorf("published events = %+v", pub.events)
	}
}

func TestConfirmIsIdempotent(t *testing.T) {
	ctx := context.Background()

	provider := &fakeProvider{sessions: map[string]SessionStatus{
		"cs_1": {
			Paid:          true,
			TransactionID: "pi_1",
			Amount:        150_000,
			Metadata:      map[string]string{"offer_id": "offer-1"},
		},
	}}
	offers := &fakeOfferStore{offers: map[string]*offer.Offer{"offer-1": acceptedOffer("offer-1")}}
	props := &fakePropertyStore{deals: acceptedDeal()}
	pub := &recordingPublisher{}
	svc := newTestService(offers, props, provider, pub)

	first, err := svc.Confirm(ctx, "cs_1")
	if err != nil {
		t.Fatalf("first Confirm: %v", err)
	}

	// The provider reports a different transaction on replay; the stored
	// reference must not change.
	provider.sessions["cs_1"] = SessionStatus{
		Paid:          true,
		TransactionID: "pi_replayed",
		Amount:        150_000,
		Metadata:      map[string]string{"offer_id": "offer-1"},
	}

	second, err := svc.Confirm(ctx, "cs_1")
	if err != nil {
		t.Fatalf("second Confirm: %v", err)
	}
	if second.Status != offer.StatusBought {
		t.Errorf("status = %s, want bought", second.Status)
	}
	if second.Payment == nil || second.Payment.TransactionID != first.Payment.TransactionID {
		t.Errorf("payment ref changed on replay: first=%+v second=%+v", first.Payment, second.Payment)
	}

	// Events are emitted once, for the confirmation that settled the offer.
	if len(pub.events) != 2 {
		t.Errorf("published events = %+v, want exactly the first confirmation's pair", pub.events)
	}
}

func TestConfirmReplayConvergesProperty(t *testing.T) {
	ctx := context.Background()

	// The offer settled on an earlier confirmation but the property flip never
	// landed. Replaying the confirmation must converge the property without
	// rewriting the payment reference or re-emitting events.
	bought := acceptedOffer("offer-1")
	bought.Status = offer.StatusBought
	bought.Payment = &offer.PaymentRef{TransactionID: "pi_first", Amount: 150_000, SessionID: "cs_1", SettledAt: time.Now()}

	provider := &fakeProvider{sessions: map[string]SessionStatus{
		"cs_1": {
			Paid:          true,
			TransactionID: "pi_replayed",
			Amount:        150_000,
			Metadata:      map[string]string{"offer_id": "offer-1"},
		},
	}}
	offers := &fakeOfferStore{offers: map[string]*offer.Offer{"offer-1": bought}}
	props := &fakePropertyStore{deals: acceptedDeal()}
	pub := &recordingPublisher{}
	svc := newTestService(offers, props, provider, pub)

	settled, err := svc.Confirm(ctx, "cs_1")
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if settled.Status != offer.StatusBought {
		t.Errorf("status = %s, want bought", settled.Status)
	}
	if settled.Payment == nil || settled.Payment.TransactionID != "pi_first" {
		t.Errorf("payment ref = %+v, want the original pi_first", settled.Payment)
	}
	if deal := props.deals["prop-1"]; deal == nil || *deal != property.DealStatusSold {
		t.Errorf("property deal status = %v, want sold after replay", deal)
	}
	if len(pub.events) != 0 {
		t.Errorf("published events = %+v, want none on replay", pub.events)
	}
}

func TestConfirmGuards(t *testing.T) {
	ctx := context.Background()

	pending := acceptedOffer("offer-2")
	pending.Status = offer.StatusPending
	provider := &fakeProvider{sessions: map[string]SessionStatus{
		"cs_unpaid":   {Paid: false, Metadata: map[string]string{"offer_id": "offer-1"}},
		"cs_unlinked": {Paid: true, TransactionID: "pi_x", Metadata: map[string]string{}},
		"cs_pending":  {Paid: true, TransactionID: "pi_y", Amount: 150_000, Metadata: map[string]string{"offer_id": "offer-2"}},
	}}
	offers := &fakeOfferStore{offers: map[string]*offer.Offer{
		"offer-1": acceptedOffer("offer-1"),
		"offer-2": pending,
	}}
	svc := newTestService(offers, &fakePropertyStore{deals: acceptedDeal()}, provider, nil)

	if _, err := svc.Confirm(ctx, "cs_unpaid"); !errors.Is(err, ErrPaymentIncomplete) {
		t.Errorf("unpaid session error = %v, want ErrPaymentIncomplete", err)
	}
	if _, err := svc.Confirm(ctx, "cs_unlinked"); !errors.Is(err, ErrSessionUnlinked) {
		t.Errorf("unlinked session error = %v, want ErrSessionUnlinked", err)
	}
	if _, err := svc.Confirm(ctx, "cs_pending"); !errors.Is(err, ErrNotAccepted) {
		t.Errorf("pending offer error = %v, want ErrNotAccepted", err)
	}

	// Failed confirmations leave the offers untouched.
	off, _ := offers.GetByID(ctx, "offer-1")
	if off.Status != offer.StatusAccepted {
		t.Errorf("offer-1 status = %s, want accepted", off.Status)
	}
}

func TestConfirmAmountMismatchStillSettles(t *testing.T) {
	ctx := context.Background()

	provider := &fakeProvider{sessions: map[string]SessionStatus{
		"cs_1": {
			Paid:          true,
			TransactionID: "pi_1",
			Amount:        149_000,
			Metadata:      map[string]string{"offer_id": "offer-1"},
		},
	}}
	offers := &fakeOfferStore{offers: map[string]*offer.Offer{"offer-1": acceptedOffer("offer-1")}}
	svc := newTestService(offers, &fakePropertyStore{deals: acceptedDeal()}, provider, nil)

	settled, err := svc.Confirm(ctx, "cs_1")
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	// The captured amount is recorded as evidence, mismatch and all.
	if settled.Payment == nil || settled.Payment.Amount != 149_000 {
		t.Errorf("payment ref = %+v, want captured amount 149000", settled.Payment)
	}
}
