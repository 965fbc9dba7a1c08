package offer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"homevault/events"
	"homevault/property"
)

// fakeRepository is an in-memory Repository with the same status-CAS
// semantics as the Postgres implementation.
type fakeRepository struct {
	mu     sync.Mutex
	seq    int
	offers map[string]*Offer

	// dealStatus mimics the per-property deal column keyed by property id.
	dealStatus map[string]*property.DealStatus
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		offers:     make(map[string]*Offer),
		dealStatus: make(map[string]*property.DealStatus),
	}
}

func (f *fakeRepository) Create(_ context.Context, params CreateParams) (Offer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, o := range f.offers {
		if o.PropertyID == params.PropertyID && o.BuyerID == params.BuyerID {
			return Offer{}, ErrDuplicate
		}
	}

	f.seq++
	now := time.Now()
	off := Offer{
		ID:         fmt.Sprintf("offer-%d", f.seq),
		PropertyID: params.PropertyID,
		BuyerID:    params.BuyerID,
		AgentID:    params.AgentID,
		Amount:     params.Amount,
		BuyingDate: params.BuyingDate,
		Status:     StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	f.offers[off.ID] = &off
	return off, nil
}

func (f *fakeRepository) GetByID(_ context.Context, offerID string) (Offer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	off, ok := f.offers[offerID]
	if !ok {
		return Offer{}, ErrNotFound
	}
	return *off, nil
}

func (f *fakeRepository) GetByBuyerAndProperty(_ context.Context, buyerID, propertyID string) (Offer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, o := range f.offers {
		if o.BuyerID == buyerID && o.PropertyID == propertyID {
			return *o, nil
		}
	}
	return Offer{}, ErrNotFound
}

func (f *fakeRepository) ListByBuyer(_ context.Context, buyerID string) ([]Offer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []Offer
	for _, o := range f.offers {
		if o.BuyerID == buyerID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (f *fakeRepository) ListByAgent(_ context.Context, agentID string) ([]Offer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []Offer
	for _, o := range f.offers {
		if o.AgentID == agentID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (f *fakeRepository) ListSoldByAgent(_ context.Context, agentID string) ([]SoldOffer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []SoldOffer
	for _, o := range f.offers {
		if o.AgentID == agentID && o.Status == StatusBought {
			out = append(out, SoldOffer{Offer: *o})
		}
	}
	return out, nil
}

func (f *fakeRepository) Accept(_ context.Context, offerID string) (AcceptResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	off, ok := f.offers[offerID]
	if !ok {
		return AcceptResult{}, ErrNotFound
	}
	if off.Status != StatusPending {
		return AcceptResult{}, fmt.Errorf("%w: currently %s", ErrNotPending, off.Status)
	}
	if f.dealStatus[off.PropertyID] != nil {
		return AcceptResult{}, ErrPropertyUnderContract
	}

	off.Status = StatusAccepted
	accepted := property.DealStatusAccepted
	f.dealStatus[off.PropertyID] = &accepted

	var rejected int64
	for _, sib := range f.offers {
		if sib.PropertyID == off.PropertyID && sib.ID != off.ID && sib.Status == StatusPending {
			sib.Status = StatusRejected
			rejected++
		}
	}

	return AcceptResult{Offer: *off, SiblingsRejected: rejected}, nil
}

func (f *fakeRepository) Reject(_ context.Context, offerID string) (Offer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	off, ok := f.offers[offerID]
	if !ok {
		return Offer{}, ErrNotFound
	}
	if off.Status != StatusPending {
		return Offer{}, fmt.Errorf("%w: currently %s", ErrNotPending, off.Status)
	}
	off.Status = StatusRejected
	return *off, nil
}

func (f *fakeRepository) MarkBought(_ context.Context, offerID string, ref PaymentRef) (Offer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	off, ok := f.offers[offerID]
	if !ok {
		return Offer{}, ErrNotFound
	}
	if off.Status != StatusAccepted {
		return Offer{}, ErrNotAccepted
	}
	off.Status = StatusBought
	refCopy := ref
	off.Payment = &refCopy
	return *off, nil
}

// fakeCatalog serves properties by id.
type fakeCatalog struct {
	props map[string]property.Property
}

func (f *fakeCatalog) GetByID(_ context.Context, id string) (property.Property, error) {
	p, ok := f.props[id]
	if !ok {
		return property.Property{}, property.ErrNotFound
	}
	return p, nil
}

// fakeWishlist records removals and can be forced to fail.
type fakeWishlist struct {
	removed []string
	err     error
}

func (f *fakeWishlist) Remove(_ context.Context, userID, propertyID string) error {
	if f.err != nil {
		return f.err
	}
	f.removed = append(f.removed, userID+"/"+propertyID)
	return nil
}

// recordingPublisher captures published events in order.
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}
