package offer

import (
	"context"
	"errors"
	"testing"

	"homevault/events"
)

func seedPending(t *testing.T, repo *fakeRepository, buyerID, propertyID string) Offer {
	t.Helper()
	off, err := repo.Create(context.Background(), CreateParams{
		PropertyID: propertyID,
		BuyerID:    buyerID,
		AgentID:    "agent-1",
		Amount:     150_000,
	})
	if err != nil {
		t.Fatalf("seed offer: %v", err)
	}
	return off
}

func TestDecideAcceptRejectsSiblings(t *testing.T) {
	ctx := context.Background()

	repo := newFakeRepository()
	winner := seedPending(t, repo, "buyer-1", "prop-1")
	loserA := seedPending(t, repo, "buyer-2", "prop-1")
	loserB := seedPending(t, repo, "buyer-3", "prop-1")
	unrelated := seedPending(t, repo, "buyer-1", "prop-2")

	pub := &recordingPublisher{}
	svc := NewDecisionService(repo, pub, nil)

	result, err := svc.Decide(ctx, winner.ID, "agent-1", DecisionAccept)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if result.Offer.Status != StatusAccepted {
		t.Errorf("winner status = %s, want %s", result.Offer.Status, StatusAccepted)
	}
	if result.SiblingsRejected != 2 {
		t.Errorf("siblings rejected = %d, want 2", result.SiblingsRejected)
	}

	for _, id := range []string{loserA.ID, loserB.ID} {
		got, _ := repo.GetByID(ctx, id)
		if got.Status != StatusRejected {
			t.Errorf("sibling %s status = %s, want %s", id, got.Status, StatusRejected)
		}
	}

	// Offers on other properties are untouched.
	got, _ := repo.GetByID(ctx, unrelated.ID)
	if got.Status != StatusPending {
		t.Errorf("unrelated offer status = %s, want %s", got.Status, StatusPending)
	}

	types := pub.types()
	if len(types) != 1 || types[0] != events.EventOfferAccepted {
		t.Errorf("published events = %v, want [%s]", types, events.EventOfferAccepted)
	}
}

func TestDecideReject(t *testing.T) {
	ctx := context.Background()

	repo := newFakeRepository()
	target := seedPending(t, repo, "buyer-1", "prop-1")
	sibling := seedPending(t, repo, "buyer-2", "prop-1")

	pub := &recordingPublisher{}
	svc := NewDecisionService(repo, pub, nil)

	result, err := svc.Decide(ctx, target.ID, "agent-1", DecisionReject)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if result.Offer.Status != StatusRejected {
		t.Errorf("status = %s, want %s", result.Offer.Status, StatusRejected)
	}

	// Rejection does not touch siblings or the property.
	got, _ := repo.GetByID(ctx, sibling.ID)
	if got.Status != StatusPending {
		t.Errorf("sibling status = %s, want %s", got.Status, StatusPending)
	}
	if repo.dealStatus["prop-1"] != nil {
		t.Errorf("property deal status = %v, want open", *repo.dealStatus["prop-1"])
	}

	types := pub.types()
	if len(types) != 1 || types[0] != events.EventOfferRejected {
		t.Errorf("published events = %v, want [%s]", types, events.EventOfferRejected)
	}
}

func TestDecideTwice(t *testing.T) {
	ctx := context.Background()

	repo := newFakeRepository()
	target := seedPending(t, repo, "buyer-1", "prop-1")
	svc := NewDecisionService(repo, nil, nil)

	if _, err := svc.Decide(ctx, target.ID, "agent-1", DecisionAccept); err != nil {
		t.Fatalf("first Decide: %v", err)
	}

	_, err := svc.Decide(ctx, target.ID, "agent-1", DecisionReject)
	if !errors.Is(err, ErrNotPending) {
		t.Fatalf("second Decide error = %v, want ErrNotPending", err)
	}
}

func TestDecideOnRejectedSibling(t *testing.T) {
	ctx := context.Background()

	repo := newFakeRepository()
	winner := seedPending(t, repo, "buyer-1", "prop-1")
	loser := seedPending(t, repo, "buyer-2", "prop-1")
	svc := NewDecisionService(repo, nil, nil)

	if _, err := svc.Decide(ctx, winner.ID, "agent-1", DecisionAccept); err != nil {
		t.Fatalf("accept winner: %v", err)
	}

	// The auto-rejected sibling can no longer be accepted.
	_, err := svc.Decide(ctx, loser.ID, "agent-1", DecisionAccept)
	if !errors.Is(err, ErrNotPending) {
		t.Fatalf("accept rejected sibling error = %v, want ErrNotPending", err)
	}
}

func TestDecideForbiddenAndInvalid(t *testing.T) {
	ctx := context.Background()

	repo := newFakeRepository()
	target := seedPending(t, repo, "buyer-1", "prop-1")
	svc := NewDecisionService(repo, nil, nil)

	if _, err := svc.Decide(ctx, target.ID, "agent-2", DecisionAccept); !errors.Is(err, ErrForbidden) {
		t.Errorf("foreign agent error = %v, want ErrForbidden", err)
	}
	if _, err := svc.Decide(ctx, target.ID, "agent-1", Decision("approve")); !errors.Is(err, ErrInvalidDecision) {
		t.Errorf("bad decision error = %v, want ErrInvalidDecision", err)
	}
	if _, err := svc.Decide(ctx, "ghost", "agent-1", DecisionAccept); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing offer error = %v, want ErrNotFound", err)
	}

	// None of the failed decisions moved the offer.
	got, _ := repo.GetByID(ctx, target.ID)
	if got.Status != StatusPending {
		t.Errorf("status = %s, want %s", got.Status, StatusPending)
	}
}
