package offer

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"homevault/events"
)

// Decision is the agent's verdict on a pending offer.
type Decision string

const (
	DecisionAccept Decision = "accept"
	DecisionReject Decision = "reject"
)

var (
	// ErrForbidden signals the caller is not the agent who owns the property.
	ErrForbidden = errors.New("offer: caller is not the listing agent")
	// ErrInvalidDecision signals a decision other than accept or reject.
	ErrInvalidDecision = errors.New("offer: invalid decision")
)

// DecisionService applies agent accept/reject verdicts. Accept is committed
// by the repository's status CAS on the target offer; the property flip and
// sibling rejections are transactional with it, so competing accepts on the
// same property resolve to exactly one accepted offer.
type DecisionService struct {
	repo      Repository
	publisher events.Publisher
	log       *zap.Logger
}

func NewDecisionService(repo Repository, publisher events.Publisher, log *zap.Logger) *DecisionService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &DecisionService{
		repo:      repo,
		publisher: publisher,
		log:       log,
	}
}

// Decide applies the agent's verdict to a pending offer.
func (s *DecisionService) Decide(ctx context.Context, offerID, agentID string, decision Decision) (AcceptResult, error) {
	if decision != DecisionAccept && decision != DecisionReject {
		return AcceptResult{}, fmt.Errorf("%w: %q", ErrInvalidDecision, decision)
	}

	off, err := s.repo.GetByID(ctx, offerID)
	if err != nil {
		return AcceptResult{}, err
	}
	if off.AgentID != agentID {
		return AcceptResult{}, ErrForbidden
	}
	if off.Status != StatusPending {
		return AcceptResult{}, fmt.Errorf("%w: currently %s", ErrNotPending, off.Status)
	}

	if decision == DecisionReject {
		rejected, err := s.repo.Reject(ctx, offerID)
		if err != nil {
			return AcceptResult{}, err
		}
		_ = s.publisher.Publish(ctx, events.StreamOffers, events.Event{
			Type: events.EventOfferRejected,
			Payload: map[string]any{
				"offer_id":    rejected.ID,
				"property_id": rejected.PropertyID,
				"buyer_id":    rejected.BuyerID,
			},
		})
		return AcceptResult{Offer: rejected}, nil
	}

	result, err := s.repo.Accept(ctx, offerID)
	if err != nil {
		return AcceptResult{}, err
	}

	s.log.Info("offer accepted",
		zap.String("offer_id", result.Offer.ID),
		zap.String("property_id", result.Offer.PropertyID),
		zap.Int64("siblings_rejected", result.SiblingsRejected),
	)

	_ = s.publisher.Publish(ctx, events.StreamOffers, events.Event{
		Type: events.EventOfferAccepted,
		Payload: map[string]any{
			"offer_id":          result.Offer.ID,
			"property_id":       result.Offer.PropertyID,
			"buyer_id":          result.Offer.BuyerID,
			"siblings_rejected": result.SiblingsRejected,
		},
	})

	return result, nil
}

// ListForAgent returns every offer addressed to the agent, newest first.
func (s *DecisionService) ListForAgent(ctx context.Context, agentID string) ([]Offer, error) {
	return s.repo.ListByAgent(ctx, agentID)
}

// ListSold returns the agent's settled sales.
func (s *DecisionService) ListSold(ctx context.Context, agentID string) ([]SoldOffer, error) {
	return s.repo.ListSoldByAgent(ctx, agentID)
}
