package property

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrInvalidPriceRange signals min/max bounds that do not form a valid range.
	ErrInvalidPriceRange = errors.New("property: invalid price range")
	// ErrAlreadyModerated signals a verification decision on a non-pending listing.
	ErrAlreadyModerated = errors.New("property: listing already moderated")
	// ErrForbidden signals the caller does not own the property.
	ErrForbidden = errors.New("property: caller is not the listing agent")
)

// Service exposes business-level property operations.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create lists a new property for the agent. The listing starts unverified
// and open for offers.
func (s *Service) Create(ctx context.Context, params CreateParams) (Property, error) {
	if params.AgentID == "" {
		return Property{}, fmt.Errorf("property: agent id required")
	}
	if params.Title == "" || params.Location == "" {
		return Property{}, fmt.Errorf("property: title and location are required")
	}
	if params.MinPrice < 0 || params.MaxPrice < params.MinPrice {
		return Property{}, fmt.Errorf("%w: min=%d max=%d", ErrInvalidPriceRange, params.MinPrice, params.MaxPrice)
	}

	return s.repo.Create(ctx, params)
}

func (s *Service) GetByID(ctx context.Context, id string) (Property, error) {
	return s.repo.GetByID(ctx, id)
}

// ListVerified returns up to limit verified listings for public browsing.
func (s *Service) ListVerified(ctx context.Context, limit int) ([]Property, error) {
	return s.repo.ListVerified(ctx, limit)
}

// ListMine returns every property listed by the agent, newest first.
func (s *Service) ListMine(ctx context.Context, agentID string) ([]Property, error) {
	return s.repo.ListByAgent(ctx, agentID)
}

// Moderate applies an admin verification decision to a pending listing. The
// read here gives a precise error for the common case; the repository's
// pending predicate is what holds when two moderations race.
func (s *Service) Moderate(ctx context.Context, propertyID string, decision VerificationStatus) (Property, error) {
	if decision != VerificationVerified && decision != VerificationRejected {
		return Property{}, fmt.Errorf("property: invalid moderation decision %q", decision)
	}

	prop, err := s.repo.GetByID(ctx, propertyID)
	if err != nil {
		return Property{}, err
	}
	if prop.Verification != VerificationPending {
		return Property{}, fmt.Errorf("%w: currently %s", ErrAlreadyModerated, prop.Verification)
	}

	return s.repo.SetVerification(ctx, propertyID, decision)
}
