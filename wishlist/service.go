package wishlist

import "context"

type Service struct {
	repo *Repository
}

func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Add(ctx context.Context, userID, propertyID string) (Entry, error) {
	return s.repo.Add(ctx, userID, propertyID)
}

func (s *Service) Remove(ctx context.Context, userID, propertyID string) error {
	return s.repo.Remove(ctx, userID, propertyID)
}

func (s *Service) List(ctx context.Context, userID string) ([]Entry, error) {
	return s.repo.ListByUser(ctx, userID)
}
