package memory

import (
	"context"
	"sync"

	"github.com/yashwanth8634/CampusXChange-Backend/internal/models"
	"github.com/yashwanth8634/CampusXChange-Backend/internal/storage"
)

// ListingStore is a seedable stand-in for the listing collaborator.
type ListingStore struct {
	mu       sync.RWMutex
	listings map[string]*models.Listing
}

func NewListingStore() *ListingStore {
	return &ListingStore{listings: make(map[string]*models.Listing)}
}

func (s *ListingStore) Add(listing *models.Listing) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := *listing
	s.listings[l.ID] = &l
}

func (s *ListingStore) Get(_ context.Context, id string) (*models.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	listing, ok := s.listings[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	l := *listing
	return &l, nil
}
