package application

import (
	"context"
	"fmt"

	"github.com/cfs-platform/transaction-service/internal/domain"
	"github.com/cfs-platform/transaction-service/pkg/logging"
)

// LookupService serves the packing-list and location lookups the step
// editors enumerate
type LookupService struct {
	packingLists domain.PackingListRepository
	locations    domain.StorageLocationRepository
	logger       *logging.Logger
}

// NewLookupService creates a new LookupService
func NewLookupService(
	packingLists domain.PackingListRepository,
	locations domain.StorageLocationRepository,
	logger *logging.Logger,
) *LookupService {
	return &LookupService{
		packingLists: packingLists,
		locations:    locations,
		logger:       logger,
	}
}

// GetPackingList returns a packing list with its cargo lines
func (s *LookupService) GetPackingList(ctx context.Context, packingListID string) (*domain.PackingList, error) {
	list, err := s.packingLists.FindByID(ctx, packingListID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrPackingListNotFound, packingListID)
	}
	return list, nil
}

// SavePackingList persists a packing list
func (s *LookupService) SavePackingList(ctx context.Context, list *domain.PackingList) error {
	return s.packingLists.Save(ctx, list)
}

// GetLocation resolves a storage location's display code and capacity
func (s *LookupService) GetLocation(ctx context.Context, locationID string) (*domain.StorageLocation, error) {
	loc, err := s.locations.FindByID(ctx, locationID)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrLocationNotFound, locationID)
	}
	return loc, nil
}

// GetLocationsByZone lists the storage locations of a zone
func (s *LookupService) GetLocationsByZone(ctx context.Context, zone string) ([]*domain.StorageLocation, error) {
	return s.locations.FindByZone(ctx, zone)
}

// SaveLocation persists a storage location
func (s *LookupService) SaveLocation(ctx context.Context, location *domain.StorageLocation) error {
	return s.locations.Save(ctx, location)
}
