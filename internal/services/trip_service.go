package services

import (
	"context"
	"fmt"
	"time"

	"busfleet/internal/repositories/interfaces"
	"busfleet/internal/utils"
	"busfleet/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TripOracle answers whether a bus is mid-trip right now. Reverts consult it
// before handing the bus back to the original driver.
type TripOracle interface {
	TripInProgress(ctx context.Context, busID primitive.ObjectID) (bool, error)
}

type tripService struct {
	tripRepo interfaces.TripRepository
	cache    CacheService
	logger   *logger.Logger
	cacheTTL time.Duration
}

func NewTripService(tripRepo interfaces.TripRepository, cache CacheService, log *logger.Logger, cacheTTL time.Duration) TripOracle {
	if cacheTTL <= 0 {
		cacheTTL = utils.TripStatusCacheTTL
	}
	return &tripService{
		tripRepo: tripRepo,
		cache:    cache,
		logger:   log,
		cacheTTL: cacheTTL,
	}
}

func (s *tripService) TripInProgress(ctx context.Context, busID primitive.ObjectID) (bool, error) {
	cacheKey := utils.CacheTripActivePrefix + busID.Hex()

	if s.cache != nil {
		var inProgress bool
		if err := s.cache.Get(ctx, cacheKey, &inProgress); err == nil {
			return inProgress, nil
		}
	}

	trip, err := s.tripRepo.GetActiveByBus(ctx, busID)
	if err != nil {
		return false, fmt.Errorf("failed to check trip status for bus %s: %w", busID.Hex(), err)
	}
	inProgress := trip != nil

	// Only the in-progress answer is cached. A stale positive merely defers a
	// revert until the next look; a stale negative could revert mid-trip.
	if inProgress && s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, true, s.cacheTTL); err != nil {
			s.logger.WithError(err).WithBusID(busID).Debug("Failed to cache trip status")
		}
	}

	return inProgress, nil
}
