package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"busfleet/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type memoryCache struct {
	mu     sync.Mutex
	values map[string]interface{}
}

func newMemoryCache() *memoryCache {
	return &memoryCache{values: make(map[string]interface{})}
}

func (c *memoryCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
	return nil
}

func (c *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	value, ok := c.values[key]
	if !ok {
		return fmt.Errorf("cache miss")
	}
	switch d := dest.(type) {
	case *bool:
		*d = value.(bool)
		return nil
	case *models.TemporaryAssignment:
		*d = *value.(*models.TemporaryAssignment)
		return nil
	}
	return fmt.Errorf("unsupported destination")
}

func (c *memoryCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		delete(c.values, key)
	}
	return nil
}

func (c *memoryCache) Exists(ctx context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.values[key]
	return ok, nil
}

func TestTripInProgress(t *testing.T) {
	tripRepo := newMockTripRepo()
	oracle := NewTripService(tripRepo, newMemoryCache(), newTestLogger(), time.Minute)

	busID := primitive.NewObjectID()

	inProgress, err := oracle.TripInProgress(context.Background(), busID)
	require.NoError(t, err)
	assert.False(t, inProgress)

	tripID := primitive.NewObjectID()
	tripRepo.trips[tripID] = &models.Trip{
		ID: tripID, BusID: busID, DriverID: primitive.NewObjectID(),
		Status: models.TripStatusInProgress,
	}

	inProgress, err = oracle.TripInProgress(context.Background(), busID)
	require.NoError(t, err)
	assert.True(t, inProgress)
}

func TestTripInProgressCachesOnlyPositiveAnswers(t *testing.T) {
	tripRepo := newMockTripRepo()
	cache := newMemoryCache()
	oracle := NewTripService(tripRepo, cache, newTestLogger(), time.Minute)

	busID := primitive.NewObjectID()

	// A negative answer must not be cached: a trip starting right after
	// would otherwise be invisible to the guard.
	_, err := oracle.TripInProgress(context.Background(), busID)
	require.NoError(t, err)
	assert.Empty(t, cache.values)

	tripID := primitive.NewObjectID()
	tripRepo.trips[tripID] = &models.Trip{
		ID: tripID, BusID: busID, DriverID: primitive.NewObjectID(),
		Status: models.TripStatusInProgress,
	}

	_, err = oracle.TripInProgress(context.Background(), busID)
	require.NoError(t, err)
	assert.Len(t, cache.values, 1)

	// The cached positive answer survives the trip record disappearing,
	// deferring reverts until the entry expires.
	delete(tripRepo.trips, tripID)
	inProgress, err := oracle.TripInProgress(context.Background(), busID)
	require.NoError(t, err)
	assert.True(t, inProgress)
}
