package interfaces

import (
	"context"

	"busfleet/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TripRepository interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Trip, error)

	// GetActiveByBus returns the in-progress trip for the bus, or nil when
	// the bus is idle. The trip-status oracle is built on this.
	GetActiveByBus(ctx context.Context, busID primitive.ObjectID) (*models.Trip, error)
}
