package interfaces

import (
	"context"

	"busfleet/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AssignmentRepository is the adapter over the bus assignment store, the
// single shared mutable resource between request handlers and the sweep.
// Every writer goes through the same conditional-write discipline.
type AssignmentRepository interface {
	Create(ctx context.Context, assignment *models.BusAssignment) error
	GetByBusID(ctx context.Context, busID primitive.ObjectID) (*models.BusAssignment, error)
	GetByCurrentDriver(ctx context.Context, driverID primitive.ObjectID) (*models.BusAssignment, error)

	// SetCurrentDriver is a compare-and-set: the update applies only if the
	// store still points at fromDriverID. A lost race surfaces as a conflict.
	SetCurrentDriver(ctx context.Context, busID, fromDriverID, toDriverID primitive.ObjectID) error

	// ForceCurrentDriver overwrites the current driver unconditionally.
	// Reserved for the sweep's reconcile pass and admin reverts.
	ForceCurrentDriver(ctx context.Context, busID, driverID primitive.ObjectID) error

	// ListDivergent returns entries whose current driver differs from the
	// assigned driver, i.e. buses that should have an active temporary
	// assignment backing them.
	ListDivergent(ctx context.Context) ([]*models.BusAssignment, error)
}
