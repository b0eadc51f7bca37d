package interfaces

import (
	"context"
	"time"

	"busfleet/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TemporaryAssignmentRepository interface {
	Create(ctx context.Context, assignment *models.TemporaryAssignment) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.TemporaryAssignment, error)
	GetActiveByBus(ctx context.Context, busID primitive.ObjectID) (*models.TemporaryAssignment, error)
	GetActiveByDriver(ctx context.Context, driverID primitive.ObjectID) (*models.TemporaryAssignment, error)

	ListActive(ctx context.Context) ([]*models.TemporaryAssignment, error)

	// ListDue returns active assignments whose window has elapsed and that
	// are not already marked for deferred revert.
	ListDue(ctx context.Context, now time.Time) ([]*models.TemporaryAssignment, error)
	ListPendingRevert(ctx context.Context) ([]*models.TemporaryAssignment, error)

	SetPendingRevert(ctx context.Context, id primitive.ObjectID, pending bool) error

	// Deactivate retires an assignment. The write is conditional on the
	// record still being active; a lost race surfaces as a conflict.
	Deactivate(ctx context.Context, id primitive.ObjectID, endedBy primitive.ObjectID, endedAt time.Time) error

	// DeleteInactiveOlderThan garbage-collects retired assignments ended
	// before the cutoff and returns how many were removed.
	DeleteInactiveOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
