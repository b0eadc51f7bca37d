package interfaces

import (
	"context"
	"time"

	"busfleet/internal/models"
	"busfleet/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type SwapRequestRepository interface {
	Create(ctx context.Context, request *models.SwapRequest) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.SwapRequest, error)

	// GetPendingByBusAndRequester returns the pending request for the
	// (bus, requester) pair, or nil when none exists. At most one can exist.
	GetPendingByBusAndRequester(ctx context.Context, busID, requesterID primitive.ObjectID) (*models.SwapRequest, error)

	// Resolve transitions a pending request to a terminal status. The write
	// is conditional on the status still being pending, so concurrent
	// resolvers cannot double-resolve and terminal records stay immutable.
	// A lost race surfaces as a conflict.
	Resolve(ctx context.Context, id primitive.ObjectID, status models.SwapRequestStatus, resolvedBy *primitive.ObjectID, resolvedAt time.Time) error

	ListPendingExpired(ctx context.Context, now time.Time) ([]*models.SwapRequest, error)
	GetIncoming(ctx context.Context, candidateID primitive.ObjectID, params *utils.PaginationParams) ([]*models.SwapRequest, int64, error)
	GetOutgoing(ctx context.Context, requesterID primitive.ObjectID, params *utils.PaginationParams) ([]*models.SwapRequest, int64, error)

	// DeleteTerminalOlderThan garbage-collects terminal requests resolved
	// before the cutoff and returns how many were removed.
	DeleteTerminalOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
