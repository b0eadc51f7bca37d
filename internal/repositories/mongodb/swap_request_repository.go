package mongodb

import (
	"context"
	"fmt"
	"time"

	"busfleet/internal/models"
	"busfleet/internal/repositories/interfaces"
	"busfleet/internal/services"
	"busfleet/internal/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type swapRequestRepository struct {
	collection *mongo.Collection
}

func NewSwapRequestRepository(db *mongo.Database) interfaces.SwapRequestRepository {
	return &swapRequestRepository{
		collection: db.Collection("swap_requests"),
	}
}

func (r *swapRequestRepository) Create(ctx context.Context, request *models.SwapRequest) error {
	request.ID = primitive.NewObjectID()
	request.CreatedAt = time.Now()
	request.UpdatedAt = request.CreatedAt

	_, err := r.collection.InsertOne(ctx, request)
	if err != nil {
		// The partial unique index on (bus_id, requester_driver_id) for
		// pending requests backs the single-pending invariant under races.
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("pending swap request already exists: %w", services.ErrConflict)
		}
		return fmt.Errorf("failed to create swap request: %w", err)
	}

	return nil
}

func (r *swapRequestRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.SwapRequest, error) {
	var request models.SwapRequest
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&request)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("swap request %s: %w", id.Hex(), services.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get swap request: %w", err)
	}

	return &request, nil
}

func (r *swapRequestRepository) GetPendingByBusAndRequester(ctx context.Context, busID, requesterID primitive.ObjectID) (*models.SwapRequest, error) {
	filter := bson.M{
		"bus_id":              busID,
		"requester_driver_id": requesterID,
		"status":              models.SwapRequestStatusPending,
	}

	var request models.SwapRequest
	err := r.collection.FindOne(ctx, filter).Decode(&request)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get pending swap request: %w", err)
	}

	return &request, nil
}

func (r *swapRequestRepository) Resolve(ctx context.Context, id primitive.ObjectID, status models.SwapRequestStatus, resolvedBy *primitive.ObjectID, resolvedAt time.Time) error {
	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id, "status": models.SwapRequestStatusPending},
		bson.M{"$set": bson.M{
			"status":      status,
			"resolved_at": resolvedAt,
			"resolved_by": resolvedBy,
			"updated_at":  time.Now(),
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to resolve swap request: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("swap request %s is not pending: %w", id.Hex(), services.ErrConflict)
	}

	return nil
}

func (r *swapRequestRepository) ListPendingExpired(ctx context.Context, now time.Time) ([]*models.SwapRequest, error) {
	filter := bson.M{
		"status":            models.SwapRequestStatusPending,
		"accept_window_end": bson.M{"$lt": now},
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find expired swap requests: %w", err)
	}
	defer cursor.Close(ctx)

	var requests []*models.SwapRequest
	for cursor.Next(ctx) {
		var request models.SwapRequest
		if err := cursor.Decode(&request); err != nil {
			return nil, fmt.Errorf("failed to decode swap request: %w", err)
		}
		requests = append(requests, &request)
	}

	return requests, nil
}

func (r *swapRequestRepository) GetIncoming(ctx context.Context, candidateID primitive.ObjectID, params *utils.PaginationParams) ([]*models.SwapRequest, int64, error) {
	return r.findWithFilter(ctx, bson.M{"candidate_driver_id": candidateID}, params)
}

func (r *swapRequestRepository) GetOutgoing(ctx context.Context, requesterID primitive.ObjectID, params *utils.PaginationParams) ([]*models.SwapRequest, int64, error) {
	return r.findWithFilter(ctx, bson.M{"requester_driver_id": requesterID}, params)
}

func (r *swapRequestRepository) DeleteTerminalOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	filter := bson.M{
		"status":      bson.M{"$ne": models.SwapRequestStatusPending},
		"resolved_at": bson.M{"$lt": cutoff},
	}

	result, err := r.collection.DeleteMany(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old swap requests: %w", err)
	}

	return result.DeletedCount, nil
}

func (r *swapRequestRepository) findWithFilter(ctx context.Context, filter bson.M, params *utils.PaginationParams) ([]*models.SwapRequest, int64, error) {
	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count swap requests: %w", err)
	}

	cursor, err := r.collection.Find(ctx, filter, params.GetSortOptions())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to find swap requests: %w", err)
	}
	defer cursor.Close(ctx)

	var requests []*models.SwapRequest
	for cursor.Next(ctx) {
		var request models.SwapRequest
		if err := cursor.Decode(&request); err != nil {
			return nil, 0, fmt.Errorf("failed to decode swap request: %w", err)
		}
		requests = append(requests, &request)
	}

	return requests, total, nil
}
