package mongodb

import (
	"context"
	"fmt"
	"time"

	"busfleet/internal/models"
	"busfleet/internal/repositories/interfaces"
	"busfleet/internal/services"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type assignmentRepository struct {
	collection *mongo.Collection
	cache      services.CacheService
}

func NewAssignmentRepository(db *mongo.Database, cache services.CacheService) interfaces.AssignmentRepository {
	return &assignmentRepository{
		collection: db.Collection("bus_assignments"),
		cache:      cache,
	}
}

func (r *assignmentRepository) Create(ctx context.Context, assignment *models.BusAssignment) error {
	assignment.ID = primitive.NewObjectID()
	assignment.CreatedAt = time.Now()
	assignment.UpdatedAt = assignment.CreatedAt

	_, err := r.collection.InsertOne(ctx, assignment)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("bus %s already has an assignment entry: %w", assignment.BusID.Hex(), services.ErrConflict)
		}
		return fmt.Errorf("failed to create bus assignment: %w", err)
	}

	return nil
}

func (r *assignmentRepository) GetByBusID(ctx context.Context, busID primitive.ObjectID) (*models.BusAssignment, error) {
	if cached := r.fromCache(ctx, busID); cached != nil {
		return cached, nil
	}

	var assignment models.BusAssignment
	err := r.collection.FindOne(ctx, bson.M{"bus_id": busID}).Decode(&assignment)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("bus assignment for %s: %w", busID.Hex(), services.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get bus assignment: %w", err)
	}

	r.cacheAssignment(ctx, &assignment)

	return &assignment, nil
}

func (r *assignmentRepository) GetByCurrentDriver(ctx context.Context, driverID primitive.ObjectID) (*models.BusAssignment, error) {
	var assignment models.BusAssignment
	err := r.collection.FindOne(ctx, bson.M{"current_driver_id": driverID}).Decode(&assignment)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("bus assignment for driver %s: %w", driverID.Hex(), services.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get bus assignment by driver: %w", err)
	}

	return &assignment, nil
}

// SetCurrentDriver only applies when the store still points at fromDriverID.
// Losing the race means another writer moved the bus first; callers surface
// that as a conflict instead of clobbering the newer state.
func (r *assignmentRepository) SetCurrentDriver(ctx context.Context, busID, fromDriverID, toDriverID primitive.ObjectID) error {
	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"bus_id": busID, "current_driver_id": fromDriverID},
		bson.M{"$set": bson.M{"current_driver_id": toDriverID, "updated_at": time.Now()}},
	)
	if err != nil {
		return fmt.Errorf("failed to set current driver: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("bus %s is not driven by %s: %w", busID.Hex(), fromDriverID.Hex(), services.ErrConflict)
	}

	r.invalidateCache(ctx, busID)

	return nil
}

func (r *assignmentRepository) ForceCurrentDriver(ctx context.Context, busID, driverID primitive.ObjectID) error {
	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"bus_id": busID},
		bson.M{"$set": bson.M{"current_driver_id": driverID, "updated_at": time.Now()}},
	)
	if err != nil {
		return fmt.Errorf("failed to force current driver: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("bus assignment for %s: %w", busID.Hex(), services.ErrNotFound)
	}

	r.invalidateCache(ctx, busID)

	return nil
}

func (r *assignmentRepository) ListDivergent(ctx context.Context) ([]*models.BusAssignment, error) {
	filter := bson.M{
		"$expr": bson.M{"$ne": []string{"$assigned_driver_id", "$current_driver_id"}},
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find divergent assignments: %w", err)
	}
	defer cursor.Close(ctx)

	var assignments []*models.BusAssignment
	for cursor.Next(ctx) {
		var assignment models.BusAssignment
		if err := cursor.Decode(&assignment); err != nil {
			return nil, fmt.Errorf("failed to decode bus assignment: %w", err)
		}
		assignments = append(assignments, &assignment)
	}

	return assignments, nil
}

// Cache operations
func (r *assignmentRepository) cacheAssignment(ctx context.Context, assignment *models.BusAssignment) {
	if r.cache != nil {
		key := fmt.Sprintf("bus_assignment:%s", assignment.BusID.Hex())
		r.cache.Set(ctx, key, assignment, 10*time.Minute)
	}
}

func (r *assignmentRepository) fromCache(ctx context.Context, busID primitive.ObjectID) *models.BusAssignment {
	if r.cache == nil {
		return nil
	}

	key := fmt.Sprintf("bus_assignment:%s", busID.Hex())
	var assignment models.BusAssignment
	if err := r.cache.Get(ctx, key, &assignment); err != nil {
		return nil
	}

	return &assignment
}

func (r *assignmentRepository) invalidateCache(ctx context.Context, busID primitive.ObjectID) {
	if r.cache != nil {
		r.cache.Delete(ctx, fmt.Sprintf("bus_assignment:%s", busID.Hex()))
	}
}
