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
	"go.mongodb.org/mongo-driver/mongo/options"
)

type temporaryAssignmentRepository struct {
	collection *mongo.Collection
	cache      services.CacheService
}

func NewTemporaryAssignmentRepository(db *mongo.Database, cache services.CacheService) interfaces.TemporaryAssignmentRepository {
	return &temporaryAssignmentRepository{
		collection: db.Collection("temporary_assignments"),
		cache:      cache,
	}
}

func (r *temporaryAssignmentRepository) Create(ctx context.Context, assignment *models.TemporaryAssignment) error {
	assignment.ID = primitive.NewObjectID()
	assignment.CreatedAt = time.Now()
	assignment.UpdatedAt = assignment.CreatedAt

	_, err := r.collection.InsertOne(ctx, assignment)
	if err != nil {
		// Partial unique index on bus_id for active records: one active
		// assignment per bus, enforced by the store even under races.
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("bus %s already has an active assignment: %w", assignment.BusID.Hex(), services.ErrConflict)
		}
		return fmt.Errorf("failed to create temporary assignment: %w", err)
	}

	// Inserts run inside the takeover transaction. The cache fills from
	// committed reads only (GetActiveByBus); writing it here would leave a
	// phantom entry behind an aborted transaction.
	return nil
}

func (r *temporaryAssignmentRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.TemporaryAssignment, error) {
	var assignment models.TemporaryAssignment
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&assignment)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("temporary assignment %s: %w", id.Hex(), services.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get temporary assignment: %w", err)
	}

	return &assignment, nil
}

func (r *temporaryAssignmentRepository) GetActiveByBus(ctx context.Context, busID primitive.ObjectID) (*models.TemporaryAssignment, error) {
	if cached := r.activeFromCache(ctx, busID); cached != nil {
		return cached, nil
	}

	var assignment models.TemporaryAssignment
	err := r.collection.FindOne(ctx, bson.M{"bus_id": busID, "active": true}).Decode(&assignment)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get active assignment: %w", err)
	}

	r.cacheActive(ctx, &assignment)

	return &assignment, nil
}

func (r *temporaryAssignmentRepository) GetActiveByDriver(ctx context.Context, driverID primitive.ObjectID) (*models.TemporaryAssignment, error) {
	var assignment models.TemporaryAssignment
	err := r.collection.FindOne(ctx, bson.M{"current_driver_id": driverID, "active": true}).Decode(&assignment)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get active assignment by driver: %w", err)
	}

	return &assignment, nil
}

func (r *temporaryAssignmentRepository) ListActive(ctx context.Context) ([]*models.TemporaryAssignment, error) {
	return r.findAssignments(ctx, bson.M{"active": true})
}

func (r *temporaryAssignmentRepository) ListDue(ctx context.Context, now time.Time) ([]*models.TemporaryAssignment, error) {
	filter := bson.M{
		"active":         true,
		"pending_revert": false,
		"ends_at":        bson.M{"$ne": nil, "$lte": now},
	}
	return r.findAssignments(ctx, filter)
}

func (r *temporaryAssignmentRepository) ListPendingRevert(ctx context.Context) ([]*models.TemporaryAssignment, error) {
	return r.findAssignments(ctx, bson.M{"active": true, "pending_revert": true})
}

func (r *temporaryAssignmentRepository) SetPendingRevert(ctx context.Context, id primitive.ObjectID, pending bool) error {
	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id, "active": true},
		bson.M{"$set": bson.M{"pending_revert": pending, "updated_at": time.Now()}},
	)
	if err != nil {
		return fmt.Errorf("failed to set pending revert: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("temporary assignment %s is not active: %w", id.Hex(), services.ErrNotFound)
	}

	r.invalidateActiveCache(ctx, id)

	return nil
}

func (r *temporaryAssignmentRepository) Deactivate(ctx context.Context, id primitive.ObjectID, endedBy primitive.ObjectID, endedAt time.Time) error {
	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id, "active": true},
		bson.M{"$set": bson.M{
			"active":         false,
			"pending_revert": false,
			"ended_at":       endedAt,
			"ended_by":       endedBy,
			"updated_at":     time.Now(),
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to deactivate assignment: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("temporary assignment %s is not active: %w", id.Hex(), services.ErrConflict)
	}

	r.invalidateActiveCache(ctx, id)

	return nil
}

func (r *temporaryAssignmentRepository) DeleteInactiveOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	filter := bson.M{
		"active":   false,
		"ended_at": bson.M{"$lt": cutoff},
	}

	result, err := r.collection.DeleteMany(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old assignments: %w", err)
	}

	return result.DeletedCount, nil
}

func (r *temporaryAssignmentRepository) findAssignments(ctx context.Context, filter bson.M) ([]*models.TemporaryAssignment, error) {
	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "starts_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to find assignments: %w", err)
	}
	defer cursor.Close(ctx)

	var assignments []*models.TemporaryAssignment
	for cursor.Next(ctx) {
		var assignment models.TemporaryAssignment
		if err := cursor.Decode(&assignment); err != nil {
			return nil, fmt.Errorf("failed to decode assignment: %w", err)
		}
		assignments = append(assignments, &assignment)
	}

	return assignments, nil
}

// Cache operations
func (r *temporaryAssignmentRepository) cacheActive(ctx context.Context, assignment *models.TemporaryAssignment) {
	if r.cache != nil && assignment.Active {
		key := fmt.Sprintf("active_assignment:%s", assignment.BusID.Hex())
		r.cache.Set(ctx, key, assignment, 5*time.Minute)
	}
}

func (r *temporaryAssignmentRepository) activeFromCache(ctx context.Context, busID primitive.ObjectID) *models.TemporaryAssignment {
	if r.cache == nil {
		return nil
	}

	key := fmt.Sprintf("active_assignment:%s", busID.Hex())
	var assignment models.TemporaryAssignment
	if err := r.cache.Get(ctx, key, &assignment); err != nil {
		return nil
	}

	return &assignment
}

func (r *temporaryAssignmentRepository) invalidateActiveCache(ctx context.Context, id primitive.ObjectID) {
	if r.cache == nil {
		return
	}

	// The cache is keyed by bus, so look the record up to find it.
	var assignment models.TemporaryAssignment
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&assignment); err == nil {
		r.cache.Delete(ctx, fmt.Sprintf("active_assignment:%s", assignment.BusID.Hex()))
	}
}
