package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TemporaryAssignment is the materialized, time-bounded reassignment created
// once a swap request is accepted. While Active, the bus assignment's
// current driver must equal CurrentDriverID. PendingRevert marks an
// assignment whose window elapsed while a trip was in progress; the sweep
// retries the revert until the trip ends.
type TemporaryAssignment struct {
	ID               primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	BusID            primitive.ObjectID  `json:"bus_id" bson:"bus_id" validate:"required"`
	RouteID          *primitive.ObjectID `json:"route_id" bson:"route_id"`
	OriginalDriverID primitive.ObjectID  `json:"original_driver_id" bson:"original_driver_id" validate:"required"`
	CurrentDriverID  primitive.ObjectID  `json:"current_driver_id" bson:"current_driver_id" validate:"required"`
	SwapRequestID    primitive.ObjectID  `json:"swap_request_id" bson:"swap_request_id"`
	StartsAt         time.Time           `json:"starts_at" bson:"starts_at"`
	EndsAt           *time.Time          `json:"ends_at" bson:"ends_at"` // nil = open-ended
	Active           bool                `json:"active" bson:"active"`
	PendingRevert    bool                `json:"pending_revert" bson:"pending_revert"`
	EndedAt          *time.Time          `json:"ended_at" bson:"ended_at"`
	EndedBy          *primitive.ObjectID `json:"ended_by" bson:"ended_by"`
	Metadata         map[string]string   `json:"metadata" bson:"metadata"`
	CreatedAt        time.Time           `json:"created_at" bson:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at" bson:"updated_at"`
}

// Due reports whether the assignment's window has elapsed at the given
// instant. Open-ended assignments are never due; they end only by an
// explicit end or revert.
func (t *TemporaryAssignment) Due(now time.Time) bool {
	return t.Active && t.EndsAt != nil && !now.Before(*t.EndsAt)
}
