package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TripStatus string

const (
	TripStatusScheduled  TripStatus = "scheduled"
	TripStatusInProgress TripStatus = "in_progress"
	TripStatusCompleted  TripStatus = "completed"
	TripStatusCancelled  TripStatus = "cancelled"
)

type Trip struct {
	ID          primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	BusID       primitive.ObjectID  `json:"bus_id" bson:"bus_id" validate:"required"`
	RouteID     *primitive.ObjectID `json:"route_id" bson:"route_id"`
	DriverID    primitive.ObjectID  `json:"driver_id" bson:"driver_id" validate:"required"`
	Status      TripStatus          `json:"status" bson:"status" default:"scheduled"`
	ScheduledAt time.Time           `json:"scheduled_at" bson:"scheduled_at"`
	StartedAt   *time.Time          `json:"started_at" bson:"started_at"`
	CompletedAt *time.Time          `json:"completed_at" bson:"completed_at"`
	CreatedAt   time.Time           `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at" bson:"updated_at"`
}
