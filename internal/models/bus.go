package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type BusStatus string

const (
	BusStatusActive      BusStatus = "active"
	BusStatusMaintenance BusStatus = "maintenance"
	BusStatusRetired     BusStatus = "retired"
)

type Bus struct {
	ID          primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	PlateNumber string              `json:"plate_number" bson:"plate_number" validate:"required"`
	RouteID     *primitive.ObjectID `json:"route_id" bson:"route_id"`
	Capacity    int                 `json:"capacity" bson:"capacity"`
	Status      BusStatus           `json:"status" bson:"status" default:"active"`
	CreatedAt   time.Time           `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at" bson:"updated_at"`
}

// BusAssignment is the single source of truth for who drives a bus right now.
// AssignedDriverID is the permanent owner; CurrentDriverID deviates from it
// only while a temporary assignment is active.
type BusAssignment struct {
	ID               primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	BusID            primitive.ObjectID  `json:"bus_id" bson:"bus_id" validate:"required"`
	RouteID          *primitive.ObjectID `json:"route_id" bson:"route_id"`
	AssignedDriverID primitive.ObjectID  `json:"assigned_driver_id" bson:"assigned_driver_id" validate:"required"`
	CurrentDriverID  primitive.ObjectID  `json:"current_driver_id" bson:"current_driver_id" validate:"required"`
	CreatedAt        time.Time           `json:"created_at" bson:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at" bson:"updated_at"`
}
