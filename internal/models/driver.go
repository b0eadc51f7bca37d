package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type DriverStatus string

const (
	DriverStatusActive    DriverStatus = "active"
	DriverStatusInactive  DriverStatus = "inactive"
	DriverStatusSuspended DriverStatus = "suspended"
)

type Driver struct {
	ID            primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name          string             `json:"name" bson:"name" validate:"required"`
	Phone         string             `json:"phone" bson:"phone" validate:"required"`
	LicenseNumber string             `json:"license_number" bson:"license_number" validate:"required"`
	Status        DriverStatus       `json:"status" bson:"status" default:"active"`
	DeviceTokens  []DeviceToken      `json:"device_tokens" bson:"device_tokens"`
	CreatedAt     time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at" bson:"updated_at"`
}

type DeviceToken struct {
	Token    string `json:"token" bson:"token"`
	Platform string `json:"platform" bson:"platform"` // android, ios
}

// CanDrive reports whether the driver may take over a bus.
func (d *Driver) CanDrive() bool {
	return d.Status == DriverStatusActive
}
