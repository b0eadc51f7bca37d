package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type SwapRequestStatus string

const (
	SwapRequestStatusPending   SwapRequestStatus = "pending"
	SwapRequestStatusAccepted  SwapRequestStatus = "accepted"
	SwapRequestStatusRejected  SwapRequestStatus = "rejected"
	SwapRequestStatusExpired   SwapRequestStatus = "expired"
	SwapRequestStatusCancelled SwapRequestStatus = "cancelled"
)

// IsTerminal reports whether the status is final. A terminal request is
// immutable; the only edges out of pending are accepted, rejected, expired
// and cancelled.
func (s SwapRequestStatus) IsTerminal() bool {
	return s != SwapRequestStatusPending
}

// SwapRequest is a proposal for one driver to temporarily hand bus duty
// to another.
type SwapRequest struct {
	ID                primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	BusID             primitive.ObjectID  `json:"bus_id" bson:"bus_id" validate:"required"`
	RequesterDriverID primitive.ObjectID  `json:"requester_driver_id" bson:"requester_driver_id" validate:"required"`
	CandidateDriverID primitive.ObjectID  `json:"candidate_driver_id" bson:"candidate_driver_id" validate:"required"`
	Status            SwapRequestStatus   `json:"status" bson:"status" default:"pending"`
	Reason            string              `json:"reason" bson:"reason"`
	RequestedAt       time.Time           `json:"requested_at" bson:"requested_at"`
	AcceptWindowEnd   time.Time           `json:"accept_window_end" bson:"accept_window_end"`
	ProposedStart     *time.Time          `json:"proposed_start" bson:"proposed_start"`
	ProposedEnd       *time.Time          `json:"proposed_end" bson:"proposed_end"` // nil means "until revoked"
	ResolvedAt        *time.Time          `json:"resolved_at" bson:"resolved_at"`
	ResolvedBy        *primitive.ObjectID `json:"resolved_by" bson:"resolved_by"`
	Metadata          map[string]string   `json:"metadata" bson:"metadata"`
	CreatedAt         time.Time           `json:"created_at" bson:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at" bson:"updated_at"`
}

// WindowOpen reports whether the candidate can still respond at the given
// instant. The deadline is enforced here on accept and asynchronously by
// the sweep.
func (r *SwapRequest) WindowOpen(now time.Time) bool {
	return !now.After(r.AcceptWindowEnd)
}
