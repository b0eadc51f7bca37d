package utils

import "time"

// Application Constants
const (
	AppName    = "BusFleet"
	AppVersion = "1.0.0"

	// Pagination
	DefaultPageSize = 20
	MaxPageSize     = 100
	MinPageSize     = 1

	// Swap Constants
	DefaultAcceptTimeout   = 10 * time.Minute
	DefaultSweepInterval   = 5 * time.Minute
	DefaultRetentionPeriod = 7 * 24 * time.Hour
	MaxSwapDuration        = 30 * 24 * time.Hour

	// Notification
	NotificationTimeout = 10 * time.Second

	// Trip oracle
	TripStatusCacheTTL = 15 * time.Second
)

// HTTP Status Messages
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Error Messages
const (
	ErrInvalidInput     = "invalid input"
	ErrInternalServer   = "internal server error"
	ErrUnauthorized     = "unauthorized"
	ErrForbidden        = "forbidden"
	ErrNotFound         = "not found"
	ErrConflict         = "conflict"
	ErrValidationFailed = "validation failed"
)

// Cache Keys
const (
	CacheDriverPrefix        = "driver:"
	CacheBusAssignmentPrefix = "bus_assignment:"
	CacheActiveSwapPrefix    = "active_assignment:"
	CacheTripActivePrefix    = "trip_active:"
)

// Event Types
const (
	EventSwapRequested      = "swap_requested"
	EventSwapAccepted       = "swap_accepted"
	EventSwapRejected       = "swap_rejected"
	EventSwapCancelled      = "swap_cancelled"
	EventSwapExpired        = "swap_expired"
	EventAssignmentStarted  = "assignment_started"
	EventAssignmentEnded    = "assignment_ended"
	EventAssignmentDeferred = "assignment_deferred"
	EventAssignmentReverted = "assignment_reverted"
)

// User Types
const (
	UserTypeDriver    = "driver"
	UserTypeModerator = "moderator"
	UserTypeAdmin     = "admin"
)
