package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"busfleet/internal/models"
	"busfleet/internal/repositories/interfaces"
	"busfleet/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TxRunner executes a function inside a storage transaction. The concrete
// implementation lives in pkg/database; tests substitute a pass-through.
type TxRunner interface {
	RunTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// StartAssignmentParams describes the takeover created when a swap request
// is accepted.
type StartAssignmentParams struct {
	BusID            primitive.ObjectID
	RouteID          *primitive.ObjectID
	OriginalDriverID primitive.ObjectID
	CurrentDriverID  primitive.ObjectID
	SwapRequestID    primitive.ObjectID
	StartsAt         time.Time
	EndsAt           *time.Time // nil = until revoked
	Metadata         map[string]string
}

// AssignmentTracker manages the lifecycle of temporary assignments and keeps
// the bus assignment store consistent with them.
type AssignmentTracker interface {
	// Start materializes the takeover: it creates the active assignment and
	// moves the store's current driver in one transaction. A bus already
	// under a temporary assignment, or a store that no longer points at the
	// original driver, surfaces as a conflict.
	Start(ctx context.Context, params *StartAssignmentParams) (*models.TemporaryAssignment, error)

	// End retires the assignment and hands the bus back. When the bus is
	// mid-trip the revert is deferred to the sweep instead and the outcome
	// is EndOutcomeDeferred. force skips the actor permission check; the
	// sweep and admin endpoints use it.
	End(ctx context.Context, assignmentID, actorID primitive.ObjectID, force bool) (EndOutcome, error)

	// Revert retires the assignment and overwrites the store unconditionally,
	// bypassing the trip guard. Admin-only escape hatch.
	Revert(ctx context.Context, assignmentID, actorID primitive.ObjectID) error

	GetByID(ctx context.Context, id primitive.ObjectID) (*models.TemporaryAssignment, error)
	GetActiveForBus(ctx context.Context, busID primitive.ObjectID) (*models.TemporaryAssignment, error)
	GetActiveForDriver(ctx context.Context, driverID primitive.ObjectID) (*models.TemporaryAssignment, error)
}

type assignmentService struct {
	tempRepo  interfaces.TemporaryAssignmentRepository
	storeRepo interfaces.AssignmentRepository
	txRunner  TxRunner
	oracle    TripOracle
	notifier  Notifier
	logger    *logger.Logger
}

func NewAssignmentService(
	tempRepo interfaces.TemporaryAssignmentRepository,
	storeRepo interfaces.AssignmentRepository,
	txRunner TxRunner,
	oracle TripOracle,
	notifier Notifier,
	log *logger.Logger,
) AssignmentTracker {
	return &assignmentService{
		tempRepo:  tempRepo,
		storeRepo: storeRepo,
		txRunner:  txRunner,
		oracle:    oracle,
		notifier:  notifier,
		logger:    log,
	}
}

func (s *assignmentService) Start(ctx context.Context, params *StartAssignmentParams) (*models.TemporaryAssignment, error) {
	now := time.Now()
	assignment := &models.TemporaryAssignment{
		ID:               primitive.NewObjectID(),
		BusID:            params.BusID,
		RouteID:          params.RouteID,
		OriginalDriverID: params.OriginalDriverID,
		CurrentDriverID:  params.CurrentDriverID,
		SwapRequestID:    params.SwapRequestID,
		StartsAt:         params.StartsAt,
		EndsAt:           params.EndsAt,
		Active:           true,
		Metadata:         params.Metadata,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	err := s.txRunner.RunTransaction(ctx, func(txCtx context.Context) error {
		if err := s.tempRepo.Create(txCtx, assignment); err != nil {
			return err
		}
		return s.storeRepo.SetCurrentDriver(txCtx, params.BusID, params.OriginalDriverID, params.CurrentDriverID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithAssignmentID(assignment.ID).
		WithBusID(assignment.BusID).
		WithDriverID(assignment.CurrentDriverID).
		Info("Temporary assignment started")

	s.notifier.NotifyDriver(ctx, assignment.CurrentDriverID, models.NotificationTypeAssignmentStarted,
		"Bus assignment started",
		"You are now the driver of record for this bus.",
		map[string]string{"assignment_id": assignment.ID.Hex(), "bus_id": assignment.BusID.Hex()})

	return assignment, nil
}

func (s *assignmentService) End(ctx context.Context, assignmentID, actorID primitive.ObjectID, force bool) (EndOutcome, error) {
	assignment, err := s.tempRepo.GetByID(ctx, assignmentID)
	if err != nil {
		return "", err
	}
	if !assignment.Active {
		return "", fmt.Errorf("temporary assignment %s already ended: %w", assignmentID.Hex(), ErrConflict)
	}
	if !force && actorID != assignment.OriginalDriverID && actorID != assignment.CurrentDriverID {
		return "", fmt.Errorf("driver %s cannot end assignment %s: %w", actorID.Hex(), assignmentID.Hex(), ErrForbidden)
	}

	inProgress, err := s.oracle.TripInProgress(ctx, assignment.BusID)
	if err != nil {
		return "", fmt.Errorf("failed to consult trip status: %w", err)
	}
	if inProgress {
		if !assignment.PendingRevert {
			if err := s.tempRepo.SetPendingRevert(ctx, assignment.ID, true); err != nil {
				return "", err
			}
			s.logger.WithAssignmentID(assignment.ID).WithBusID(assignment.BusID).
				Info("Revert deferred, bus is mid-trip")
			s.notifier.NotifyDriver(ctx, assignment.CurrentDriverID, models.NotificationTypeAssignmentDeferred,
				"Handover deferred",
				"The bus is mid-trip; the handover happens once the trip ends.",
				map[string]string{"assignment_id": assignment.ID.Hex()})
		}
		return EndOutcomeDeferred, nil
	}

	if err := s.finish(ctx, assignment, actorID); err != nil {
		return "", err
	}

	s.notifier.NotifyDriver(ctx, assignment.OriginalDriverID, models.NotificationTypeAssignmentEnded,
		"Bus assignment ended",
		"You are the driver of record for this bus again.",
		map[string]string{"assignment_id": assignment.ID.Hex(), "bus_id": assignment.BusID.Hex()})

	return EndOutcomeEnded, nil
}

func (s *assignmentService) Revert(ctx context.Context, assignmentID, actorID primitive.ObjectID) error {
	assignment, err := s.tempRepo.GetByID(ctx, assignmentID)
	if err != nil {
		return err
	}
	if !assignment.Active {
		return fmt.Errorf("temporary assignment %s already ended: %w", assignmentID.Hex(), ErrConflict)
	}

	err = s.txRunner.RunTransaction(ctx, func(txCtx context.Context) error {
		if err := s.tempRepo.Deactivate(txCtx, assignment.ID, actorID, time.Now()); err != nil {
			return err
		}
		return s.storeRepo.ForceCurrentDriver(txCtx, assignment.BusID, assignment.OriginalDriverID)
	})
	if err != nil {
		return err
	}

	s.logger.WithAssignmentID(assignment.ID).WithBusID(assignment.BusID).
		WithField("actor_id", actorID.Hex()).
		Warn("Temporary assignment force-reverted")

	s.notifier.NotifyDriver(ctx, assignment.CurrentDriverID, models.NotificationTypeAssignmentReverted,
		"Bus assignment reverted",
		"The bus was handed back to its original driver.",
		map[string]string{"assignment_id": assignment.ID.Hex(), "bus_id": assignment.BusID.Hex()})

	return nil
}

// finish retires the assignment and moves the store back in one transaction.
// A store that an admin already pointed elsewhere loses the conditional
// write; the assignment is still retired and the sweep's reconcile pass owns
// the store from there.
func (s *assignmentService) finish(ctx context.Context, assignment *models.TemporaryAssignment, endedBy primitive.ObjectID) error {
	err := s.txRunner.RunTransaction(ctx, func(txCtx context.Context) error {
		if err := s.tempRepo.Deactivate(txCtx, assignment.ID, endedBy, time.Now()); err != nil {
			return err
		}
		if err := s.storeRepo.SetCurrentDriver(txCtx, assignment.BusID, assignment.CurrentDriverID, assignment.OriginalDriverID); err != nil {
			if errors.Is(err, ErrConflict) {
				s.logger.WithAssignmentID(assignment.ID).WithBusID(assignment.BusID).
					Warn("Assignment store diverged on revert, leaving it to reconcile")
				return nil
			}
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.WithAssignmentID(assignment.ID).
		WithBusID(assignment.BusID).
		WithDriverID(assignment.OriginalDriverID).
		Info("Temporary assignment ended")

	return nil
}

func (s *assignmentService) GetByID(ctx context.Context, id primitive.ObjectID) (*models.TemporaryAssignment, error) {
	return s.tempRepo.GetByID(ctx, id)
}

func (s *assignmentService) GetActiveForBus(ctx context.Context, busID primitive.ObjectID) (*models.TemporaryAssignment, error) {
	assignment, err := s.tempRepo.GetActiveByBus(ctx, busID)
	if err != nil {
		return nil, err
	}
	if assignment == nil {
		return nil, fmt.Errorf("no active assignment for bus %s: %w", busID.Hex(), ErrNotFound)
	}
	return assignment, nil
}

func (s *assignmentService) GetActiveForDriver(ctx context.Context, driverID primitive.ObjectID) (*models.TemporaryAssignment, error) {
	assignment, err := s.tempRepo.GetActiveByDriver(ctx, driverID)
	if err != nil {
		return nil, err
	}
	if assignment == nil {
		return nil, fmt.Errorf("no active assignment for driver %s: %w", driverID.Hex(), ErrNotFound)
	}
	return assignment, nil
}
