package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"busfleet/internal/models"
	"busfleet/internal/repositories/interfaces"
	"busfleet/internal/utils"
	"busfleet/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CreateSwapRequestInput carries the caller-provided fields of a new swap
// request. The acceptance deadline is never caller-provided; it is computed
// server-side from the configured timeout.
type CreateSwapRequestInput struct {
	BusID             primitive.ObjectID
	CandidateDriverID primitive.ObjectID
	Reason            string
	ProposedStart     *time.Time
	ProposedEnd       *time.Time // nil = until revoked
	Metadata          map[string]string
}

// SwapLedger owns the swap request lifecycle: creation, candidate responses,
// cancellation and visibility.
type SwapLedger interface {
	CreateSwapRequest(ctx context.Context, requesterID primitive.ObjectID, input *CreateSwapRequestInput) (*models.SwapRequest, error)
	GetSwapRequest(ctx context.Context, requestID, actorID primitive.ObjectID, isAdmin bool) (*models.SwapRequest, error)

	// Accept resolves the request and starts the temporary assignment. The
	// returned assignment is already live.
	Accept(ctx context.Context, requestID, actorID primitive.ObjectID) (*models.TemporaryAssignment, error)

	Reject(ctx context.Context, requestID, actorID primitive.ObjectID) error
	Cancel(ctx context.Context, requestID, actorID primitive.ObjectID, isAdmin bool) error

	ListIncoming(ctx context.Context, driverID primitive.ObjectID, params *utils.PaginationParams) ([]*models.SwapRequest, int64, error)
	ListOutgoing(ctx context.Context, driverID primitive.ObjectID, params *utils.PaginationParams) ([]*models.SwapRequest, int64, error)
}

type swapService struct {
	swapRepo      interfaces.SwapRequestRepository
	storeRepo     interfaces.AssignmentRepository
	driverRepo    interfaces.DriverRepository
	tracker       AssignmentTracker
	notifier      Notifier
	logger        *logger.Logger
	acceptTimeout time.Duration
}

func NewSwapService(
	swapRepo interfaces.SwapRequestRepository,
	storeRepo interfaces.AssignmentRepository,
	driverRepo interfaces.DriverRepository,
	tracker AssignmentTracker,
	notifier Notifier,
	log *logger.Logger,
	acceptTimeout time.Duration,
) SwapLedger {
	if acceptTimeout <= 0 {
		acceptTimeout = utils.DefaultAcceptTimeout
	}
	return &swapService{
		swapRepo:      swapRepo,
		storeRepo:     storeRepo,
		driverRepo:    driverRepo,
		tracker:       tracker,
		notifier:      notifier,
		logger:        log,
		acceptTimeout: acceptTimeout,
	}
}

func (s *swapService) CreateSwapRequest(ctx context.Context, requesterID primitive.ObjectID, input *CreateSwapRequestInput) (*models.SwapRequest, error) {
	if input.CandidateDriverID == requesterID {
		return nil, fmt.Errorf("cannot request a swap with yourself: %w", ErrInvalidTarget)
	}
	if input.ProposedStart != nil && input.ProposedEnd != nil && !input.ProposedEnd.After(*input.ProposedStart) {
		return nil, fmt.Errorf("proposed end must be after proposed start: %w", ErrInvalidTarget)
	}

	candidate, err := s.driverRepo.GetByID(ctx, input.CandidateDriverID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("candidate driver %s does not exist: %w", input.CandidateDriverID.Hex(), ErrInvalidTarget)
		}
		return nil, err
	}
	if !candidate.CanDrive() {
		return nil, fmt.Errorf("candidate driver %s is not eligible to drive: %w", input.CandidateDriverID.Hex(), ErrInvalidTarget)
	}

	store, err := s.storeRepo.GetByBusID(ctx, input.BusID)
	if err != nil {
		return nil, err
	}
	if store.CurrentDriverID != requesterID {
		return nil, fmt.Errorf("driver %s is not currently driving bus %s: %w", requesterID.Hex(), input.BusID.Hex(), ErrInvalidTarget)
	}

	// The partial unique index backstops this check against races.
	existing, err := s.swapRepo.GetPendingByBusAndRequester(ctx, input.BusID, requesterID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("a pending swap request for bus %s already exists: %w", input.BusID.Hex(), ErrConflict)
	}

	now := time.Now()
	request := &models.SwapRequest{
		ID:                primitive.NewObjectID(),
		BusID:             input.BusID,
		RequesterDriverID: requesterID,
		CandidateDriverID: input.CandidateDriverID,
		Status:            models.SwapRequestStatusPending,
		Reason:            input.Reason,
		RequestedAt:       now,
		AcceptWindowEnd:   now.Add(s.acceptTimeout),
		ProposedStart:     input.ProposedStart,
		ProposedEnd:       input.ProposedEnd,
		Metadata:          input.Metadata,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.swapRepo.Create(ctx, request); err != nil {
		return nil, err
	}

	s.logger.LogSwapEvent(request.ID, utils.EventSwapRequested, map[string]interface{}{
		"bus_id":       request.BusID.Hex(),
		"requester_id": request.RequesterDriverID.Hex(),
		"candidate_id": request.CandidateDriverID.Hex(),
	})

	s.notifier.NotifyDriver(ctx, request.CandidateDriverID, models.NotificationTypeSwapRequested,
		"Swap request received",
		"A driver asked you to take over their bus.",
		map[string]string{"swap_request_id": request.ID.Hex(), "bus_id": request.BusID.Hex()})

	return request, nil
}

func (s *swapService) GetSwapRequest(ctx context.Context, requestID, actorID primitive.ObjectID, isAdmin bool) (*models.SwapRequest, error) {
	request, err := s.swapRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && actorID != request.RequesterDriverID && actorID != request.CandidateDriverID {
		return nil, fmt.Errorf("driver %s cannot view swap request %s: %w", actorID.Hex(), requestID.Hex(), ErrForbidden)
	}
	return request, nil
}

func (s *swapService) Accept(ctx context.Context, requestID, actorID primitive.ObjectID) (*models.TemporaryAssignment, error) {
	request, err := s.swapRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if actorID != request.CandidateDriverID {
		return nil, fmt.Errorf("driver %s is not the candidate of swap request %s: %w", actorID.Hex(), requestID.Hex(), ErrForbidden)
	}
	if request.Status.IsTerminal() {
		return nil, terminalStatusError(request)
	}

	now := time.Now()
	if !request.WindowOpen(now) {
		// Expire lazily rather than waiting for the sweep. Losing this write
		// to a concurrent resolver changes nothing for the caller.
		if err := s.swapRepo.Resolve(ctx, request.ID, models.SwapRequestStatusExpired, nil, now); err != nil && !errors.Is(err, ErrConflict) {
			s.logger.WithError(err).WithSwapRequestID(request.ID).Warn("Failed to lazily expire swap request")
		}
		return nil, fmt.Errorf("swap request %s: %w", requestID.Hex(), ErrWindowExpired)
	}

	// The takeover is effective immediately on accept; ProposedStart stays on
	// the record as what was asked for.
	assignment, err := s.tracker.Start(ctx, &StartAssignmentParams{
		BusID:            request.BusID,
		OriginalDriverID: request.RequesterDriverID,
		CurrentDriverID:  request.CandidateDriverID,
		SwapRequestID:    request.ID,
		StartsAt:         now,
		EndsAt:           request.ProposedEnd,
		Metadata:         request.Metadata,
	})
	if err != nil {
		return nil, err
	}

	if err := s.swapRepo.Resolve(ctx, request.ID, models.SwapRequestStatusAccepted, &actorID, now); err != nil {
		// Someone else resolved the request between our read and this write.
		// Roll the takeover back so the ledger and the store agree.
		if revertErr := s.tracker.Revert(ctx, assignment.ID, actorID); revertErr != nil {
			s.logger.WithError(revertErr).WithSwapRequestID(request.ID).
				Error("Failed to roll back assignment after accept race")
		}
		return nil, err
	}

	s.logger.LogSwapEvent(request.ID, utils.EventSwapAccepted, map[string]interface{}{
		"bus_id":        request.BusID.Hex(),
		"assignment_id": assignment.ID.Hex(),
	})

	s.notifier.NotifyDriver(ctx, request.RequesterDriverID, models.NotificationTypeSwapAccepted,
		"Swap request accepted",
		"Your swap request was accepted; the bus has been handed over.",
		map[string]string{"swap_request_id": request.ID.Hex(), "assignment_id": assignment.ID.Hex()})

	return assignment, nil
}

func (s *swapService) Reject(ctx context.Context, requestID, actorID primitive.ObjectID) error {
	request, err := s.swapRepo.GetByID(ctx, requestID)
	if err != nil {
		return err
	}
	if actorID != request.CandidateDriverID {
		return fmt.Errorf("driver %s is not the candidate of swap request %s: %w", actorID.Hex(), requestID.Hex(), ErrForbidden)
	}
	if request.Status.IsTerminal() {
		return terminalStatusError(request)
	}

	if err := s.swapRepo.Resolve(ctx, requestID, models.SwapRequestStatusRejected, &actorID, time.Now()); err != nil {
		return err
	}

	s.logger.LogSwapEvent(requestID, utils.EventSwapRejected, map[string]interface{}{
		"bus_id": request.BusID.Hex(),
	})

	s.notifier.NotifyDriver(ctx, request.RequesterDriverID, models.NotificationTypeSwapRejected,
		"Swap request rejected",
		"Your swap request was declined.",
		map[string]string{"swap_request_id": requestID.Hex()})

	return nil
}

func (s *swapService) Cancel(ctx context.Context, requestID, actorID primitive.ObjectID, isAdmin bool) error {
	request, err := s.swapRepo.GetByID(ctx, requestID)
	if err != nil {
		return err
	}
	if !isAdmin && actorID != request.RequesterDriverID {
		return fmt.Errorf("driver %s is not the requester of swap request %s: %w", actorID.Hex(), requestID.Hex(), ErrForbidden)
	}
	if request.Status.IsTerminal() {
		return terminalStatusError(request)
	}

	if err := s.swapRepo.Resolve(ctx, requestID, models.SwapRequestStatusCancelled, &actorID, time.Now()); err != nil {
		return err
	}

	s.logger.LogSwapEvent(requestID, utils.EventSwapCancelled, map[string]interface{}{
		"bus_id":   request.BusID.Hex(),
		"actor_id": actorID.Hex(),
	})

	s.notifier.NotifyDriver(ctx, request.CandidateDriverID, models.NotificationTypeSwapCancelled,
		"Swap request cancelled",
		"A swap request sent to you was withdrawn.",
		map[string]string{"swap_request_id": requestID.Hex()})

	return nil
}

func (s *swapService) ListIncoming(ctx context.Context, driverID primitive.ObjectID, params *utils.PaginationParams) ([]*models.SwapRequest, int64, error) {
	return s.swapRepo.GetIncoming(ctx, driverID, params)
}

func (s *swapService) ListOutgoing(ctx context.Context, driverID primitive.ObjectID, params *utils.PaginationParams) ([]*models.SwapRequest, int64, error) {
	return s.swapRepo.GetOutgoing(ctx, driverID, params)
}

// terminalStatusError maps a resolved request to the error the caller sees:
// an expired request reads as a missed window, anything else as a conflict
// with the resolution that already happened.
func terminalStatusError(request *models.SwapRequest) error {
	if request.Status == models.SwapRequestStatusExpired {
		return fmt.Errorf("swap request %s: %w", request.ID.Hex(), ErrWindowExpired)
	}
	return fmt.Errorf("swap request %s is already %s: %w", request.ID.Hex(), request.Status, ErrConflict)
}
