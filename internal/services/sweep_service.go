package services

import (
	"context"
	"errors"
	"time"

	"busfleet/internal/models"
	"busfleet/internal/repositories/interfaces"
	"busfleet/internal/utils"
	"busfleet/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SweepReport is the per-category outcome of one sweep run.
type SweepReport struct {
	StartedAt           time.Time `json:"started_at"`
	FinishedAt          time.Time `json:"finished_at"`
	ExpiredRequests     int       `json:"expired_requests"`
	EndedAssignments    int       `json:"ended_assignments"`
	DeferredAssignments int       `json:"deferred_assignments"`
	ResolvedReverts     int       `json:"resolved_reverts"`
	ReconciledEntries   int       `json:"reconciled_entries"`
	DeletedRecords      int64     `json:"deleted_records"`
	Errors              int       `json:"errors"`
}

// SweepService is the periodic janitor: it expires stale requests, ends due
// assignments, retries deferred reverts, repairs divergent store entries and
// garbage-collects old terminal records. Every step isolates per-record
// failures; one bad record never stops the pass.
type SweepService interface {
	Run(ctx context.Context) (*SweepReport, error)
}

type sweepService struct {
	swapRepo  interfaces.SwapRequestRepository
	tempRepo  interfaces.TemporaryAssignmentRepository
	storeRepo interfaces.AssignmentRepository
	tracker   AssignmentTracker
	oracle    TripOracle
	notifier  Notifier
	logger    *logger.Logger
	retention time.Duration
}

func NewSweepService(
	swapRepo interfaces.SwapRequestRepository,
	tempRepo interfaces.TemporaryAssignmentRepository,
	storeRepo interfaces.AssignmentRepository,
	tracker AssignmentTracker,
	oracle TripOracle,
	notifier Notifier,
	log *logger.Logger,
	retention time.Duration,
) SweepService {
	if retention <= 0 {
		retention = utils.DefaultRetentionPeriod
	}
	return &sweepService{
		swapRepo:  swapRepo,
		tempRepo:  tempRepo,
		storeRepo: storeRepo,
		tracker:   tracker,
		oracle:    oracle,
		notifier:  notifier,
		logger:    log,
		retention: retention,
	}
}

func (s *sweepService) Run(ctx context.Context) (*SweepReport, error) {
	report := &SweepReport{StartedAt: time.Now()}

	s.expireRequests(ctx, report)
	s.endDueAssignments(ctx, report)
	s.resolveDeferredReverts(ctx, report)
	s.reconcileStore(ctx, report)
	s.cleanup(ctx, report)

	report.FinishedAt = time.Now()

	s.logger.LogSweepReport(map[string]interface{}{
		"expired_requests":     report.ExpiredRequests,
		"ended_assignments":    report.EndedAssignments,
		"deferred_assignments": report.DeferredAssignments,
		"resolved_reverts":     report.ResolvedReverts,
		"reconciled_entries":   report.ReconciledEntries,
		"deleted_records":      report.DeletedRecords,
		"errors":               report.Errors,
		"duration_ms":          report.FinishedAt.Sub(report.StartedAt).Milliseconds(),
	})

	return report, nil
}

func (s *sweepService) expireRequests(ctx context.Context, report *SweepReport) {
	now := time.Now()
	requests, err := s.swapRepo.ListPendingExpired(ctx, now)
	if err != nil {
		s.logger.WithError(err).Error("Sweep failed to list expired requests")
		report.Errors++
		return
	}

	for _, request := range requests {
		if err := s.swapRepo.Resolve(ctx, request.ID, models.SwapRequestStatusExpired, nil, now); err != nil {
			// A concurrent resolver winning the race is not a failure.
			if errors.Is(err, ErrConflict) {
				continue
			}
			s.logger.WithError(err).WithSwapRequestID(request.ID).Error("Sweep failed to expire request")
			report.Errors++
			continue
		}
		report.ExpiredRequests++

		s.logger.LogSwapEvent(request.ID, utils.EventSwapExpired, map[string]interface{}{
			"bus_id": request.BusID.Hex(),
		})

		s.notifier.NotifyDriver(ctx, request.RequesterDriverID, models.NotificationTypeSwapExpired,
			"Swap request expired",
			"Your swap request was not answered in time.",
			map[string]string{"swap_request_id": request.ID.Hex()})
	}
}

func (s *sweepService) endDueAssignments(ctx context.Context, report *SweepReport) {
	assignments, err := s.tempRepo.ListDue(ctx, time.Now())
	if err != nil {
		s.logger.WithError(err).Error("Sweep failed to list due assignments")
		report.Errors++
		return
	}

	for _, assignment := range assignments {
		outcome, err := s.tracker.End(ctx, assignment.ID, primitive.NilObjectID, true)
		if err != nil {
			s.logger.WithError(err).WithAssignmentID(assignment.ID).Error("Sweep failed to end due assignment")
			report.Errors++
			continue
		}
		switch outcome {
		case EndOutcomeEnded:
			report.EndedAssignments++
		case EndOutcomeDeferred:
			report.DeferredAssignments++
		}
	}
}

func (s *sweepService) resolveDeferredReverts(ctx context.Context, report *SweepReport) {
	assignments, err := s.tempRepo.ListPendingRevert(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Sweep failed to list deferred reverts")
		report.Errors++
		return
	}

	for _, assignment := range assignments {
		outcome, err := s.tracker.End(ctx, assignment.ID, primitive.NilObjectID, true)
		if err != nil {
			s.logger.WithError(err).WithAssignmentID(assignment.ID).Error("Sweep failed to resolve deferred revert")
			report.Errors++
			continue
		}
		// Still mid-trip: leave it pending for the next pass.
		if outcome == EndOutcomeEnded {
			report.ResolvedReverts++
		}
	}
}

// reconcileStore repairs assignment store entries that point at a driver no
// active temporary assignment vouches for. This is the recovery path for a
// revert whose store write was lost.
func (s *sweepService) reconcileStore(ctx context.Context, report *SweepReport) {
	entries, err := s.storeRepo.ListDivergent(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Sweep failed to list divergent store entries")
		report.Errors++
		return
	}

	for _, entry := range entries {
		assignment, err := s.tempRepo.GetActiveByBus(ctx, entry.BusID)
		if err != nil {
			s.logger.WithError(err).WithBusID(entry.BusID).Error("Sweep failed to check active assignment")
			report.Errors++
			continue
		}

		want := entry.AssignedDriverID
		if assignment != nil {
			want = assignment.CurrentDriverID
		}
		if entry.CurrentDriverID == want {
			continue
		}

		if err := s.storeRepo.ForceCurrentDriver(ctx, entry.BusID, want); err != nil {
			s.logger.WithError(err).WithBusID(entry.BusID).Error("Sweep failed to reconcile store entry")
			report.Errors++
			continue
		}
		report.ReconciledEntries++

		s.logger.WithBusID(entry.BusID).WithDriverID(want).Warn("Reconciled divergent assignment store entry")
	}
}

func (s *sweepService) cleanup(ctx context.Context, report *SweepReport) {
	cutoff := time.Now().Add(-s.retention)

	deleted, err := s.swapRepo.DeleteTerminalOlderThan(ctx, cutoff)
	if err != nil {
		s.logger.WithError(err).Error("Sweep failed to delete old swap requests")
		report.Errors++
	} else {
		report.DeletedRecords += deleted
	}

	deleted, err = s.tempRepo.DeleteInactiveOlderThan(ctx, cutoff)
	if err != nil {
		s.logger.WithError(err).Error("Sweep failed to delete old assignments")
		report.Errors++
	} else {
		report.DeletedRecords += deleted
	}
}
