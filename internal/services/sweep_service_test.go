package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"busfleet/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// dueAssignment accepts a swap and backdates its window so the sweep sees it
// as due.
func dueAssignment(t *testing.T, env *testEnv) *models.TemporaryAssignment {
	t.Helper()
	assignment := acceptedAssignment(t, env)
	past := time.Now().Add(-time.Minute)
	assignment.EndsAt = &past
	return assignment
}

func TestSweepExpiresPendingRequests(t *testing.T) {
	env := newTestEnv(t)

	stale := env.createRequest(t)
	stale.AcceptWindowEnd = time.Now().Add(-time.Minute)

	// A second, still-open request on another bus must survive the sweep.
	otherBus := primitive.NewObjectID()
	otherDriver := primitive.NewObjectID()
	now := time.Now()
	require.NoError(t, env.driverRepo.Create(context.Background(), &models.Driver{
		ID: otherDriver, Name: "Sam", Phone: "+15550003", LicenseNumber: "LIC-3",
		Status: models.DriverStatusActive, CreatedAt: now, UpdatedAt: now,
	}))
	require.NoError(t, env.storeRepo.Create(context.Background(), &models.BusAssignment{
		ID: primitive.NewObjectID(), BusID: otherBus,
		AssignedDriverID: otherDriver, CurrentDriverID: otherDriver,
		CreatedAt: now, UpdatedAt: now,
	}))
	fresh, err := env.ledger.CreateSwapRequest(context.Background(), otherDriver, &CreateSwapRequestInput{
		BusID:             otherBus,
		CandidateDriverID: env.candidateID,
	})
	require.NoError(t, err)

	report, err := env.sweep.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.ExpiredRequests)
	assert.Equal(t, 0, report.Errors)

	staleStored, err := env.swapRepo.GetByID(context.Background(), stale.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SwapRequestStatusExpired, staleStored.Status)

	freshStored, err := env.swapRepo.GetByID(context.Background(), fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SwapRequestStatusPending, freshStored.Status)

	assert.Equal(t, 1, env.notifier.count(models.NotificationTypeSwapExpired))
}

func TestSweepEndsDueAssignments(t *testing.T) {
	env := newTestEnv(t)
	assignment := dueAssignment(t, env)

	report, err := env.sweep.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.EndedAssignments)
	assert.Equal(t, 0, report.DeferredAssignments)

	stored, err := env.tempRepo.GetByID(context.Background(), assignment.ID)
	require.NoError(t, err)
	assert.False(t, stored.Active)

	entry, err := env.storeRepo.GetByBusID(context.Background(), env.busID)
	require.NoError(t, err)
	assert.Equal(t, env.requesterID, entry.CurrentDriverID)
}

func TestSweepDefersDueAssignmentMidTrip(t *testing.T) {
	env := newTestEnv(t)
	assignment := dueAssignment(t, env)
	env.oracle.set(env.busID, true)

	report, err := env.sweep.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.EndedAssignments)
	assert.Equal(t, 1, report.DeferredAssignments)

	stored, err := env.tempRepo.GetByID(context.Background(), assignment.ID)
	require.NoError(t, err)
	assert.True(t, stored.Active)
	assert.True(t, stored.PendingRevert)

	// While the trip runs, further sweeps leave the assignment pending.
	report, err = env.sweep.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.ResolvedReverts)

	// The trip ends; the next sweep completes the revert.
	env.oracle.set(env.busID, false)
	report, err = env.sweep.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.ResolvedReverts)

	stored, err = env.tempRepo.GetByID(context.Background(), assignment.ID)
	require.NoError(t, err)
	assert.False(t, stored.Active)

	entry, err := env.storeRepo.GetByBusID(context.Background(), env.busID)
	require.NoError(t, err)
	assert.Equal(t, env.requesterID, entry.CurrentDriverID)
}

func TestSweepReconcilesOrphanedStoreEntry(t *testing.T) {
	env := newTestEnv(t)

	// Divergent store entry with no active assignment vouching for it.
	stray := primitive.NewObjectID()
	require.NoError(t, env.storeRepo.ForceCurrentDriver(context.Background(), env.busID, stray))

	report, err := env.sweep.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.ReconciledEntries)

	entry, err := env.storeRepo.GetByBusID(context.Background(), env.busID)
	require.NoError(t, err)
	assert.Equal(t, env.requesterID, entry.CurrentDriverID)
}

func TestSweepLeavesConsistentDivergenceAlone(t *testing.T) {
	env := newTestEnv(t)
	acceptedAssignment(t, env)

	// Store diverges from the assigned driver, but an active assignment
	// backs the divergence. Nothing to repair.
	report, err := env.sweep.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.ReconciledEntries)

	entry, err := env.storeRepo.GetByBusID(context.Background(), env.busID)
	require.NoError(t, err)
	assert.Equal(t, env.candidateID, entry.CurrentDriverID)
}

func TestSweepRepairsStoreBehindActiveAssignment(t *testing.T) {
	env := newTestEnv(t)
	acceptedAssignment(t, env)

	// The store lost the takeover somehow; reconcile restores the active
	// assignment's driver, not the permanent one.
	stray := primitive.NewObjectID()
	require.NoError(t, env.storeRepo.ForceCurrentDriver(context.Background(), env.busID, stray))

	report, err := env.sweep.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.ReconciledEntries)

	entry, err := env.storeRepo.GetByBusID(context.Background(), env.busID)
	require.NoError(t, err)
	assert.Equal(t, env.candidateID, entry.CurrentDriverID)
}

func TestSweepCleanup(t *testing.T) {
	env := newTestEnv(t)

	request := env.createRequest(t)
	require.NoError(t, env.ledger.Reject(context.Background(), request.ID, env.candidateID))
	old := time.Now().Add(-30 * 24 * time.Hour)
	request.ResolvedAt = &old

	assignment := acceptedAssignment(t, env)
	_, err := env.tracker.End(context.Background(), assignment.ID, env.candidateID, false)
	require.NoError(t, err)
	assignment.EndedAt = &old

	report, err := env.sweep.Run(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, report.DeletedRecords)

	_, err = env.swapRepo.GetByID(context.Background(), request.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = env.tempRepo.GetByID(context.Background(), assignment.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSweepIsolatesStepFailures(t *testing.T) {
	env := newTestEnv(t)
	dueAssignment(t, env)
	env.swapRepo.listPendingExpiredErr = errors.New("connection reset")

	report, err := env.sweep.Run(context.Background())
	require.NoError(t, err)

	// The expiry step failed, the rest of the pass still ran.
	assert.Equal(t, 1, report.Errors)
	assert.Equal(t, 1, report.EndedAssignments)
}

func TestSweepIdempotent(t *testing.T) {
	env := newTestEnv(t)
	stale := env.createRequest(t)
	stale.AcceptWindowEnd = time.Now().Add(-time.Minute)

	first, err := env.sweep.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first.ExpiredRequests)

	second, err := env.sweep.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second.ExpiredRequests)
	assert.Equal(t, 0, second.EndedAssignments)
	assert.Equal(t, 0, second.ResolvedReverts)
	assert.Equal(t, 0, second.ReconciledEntries)
	assert.Equal(t, 0, second.Errors)
}
