package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"busfleet/internal/models"
	"busfleet/internal/utils"
	"busfleet/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// In-memory repository doubles. They enforce the same conditional-write
// rules as the Mongo implementations so the services are tested against the
// semantics they rely on.

type mockSwapRepo struct {
	mu       sync.Mutex
	requests map[primitive.ObjectID]*models.SwapRequest

	createErr             error
	resolveErr            error
	listPendingExpiredErr error
}

func newMockSwapRepo() *mockSwapRepo {
	return &mockSwapRepo{requests: make(map[primitive.ObjectID]*models.SwapRequest)}
}

func (m *mockSwapRepo) Create(ctx context.Context, request *models.SwapRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	for _, existing := range m.requests {
		if existing.Status == models.SwapRequestStatusPending &&
			existing.BusID == request.BusID &&
			existing.RequesterDriverID == request.RequesterDriverID {
			return fmt.Errorf("pending swap request already exists: %w", ErrConflict)
		}
	}
	m.requests[request.ID] = request
	return nil
}

func (m *mockSwapRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.SwapRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	request, ok := m.requests[id]
	if !ok {
		return nil, fmt.Errorf("swap request %s: %w", id.Hex(), ErrNotFound)
	}
	return request, nil
}

func (m *mockSwapRepo) GetPendingByBusAndRequester(ctx context.Context, busID, requesterID primitive.ObjectID) (*models.SwapRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, request := range m.requests {
		if request.Status == models.SwapRequestStatusPending &&
			request.BusID == busID && request.RequesterDriverID == requesterID {
			return request, nil
		}
	}
	return nil, nil
}

func (m *mockSwapRepo) Resolve(ctx context.Context, id primitive.ObjectID, status models.SwapRequestStatus, resolvedBy *primitive.ObjectID, resolvedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.resolveErr != nil {
		return m.resolveErr
	}
	request, ok := m.requests[id]
	if !ok {
		return fmt.Errorf("swap request %s: %w", id.Hex(), ErrNotFound)
	}
	if request.Status != models.SwapRequestStatusPending {
		return fmt.Errorf("swap request %s is not pending: %w", id.Hex(), ErrConflict)
	}
	request.Status = status
	request.ResolvedAt = &resolvedAt
	request.ResolvedBy = resolvedBy
	request.UpdatedAt = resolvedAt
	return nil
}

func (m *mockSwapRepo) ListPendingExpired(ctx context.Context, now time.Time) ([]*models.SwapRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listPendingExpiredErr != nil {
		return nil, m.listPendingExpiredErr
	}
	var result []*models.SwapRequest
	for _, request := range m.requests {
		if request.Status == models.SwapRequestStatusPending && now.After(request.AcceptWindowEnd) {
			result = append(result, request)
		}
	}
	return result, nil
}

func (m *mockSwapRepo) GetIncoming(ctx context.Context, candidateID primitive.ObjectID, params *utils.PaginationParams) ([]*models.SwapRequest, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*models.SwapRequest
	for _, request := range m.requests {
		if request.CandidateDriverID == candidateID {
			result = append(result, request)
		}
	}
	return result, int64(len(result)), nil
}

func (m *mockSwapRepo) GetOutgoing(ctx context.Context, requesterID primitive.ObjectID, params *utils.PaginationParams) ([]*models.SwapRequest, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*models.SwapRequest
	for _, request := range m.requests {
		if request.RequesterDriverID == requesterID {
			result = append(result, request)
		}
	}
	return result, int64(len(result)), nil
}

func (m *mockSwapRepo) DeleteTerminalOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var deleted int64
	for id, request := range m.requests {
		if request.Status.IsTerminal() && request.ResolvedAt != nil && request.ResolvedAt.Before(cutoff) {
			delete(m.requests, id)
			deleted++
		}
	}
	return deleted, nil
}

type mockTempRepo struct {
	mu          sync.Mutex
	assignments map[primitive.ObjectID]*models.TemporaryAssignment

	// cache, when set, mirrors the Mongo implementation's policy: filled
	// from committed reads only, never from Create, invalidated on state
	// changes.
	cache CacheService

	listDueErr    error
	deactivateErr error
}

func activeAssignmentKey(busID primitive.ObjectID) string {
	return "active_assignment:" + busID.Hex()
}

func newMockTempRepo() *mockTempRepo {
	return &mockTempRepo{assignments: make(map[primitive.ObjectID]*models.TemporaryAssignment)}
}

func (m *mockTempRepo) Create(ctx context.Context, assignment *models.TemporaryAssignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.assignments {
		if existing.Active && existing.BusID == assignment.BusID {
			return fmt.Errorf("bus %s already has an active assignment: %w", assignment.BusID.Hex(), ErrConflict)
		}
	}
	m.assignments[assignment.ID] = assignment
	return nil
}

func (m *mockTempRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.TemporaryAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	assignment, ok := m.assignments[id]
	if !ok {
		return nil, fmt.Errorf("temporary assignment %s: %w", id.Hex(), ErrNotFound)
	}
	return assignment, nil
}

func (m *mockTempRepo) GetActiveByBus(ctx context.Context, busID primitive.ObjectID) (*models.TemporaryAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cache != nil {
		var cached models.TemporaryAssignment
		if err := m.cache.Get(ctx, activeAssignmentKey(busID), &cached); err == nil {
			return &cached, nil
		}
	}
	for _, assignment := range m.assignments {
		if assignment.Active && assignment.BusID == busID {
			if m.cache != nil {
				m.cache.Set(ctx, activeAssignmentKey(busID), assignment, 5*time.Minute)
			}
			return assignment, nil
		}
	}
	return nil, nil
}

func (m *mockTempRepo) GetActiveByDriver(ctx context.Context, driverID primitive.ObjectID) (*models.TemporaryAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, assignment := range m.assignments {
		if assignment.Active && assignment.CurrentDriverID == driverID {
			return assignment, nil
		}
	}
	return nil, nil
}

func (m *mockTempRepo) ListActive(ctx context.Context) ([]*models.TemporaryAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*models.TemporaryAssignment
	for _, assignment := range m.assignments {
		if assignment.Active {
			result = append(result, assignment)
		}
	}
	return result, nil
}

func (m *mockTempRepo) ListDue(ctx context.Context, now time.Time) ([]*models.TemporaryAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listDueErr != nil {
		return nil, m.listDueErr
	}
	var result []*models.TemporaryAssignment
	for _, assignment := range m.assignments {
		if assignment.Due(now) && !assignment.PendingRevert {
			result = append(result, assignment)
		}
	}
	return result, nil
}

func (m *mockTempRepo) ListPendingRevert(ctx context.Context) ([]*models.TemporaryAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*models.TemporaryAssignment
	for _, assignment := range m.assignments {
		if assignment.Active && assignment.PendingRevert {
			result = append(result, assignment)
		}
	}
	return result, nil
}

func (m *mockTempRepo) SetPendingRevert(ctx context.Context, id primitive.ObjectID, pending bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	assignment, ok := m.assignments[id]
	if !ok || !assignment.Active {
		return fmt.Errorf("temporary assignment %s is not active: %w", id.Hex(), ErrNotFound)
	}
	assignment.PendingRevert = pending
	assignment.UpdatedAt = time.Now()
	if m.cache != nil {
		m.cache.Delete(ctx, activeAssignmentKey(assignment.BusID))
	}
	return nil
}

func (m *mockTempRepo) Deactivate(ctx context.Context, id primitive.ObjectID, endedBy primitive.ObjectID, endedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deactivateErr != nil {
		return m.deactivateErr
	}
	assignment, ok := m.assignments[id]
	if !ok {
		return fmt.Errorf("temporary assignment %s: %w", id.Hex(), ErrNotFound)
	}
	if !assignment.Active {
		return fmt.Errorf("temporary assignment %s is not active: %w", id.Hex(), ErrConflict)
	}
	assignment.Active = false
	assignment.PendingRevert = false
	assignment.EndedAt = &endedAt
	assignment.EndedBy = &endedBy
	assignment.UpdatedAt = endedAt
	if m.cache != nil {
		m.cache.Delete(ctx, activeAssignmentKey(assignment.BusID))
	}
	return nil
}

func (m *mockTempRepo) DeleteInactiveOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var deleted int64
	for id, assignment := range m.assignments {
		if !assignment.Active && assignment.EndedAt != nil && assignment.EndedAt.Before(cutoff) {
			delete(m.assignments, id)
			deleted++
		}
	}
	return deleted, nil
}

type mockStoreRepo struct {
	mu      sync.Mutex
	entries map[primitive.ObjectID]*models.BusAssignment

	setErr error
}

func newMockStoreRepo() *mockStoreRepo {
	return &mockStoreRepo{entries: make(map[primitive.ObjectID]*models.BusAssignment)}
}

func (m *mockStoreRepo) Create(ctx context.Context, assignment *models.BusAssignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[assignment.BusID]; ok {
		return fmt.Errorf("bus %s already has an assignment entry: %w", assignment.BusID.Hex(), ErrConflict)
	}
	m.entries[assignment.BusID] = assignment
	return nil
}

func (m *mockStoreRepo) GetByBusID(ctx context.Context, busID primitive.ObjectID) (*models.BusAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[busID]
	if !ok {
		return nil, fmt.Errorf("bus assignment for %s: %w", busID.Hex(), ErrNotFound)
	}
	return entry, nil
}

func (m *mockStoreRepo) GetByCurrentDriver(ctx context.Context, driverID primitive.ObjectID) (*models.BusAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, entry := range m.entries {
		if entry.CurrentDriverID == driverID {
			return entry, nil
		}
	}
	return nil, fmt.Errorf("bus assignment for driver %s: %w", driverID.Hex(), ErrNotFound)
}

func (m *mockStoreRepo) SetCurrentDriver(ctx context.Context, busID, fromDriverID, toDriverID primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	entry, ok := m.entries[busID]
	if !ok {
		return fmt.Errorf("bus assignment for %s: %w", busID.Hex(), ErrNotFound)
	}
	if entry.CurrentDriverID != fromDriverID {
		return fmt.Errorf("bus %s is not driven by %s: %w", busID.Hex(), fromDriverID.Hex(), ErrConflict)
	}
	entry.CurrentDriverID = toDriverID
	entry.UpdatedAt = time.Now()
	return nil
}

func (m *mockStoreRepo) ForceCurrentDriver(ctx context.Context, busID, driverID primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[busID]
	if !ok {
		return fmt.Errorf("bus assignment for %s: %w", busID.Hex(), ErrNotFound)
	}
	entry.CurrentDriverID = driverID
	entry.UpdatedAt = time.Now()
	return nil
}

func (m *mockStoreRepo) ListDivergent(ctx context.Context) ([]*models.BusAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*models.BusAssignment
	for _, entry := range m.entries {
		if entry.CurrentDriverID != entry.AssignedDriverID {
			result = append(result, entry)
		}
	}
	return result, nil
}

type mockDriverRepo struct {
	mu      sync.Mutex
	drivers map[primitive.ObjectID]*models.Driver
}

func newMockDriverRepo() *mockDriverRepo {
	return &mockDriverRepo{drivers: make(map[primitive.ObjectID]*models.Driver)}
}

func (m *mockDriverRepo) Create(ctx context.Context, driver *models.Driver) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.drivers {
		if existing.LicenseNumber == driver.LicenseNumber {
			return fmt.Errorf("driver with license %s already exists: %w", driver.LicenseNumber, ErrConflict)
		}
	}
	m.drivers[driver.ID] = driver
	return nil
}

func (m *mockDriverRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Driver, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	driver, ok := m.drivers[id]
	if !ok {
		return nil, fmt.Errorf("driver %s: %w", id.Hex(), ErrNotFound)
	}
	return driver, nil
}

func (m *mockDriverRepo) Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	driver, ok := m.drivers[id]
	if !ok {
		return fmt.Errorf("driver %s: %w", id.Hex(), ErrNotFound)
	}
	if status, ok := updates["status"]; ok {
		driver.Status = status.(models.DriverStatus)
	}
	if tokens, ok := updates["device_tokens"]; ok {
		driver.DeviceTokens = tokens.([]models.DeviceToken)
	}
	driver.UpdatedAt = time.Now()
	return nil
}

func (m *mockDriverRepo) List(ctx context.Context, params *utils.PaginationParams) ([]*models.Driver, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*models.Driver
	for _, driver := range m.drivers {
		result = append(result, driver)
	}
	return result, int64(len(result)), nil
}

type mockTripRepo struct {
	mu    sync.Mutex
	trips map[primitive.ObjectID]*models.Trip
}

func newMockTripRepo() *mockTripRepo {
	return &mockTripRepo{trips: make(map[primitive.ObjectID]*models.Trip)}
}

func (m *mockTripRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Trip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	trip, ok := m.trips[id]
	if !ok {
		return nil, fmt.Errorf("trip %s: %w", id.Hex(), ErrNotFound)
	}
	return trip, nil
}

func (m *mockTripRepo) GetActiveByBus(ctx context.Context, busID primitive.ObjectID) (*models.Trip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, trip := range m.trips {
		if trip.BusID == busID && trip.Status == models.TripStatusInProgress {
			return trip, nil
		}
	}
	return nil, nil
}

type mockNotificationRepo struct {
	mu            sync.Mutex
	notifications []*models.Notification
}

func newMockNotificationRepo() *mockNotificationRepo {
	return &mockNotificationRepo{}
}

func (m *mockNotificationRepo) Create(ctx context.Context, notification *models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications = append(m.notifications, notification)
	return nil
}

func (m *mockNotificationRepo) GetByUser(ctx context.Context, userID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Notification, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*models.Notification
	for _, notification := range m.notifications {
		if notification.UserID == userID {
			result = append(result, notification)
		}
	}
	return result, int64(len(result)), nil
}

func (m *mockNotificationRepo) MarkSent(ctx context.Context, id primitive.ObjectID) error   { return nil }
func (m *mockNotificationRepo) MarkFailed(ctx context.Context, id primitive.ObjectID) error { return nil }
func (m *mockNotificationRepo) MarkRead(ctx context.Context, id, userID primitive.ObjectID) error {
	return nil
}

// passTxRunner runs the callback directly; the mocks have no transactions.
type passTxRunner struct{}

func (passTxRunner) RunTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// stubOracle answers from a fixed per-bus table.
type stubOracle struct {
	mu         sync.Mutex
	inProgress map[primitive.ObjectID]bool
	err        error
}

func newStubOracle() *stubOracle {
	return &stubOracle{inProgress: make(map[primitive.ObjectID]bool)}
}

func (o *stubOracle) TripInProgress(ctx context.Context, busID primitive.ObjectID) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return false, o.err
	}
	return o.inProgress[busID], nil
}

func (o *stubOracle) set(busID primitive.ObjectID, inProgress bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.inProgress[busID] = inProgress
}

// recordingNotifier captures notifications instead of delivering them.
type recordingNotifier struct {
	mu     sync.Mutex
	events []recordedNotification
}

type recordedNotification struct {
	DriverID primitive.ObjectID
	Type     models.NotificationType
}

func (n *recordingNotifier) NotifyDriver(ctx context.Context, driverID primitive.ObjectID, notificationType models.NotificationType, title, message string, data map[string]string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, recordedNotification{DriverID: driverID, Type: notificationType})
}

func (n *recordingNotifier) count(notificationType models.NotificationType) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	total := 0
	for _, event := range n.events {
		if event.Type == notificationType {
			total++
		}
	}
	return total
}

func newTestLogger() *logger.Logger {
	log, err := logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Format: "text", Output: "stdout"})
	if err != nil {
		panic(err)
	}
	return log
}
