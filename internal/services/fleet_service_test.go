package services

import (
	"context"
	"testing"

	"busfleet/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newFleetService(t *testing.T) (FleetService, *mockDriverRepo, *mockStoreRepo) {
	t.Helper()
	driverRepo := newMockDriverRepo()
	storeRepo := newMockStoreRepo()
	return NewFleetService(driverRepo, storeRepo, newTestLogger()), driverRepo, storeRepo
}

func TestRegisterDriver(t *testing.T) {
	fleet, _, _ := newFleetService(t)

	driver, err := fleet.RegisterDriver(context.Background(), &RegisterDriverInput{
		Name: "Dana", Phone: "+15550001", LicenseNumber: "LIC-1",
	})
	require.NoError(t, err)
	assert.Equal(t, models.DriverStatusActive, driver.Status)

	// License numbers are unique.
	_, err = fleet.RegisterDriver(context.Background(), &RegisterDriverInput{
		Name: "Other", Phone: "+15550002", LicenseNumber: "LIC-1",
	})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestSetDriverStatus(t *testing.T) {
	fleet, driverRepo, _ := newFleetService(t)
	driver, err := fleet.RegisterDriver(context.Background(), &RegisterDriverInput{
		Name: "Dana", Phone: "+15550001", LicenseNumber: "LIC-1",
	})
	require.NoError(t, err)

	require.NoError(t, fleet.SetDriverStatus(context.Background(), driver.ID, models.DriverStatusSuspended))
	stored, err := driverRepo.GetByID(context.Background(), driver.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DriverStatusSuspended, stored.Status)

	err = fleet.SetDriverStatus(context.Background(), driver.ID, models.DriverStatus("retired"))
	assert.ErrorIs(t, err, ErrInvalidTarget)
}

func TestRegisterDeviceToken(t *testing.T) {
	fleet, driverRepo, _ := newFleetService(t)
	driver, err := fleet.RegisterDriver(context.Background(), &RegisterDriverInput{
		Name: "Dana", Phone: "+15550001", LicenseNumber: "LIC-1",
	})
	require.NoError(t, err)

	require.NoError(t, fleet.RegisterDeviceToken(context.Background(), driver.ID, "tok-1", "android"))
	require.NoError(t, fleet.RegisterDeviceToken(context.Background(), driver.ID, "tok-2", "ios"))
	// Re-registering an existing token replaces it instead of duplicating.
	require.NoError(t, fleet.RegisterDeviceToken(context.Background(), driver.ID, "tok-1", "android"))

	stored, err := driverRepo.GetByID(context.Background(), driver.ID)
	require.NoError(t, err)
	assert.Len(t, stored.DeviceTokens, 2)
}

func TestCreateBusAssignment(t *testing.T) {
	fleet, _, storeRepo := newFleetService(t)
	driver, err := fleet.RegisterDriver(context.Background(), &RegisterDriverInput{
		Name: "Dana", Phone: "+15550001", LicenseNumber: "LIC-1",
	})
	require.NoError(t, err)

	busID := primitive.NewObjectID()
	entry, err := fleet.CreateBusAssignment(context.Background(), busID, nil, driver.ID)
	require.NoError(t, err)
	assert.Equal(t, driver.ID, entry.AssignedDriverID)
	assert.Equal(t, driver.ID, entry.CurrentDriverID)

	// One entry per bus.
	_, err = fleet.CreateBusAssignment(context.Background(), busID, nil, driver.ID)
	assert.ErrorIs(t, err, ErrConflict)

	stored, err := storeRepo.GetByBusID(context.Background(), busID)
	require.NoError(t, err)
	assert.Equal(t, entry.ID, stored.ID)
}

func TestCreateBusAssignmentRequiresEligibleDriver(t *testing.T) {
	fleet, _, _ := newFleetService(t)
	driver, err := fleet.RegisterDriver(context.Background(), &RegisterDriverInput{
		Name: "Dana", Phone: "+15550001", LicenseNumber: "LIC-1",
	})
	require.NoError(t, err)
	require.NoError(t, fleet.SetDriverStatus(context.Background(), driver.ID, models.DriverStatusInactive))

	_, err = fleet.CreateBusAssignment(context.Background(), primitive.NewObjectID(), nil, driver.ID)
	assert.ErrorIs(t, err, ErrInvalidTarget)
}
