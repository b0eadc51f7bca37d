package services

import (
	"context"
	"fmt"
	"time"

	"busfleet/internal/models"
	"busfleet/internal/repositories/interfaces"
	"busfleet/internal/utils"
	"busfleet/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RegisterDriverInput carries the fields of a new driver record.
type RegisterDriverInput struct {
	Name          string
	Phone         string
	LicenseNumber string
}

// FleetService covers the administrative surface: driver records, device
// tokens and the bus assignment entries the swap machinery operates on.
type FleetService interface {
	RegisterDriver(ctx context.Context, input *RegisterDriverInput) (*models.Driver, error)
	GetDriver(ctx context.Context, id primitive.ObjectID) (*models.Driver, error)
	ListDrivers(ctx context.Context, params *utils.PaginationParams) ([]*models.Driver, int64, error)
	SetDriverStatus(ctx context.Context, id primitive.ObjectID, status models.DriverStatus) error
	RegisterDeviceToken(ctx context.Context, driverID primitive.ObjectID, token, platform string) error

	// CreateBusAssignment seeds the store entry for a bus. The current driver
	// starts out equal to the assigned driver.
	CreateBusAssignment(ctx context.Context, busID primitive.ObjectID, routeID *primitive.ObjectID, driverID primitive.ObjectID) (*models.BusAssignment, error)
	GetBusAssignment(ctx context.Context, busID primitive.ObjectID) (*models.BusAssignment, error)
}

type fleetService struct {
	driverRepo interfaces.DriverRepository
	storeRepo  interfaces.AssignmentRepository
	logger     *logger.Logger
}

func NewFleetService(driverRepo interfaces.DriverRepository, storeRepo interfaces.AssignmentRepository, log *logger.Logger) FleetService {
	return &fleetService{
		driverRepo: driverRepo,
		storeRepo:  storeRepo,
		logger:     log,
	}
}

func (s *fleetService) RegisterDriver(ctx context.Context, input *RegisterDriverInput) (*models.Driver, error) {
	now := time.Now()
	driver := &models.Driver{
		ID:            primitive.NewObjectID(),
		Name:          input.Name,
		Phone:         input.Phone,
		LicenseNumber: input.LicenseNumber,
		Status:        models.DriverStatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.driverRepo.Create(ctx, driver); err != nil {
		return nil, err
	}

	s.logger.WithDriverID(driver.ID).Info("Driver registered")
	return driver, nil
}

func (s *fleetService) GetDriver(ctx context.Context, id primitive.ObjectID) (*models.Driver, error) {
	return s.driverRepo.GetByID(ctx, id)
}

func (s *fleetService) ListDrivers(ctx context.Context, params *utils.PaginationParams) ([]*models.Driver, int64, error) {
	return s.driverRepo.List(ctx, params)
}

func (s *fleetService) SetDriverStatus(ctx context.Context, id primitive.ObjectID, status models.DriverStatus) error {
	switch status {
	case models.DriverStatusActive, models.DriverStatusInactive, models.DriverStatusSuspended:
	default:
		return fmt.Errorf("unknown driver status %q: %w", status, ErrInvalidTarget)
	}
	return s.driverRepo.Update(ctx, id, map[string]interface{}{"status": status})
}

func (s *fleetService) RegisterDeviceToken(ctx context.Context, driverID primitive.ObjectID, token, platform string) error {
	driver, err := s.driverRepo.GetByID(ctx, driverID)
	if err != nil {
		return err
	}

	tokens := make([]models.DeviceToken, 0, len(driver.DeviceTokens)+1)
	for _, existing := range driver.DeviceTokens {
		if existing.Token == token {
			continue
		}
		tokens = append(tokens, existing)
	}
	tokens = append(tokens, models.DeviceToken{Token: token, Platform: platform})

	return s.driverRepo.Update(ctx, driverID, map[string]interface{}{"device_tokens": tokens})
}

func (s *fleetService) CreateBusAssignment(ctx context.Context, busID primitive.ObjectID, routeID *primitive.ObjectID, driverID primitive.ObjectID) (*models.BusAssignment, error) {
	driver, err := s.driverRepo.GetByID(ctx, driverID)
	if err != nil {
		return nil, err
	}
	if !driver.CanDrive() {
		return nil, fmt.Errorf("driver %s is not eligible to drive: %w", driverID.Hex(), ErrInvalidTarget)
	}

	now := time.Now()
	assignment := &models.BusAssignment{
		ID:               primitive.NewObjectID(),
		BusID:            busID,
		RouteID:          routeID,
		AssignedDriverID: driverID,
		CurrentDriverID:  driverID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.storeRepo.Create(ctx, assignment); err != nil {
		return nil, err
	}

	s.logger.WithBusID(busID).WithDriverID(driverID).Info("Bus assignment created")
	return assignment, nil
}

func (s *fleetService) GetBusAssignment(ctx context.Context, busID primitive.ObjectID) (*models.BusAssignment, error) {
	return s.storeRepo.GetByBusID(ctx, busID)
}
