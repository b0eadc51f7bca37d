package handlers

import (
	"busfleet/internal/middleware"
	"busfleet/internal/models"
	"busfleet/internal/services"
	"busfleet/internal/utils"
	"busfleet/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type FleetHandler struct {
	fleetService services.FleetService
	logger       *logger.Logger
}

func NewFleetHandler(fleetService services.FleetService, log *logger.Logger) *FleetHandler {
	return &FleetHandler{
		fleetService: fleetService,
		logger:       log,
	}
}

type registerDriverRequest struct {
	Name          string `json:"name" binding:"required"`
	Phone         string `json:"phone" binding:"required"`
	LicenseNumber string `json:"license_number" binding:"required"`
}

// RegisterDriver handles POST /api/v1/admin/drivers
func (h *FleetHandler) RegisterDriver(c *gin.Context) {
	var req registerDriverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request format: "+err.Error())
		return
	}

	driver, err := h.fleetService.RegisterDriver(c.Request.Context(), &services.RegisterDriverInput{
		Name:          req.Name,
		Phone:         req.Phone,
		LicenseNumber: req.LicenseNumber,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.CreatedResponse(c, "Driver registered", driver)
}

// GetDriver handles GET /api/v1/drivers/:id
func (h *FleetHandler) GetDriver(c *gin.Context) {
	driverID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid driver ID")
		return
	}

	driver, err := h.fleetService.GetDriver(c.Request.Context(), driverID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Driver retrieved", driver)
}

// ListDrivers handles GET /api/v1/admin/drivers
func (h *FleetHandler) ListDrivers(c *gin.Context) {
	params := utils.GetPaginationParams(c)
	drivers, total, err := h.fleetService.ListDrivers(c.Request.Context(), params)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponseWithMeta(c, "Drivers retrieved", drivers, &utils.Meta{
		Pagination: utils.CreatePaginationMeta(params, total),
	})
}

type setDriverStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// SetDriverStatus handles PUT /api/v1/admin/drivers/:id/status
func (h *FleetHandler) SetDriverStatus(c *gin.Context) {
	driverID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid driver ID")
		return
	}

	var req setDriverStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request format: "+err.Error())
		return
	}

	if err := h.fleetService.SetDriverStatus(c.Request.Context(), driverID, models.DriverStatus(req.Status)); err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Driver status updated", nil)
}

type registerDeviceTokenRequest struct {
	Token    string `json:"token" binding:"required"`
	Platform string `json:"platform" binding:"required,oneof=android ios"`
}

// RegisterDeviceToken handles POST /api/v1/drivers/me/device-tokens
func (h *FleetHandler) RegisterDeviceToken(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	var req registerDeviceTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request format: "+err.Error())
		return
	}

	if err := h.fleetService.RegisterDeviceToken(c.Request.Context(), userID, req.Token, req.Platform); err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Device token registered", nil)
}

type createBusAssignmentRequest struct {
	BusID    string  `json:"bus_id" binding:"required"`
	RouteID  *string `json:"route_id"`
	DriverID string  `json:"driver_id" binding:"required"`
}

// CreateBusAssignment handles POST /api/v1/admin/buses/assignments
func (h *FleetHandler) CreateBusAssignment(c *gin.Context) {
	var req createBusAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request format: "+err.Error())
		return
	}

	busID, err := primitive.ObjectIDFromHex(req.BusID)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid bus ID")
		return
	}
	driverID, err := primitive.ObjectIDFromHex(req.DriverID)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid driver ID")
		return
	}

	var routeID *primitive.ObjectID
	if req.RouteID != nil {
		id, err := primitive.ObjectIDFromHex(*req.RouteID)
		if err != nil {
			utils.BadRequestResponse(c, "Invalid route ID")
			return
		}
		routeID = &id
	}

	assignment, err := h.fleetService.CreateBusAssignment(c.Request.Context(), busID, routeID, driverID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.CreatedResponse(c, "Bus assignment created", assignment)
}

// GetBusAssignment handles GET /api/v1/buses/:busId/store-entry
func (h *FleetHandler) GetBusAssignment(c *gin.Context) {
	busID, err := primitive.ObjectIDFromHex(c.Param("busId"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid bus ID")
		return
	}

	assignment, err := h.fleetService.GetBusAssignment(c.Request.Context(), busID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Bus assignment retrieved", assignment)
}
