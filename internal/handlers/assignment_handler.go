package handlers

import (
	"busfleet/internal/middleware"
	"busfleet/internal/services"
	"busfleet/internal/utils"
	"busfleet/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AssignmentHandler struct {
	tracker services.AssignmentTracker
	logger  *logger.Logger
}

func NewAssignmentHandler(tracker services.AssignmentTracker, log *logger.Logger) *AssignmentHandler {
	return &AssignmentHandler{
		tracker: tracker,
		logger:  log,
	}
}

// GetAssignment handles GET /api/v1/assignments/:id
func (h *AssignmentHandler) GetAssignment(c *gin.Context) {
	assignmentID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid assignment ID")
		return
	}

	assignment, err := h.tracker.GetByID(c.Request.Context(), assignmentID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Assignment retrieved", assignment)
}

// GetMyActiveAssignment handles GET /api/v1/assignments/active
func (h *AssignmentHandler) GetMyActiveAssignment(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	assignment, err := h.tracker.GetActiveForDriver(c.Request.Context(), userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Active assignment retrieved", assignment)
}

// GetActiveForBus handles GET /api/v1/buses/:busId/assignment
func (h *AssignmentHandler) GetActiveForBus(c *gin.Context) {
	busID, err := primitive.ObjectIDFromHex(c.Param("busId"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid bus ID")
		return
	}

	assignment, err := h.tracker.GetActiveForBus(c.Request.Context(), busID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Active assignment retrieved", assignment)
}

// EndAssignment handles POST /api/v1/assignments/:id/end
//
// A deferred end is a success response carrying the outcome, not an error:
// the bus was mid-trip and the handover happens once the trip finishes.
func (h *AssignmentHandler) EndAssignment(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	assignmentID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid assignment ID")
		return
	}

	outcome, err := h.tracker.End(c.Request.Context(), assignmentID, userID, middleware.IsAdmin(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Assignment end processed", gin.H{"outcome": outcome})
}

// RevertAssignment handles POST /api/v1/admin/assignments/:id/revert
func (h *AssignmentHandler) RevertAssignment(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	assignmentID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid assignment ID")
		return
	}

	if err := h.tracker.Revert(c.Request.Context(), assignmentID, userID); err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Assignment reverted", nil)
}
