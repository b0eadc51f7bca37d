package handlers

import (
	"time"

	"busfleet/internal/middleware"
	"busfleet/internal/services"
	"busfleet/internal/utils"
	"busfleet/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type SwapHandler struct {
	swapService services.SwapLedger
	logger      *logger.Logger
}

func NewSwapHandler(swapService services.SwapLedger, log *logger.Logger) *SwapHandler {
	return &SwapHandler{
		swapService: swapService,
		logger:      log,
	}
}

type createSwapRequestRequest struct {
	BusID             string            `json:"bus_id" binding:"required"`
	CandidateDriverID string            `json:"candidate_driver_id" binding:"required"`
	Reason            string            `json:"reason"`
	ProposedStart     *time.Time        `json:"proposed_start"`
	ProposedEnd       *time.Time        `json:"proposed_end"`
	Metadata          map[string]string `json:"metadata"`
}

// CreateSwapRequest handles POST /api/v1/swaps
func (h *SwapHandler) CreateSwapRequest(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	var req createSwapRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request format: "+err.Error())
		return
	}

	busID, err := primitive.ObjectIDFromHex(req.BusID)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid bus ID")
		return
	}
	candidateID, err := primitive.ObjectIDFromHex(req.CandidateDriverID)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid candidate driver ID")
		return
	}

	request, err := h.swapService.CreateSwapRequest(c.Request.Context(), userID, &services.CreateSwapRequestInput{
		BusID:             busID,
		CandidateDriverID: candidateID,
		Reason:            req.Reason,
		ProposedStart:     req.ProposedStart,
		ProposedEnd:       req.ProposedEnd,
		Metadata:          req.Metadata,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.CreatedResponse(c, "Swap request created", request)
}

// GetSwapRequest handles GET /api/v1/swaps/:id
func (h *SwapHandler) GetSwapRequest(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	requestID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid swap request ID")
		return
	}

	request, err := h.swapService.GetSwapRequest(c.Request.Context(), requestID, userID, middleware.IsAdmin(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Swap request retrieved", request)
}

// AcceptSwapRequest handles POST /api/v1/swaps/:id/accept
func (h *SwapHandler) AcceptSwapRequest(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	requestID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid swap request ID")
		return
	}

	assignment, err := h.swapService.Accept(c.Request.Context(), requestID, userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Swap request accepted", assignment)
}

// RejectSwapRequest handles POST /api/v1/swaps/:id/reject
func (h *SwapHandler) RejectSwapRequest(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	requestID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid swap request ID")
		return
	}

	if err := h.swapService.Reject(c.Request.Context(), requestID, userID); err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Swap request rejected", nil)
}

// CancelSwapRequest handles POST /api/v1/swaps/:id/cancel
func (h *SwapHandler) CancelSwapRequest(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	requestID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid swap request ID")
		return
	}

	if err := h.swapService.Cancel(c.Request.Context(), requestID, userID, middleware.IsAdmin(c)); err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Swap request cancelled", nil)
}

// ListIncoming handles GET /api/v1/swaps/incoming
func (h *SwapHandler) ListIncoming(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	params := utils.GetPaginationParams(c)
	requests, total, err := h.swapService.ListIncoming(c.Request.Context(), userID, params)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponseWithMeta(c, "Incoming swap requests retrieved", requests, &utils.Meta{
		Pagination: utils.CreatePaginationMeta(params, total),
	})
}

// ListOutgoing handles GET /api/v1/swaps/outgoing
func (h *SwapHandler) ListOutgoing(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	params := utils.GetPaginationParams(c)
	requests, total, err := h.swapService.ListOutgoing(c.Request.Context(), userID, params)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponseWithMeta(c, "Outgoing swap requests retrieved", requests, &utils.Meta{
		Pagination: utils.CreatePaginationMeta(params, total),
	})
}
