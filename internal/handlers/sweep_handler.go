package handlers

import (
	"busfleet/internal/services"
	"busfleet/internal/utils"
	"busfleet/pkg/logger"

	"github.com/gin-gonic/gin"
)

type SweepHandler struct {
	sweepService services.SweepService
	logger       *logger.Logger
}

func NewSweepHandler(sweepService services.SweepService, log *logger.Logger) *SweepHandler {
	return &SweepHandler{
		sweepService: sweepService,
		logger:       log,
	}
}

// RunSweep handles POST /api/v1/admin/sweep. External schedulers hit this
// when the built-in ticker is disabled. Runs are idempotent, so overlapping
// triggers are harmless.
func (h *SweepHandler) RunSweep(c *gin.Context) {
	report, err := h.sweepService.Run(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Sweep completed", report)
}
