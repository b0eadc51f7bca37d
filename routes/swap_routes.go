package routes

import (
	"busfleet/internal/handlers"
	"busfleet/internal/middleware"

	"github.com/gin-gonic/gin"
)

// SetupSwapRoutes wires the driver swap endpoints.
func SetupSwapRoutes(
	r *gin.RouterGroup,
	jwtSecret string,
	swapHandler *handlers.SwapHandler,
	assignmentHandler *handlers.AssignmentHandler,
) {
	swaps := r.Group("/swaps")
	swaps.Use(middleware.AuthRequired(jwtSecret), middleware.DriverRequired())
	{
		swaps.POST("/", swapHandler.CreateSwapRequest)
		swaps.GET("/incoming", swapHandler.ListIncoming)
		swaps.GET("/outgoing", swapHandler.ListOutgoing)
		swaps.GET("/:id", swapHandler.GetSwapRequest)
		swaps.POST("/:id/accept", swapHandler.AcceptSwapRequest)
		swaps.POST("/:id/reject", swapHandler.RejectSwapRequest)
		swaps.POST("/:id/cancel", swapHandler.CancelSwapRequest)
	}

	assignments := r.Group("/assignments")
	assignments.Use(middleware.AuthRequired(jwtSecret))
	{
		assignments.GET("/active", assignmentHandler.GetMyActiveAssignment)
		assignments.GET("/:id", assignmentHandler.GetAssignment)
		assignments.POST("/:id/end", assignmentHandler.EndAssignment)
	}

	buses := r.Group("/buses")
	buses.Use(middleware.AuthRequired(jwtSecret))
	{
		buses.GET("/:busId/assignment", assignmentHandler.GetActiveForBus)
	}
}

// SetupAdminRoutes wires the moderation and operations endpoints.
func SetupAdminRoutes(
	r *gin.RouterGroup,
	jwtSecret string,
	swapHandler *handlers.SwapHandler,
	assignmentHandler *handlers.AssignmentHandler,
	fleetHandler *handlers.FleetHandler,
	sweepHandler *handlers.SweepHandler,
) {
	admin := r.Group("/admin")
	admin.Use(middleware.AuthRequired(jwtSecret), middleware.AdminRequired())
	{
		// The swaps group is driver-gated, so admin cancels live here.
		admin.POST("/swaps/:id/cancel", swapHandler.CancelSwapRequest)

		admin.POST("/assignments/:id/revert", assignmentHandler.RevertAssignment)
		admin.POST("/sweep", sweepHandler.RunSweep)

		admin.POST("/drivers", fleetHandler.RegisterDriver)
		admin.GET("/drivers", fleetHandler.ListDrivers)
		admin.PUT("/drivers/:id/status", fleetHandler.SetDriverStatus)

		admin.POST("/buses/assignments", fleetHandler.CreateBusAssignment)
	}
}

// SetupFleetRoutes wires the self-service driver endpoints.
func SetupFleetRoutes(
	r *gin.RouterGroup,
	jwtSecret string,
	fleetHandler *handlers.FleetHandler,
	notificationHandler *handlers.NotificationHandler,
) {
	drivers := r.Group("/drivers")
	drivers.Use(middleware.AuthRequired(jwtSecret))
	{
		drivers.GET("/:id", fleetHandler.GetDriver)
		drivers.POST("/me/device-tokens", fleetHandler.RegisterDeviceToken)
	}

	buses := r.Group("/buses")
	buses.Use(middleware.AuthRequired(jwtSecret))
	{
		buses.GET("/:busId/store-entry", fleetHandler.GetBusAssignment)
	}

	notifications := r.Group("/notifications")
	notifications.Use(middleware.AuthRequired(jwtSecret))
	{
		notifications.GET("/", notificationHandler.ListMyNotifications)
		notifications.PUT("/:id/read", notificationHandler.MarkNotificationRead)
	}
}
