package routes

import (
	"net/http"
	"time"

	"servana/handlers"
	"servana/middleware"
	"servana/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterAvailabilityRoutes registers slot and template endpoints.
func RegisterAvailabilityRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/availability")
	{
		api.Use(middleware.JWTAuthMiddleware())
		api.PUT("/weekly", middleware.RequireRole("provider"), hb.SetAvailabilityHandler)
		api.POST("/slots/generate", middleware.RequireRole("provider"), hb.GenerateTimeSlotsHandler)
		api.GET("/slots/:providerID", hb.GetAvailableTimeSlotsHandler)
		api.GET("/schedule/:providerID", hb.GetWeeklyScheduleHandler)
		api.POST("/slots/:slotID/book", hb.BookTimeSlotHandler)
		api.POST("/slots/:slotID/release", hb.ReleaseTimeSlotHandler)
	}
}

// RegisterBookingRoutes sets up the endpoints for the booking lifecycle.
func RegisterBookingRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/bookings")
	{
		api.Use(middleware.JWTAuthMiddleware())
		api.POST("", hb.CreateBookingHandler)
		api.GET("", hb.ListBookingsHandler)
		api.GET("/:bookingID", hb.GetBookingHandler)
		api.PATCH("/:bookingID/status", hb.UpdateBookingStatusHandler)
		api.POST("/:bookingID/accept", middleware.RequireRole("provider"), hb.AcceptBookingHandler)
		api.POST("/:bookingID/decline", middleware.RequireRole("provider"), hb.DeclineBookingHandler)
		api.POST("/:bookingID/cancel", hb.CancelBookingHandler)
		api.POST("/:bookingID/reschedule", hb.RescheduleBookingHandler)
	}
}

// RegisterEscrowRoutes registers earnings, withdrawal and dispute endpoints.
func RegisterEscrowRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/escrow")
	{
		api.Use(middleware.JWTAuthMiddleware())
		api.GET("/earnings", middleware.RequireRole("provider"), hb.GetEarningsOverviewHandler)
		api.POST("/withdrawals", middleware.RequireRole("provider"), hb.RequestWithdrawalHandler)
		api.POST("/:bookingID/early-release", middleware.RequireRole("provider"), hb.RequestEarlyReleaseHandler)
		api.POST("/:bookingID/dispute", hb.DisputePaymentHandler)
	}
}

// RegisterPolicyRoutes registers policy management and evaluation previews.
func RegisterPolicyRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/policies")
	{
		api.Use(middleware.JWTAuthMiddleware())
		api.POST("", middleware.RequireRole("admin"), hb.CreatePolicyHandler)
		api.GET("/cancellation/:bookingID", hb.EvaluateCancellationHandler)
		api.POST("/rescheduling/:bookingID", hb.EvaluateReschedulingHandler)
	}
}

// RegisterWaitlistRoutes registers waitlist endpoints.
func RegisterWaitlistRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/waitlist")
	{
		api.Use(middleware.JWTAuthMiddleware())
		api.POST("", hb.JoinWaitlistHandler)
		api.POST("/:waitlistID/notify", middleware.RequireRole("admin"), hb.NotifyWaitlistHandler)
		api.POST("/:waitlistID/convert", hb.ConvertWaitlistHandler)
		api.DELETE("/:waitlistID", hb.LeaveWaitlistHandler)
	}
}

// RegisterNotificationRoutes registers the notification inbox.
func RegisterNotificationRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/notifications")
	{
		api.Use(middleware.JWTAuthMiddleware())
		api.GET("", hb.ListNotificationsHandler)
	}
}

// RegisterWebhookRoutes registers gateway callbacks. Signature verification
// replaces JWT auth here.
func RegisterWebhookRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.POST("/api/webhooks/gateway", hb.GatewayWebhookHandler)
}

// RegisterTaskRoutes registers the admin task trigger.
func RegisterTaskRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/tasks")
	{
		api.Use(middleware.JWTAuthMiddleware(), middleware.RequireRole("admin"))
		api.POST("/:name", hb.RunTaskHandler)
	}
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Hi, I'm Servana"})
	})
}

// SetupRouter builds the engine with the global middleware chain and all
// route groups.
func SetupRouter(hb *handlers.HandlerBundle) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(utils.ErrorHandler())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	r.Use(middleware.RateLimitMiddleware())
	r.Use(gin.Logger())

	RegisterHealthRoute(r)
	RegisterAvailabilityRoutes(r, hb)
	RegisterBookingRoutes(r, hb)
	RegisterEscrowRoutes(r, hb)
	RegisterPolicyRoutes(r, hb)
	RegisterWaitlistRoutes(r, hb)
	RegisterNotificationRoutes(r, hb)
	RegisterWebhookRoutes(r, hb)
	RegisterTaskRoutes(r, hb)

	return r
}
