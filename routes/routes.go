package routes

import (
	"time"

	"garagehub-backend/config"
	"garagehub-backend/controllers"
	"garagehub-backend/models"
	"garagehub-backend/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func SetupRouter() *gin.Engine {
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type", "Chapa-Signature"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	r.Use(config.PerformanceLogger())

	auth := r.Group("/auth")
	{
		auth.POST("/register", controllers.Register)
		auth.POST("/login", config.RateLimit(10, time.Minute), controllers.Login)

		auth.Use(utils.AuthMiddleware())
		auth.GET("/me", controllers.Me)
	}

	// Public reads: availability checks, garage browsing, reviews.
	// Garage reads take an optional token so owners and admins see
	// non-active garages and the admin list filters.
	r.GET("/api/garages", utils.OptionalAuth(), controllers.GetGarages)
	r.GET("/api/garages/:id", utils.OptionalAuth(), controllers.GetGarage)
	r.GET("/api/garages/:id/services", controllers.GetServices)
	r.GET("/api/garages/:id/services/:serviceId", controllers.GetService)
	r.GET("/api/garages/:id/reviews", controllers.GetGarageReviews)
	r.GET("/api/bookings/availability", controllers.CheckAvailability)

	// Provider webhook authenticates by HMAC signature, not JWT
	r.POST("/api/payments/webhook", controllers.PaymentWebhook)

	api := r.Group("/api")
	api.Use(utils.AuthMiddleware())
	{
		// Garage routes
		garages := api.Group("/garages")
		{
			garages.POST("", utils.RequireRoles(models.RoleGarageOwner, models.RoleAdmin), controllers.CreateGarage)
			garages.PUT("/:id", controllers.UpdateGarage)
			garages.DELETE("/:id", controllers.DeleteGarage)
			garages.PUT("/:id/verify", utils.RequireRoles(models.RoleAdmin), controllers.VerifyGarage)
			garages.GET("/:id/stats", controllers.GetGarageStats)

			garages.POST("/:id/services", controllers.CreateService)
			garages.PUT("/:id/services/:serviceId", controllers.UpdateService)
			garages.DELETE("/:id/services/:serviceId", controllers.DeleteService)
		}

		// Booking routes
		bookings := api.Group("/bookings")
		{
			bookings.POST("", utils.RequireRoles(models.RoleCarOwner), controllers.CreateBooking)
			bookings.GET("", controllers.GetBookings)
			bookings.GET("/calendar", controllers.GetBookingCalendar)
			bookings.GET("/:id", controllers.GetBooking)
			bookings.PUT("/:id/status", utils.RequireRoles(models.RoleGarageOwner, models.RoleAdmin), controllers.UpdateBookingStatus)
			bookings.PUT("/:id/cancel", controllers.CancelBooking)
			bookings.DELETE("/:id", controllers.DeleteBooking)
			bookings.GET("/:id/timeline", controllers.GetBookingTimeline)
			bookings.POST("/:id/attachments", controllers.UploadAttachment)
			bookings.POST("/:id/payment", utils.RequireRoles(models.RoleCarOwner, models.RoleAdmin), controllers.InitiateBookingPayment)
		}

		// Review routes
		reviews := api.Group("/reviews")
		{
			reviews.POST("", utils.RequireRoles(models.RoleCarOwner), controllers.CreateReview)
			reviews.PUT("/:id", controllers.UpdateReview)
			reviews.DELETE("/:id", controllers.DeleteReview)
			reviews.POST("/:id/response", utils.RequireRoles(models.RoleGarageOwner, models.RoleAdmin), controllers.RespondToReview)
			reviews.PUT("/:id/response", utils.RequireRoles(models.RoleGarageOwner, models.RoleAdmin), controllers.UpdateReviewResponse)
			reviews.DELETE("/:id/response", utils.RequireRoles(models.RoleGarageOwner, models.RoleAdmin), controllers.WithdrawReviewResponse)
			reviews.POST("/:id/helpful", controllers.MarkReviewHelpful)
		}

		// Payment routes
		payments := api.Group("/payments")
		{
			payments.POST("/garage", utils.RequireRoles(models.RoleGarageOwner, models.RoleAdmin), controllers.InitiateGaragePayment)
			payments.GET("", controllers.GetPayments)
			payments.GET("/verify/:txRef", controllers.VerifyPayment)
			payments.POST("/refund/:txRef", utils.RequireRoles(models.RoleAdmin), controllers.RefundPayment)
		}

		// Admin user management
		users := api.Group("/users", utils.RequireRoles(models.RoleAdmin))
		{
			users.GET("", controllers.GetUsers)
			users.DELETE("/:id", controllers.DeleteUser)
		}
	}

	return r
}
