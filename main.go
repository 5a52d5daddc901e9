package main

import (
	"fmt"
	"log"
	"os"

	"garagehub-backend/config"
	"garagehub-backend/controllers"
	"garagehub-backend/models"
	"garagehub-backend/routes"
	"garagehub-backend/services"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func init() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
	config.ConnectDB()

	config.DB.AutoMigrate(
		&models.User{},
		&models.Garage{},
		&models.Service{},
		&models.Booking{},
		&models.Review{},
		&models.Payment{},
		&models.RateLimit{},
	)

	// Partial unique indexes backing the double-booking and
	// one-review-per-booking guards
	for _, ddl := range []string{models.BookingConflictIndex, models.ReviewBookingIndex} {
		if err := config.DB.Exec(ddl).Error; err != nil {
			log.Printf("Failed to create index: %v", err)
		}
	}
}

func main() {
	controllers.Gateway = services.NewChapaClientFromEnv()

	services.NewReminderService(config.DB).StartScheduler()
	services.NewPaymentService(config.DB, controllers.Gateway).StartVerificationPoller()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	r := routes.SetupRouter()
	printRoutes(r)
	r.Run(":" + port)
}

func printRoutes(r *gin.Engine) {
	routes := r.Routes()
	for _, route := range routes {
		fmt.Printf("%-6s %s\n", route.Method, route.Path)
	}
}
