// services/reminder_service.go
package services

import (
	"fmt"
	"log"
	"os"
	"time"

	"garagehub-backend/models"

	"github.com/robfig/cron/v3"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"gorm.io/gorm"
)

type ReminderService struct {
	db     *gorm.DB
	client *twilio.RestClient
}

func NewReminderService(db *gorm.DB) *ReminderService {
	// Initialize Twilio client
	accountSid := os.Getenv("TWILIO_ACCOUNT_SID")
	authToken := os.Getenv("TWILIO_AUTH_TOKEN")

	return &ReminderService{
		db: db,
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: accountSid,
			Password: authToken,
		}),
	}
}

func (s *ReminderService) StartScheduler() {
	c := cron.New()

	// Run every day at 8 AM
	c.AddFunc("0 8 * * *", s.SendBookingReminders)

	c.Start()
	log.Println("Booking reminder scheduler started")
}

// SendBookingReminders texts car owners about tomorrow's approved
// bookings. Send failures are logged per booking, never propagated.
func (s *ReminderService) SendBookingReminders() {
	log.Println("Starting daily booking reminder processing...")

	tomorrow := time.Now().AddDate(0, 0, 1).Format("2006-01-02")

	var bookings []models.Booking
	if err := s.db.Where("date = ? AND status = ?", tomorrow, models.BookingStatusApproved).
		Find(&bookings).Error; err != nil {
		log.Printf("Failed to fetch bookings for reminders: %v", err)
		return
	}

	for _, booking := range bookings {
		var user models.User
		if err := s.db.First(&user, "id = ?", booking.CarOwnerID).Error; err != nil {
			log.Printf("Reminder skipped, owner not found for booking %s", booking.ID)
			continue
		}
		if user.Phone == "" {
			continue
		}

		var garage models.Garage
		if err := s.db.First(&garage, "id = ?", booking.GarageID).Error; err != nil {
			continue
		}

		message := fmt.Sprintf(
			"Hi %s, reminder: your booking at %s is tomorrow (%s) from %s to %s.",
			user.Name, garage.Name, booking.Date, booking.StartTime, booking.EndTime,
		)
		if err := s.sendSMS(user.Phone, message); err != nil {
			log.Printf("Failed to send reminder for booking %s: %v", booking.ID, err)
		}
	}
}

func (s *ReminderService) sendSMS(to, body string) error {
	from := os.Getenv("TWILIO_PHONE_NUMBER")
	if from == "" {
		return fmt.Errorf("TWILIO_PHONE_NUMBER not set")
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(from)
	params.SetBody(body)

	_, err := s.client.Api.CreateMessage(params)
	return err
}
