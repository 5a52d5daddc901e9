package services

import (
	"testing"

	"garagehub-backend/models"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// newTestDB opens an in-memory sqlite database with the full schema.
// A single connection keeps concurrent transactions serialized, which
// makes the double-booking tests deterministic.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&models.User{},
		&models.Garage{},
		&models.Service{},
		&models.Booking{},
		&models.Review{},
		&models.Payment{},
		&models.RateLimit{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	for _, ddl := range []string{models.BookingConflictIndex, models.ReviewBookingIndex} {
		if err := db.Exec(ddl).Error; err != nil {
			t.Fatalf("create index: %v", err)
		}
	}
	return db
}

func testBusinessHours() models.BusinessHours {
	hours := models.BusinessHours{}
	for _, day := range []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday"} {
		hours[day] = models.DayHours{Open: "09:00", Close: "18:00"}
	}
	hours["sunday"] = models.DayHours{Closed: true}
	return hours
}

func seedGarage(t *testing.T, db *gorm.DB, status string) *models.Garage {
	t.Helper()
	garage := &models.Garage{
		OwnerID:       uuid.New(),
		Name:          "Bole Auto Care",
		Address:       "Bole Road 12",
		City:          "Addis Ababa",
		Status:        status,
		BusinessHours: testBusinessHours(),
	}
	if err := db.Create(garage).Error; err != nil {
		t.Fatalf("seed garage: %v", err)
	}
	return garage
}

func seedService(t *testing.T, db *gorm.DB, garageID uuid.UUID, duration int) *models.Service {
	t.Helper()
	service := &models.Service{
		GarageID:    garageID,
		Name:        "Oil Change",
		Price:       750,
		Duration:    duration,
		IsAvailable: true,
	}
	if err := db.Create(service).Error; err != nil {
		t.Fatalf("seed service: %v", err)
	}
	return service
}

// 2030-06-03 is a Monday, 2030-06-09 a Sunday; fixed dates keep the
// weekday lookup stable.
const (
	testMonday = "2030-06-03"
	testSunday = "2030-06-09"
)

func seedBooking(t *testing.T, db *gorm.DB, garage *models.Garage, service *models.Service, start, end string) *models.Booking {
	t.Helper()
	booking, err := NewBookingService(db).Create(CreateBookingInput{
		CarOwnerID: uuid.New(),
		GarageID:   garage.ID,
		ServiceID:  service.ID,
		Date:       testMonday,
		StartTime:  start,
		EndTime:    end,
		Vehicle:    models.VehicleInfo{Make: "Toyota", Model: "Corolla", Year: 2018},
	})
	if err != nil {
		t.Fatalf("seed booking: %v", err)
	}
	return booking
}

func reloadGarage(t *testing.T, db *gorm.DB, id uuid.UUID) *models.Garage {
	t.Helper()
	var garage models.Garage
	if err := db.First(&garage, "id = ?", id).Error; err != nil {
		t.Fatalf("reload garage: %v", err)
	}
	return &garage
}
