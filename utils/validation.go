// utils/validation.go
package utils

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ValidatePhone checks if a phone number is in a valid international format
func ValidatePhone(phone string) bool {
	// Clean the phone number
	cleaned := strings.ReplaceAll(phone, " ", "")
	cleaned = strings.ReplaceAll(cleaned, "-", "")
	cleaned = strings.ReplaceAll(cleaned, "(", "")
	cleaned = strings.ReplaceAll(cleaned, ")", "")

	// Regular expression for international phone numbers
	// Allows + prefix followed by 7-15 digits
	regex := `^\+?[1-9]\d{1,14}$`
	match, _ := regexp.MatchString(regex, cleaned)
	return match
}

var timeOfDayRegex = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// ValidateTimeOfDay checks a zero-padded HH:MM string.
func ValidateTimeOfDay(t string) bool {
	return timeOfDayRegex.MatchString(t)
}

// MinuteOfDay converts a zero-padded HH:MM string to minutes since midnight.
// Returns -1 for malformed input.
func MinuteOfDay(t string) int {
	if !ValidateTimeOfDay(t) {
		return -1
	}
	h, _ := strconv.Atoi(t[0:2])
	m, _ := strconv.Atoi(t[3:5])
	return h*60 + m
}

// ValidateDate checks a YYYY-MM-DD calendar date string.
func ValidateDate(d string) bool {
	_, err := time.Parse("2006-01-02", d)
	return err == nil
}

// ValidateCoordinates checks a longitude/latitude pair range.
func ValidateCoordinates(longitude, latitude float64) bool {
	return longitude >= -180 && longitude <= 180 && latitude >= -90 && latitude <= 90
}
