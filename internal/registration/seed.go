package registration

import (
	"time"

	"ms-registration/internal/models"
)

// SeedEvents returns a fresh copy of the built-in event list.
func SeedEvents() []models.Event {
	return []models.Event{
		{ID: 1, Name: "Tech Innovation Summit 2025", Date: models.NewDate(2025, time.September, 15), Venue: "Main Auditorium", Slots: 150},
		{ID: 2, Name: "Career Fair & Networking", Date: models.NewDate(2025, time.September, 22), Venue: "Student Center", Slots: 200},
		{ID: 3, Name: "International Cultural Festival", Date: models.NewDate(2025, time.October, 5), Venue: "Campus Grounds", Slots: 300},
		{ID: 4, Name: "Academic Excellence Awards", Date: models.NewDate(2025, time.October, 12), Venue: "Conference Hall", Slots: 100},
		{ID: 5, Name: "Sports Day Championship", Date: models.NewDate(2025, time.October, 20), Venue: "Sports Complex", Slots: 250},
		{ID: 6, Name: "Alumni Networking Dinner", Date: models.NewDate(2025, time.September, 8), Venue: "Grand Ballroom", Slots: 0},
	}
}
