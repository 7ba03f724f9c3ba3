package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Registration binds one student to one event. It is immutable once created.
type Registration struct {
	ID               int64     `json:"id"`
	StudentName      string    `json:"studentName"`
	StudentID        string    `json:"studentId"`
	EventID          int       `json:"eventId"`
	EventName        string    `json:"eventName"`
	RegistrationDate time.Time `json:"registrationDate"`
}

// RegistrationRequest is the registration form payload.
type RegistrationRequest struct {
	StudentName   string         `json:"studentName"`
	StudentID     string         `json:"studentId"`
	SelectedEvent EventSelection `json:"selectedEvent"`
}

// EventSelection is the raw event choice of the form. It accepts a JSON
// string or number so that an empty or non-numeric selection is reported as a
// validation error rather than a decode failure.
type EventSelection string

func (e *EventSelection) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*e = ""
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*e = EventSelection(s)
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("selectedEvent must be a string or number: %w", err)
		}
		*e = EventSelection(n.String())
		return nil
	}
}

// RegistrationCreatedEvent is published after a registration is persisted.
type RegistrationCreatedEvent struct {
	RegistrationID int64     `json:"registration_id"`
	StudentID      string    `json:"student_id"`
	StudentName    string    `json:"student_name"`
	EventID        int       `json:"event_id"`
	EventName      string    `json:"event_name"`
	SlotsRemaining int       `json:"slots_remaining"`
	RegisteredAt   time.Time `json:"registered_at"`
}

// NewRegistrationCreatedEvent builds the published payload for a registration.
func NewRegistrationCreatedEvent(reg Registration, slotsRemaining int) RegistrationCreatedEvent {
	return RegistrationCreatedEvent{
		RegistrationID: reg.ID,
		StudentID:      reg.StudentID,
		StudentName:    reg.StudentName,
		EventID:        reg.EventID,
		EventName:      reg.EventName,
		SlotsRemaining: slotsRemaining,
		RegisteredAt:   reg.RegistrationDate,
	}
}
