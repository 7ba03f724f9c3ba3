package registration_api

import (
	"ms-registration/internal/models"
	"ms-registration/internal/utils"
)

const (
	ButtonRegister    = "Register"
	ButtonFullyBooked = "Fully Booked"
)

// EventView is one row of the events table.
type EventView struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Date        string `json:"date"`
	DisplayDate string `json:"display_date"`
	Venue       string `json:"venue"`
	Slots       int    `json:"slots"`
	Registrable bool   `json:"registrable"`
	ButtonLabel string `json:"button_label"`
}

func NewEventView(e models.Event) EventView {
	label := ButtonRegister
	if !e.Registrable() {
		label = ButtonFullyBooked
	}
	return EventView{
		ID:          e.ID,
		Name:        e.Name,
		Date:        e.Date.String(),
		DisplayDate: utils.FormatEventDate(e.Date.Time),
		Venue:       e.Venue,
		Slots:       e.Slots,
		Registrable: e.Registrable(),
		ButtonLabel: label,
	}
}

// EventOption is one entry of the registration form's event dropdown.
type EventOption struct {
	Value int    `json:"value"`
	Label string `json:"label"`
}

// PrefillView tells the form which event to pre-select.
type PrefillView struct {
	SelectedEvent int    `json:"selected_event"`
	EventName     string `json:"event_name"`
}

// RegistrationResult is returned after a successful submission.
type RegistrationResult struct {
	Registration     models.Registration `json:"registration"`
	Confirmation     models.Confirmation `json:"confirmation"`
	ConfirmationCode string              `json:"confirmation_code,omitempty"`
	DisplayDate      string              `json:"display_date"`
}
