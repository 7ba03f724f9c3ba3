package models

import "time"

// MessageType classifies a transient notification.
type MessageType string

const (
	MessageSuccess      MessageType = "success"
	MessageError        MessageType = "error"
	MessageConfirmation MessageType = "confirmation"
)

// Message is a transient notification shown to the user until it expires.
type Message struct {
	ID        string      `json:"id"`
	Type      MessageType `json:"type"`
	Text      string      `json:"text"`
	CreatedAt time.Time   `json:"created_at"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// Confirmation holds the details shown once a registration is confirmed.
type Confirmation struct {
	StudentName      string    `json:"student_name"`
	StudentID        string    `json:"student_id"`
	EventName        string    `json:"event_name"`
	RegistrationID   int64     `json:"registration_id"`
	RegistrationDate time.Time `json:"registration_date"`
}
