// Package notifier keeps the transient messages shown after user actions.
// Messages expire on their own; nothing here is persisted.
package notifier

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"ms-registration/internal/models"
	"ms-registration/internal/utils"
)

type Notifier struct {
	cache           *cache.Cache
	messageTTL      time.Duration
	confirmationTTL time.Duration
}

// New creates a notifier. Success and error messages live for messageTTL,
// registration confirmations for confirmationTTL.
func New(messageTTL, confirmationTTL time.Duration) *Notifier {
	return &Notifier{
		cache:           cache.New(messageTTL, 2*max(messageTTL, confirmationTTL)),
		messageTTL:      messageTTL,
		confirmationTTL: confirmationTTL,
	}
}

func (n *Notifier) Success(text string) models.Message {
	return n.add(models.MessageSuccess, text, n.messageTTL)
}

func (n *Notifier) Error(text string) models.Message {
	return n.add(models.MessageError, text, n.messageTTL)
}

// Confirmation posts the registration confirmation panel text.
func (n *Notifier) Confirmation(c models.Confirmation) models.Message {
	text := fmt.Sprintf("%s (%s) is registered for %s. Registration #%d on %s.",
		c.StudentName, c.StudentID, c.EventName, c.RegistrationID, utils.FormatLongDate(c.RegistrationDate))
	return n.add(models.MessageConfirmation, text, n.confirmationTTL)
}

func (n *Notifier) add(kind models.MessageType, text string, ttl time.Duration) models.Message {
	now := time.Now()
	msg := models.Message{
		ID:        uuid.NewString(),
		Type:      kind,
		Text:      text,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	n.cache.Set(msg.ID, msg, ttl)
	return msg
}

// Active returns the unexpired messages, oldest first.
func (n *Notifier) Active() []models.Message {
	items := n.cache.Items()
	messages := make([]models.Message, 0, len(items))
	for _, item := range items {
		if msg, ok := item.Object.(models.Message); ok {
			messages = append(messages, msg)
		}
	}
	slices.SortFunc(messages, func(a, b models.Message) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return messages
}

// Dismiss removes one message before it expires.
func (n *Notifier) Dismiss(id string) {
	n.cache.Delete(id)
}

func (n *Notifier) Clear() {
	n.cache.Flush()
}
