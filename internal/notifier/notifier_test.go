package notifier

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-registration/internal/models"
)

func TestNotifier_ActiveOrder(t *testing.T) {
	n := New(time.Minute, time.Minute)

	first := n.Success("Registration saved")
	time.Sleep(time.Millisecond)
	second := n.Error("Event is fully booked")

	active := n.Active()
	require.Len(t, active, 2)
	assert.Equal(t, first.ID, active[0].ID)
	assert.Equal(t, models.MessageSuccess, active[0].Type)
	assert.Equal(t, second.ID, active[1].ID)
	assert.Equal(t, models.MessageError, active[1].Type)
}

func TestNotifier_Expiry(t *testing.T) {
	n := New(50*time.Millisecond, time.Minute)

	n.Error("short lived")
	confirmation := n.Confirmation(models.Confirmation{
		StudentName:      "Jane Doe",
		StudentID:        "665437",
		EventName:        "Career Fair & Networking",
		RegistrationID:   1756717200000,
		RegistrationDate: time.Date(2025, time.September, 1, 9, 0, 0, 0, time.UTC),
	})

	time.Sleep(120 * time.Millisecond)

	active := n.Active()
	require.Len(t, active, 1)
	assert.Equal(t, confirmation.ID, active[0].ID)
	assert.Equal(t, models.MessageConfirmation, active[0].Type)
	assert.Contains(t, active[0].Text, "Monday, September 1, 2025")
	assert.Contains(t, active[0].Text, "#1756717200000")
}

func TestNotifier_DismissAndClear(t *testing.T) {
	n := New(time.Minute, time.Minute)

	msg := n.Success("one")
	n.Success("two")
	n.Dismiss(msg.ID)
	assert.Len(t, n.Active(), 1)

	n.Clear()
	assert.Empty(t, n.Active())
}
