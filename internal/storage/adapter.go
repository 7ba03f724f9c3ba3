package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"ms-registration/internal/models"
)

// Record names. The stored key is "<prefix>-<record>".
const (
	RecordEvents        = "events"
	RecordRegistrations = "registrations"
)

// Adapter converts the two collections to and from their named records.
// It holds no copy of the data.
type Adapter struct {
	kv               KV
	eventsKey        string
	registrationsKey string
}

func NewAdapter(kv KV, keyPrefix string) *Adapter {
	return &Adapter{
		kv:               kv,
		eventsKey:        recordKey(keyPrefix, RecordEvents),
		registrationsKey: recordKey(keyPrefix, RecordRegistrations),
	}
}

func recordKey(prefix, record string) string {
	if prefix == "" {
		return record
	}
	return prefix + "-" + record
}

// Keys returns the events and registrations keys.
func (a *Adapter) Keys() (string, string) {
	return a.eventsKey, a.registrationsKey
}

// LoadEvents reports found=false when no events record exists.
func (a *Adapter) LoadEvents(ctx context.Context) ([]models.Event, bool, error) {
	data, found, err := a.kv.Get(ctx, a.eventsKey)
	if err != nil || !found {
		return nil, false, err
	}
	events, err := DecodeEvents(data)
	if err != nil {
		return nil, true, err
	}
	return events, true, nil
}

func (a *Adapter) SaveEvents(ctx context.Context, events []models.Event) error {
	return a.save(ctx, a.eventsKey, events)
}

// LoadRegistrations reports found=false when no registrations record exists.
func (a *Adapter) LoadRegistrations(ctx context.Context) ([]models.Registration, bool, error) {
	data, found, err := a.kv.Get(ctx, a.registrationsKey)
	if err != nil || !found {
		return nil, false, err
	}
	regs, err := DecodeRegistrations(data)
	if err != nil {
		return nil, true, err
	}
	return regs, true, nil
}

func (a *Adapter) SaveRegistrations(ctx context.Context, regs []models.Registration) error {
	return a.save(ctx, a.registrationsKey, regs)
}

// Clear removes both records.
func (a *Adapter) Clear(ctx context.Context) error {
	return a.kv.Delete(ctx, a.eventsKey, a.registrationsKey)
}

func (a *Adapter) save(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return a.kv.Set(ctx, key, data)
}
