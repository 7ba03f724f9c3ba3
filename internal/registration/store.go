package registration

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"ms-registration/internal/logger"
	"ms-registration/internal/models"
	"ms-registration/internal/storage"
	"ms-registration/internal/utils"
)

// Persistence is the record store the Store saves through.
type Persistence interface {
	LoadEvents(ctx context.Context) ([]models.Event, bool, error)
	SaveEvents(ctx context.Context, events []models.Event) error
	LoadRegistrations(ctx context.Context) ([]models.Registration, bool, error)
	SaveRegistrations(ctx context.Context, regs []models.Registration) error
	Clear(ctx context.Context) error
}

// Publisher announces registrations to other services.
type Publisher interface {
	PublishRegistrationCreated(ctx context.Context, event models.RegistrationCreatedEvent) error
}

// Metrics records registration outcomes and remaining capacity.
type Metrics interface {
	ObserveRegistration(outcome string)
	SetSlotsRemaining(event models.Event)
}

// Store is the single source of truth for events and registrations. Every
// operation holds the store lock until it completes, so callers never observe
// a half-applied registration.
type Store struct {
	DB        Persistence
	Publisher Publisher
	Metrics   Metrics
	Logger    *logger.Logger

	mu            sync.Mutex
	now           func() time.Time
	initialized   bool
	events        []models.Event
	registrations []models.Registration
	orphans       []models.Registration
	lastID        int64
}

// NewStore builds an uninitialized store. publisher and metrics may be nil.
func NewStore(db Persistence, publisher Publisher, metrics Metrics, log *logger.Logger) *Store {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Store{
		DB:        db,
		Publisher: publisher,
		Metrics:   metrics,
		Logger:    log,
		now:       time.Now,
	}
}

// WithClock replaces the time source used for registration ids and timestamps.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
	return s
}

// Initialize loads both records. When no events record exists the built-in
// seed list is stored first.
func (s *Store) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	events, found, err := s.DB.LoadEvents(ctx)
	if err != nil {
		return storageError("load events", err)
	}
	if !found {
		events = SeedEvents()
		if err := s.DB.SaveEvents(ctx, events); err != nil {
			return storageError("seed events", err)
		}
		s.Logger.Info("STORE", fmt.Sprintf("Seeded %d built-in events", len(events)))
	}

	regs, found, err := s.DB.LoadRegistrations(ctx)
	if err != nil {
		return storageError("load registrations", err)
	}
	if !found {
		regs = []models.Registration{}
	}

	s.events = events
	s.registrations = regs
	s.orphans = s.findOrphans()
	s.lastID = 0
	for _, r := range regs {
		s.lastID = max(s.lastID, r.ID)
	}
	s.initialized = true

	for _, o := range s.orphans {
		s.Logger.Warn("INTEGRITY", fmt.Sprintf("Registration %d references missing event %d (%s)", o.ID, o.EventID, o.EventName))
	}
	if s.Metrics != nil {
		for _, e := range s.events {
			s.Metrics.SetSlotsRemaining(e)
		}
	}

	s.Logger.Info("STORE", fmt.Sprintf("Loaded %d events and %d registrations", len(s.events), len(s.registrations)))
	return nil
}

func (s *Store) findOrphans() []models.Registration {
	var orphans []models.Registration
	for _, r := range s.registrations {
		if s.indexOf(r.EventID) < 0 {
			orphans = append(orphans, r)
		}
	}
	return orphans
}

func storageError(op string, err error) error {
	var schemaErr *storage.SchemaError
	if errors.As(err, &schemaErr) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return &PersistenceError{Op: op, Err: err}
}

// Initialized reports whether Initialize has succeeded since the last reset.
func (s *Store) Initialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialized
}

// ListEvents returns all events in insertion order.
func (s *Store) ListEvents() []models.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.events)
}

// ListRegistrableEvents yields events that still have slots, in order. Each
// iteration reads the current state, so the sequence can be ranged over again.
func (s *Store) ListRegistrableEvents() iter.Seq[models.Event] {
	return func(yield func(models.Event) bool) {
		for _, e := range s.ListEvents() {
			if !e.Registrable() {
				continue
			}
			if !yield(e) {
				return
			}
		}
	}
}

// FindEvent returns the event with id or ErrEventNotFound.
func (s *Store) FindEvent(id int) (models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return models.Event{}, fmt.Errorf("%w: %d", ErrEventNotFound, id)
	}
	return s.events[idx], nil
}

// ListRegistrations returns all registrations in creation order.
func (s *Store) ListRegistrations() []models.Registration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.registrations)
}

// FindRegistration looks a registration up by id.
func (s *Store) FindRegistration(id int64) (models.Registration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.registrations {
		if r.ID == id {
			return r, true
		}
	}
	return models.Registration{}, false
}

// OrphanedRegistrations lists registrations whose event was missing at load time.
func (s *Store) OrphanedRegistrations() []models.Registration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.orphans)
}

// PrepareRegistration backs the "Register" button of the events table: it
// returns the event to pre-select in the form and never mutates anything.
func (s *Store) PrepareRegistration(eventID int) (models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return models.Event{}, ErrNotInitialized
	}
	idx := s.indexOf(eventID)
	if idx < 0 {
		return models.Event{}, fmt.Errorf("%w: %d", ErrEventNotFound, eventID)
	}
	if !s.events[idx].Registrable() {
		return models.Event{}, fmt.Errorf("%w: %s", ErrEventFullyBooked, s.events[idx].Name)
	}
	return s.events[idx], nil
}

// RegisterStudent books one slot of eventID for the student. Either the slot
// decrement and the new registration are both applied and persisted, or
// nothing changes.
//
// A fully booked target event is reported ahead of input errors. The
// registration is published after the store lock is released.
func (s *Store) RegisterStudent(ctx context.Context, studentName, studentID string, eventID int) (models.Registration, error) {
	reg, created, err := s.registerLocked(ctx, studentName, studentID, eventID)
	if err != nil {
		s.Logger.Warn("REGISTER", fmt.Sprintf("Registration of %q for event %d rejected: %v", strings.TrimSpace(studentID), eventID, err))
		return models.Registration{}, err
	}

	if s.Publisher != nil {
		if err := s.Publisher.PublishRegistrationCreated(ctx, created); err != nil {
			s.Logger.Error("KAFKA", fmt.Sprintf("Failed to publish registration %d: %v", reg.ID, err))
		}
	}
	return reg, nil
}

func (s *Store) registerLocked(ctx context.Context, studentName, studentID string, eventID int) (models.Registration, models.RegistrationCreatedEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reg, created, err := s.register(ctx, studentName, studentID, eventID)
	if s.Metrics != nil {
		s.Metrics.ObserveRegistration(Outcome(err))
	}
	return reg, created, err
}

func (s *Store) register(ctx context.Context, studentName, studentID string, eventID int) (models.Registration, models.RegistrationCreatedEvent, error) {
	if !s.initialized {
		return models.Registration{}, models.RegistrationCreatedEvent{}, ErrNotInitialized
	}

	studentName = strings.TrimSpace(studentName)
	studentID = strings.TrimSpace(studentID)

	idx := s.indexOf(eventID)
	if idx >= 0 && !s.events[idx].Registrable() {
		return models.Registration{}, models.RegistrationCreatedEvent{}, fmt.Errorf("%w: %s", ErrEventFullyBooked, s.events[idx].Name)
	}
	if violations := ValidateRegistrationInput(studentName, studentID, strconv.Itoa(eventID)); len(violations) > 0 {
		return models.Registration{}, models.RegistrationCreatedEvent{}, &ValidationError{Violations: violations}
	}
	if idx < 0 {
		return models.Registration{}, models.RegistrationCreatedEvent{}, fmt.Errorf("%w: %d", ErrEventNotFound, eventID)
	}
	if s.isRegistered(studentID, eventID) {
		return models.Registration{}, models.RegistrationCreatedEvent{}, fmt.Errorf("%w: student %s, event %s", ErrDuplicateRegistration, studentID, s.events[idx].Name)
	}

	prevEvents := slices.Clone(s.events)
	prevRegs := s.registrations
	prevLastID := s.lastID

	now := s.now().UTC().Truncate(time.Millisecond)
	reg := models.Registration{
		ID:               utils.NextRegistrationID(now, s.lastID),
		StudentName:      studentName,
		StudentID:        studentID,
		EventID:          eventID,
		EventName:        s.events[idx].Name,
		RegistrationDate: now,
	}

	s.events[idx].Slots--
	s.registrations = append(slices.Clip(s.registrations), reg)
	s.lastID = reg.ID

	rollback := func() {
		s.events = prevEvents
		s.registrations = prevRegs
		s.lastID = prevLastID
	}

	if err := s.DB.SaveEvents(ctx, s.events); err != nil {
		rollback()
		return models.Registration{}, models.RegistrationCreatedEvent{}, &PersistenceError{Op: "save events", Err: err}
	}
	if err := s.DB.SaveRegistrations(ctx, s.registrations); err != nil {
		rollback()
		if restoreErr := s.DB.SaveEvents(ctx, prevEvents); restoreErr != nil {
			s.Logger.Error("STORE", fmt.Sprintf("Failed to restore events record after registration save failure: %v", restoreErr))
		}
		return models.Registration{}, models.RegistrationCreatedEvent{}, &PersistenceError{Op: "save registrations", Err: err}
	}

	event := s.events[idx]
	s.Logger.LogRegistration("CREATE", reg.ID, fmt.Sprintf("%s (%s) registered for %s, %d slots left", reg.StudentName, reg.StudentID, reg.EventName, event.Slots))

	if s.Metrics != nil {
		s.Metrics.SetSlotsRemaining(event)
	}

	return reg, models.NewRegistrationCreatedEvent(reg, event.Slots), nil
}

// ResetAll deletes both records and returns the store to the uninitialized
// state. Callers run Initialize again afterwards.
func (s *Store) ResetAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.DB.Clear(ctx); err != nil {
		return &PersistenceError{Op: "clear records", Err: err}
	}

	s.events = nil
	s.registrations = nil
	s.orphans = nil
	s.lastID = 0
	s.initialized = false
	if r, ok := s.Metrics.(interface{ Reset() }); ok {
		r.Reset()
	}

	s.Logger.Warn("STORE", "All events and registrations were reset")
	return nil
}

func (s *Store) indexOf(eventID int) int {
	return slices.IndexFunc(s.events, func(e models.Event) bool { return e.ID == eventID })
}

func (s *Store) isRegistered(studentID string, eventID int) bool {
	return slices.ContainsFunc(s.registrations, func(r models.Registration) bool {
		return r.StudentID == studentID && r.EventID == eventID
	})
}
