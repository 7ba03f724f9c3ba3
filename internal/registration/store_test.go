package registration_test

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ms-registration/internal/models"
	"ms-registration/internal/registration"
	"ms-registration/internal/storage"
)

const careerFairID = 2
const alumniDinnerID = 6

// MockPersistence is a testify mock of the persistence adapter.
type MockPersistence struct {
	mock.Mock
}

func (m *MockPersistence) LoadEvents(ctx context.Context) ([]models.Event, bool, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).([]models.Event), args.Bool(1), args.Error(2)
}

func (m *MockPersistence) SaveEvents(ctx context.Context, events []models.Event) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

func (m *MockPersistence) LoadRegistrations(ctx context.Context) ([]models.Registration, bool, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).([]models.Registration), args.Bool(1), args.Error(2)
}

func (m *MockPersistence) SaveRegistrations(ctx context.Context, regs []models.Registration) error {
	args := m.Called(ctx, regs)
	return args.Error(0)
}

func (m *MockPersistence) Clear(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockPublisher records published registrations.
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishRegistrationCreated(ctx context.Context, event models.RegistrationCreatedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func fixedClock() func() time.Time {
	t := time.Date(2025, time.September, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time { return t }
}

func setupStore(t *testing.T) (*registration.Store, *storage.Adapter) {
	t.Helper()
	adapter := storage.NewAdapter(storage.NewMemoryKV(), "usiu")
	store := registration.NewStore(adapter, nil, nil, nil)
	require.NoError(t, store.Initialize(context.Background()))
	return store, adapter
}

func slotsOf(t *testing.T, store *registration.Store, id int) int {
	t.Helper()
	event, err := store.FindEvent(id)
	require.NoError(t, err)
	return event.Slots
}

func TestInitialize_SeedsAndPersists(t *testing.T) {
	ctx := context.Background()
	store, adapter := setupStore(t)

	assert.Equal(t, registration.SeedEvents(), store.ListEvents())
	assert.Empty(t, store.ListRegistrations())

	persisted, found, err := adapter.LoadEvents(ctx)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, registration.SeedEvents(), persisted)
}

func TestInitialize_LoadsExistingRecords(t *testing.T) {
	ctx := context.Background()
	adapter := storage.NewAdapter(storage.NewMemoryKV(), "usiu")
	events := []models.Event{{ID: 9, Name: "Hackathon", Date: models.NewDate(2025, time.November, 1), Venue: "Lab 3", Slots: 2}}
	require.NoError(t, adapter.SaveEvents(ctx, events))

	store := registration.NewStore(adapter, nil, nil, nil)
	require.NoError(t, store.Initialize(ctx))

	assert.Equal(t, events, store.ListEvents())
}

func TestInitialize_ReportsOrphanedRegistrations(t *testing.T) {
	ctx := context.Background()
	adapter := storage.NewAdapter(storage.NewMemoryKV(), "usiu")
	require.NoError(t, adapter.SaveEvents(ctx, registration.SeedEvents()))
	orphan := models.Registration{
		ID: 1, StudentName: "Old Student", StudentID: "111111", EventID: 42,
		EventName: "Removed Event", RegistrationDate: time.Date(2025, time.August, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, adapter.SaveRegistrations(ctx, []models.Registration{orphan}))

	store := registration.NewStore(adapter, nil, nil, nil)
	require.NoError(t, store.Initialize(ctx))

	assert.Equal(t, []models.Registration{orphan}, store.OrphanedRegistrations())
	assert.Len(t, store.ListRegistrations(), 1)
}

func TestInitialize_SchemaError(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()
	require.NoError(t, kv.Set(ctx, "usiu-events", []byte(`[{"id":1,"name":"A","date":"2025-09-15","venue":"V","slots":-3}]`)))

	store := registration.NewStore(storage.NewAdapter(kv, "usiu"), nil, nil, nil)
	err := store.Initialize(ctx)

	var schemaErr *storage.SchemaError
	assert.ErrorAs(t, err, &schemaErr)
	assert.False(t, store.Initialized())
	assert.Equal(t, registration.OutcomeSchemaError, registration.Outcome(err))
}

func TestInitialize_PersistenceFailure(t *testing.T) {
	ctx := context.Background()
	db := new(MockPersistence)
	db.On("LoadEvents", ctx).Return(nil, false, errors.New("connection refused"))

	store := registration.NewStore(db, nil, nil, nil)
	err := store.Initialize(ctx)

	var persistenceErr *registration.PersistenceError
	require.ErrorAs(t, err, &persistenceErr)
	assert.Equal(t, "load events", persistenceErr.Op)
	assert.False(t, store.Initialized())
}

// Scenario A
func TestRegisterStudent_DecrementsSlots(t *testing.T) {
	ctx := context.Background()
	store, adapter := setupStore(t)
	store.WithClock(fixedClock())

	assert.Equal(t, 200, slotsOf(t, store, careerFairID))

	reg, err := store.RegisterStudent(ctx, "Jane Doe", "665437", careerFairID)
	require.NoError(t, err)

	assert.Equal(t, 199, slotsOf(t, store, careerFairID))
	assert.Equal(t, "Jane Doe", reg.StudentName)
	assert.Equal(t, "665437", reg.StudentID)
	assert.Equal(t, careerFairID, reg.EventID)
	assert.Equal(t, "Career Fair & Networking", reg.EventName)
	assert.Equal(t, fixedClock()().UnixMilli(), reg.ID)
	assert.Equal(t, fixedClock()(), reg.RegistrationDate)
	assert.Equal(t, []models.Registration{reg}, store.ListRegistrations())

	persistedEvents, _, err := adapter.LoadEvents(ctx)
	require.NoError(t, err)
	assert.Equal(t, store.ListEvents(), persistedEvents)
	persistedRegs, _, err := adapter.LoadRegistrations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.Registration{reg}, persistedRegs)
}

// Scenario B
func TestRegisterStudent_Duplicate(t *testing.T) {
	ctx := context.Background()
	store, _ := setupStore(t)

	_, err := store.RegisterStudent(ctx, "Jane Doe", "665437", careerFairID)
	require.NoError(t, err)

	_, err = store.RegisterStudent(ctx, "Jane Doe", "665437", careerFairID)
	assert.ErrorIs(t, err, registration.ErrDuplicateRegistration)
	assert.Equal(t, 199, slotsOf(t, store, careerFairID))
	assert.Len(t, store.ListRegistrations(), 1)
}

// Scenario C
func TestRegisterStudent_FullyBooked(t *testing.T) {
	ctx := context.Background()
	store, _ := setupStore(t)

	cases := []struct {
		name, studentName, studentID string
	}{
		{"valid input", "Jane Doe", "665437"},
		{"invalid name", "J", "665437"},
		{"invalid id", "Jane Doe", "12"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := store.RegisterStudent(ctx, tc.studentName, tc.studentID, alumniDinnerID)
			assert.ErrorIs(t, err, registration.ErrEventFullyBooked)
			assert.Equal(t, 0, slotsOf(t, store, alumniDinnerID))
			assert.Empty(t, store.ListRegistrations())
		})
	}
}

// Scenario D
func TestRegisterStudent_InvalidStudentID(t *testing.T) {
	ctx := context.Background()
	store, _ := setupStore(t)

	_, err := store.RegisterStudent(ctx, "Jane Doe", "12345", careerFairID)

	var validationErr *registration.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, []string{registration.MsgInvalidStudentID}, validationErr.Violations)
	assert.Equal(t, 200, slotsOf(t, store, careerFairID))
}

func TestRegisterStudent_ValidationCollectsAllViolations(t *testing.T) {
	ctx := context.Background()
	store, _ := setupStore(t)

	_, err := store.RegisterStudent(ctx, " ", "abc", 0)

	var validationErr *registration.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, []string{
		registration.MsgInvalidName,
		registration.MsgInvalidStudentID,
		registration.MsgNoEventSelected,
	}, validationErr.Violations)
}

func TestRegisterStudent_EventNotFound(t *testing.T) {
	ctx := context.Background()
	store, _ := setupStore(t)

	_, err := store.RegisterStudent(ctx, "Jane Doe", "665437", 99)
	assert.ErrorIs(t, err, registration.ErrEventNotFound)
	assert.Empty(t, store.ListRegistrations())
}

func TestRegisterStudent_TrimsInput(t *testing.T) {
	ctx := context.Background()
	store, _ := setupStore(t)

	reg, err := store.RegisterStudent(ctx, "  Jane Doe ", " 665437 ", careerFairID)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", reg.StudentName)
	assert.Equal(t, "665437", reg.StudentID)

	_, err = store.RegisterStudent(ctx, "Jane Doe", "665437", careerFairID)
	assert.ErrorIs(t, err, registration.ErrDuplicateRegistration)
}

func TestRegisterStudent_UniqueIDsWithinSameMillisecond(t *testing.T) {
	ctx := context.Background()
	store, _ := setupStore(t)
	store.WithClock(fixedClock())

	first, err := store.RegisterStudent(ctx, "Jane Doe", "665437", careerFairID)
	require.NoError(t, err)
	second, err := store.RegisterStudent(ctx, "John Roe", "665438", careerFairID)
	require.NoError(t, err)

	assert.Equal(t, first.ID+1, second.ID)
}

func TestRegisterStudent_NotInitialized(t *testing.T) {
	store := registration.NewStore(storage.NewAdapter(storage.NewMemoryKV(), "usiu"), nil, nil, nil)

	_, err := store.RegisterStudent(context.Background(), "Jane Doe", "665437", careerFairID)
	assert.ErrorIs(t, err, registration.ErrNotInitialized)
}

func TestRegisterStudent_RollsBackWhenEventsSaveFails(t *testing.T) {
	ctx := context.Background()
	db := new(MockPersistence)
	db.On("LoadEvents", ctx).Return(registration.SeedEvents(), true, nil)
	db.On("LoadRegistrations", ctx).Return([]models.Registration{}, true, nil)
	db.On("SaveEvents", ctx, mock.Anything).Return(errors.New("disk full"))

	store := registration.NewStore(db, nil, nil, nil)
	require.NoError(t, store.Initialize(ctx))

	_, err := store.RegisterStudent(ctx, "Jane Doe", "665437", careerFairID)

	var persistenceErr *registration.PersistenceError
	require.ErrorAs(t, err, &persistenceErr)
	assert.Equal(t, "save events", persistenceErr.Op)
	assert.Equal(t, 200, slotsOf(t, store, careerFairID))
	assert.Empty(t, store.ListRegistrations())
	db.AssertNotCalled(t, "SaveRegistrations", mock.Anything, mock.Anything)
}

func TestRegisterStudent_RollsBackWhenRegistrationsSaveFails(t *testing.T) {
	ctx := context.Background()
	db := new(MockPersistence)
	db.On("LoadEvents", ctx).Return(registration.SeedEvents(), true, nil)
	db.On("LoadRegistrations", ctx).Return([]models.Registration{}, true, nil)
	db.On("SaveEvents", ctx, mock.Anything).Return(nil)
	db.On("SaveRegistrations", ctx, mock.Anything).Return(errors.New("quota exceeded"))

	store := registration.NewStore(db, nil, nil, nil)
	require.NoError(t, store.Initialize(ctx))

	_, err := store.RegisterStudent(ctx, "Jane Doe", "665437", careerFairID)

	var persistenceErr *registration.PersistenceError
	require.ErrorAs(t, err, &persistenceErr)
	assert.Equal(t, "save registrations", persistenceErr.Op)
	assert.Equal(t, registration.SeedEvents(), store.ListEvents())
	assert.Empty(t, store.ListRegistrations())

	// the second SaveEvents call restores the previous events record
	db.AssertNumberOfCalls(t, "SaveEvents", 2)
	lastCall := db.Calls[len(db.Calls)-1]
	assert.Equal(t, "SaveEvents", lastCall.Method)
	assert.Equal(t, registration.SeedEvents(), lastCall.Arguments.Get(1))
}

func TestRegisterStudent_PublishesEvent(t *testing.T) {
	ctx := context.Background()
	adapter := storage.NewAdapter(storage.NewMemoryKV(), "usiu")
	publisher := new(MockPublisher)
	publisher.On("PublishRegistrationCreated", ctx, mock.MatchedBy(func(e models.RegistrationCreatedEvent) bool {
		return e.StudentID == "665437" && e.EventID == careerFairID && e.SlotsRemaining == 199
	})).Return(nil).Once()

	store := registration.NewStore(adapter, publisher, nil, nil)
	require.NoError(t, store.Initialize(ctx))

	_, err := store.RegisterStudent(ctx, "Jane Doe", "665437", careerFairID)
	require.NoError(t, err)
	publisher.AssertExpectations(t)
}

func TestRegisterStudent_PublishFailureDoesNotFailRegistration(t *testing.T) {
	ctx := context.Background()
	adapter := storage.NewAdapter(storage.NewMemoryKV(), "usiu")
	publisher := new(MockPublisher)
	publisher.On("PublishRegistrationCreated", ctx, mock.Anything).Return(errors.New("broker down"))

	store := registration.NewStore(adapter, publisher, nil, nil)
	require.NoError(t, store.Initialize(ctx))

	_, err := store.RegisterStudent(ctx, "Jane Doe", "665437", careerFairID)
	require.NoError(t, err)
	assert.Equal(t, 199, slotsOf(t, store, careerFairID))
}

func TestRegisterStudent_PublishDoesNotHoldStoreLock(t *testing.T) {
	ctx := context.Background()
	adapter := storage.NewAdapter(storage.NewMemoryKV(), "usiu")
	publishing := make(chan struct{})
	release := make(chan struct{})
	publisher := new(MockPublisher)
	publisher.On("PublishRegistrationCreated", ctx, mock.Anything).
		Run(func(mock.Arguments) {
			close(publishing)
			<-release
		}).
		Return(nil)

	store := registration.NewStore(adapter, publisher, nil, nil)
	require.NoError(t, store.Initialize(ctx))

	done := make(chan error, 1)
	go func() {
		_, err := store.RegisterStudent(ctx, "Jane Doe", "665437", careerFairID)
		done <- err
	}()
	<-publishing

	listed := make(chan []models.Event, 1)
	go func() { listed <- store.ListEvents() }()

	select {
	case events := <-listed:
		assert.Equal(t, 199, events[1].Slots)
	case <-time.After(2 * time.Second):
		t.Fatal("ListEvents blocked while a registration was being published")
	}

	close(release)
	require.NoError(t, <-done)
	publisher.AssertExpectations(t)
}

func TestListRegistrableEvents(t *testing.T) {
	store, _ := setupStore(t)

	var ids []int
	for e := range store.ListRegistrableEvents() {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []int{1, 2, 3, 4, 5}, ids)

	// restartable and stable without intervening mutation
	assert.Equal(t, slices.Collect(store.ListRegistrableEvents()), slices.Collect(store.ListRegistrableEvents()))
	assert.Equal(t, store.ListEvents(), store.ListEvents())
}

func TestListRegistrableEvents_EarlyBreak(t *testing.T) {
	store, _ := setupStore(t)

	var first models.Event
	for e := range store.ListRegistrableEvents() {
		first = e
		break
	}
	assert.Equal(t, 1, first.ID)
}

func TestListEvents_ReturnsCopy(t *testing.T) {
	store, _ := setupStore(t)

	events := store.ListEvents()
	events[0].Slots = 0

	assert.Equal(t, 150, slotsOf(t, store, 1))
}

func TestPrepareRegistration(t *testing.T) {
	store, _ := setupStore(t)

	event, err := store.PrepareRegistration(careerFairID)
	require.NoError(t, err)
	assert.Equal(t, "Career Fair & Networking", event.Name)

	_, err = store.PrepareRegistration(alumniDinnerID)
	assert.ErrorIs(t, err, registration.ErrEventFullyBooked)

	_, err = store.PrepareRegistration(404)
	assert.ErrorIs(t, err, registration.ErrEventNotFound)

	assert.Equal(t, registration.SeedEvents(), store.ListEvents())
}

func TestFindRegistration(t *testing.T) {
	ctx := context.Background()
	store, _ := setupStore(t)

	reg, err := store.RegisterStudent(ctx, "Jane Doe", "665437", careerFairID)
	require.NoError(t, err)

	found, ok := store.FindRegistration(reg.ID)
	assert.True(t, ok)
	assert.Equal(t, reg, found)

	_, ok = store.FindRegistration(reg.ID + 1)
	assert.False(t, ok)
}

// Scenario E
func TestResetAll_ThenInitializeRestoresSeed(t *testing.T) {
	ctx := context.Background()
	store, adapter := setupStore(t)

	_, err := store.RegisterStudent(ctx, "Jane Doe", "665437", careerFairID)
	require.NoError(t, err)

	require.NoError(t, store.ResetAll(ctx))
	assert.False(t, store.Initialized())
	assert.Empty(t, store.ListEvents())
	assert.Empty(t, store.ListRegistrations())

	_, found, err := adapter.LoadEvents(ctx)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Initialize(ctx))
	assert.Equal(t, registration.SeedEvents(), store.ListEvents())
	assert.Empty(t, store.ListRegistrations())
}

func TestResetAll_PersistenceFailureKeepsState(t *testing.T) {
	ctx := context.Background()
	db := new(MockPersistence)
	db.On("LoadEvents", ctx).Return(registration.SeedEvents(), true, nil)
	db.On("LoadRegistrations", ctx).Return(nil, false, nil)
	db.On("Clear", ctx).Return(errors.New("read-only"))

	store := registration.NewStore(db, nil, nil, nil)
	require.NoError(t, store.Initialize(ctx))

	err := store.ResetAll(ctx)
	assert.Equal(t, registration.OutcomePersistenceFailure, registration.Outcome(err))
	assert.True(t, store.Initialized())
	assert.Equal(t, registration.SeedEvents(), store.ListEvents())
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, registration.OutcomeSuccess, registration.Outcome(nil))
	assert.Equal(t, registration.OutcomeValidationError, registration.Outcome(&registration.ValidationError{Violations: []string{"x"}}))
	assert.Equal(t, registration.OutcomeEventNotFound, registration.Outcome(registration.ErrEventNotFound))
	assert.Equal(t, registration.OutcomeFullyBooked, registration.Outcome(registration.ErrEventFullyBooked))
	assert.Equal(t, registration.OutcomeDuplicate, registration.Outcome(registration.ErrDuplicateRegistration))
	assert.Equal(t, registration.OutcomePersistenceFailure, registration.Outcome(&registration.PersistenceError{Op: "x", Err: errors.New("y")}))
	assert.Equal(t, registration.OutcomeNotInitialized, registration.Outcome(registration.ErrNotInitialized))
	assert.Equal(t, registration.OutcomeUnknown, registration.Outcome(errors.New("boom")))
}
