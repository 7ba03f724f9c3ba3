package registration

import (
	"errors"
	"fmt"
	"strings"

	"ms-registration/internal/storage"
)

var (
	ErrEventNotFound         = errors.New("event not found")
	ErrEventFullyBooked      = errors.New("event is fully booked")
	ErrDuplicateRegistration = errors.New("student is already registered for this event")
	ErrNotInitialized        = errors.New("registration store is not initialized")
)

// ValidationError lists every input rule the submission broke, in form order.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return "invalid registration input: " + strings.Join(e.Violations, " ")
}

// PersistenceError means the store could not read or write its records. The
// attempted mutation was not applied.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Outcome labels. Used for metrics and logs.
const (
	OutcomeSuccess            = "success"
	OutcomeValidationError    = "validation_error"
	OutcomeEventNotFound      = "event_not_found"
	OutcomeFullyBooked        = "fully_booked"
	OutcomeDuplicate          = "duplicate"
	OutcomePersistenceFailure = "persistence_failure"
	OutcomeSchemaError        = "schema_error"
	OutcomeNotInitialized     = "not_initialized"
	OutcomeUnknown            = "unknown"
)

// Outcome classifies err into one of the Outcome labels.
func Outcome(err error) string {
	var validationErr *ValidationError
	var persistenceErr *PersistenceError
	var schemaErr *storage.SchemaError

	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.As(err, &validationErr):
		return OutcomeValidationError
	case errors.Is(err, ErrEventNotFound):
		return OutcomeEventNotFound
	case errors.Is(err, ErrEventFullyBooked):
		return OutcomeFullyBooked
	case errors.Is(err, ErrDuplicateRegistration):
		return OutcomeDuplicate
	case errors.As(err, &schemaErr):
		return OutcomeSchemaError
	case errors.As(err, &persistenceErr):
		return OutcomePersistenceFailure
	case errors.Is(err, ErrNotInitialized):
		return OutcomeNotInitialized
	default:
		return OutcomeUnknown
	}
}
