package storage

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"ms-registration/internal/models"
)

var studentIDPattern = regexp.MustCompile(`^\d{6}$`)

// SchemaError reports a persisted record that does not decode into valid entities.
type SchemaError struct {
	Record string
	Reason string
	Err    error
}

func (e *SchemaError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("schema error in %s record: %s: %v", e.Record, e.Reason, e.Err)
	}
	return fmt.Sprintf("schema error in %s record: %s", e.Record, e.Reason)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// DecodeEvents parses and validates a stored events record.
func DecodeEvents(data []byte) ([]models.Event, error) {
	var events []models.Event
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, &SchemaError{Record: RecordEvents, Reason: "malformed JSON", Err: err}
	}

	seen := make(map[int]bool, len(events))
	for i, e := range events {
		switch {
		case e.ID <= 0:
			return nil, schemaErr(RecordEvents, i, fmt.Sprintf("invalid id %d", e.ID))
		case seen[e.ID]:
			return nil, schemaErr(RecordEvents, i, fmt.Sprintf("duplicate id %d", e.ID))
		case strings.TrimSpace(e.Name) == "":
			return nil, schemaErr(RecordEvents, i, "missing name")
		case e.Date.IsZero():
			return nil, schemaErr(RecordEvents, i, "missing date")
		case e.Slots < 0:
			return nil, schemaErr(RecordEvents, i, fmt.Sprintf("negative slots %d", e.Slots))
		}
		seen[e.ID] = true
	}
	return events, nil
}

// DecodeRegistrations parses and validates a stored registrations record.
// Event references are not resolved here.
func DecodeRegistrations(data []byte) ([]models.Registration, error) {
	var regs []models.Registration
	if err := json.Unmarshal(data, &regs); err != nil {
		return nil, &SchemaError{Record: RecordRegistrations, Reason: "malformed JSON", Err: err}
	}

	type pair struct {
		studentID string
		eventID   int
	}
	ids := make(map[int64]bool, len(regs))
	pairs := make(map[pair]bool, len(regs))
	for i, r := range regs {
		p := pair{r.StudentID, r.EventID}
		switch {
		case r.ID <= 0:
			return nil, schemaErr(RecordRegistrations, i, fmt.Sprintf("invalid id %d", r.ID))
		case ids[r.ID]:
			return nil, schemaErr(RecordRegistrations, i, fmt.Sprintf("duplicate id %d", r.ID))
		case strings.TrimSpace(r.StudentName) == "":
			return nil, schemaErr(RecordRegistrations, i, "missing studentName")
		case !studentIDPattern.MatchString(r.StudentID):
			return nil, schemaErr(RecordRegistrations, i, fmt.Sprintf("invalid studentId %q", r.StudentID))
		case r.EventID <= 0:
			return nil, schemaErr(RecordRegistrations, i, fmt.Sprintf("invalid eventId %d", r.EventID))
		case r.RegistrationDate.IsZero():
			return nil, schemaErr(RecordRegistrations, i, "missing registrationDate")
		case pairs[p]:
			return nil, schemaErr(RecordRegistrations, i, fmt.Sprintf("student %s registered twice for event %d", r.StudentID, r.EventID))
		}
		ids[r.ID] = true
		pairs[p] = true
	}
	return regs, nil
}

func schemaErr(record string, index int, reason string) *SchemaError {
	return &SchemaError{Record: record, Reason: fmt.Sprintf("entry %d: %s", index, reason)}
}
