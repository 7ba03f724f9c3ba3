package registration

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/go-playground/validator/v10"
)

const (
	MsgInvalidName      = "Please enter a valid full name (at least 2 characters)."
	MsgInvalidStudentID = "Please enter a valid Student ID (6 digits, e.g., 665437)."
	MsgNoEventSelected  = "Please select an event to register for."
)

var studentIDPattern = regexp.MustCompile(`^\d{6}$`)

type registrationInput struct {
	Name      string `validate:"required,fullname"`
	StudentID string `validate:"studentid"`
	EventID   string `validate:"eventid"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// length counted in UTF-16 code units
	_ = v.RegisterValidation("fullname", func(fl validator.FieldLevel) bool {
		return len(utf16.Encode([]rune(fl.Field().String()))) >= 2
	})
	_ = v.RegisterValidation("studentid", func(fl validator.FieldLevel) bool {
		return studentIDPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("eventid", func(fl validator.FieldLevel) bool {
		id, err := strconv.Atoi(fl.Field().String())
		return err == nil && id > 0
	})
	return v
}

// ValidateRegistrationInput checks every rule independently and returns the
// violated ones in form order. An empty result means the input is well formed;
// whether the event exists is checked by the store.
func ValidateRegistrationInput(name, studentID, eventID string) []string {
	input := registrationInput{
		Name:      strings.TrimSpace(name),
		StudentID: strings.TrimSpace(studentID),
		EventID:   strings.TrimSpace(eventID),
	}

	err := validate.Struct(input)
	if err == nil {
		return nil
	}

	failed := make(map[string]bool, 3)
	if fieldErrs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range fieldErrs {
			failed[fe.StructField()] = true
		}
	}

	var violations []string
	if failed["Name"] {
		violations = append(violations, MsgInvalidName)
	}
	if failed["StudentID"] {
		violations = append(violations, MsgInvalidStudentID)
	}
	if failed["EventID"] {
		violations = append(violations, MsgNoEventSelected)
	}
	return violations
}
