package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Fatal errors. Callers check them with errors.Is.
var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidAccess = errors.New("invalid access")

	// ErrDuplicate is returned by stores when a (user, post) pair is already bookmarked.
	ErrDuplicate = errors.New("duplicate bookmark")

	// ErrUnknownPost is returned by post lookups for posts they do not know.
	ErrUnknownPost = errors.New("unknown post")
)

// ValidationCode identifies a user-correctable problem with a request.
type ValidationCode string

const (
	CodeAlreadyBookmarkedPost            ValidationCode = "ALREADY_BOOKMARKED_POST"
	CodeTimeMustBeProvided               ValidationCode = "TIME_MUST_BE_PROVIDED"
	CodeCannotSetPastReminder            ValidationCode = "CANNOT_SET_PAST_REMINDER"
	CodeCannotSetReminderInDistantFuture ValidationCode = "CANNOT_SET_REMINDER_IN_DISTANT_FUTURE"
	CodeNameTooLong                      ValidationCode = "NAME_TOO_LONG"
)

var validationMessages = map[ValidationCode]string{
	CodeAlreadyBookmarkedPost:            "You cannot bookmark the same post twice.",
	CodeTimeMustBeProvided:               "Reminder time must be provided for the reminder type %s.",
	CodeCannotSetPastReminder:            "You cannot set a bookmark reminder in the past.",
	CodeCannotSetReminderInDistantFuture: "You cannot set a bookmark reminder more than 10 years in the future.",
	CodeNameTooLong:                      "Bookmark name must be at most %d characters.",
}

// ValidationError is an expected condition reported back to the user.
type ValidationError struct {
	Code    ValidationCode `json:"code"`
	Message string         `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewValidationError builds an error using the default message for code.
func NewValidationError(code ValidationCode, args ...any) ValidationError {
	msg, ok := validationMessages[code]
	if !ok {
		msg = string(code)
	}
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	return ValidationError{Code: code, Message: msg}
}

// NewTimeMustBeProvided names the reminder type in the message.
func NewTimeMustBeProvided(rt ReminderType) ValidationError {
	return NewValidationError(CodeTimeMustBeProvided, rt.HumanName())
}

// ValidationErrors is the list collected while creating a bookmark.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	msgs := make([]string, 0, len(v))
	for _, e := range v {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "; ")
}

// Has reports whether any error carries code.
func (v ValidationErrors) Has(code ValidationCode) bool {
	for _, e := range v {
		if e.Code == code {
			return true
		}
	}
	return false
}

// Codes returns the codes in order.
func (v ValidationErrors) Codes() []ValidationCode {
	codes := make([]ValidationCode, len(v))
	for i, e := range v {
		codes[i] = e.Code
	}
	return codes
}
