// Package usefulerror wraps internal errors with messages that actually
// help the user: a human-readable description, actionable guidance, and
// a stable code for programmatic handling.
package usefulerror

import (
	"errors"
	"strings"
)

// UsefulError is implemented by errors worth showing to a user as-is,
// rather than leaking internal details that don't help them.
type UsefulError interface {
	// Error returns the raw error string. Maintains compatibility with
	// the standard error interface.
	Error() string

	// HumanError returns a human-readable description of what went wrong.
	HumanError() string

	// Help returns guidance specific to this error.
	Help() string

	// Code returns a stable identifier for programmatic use, such as
	// logging or categorization.
	Code() string
}

type usefulErrorBuilder struct {
	originalError error
	humanError    string
	help          string
	code          string
	msg           string
}

var _ UsefulError = (*usefulErrorBuilder)(nil)

// Useful starts building a UsefulError.
func Useful() *usefulErrorBuilder {
	return &usefulErrorBuilder{}
}

// Wrap records the underlying error.
func (b *usefulErrorBuilder) Wrap(originalError error) *usefulErrorBuilder {
	b.originalError = originalError
	return b
}

// Msg sets the raw message used when no wrapped error is present.
func (b *usefulErrorBuilder) Msg(msg string) *usefulErrorBuilder {
	b.msg = msg
	return b
}

// WithHumanError sets the human-readable description.
func (b *usefulErrorBuilder) WithHumanError(humanError string) *usefulErrorBuilder {
	b.humanError = humanError
	return b
}

// WithHelp sets guidance for resolving the error.
func (b *usefulErrorBuilder) WithHelp(help string) *usefulErrorBuilder {
	b.help = help
	return b
}

// WithCode sets the stable error code.
func (b *usefulErrorBuilder) WithCode(code string) *usefulErrorBuilder {
	b.code = code
	return b
}

// Error implements the standard error interface.
func (b *usefulErrorBuilder) Error() string {
	if b.originalError != nil {
		return b.originalError.Error()
	}

	if b.msg == "" {
		return "unknown error"
	}

	msgParts := []string{}
	if b.code != "" {
		msgParts = append(msgParts, b.code)
	}

	msgParts = append(msgParts, b.msg)
	return strings.Join(msgParts, ": ")
}

// Unwrap exposes the wrapped error to errors.Is / errors.As.
func (b *usefulErrorBuilder) Unwrap() error {
	return b.originalError
}

// HumanError returns the human-readable description.
func (b *usefulErrorBuilder) HumanError() string {
	if b.humanError == "" {
		return "An error occurred, but no human-readable message is available."
	}

	return b.humanError
}

// Help returns guidance for resolving the error.
func (b *usefulErrorBuilder) Help() string {
	if b.help == "" {
		return "No additional help is available for this error."
	}

	return b.help
}

// Code returns the stable error code.
func (b *usefulErrorBuilder) Code() string {
	if b.code == "" {
		return ErrCodeUnknown
	}

	return b.code
}

// AsUsefulError attempts to convert a given error into a UsefulError.
func AsUsefulError(err error) (UsefulError, bool) {
	if err == nil {
		return nil, false
	}

	var usefulErr *usefulErrorBuilder
	if errors.As(err, &usefulErr) {
		return usefulErr, true
	}

	if usefulErr, ok := err.(UsefulError); ok {
		return usefulErr, true
	}

	return nil, false
}
