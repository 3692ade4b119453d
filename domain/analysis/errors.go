package analysis

import "errors"

// Analysis errors
var (
	ErrIncomplete     = errors.New("incomplete analysis configuration")
	ErrInvalidRequest = errors.New("invalid perform request")
)

// Error is a configuration or request problem. Message is shown to users
// as is; Kind is one of the sentinels above.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func incomplete(message string) error {
	return &Error{Kind: ErrIncomplete, Message: message}
}

func invalidRequest(message string) error {
	return &Error{Kind: ErrInvalidRequest, Message: message}
}
