package validate

import "errors"

const (
	msgRequired   = "Please fill in all required fields"
	msgInvalidURL = "Please enter a valid URL (e.g., www.example.com or https://example.com)"
)

// ValidationError reports a missing required field. Message is user-facing.
type ValidationError struct {
	Message string
	Field   string
}

func (e *ValidationError) Error() string { return e.Message }

// InvalidURLError reports a landing URL that does not parse after normalization.
type InvalidURLError struct {
	Message string
	Input   string
	Err     error
}

func (e *InvalidURLError) Error() string { return e.Message }

func (e *InvalidURLError) Unwrap() error { return e.Err }

func required(field string) error {
	return &ValidationError{Message: msgRequired, Field: field}
}

// IsValidation reports whether err was produced by a validator, i.e. it
// should be shown to the user and must not reach the network.
func IsValidation(err error) bool {
	var ve *ValidationError
	var ue *InvalidURLError
	return errors.As(err, &ve) || errors.As(err, &ue)
}
