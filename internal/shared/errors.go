package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate indicates a uniqueness violation.
	ErrDuplicate = errors.New("duplicate entry")
	// ErrValidation marks user input that failed validation. Wrapped errors
	// carry a message safe to show to the user.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)

// PublicError carries a message intended for end users.
type PublicError struct {
	Kind    error
	Message string
}

func (e *PublicError) Error() string {
	if e.Kind == nil {
		return e.Message
	}
	return e.Kind.Error() + ": " + e.Message
}

func (e *PublicError) Unwrap() error {
	return e.Kind
}

// Invalid builds a validation error with a user facing message.
func Invalid(message string) error {
	return &PublicError{Kind: ErrValidation, Message: message}
}

// UserSafeMessage converts err into text that can be flashed without leaking
// internals.
func UserSafeMessage(err error) string {
	if err == nil {
		return ""
	}
	var public *PublicError
	if errors.As(err, &public) && public.Message != "" {
		return public.Message
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return "The requested record was not found."
	case errors.Is(err, ErrDuplicate):
		return "A record with the same value already exists."
	case errors.Is(err, ErrInvalidCredentials):
		return "Invalid username or password."
	case errors.Is(err, ErrIdempotencyConflict):
		return "This request was already processed."
	case errors.Is(err, ErrValidation):
		return "The submitted data is invalid."
	}
	return "Something went wrong. Please try again."
}
