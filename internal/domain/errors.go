package domain

import "errors"

// Sentinel errors classifying service failures. Services wrap these with
// fmt.Errorf("%w: ...") and handlers map them to HTTP statuses with
// errors.Is; anything unclassified surfaces as a generic server error.
var (
	// ErrValidation covers missing or malformed input the client must fix.
	ErrValidation = errors.New("validation failed")

	// ErrDuplicateEmail is returned when registration collides with an
	// existing account. Backed by the users.email unique constraint.
	ErrDuplicateEmail = errors.New("email already exists")

	// ErrInvalidCredentials deliberately does not distinguish an unknown
	// email from a wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrChannelMismatch is returned when the declared login channel does
	// not match the account's role.
	ErrChannelMismatch = errors.New("login channel mismatch")

	// ErrSlotConflict is returned when a booking targets an occupied slot,
	// including the lost side of a racing insert.
	ErrSlotConflict = errors.New("time slot is already booked")

	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")
)
