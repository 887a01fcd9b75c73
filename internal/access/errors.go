package access

import "errors"

// Sentinel errors for access control.
var (
	// ErrInvalidUserlevel is returned when a level name is unknown or a
	// requested level change is rejected.
	ErrInvalidUserlevel = errors.New("access: invalid userlevel")

	// ErrTokenInvalid is returned when a userlevel token fails validation.
	ErrTokenInvalid = errors.New("access: invalid token")
)
