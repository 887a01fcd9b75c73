package value

import "errors"

// Domain errors for the value package.
var (
	// ErrTypeMismatch is returned when a Value is accessed, decoded or
	// converted as a variant it does not hold.
	ErrTypeMismatch = errors.New("value: type mismatch")

	// ErrRangeOrPrecisionLoss is returned by Convert when the target variant
	// cannot represent the source exactly, and by the decoders for NaN and
	// infinite floats.
	ErrRangeOrPrecisionLoss = errors.New("value: range or precision loss")

	// ErrInvalidKind is returned when a kind name is not recognised.
	ErrInvalidKind = errors.New("value: invalid kind")
)
