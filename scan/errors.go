package scan

import "errors"

var (
	// ErrUnsupportedType is returned before any device work when the element
	// type is outside the implemented set (int32, int64).
	ErrUnsupportedType = errors.New("scan: unimplemented element type")

	// ErrLengthMismatch is returned when the output array is not exactly one
	// element longer than the input.
	ErrLengthMismatch = errors.New("scan: output length must equal input length plus one")

	// ErrTypeMismatch is returned when input and output element types differ.
	ErrTypeMismatch = errors.New("scan: input and output element types differ")

	// ErrEmptyInput is returned for zero-length inputs; the finalization step
	// has no last element to read.
	ErrEmptyInput = errors.New("scan: input must hold at least one element")

	// ErrScratchTooSmall is returned when a caller-provided scratch buffer is
	// smaller than the size reported by the dry-run query.
	ErrScratchTooSmall = errors.New("scan: scratch buffer smaller than required size")
)
