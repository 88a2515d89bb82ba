package object

import "errors"

var (
	// ErrInvalidFormat covers malformed identifier text, malformed offset
	// tokens, and non-UTF-8 data where text was required.
	ErrInvalidFormat = errors.New("invalid format")

	ErrInvalidObjectType = errors.New("invalid object type")
	ErrInvalidNamespace  = errors.New("invalid namespace")
	ErrInvalidVersion    = errors.New("invalid scheme version")
	ErrInvalidHashLength = errors.New("invalid hash length")

	// ErrInvalidInput is returned when a caller hands a constructor data
	// that cannot form a well-typed object.
	ErrInvalidInput = errors.New("invalid input")
)
