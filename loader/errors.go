package loader

import "errors"

var (
	// ErrNoSource is returned when the source string is empty.
	ErrNoSource = errors.New("source required")

	// ErrNoSelector is returned when WithSelector is given no tags.
	ErrNoSelector = errors.New("at least one selector tag required")

	// ErrTooLarge is returned when a response body exceeds the WithMaxBytes cap.
	ErrTooLarge = errors.New("response body too large")
)
