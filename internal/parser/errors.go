package parser

import "fmt"

// MalformedInputError is returned when report content cannot be decoded. No partial
// result is produced.
type MalformedInputError struct {
	Path string
	Err  error
}

func (e *MalformedInputError) Error() string {
	return fmt.Sprintf("invalid JSON at %s: %v", e.Path, e.Err)
}

func (e *MalformedInputError) Unwrap() error {
	return e.Err
}
