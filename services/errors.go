package services

import "fmt"

// ValidationError reports a missing or malformed submission field. It is
// raised before any side effect.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// DuplicateError reports that a submission matched an existing case. No
// records were created and no files were saved.
type DuplicateError struct {
	ExistingID uint
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate of existing case %d", e.ExistingID)
}
