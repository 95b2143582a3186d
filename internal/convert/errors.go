package convert

import (
	"errors"
	"fmt"
)

// FileNotFoundError reports a descriptor entry whose source audio is missing.
type FileNotFoundError struct {
	Set   string
	Entry string
	Path  string
	Err   error
}

func (e *FileNotFoundError) Error() string {
	return fmt.Sprintf("%s: source for %q not found: %s", e.Set, e.Entry, e.Path)
}

func (e *FileNotFoundError) Unwrap() error {
	return e.Err
}

// ErrStopped is wrapped by Run when stop_on_error ends the batch early.
var ErrStopped = errors.New("batch stopped after a failed entry")
