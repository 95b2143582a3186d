package metadata

import "fmt"

// ParseError reports a descriptor file that is missing or malformed.
//
// Entry names the offending record ("[3]" for arrays, the key for objects)
// and is empty when the file as a whole could not be read.
type ParseError struct {
	Path  string
	Entry string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Entry != "" {
		return fmt.Sprintf("parse %s: entry %s: %v", e.Path, e.Entry, e.Err)
	}
	return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
