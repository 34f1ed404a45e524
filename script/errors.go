package script

import "fmt"

// ErrDuplicateScript is returned when two scripts selected from the same
// folder share a version.
type ErrDuplicateScript struct {
	Script   *Script
	Existing *Script
}

// Error implements error interface.
func (e ErrDuplicateScript) Error() string {
	return fmt.Sprintf("duplicate %v script version %v: %v and %v",
		e.Script.Category, e.Script.Version, e.Existing.Name, e.Script.Name)
}

// ErrInvalidVersion is returned for a script file whose version token can
// not be used as a version.
type ErrInvalidVersion struct {
	Filename string
	Err      error
}

func (e ErrInvalidVersion) Error() string {
	return fmt.Sprintf("invalid version in script file %v: %v", e.Filename, e.Err)
}

func (e ErrInvalidVersion) Unwrap() error {
	return e.Err
}
