package soothsayer

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidDirection = errors.New("direction must be up or down")
	ErrNoSchema         = errors.New("no target schema")
	ErrNoScriptFolder   = errors.New("no script folder")
)

// ErrNoReverseScript is returned by a forced downgrade that reaches a step
// without a reverse script.
type ErrNoReverseScript struct {
	Version int64
}

func (e ErrNoReverseScript) Error() string {
	return fmt.Sprintf("no reverse script for version %v", e.Version)
}

// StepError is returned when a strategy had to stop at a step. Steps applied
// before it stay applied.
type StepError struct {
	Kind    Kind
	Version int64
	Script  string

	// LastVersion is the version recorded after the last successful step,
	// nil if the schema has no recorded version.
	LastVersion *int64

	Err error
}

func (e *StepError) Error() string {
	name := e.Script
	if name == "" {
		name = "<none>"
	}
	return fmt.Sprintf("%v migration stopped at version %v (%v), database version is %v: %v",
		e.Kind, e.Version, name, formatVersion(e.LastVersion), e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

func formatVersion(v *int64) string {
	if v == nil {
		return "<empty>"
	}
	return fmt.Sprintf("%d", *v)
}
