package comparison

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrShapeMismatch marks runs that differ in length or sample ordering.
	ErrShapeMismatch = errors.New("comparison: run shapes do not match")
	// ErrEmptyInput marks a run or result sequence with no elements.
	ErrEmptyInput = errors.New("comparison: empty result set")
	// ErrMalformedResult marks a result with a missing or out-of-range field.
	ErrMalformedResult = errors.New("comparison: malformed result")
)

// ShapeMismatchError reports why two runs cannot be compared index by index.
// Index is -1 when the lengths differ.
type ShapeMismatchError struct {
	LenA      int
	LenB      int
	Index     int
	SampleIDA int
	SampleIDB int
}

func (e *ShapeMismatchError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%v: run A has %d results, run B has %d", ErrShapeMismatch, e.LenA, e.LenB)
	}
	return fmt.Sprintf("%v: index %d holds sample %d in run A but sample %d in run B",
		ErrShapeMismatch, e.Index, e.SampleIDA, e.SampleIDB)
}

func (e *ShapeMismatchError) Unwrap() error { return ErrShapeMismatch }

// MalformedResultError identifies one offending record. Index is -1 for run-level fields.
type MalformedResultError struct {
	Model  string
	Index  int
	Field  string
	Reason string
}

func (e *MalformedResultError) Error() string {
	var b strings.Builder
	b.WriteString(ErrMalformedResult.Error())
	if e.Model != "" {
		fmt.Fprintf(&b, ": model %s", e.Model)
	}
	if e.Index >= 0 {
		fmt.Fprintf(&b, ": result %d", e.Index)
	}
	fmt.Fprintf(&b, ": %s %s", e.Field, e.Reason)
	return b.String()
}

func (e *MalformedResultError) Unwrap() error { return ErrMalformedResult }

func emptyRunError(run ModelRun, side string) error {
	name := strings.TrimSpace(run.Model)
	if name == "" {
		name = "unnamed"
	}
	if side != "" {
		return fmt.Errorf("%w: run %s (%s) has no results", ErrEmptyInput, side, name)
	}
	return fmt.Errorf("%w: run %s has no results", ErrEmptyInput, name)
}
