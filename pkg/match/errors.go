package match

import (
	"errors"
	"fmt"
)

// DuplicateEntryError reports a duplicate identifier. When Ref is empty, two
// records in the Kind collection share ID. When Ref is set, the ranked list
// owned by ID names Ref more than once.
type DuplicateEntryError struct {
	Kind EntityKind
	ID   string
	Ref  string
}

func (e DuplicateEntryError) Error() string {
	if e.Ref != "" {
		return fmt.Sprintf("%s %q lists %q more than once", e.Kind, e.ID, e.Ref)
	}
	return fmt.Sprintf("duplicate %s %q", e.Kind, e.ID)
}

// UnknownIdentifierError reports a reference to an identifier that exists in
// neither the counterpart collection nor the declared external set. Kind is
// the kind of the missing identifier; Owner names the ranked list or the
// scenario that referenced it.
type UnknownIdentifierError struct {
	Kind  EntityKind
	Owner string
	Ref   string
}

func (e UnknownIdentifierError) Error() string {
	return fmt.Sprintf("unknown %s %q referenced by %q", e.Kind, e.Ref, e.Owner)
}

// InvalidCapacityError reports a negative program capacity. Zero is legal
// and means the program is currently accepting nobody.
type InvalidCapacityError struct {
	ProgramID string
	Capacity  int
}

func (e InvalidCapacityError) Error() string {
	return fmt.Sprintf("program %q has invalid capacity %d", e.ProgramID, e.Capacity)
}

// InvalidIdentifierError reports an empty identifier in a record or ranked
// list. Identifiers are opaque but must be non-empty: the empty string is
// reserved to encode "unmatched" in results. Owner names the list or
// scenario carrying the empty reference and is blank for a record-level
// defect.
type InvalidIdentifierError struct {
	Kind  EntityKind
	Owner string
}

func (e InvalidIdentifierError) Error() string {
	if e.Owner != "" {
		return fmt.Sprintf("%s reference in %q has empty identifier", e.Kind, e.Owner)
	}
	return fmt.Sprintf("%s record has empty identifier", e.Kind)
}

// InvariantViolationError reports a defect in the engine itself, such as the
// bounded-termination guarantee failing. It is never expected in correct
// operation, is not recoverable by correcting input, and must never be
// swallowed.
type InvariantViolationError struct {
	Reason    string
	Proposals int
}

func (e InvariantViolationError) Error() string {
	if e.Proposals > 0 {
		return fmt.Sprintf("match invariant violated: %s (after %d proposals)", e.Reason, e.Proposals)
	}
	return fmt.Sprintf("match invariant violated: %s", e.Reason)
}

// IsValidation reports whether err is one of the index validation errors:
// duplicate entry, unknown identifier, invalid capacity, or invalid
// identifier. Validation errors are recoverable by correcting the input;
// invariant violations are not.
func IsValidation(err error) bool {
	var dup DuplicateEntryError
	var unknown UnknownIdentifierError
	var capacity InvalidCapacityError
	var ident InvalidIdentifierError
	return errors.As(err, &dup) || errors.As(err, &unknown) ||
		errors.As(err, &capacity) || errors.As(err, &ident)
}
