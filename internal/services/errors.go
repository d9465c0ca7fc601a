package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/KERD-ORG/Bornomala-Updated/internal/models"
	"github.com/KERD-ORG/Bornomala-Updated/internal/validator"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrQuestionNotFound = fmt.Errorf("question %w", ErrNotFound)
	ErrLookupNotFound   = fmt.Errorf("lookup %w", ErrNotFound)
	ErrConflict         = errors.New("conflict")
	ErrImmutable        = errors.New("field is immutable")
	// ErrCorruptQuestion marks a stored question whose variant data cannot be read
	ErrCorruptQuestion = errors.New("stored question is corrupt")
)

// Validation errors come from the validator package unchanged
type (
	ValidationError  = validator.ValidationError
	ValidationErrors = validator.ValidationErrors
)

// MissingReference is one referenced row that does not exist
type MissingReference struct {
	Field string            `json:"field"`
	Kind  models.LookupKind `json:"kind"`
	ID    uint              `json:"id"`
}

// ReferenceError lists every missing referenced row of one request
type ReferenceError struct {
	Missing []MissingReference
}

func (e *ReferenceError) Error() string {
	parts := make([]string, len(e.Missing))
	for i, m := range e.Missing {
		parts[i] = fmt.Sprintf("%s: %s %d does not exist", m.Field, m.Kind, m.ID)
	}
	return "referenced rows not found: " + strings.Join(parts, "; ")
}

func (e *ReferenceError) Unwrap() error { return ErrNotFound }

func (e *ReferenceError) add(field string, kind models.LookupKind, id uint) {
	e.Missing = append(e.Missing, MissingReference{Field: field, Kind: kind, ID: id})
}

func (e *ReferenceError) orNil() error {
	if len(e.Missing) == 0 {
		return nil
	}
	return e
}

// ImmutableFieldError rejects a change to a field fixed at creation
type ImmutableFieldError struct {
	Field     string
	Stored    string
	Requested string
}

func (e *ImmutableFieldError) Error() string {
	return fmt.Sprintf("%s cannot change from %q to %q", e.Field, e.Stored, e.Requested)
}

func (e *ImmutableFieldError) Is(target error) bool { return target == ErrImmutable }

// NewConflictError reports a lookup name that is already taken
func NewConflictError(kind models.LookupKind, name string) error {
	return fmt.Errorf("%w: %s %q already exists", ErrConflict, kind, name)
}
