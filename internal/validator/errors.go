package validator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Rule names carried by ValidationError
const (
	RuleInvalidAnswerShape = "invalid_answer_shape"
	RuleNotApplicable      = "not_applicable"
	RuleHierarchy          = "hierarchy"
	RuleRequired           = "required"
	RuleBusinessLogic      = "business_logic"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrInvalidAnswerShape = errors.New("invalid answer shape")
)

// ValidationError is one field-level problem
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
	Rule    string      `json:"rule,omitempty"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

// NewValidationError creates a validation error without a rule
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: message, Value: value}
}

// answerError is a ValidationError raised by the answer validator
func answerError(field, message string, value interface{}) ValidationError {
	return ValidationError{Field: field, Message: message, Value: value, Rule: RuleInvalidAnswerShape}
}

// ValidationErrors aggregates every problem found in one request
type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "validation failed"
	}
	if len(ve) == 1 {
		return fmt.Sprintf("validation failed: %s %s", ve[0].Field, ve[0].Message)
	}
	return fmt.Sprintf("validation failed: %d field errors", len(ve))
}

// Is lets callers match ErrValidation, and ErrInvalidAnswerShape when any
// entry came from the answer validator
func (ve ValidationErrors) Is(target error) bool {
	switch target {
	case ErrValidation:
		return true
	case ErrInvalidAnswerShape:
		return ve.HasRule(RuleInvalidAnswerShape)
	}
	return false
}

// HasRule reports whether any entry carries rule
func (ve ValidationErrors) HasRule(rule string) bool {
	for _, e := range ve {
		if e.Rule == rule {
			return true
		}
	}
	return false
}

// Prefix returns a copy with every field name prefixed
func (ve ValidationErrors) Prefix(prefix string) ValidationErrors {
	out := make(ValidationErrors, len(ve))
	for i, e := range ve {
		e.Field = prefix + e.Field
		out[i] = e
	}
	return out
}

// OrNil returns nil for an empty list so callers can return it as error
func (ve ValidationErrors) OrNil() error {
	if len(ve) == 0 {
		return nil
	}
	return ve
}

// ToValidationErrors converts go-playground errors into ValidationErrors
func ToValidationErrors(err error) ValidationErrors {
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return ValidationErrors{{Field: "request", Message: err.Error(), Rule: RuleBusinessLogic}}
	}

	out := make(ValidationErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, ValidationError{
			Field:   fieldPath(fe),
			Message: getErrorMessage(fe),
			Value:   fe.Value(),
			Rule:    fe.Tag(),
		})
	}
	return out
}

// fieldPath drops the top-level struct name from the namespace
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func getErrorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must have at least %s entries", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "url":
		return "must be a valid URL"
	case "question_type":
		return "is not a known question type"
	case "explanation_level":
		return "must be one of Preliminary, Intermediate, Advanced"
	case "exam_year":
		return "must be a four digit year"
	case "lookup_name":
		return "must be between 1 and 255 characters"
	default:
		return fmt.Sprintf("failed on the '%s' rule", fe.Tag())
	}
}
