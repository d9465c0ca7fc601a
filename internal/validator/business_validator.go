package validator

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/KERD-ORG/Bornomala-Updated/internal/models"
)

var yearPattern = regexp.MustCompile(`^[0-9]{4}$`)

// BusinessValidator handles business rule validation
type BusinessValidator struct {
	validate *validator.Validate
}

// NewBusinessValidator creates a new business validator
func NewBusinessValidator() *BusinessValidator {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	bv := &BusinessValidator{validate: validate}
	bv.registerBusinessRules()

	return bv
}

// Validate validates business rules for any struct
func (bv *BusinessValidator) Validate(s interface{}) ValidationErrors {
	if err := bv.validate.Struct(s); err != nil {
		return ToValidationErrors(err)
	}
	return nil
}

// registerBusinessRules registers custom business rule validators
func (bv *BusinessValidator) registerBusinessRules() {
	bv.validate.RegisterValidation("question_type", func(fl validator.FieldLevel) bool {
		_, err := models.ParseQuestionVariant(fl.Field().String())
		return err == nil
	})

	bv.validate.RegisterValidation("explanation_level", func(fl validator.FieldLevel) bool {
		return models.ExplanationLevel(fl.Field().String()).IsValid()
	})

	bv.validate.RegisterValidation("exam_year", func(fl validator.FieldLevel) bool {
		return yearPattern.MatchString(fl.Field().String())
	})

	bv.validate.RegisterValidation("lookup_name", func(fl validator.FieldLevel) bool {
		name := strings.TrimSpace(fl.Field().String())
		return len(name) >= 1 && len(name) <= 255
	})
}

// variantFieldOwners lists which variants accept each variant-specific field.
// question_text and correct_answer are shared by all and are not listed.
var variantFieldOwners = map[string][]models.QuestionVariant{
	models.ChildOptions:       {models.VariantMCQSingle, models.VariantMCQMulti},
	models.ChildMatchingPairs: {models.VariantMatching},
	models.ChildOrderingItems: {models.VariantOrdering},
	models.ChildColumnA:       {models.VariantDragAndDrop},
	models.ChildColumnB:       {models.VariantDragAndDrop},
	"image_url":               {models.VariantImage},
	"diagram_url":             {models.VariantDiagram},
	"audio_url":               {models.VariantAudioVideo},
	"video_url":               {models.VariantAudioVideo},
}

// validateApplicability rejects variant fields that the variant does not have
func validateApplicability(variant models.QuestionVariant, fields *VariantFields) ValidationErrors {
	var errs ValidationErrors
	for _, name := range fields.Supplied() {
		owners, ok := variantFieldOwners[name]
		if !ok {
			continue
		}
		allowed := false
		for _, v := range owners {
			if v == variant {
				allowed = true
				break
			}
		}
		if !allowed {
			errs = append(errs, ValidationError{
				Field:   name,
				Message: fmt.Sprintf("is not a field of %s questions", variant),
				Rule:    RuleNotApplicable,
			})
		}
	}
	return errs
}

// ValidateQuestionCreate validates question creation business rules. The
// answer itself is checked by ValidateAnswer once option ids are known.
func (bv *BusinessValidator) ValidateQuestionCreate(req *QuestionCreateRequest) ValidationErrors {
	var errors ValidationErrors

	errors = append(errors, bv.Validate(req)...)

	variant, err := models.ParseQuestionVariant(req.QuestionType)
	if err != nil {
		// already reported by the question_type tag
		return errors
	}

	if req.QuestionText == nil || strings.TrimSpace(*req.QuestionText) == "" {
		errors = append(errors, ValidationError{
			Field:   "question_text",
			Message: "is required",
			Rule:    RuleRequired,
		})
	}
	errors = append(errors, validateApplicability(variant, &req.VariantFields)...)
	errors = append(errors, validateExplanations(req.Explanations)...)

	return errors
}

// ValidateQuestionUpdate validates a partial update against the stored variant
func (bv *BusinessValidator) ValidateQuestionUpdate(req *QuestionUpdateRequest, variant models.QuestionVariant) ValidationErrors {
	var errors ValidationErrors

	errors = append(errors, bv.Validate(req)...)

	if req.QuestionText != nil && strings.TrimSpace(*req.QuestionText) == "" {
		errors = append(errors, ValidationError{
			Field:   "question_text",
			Message: "must not be empty",
			Rule:    RuleRequired,
		})
	}
	errors = append(errors, validateApplicability(variant, &req.VariantFields)...)
	errors = append(errors, validateExplanations(req.Explanations)...)

	return errors
}

// validateExplanations requires each explanation to carry text or a video
func validateExplanations(items []ExplanationInput) ValidationErrors {
	var errors ValidationErrors
	for i, e := range items {
		hasText := e.Text != nil && strings.TrimSpace(*e.Text) != ""
		hasVideo := e.VideoURL != nil && strings.TrimSpace(*e.VideoURL) != ""
		if !hasText && !hasVideo {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("explanations[%d]", i),
				Message: "must have text or a video_url",
				Rule:    RuleBusinessLogic,
			})
		}
	}
	return errors
}

// ValidateLookupCreate checks the fields required by kind
func (bv *BusinessValidator) ValidateLookupCreate(kind models.LookupKind, req *LookupCreateRequest) ValidationErrors {
	var errors ValidationErrors
	errors = append(errors, bv.Validate(req)...)

	if kind == models.KindExamReference {
		if strings.TrimSpace(req.ReferenceName) == "" {
			errors = append(errors, ValidationError{Field: "reference_name", Message: "is required", Rule: RuleRequired})
		}
	} else if strings.TrimSpace(req.Name) == "" {
		errors = append(errors, ValidationError{Field: "name", Message: "is required", Rule: RuleRequired})
	}

	switch kind {
	case models.KindSubTopic:
		if req.Topic == nil {
			errors = append(errors, ValidationError{Field: "topic", Message: "is required", Rule: RuleRequired})
		}
	case models.KindSubSubTopic:
		if req.SubTopic == nil {
			errors = append(errors, ValidationError{Field: "sub_topic", Message: "is required", Rule: RuleRequired})
		}
	}
	return errors
}

// ValidateLookupUpdate checks a partial lookup update
func (bv *BusinessValidator) ValidateLookupUpdate(kind models.LookupKind, req *LookupUpdateRequest) ValidationErrors {
	var errors ValidationErrors
	errors = append(errors, bv.Validate(req)...)

	if req.YearOfExam.Set && req.YearOfExam.Value != nil && *req.YearOfExam.Value != "" {
		if err := bv.validate.Var(*req.YearOfExam.Value, "exam_year"); err != nil {
			errors = append(errors, ValidationError{Field: "year_of_exam", Message: "must be a four digit year", Value: *req.YearOfExam.Value, Rule: "exam_year"})
		}
	}
	if req.Name != nil && kind == models.KindExamReference {
		errors = append(errors, ValidationError{Field: "name", Message: "is not a field of exam references", Rule: RuleNotApplicable})
	}
	if req.Topic != nil && kind != models.KindSubTopic {
		errors = append(errors, ValidationError{Field: "topic", Message: "is only accepted for subtopics", Rule: RuleNotApplicable})
	}
	if req.SubTopic != nil && kind != models.KindSubSubTopic {
		errors = append(errors, ValidationError{Field: "sub_topic", Message: "is only accepted for subsubtopics", Rule: RuleNotApplicable})
	}
	return errors
}
