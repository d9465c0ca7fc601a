package services

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/KERD-ORG/Bornomala-Updated/internal/models"
	"github.com/KERD-ORG/Bornomala-Updated/internal/repositories"
	"github.com/KERD-ORG/Bornomala-Updated/internal/validator"
)

// refOrder fixes the order references are checked and reported in
var refOrder = []models.LookupKind{
	models.KindQuestionLevel,
	models.KindOrganization,
	models.KindTargetGroup,
	models.KindSubject,
	models.KindTopic,
	models.KindSubTopic,
	models.KindSubSubTopic,
	models.KindQuestionStatus,
	models.KindDifficultyLevel,
}

// refFields maps a reference kind to its request field
var refFields = map[models.LookupKind]string{
	models.KindQuestionLevel:   "question_level",
	models.KindOrganization:    "target_organization",
	models.KindTargetGroup:     "target_group",
	models.KindSubject:         "target_subject",
	models.KindTopic:           "topic",
	models.KindSubTopic:        "sub_topic",
	models.KindSubSubTopic:     "sub_sub_topic",
	models.KindQuestionStatus:  "question_status",
	models.KindDifficultyLevel: "difficulty_level",
}

// ===== REFERENCES =====

// resolveRefs loads every non-nil reference. Missing rows are collected in
// refErr; any other failure is returned.
func (s *questionService) resolveRefs(ctx context.Context, tx *gorm.DB, refs map[models.LookupKind]*uint, refErr *ReferenceError) (map[models.LookupKind]models.Lookup, error) {
	loaded := make(map[models.LookupKind]models.Lookup, len(refs))
	for _, kind := range refOrder {
		id := refs[kind]
		if id == nil {
			continue
		}
		row, err := s.repo.Lookup().GetByID(ctx, tx, kind, *id)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				refErr.add(refFields[kind], kind, *id)
				continue
			}
			return nil, fmt.Errorf("failed to resolve %s: %w", refFields[kind], err)
		}
		loaded[kind] = row
	}
	return loaded, nil
}

// resolveExamReferences loads the referenced exams in request order with
// duplicates removed
func (s *questionService) resolveExamReferences(ctx context.Context, tx *gorm.DB, ids []uint, refErr *ReferenceError) ([]models.ExamReference, error) {
	unique := make([]uint, 0, len(ids))
	for _, id := range ids {
		if !slices.Contains(unique, id) {
			unique = append(unique, id)
		}
	}

	rows, err := s.repo.Lookup().GetExamReferences(ctx, tx, unique)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve exam_references: %w", err)
	}
	byID := make(map[uint]models.ExamReference, len(rows))
	for _, r := range rows {
		byID[r.ID] = r
	}

	out := make([]models.ExamReference, 0, len(unique))
	for _, id := range unique {
		r, ok := byID[id]
		if !ok {
			refErr.add("exam_references", models.KindExamReference, id)
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// checkHierarchy requires sub_topic to belong to topic and sub_sub_topic to
// sub_topic whenever both ends are set
func (s *questionService) checkHierarchy(ctx context.Context, tx *gorm.DB, refs map[models.LookupKind]*uint, loaded map[models.LookupKind]models.Lookup) (ValidationErrors, error) {
	var errs ValidationErrors
	for _, child := range []models.LookupKind{models.KindSubTopic, models.KindSubSubTopic} {
		parent, _ := child.ParentKind()
		childID, parentID := refs[child], refs[parent]
		if childID == nil || parentID == nil {
			continue
		}

		row, ok := loaded[child]
		if !ok {
			var err error
			row, err = s.repo.Lookup().GetByID(ctx, tx, child, *childID)
			if err != nil {
				return nil, fmt.Errorf("failed to load %s: %w", refFields[child], err)
			}
		}

		if p := row.GetParentID(); p == nil || *p != *parentID {
			errs = append(errs, ValidationError{
				Field:   refFields[child],
				Message: fmt.Sprintf("does not belong to %s %d", refFields[parent], *parentID),
				Value:   *childID,
				Rule:    validator.RuleHierarchy,
			})
		}
	}
	return errs, nil
}

// resolveExplanations maps each input to its shared row. Inputs with the
// same content collapse to one link.
func (s *questionService) resolveExplanations(ctx context.Context, tx *gorm.DB, inputs []validator.ExplanationInput) ([]models.Explanation, error) {
	out := make([]models.Explanation, 0, len(inputs))
	seen := make(map[uint]bool, len(inputs))
	for _, in := range inputs {
		explanation, err := s.repo.Explanation().ResolveOrCreate(ctx, tx, in.Level, in.Text, in.VideoURL)
		if err != nil {
			return nil, err
		}
		if seen[explanation.ID] {
			continue
		}
		seen[explanation.ID] = true
		out = append(out, *explanation)
	}
	return out, nil
}

// ===== VARIANT CONSTRUCTION =====

// buildDetails validates the answer against the declared structure and
// builds the variant row. The row is nil when there are errors.
func (s *questionService) buildDetails(variant models.QuestionVariant, fields *validator.VariantFields) (models.VariantRecord, ValidationErrors) {
	var errs ValidationErrors
	var optionIDs []int
	if variant.IsMCQ() {
		var optionErrs ValidationErrors
		optionIDs, optionErrs = validator.ResolveOptionIDs(fields.Options)
		errs = append(errs, optionErrs...)
	}

	parsed, answerErrs := s.validator.GetBusinessValidator().ValidateAnswer(answerInput(variant, fields, optionIDs))
	errs = append(errs, answerErrs...)
	if len(errs) > 0 {
		return nil, errs
	}

	details, err := buildVariant(variant, fields, optionIDs, parsed)
	if err != nil {
		return nil, ValidationErrors{{Field: "question_type", Message: err.Error(), Value: string(variant), Rule: "question_type"}}
	}
	return details, nil
}

func answerInput(variant models.QuestionVariant, f *validator.VariantFields, optionIDs []int) validator.AnswerInput {
	return validator.AnswerInput{
		Variant:          variant,
		OptionIDs:        optionIDs,
		MatchingPairs:    f.MatchingPairs,
		OrderingSequence: f.OrderingSequence,
		ColumnA:          f.OptionsColumnA,
		ColumnB:          f.OptionsColumnB,
		ImageURL:         f.ImageURL,
		DiagramURL:       f.DiagramURL,
		AudioURL:         f.AudioURL,
		VideoURL:         f.VideoURL,
		CorrectAnswer:    f.CorrectAnswer,
	}
}

// buildVariant maps validated fields onto the variant's row type
func buildVariant(variant models.QuestionVariant, f *validator.VariantFields, optionIDs []int, parsed validator.ParsedAnswer) (models.VariantRecord, error) {
	base := models.VariantBase{QuestionText: deref(f.QuestionText)}
	text := models.TextAnswer{VariantBase: base, CorrectAnswer: parsed.Text}

	switch variant {
	case models.VariantMCQSingle:
		return &models.MCQSingleQuestion{VariantBase: base, CorrectAnswer: parsed.OptionID, Options: buildOptions(f.Options, optionIDs)}, nil
	case models.VariantMCQMulti:
		return &models.MCQMultiQuestion{VariantBase: base, CorrectAnswer: datatypes.JSON(parsed.Raw), Options: buildOptions(f.Options, optionIDs)}, nil
	case models.VariantFillInBlank:
		return &models.FillInBlankQuestion{TextAnswer: text}, nil
	case models.VariantTrueFalse:
		return &models.TrueFalseQuestion{TextAnswer: text}, nil
	case models.VariantNumerical:
		return &models.NumericalQuestion{TextAnswer: text}, nil
	case models.VariantCaseStudy:
		return &models.CaseStudyQuestion{TextAnswer: text}, nil
	case models.VariantCode:
		return &models.CodeQuestion{TextAnswer: text}, nil
	case models.VariantAssertionReason:
		return &models.AssertionReasonQuestion{TextAnswer: text}, nil
	case models.VariantMatching:
		pairs := make([]models.MatchingPair, len(f.MatchingPairs))
		for i, p := range f.MatchingPairs {
			pairs[i] = models.MatchingPair{LeftItem: p.Left, RightItem: p.Right}
		}
		return &models.MatchingQuestion{VariantBase: base, CorrectAnswer: datatypes.JSON(parsed.Raw), Pairs: pairs}, nil
	case models.VariantOrdering:
		items := make([]models.OrderingItem, len(f.OrderingSequence))
		for i, it := range f.OrderingSequence {
			items[i] = models.OrderingItem{ItemText: it}
		}
		return &models.OrderingQuestion{VariantBase: base, CorrectAnswer: datatypes.JSON(parsed.Raw), Sequence: items}, nil
	case models.VariantImage:
		return &models.ImageQuestion{VariantBase: base, ImageURL: strings.TrimSpace(deref(f.ImageURL)), CorrectAnswer: parsed.Text}, nil
	case models.VariantAudioVideo:
		return &models.AudioVideoQuestion{VariantBase: base, AudioURL: blankToNil(f.AudioURL), VideoURL: blankToNil(f.VideoURL), CorrectAnswer: parsed.Text}, nil
	case models.VariantDiagram:
		return &models.DiagramQuestion{VariantBase: base, DiagramURL: strings.TrimSpace(deref(f.DiagramURL)), CorrectAnswer: datatypes.JSON(parsed.Raw)}, nil
	case models.VariantDragAndDrop:
		return &models.DragAndDropQuestion{
			VariantBase:   base,
			CorrectAnswer: datatypes.JSON(parsed.Raw),
			ColumnA:       dragDropItems(f.OptionsColumnA),
			ColumnB:       dragDropItems(f.OptionsColumnB),
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", models.ErrUnknownVariant, string(variant))
	}
}

func buildOptions(options []validator.OptionInput, ids []int) []models.MCQOption {
	out := make([]models.MCQOption, len(options))
	for i, o := range options {
		out[i] = models.MCQOption{OptionKey: ids[i], OptionText: o.Text}
	}
	return out
}

func dragDropItems(texts []string) []models.DragDropItem {
	out := make([]models.DragDropItem, len(texts))
	for i, t := range texts {
		out[i] = models.DragDropItem{ItemText: t}
	}
	return out
}

// ===== UPDATE MERGING =====

// variantFields reads a stored variant row back into request form so an
// update can be validated against the merged state
func variantFields(details models.VariantRecord) validator.VariantFields {
	var f validator.VariantFields
	switch d := details.(type) {
	case *models.MCQSingleQuestion:
		f.QuestionText = &d.QuestionText
		f.Options = optionInputs(d.Options)
		f.CorrectAnswer = mustJSON(d.CorrectAnswer)
	case *models.MCQMultiQuestion:
		f.QuestionText = &d.QuestionText
		f.Options = optionInputs(d.Options)
		f.CorrectAnswer = json.RawMessage(d.CorrectAnswer)
	case *models.FillInBlankQuestion:
		textFields(&f, &d.TextAnswer)
	case *models.TrueFalseQuestion:
		textFields(&f, &d.TextAnswer)
	case *models.NumericalQuestion:
		textFields(&f, &d.TextAnswer)
	case *models.CaseStudyQuestion:
		textFields(&f, &d.TextAnswer)
	case *models.CodeQuestion:
		textFields(&f, &d.TextAnswer)
	case *models.AssertionReasonQuestion:
		textFields(&f, &d.TextAnswer)
	case *models.MatchingQuestion:
		f.QuestionText = &d.QuestionText
		f.MatchingPairs = make([]validator.MatchingPairInput, len(d.Pairs))
		for i, p := range d.Pairs {
			f.MatchingPairs[i] = validator.MatchingPairInput{Left: p.LeftItem, Right: p.RightItem}
		}
		f.CorrectAnswer = json.RawMessage(d.CorrectAnswer)
	case *models.OrderingQuestion:
		f.QuestionText = &d.QuestionText
		f.OrderingSequence = models.OrderingTexts(d.Sequence)
		f.CorrectAnswer = json.RawMessage(d.CorrectAnswer)
	case *models.ImageQuestion:
		f.QuestionText = &d.QuestionText
		f.ImageURL = &d.ImageURL
		f.CorrectAnswer = mustJSON(d.CorrectAnswer)
	case *models.AudioVideoQuestion:
		f.QuestionText = &d.QuestionText
		f.AudioURL, f.VideoURL = d.AudioURL, d.VideoURL
		f.CorrectAnswer = mustJSON(d.CorrectAnswer)
	case *models.DiagramQuestion:
		f.QuestionText = &d.QuestionText
		f.DiagramURL = &d.DiagramURL
		f.CorrectAnswer = json.RawMessage(d.CorrectAnswer)
	case *models.DragAndDropQuestion:
		f.QuestionText = &d.QuestionText
		f.OptionsColumnA = models.DragDropTexts(d.ColumnA)
		f.OptionsColumnB = models.DragDropTexts(d.ColumnB)
		f.CorrectAnswer = json.RawMessage(d.CorrectAnswer)
	}
	return f
}

func textFields(f *validator.VariantFields, t *models.TextAnswer) {
	f.QuestionText = &t.QuestionText
	f.CorrectAnswer = mustJSON(t.CorrectAnswer)
}

// overlayFields replaces every stored field the update supplied. An
// explicit null correct_answer clears the stored answer.
func overlayFields(dst, src *validator.VariantFields) {
	if src.QuestionText != nil {
		dst.QuestionText = src.QuestionText
	}
	if src.Options != nil {
		dst.Options = src.Options
	}
	if src.MatchingPairs != nil {
		dst.MatchingPairs = src.MatchingPairs
	}
	if src.OrderingSequence != nil {
		dst.OrderingSequence = src.OrderingSequence
	}
	if src.OptionsColumnA != nil {
		dst.OptionsColumnA = src.OptionsColumnA
	}
	if src.OptionsColumnB != nil {
		dst.OptionsColumnB = src.OptionsColumnB
	}
	if src.ImageURL != nil {
		dst.ImageURL = src.ImageURL
	}
	if src.DiagramURL != nil {
		dst.DiagramURL = src.DiagramURL
	}
	if src.AudioURL != nil {
		dst.AudioURL = src.AudioURL
	}
	if src.VideoURL != nil {
		dst.VideoURL = src.VideoURL
	}
	switch {
	case validator.HasValue(src.CorrectAnswer):
		dst.CorrectAnswer = src.CorrectAnswer
	case validator.IsNull(src.CorrectAnswer):
		// Variants with a required answer reject the cleared value later
		dst.CorrectAnswer = nil
	}
}

func optionInputs(options []models.MCQOption) []validator.OptionInput {
	out := make([]validator.OptionInput, len(options))
	for i, o := range options {
		id := o.OptionKey
		out[i] = validator.OptionInput{ID: &id, Text: o.OptionText}
	}
	return out
}

func mustJSON(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func blankToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	return &trimmed
}
